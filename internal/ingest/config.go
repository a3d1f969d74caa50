package ingest

import (
	"fmt"
	"time"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/usage"
	"github.com/nerrad567/vuedl/internal/window"
)

// Config is the immutable configuration of one run.
type Config struct {
	// RunID tags logs, summaries and status messages.
	RunID string

	Planner window.Planner
	Scales  []usage.Scale
	Mode    usage.Mode

	// Attempts and Backoff apply to every cloud request and sink write.
	Attempts int
	Backoff  time.Duration

	// DeviceDelay is the minimum spacing between usage requests.
	DeviceDelay time.Duration

	// ContinueOnError fetches the remaining devices after one fails. The
	// run still fails.
	ContinueOnError bool
}

// NewConfig derives the run configuration from the loaded config file.
//
// Parameters:
//   - cfg: Validated application configuration
//   - runID: Identifier of this invocation
//
// Returns:
//   - Config: Run configuration
//   - error: Wraps config.ErrInvalid for an unknown scale or mode
func NewConfig(cfg *config.Config, runID string) (Config, error) {
	scales := make([]usage.Scale, 0, len(cfg.Fetch.Scales))
	for _, s := range cfg.Fetch.Scales {
		scale, err := usage.ParseScale(s)
		if err != nil {
			return Config{}, fmt.Errorf("%w: fetch.scales: %w", config.ErrInvalid, err)
		}
		scales = append(scales, scale)
	}

	mode, err := usage.ParseMode(cfg.Normalize.Mode)
	if err != nil {
		return Config{}, fmt.Errorf("%w: normalize.mode: %w", config.ErrInvalid, err)
	}

	return Config{
		RunID: runID,
		Planner: window.Planner{
			Lookback:      cfg.Fetch.Lookback,
			SafetyOffset:  cfg.Fetch.SafetyOffset,
			MinimumWindow: cfg.Fetch.MinimumWindow,
		},
		Scales:          scales,
		Mode:            mode,
		Attempts:        cfg.Fetch.Attempts,
		Backoff:         cfg.Fetch.Backoff,
		DeviceDelay:     cfg.Fetch.DeviceDelay,
		ContinueOnError: cfg.Fetch.ContinueOnError,
	}, nil
}
