// Package window plans the fetch interval for one run.
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/vuedl/internal/usage"
)

// ErrNoWork means the planned window is shorter than the minimum. It is a
// normal idle outcome: the run ends successfully without any network call.
var ErrNoWork = errors.New("window: less than the minimum window since the last run")

// Planner turns the watermark and the current time into a fetch window.
type Planner struct {
	// Lookback is the window length used on the first run.
	Lookback time.Duration

	// SafetyOffset keeps the window clear of samples the upstream has not
	// finalised yet.
	SafetyOffset time.Duration

	// MinimumWindow is the shortest window worth fetching.
	MinimumWindow time.Duration
}

// Plan computes the window for a run started at now.
//
// end is now truncated to the minute minus SafetyOffset. start is one second
// after the watermark, or end minus Lookback when there is no watermark yet.
// Both are UTC and second-truncated. A window shorter than MinimumWindow
// returns ErrNoWork together with the computed window, for logging.
func (p Planner) Plan(watermark *time.Time, now time.Time) (usage.Window, error) {
	end := now.UTC().Truncate(time.Minute).Add(-p.SafetyOffset).Truncate(time.Second)

	var start time.Time
	if watermark != nil && !watermark.IsZero() {
		start = watermark.UTC().Truncate(time.Second).Add(time.Second)
	} else {
		start = end.Add(-p.Lookback)
	}

	w := usage.Window{Start: start, End: end}
	if w.Duration() < p.MinimumWindow {
		return w, fmt.Errorf("%w: %s", ErrNoWork, w)
	}
	return w, nil
}
