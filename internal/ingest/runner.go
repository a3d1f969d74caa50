package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/vuedl/internal/archive"
	"github.com/nerrad567/vuedl/internal/credential"
	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
	"github.com/nerrad567/vuedl/internal/metrics"
	"github.com/nerrad567/vuedl/internal/retry"
	"github.com/nerrad567/vuedl/internal/sink"
	"github.com/nerrad567/vuedl/internal/state"
	"github.com/nerrad567/vuedl/internal/usage"
	"github.com/nerrad567/vuedl/internal/window"
)

// API is the cloud surface a run uses. *cloud.Client implements it.
type API interface {
	credential.Exchanger
	CustomerID(ctx context.Context, token string) (int64, error)
	Devices(ctx context.Context, token string) ([]usage.Device, error)
	Usage(ctx context.Context, token string, device usage.Device, w usage.Window, scale usage.Scale) ([]byte, error)
}

// StateStore loads and checkpoints the runtime state. *state.FileStore
// implements it.
type StateStore interface {
	Load() (*state.State, error)
	Save(st *state.State) error
}

// Deps are the collaborators of a Runner.
type Deps struct {
	API     API
	State   StateStore
	Archive *archive.Store
	Sinks   []sink.Sink

	// Metrics is optional.
	Metrics *metrics.Recorder

	// Logger is optional; nil discards.
	Logger *logging.Logger

	// Now and Sleep replace the clock and the retry backoff timer in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner executes runs and replays.
type Runner struct {
	cfg     Config
	api     API
	state   StateStore
	archive *archive.Store
	writer  sink.Sink
	creds   *credential.Manager
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	limiter *rate.Limiter
}

// New assembles a Runner. Each sink is wrapped in the retry policy and
// written in the order given.
func New(cfg Config, deps Deps) *Runner {
	r := &Runner{
		cfg:     cfg,
		api:     deps.API,
		state:   deps.State,
		archive: deps.Archive,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
		sleep:   deps.Sleep,
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if cfg.RunID != "" {
		r.logger = r.logger.With("run_id", cfg.RunID)
	}

	// Burst 1: the first request goes out at once, later ones are spaced.
	limit := rate.Inf
	if cfg.DeviceDelay > 0 {
		limit = rate.Every(cfg.DeviceDelay)
	}
	r.limiter = rate.NewLimiter(limit, 1)

	writers := make(sink.Multi, 0, len(deps.Sinks))
	for _, s := range deps.Sinks {
		writers = append(writers, metered{
			Sink: sink.WithRetry(s, r.policy("write "+s.Name())),
			rec:  deps.Metrics,
		})
	}
	r.writer = writers
	r.creds = credential.NewManager(deps.API).WithClock(r.now)
	return r
}

// policy returns the retry policy for op, logging each retried failure.
func (r *Runner) policy(op string) retry.Policy {
	return retry.Policy{
		Attempts: r.cfg.Attempts,
		Backoff:  r.cfg.Backoff,
		Sleep:    r.sleep,
		OnRetry: func(attempt int, err error) {
			r.logger.Warn("attempt failed, retrying",
				"op", op,
				"attempt", attempt,
				"backoff", r.cfg.Backoff,
				"error", err,
			)
		},
	}
}

// Run performs one incremental fetch.
//
// The returned Summary is always non-nil. The error is nil on success,
// wraps window.ErrNoWork for an idle run, and otherwise describes the fatal
// failure that aborted the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		RunID:   r.cfg.RunID,
		Phase:   PhaseStart,
		Started: r.now().UTC(),
		Devices: []DeviceResult{},
	}

	err := r.run(ctx, sum)

	sum.Finished = r.now().UTC()
	switch {
	case err == nil:
		sum.Outcome = metrics.OutcomeOK
	case errors.Is(err, window.ErrNoWork):
		sum.Outcome = metrics.OutcomeIdle
	default:
		sum.Outcome = metrics.OutcomeFailed
		sum.Error = err.Error()
		r.enter(sum, PhaseAborted, "error", err)
	}
	r.metrics.RunFinished(sum.Outcome, sum.Started, sum.Finished, sum.Window())
	return sum, err
}

func (r *Runner) run(ctx context.Context, sum *Summary) error {
	st, err := r.state.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	w, err := r.cfg.Planner.Plan(st.Watermark(), r.now())
	sum.WindowStart, sum.WindowEnd = w.Start, w.End
	if err != nil {
		r.logger.Info("nothing to fetch", "window", w.String())
		sum.Phase = PhaseDone
		return err
	}
	r.enter(sum, PhaseWindowPlanned, "window", w.String(), "first_run", st.Watermark() == nil)

	token, err := r.ensureCredential(ctx, st)
	if err != nil {
		return err
	}
	r.enter(sum, PhaseCredentialReady)

	devices, err := r.resolveDevices(ctx, st, token)
	if err != nil {
		return err
	}
	r.enter(sum, PhaseDevicesResolved, "devices", len(devices), "scales", len(r.cfg.Scales))

	if err := r.fetchAll(ctx, token, devices, w, sum); err != nil {
		return err
	}

	st.Advance(w.End)
	if err := r.state.Save(st); err != nil {
		return fmt.Errorf("persisting watermark: %w", err)
	}
	r.enter(sum, PhaseWatermarkAdvanced, "watermark", w.End.Format(time.RFC3339))
	r.enter(sum, PhaseDone, "points", sum.Points)
	return nil
}

func (r *Runner) enter(sum *Summary, p Phase, args ...any) {
	sum.Phase = p
	r.logger.Debug("phase "+p.String(), args...)
}

// ensureCredential renews the cached token when needed and persists a
// renewal before returning.
func (r *Runner) ensureCredential(ctx context.Context, st *state.State) (string, error) {
	var cached *credential.Credential
	if st.Token != "" {
		cached = &credential.Credential{Token: st.Token, ExpiresAt: st.TokenExpiration}
	}

	cred, renewed, err := r.creds.EnsureValid(ctx, cached)
	if err != nil {
		return "", err
	}
	if !renewed {
		r.logger.Debug("cached credential valid", "expires_at", cred.ExpiresAt.Format(time.RFC3339))
		return cred.Token, nil
	}

	st.Token = cred.Token
	st.TokenExpiration = cred.ExpiresAt.UTC()
	if err := r.state.Save(st); err != nil {
		return "", fmt.Errorf("persisting credential: %w", err)
	}
	r.logger.Info("credential renewed", "expires_at", st.TokenExpiration.Format(time.RFC3339))
	return cred.Token, nil
}

// resolveDevices caches the customer id on first use and lists devices.
func (r *Runner) resolveDevices(ctx context.Context, st *state.State, token string) ([]usage.Device, error) {
	if st.CustomerID == 0 {
		res := retry.Do(ctx, r.policy("customer lookup"), func(ctx context.Context) (int64, error) {
			return r.api.CustomerID(ctx, token)
		})
		if res.Err != nil {
			return nil, fmt.Errorf("resolving customer id: %w", res.Err)
		}
		st.CustomerID = res.Value
		if err := r.state.Save(st); err != nil {
			return nil, fmt.Errorf("persisting customer id: %w", err)
		}
		r.logger.Info("customer id resolved", "customer_id", st.CustomerID)
	}

	res := retry.Do(ctx, r.policy("device list"), func(ctx context.Context) ([]usage.Device, error) {
		return r.api.Devices(ctx, token)
	})
	if res.Err != nil {
		return nil, fmt.Errorf("listing devices: %w", res.Err)
	}
	return res.Value, nil
}

// fetchAll ingests every device channel at every scale and collects the
// results. It returns ErrDeviceFailed when any of them failed.
func (r *Runner) fetchAll(ctx context.Context, token string, devices []usage.Device, w usage.Window, sum *Summary) error {
	var firstErr error
	for _, d := range devices {
		for _, scale := range r.cfg.Scales {
			r.enter(sum, PhaseFetchingDevice, "device_gid", d.GID, "channel", d.Channel, "scale", scale)

			res := r.ingestDevice(ctx, token, d, scale, w)
			sum.Devices = append(sum.Devices, res)
			sum.Points += res.Points
			r.metrics.DeviceDone(res.OK())

			if res.OK() {
				r.logger.Debug("device ingested",
					"device_gid", d.GID,
					"channel", d.Channel,
					"scale", scale,
					"points", res.Points,
					"attempts", res.Attempts,
				)
				continue
			}

			r.logger.Error("device failed",
				"device_gid", d.GID,
				"channel", d.Channel,
				"scale", scale,
				"attempts", res.Attempts,
				"error", res.Err,
			)
			if firstErr == nil {
				firstErr = res.Err
			}
			if !r.cfg.ContinueOnError || ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrDeviceFailed, firstErr)
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %d of %d failed, first: %w", ErrDeviceFailed, sum.Failed(), len(sum.Devices), firstErr)
	}
	return nil
}

type fetched struct {
	body []byte
	raw  usage.RawUsage
}

// ingestDevice fetches, archives, normalizes and writes one device channel.
// An empty response is neither archived nor written.
func (r *Runner) ingestDevice(ctx context.Context, token string, d usage.Device, scale usage.Scale, w usage.Window) DeviceResult {
	res := newDeviceResult(d, scale)

	got := retry.Do(ctx, r.policy("usage "+d.Key()), func(ctx context.Context) (fetched, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return fetched{}, retry.Permanent(err)
		}
		body, err := r.api.Usage(ctx, token, d, w, scale)
		if err != nil {
			return fetched{}, err
		}
		raw, err := usage.DecodeRaw(body)
		if err != nil {
			return fetched{}, err
		}
		return fetched{body: body, raw: raw}, nil
	})
	res.Attempts = got.Attempts
	if got.Err != nil {
		res.fail(fmt.Errorf("fetching %s at %s: %w", d, scale, got.Err))
		return res
	}
	if got.Value.raw.Present() == 0 {
		r.logger.Debug("no samples in window", "device_gid", d.GID, "channel", d.Channel, "scale", scale)
		return res
	}

	entry := archive.Entry{Key: archive.Key{Device: d, Scale: scale, Window: w}}
	path, err := r.archive.Save(entry.Key, got.Value.body)
	if err != nil {
		res.fail(fmt.Errorf("saving raw response for %s: %w", d, err))
		return res
	}
	entry.Path = path

	n, dest, err := r.load(ctx, entry, got.Value.raw)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Points = n
	res.Archived = dest
	return res
}

// load writes the points of a saved raw response and moves the file into
// the dated archive, returning the point count and the archived path.
func (r *Runner) load(ctx context.Context, entry archive.Entry, raw usage.RawUsage) (int, string, error) {
	points := slices.Collect(usage.Normalize(raw, entry.Key.Device, entry.Key.Scale, r.cfg.Mode))
	if err := r.writer.Write(ctx, points); err != nil {
		return 0, "", fmt.Errorf("writing %s: %w", entry.Key.Device, err)
	}

	dest, err := r.archive.Archive(entry)
	if err != nil {
		return 0, "", fmt.Errorf("archiving %s: %w", entry.Path, err)
	}
	return len(points), dest, nil
}

// metered counts points accepted by a sink.
type metered struct {
	sink.Sink
	rec *metrics.Recorder
}

func (m metered) Write(ctx context.Context, points []usage.Point) error {
	if err := m.Sink.Write(ctx, points); err != nil {
		return err
	}
	m.rec.PointsWritten(m.Name(), len(points))
	return nil
}
