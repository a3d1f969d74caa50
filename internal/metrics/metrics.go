package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/usage"
)

// Run outcomes used as the outcome label.
const (
	OutcomeOK     = "ok"
	OutcomeIdle   = "idle"
	OutcomeFailed = "failed"
)

const namespace = "vuedl"

// Recorder holds the metrics of one run.
type Recorder struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	pointsWritten *prometheus.CounterVec
	devicesOK     prometheus.Counter
	devicesFailed prometheus.Counter
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
	lastSuccess   prometheus.Gauge
	watermark     prometheus.Gauge
	windowSeconds prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		pointsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_written_total",
			Help:      "Normalized points accepted by each sink.",
		}, []string{"sink"}),
		devicesOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_succeeded_total",
			Help:      "Device channels fetched and written successfully.",
		}),
		devicesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_failed_total",
			Help:      "Device channels that exhausted their attempts.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Unix time through which data has been ingested.",
		}),
		windowSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_seconds",
			Help:      "Length of the window fetched by the last run.",
		}),
	}

	r.reg.MustRegister(
		r.runs, r.pointsWritten, r.devicesOK, r.devicesFailed,
		r.duration, r.lastRun, r.lastSuccess, r.watermark, r.windowSeconds,
	)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// PointsWritten adds n points accepted by the named sink.
func (r *Recorder) PointsWritten(sink string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.pointsWritten.WithLabelValues(sink).Add(float64(n))
}

// DeviceDone records the result of one device channel.
func (r *Recorder) DeviceDone(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.devicesOK.Inc()
		return
	}
	r.devicesFailed.Inc()
}

// RunFinished records the outcome and timing of a run. On OutcomeOK the
// success and watermark gauges move to finished and w.End.
func (r *Recorder) RunFinished(outcome string, started, finished time.Time, w usage.Window) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Set(finished.Sub(started).Seconds())
	r.lastRun.Set(float64(finished.Unix()))

	if outcome != OutcomeOK {
		return
	}
	r.lastSuccess.Set(float64(finished.Unix()))
	if !w.End.IsZero() {
		r.watermark.Set(float64(w.End.Unix()))
		r.windowSeconds.Set(w.Duration().Seconds())
	}
}

// Push sends the registry to the configured Pushgateway, replacing the
// previous push for the job.
func (r *Recorder) Push(ctx context.Context, cfg config.MetricsConfig) error {
	if r == nil || !cfg.Enabled {
		return nil
	}
	job := cfg.Job
	if job == "" {
		job = namespace
	}

	if err := push.New(cfg.PushgatewayURL, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", cfg.PushgatewayURL, err)
	}
	return nil
}
