// Package metrics records per-run batch job metrics and pushes them to a
// Prometheus Pushgateway.
//
// A run is short-lived, so nothing is scraped from the process. The job
// fills a private registry while it works and pushes it once before exit:
//
//	rec := metrics.New()
//	rec.PointsWritten("sqlite", 120)
//	rec.RunFinished(metrics.OutcomeOK, started, time.Now(), window)
//	err := rec.Push(ctx, cfg.Metrics)
//
// Every Recorder method is a no-op on a nil receiver, so callers that run
// without metrics pass nil instead of branching.
package metrics
