// Package status announces run progress over MQTT.
//
// Two retained topics are maintained: <prefix>/status carries the current
// state ("running", "ok", "idle", "failed", or "offline" from the broker's
// last will) and <prefix>/last_run the JSON summary of the last finished
// run. Publishing is best effort; failures are logged and never change the
// outcome of a run.
package status

import (
	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
	"github.com/nerrad567/vuedl/internal/infrastructure/mqtt"
	"github.com/nerrad567/vuedl/internal/ingest"
)

// StatusRunning is published when a run starts.
const StatusRunning = "running"

// publisher is the subset of *mqtt.Client the reporter needs.
type publisher interface {
	Topics() mqtt.Topics
	PublishStatus(status, reason string) error
	PublishJSON(topic string, v any) error
}

// Reporter publishes run status. A nil *Reporter does nothing.
type Reporter struct {
	pub    publisher
	logger *logging.Logger
}

// NewReporter returns a Reporter publishing through pub.
func NewReporter(pub publisher, logger *logging.Logger) *Reporter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reporter{pub: pub, logger: logger}
}

// Started announces a run.
func (r *Reporter) Started(runID string) {
	if r == nil {
		return
	}
	if err := r.pub.PublishStatus(StatusRunning, runID); err != nil {
		r.logger.Warn("publishing run status failed", "status", StatusRunning, "error", err)
	}
}

// Finished publishes the outcome as status and the summary on last_run.
func (r *Reporter) Finished(sum *ingest.Summary) {
	if r == nil || sum == nil {
		return
	}
	if err := r.pub.PublishStatus(sum.Outcome, sum.Error); err != nil {
		r.logger.Warn("publishing run status failed", "status", sum.Outcome, "error", err)
	}
	if err := r.pub.PublishJSON(r.pub.Topics().LastRun(), sum); err != nil {
		r.logger.Warn("publishing run summary failed", "error", err)
	}
}
