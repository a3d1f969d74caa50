package ingest

import (
	"time"

	"github.com/nerrad567/vuedl/internal/usage"
)

// DeviceResult is the outcome of one device channel at one scale.
type DeviceResult struct {
	Device   usage.Device `json:"-"`
	GID      int64        `json:"device_gid"`
	Channel  string       `json:"channel"`
	Scale    usage.Scale  `json:"scale"`
	Attempts int          `json:"attempts"`
	Points   int          `json:"points"`
	Archived string       `json:"archived,omitempty"`
	Err      error        `json:"-"`
	Error    string       `json:"error,omitempty"`
}

func newDeviceResult(d usage.Device, scale usage.Scale) DeviceResult {
	return DeviceResult{Device: d, GID: d.GID, Channel: d.Channel, Scale: scale}
}

func (r *DeviceResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// OK reports whether the device channel was fully ingested.
func (r DeviceResult) OK() bool {
	return r.Err == nil
}

// Summary describes a finished run. It is published as the last_run status
// message.
type Summary struct {
	RunID       string         `json:"run_id"`
	Outcome     string         `json:"outcome"`
	Phase       Phase          `json:"phase"`
	WindowStart time.Time      `json:"window_start,omitzero"`
	WindowEnd   time.Time      `json:"window_end,omitzero"`
	Started     time.Time      `json:"started"`
	Finished    time.Time      `json:"finished"`
	Devices     []DeviceResult `json:"devices"`
	Points      int            `json:"points"`
	Error       string         `json:"error,omitempty"`
}

// Window returns the planned window, zero if planning did not happen.
func (s *Summary) Window() usage.Window {
	return usage.Window{Start: s.WindowStart, End: s.WindowEnd}
}

// Failed counts device results with an error.
func (s *Summary) Failed() int {
	n := 0
	for _, d := range s.Devices {
		if !d.OK() {
			n++
		}
	}
	return n
}

// ReplaySummary describes a replay of pending raw files.
type ReplaySummary struct {
	Files   int `json:"files"`
	Points  int `json:"points"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
