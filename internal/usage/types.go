package usage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Scale is the sampling granularity requested from the usage API.
type Scale string

// Supported scales and the API strings they map to.
const (
	ScaleSecond      Scale = "1S"
	ScaleMinute      Scale = "1MIN"
	ScaleQuarterHour Scale = "15MIN"
	ScaleHour        Scale = "1H"
)

// scaleSteps maps each scale to the spacing between consecutive samples.
var scaleSteps = map[Scale]time.Duration{
	ScaleSecond:      time.Second,
	ScaleMinute:      time.Minute,
	ScaleQuarterHour: 15 * time.Minute,
	ScaleHour:        time.Hour,
}

// ParseScale validates an API scale string.
func ParseScale(s string) (Scale, error) {
	scale := Scale(s)
	if _, ok := scaleSteps[scale]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScale, s)
	}
	return scale, nil
}

// Step returns the spacing between samples at this scale, or 0 for an
// unknown scale.
func (s Scale) Step() time.Duration {
	return scaleSteps[s]
}

// Device is one metered channel of a physical monitor.
//
// A monitor exposes several channels (mains phases, branch circuits); the
// API treats each (gid, channel) pair as an independent series.
type Device struct {
	GID     int64
	Channel string
}

// Key returns the relational series key "<gid>_<channel>".
func (d Device) Key() string {
	return strconv.FormatInt(d.GID, 10) + "_" + d.Channel
}

func (d Device) String() string {
	return fmt.Sprintf("device %d channel %s", d.GID, d.Channel)
}

// Window is the half-open fetch interval [Start, End), UTC, second-truncated.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + "/" + w.End.Format(time.RFC3339)
}

// RawUsage is a usage query response as returned by the API.
//
// Values[i] is nil when the upstream has not materialised that sample yet;
// nil is absence, not zero usage.
type RawUsage struct {
	FirstInstant time.Time  `json:"firstUsageInstant"`
	Values       []*float64 `json:"usageList"`
}

// DecodeRaw parses a usage response body.
//
// A body without samples is valid and expands to nothing. A body with
// samples but no first instant cannot be placed in time and is rejected.
func DecodeRaw(body []byte) (RawUsage, error) {
	var raw RawUsage
	if err := json.Unmarshal(body, &raw); err != nil {
		return RawUsage{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if raw.FirstInstant.IsZero() && len(raw.Values) > 0 {
		return RawUsage{}, fmt.Errorf("%w: usage list without firstUsageInstant", ErrMalformed)
	}
	raw.FirstInstant = raw.FirstInstant.UTC()
	return raw, nil
}

// Present counts the non-absent samples.
func (r RawUsage) Present() int {
	n := 0
	for _, v := range r.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// Point is one normalized sample ready for the sinks.
type Point struct {
	Device    Device
	Scale     Scale
	Timestamp time.Time
	Value     float64
}
