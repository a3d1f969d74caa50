package usage

import (
	"fmt"
	"iter"
	"time"
)

// Mode selects duplicate handling during normalization.
type Mode int

const (
	// EmitAll emits every present sample.
	EmitAll Mode = iota

	// EmitOnChange suppresses a sample equal to the previously emitted one.
	EmitOnChange
)

// ParseMode maps a config string ("emit-all", "emit-on-change") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "emit-all", "":
		return EmitAll, nil
	case "emit-on-change":
		return EmitOnChange, nil
	default:
		return EmitAll, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	if m == EmitOnChange {
		return "emit-on-change"
	}
	return "emit-all"
}

// Normalize expands raw into points for device at the given scale.
//
// The sequence is lazy and single pass. Sample i is placed at
// FirstInstant + i*step; absent samples emit nothing but still advance the
// clock, so output timestamps are strictly increasing. In EmitOnChange mode
// the first present sample is always emitted and later ones only when they
// differ from the last emitted value.
func Normalize(raw RawUsage, device Device, scale Scale, mode Mode) iter.Seq[Point] {
	step := scale.Step()

	return func(yield func(Point) bool) {
		if step <= 0 {
			return
		}

		var (
			last    float64
			emitted bool
		)
		for i, v := range raw.Values {
			if v == nil {
				continue
			}
			if mode == EmitOnChange && emitted && *v == last {
				continue
			}

			p := Point{
				Device:    device,
				Scale:     scale,
				Timestamp: raw.FirstInstant.Add(step * time.Duration(i)),
				Value:     *v,
			}
			if !yield(p) {
				return
			}
			last, emitted = *v, true
		}
	}
}
