// Package usage holds the energy usage domain model and the series
// normalizer.
//
// The cloud API answers a usage query with the instant of the first sample
// and a dense array of values, one per scale step, where null marks a sample
// the upstream has not materialised yet. Normalize expands such a response
// into timestamped points:
//
//	raw := usage.RawUsage{FirstInstant: t0, Values: []*float64{&a, nil, &b}}
//	for p := range usage.Normalize(raw, dev, usage.ScaleMinute, usage.EmitAll) {
//	    // p.Timestamp is t0, then t0+2m
//	}
//
// Two modes exist. EmitAll keeps every present sample. EmitOnChange drops a
// sample equal to the previously emitted one, which trims write volume for
// point stores at the cost of "still reading X at this instant" fidelity.
package usage
