package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/vuedl/internal/retry"
	"github.com/nerrad567/vuedl/internal/usage"
)

// Sink stores points idempotently.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Write persists points. Writing the same points again must leave the
	// store unchanged.
	Write(ctx context.Context, points []usage.Point) error
}

// Multi writes to each sink in order and stops at the first failure.
type Multi []Sink

// Name lists the member sinks.
func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Write implements Sink.
func (m Multi) Write(ctx context.Context, points []usage.Point) error {
	for _, s := range m {
		if err := s.Write(ctx, points); err != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Retrying retries a sink's writes under a fixed policy.
type Retrying struct {
	Sink   Sink
	Policy retry.Policy
}

// WithRetry wraps s so every Write is retried under p.
func WithRetry(s Sink, p retry.Policy) *Retrying {
	return &Retrying{Sink: s, Policy: p}
}

// Name implements Sink.
func (r *Retrying) Name() string {
	return r.Sink.Name()
}

// Write implements Sink. Exhaustion returns an error wrapping
// retry.ErrExhausted and the last failure.
func (r *Retrying) Write(ctx context.Context, points []usage.Point) error {
	if len(points) == 0 {
		return nil
	}
	res := retry.Run(ctx, r.Policy, func(ctx context.Context) error {
		return r.Sink.Write(ctx, points)
	})
	return res.Err
}
