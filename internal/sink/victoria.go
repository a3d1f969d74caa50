package sink

import (
	"context"

	"github.com/nerrad567/vuedl/internal/infrastructure/tsdb"
	"github.com/nerrad567/vuedl/internal/usage"
)

// lineWriter is the subset of *tsdb.Client the sink needs.
type lineWriter interface {
	Write(ctx context.Context, lines []tsdb.Line) error
}

// Victoria writes points to VictoriaMetrics as line protocol.
type Victoria struct {
	client lineWriter
}

// NewVictoria returns a sink over a VictoriaMetrics client.
func NewVictoria(client lineWriter) *Victoria {
	return &Victoria{client: client}
}

// Name implements Sink.
func (s *Victoria) Name() string { return "victoriametrics" }

// Write implements Sink.
func (s *Victoria) Write(ctx context.Context, points []usage.Point) error {
	if len(points) == 0 {
		return nil
	}
	lines := make([]tsdb.Line, len(points))
	for i, p := range points {
		lines[i] = tsdb.Line{
			Measurement: measurementPrefix + string(p.Scale),
			Tags:        seriesTags(p.Device),
			Fields:      map[string]any{fieldUsage: p.Value},
			Time:        p.Timestamp,
		}
	}
	return s.client.Write(ctx, lines)
}
