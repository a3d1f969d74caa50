package sink

import (
	"context"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/vuedl/internal/usage"
)

// Series layout shared by the time-series sinks.
const (
	measurementPrefix = "kWh_"
	tagDeviceGID      = "device_gid"
	tagChannel        = "channel"
	fieldUsage        = "usage"
)

// pointWriter is the subset of *influxdb.Client the sink needs.
type pointWriter interface {
	Write(ctx context.Context, points ...*write.Point) error
}

// Influx writes points to InfluxDB v2.
type Influx struct {
	client pointWriter
}

// NewInflux returns a sink over an InfluxDB client.
func NewInflux(client pointWriter) *Influx {
	return &Influx{client: client}
}

// Name implements Sink.
func (s *Influx) Name() string { return "influxdb" }

// Write implements Sink.
func (s *Influx) Write(ctx context.Context, points []usage.Point) error {
	if len(points) == 0 {
		return nil
	}
	batch := make([]*write.Point, len(points))
	for i, p := range points {
		batch[i] = influxPoint(p)
	}
	return s.client.Write(ctx, batch...)
}

func influxPoint(p usage.Point) *write.Point {
	return influxdb2.NewPoint(
		measurementPrefix+string(p.Scale),
		seriesTags(p.Device),
		map[string]any{fieldUsage: p.Value},
		p.Timestamp,
	)
}

func seriesTags(d usage.Device) map[string]string {
	return map[string]string{
		tagDeviceGID: strconv.FormatInt(d.GID, 10),
		tagChannel:   d.Channel,
	}
}
