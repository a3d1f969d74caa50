package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/infrastructure/tsdb"
)

type recordingInflux struct {
	points []*write.Point
}

func (r *recordingInflux) Write(_ context.Context, points ...*write.Point) error {
	r.points = append(r.points, points...)
	return nil
}

func TestInflux_PointLayout(t *testing.T) {
	rec := &recordingInflux{}
	pts := testPoints()

	if err := NewInflux(rec).Write(context.Background(), pts); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(rec.points) != len(pts) {
		t.Fatalf("wrote %d points, want %d", len(rec.points), len(pts))
	}

	p := rec.points[0]
	if p.Name() != "kWh_1MIN" {
		t.Errorf("measurement = %q, want kWh_1MIN", p.Name())
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device_gid"] != "1234" || tags["channel"] != "1,2,3" {
		t.Errorf("tags = %v", tags)
	}
	fields := p.FieldList()
	if len(fields) != 1 || fields[0].Key != "usage" || fields[0].Value != 1.0 {
		t.Errorf("fields = %+v", fields)
	}
	if !p.Time().Equal(pts[0].Timestamp) {
		t.Errorf("time = %v, want %v", p.Time(), pts[0].Timestamp)
	}
}

func TestVictoria_WritesLineProtocol(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/write" {
			w.WriteHeader(http.StatusOK)
			return
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := tsdb.Connect(context.Background(), config.TSDBConfig{Enabled: true, URL: srv.URL})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if err := NewVictoria(client).Write(context.Background(), testPoints()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(bodies) != 1 {
		t.Fatalf("got %d write requests, want 1", len(bodies))
	}
	lines := strings.Split(bodies[0], "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	const want = `kWh_1MIN,channel=1\,2\,3,device_gid=1234 usage=1 1704067200000000000`
	if lines[0] != want {
		t.Errorf("line[0] = %q, want %q", lines[0], want)
	}
}
