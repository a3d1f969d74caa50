package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/infrastructure/database"
	"github.com/nerrad567/vuedl/migrations"
)

func openReadingsDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "vue.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

type reading struct {
	timestamp string
	device    string
	value     float64
}

func readAll(t *testing.T, db *database.DB) []reading {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), "SELECT timestamp, device, value FROM readings ORDER BY timestamp")
	if err != nil {
		t.Fatalf("querying readings: %v", err)
	}
	defer rows.Close()

	var out []reading
	for rows.Next() {
		var r reading
		if err := rows.Scan(&r.timestamp, &r.device, &r.value); err != nil {
			t.Fatalf("scanning reading: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating readings: %v", err)
	}
	return out
}

func TestSQLite_WriteIsIdempotent(t *testing.T) {
	db := openReadingsDB(t)
	s := NewSQLite(db)
	ctx := context.Background()

	if err := s.Write(ctx, testPoints()); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	once := readAll(t, db)

	if err := s.Write(ctx, testPoints()); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	twice := readAll(t, db)

	if len(once) != 3 {
		t.Fatalf("after one write: %d rows, want 3", len(once))
	}
	if len(twice) != len(once) {
		t.Fatalf("after re-delivery: %d rows, want %d", len(twice), len(once))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("row %d changed on re-delivery: %+v -> %+v", i, once[i], twice[i])
		}
	}

	want := reading{timestamp: "2024-01-01T00:00:00+00:00", device: "1234_1,2,3", value: 1.0}
	if once[0] != want {
		t.Errorf("first row = %+v, want %+v", once[0], want)
	}
}

func TestSQLite_ConflictKeepsFirstValue(t *testing.T) {
	db := openReadingsDB(t)
	s := NewSQLite(db)
	ctx := context.Background()

	pts := testPoints()[:1]
	if err := s.Write(ctx, pts); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	pts[0].Value = 9.9
	if err := s.Write(ctx, pts); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows := readAll(t, db)
	if len(rows) != 1 || rows[0].value != 1.0 {
		t.Errorf("rows = %+v, want single row with the first value", rows)
	}
}

func TestSQLite_MatchesExistingRowText(t *testing.T) {
	db := openReadingsDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"INSERT INTO readings (timestamp, device, value) VALUES (?, ?, ?)",
		"2024-01-01T00:00:00+00:00", "1234_1,2,3", 1.0,
	); err != nil {
		t.Fatalf("seeding row: %v", err)
	}

	if err := NewSQLite(db).Write(ctx, testPoints()[:1]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rows := readAll(t, db); len(rows) != 1 {
		t.Errorf("rows = %+v, want the seeded row only", rows)
	}
}
