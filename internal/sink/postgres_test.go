package sink

import (
	"context"
	"os"
	"testing"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
)

func TestPostgresInsert_QuotesTable(t *testing.T) {
	got := postgresInsert(`energy"readings`)
	const want = `INSERT INTO "energy""readings" (timestamp, device, value) VALUES ($1, $2, $3) ON CONFLICT (timestamp, device) DO NOTHING`
	if got != want {
		t.Errorf("postgresInsert() = %q, want %q", got, want)
	}
}

// TestPostgres_Idempotent runs against a real server when POSTGRES_DSN is set.
func TestPostgres_Idempotent(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping integration test")
	}
	ctx := context.Background()

	pool, err := OpenPostgresPool(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Fatalf("OpenPostgresPool() error = %v", err)
	}
	defer pool.Close()

	const table = "vuedl_test_readings"
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		t.Fatalf("dropping table: %v", err)
	}
	if err := EnsurePostgresSchema(ctx, pool, table); err != nil {
		t.Fatalf("EnsurePostgresSchema() error = %v", err)
	}
	defer pool.Exec(ctx, "DROP TABLE IF EXISTS "+table) //nolint:errcheck // Test cleanup

	s := NewPostgres(pool, table)
	for i := range 2 {
		if err := s.Write(ctx, testPoints()); err != nil {
			t.Fatalf("Write() pass %d error = %v", i+1, err)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != len(testPoints()) {
		t.Errorf("row count = %d, want %d", count, len(testPoints()))
	}
}
