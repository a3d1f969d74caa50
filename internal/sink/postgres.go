package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/usage"
)

// pgBatcher is the subset of *pgxpool.Pool the sink needs.
type pgBatcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres writes points into a readings table on PostgreSQL or TimescaleDB.
type Postgres struct {
	pool   pgBatcher
	insert string
}

// OpenPostgresPool creates a pool for cfg and verifies it with a ping.
func OpenPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns) // #nosec G115 -- validated small positive value
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsurePostgresSchema creates the readings table when it does not exist.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		timestamp TIMESTAMPTZ NOT NULL,
		device TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (timestamp, device)
	)`, pgx.Identifier{table}.Sanitize())

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}
	return nil
}

// NewPostgres returns a sink writing to table through pool.
func NewPostgres(pool pgBatcher, table string) *Postgres {
	return &Postgres{
		pool:   pool,
		insert: postgresInsert(table),
	}
}

func postgresInsert(table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (timestamp, device, value) VALUES ($1, $2, $3) ON CONFLICT (timestamp, device) DO NOTHING",
		pgx.Identifier{table}.Sanitize(),
	)
}

// Name implements Sink.
func (p *Postgres) Name() string { return "postgres" }

// Write sends all points as one pipelined batch.
func (p *Postgres) Write(ctx context.Context, points []usage.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, pt := range points {
		batch.Queue(p.insert, pt.Timestamp.UTC(), pt.Device.Key(), pt.Value)
	}

	results := p.pool.SendBatch(ctx, batch)
	for range points {
		if _, err := results.Exec(); err != nil {
			results.Close() //nolint:errcheck // Already failing
			return fmt.Errorf("inserting readings: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}
	return nil
}
