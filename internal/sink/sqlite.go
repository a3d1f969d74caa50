package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/vuedl/internal/infrastructure/database"
	"github.com/nerrad567/vuedl/internal/usage"
)

// readingTimeLayout is how instants are stored in the TEXT timestamp column.
// Values are always UTC and must stay byte-identical across versions for
// ON CONFLICT to match rows already in an existing vue.db.
const readingTimeLayout = "2006-01-02T15:04:05+00:00"

const sqliteInsert = `INSERT INTO readings (timestamp, device, value) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`

// SQLite writes points into the readings table of a local database.
type SQLite struct {
	db *database.DB
}

// NewSQLite returns a sink over db. The readings migration must have run.
func NewSQLite(db *database.DB) *SQLite {
	return &SQLite{db: db}
}

// Name implements Sink.
func (s *SQLite) Name() string { return "sqlite" }

// Write inserts all points in one transaction.
func (s *SQLite) Write(ctx context.Context, points []usage.Point) error {
	if len(points) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, sqliteInsert)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.Timestamp.UTC().Format(readingTimeLayout), p.Device.Key(), p.Value); err != nil {
				return fmt.Errorf("inserting reading %s@%s: %w", p.Device.Key(), p.Timestamp.Format(time.RFC3339), err)
			}
		}
		return nil
	})
}
