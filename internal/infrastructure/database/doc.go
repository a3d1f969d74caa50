// Package database provides the SQLite connection used by the readings sink.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded SQL migrations in version order
//   - Health checks and connection lifecycle
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction and
// is recorded in schema_migrations, so Migrate is safe to call on every run.
package database
