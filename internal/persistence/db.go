package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register sqlite driver
)

const busyTimeoutMS = 5000

// connPragmas are per-connection settings, so the pool is pinned to a single
// connection to keep them in force.
var connPragmas = []struct {
	name string
	stmt string
}{
	{name: "set wal mode", stmt: `PRAGMA journal_mode = WAL;`},
	{name: "set busy timeout", stmt: fmt.Sprintf(`PRAGMA busy_timeout = %d;`, busyTimeoutMS)},
	{name: "set synchronous mode", stmt: `PRAGMA synchronous = NORMAL;`},
}

// Open opens the capture history database at path and brings its schema up
// to date.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite db %s: %w", path, err)
	}
	for _, p := range connPragmas {
		if _, err := db.ExecContext(ctx, p.stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}
