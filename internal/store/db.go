package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLite struct {
	Pool *sql.DB
	path string
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "jobwatch.db"
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &Error{Backend: "sqlite", Op: "open", Err: err}
	}

	// sqlite wants a single writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, &Error{Backend: "sqlite", Op: "open", Err: err}
	}

	if err := Migrate(pool); err != nil {
		_ = pool.Close()
		return nil, &Error{Backend: "sqlite", Op: "migrate", Err: err}
	}

	return &SQLite{Pool: pool, path: path}, nil
}

func (d *SQLite) Name() string { return "sqlite" }

func (d *SQLite) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}
