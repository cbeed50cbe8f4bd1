package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

const pgTable = "snapshot_records"

type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and creates the snapshot table if needed.
func OpenPostgres(ctx context.Context, dsn, password string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &Error{Backend: "postgres", Op: "open", Err: fmt.Errorf("parse dsn: %w", err)}
	}
	if password != "" {
		cfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &Error{Backend: "postgres", Op: "open", Err: err}
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, &Error{Backend: "postgres", Op: "open", Err: err}
	}

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+pgTable+` (
  job_id TEXT PRIMARY KEY,
  ord INTEGER NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  salary_text TEXT NOT NULL DEFAULT '',
  salary_min INTEGER,
  salary_max INTEGER,
  application_url TEXT NOT NULL DEFAULT '',
  band TEXT NOT NULL DEFAULT '',
  posting_date TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  closed_at TEXT NOT NULL DEFAULT '',
  first_seen TEXT NOT NULL DEFAULT '',
  last_seen TEXT NOT NULL DEFAULT ''
)`); err != nil {
		pool.Close()
		return nil, &Error{Backend: "postgres", Op: "migrate", Err: err}
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ReadAll(ctx context.Context) ([]domain.SnapshotRecord, error) {
	rows, err := p.pool.Query(ctx, `
SELECT job_id, title, location, salary_text, salary_min, salary_max,
       application_url, band, posting_date, status, closed_at, first_seen, last_seen
FROM `+pgTable+`
ORDER BY ord`)
	if err != nil {
		return nil, &Error{Backend: "postgres", Op: "read_all", Err: err}
	}
	defer rows.Close()

	var out []domain.SnapshotRecord
	for rows.Next() {
		var r domain.SnapshotRecord
		var status string
		if err := rows.Scan(
			&r.IdentityKey, &r.Title, &r.Location, &r.SalaryText, &r.SalaryMin, &r.SalaryMax,
			&r.ApplicationURL, &r.Band, &r.PostingDate, &status, &r.ClosedAt, &r.FirstSeen, &r.LastSeen,
		); err != nil {
			return nil, &Error{Backend: "postgres", Op: "read_all", Err: err}
		}
		if r.Status, err = domain.ParseStatus(status); err != nil {
			return nil, &Error{Backend: "postgres", Op: "read_all", Err: fmt.Errorf("%w: %s: %v", ErrInvalidRecord, r.IdentityKey, err)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Backend: "postgres", Op: "read_all", Err: err}
	}
	return out, nil
}

// ReplaceAll truncates and bulk-copies inside one transaction.
func (p *Postgres) ReplaceAll(ctx context.Context, records []domain.SnapshotRecord) error {
	if err := ValidateRecords(records); err != nil {
		return &Error{Backend: "postgres", Op: "replace_all", Err: err}
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE `+pgTable); err != nil {
			return err
		}
		rows := make([][]any, 0, len(records))
		for i, r := range records {
			rows = append(rows, []any{
				r.IdentityKey, i, r.Title, r.Location, r.SalaryText,
				nullableInt(r.SalaryMin), nullableInt(r.SalaryMax),
				r.ApplicationURL, r.Band, r.PostingDate, string(r.Status), r.ClosedAt,
				r.FirstSeen, r.LastSeen,
			})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{pgTable}, []string{
			"job_id", "ord", "title", "location", "salary_text", "salary_min", "salary_max",
			"application_url", "band", "posting_date", "status", "closed_at", "first_seen", "last_seen",
		}, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return &Error{Backend: "postgres", Op: "replace_all", Err: err}
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int32(*v)
}
