package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS snapshot (
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
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_snapshot_status
ON snapshot(status);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *SQLite) ReadAll(ctx context.Context) ([]domain.SnapshotRecord, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT job_id, title, location, salary_text, salary_min, salary_max,
       application_url, band, posting_date, status, closed_at, first_seen, last_seen
FROM snapshot
ORDER BY ord;`)
	if err != nil {
		return nil, &Error{Backend: "sqlite", Op: "read_all", Err: err}
	}
	defer rows.Close()

	var out []domain.SnapshotRecord
	for rows.Next() {
		var r domain.SnapshotRecord
		var lo, hi sql.NullInt64
		var status string
		if err := rows.Scan(
			&r.IdentityKey,
			&r.Title,
			&r.Location,
			&r.SalaryText,
			&lo,
			&hi,
			&r.ApplicationURL,
			&r.Band,
			&r.PostingDate,
			&status,
			&r.ClosedAt,
			&r.FirstSeen,
			&r.LastSeen,
		); err != nil {
			return nil, &Error{Backend: "sqlite", Op: "read_all", Err: err}
		}
		r.SalaryMin = fromNull(lo)
		r.SalaryMax = fromNull(hi)
		if r.Status, err = domain.ParseStatus(status); err != nil {
			return nil, &Error{Backend: "sqlite", Op: "read_all", Err: fmt.Errorf("%w: %s: %v", ErrInvalidRecord, r.IdentityKey, err)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Backend: "sqlite", Op: "read_all", Err: err}
	}
	return out, nil
}

// ReplaceAll swaps the snapshot inside one transaction.
func (d *SQLite) ReplaceAll(ctx context.Context, records []domain.SnapshotRecord) error {
	if err := ValidateRecords(records); err != nil {
		return &Error{Backend: "sqlite", Op: "replace_all", Err: err}
	}
	if err := d.replaceAll(ctx, records); err != nil {
		return &Error{Backend: "sqlite", Op: "replace_all", Err: err}
	}
	return nil
}

func (d *SQLite) replaceAll(ctx context.Context, records []domain.SnapshotRecord) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot;`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO snapshot(job_id, ord, title, location, salary_text, salary_min, salary_max,
                     application_url, band, posting_date, status, closed_at, first_seen, last_seen)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.IdentityKey, i, r.Title, r.Location, r.SalaryText,
			toNull(r.SalaryMin), toNull(r.SalaryMax),
			r.ApplicationURL, r.Band, r.PostingDate, string(r.Status), r.ClosedAt,
			r.FirstSeen, r.LastSeen,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.IdentityKey, err)
		}
	}

	return tx.Commit()
}

func toNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
