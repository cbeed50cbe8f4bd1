// Package store persists the snapshot between cycles.
//
// Every backend replaces the whole snapshot as a unit: either all rows of the next
// snapshot are visible after ReplaceAll returns nil, or the previous snapshot is.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

type Store interface {
	Name() string
	ReadAll(ctx context.Context) ([]domain.SnapshotRecord, error)
	ReplaceAll(ctx context.Context, records []domain.SnapshotRecord) error
	Close() error
}

// Columns is the fixed row layout shared by all backends, header order included.
var Columns = []string{
	"job_id", "title", "location", "salary_text", "salary_min", "salary_max",
	"application_url", "band", "posting_date", "status", "closed_at",
	"first_seen", "last_seen",
}

// Error is a read or write failure against the snapshot store. It is fatal to a cycle.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrInvalidRecord = errors.New("invalid snapshot record")

// ValidateRecords enforces the snapshot invariants before a write or after a read.
func ValidateRecords(records []domain.SnapshotRecord) error {
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.IdentityKey) == "" {
			return fmt.Errorf("%w: row %d has no job_id", ErrInvalidRecord, i)
		}
		if _, err := domain.ParseStatus(string(r.Status)); err != nil {
			return fmt.Errorf("%w: row %d (%s): %v", ErrInvalidRecord, i, r.IdentityKey, err)
		}
		if seen[r.IdentityKey] {
			return fmt.Errorf("%w: duplicate job_id %q", ErrInvalidRecord, r.IdentityKey)
		}
		seen[r.IdentityKey] = true
	}
	return nil
}

type Options struct {
	Backend  string // sqlite | csv | postgres | memory
	Path     string // sqlite / csv file
	DSN      string // postgres
	Password string // postgres, overrides the DSN password when set
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "sqlite":
		return OpenSQLite(opts.Path)
	case "csv":
		return OpenCSV(opts.Path)
	case "postgres":
		return OpenPostgres(ctx, opts.DSN, opts.Password)
	case "memory":
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

type Query struct {
	Status string
	Q      string // case-insensitive match over title, location, band
}

func Filter(records []domain.SnapshotRecord, q Query) []domain.SnapshotRecord {
	status := strings.ToLower(strings.TrimSpace(q.Status))
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	out := make([]domain.SnapshotRecord, 0, len(records))
	for _, r := range records {
		if status != "" && strings.ToLower(string(r.Status)) != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Location), needle) &&
			!strings.Contains(strings.ToLower(r.Band), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// recordToRow renders a record in Columns order.
func recordToRow(r domain.SnapshotRecord) []string {
	return []string{
		r.IdentityKey, r.Title, r.Location, r.SalaryText,
		domain.FormatInt(r.SalaryMin), domain.FormatInt(r.SalaryMax),
		r.ApplicationURL, r.Band, r.PostingDate, string(r.Status), r.ClosedAt,
		r.FirstSeen, r.LastSeen,
	}
}

// rowToRecord parses a loosely typed row keyed by column name.
func rowToRecord(row map[string]string) (domain.SnapshotRecord, error) {
	var r domain.SnapshotRecord
	var err error

	r.IdentityKey = strings.TrimSpace(row["job_id"])
	r.Title = row["title"]
	r.Location = row["location"]
	r.SalaryText = row["salary_text"]
	if r.SalaryMin, err = domain.ParseOptionalInt(row["salary_min"]); err != nil {
		return r, fmt.Errorf("%w: %s salary_min: %v", ErrInvalidRecord, r.IdentityKey, err)
	}
	if r.SalaryMax, err = domain.ParseOptionalInt(row["salary_max"]); err != nil {
		return r, fmt.Errorf("%w: %s salary_max: %v", ErrInvalidRecord, r.IdentityKey, err)
	}
	r.ApplicationURL = row["application_url"]
	r.Band = row["band"]
	r.PostingDate = row["posting_date"]
	if r.Status, err = domain.ParseStatus(row["status"]); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, r.IdentityKey, err)
	}
	r.ClosedAt = row["closed_at"]
	r.FirstSeen = row["first_seen"]
	r.LastSeen = row["last_seen"]
	return r, nil
}
