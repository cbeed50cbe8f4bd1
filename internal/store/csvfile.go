package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

// CSVFile keeps the snapshot as a header row plus one row per record.
// Writes go to a temp file that is renamed over the live file, so a crash mid-write
// leaves the previous snapshot intact. The prior file is kept as <path>.bak.
type CSVFile struct {
	path string
	lock *flock.Flock
}

func OpenCSV(path string) (*CSVFile, error) {
	if path == "" {
		path = "snapshot.csv"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Backend: "csv", Op: "open", Err: err}
	}
	return &CSVFile{path: path, lock: flock.New(path + ".lock")}, nil
}

func (c *CSVFile) Name() string { return "csv" }

func (c *CSVFile) Close() error { return c.lock.Close() }

func (c *CSVFile) ReadAll(ctx context.Context) ([]domain.SnapshotRecord, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Backend: "csv", Op: "read_all", Err: err}
	}
	defer f.Close()

	recs, err := decodeCSV(f)
	if err != nil {
		return nil, &Error{Backend: "csv", Op: "read_all", Err: err}
	}
	return recs, nil
}

func decodeCSV(r io.Reader) ([]domain.SnapshotRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["job_id"]; !ok {
		return nil, fmt.Errorf("%w: header has no job_id column", ErrInvalidRecord)
	}

	var out []domain.SnapshotRecord
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(Columns))
		for _, col := range Columns {
			if i, ok := idx[col]; ok && i < len(fields) {
				row[col] = fields[i]
			}
		}
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := ValidateRecords(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CSVFile) ReplaceAll(ctx context.Context, records []domain.SnapshotRecord) error {
	if err := ValidateRecords(records); err != nil {
		return &Error{Backend: "csv", Op: "replace_all", Err: err}
	}

	locked, err := c.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return &Error{Backend: "csv", Op: "replace_all", Err: fmt.Errorf("lock: %w", err)}
	}
	if !locked {
		return &Error{Backend: "csv", Op: "replace_all", Err: errors.New("lock not acquired")}
	}
	defer func() { _ = c.lock.Unlock() }()

	if err := c.writeSwap(records); err != nil {
		return &Error{Backend: "csv", Op: "replace_all", Err: err}
	}
	return nil
}

func (c *CSVFile) writeSwap(records []domain.SnapshotRecord) error {
	tmp := c.path + ".tmp"
	bak := c.path + ".bak"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := encodeCSV(f, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	_ = os.Remove(bak)
	_ = os.Link(c.path, bak)

	return os.Rename(tmp, c.path)
}

func encodeCSV(w io.Writer, records []domain.SnapshotRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(recordToRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
