package store

import (
	"context"
	"sync"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

// Memory is an in-process store for dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	records []domain.SnapshotRecord
}

func NewMemory(seed []domain.SnapshotRecord) *Memory {
	return &Memory{records: append([]domain.SnapshotRecord(nil), seed...)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Close() error { return nil }

func (m *Memory) ReadAll(ctx context.Context) ([]domain.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SnapshotRecord(nil), m.records...), nil
}

func (m *Memory) ReplaceAll(ctx context.Context, records []domain.SnapshotRecord) error {
	if err := ValidateRecords(records); err != nil {
		return &Error{Backend: "memory", Op: "replace_all", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]domain.SnapshotRecord(nil), records...)
	return nil
}
