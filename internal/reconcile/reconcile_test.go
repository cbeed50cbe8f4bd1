package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

var (
	day1 = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	day3 = day1.AddDate(0, 0, 2)
)

func listing(key, location string, lo, hi int) domain.Listing {
	return domain.Listing{
		IdentityKey: key,
		Title:       "Staff Nurse " + key,
		Location:    location,
		SalaryMin:   domain.IntPtr(lo),
		SalaryMax:   domain.IntPtr(hi),
	}
}

func byKey(t *testing.T, snap []domain.SnapshotRecord) map[string]domain.SnapshotRecord {
	t.Helper()
	out := make(map[string]domain.SnapshotRecord, len(snap))
	for _, r := range snap {
		_, dup := out[r.IdentityKey]
		require.False(t, dup, "duplicate identity key %q in snapshot", r.IdentityKey)
		out[r.IdentityKey] = r
	}
	return out
}

func TestReconcile_NewOnEmptySnapshot(t *testing.T) {
	res := Reconcile([]domain.Listing{listing("abc123", "London", 30000, 35000)}, nil, day1)

	require.Len(t, res.Snapshot, 1)
	rec := res.Snapshot[0]
	assert.Equal(t, "abc123", rec.IdentityKey)
	assert.Equal(t, domain.StatusNew, rec.Status)
	assert.Equal(t, "2025-10-01", rec.FirstSeen)
	assert.Equal(t, "2025-10-01", rec.LastSeen)
	assert.Empty(t, rec.ClosedAt)
	assert.Equal(t, domain.Counts{New: 1, Total: 1}, res.Counts)
}

func TestReconcile_Idempotent(t *testing.T) {
	batch := []domain.Listing{
		listing("a", "London", 30000, 35000),
		listing("b", "Leeds", 25000, 25000),
		{IdentityKey: "c", Title: "No salary", Location: "York"},
	}
	first := Reconcile(batch, nil, day1)
	second := Reconcile(batch, first.Snapshot, day2)

	assert.Equal(t, 0, second.Counts.New)
	assert.Equal(t, 0, second.Counts.Updated)
	assert.Equal(t, 0, second.Counts.Closed)
	assert.Equal(t, 3, second.Counts.Unchanged)
	for _, r := range second.Snapshot {
		assert.Equal(t, domain.StatusUnchanged, r.Status, r.IdentityKey)
		assert.Equal(t, "2025-10-01", r.FirstSeen)
		assert.Equal(t, "2025-10-02", r.LastSeen)
	}
}

func TestReconcile_ChangeDetection(t *testing.T) {
	prior := []domain.SnapshotRecord{{
		Listing: listing("j1", "London", 30000, 35000),
		Status:  domain.StatusUnchanged,
	}}

	res := Reconcile([]domain.Listing{listing("j1", "London", 30000, 36000)}, prior, day2)
	require.Len(t, res.Snapshot, 1)
	assert.Equal(t, domain.StatusUpdated, res.Snapshot[0].Status)
	assert.Equal(t, 1, res.Counts.Updated)

	res = Reconcile([]domain.Listing{listing("j1", "Croydon", 30000, 35000)}, prior, day2)
	assert.Equal(t, domain.StatusUpdated, res.Snapshot[0].Status)

	noSalary := domain.Listing{IdentityKey: "j1", Location: "London"}
	res = Reconcile([]domain.Listing{noSalary}, prior, day2)
	assert.Equal(t, domain.StatusUpdated, res.Snapshot[0].Status)
}

func TestReconcile_UnchangedRefreshesDescriptiveFields(t *testing.T) {
	prior := []domain.SnapshotRecord{{
		Listing:   listing("j1", "London", 30000, 35000),
		Status:    domain.StatusNew,
		FirstSeen: "2025-09-01",
	}}
	cur := listing("j1", "London", 30000, 35000)
	cur.Title = "Senior Staff Nurse"
	cur.PostingDate = "2 October 2025"

	res := Reconcile([]domain.Listing{cur}, prior, day2)

	rec := res.Snapshot[0]
	assert.Equal(t, domain.StatusUnchanged, rec.Status)
	assert.Equal(t, "Senior Staff Nurse", rec.Title)
	assert.Equal(t, "2 October 2025", rec.PostingDate)
	assert.Equal(t, "2025-09-01", rec.FirstSeen)
}

func TestReconcile_ClosedDetection(t *testing.T) {
	prior := []domain.SnapshotRecord{
		{Listing: listing("xyz", "London", 1, 2), Status: domain.StatusUnchanged, FirstSeen: "2025-09-01", LastSeen: "2025-10-01"},
	}

	res := Reconcile(nil, prior, day2)

	require.Len(t, res.Snapshot, 1)
	rec := res.Snapshot[0]
	assert.Equal(t, "xyz", rec.IdentityKey)
	assert.Equal(t, domain.StatusClosed, rec.Status)
	assert.Equal(t, "2025-10-02", rec.ClosedAt)
	assert.Equal(t, "2025-10-01", rec.LastSeen, "closure does not refresh last seen")
	assert.Equal(t, prior[0].Listing, rec.Listing)
	assert.Equal(t, domain.Counts{Closed: 1, Total: 1}, res.Counts)
}

func TestReconcile_ClosureIsMonotonic(t *testing.T) {
	first := Reconcile([]domain.Listing{listing("gone", "London", 1, 2)}, nil, day1)
	closed := Reconcile(nil, first.Snapshot, day2)
	again := Reconcile(nil, closed.Snapshot, day3)

	require.Len(t, again.Snapshot, 1)
	assert.Equal(t, domain.StatusClosed, again.Snapshot[0].Status)
	assert.Equal(t, "2025-10-02", again.Snapshot[0].ClosedAt)
	assert.Equal(t, 0, again.Counts.Closed, "carry-forward of an already closed record is not counted")
}

func TestReconcile_ReappearanceReopensAsUpdated(t *testing.T) {
	prior := []domain.SnapshotRecord{{
		Listing:   listing("back", "London", 30000, 35000),
		Status:    domain.StatusClosed,
		ClosedAt:  "2025-10-01",
		FirstSeen: "2025-09-01",
	}}

	res := Reconcile([]domain.Listing{listing("back", "London", 30000, 35000)}, prior, day3)

	rec := res.Snapshot[0]
	assert.Equal(t, domain.StatusUpdated, rec.Status)
	assert.Empty(t, rec.ClosedAt)
	assert.Equal(t, "2025-09-01", rec.FirstSeen)
	assert.Equal(t, 1, res.Counts.Updated)
}

func TestReconcile_NoSilentLoss(t *testing.T) {
	var prior []domain.SnapshotRecord
	for i := 0; i < 20; i++ {
		st := domain.StatusUnchanged
		if i%4 == 0 {
			st = domain.StatusClosed
		}
		prior = append(prior, domain.SnapshotRecord{
			Listing: listing(fmt.Sprintf("k%02d", i), "London", 20000+i, 30000),
			Status:  st,
		})
	}
	var batch []domain.Listing
	for i := 10; i < 30; i++ {
		batch = append(batch, listing(fmt.Sprintf("k%02d", i), "London", 20000+i, 30000))
	}

	res := Reconcile(batch, prior, day2)
	got := byKey(t, res.Snapshot)

	for _, p := range prior {
		_, ok := got[p.IdentityKey]
		assert.True(t, ok, "lost %s", p.IdentityKey)
	}
	assert.GreaterOrEqual(t, len(res.Snapshot), len(prior))
	assert.Equal(t, 30, res.Counts.Total)
	assert.Equal(t, 10, res.Counts.New)
	// k00,k04,k08 were already closed; k01..k09 minus those close now
	assert.Equal(t, 7, res.Counts.Closed)
	// k12,k16 reopen
	assert.Equal(t, 2, res.Counts.Updated)
	assert.Equal(t, 8, res.Counts.Unchanged)
}

func TestReconcile_InBatchDuplicatesLastWins(t *testing.T) {
	batch := []domain.Listing{
		listing("dup", "London", 1, 2),
		listing("other", "Leeds", 1, 2),
		listing("dup", "Croydon", 1, 2),
	}

	res := Reconcile(batch, nil, day1)

	require.Len(t, res.Snapshot, 2)
	got := byKey(t, res.Snapshot)
	assert.Equal(t, "Croydon", got["dup"].Location)
	assert.Equal(t, "dup", res.Snapshot[0].IdentityKey, "first appearance keeps its position")
	assert.Equal(t, 2, res.Counts.New)
}

func TestReconcile_DuplicatePriorRowsCollapse(t *testing.T) {
	prior := []domain.SnapshotRecord{
		{Listing: listing("p", "London", 1, 2), Status: domain.StatusNew},
		{Listing: listing("p", "Leeds", 1, 2), Status: domain.StatusNew},
	}

	res := Reconcile(nil, prior, day2)

	require.Len(t, res.Snapshot, 1)
	assert.Equal(t, "Leeds", res.Snapshot[0].Location)
}

func TestReconcile_SkipsEmptyIdentity(t *testing.T) {
	res := Reconcile([]domain.Listing{{Title: "orphan"}}, nil, day1)
	assert.Empty(t, res.Snapshot)
	assert.Equal(t, domain.Counts{}, res.Counts)
}
