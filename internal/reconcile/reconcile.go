// Package reconcile merges a freshly scraped batch into the prior snapshot.
//
// The engine is a pure function: it performs no I/O and holds no state between
// cycles. Every identity key present in the prior snapshot is present in the
// result, so the snapshot never shrinks.
package reconcile

import (
	"time"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

const DateLayout = "2006-01-02"

type Result struct {
	Snapshot []domain.SnapshotRecord
	Counts   domain.Counts
}

// Reconcile classifies every record as new, updated, unchanged or closed.
//
// Duplicate identity keys in current collapse to the last occurrence. Records with an
// empty identity key are ignored. A closed record whose key reappears is reopened
// with status updated.
func Reconcile(current []domain.Listing, prior []domain.SnapshotRecord, now time.Time) Result {
	today := now.Format(DateLayout)

	priorByKey := make(map[string]domain.SnapshotRecord, len(prior))
	var priorOrder []string
	for _, rec := range prior {
		if rec.IdentityKey == "" {
			continue
		}
		if _, dup := priorByKey[rec.IdentityKey]; !dup {
			priorOrder = append(priorOrder, rec.IdentityKey)
		}
		priorByKey[rec.IdentityKey] = rec
	}

	currentByKey := make(map[string]domain.Listing, len(current))
	var currentOrder []string
	for _, l := range current {
		if l.IdentityKey == "" {
			continue
		}
		if _, dup := currentByKey[l.IdentityKey]; !dup {
			currentOrder = append(currentOrder, l.IdentityKey)
		}
		currentByKey[l.IdentityKey] = l
	}

	var res Result
	res.Snapshot = make([]domain.SnapshotRecord, 0, len(currentOrder)+len(priorOrder))

	for _, key := range currentOrder {
		l := currentByKey[key]
		rec := domain.SnapshotRecord{Listing: l, FirstSeen: today, LastSeen: today}

		old, seen := priorByKey[key]
		switch {
		case !seen:
			rec.Status = domain.StatusNew
			res.Counts.New++
		case old.Status == domain.StatusClosed:
			rec.Status = domain.StatusUpdated
			res.Counts.Updated++
		case changed(l, old.Listing):
			rec.Status = domain.StatusUpdated
			res.Counts.Updated++
		default:
			rec.Status = domain.StatusUnchanged
			res.Counts.Unchanged++
		}
		if seen && old.FirstSeen != "" {
			rec.FirstSeen = old.FirstSeen
		}
		res.Snapshot = append(res.Snapshot, rec)
	}

	for _, key := range priorOrder {
		if _, live := currentByKey[key]; live {
			continue
		}
		rec := priorByKey[key]
		if rec.Status != domain.StatusClosed {
			rec.Status = domain.StatusClosed
			rec.ClosedAt = today
			res.Counts.Closed++
		}
		res.Snapshot = append(res.Snapshot, rec)
	}

	res.Counts.Total = len(res.Snapshot)
	return res
}

// changed compares the change-detection fields: salary bounds and location.
func changed(cur, old domain.Listing) bool {
	return domain.FormatInt(cur.SalaryMin) != domain.FormatInt(old.SalaryMin) ||
		domain.FormatInt(cur.SalaryMax) != domain.FormatInt(old.SalaryMax) ||
		cur.Location != old.Location
}
