package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/court-reservation/internal/apperror"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// HasConflict reports whether an active reservation on the same court and
// date intersects [start, end), ignoring excludeID when it is non-zero.
// The caller must hold the court-day lock for the answer to stay true
// until commit.
func HasConflict(ctx context.Context, tx repository.Tx, q model.OverlapQuery) (bool, error) {
	found, err := tx.FindOverlapping(ctx, q)
	if err != nil {
		return false, err
	}
	for i := range found {
		if q.Matches(&found[i]) {
			return true, nil
		}
	}
	return false, nil
}

// checkSlot locks the partitions in keys, then rejects q with a
// ConflictError naming the first clashing reservation.
func checkSlot(ctx context.Context, tx repository.Tx, q model.OverlapQuery, extra ...partition) error {
	keys := append([]partition{{q.CourtID, q.Date}}, extra...)
	if err := lockPartitions(ctx, tx, keys); err != nil {
		return err
	}
	found, err := tx.FindOverlapping(ctx, q)
	if err != nil {
		return err
	}
	for i := range found {
		if q.Matches(&found[i]) {
			f := found[i]
			return apperror.Conflict("start_time", fmt.Sprintf(
				"court %d is already reserved on %s from %s to %s",
				f.CourtID, f.Date, f.StartTime, f.EndTime))
		}
	}
	return nil
}

// partition identifies one (court, date) lock.
type partition struct {
	courtID uint64
	day     model.Date
}

// lockPartitions acquires the court-day locks in a fixed order so that two
// writers moving reservations between the same days cannot deadlock.
func lockPartitions(ctx context.Context, tx repository.Tx, keys []partition) error {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].courtID != keys[j].courtID {
			return keys[i].courtID < keys[j].courtID
		}
		return keys[i].day.Before(keys[j].day)
	})
	for i, k := range keys {
		if i > 0 && k.courtID == keys[i-1].courtID && k.day.Equal(keys[i-1].day) {
			continue
		}
		if err := tx.LockCourtDay(ctx, k.courtID, k.day); err != nil {
			return err
		}
	}
	return nil
}
