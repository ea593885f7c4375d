// Package workflow implements the one-way two-state status machine shared by
// material requests (PENDING to ARCHIVED) and issues (OPEN to RESOLVED), along
// with the unseen-flag bookkeeping admins see as badge counts.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

const (
	statusColumn = "status"
	unseenColumn = "unseen"
)

// Definition describes one two-state workflow over a collection
type Definition struct {
	Collection db.Collection
	Initial    string
	Terminal   string

	// Annotate returns extra columns written together with the terminal
	// transition. It receives the record as it was before the transition.
	Annotate func(rec db.Record, at time.Time) db.Record
}

// Transition moves the record to target. Only Initial to Terminal is allowed.
func (d Definition) Transition(ctx context.Context, store db.Store, id, target string, at time.Time) (db.Record, error) {
	rec, err := db.Find(ctx, store, d.Collection, id)
	if err != nil {
		return nil, err
	}

	current := db.FormatValue(rec[statusColumn])
	if target != d.Terminal || current != d.Initial {
		return nil, fmt.Errorf("%s %s: %s -> %s: %w", d.Collection, id, current, target, errs.ErrInvalidTransition)
	}

	patch := db.Record{statusColumn: target}
	if d.Annotate != nil {
		for k, v := range d.Annotate(rec, at) {
			patch[k] = v
		}
	}

	if err := store.Update(ctx, d.Collection, id, patch); err != nil {
		return nil, fmt.Errorf("failed to transition %s %s: %w", d.Collection, id, err)
	}

	for k, v := range patch {
		rec[k] = v
	}
	return rec, nil
}

// ArchiveDelete removes a record that has reached the terminal state
func (d Definition) ArchiveDelete(ctx context.Context, store db.Store, id string) error {
	rec, err := db.Find(ctx, store, d.Collection, id)
	if err != nil {
		return err
	}

	if current := db.FormatValue(rec[statusColumn]); current != d.Terminal {
		return fmt.Errorf("%s %s is %s: %w", d.Collection, id, current, errs.ErrNotArchivable)
	}

	if err := store.Delete(ctx, d.Collection, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", d.Collection, id, err)
	}
	return nil
}

// MarkSeen clears the unseen flag on every record of the collection.
// Concurrent callers may both observe the same records as unseen.
func (d Definition) MarkSeen(ctx context.Context, store db.Store) (int, error) {
	return MarkSeen(ctx, store, d.Collection)
}

// UnseenCount counts unseen records still in the initial state
func (d Definition) UnseenCount(ctx context.Context, store db.Store) (int, error) {
	return CountUnseen(ctx, store, d.Collection, db.Record{statusColumn: d.Initial})
}

// MarkSeen clears the unseen flag on every record of a collection and returns
// how many records it touched
func MarkSeen(ctx context.Context, store db.Store, c db.Collection) (int, error) {
	match := db.Record{unseenColumn: true}
	patch := db.Record{unseenColumn: false}

	if bulk, ok := store.(db.BulkUpdater); ok {
		n, err := bulk.UpdateWhere(ctx, c, match, patch)
		if err != nil {
			return 0, fmt.Errorf("failed to mark %s seen: %w", c, err)
		}
		return n, nil
	}

	records, err := store.ReadAll(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", c, err)
	}

	n := 0
	for _, rec := range db.CleanRecords(records) {
		if !db.Matches(rec, match) {
			continue
		}
		if err := store.Update(ctx, c, db.FormatValue(rec["id"]), patch); err != nil {
			return n, fmt.Errorf("failed to mark %s seen: %w", c, err)
		}
		n++
	}
	return n, nil
}

// CountUnseen counts unseen records that also match filter
func CountUnseen(ctx context.Context, store db.Store, c db.Collection, filter db.Record) (int, error) {
	records, err := store.ReadAll(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", c, err)
	}

	n := 0
	for _, rec := range db.CleanRecords(records) {
		if db.Matches(rec, db.Record{unseenColumn: true}) && db.Matches(rec, filter) {
			n++
		}
	}
	return n, nil
}
