package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/chemifol/fieldops/pkg/core/errs"
)

// Collection names a group of records in the store
type Collection string

const (
	Workers          Collection = "workers"
	Sites            Collection = "sites"
	Assignments      Collection = "assignments"
	Shifts           Collection = "shifts"
	MaterialRequests Collection = "material_requests"
	Issues           Collection = "issues"
	Announcements    Collection = "announcements"
)

// Record is a loosely typed row keyed by column name
type Record map[string]any

// Store is the generic record store every backend implements.
// Update and Delete return errs.ErrUnknownEntity for ids that do not exist.
type Store interface {
	ReadAll(ctx context.Context, c Collection) ([]Record, error)
	Insert(ctx context.Context, c Collection, rec Record) (string, error)
	Update(ctx context.Context, c Collection, id string, patch Record) error
	Delete(ctx context.Context, c Collection, id string) error
}

// BulkUpdater is implemented by stores that can patch every record matching
// a set of column values in a single call.
type BulkUpdater interface {
	UpdateWhere(ctx context.Context, c Collection, match Record, patch Record) (int, error)
}

// Find returns the record with the given id
func Find(ctx context.Context, store Store, c Collection, id string) (Record, error) {
	records, err := store.ReadAll(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, rec := range CleanRecords(records) {
		if fmt.Sprint(rec["id"]) == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
}

// Matches reports whether rec carries every column value in match
func Matches(rec, match Record) bool {
	for k, want := range match {
		if !equalValue(rec[k], want) {
			return false
		}
	}
	return true
}

// CleanRecords normalizes column names and drops rows with no values
func CleanRecords(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		clean := NormalizeRecord(rec)
		if isEmpty(clean) {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// NormalizeRecord trims and lowercases column names
func NormalizeRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func isEmpty(rec Record) bool {
	for _, v := range rec {
		if FormatValue(v) != "" {
			return false
		}
	}
	return true
}

// Unavailable wraps a backend transport failure
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, errs.ErrStoreUnavailable, err)
}
