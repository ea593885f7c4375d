package db

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/chemifol/fieldops/pkg/core/errs"
)

// MemoryStore keeps records in process. Ids auto-increment per collection.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Collection][]Record
	nextID  map[Collection]int64
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Collection][]Record),
		nextID:  make(map[Collection]int64),
	}
}

func (m *MemoryStore) ReadAll(ctx context.Context, c Collection) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.records[c]))
	for _, rec := range m.records[c] {
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (m *MemoryStore) Insert(ctx context.Context, c Collection, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID[c]++
	id := strconv.FormatInt(m.nextID[c], 10)

	stored := copyRecord(rec)
	stored["id"] = id
	m.records[c] = append(m.records[c], stored)
	return id, nil
}

func (m *MemoryStore) Update(ctx context.Context, c Collection, id string, patch Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records[c] {
		if rec["id"] == id {
			for k, v := range patch {
				if k == "id" {
					continue
				}
				rec[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
}

func (m *MemoryStore) Delete(ctx context.Context, c Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.records[c] {
		if rec["id"] == id {
			m.records[c] = append(m.records[c][:i], m.records[c][i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
}

// UpdateWhere patches every record matching all columns in match
func (m *MemoryStore) UpdateWhere(ctx context.Context, c Collection, match Record, patch Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rec := range m.records[c] {
		if !Matches(rec, match) {
			continue
		}
		for k, v := range patch {
			if k != "id" {
				rec[k] = v
			}
		}
		n++
	}
	return n, nil
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
