package db

import (
	"context"
	"fmt"
)

// DB provides typed operations on top of any record store backend
type DB struct {
	store Store
}

// NewDB creates a new database instance
func NewDB(store Store) *DB {
	return &DB{
		store: store,
	}
}

// Records returns the underlying record store
func (db *DB) Records() Store {
	return db.store
}

func getAll[T any](ctx context.Context, store Store, c Collection) ([]T, error) {
	records, err := store.ReadAll(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	rows, err := FromRecords[T](CleanRecords(records))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c, err)
	}
	return rows, nil
}

func insert(ctx context.Context, store Store, c Collection, row interface{}) (string, error) {
	id, err := store.Insert(ctx, c, ToRecord(row))
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", c, err)
	}
	return id, nil
}

func update(ctx context.Context, store Store, c Collection, id string, patch Record) error {
	if err := store.Update(ctx, c, id, patch); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", c, id, err)
	}
	return nil
}

func remove(ctx context.Context, store Store, c Collection, id string) error {
	if err := store.Delete(ctx, c, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c, id, err)
	}
	return nil
}

// GetWorkers retrieves all worker records
func (db *DB) GetWorkers(ctx context.Context) ([]Worker, error) {
	return getAll[Worker](ctx, db.store, Workers)
}

// InsertWorker inserts a worker record and sets its ID
func (db *DB) InsertWorker(ctx context.Context, worker *Worker) error {
	id, err := insert(ctx, db.store, Workers, worker)
	if err != nil {
		return err
	}
	worker.ID = id
	return nil
}

// UpdateWorker patches a worker record
func (db *DB) UpdateWorker(ctx context.Context, id string, patch Record) error {
	return update(ctx, db.store, Workers, id, patch)
}

// DeleteWorker removes a worker record
func (db *DB) DeleteWorker(ctx context.Context, id string) error {
	return remove(ctx, db.store, Workers, id)
}

// GetSites retrieves all site records
func (db *DB) GetSites(ctx context.Context) ([]Site, error) {
	return getAll[Site](ctx, db.store, Sites)
}

// InsertSite inserts a site record and sets its ID
func (db *DB) InsertSite(ctx context.Context, site *Site) error {
	id, err := insert(ctx, db.store, Sites, site)
	if err != nil {
		return err
	}
	site.ID = id
	return nil
}

// UpdateSite patches a site record
func (db *DB) UpdateSite(ctx context.Context, id string, patch Record) error {
	return update(ctx, db.store, Sites, id, patch)
}

// GetAssignments retrieves all assignment records
func (db *DB) GetAssignments(ctx context.Context) ([]Assignment, error) {
	return getAll[Assignment](ctx, db.store, Assignments)
}

// InsertAssignments inserts assignment records one store call at a time
func (db *DB) InsertAssignments(ctx context.Context, assignments []Assignment) error {
	for i := range assignments {
		id, err := insert(ctx, db.store, Assignments, assignments[i])
		if err != nil {
			return err
		}
		assignments[i].ID = id
	}
	return nil
}

// DeleteAssignment removes an assignment record
func (db *DB) DeleteAssignment(ctx context.Context, id string) error {
	return remove(ctx, db.store, Assignments, id)
}

// GetShifts retrieves all shift records
func (db *DB) GetShifts(ctx context.Context) ([]Shift, error) {
	return getAll[Shift](ctx, db.store, Shifts)
}

// InsertShift inserts a shift record and sets its ID
func (db *DB) InsertShift(ctx context.Context, shift *Shift) error {
	id, err := insert(ctx, db.store, Shifts, shift)
	if err != nil {
		return err
	}
	shift.ID = id
	return nil
}

// UpdateShift patches a shift record
func (db *DB) UpdateShift(ctx context.Context, id string, patch Record) error {
	return update(ctx, db.store, Shifts, id, patch)
}

// DeleteShift removes a shift record
func (db *DB) DeleteShift(ctx context.Context, id string) error {
	return remove(ctx, db.store, Shifts, id)
}

// GetMaterialRequests retrieves all material request records
func (db *DB) GetMaterialRequests(ctx context.Context) ([]MaterialRequest, error) {
	return getAll[MaterialRequest](ctx, db.store, MaterialRequests)
}

// InsertMaterialRequest inserts a material request record and sets its ID
func (db *DB) InsertMaterialRequest(ctx context.Context, req *MaterialRequest) error {
	id, err := insert(ctx, db.store, MaterialRequests, req)
	if err != nil {
		return err
	}
	req.ID = id
	return nil
}

// GetIssues retrieves all issue records
func (db *DB) GetIssues(ctx context.Context) ([]Issue, error) {
	return getAll[Issue](ctx, db.store, Issues)
}

// InsertIssue inserts an issue record and sets its ID
func (db *DB) InsertIssue(ctx context.Context, issue *Issue) error {
	id, err := insert(ctx, db.store, Issues, issue)
	if err != nil {
		return err
	}
	issue.ID = id
	return nil
}

// GetAnnouncements retrieves all announcement records
func (db *DB) GetAnnouncements(ctx context.Context) ([]Announcement, error) {
	return getAll[Announcement](ctx, db.store, Announcements)
}

// InsertAnnouncement inserts an announcement record and sets its ID
func (db *DB) InsertAnnouncement(ctx context.Context, a *Announcement) error {
	id, err := insert(ctx, db.store, Announcements, a)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// DeleteAnnouncement removes an announcement record
func (db *DB) DeleteAnnouncement(ctx context.Context, id string) error {
	return remove(ctx, db.store, Announcements, id)
}
