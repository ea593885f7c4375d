package db

import "context"

// WorkerStore defines the interface for worker database operations
type WorkerStore interface {
	GetWorkers(ctx context.Context) ([]Worker, error)
	InsertWorker(ctx context.Context, worker *Worker) error
	UpdateWorker(ctx context.Context, id string, patch Record) error
	DeleteWorker(ctx context.Context, id string) error
}

// SiteStore defines the interface for site database operations
type SiteStore interface {
	GetSites(ctx context.Context) ([]Site, error)
	InsertSite(ctx context.Context, site *Site) error
	UpdateSite(ctx context.Context, id string, patch Record) error
}

// AssignmentStore defines the interface for assignment database operations
type AssignmentStore interface {
	GetAssignments(ctx context.Context) ([]Assignment, error)
	InsertAssignments(ctx context.Context, assignments []Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// ShiftStore defines the interface for shift database operations
type ShiftStore interface {
	GetShifts(ctx context.Context) ([]Shift, error)
	InsertShift(ctx context.Context, shift *Shift) error
	UpdateShift(ctx context.Context, id string, patch Record) error
	DeleteShift(ctx context.Context, id string) error
}

// MaterialRequestStore defines the interface for material request database operations
type MaterialRequestStore interface {
	GetMaterialRequests(ctx context.Context) ([]MaterialRequest, error)
	InsertMaterialRequest(ctx context.Context, req *MaterialRequest) error
}

// IssueStore defines the interface for issue database operations
type IssueStore interface {
	GetIssues(ctx context.Context) ([]Issue, error)
	InsertIssue(ctx context.Context, issue *Issue) error
}

// AnnouncementStore defines the interface for announcement database operations
type AnnouncementStore interface {
	GetAnnouncements(ctx context.Context) ([]Announcement, error)
	InsertAnnouncement(ctx context.Context, a *Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error
}

// RecordSource exposes the untyped store for the workflow engine
type RecordSource interface {
	Records() Store
}

// DirectoryStore is what the assignment directory reads and writes
type DirectoryStore interface {
	AssignmentStore
	SiteStore
}

// LedgerStore is what the attendance ledger reads and writes
type LedgerStore interface {
	AssignmentStore
	ShiftStore
	RecordSource
}

// RequestStore is what material request operations read and write
type RequestStore interface {
	AssignmentStore
	MaterialRequestStore
	RecordSource
}

// IssueWorkflowStore is what issue operations read and write
type IssueWorkflowStore interface {
	ShiftStore
	IssueStore
	RecordSource
}

// RosterStore is what worker and site administration reads and writes
type RosterStore interface {
	WorkerStore
	SiteStore
	AssignmentStore
}

// Database defines the interface for all database operations.
// db.DB implements it over every backend.
type Database interface {
	WorkerStore
	SiteStore
	AssignmentStore
	ShiftStore
	MaterialRequestStore
	IssueStore
	AnnouncementStore
	RecordSource
}
