package sheetssql

import (
	"context"
	"fmt"
	"sync"
)

// SheetsClient defines the interface for sheets operations
type SheetsClient interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error
	UpdateValues(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error
	CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error)
	ListSheets(ctx context.Context, spreadsheetID string) (map[string]int64, error)
	DeleteRows(ctx context.Context, spreadsheetID string, sheetID, start, end int64) error
}

// Column defines a column with name and type
type Column struct {
	Name string
	Type string // e.g., "text", "datetime", "float", "bool", "id"
}

// TableSchema defines the structure of a table
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema defines the database schema
type Schema struct {
	Tables []TableSchema
}

// Table returns the schema of the named table
func (s *Schema) Table(name string) (TableSchema, bool) {
	for _, table := range s.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return TableSchema{}, false
}

// DB represents a connection to a Google Sheets "database".
// Every table is a tab whose first row holds the headers, second row the
// column types and the remaining rows the data.
type DB struct {
	client        SheetsClient
	spreadsheetID string
	schema        *Schema

	// mu serializes writes issued by this process
	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewDB creates a new Sheets SQL database connection and ensures schema exists
func NewDB(ctx context.Context, client SheetsClient, spreadsheetID string, schema *Schema) (*DB, error) {
	db := &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
		schema:        schema,
		sheetIDs:      make(map[string]int64),
	}

	if err := db.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// Client returns the underlying sheets client
func (db *DB) Client() SheetsClient {
	return db.client
}

// SpreadsheetID returns the database spreadsheet ID
func (db *DB) SpreadsheetID() string {
	return db.spreadsheetID
}
