package sheetssql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

// firstDataRow is the 1-based sheet row of the first record, after headers and types
const firstDataRow = 3

func (s *DB) table(c db.Collection) (TableSchema, error) {
	table, ok := s.schema.Table(string(c))
	if !ok {
		return TableSchema{}, fmt.Errorf("table %s is not in the schema", c)
	}
	return table, nil
}

// dataRows reads every row below the header and type rows
func (s *DB) dataRows(ctx context.Context, table TableSchema) ([][]interface{}, error) {
	values, err := s.client.GetValues(ctx, s.spreadsheetID, fmt.Sprintf("%s!A1:ZZ", table.Name))
	if err != nil {
		return nil, db.Unavailable("read "+table.Name, err)
	}
	if len(values) < firstDataRow-1 {
		return nil, nil
	}
	return values[firstDataRow-1:], nil
}

func rowToRecord(table TableSchema, row []interface{}) db.Record {
	rec := make(db.Record, len(table.Columns))
	for i, col := range table.Columns {
		if i < len(row) {
			rec[col.Name] = row[i]
		} else {
			rec[col.Name] = ""
		}
	}
	return rec
}

func recordToRow(table TableSchema, rec db.Record) []interface{} {
	row := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		row[i] = db.FormatValue(rec[col.Name])
	}
	return row
}

// findRow returns the index in rows of the record with the given id, or -1
func findRow(table TableSchema, rows [][]interface{}, id string) int {
	for i, row := range rows {
		if db.FormatValue(rowToRecord(table, row)["id"]) == id {
			return i
		}
	}
	return -1
}

// ReadAll returns every data row of the collection's tab
func (s *DB) ReadAll(ctx context.Context, c db.Collection) ([]db.Record, error) {
	table, err := s.table(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.dataRows(ctx, table)
	if err != nil {
		return nil, err
	}

	records := make([]db.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(table, row))
	}
	return records, nil
}

// Insert appends the record under a fresh uuid
func (s *DB) Insert(ctx context.Context, c db.Collection, rec db.Record) (string, error) {
	table, err := s.table(c)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	stored := make(db.Record, len(rec)+1)
	for k, v := range rec {
		stored[k] = v
	}
	stored["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.client.AppendRows(ctx, s.spreadsheetID, table.Name, [][]interface{}{recordToRow(table, stored)}); err != nil {
		return "", db.Unavailable("insert into "+table.Name, err)
	}
	return id, nil
}

// Update rewrites the row holding id with the patch applied
func (s *DB) Update(ctx context.Context, c db.Collection, id string, patch db.Record) error {
	table, err := s.table(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(ctx, table)
	if err != nil {
		return err
	}
	i := findRow(table, rows, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}

	rec := rowToRecord(table, rows[i])
	applyPatch(rec, patch)

	sheetRange := fmt.Sprintf("%s!A%d", table.Name, firstDataRow+i)
	if err := s.client.UpdateValues(ctx, s.spreadsheetID, sheetRange, [][]interface{}{recordToRow(table, rec)}); err != nil {
		return db.Unavailable("update "+table.Name, err)
	}
	return nil
}

// Delete removes the row holding id, shifting the rows below it up
func (s *DB) Delete(ctx context.Context, c db.Collection, id string) error {
	table, err := s.table(c)
	if err != nil {
		return err
	}
	sheetID, ok := s.sheetIDs[table.Name]
	if !ok {
		return fmt.Errorf("no sheet id for table %s", table.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(ctx, table)
	if err != nil {
		return err
	}
	i := findRow(table, rows, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}

	start := int64(firstDataRow - 1 + i)
	if err := s.client.DeleteRows(ctx, s.spreadsheetID, sheetID, start, start+1); err != nil {
		return db.Unavailable("delete from "+table.Name, err)
	}
	return nil
}

// UpdateWhere patches every matching row and writes the data block back in one call
func (s *DB) UpdateWhere(ctx context.Context, c db.Collection, match db.Record, patch db.Record) (int, error) {
	table, err := s.table(c)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(ctx, table)
	if err != nil {
		return 0, err
	}

	n := 0
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		rec := rowToRecord(table, row)
		if db.Matches(db.NormalizeRecord(rec), match) {
			applyPatch(rec, patch)
			n++
		}
		out[i] = recordToRow(table, rec)
	}
	if n == 0 {
		return 0, nil
	}

	sheetRange := fmt.Sprintf("%s!A%d", table.Name, firstDataRow)
	if err := s.client.UpdateValues(ctx, s.spreadsheetID, sheetRange, out); err != nil {
		return 0, db.Unavailable("update "+table.Name, err)
	}
	return n, nil
}

func applyPatch(rec, patch db.Record) {
	for k, v := range patch {
		if k != "id" {
			rec[k] = v
		}
	}
}
