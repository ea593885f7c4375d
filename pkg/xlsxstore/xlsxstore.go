// Package xlsxstore keeps collections in a local .xlsx workbook, one sheet per
// collection laid out like the Google Sheets backend: headers, types, data.
package xlsxstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
	"github.com/chemifol/fieldops/pkg/sheetssql"
)

const (
	defaultSheet = "Sheet1"
	firstDataRow = 3
)

// Store is a db.Store over a workbook file. The workbook is saved after every write.
type Store struct {
	mu     sync.Mutex
	path   string
	file   *excelize.File
	schema *sheetssql.Schema
}

// Open opens the workbook at path, creating it when missing, and makes sure
// every table of schema has a sheet with the expected header row
func Open(path string, schema *sheetssql.Schema) (*Store, error) {
	var f *excelize.File
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		created = true
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
	}

	s := &Store{path: path, file: f, schema: schema}
	if err := s.ensureSheets(created); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the workbook
func (s *Store) Close() error {
	return s.file.Close()
}

func (s *Store) ensureSheets(created bool) error {
	headerStyle, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	changed := created
	for _, table := range s.schema.Tables {
		idx, err := s.file.GetSheetIndex(table.Name)
		if err != nil {
			return fmt.Errorf("failed to look up sheet %s: %w", table.Name, err)
		}
		if idx >= 0 {
			if err := s.verifySheet(table); err != nil {
				return fmt.Errorf("sheet %s schema mismatch: %w", table.Name, err)
			}
			continue
		}

		if _, err := s.file.NewSheet(table.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", table.Name, err)
		}
		headers := make([]interface{}, len(table.Columns))
		types := make([]interface{}, len(table.Columns))
		for i, col := range table.Columns {
			headers[i] = col.Name
			types[i] = col.Type
		}
		if err := s.file.SetSheetRow(table.Name, "A1", &headers); err != nil {
			return fmt.Errorf("failed to write headers of %s: %w", table.Name, err)
		}
		if err := s.file.SetSheetRow(table.Name, "A2", &types); err != nil {
			return fmt.Errorf("failed to write types of %s: %w", table.Name, err)
		}
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return err
		}
		if err := s.file.SetCellStyle(table.Name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style headers of %s: %w", table.Name, err)
		}
		changed = true
	}

	if created {
		if _, ok := s.schema.Table(defaultSheet); !ok {
			if err := s.file.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("failed to drop default sheet: %w", err)
			}
		}
	}

	if changed {
		return s.save("create schema")
	}
	return nil
}

func (s *Store) verifySheet(table sheetssql.TableSchema) error {
	rows, err := s.file.GetRows(table.Name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("missing header row")
	}
	headers := rows[0]
	if len(headers) != len(table.Columns) {
		return fmt.Errorf("expected %d columns, found %d", len(table.Columns), len(headers))
	}
	for i, col := range table.Columns {
		if strings.ToLower(strings.TrimSpace(headers[i])) != col.Name {
			return fmt.Errorf("column %d: expected header '%s', got '%s'", i, col.Name, headers[i])
		}
	}
	return nil
}

func (s *Store) save(op string) error {
	if err := s.file.SaveAs(s.path); err != nil {
		return db.Unavailable(op, err)
	}
	return nil
}

// commit applies change and saves the workbook. When either fails the
// workbook goes back to how it was before the call.
func (s *Store) commit(op string, change func() error) error {
	snapshot, err := s.file.WriteToBuffer()
	if err != nil {
		return db.Unavailable(op, err)
	}

	err = change()
	if err == nil {
		err = s.save(op)
	}
	if err == nil {
		return nil
	}

	restored, rerr := excelize.OpenReader(bytes.NewReader(snapshot.Bytes()))
	if rerr != nil {
		return fmt.Errorf("%w (workbook restore failed: %v)", err, rerr)
	}
	s.file.Close()
	s.file = restored
	return err
}

func (s *Store) table(c db.Collection) (sheetssql.TableSchema, error) {
	table, ok := s.schema.Table(string(c))
	if !ok {
		return sheetssql.TableSchema{}, fmt.Errorf("table %s is not in the schema", c)
	}
	return table, nil
}

// dataRows returns the rows below the header and type rows
func (s *Store) dataRows(table sheetssql.TableSchema) ([][]string, error) {
	rows, err := s.file.GetRows(table.Name)
	if err != nil {
		return nil, db.Unavailable("read "+table.Name, err)
	}
	if len(rows) < firstDataRow-1 {
		return nil, nil
	}
	return rows[firstDataRow-1:], nil
}

func rowToRecord(table sheetssql.TableSchema, row []string) db.Record {
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

func recordToRow(table sheetssql.TableSchema, rec db.Record) []interface{} {
	row := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		row[i] = db.FormatValue(rec[col.Name])
	}
	return row
}

func (s *Store) writeRow(table sheetssql.TableSchema, index int, rec db.Record) error {
	cell, err := excelize.CoordinatesToCellName(1, firstDataRow+index)
	if err != nil {
		return err
	}
	row := recordToRow(table, rec)
	return s.file.SetSheetRow(table.Name, cell, &row)
}

func findRow(table sheetssql.TableSchema, rows [][]string, id string) int {
	for i, row := range rows {
		if db.FormatValue(rowToRecord(table, row)["id"]) == id {
			return i
		}
	}
	return -1
}

func (s *Store) ReadAll(ctx context.Context, c db.Collection) ([]db.Record, error) {
	table, err := s.table(c)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(table)
	if err != nil {
		return nil, err
	}
	records := make([]db.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(table, row))
	}
	return records, nil
}

func (s *Store) Insert(ctx context.Context, c db.Collection, rec db.Record) (string, error) {
	table, err := s.table(c)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(table)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	stored := make(db.Record, len(rec)+1)
	for k, v := range rec {
		stored[k] = v
	}
	stored["id"] = id

	err = s.commit("insert into "+table.Name, func() error {
		if err := s.writeRow(table, len(rows), stored); err != nil {
			return fmt.Errorf("failed to write %s row: %w", c, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, c db.Collection, id string, patch db.Record) error {
	table, err := s.table(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(table)
	if err != nil {
		return err
	}
	i := findRow(table, rows, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}

	rec := rowToRecord(table, rows[i])
	applyPatch(rec, patch)
	return s.commit("update "+table.Name, func() error {
		if err := s.writeRow(table, i, rec); err != nil {
			return fmt.Errorf("failed to write %s row: %w", c, err)
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, c db.Collection, id string) error {
	table, err := s.table(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(table)
	if err != nil {
		return err
	}
	i := findRow(table, rows, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}

	return s.commit("delete from "+table.Name, func() error {
		if err := s.file.RemoveRow(table.Name, firstDataRow+i); err != nil {
			return fmt.Errorf("failed to remove %s row: %w", c, err)
		}
		return nil
	})
}

// UpdateWhere patches every matching row and saves the workbook once
func (s *Store) UpdateWhere(ctx context.Context, c db.Collection, match db.Record, patch db.Record) (int, error) {
	table, err := s.table(c)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows(table)
	if err != nil {
		return 0, err
	}

	updates := make(map[int]db.Record)
	for i, row := range rows {
		rec := rowToRecord(table, row)
		if db.Matches(rec, match) {
			applyPatch(rec, patch)
			updates[i] = rec
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}

	err = s.commit("update "+table.Name, func() error {
		for i, rec := range updates {
			if err := s.writeRow(table, i, rec); err != nil {
				return fmt.Errorf("failed to write %s row: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(updates), nil
}

func applyPatch(rec, patch db.Record) {
	for k, v := range patch {
		if k != "id" {
			rec[k] = v
		}
	}
}
