package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

// columns lists every non-id column per table, in migration order
var columns = map[db.Collection][]string{
	db.Workers:          {"username", "password_hash", "role", "display_name", "must_change_password"},
	db.Sites:            {"name", "active"},
	db.Assignments:      {"username", "site_name"},
	db.Shifts:           {"username", "site_name", "start_time", "end_time", "start_lat", "start_lon", "end_lat", "end_lon", "unseen"},
	db.MaterialRequests: {"username", "site_name", "item_list", "request_date", "status", "unseen"},
	db.Issues:           {"username", "description", "site_name", "reported_at", "status", "image_ref", "unseen"},
	db.Announcements:    {"title", "message", "recipients", "published_at", "expires_at"},
}

func tableColumns(c db.Collection) ([]string, error) {
	cols, ok := columns[c]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", c)
	}
	return cols, nil
}

// orderedColumns returns the table columns present in rec, in table order.
// Keys that are not table columns are rejected.
func orderedColumns(c db.Collection, rec db.Record) ([]string, error) {
	cols, err := tableColumns(c)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(cols))
	for _, col := range cols {
		known[col] = true
	}
	for k := range rec {
		if k != "id" && !known[k] {
			return nil, fmt.Errorf("unknown column %s.%s", c, k)
		}
	}

	present := make([]string, 0, len(rec))
	for _, col := range cols {
		if _, ok := rec[col]; ok {
			present = append(present, col)
		}
	}
	return present, nil
}

func parseID(c db.Collection, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}
	return n, nil
}

func storeError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, errs.ErrConflict)
	}
	return db.Unavailable(op, err)
}

// ReadAll selects every row of the table ordered by id
func (d *DB) ReadAll(ctx context.Context, c db.Collection) ([]db.Record, error) {
	cols, err := tableColumns(c)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id::text, %s FROM %s ORDER BY id", strings.Join(cols, ", "), c)
	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, storeError("read "+string(c), err)
	}
	defer rows.Close()

	var records []db.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		rec := make(db.Record, len(values))
		rec["id"] = values[0]
		for i, col := range cols {
			rec[col] = values[i+1]
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("read "+string(c), err)
	}

	return records, nil
}

// Insert adds a row and returns the id the database assigned
func (d *DB) Insert(ctx context.Context, c db.Collection, rec db.Record) (string, error) {
	cols, err := orderedColumns(c, rec)
	if err != nil {
		return "", err
	}

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id::text",
		c, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id string
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", storeError("insert into "+string(c), err)
	}
	return id, nil
}

// setClause renders "a = $n, b = $n+1" for the patch columns starting at
// placeholder first, returning the matching args
func setClause(cols []string, patch db.Record, first int) (string, []any) {
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", col, first+i)
		args[i] = patch[col]
	}
	return strings.Join(parts, ", "), args
}

// Update sets the patch columns on the row with the given id
func (d *DB) Update(ctx context.Context, c db.Collection, id string, patch db.Record) error {
	n, err := parseID(c, id)
	if err != nil {
		return err
	}
	cols, err := orderedColumns(c, patch)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	set, args := setClause(cols, patch, 2)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", c, set)

	tag, err := d.pool.Exec(ctx, query, append([]any{n}, args...)...)
	if err != nil {
		return storeError("update "+string(c), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}
	return nil
}

// Delete removes the row with the given id
func (d *DB) Delete(ctx context.Context, c db.Collection, id string) error {
	n, err := parseID(c, id)
	if err != nil {
		return err
	}
	if _, err := tableColumns(c); err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", c), n)
	if err != nil {
		return storeError("delete from "+string(c), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}
	return nil
}

// UpdateWhere patches every row whose columns equal match in one statement
func (d *DB) UpdateWhere(ctx context.Context, c db.Collection, match db.Record, patch db.Record) (int, error) {
	setCols, err := orderedColumns(c, patch)
	if err != nil {
		return 0, err
	}
	whereCols, err := orderedColumns(c, match)
	if err != nil {
		return 0, err
	}
	if len(setCols) == 0 {
		return 0, nil
	}

	set, args := setClause(setCols, patch, 1)
	query := fmt.Sprintf("UPDATE %s SET %s", c, set)
	if len(whereCols) > 0 {
		conds := make([]string, len(whereCols))
		for i, col := range whereCols {
			args = append(args, match[col])
			conds[i] = fmt.Sprintf("%s = $%d", col, len(args))
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	tag, err := d.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, storeError("update "+string(c), err)
	}
	return int(tag.RowsAffected()), nil
}
