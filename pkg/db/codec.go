package db

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are tried in order when a datetime column arrives as text
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ToRecord converts a tagged row struct into a Record. The id column is left
// out since ids are assigned by the store.
func ToRecord(row interface{}) Record {
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	rec := make(Record, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		column := t.Field(i).Tag.Get("ssql_header")
		if column == "" || column == "id" {
			continue
		}
		rec[column] = plainValue(v.Field(i))
	}
	return rec
}

func plainValue(v reflect.Value) any {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).UTC()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return v.Interface()
}

// FromRecord maps a Record onto a tagged row struct of type T.
// Missing and nil columns leave the field at its zero value.
func FromRecord[T any](rec Record) (T, error) {
	var row T
	v := reflect.ValueOf(&row).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		column := field.Tag.Get("ssql_header")
		if column == "" {
			continue
		}
		value, ok := rec[column]
		if !ok || value == nil {
			continue
		}
		if err := setFieldValue(v.Field(i), value); err != nil {
			return row, fmt.Errorf("column %s: %w", column, err)
		}
	}
	return row, nil
}

// FromRecords maps every record, stopping at the first malformed one
func FromRecords[T any](records []Record) ([]T, error) {
	rows := make([]T, 0, len(records))
	for i, rec := range records {
		row, err := FromRecord[T](rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// setFieldValue converts a stored value to the field's Go type. Spreadsheet
// backends hand over strings, postgres hands over native values and redis
// hands over decoded JSON, so every branch accepts more than one shape.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	if field.Kind() == reflect.Ptr {
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if field.Type() == timeType {
		ts, err := parseTime(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(FormatValue(value))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("failed to parse int: %w", err)
		}
		field.SetInt(n)

	case reflect.Float32, reflect.Float64:
		f, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("failed to parse float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("failed to parse bool: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

func parseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("failed to parse datetime %q", s)
	}
	return time.Time{}, fmt.Errorf("unsupported datetime value %T", value)
}

func parseInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("unsupported int value %T", value)
}

func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		// spreadsheets in some locales write decimal commas
		return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	return 0, fmt.Errorf("unsupported float value %T", value)
}

func parseBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("unsupported bool value %T", value)
}

// FormatValue renders a record value as text for string-only backends
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return ""
		}
		return FormatValue(*v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *float64:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return fmt.Sprint(value)
}

// equalValue compares a stored value against a wanted one, reading the stored
// side with the wanted side's type
func equalValue(stored, want any) bool {
	if b, ok := want.(bool); ok {
		got, err := parseBool(stored)
		return err == nil && got == b
	}
	return FormatValue(stored) == FormatValue(want)
}
