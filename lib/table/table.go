package table

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// ErrSchema means a row referenced a field the table does not declare, or a
// value that the field's kind cannot hold.
var ErrSchema = errors.New("schema error")

// Row maps field keys to cell values. Cells hold string, int64, float64 or nil
// (nullable kinds only).
type Row map[string]any

// Table is an ordered set of rows with unique keys.
type Table struct {
	Schema *Schema

	keys []string
	rows map[string]Row
}

func New(schema *Schema) *Table {
	return &Table{
		Schema: schema,
		rows:   make(map[string]Row),
	}
}

func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns row keys in table order.
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

func (t *Table) Has(key string) bool {
	_, ok := t.rows[key]
	return ok
}

// Row returns a copy of the stored row.
func (t *Table) Row(key string) (Row, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(row), true
}

// Upsert writes the fields present in partial to the row at key, creating the
// row with empty values first if it does not exist. Nothing is written if any
// field is invalid.
func (t *Table) Upsert(key string, partial Row) error {
	key, err := t.normalizeKey(key)
	if err != nil {
		return err
	}

	coerced := make(Row, len(partial))
	for k, v := range partial {
		field, ok := t.Schema.Field(k)
		if !ok {
			return fmt.Errorf("%w: table %s has no field %q", ErrSchema, t.Schema.Name, k)
		}
		value, err := coerce(field, v)
		if err != nil {
			return fmt.Errorf("%w: table %s field %s: %s", ErrSchema, t.Schema.Name, k, err)
		}
		coerced[k] = value
	}

	row, ok := t.rows[key]
	if !ok {
		row = t.Schema.EmptyRow()
		t.rows[key] = row
		t.keys = append(t.keys, key)
	}
	maps.Copy(row, coerced)
	return nil
}

// Merge upserts every row of other, other must share the same schema.
func (t *Table) Merge(other *Table) error {
	if other.Schema != t.Schema {
		return fmt.Errorf("%w: cannot merge %s into %s", ErrSchema, other.Schema.Name, t.Schema.Name)
	}
	for _, key := range other.keys {
		if err := t.Upsert(key, other.rows[key]); err != nil {
			return err
		}
	}
	return nil
}

// SortFunc reorders rows with a stable sort, cmp receives row keys.
func (t *Table) SortFunc(cmp func(a, b string) int) {
	slices.SortStableFunc(t.keys, cmp)
}

// Get returns the raw cell, it panics on undeclared fields.
func (t *Table) Get(key, field string) any {
	f, ok := t.Schema.Field(field)
	if !ok {
		panic(fmt.Sprintf("table %s has no field %q", t.Schema.Name, field))
	}
	row, ok := t.rows[key]
	if !ok {
		return f.Empty()
	}
	return row[field]
}

func (t *Table) String(key, field string) string {
	v, _ := t.Get(key, field).(string)
	return v
}

func (t *Table) Int(key, field string) int64 {
	v, _ := t.Get(key, field).(int64)
	return v
}

func (t *Table) Float(key, field string) float64 {
	switch v := t.Get(key, field).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// NullableInt reports ok=false when the cell is unset.
func (t *Table) NullableInt(key, field string) (int64, bool) {
	v, ok := t.Get(key, field).(int64)
	return v, ok
}

func (t *Table) NullableFloat(key, field string) (float64, bool) {
	v, ok := t.Get(key, field).(float64)
	return v, ok
}

func (t *Table) normalizeKey(key string) (string, error) {
	if t.Schema.Index.Kind != KindInt {
		return key, nil
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: table %s key %q is not an integer", ErrSchema, t.Schema.Name, key)
	}
	return strconv.FormatInt(n, 10), nil
}

func coerce(field Field, v any) (any, error) {
	switch field.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case KindCategory:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if !slices.Contains(field.Categories, s) {
			return nil, fmt.Errorf("%q is not one of %v", s, field.Categories)
		}
		return s, nil
	case KindInt, KindNullableInt:
		if v == nil {
			if field.Kind == KindNullableInt {
				return nil, nil
			}
			return nil, fmt.Errorf("nil is not allowed")
		}
		return toInt(v)
	case KindFloat, KindNullableFloat:
		if v == nil {
			if field.Kind == KindNullableFloat {
				return nil, nil
			}
			return nil, fmt.Errorf("nil is not allowed")
		}
		return toFloat(v)
	}
	return nil, fmt.Errorf("unknown kind %s", field.Kind)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
