package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Read parses a CSV table. Columns are matched by header name, unknown
// columns are ignored and declared columns absent from the file take their
// empty value.
func Read(r io.Reader, schema *Schema) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(schema), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", schema.Name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	indexCol := slices.Index(header, schema.Index.Name)
	if indexCol < 0 {
		return nil, fmt.Errorf("%w: table %s is missing index column %s", ErrSchema, schema.Name, schema.Index.Name)
	}

	type column struct {
		pos   int
		field Field
	}
	var columns []column
	for _, f := range schema.fields {
		pos := slices.Index(header, f.Name)
		if pos < 0 {
			continue
		}
		columns = append(columns, column{pos: pos, field: f})
	}

	t := New(schema)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", schema.Name, err)
		}
		if indexCol >= len(record) {
			return nil, fmt.Errorf("read %s line %d: missing index", schema.Name, line)
		}

		row := make(Row, len(columns))
		for _, c := range columns {
			raw := ""
			if c.pos < len(record) {
				raw = record[c.pos]
			}
			value, err := parseCell(c.field, raw)
			if err != nil {
				return nil, fmt.Errorf("read %s line %d column %s: %w", schema.Name, line, c.field.Name, err)
			}
			row[c.field.Key] = value
		}
		if err := t.Upsert(record[indexCol], row); err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", schema.Name, line, err)
		}
	}
	return t, nil
}

// Write serializes the table with the index column first.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Schema.Header()); err != nil {
		return err
	}

	record := make([]string, len(t.Schema.fields)+1)
	for _, key := range t.keys {
		row := t.rows[key]
		record[0] = key
		for i, f := range t.Schema.fields {
			record[i+1] = formatCell(row[f.Key])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFile reads the table stored at path, a missing file yields an empty
// table.
func ReadFile(path string, schema *Schema) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(schema), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, schema)
}

// WriteFile replaces the file at path in one rename, readers see either the
// previous or the new contents.
func (t *Table) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s-*.tmp", t.Schema.Name))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", t.Schema.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func parseCell(field Field, raw string) (any, error) {
	switch field.Kind {
	case KindString, KindCategory:
	default:
		raw = strings.TrimSpace(raw)
	}
	switch field.Kind {
	case KindString:
		return raw, nil
	case KindCategory:
		if raw == "" {
			return field.Empty(), nil
		}
		return raw, nil
	case KindInt, KindNullableInt:
		if raw == "" {
			return field.Empty(), nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return n, nil
		}
		// integer columns written as floats, "3.0"
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) {
			return nil, err
		}
		return int64(f), nil
	case KindFloat, KindNullableFloat:
		if raw == "" {
			return field.Empty(), nil
		}
		return strconv.ParseFloat(raw, 64)
	}
	return nil, fmt.Errorf("unknown kind %s", field.Kind)
}

func formatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
