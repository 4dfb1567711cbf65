package table

import (
	"fmt"
	"slices"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindNullableInt
	KindNullableFloat
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindNullableInt:
		return "nullable int"
	case KindNullableFloat:
		return "nullable float"
	case KindCategory:
		return "category"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Order only decides where a column is placed on disk: index, name, content,
// updated time, match information. Fields default to OrderContent.
type Order int

const (
	OrderContent Order = iota
	OrderIndex
	OrderName
	OrderUpdatedTime
	OrderMatchInformation
)

func (o Order) rank() int {
	switch o {
	case OrderIndex:
		return 0
	case OrderName:
		return 1
	case OrderContent:
		return 2
	}
	return int(o)
}

type Field struct {
	// Key is how code refers to the field.
	Key string
	// Name is the column header on disk.
	Name  string
	Kind  Kind
	Order Order
	// Categories lists the allowed values of a KindCategory field.
	Categories []string
	// Default replaces the zero value of the kind for new rows and for
	// columns missing from a file.
	Default any
}

// Empty is the value a cell of this field holds when nothing was written.
func (f Field) Empty() any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindNullableInt, KindNullableFloat:
		return nil
	case KindCategory:
		if len(f.Categories) > 0 {
			return f.Categories[0]
		}
	}
	return ""
}

const (
	KeyUpdatedTime        = "updated_time"
	KeyUpdatedMatchStatus = "updated_match_status"
)

// NeverUpdated is the provenance sentinel of rows that were never refreshed.
const NeverUpdated = -1

// UpdatedTime is the provenance field holding the unix time of the last
// successful refresh.
var UpdatedTime = Field{
	Key:     KeyUpdatedTime,
	Name:    "更新时间",
	Kind:    KindFloat,
	Order:   OrderUpdatedTime,
	Default: float64(NeverUpdated),
}

// UpdatedMatchStatus is the provenance field holding the match status
// observed during the last successful refresh.
var UpdatedMatchStatus = Field{
	Key:     KeyUpdatedMatchStatus,
	Name:    "更新时比赛状态",
	Kind:    KindInt,
	Order:   OrderMatchInformation,
	Default: int64(NeverUpdated),
}

type Schema struct {
	// Name is the file name of the table without extension.
	Name   string
	Index  Field
	fields []Field
	byKey  map[string]int
	byName map[string]int
}

// NewSchema orders fields by their Order, keeping declaration order inside the
// same Order. It panics on duplicate keys or names, a schema is a static
// declaration.
func NewSchema(name string, index Field, fields ...Field) *Schema {
	if index.Kind != KindString && index.Kind != KindInt {
		panic(fmt.Sprintf("table %s: index %s must be a string or int field", name, index.Key))
	}
	index.Order = OrderIndex

	sorted := slices.Clone(fields)
	slices.SortStableFunc(sorted, func(a, b Field) int {
		return a.Order.rank() - b.Order.rank()
	})

	s := &Schema{
		Name:   name,
		Index:  index,
		fields: sorted,
		byKey:  make(map[string]int, len(sorted)),
		byName: make(map[string]int, len(sorted)),
	}
	s.byName[index.Name] = -1
	for i, f := range sorted {
		if f.Key == index.Key {
			panic(fmt.Sprintf("table %s: field %s shadows the index", name, f.Key))
		}
		if _, ok := s.byKey[f.Key]; ok {
			panic(fmt.Sprintf("table %s: duplicate field key %s", name, f.Key))
		}
		if _, ok := s.byName[f.Name]; ok {
			panic(fmt.Sprintf("table %s: duplicate column name %s", name, f.Name))
		}
		s.byKey[f.Key] = i
		s.byName[f.Name] = i
	}
	return s
}

// Fields returns the non-index fields in on-disk order.
func (s *Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Updatable reports whether rows carry an update time.
func (s *Schema) Updatable() bool {
	_, ok := s.byKey[KeyUpdatedTime]
	return ok
}

// MatchInformation reports whether rows also record the match status seen at
// update time.
func (s *Schema) MatchInformation() bool {
	_, ok := s.byKey[KeyUpdatedMatchStatus]
	return ok
}

// Header is the list of column names, index first.
func (s *Schema) Header() []string {
	header := make([]string, 0, len(s.fields)+1)
	header = append(header, s.Index.Name)
	for _, f := range s.fields {
		header = append(header, f.Name)
	}
	return header
}

// EmptyRow has every field set to its empty value.
func (s *Schema) EmptyRow() Row {
	row := make(Row, len(s.fields))
	for _, f := range s.fields {
		row[f.Key] = f.Empty()
	}
	return row
}
