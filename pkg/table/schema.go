package table

import (
	"fmt"
	"reflect"

	"github.com/ajitpratap0/velo/pkg/csv"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/field"
	"github.com/ajitpratap0/velo/pkg/flatten"
)

// Column is one entry of a Schema: a name, a required flag and a typed
// decoder. Values are created with Required and Optional.
type Column interface {
	// Name is the header name the column is resolved against.
	Name() string
	// Required columns must be present and decode without error.
	Required() bool
	// Type is the element type of the decoded column slice.
	Type() reflect.Type

	decode(recs *csv.Records, idx int) (any, error)
	merge(parts []any) any
}

type column[T any] struct {
	name     string
	required bool
	decoder  field.Decoder[T]
}

// Required declares a column that must exist in the header. A decode
// failure in any row aborts the parse.
func Required[T any](name string, dec field.Decoder[T]) Column {
	return &column[T]{name: name, required: true, decoder: dec}
}

// Optional declares a column that may be missing from the header. If any
// row fails to decode, the column is dropped from the whole table.
func Optional[T any](name string, dec field.Decoder[T]) Column {
	return &column[T]{name: name, decoder: dec}
}

func (c *column[T]) Name() string       { return c.name }
func (c *column[T]) Required() bool     { return c.required }
func (c *column[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

func (c *column[T]) decode(recs *csv.Records, idx int) (any, error) {
	values, err := Materialize(recs, idx, c.decoder)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (c *column[T]) merge(parts []any) any {
	chunks := make([][]T, len(parts))
	for i, p := range parts {
		chunks[i] = p.([]T)
	}
	return flatten.Flatten(chunks)
}

// Materialize decodes column col of every record in order. Records too short
// to have the column decode an empty field. The first failure is returned as
// a *field.DecodeError and the partial output is discarded.
func Materialize[T any](recs *csv.Records, col int, dec field.Decoder[T]) ([]T, error) {
	out := make([]T, recs.Len())
	for i, r := range recs.All() {
		b, _ := r.Column(col)
		v, err := dec(b)
		if err != nil {
			return nil, &field.DecodeError{Row: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// Schema is a named, ordered list of columns describing one table shape.
type Schema struct {
	name    string
	columns []Column
	index   map[string]int
}

// NewSchema declares a schema. Column names must be unique; a duplicate is a
// programming error and panics.
func NewSchema(name string, cols ...Column) *Schema {
	s := &Schema{name: name, columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := s.index[c.Name()]; dup {
			panic(fmt.Sprintf("table: duplicate column %q in schema %q", c.Name(), name))
		}
		s.index[c.Name()] = i
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Columns returns the columns in declaration order.
func (s *Schema) Columns() []Column { return s.columns }

// Column returns the column declared as name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.columns[i], true
}

// Resolved maps every schema column to its position in an actual header.
type Resolved struct {
	schema  *Schema
	indexes []int // -1 when absent
}

// Resolve looks up every schema column in header. A required column that is
// absent yields an ErrorTypeMissingColumn error.
func Resolve(s *Schema, header *csv.Header) (*Resolved, error) {
	r := &Resolved{schema: s, indexes: make([]int, len(s.columns))}
	for i, c := range s.columns {
		idx, ok := header.ColumnIndex(c.Name())
		if !ok {
			if c.Required() {
				return nil, errors.MissingColumn(s.name, c.Name())
			}
			idx = -1
		}
		r.indexes[i] = idx
	}
	return r, nil
}

// Index returns the header position resolved for the named column.
func (r *Resolved) Index(name string) (int, bool) {
	i, ok := r.schema.index[name]
	if !ok || r.indexes[i] < 0 {
		return 0, false
	}
	return r.indexes[i], true
}
