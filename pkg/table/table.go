package table

import "iter"

// Nullable is implemented by element types that carry their own absence,
// such as field.ServiceTime. Exporters write these values as nulls.
type Nullable interface {
	IsNull() bool
}

// Table is the columnar result of a parse. Required columns are always
// present; optional columns are present only if every chunk decoded them.
type Table struct {
	schema  *Schema
	columns []any // []T per schema column, nil when absent
	records int
}

// Name returns the schema name.
func (t *Table) Name() string { return t.schema.name }

// Schema returns the schema the table was parsed with.
func (t *Table) Schema() *Schema { return t.schema }

// Len returns the total record count.
func (t *Table) Len() int { return t.records }

// Has reports whether the named column is present.
func (t *Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the named column as a []T boxed in an interface.
func (t *Table) Column(name string) (any, bool) {
	i, ok := t.schema.index[name]
	if !ok || t.columns[i] == nil {
		return nil, false
	}
	return t.columns[i], true
}

// Present returns the names of present columns in schema order.
func (t *Table) Present() []string {
	names := make([]string, 0, len(t.columns))
	for i, c := range t.columns {
		if c != nil {
			names = append(names, t.schema.columns[i].Name())
		}
	}
	return names
}

// All yields each present column with its values.
func (t *Table) All() iter.Seq2[Column, any] {
	return func(yield func(Column, any) bool) {
		for i, c := range t.columns {
			if c == nil {
				continue
			}
			if !yield(t.schema.columns[i], c) {
				return
			}
		}
	}
}

// Values returns the named column as []T. It reports false when the column is
// absent or was declared with a different element type.
func Values[T any](t *Table, name string) ([]T, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	v, ok := c.([]T)
	return v, ok
}
