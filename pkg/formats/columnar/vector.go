package columnar

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ajitpratap0/velo/pkg/field"
	"github.com/ajitpratap0/velo/pkg/table"
)

// Kind is the physical type a column is exported as.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindBinary
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindBinary:
		return "binary"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Vector is a read-only view of one table column mapped onto an export
// Kind. Only the accessor matching Kind may be called.
type Vector struct {
	Name     string
	Kind     Kind
	Nullable bool
	Len      int

	null  func(i int) bool
	str   func(i int) string
	int   func(i int) int64
	float func(i int) float64
	bool  func(i int) bool
	bin   func(i int) []byte
	date  func(i int) time.Time
}

func (v *Vector) IsNull(i int) bool { return v.null != nil && v.null(i) }
func (v *Vector) Text(i int) string { return v.str(i) }
func (v *Vector) Int64(i int) int64 { return v.int(i) }
func (v *Vector) Float64(i int) float64 { return v.float(i) }
func (v *Vector) Bool(i int) bool { return v.bool(i) }
func (v *Vector) Binary(i int) []byte { return v.bin(i) }
func (v *Vector) Date(i int) time.Time { return v.date(i) }

// Value returns element i as a plain Go value, nil when null. Dates are
// returned as time.Time at UTC midnight.
func (v *Vector) Value(i int) any {
	if v.IsNull(i) {
		return nil
	}
	switch v.Kind {
	case KindString:
		return v.str(i)
	case KindInt64:
		return v.int(i)
	case KindFloat64:
		return v.float(i)
	case KindBool:
		return v.bool(i)
	case KindBinary:
		return v.bin(i)
	case KindDate:
		return v.date(i)
	}
	return nil
}

// Vectors maps every present column of tbl in schema order.
func Vectors(tbl *table.Table) ([]*Vector, error) {
	var out []*Vector
	for col, values := range tbl.All() {
		v, err := newVector(col.Name(), values)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func newVector(name string, values any) (*Vector, error) {
	v := &Vector{Name: name}
	switch s := values.(type) {
	case []string:
		v.Kind, v.Len = KindString, len(s)
		v.str = func(i int) string { return s[i] }
	case [][]byte:
		v.Kind, v.Len = KindBinary, len(s)
		v.bin = func(i int) []byte { return s[i] }
	case []bool:
		v.Kind, v.Len = KindBool, len(s)
		v.bool = func(i int) bool { return s[i] }
	case []float32:
		v.Kind, v.Len = KindFloat64, len(s)
		v.float = func(i int) float64 { return float64(s[i]) }
	case []float64:
		v.Kind, v.Len = KindFloat64, len(s)
		v.float = func(i int) float64 { return s[i] }
	case []field.OptionalFloat:
		v.Kind, v.Len, v.Nullable = KindFloat64, len(s), true
		v.null = func(i int) bool { return s[i].IsNull() }
		v.float = func(i int) float64 { return float64(s[i].Value) }
	case []field.ServiceTime:
		// Seconds since the start of the service day; may exceed 24h.
		v.Kind, v.Len, v.Nullable = KindInt64, len(s), true
		v.null = func(i int) bool { return s[i].IsNull() }
		v.int = func(i int) int64 { return int64(s[i].Seconds) }
	case []field.Date:
		v.Kind, v.Len, v.Nullable = KindDate, len(s), true
		v.null = func(i int) bool { return s[i].IsNull() }
		v.date = func(i int) time.Time { return s[i].Time(time.UTC) }
	case []field.Color:
		v.Kind, v.Len, v.Nullable = KindString, len(s), true
		v.null = func(i int) bool { return s[i].IsNull() }
		v.str = func(i int) string { return s[i].String() }
	default:
		return reflectVector(v, values)
	}
	return v, nil
}

var (
	stringerType = reflect.TypeFor[fmt.Stringer]()
	nullableType = reflect.TypeFor[table.Nullable]()
)

// reflectVector handles integer slices and element types such as code-table
// enums that are exported through their String method.
func reflectVector(v *Vector, values any) (*Vector, error) {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("column %s: unsupported column type %T", v.Name, values)
	}
	elem := rv.Type().Elem()
	v.Len = rv.Len()
	if elem.Implements(nullableType) {
		v.Nullable = true
		v.null = func(i int) bool { return rv.Index(i).Interface().(table.Nullable).IsNull() }
	}

	switch {
	case elem.Implements(stringerType):
		v.Kind = KindString
		v.str = func(i int) string { return rv.Index(i).Interface().(fmt.Stringer).String() }
	case elem.Kind() >= reflect.Int && elem.Kind() <= reflect.Int64:
		v.Kind = KindInt64
		v.int = func(i int) int64 { return rv.Index(i).Int() }
	case elem.Kind() >= reflect.Uint && elem.Kind() <= reflect.Uint64:
		v.Kind = KindInt64
		v.int = func(i int) int64 { return int64(rv.Index(i).Uint()) } //nolint:gosec // uint64 ids above 2^63 wrap
	default:
		return nil, fmt.Errorf("column %s: unsupported element type %s", v.Name, elem)
	}
	return v, nil
}
