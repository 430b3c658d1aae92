package columnar

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/velo/pkg/pool"
)

// avroRows recycles row maps between batches; goavro encodes rows during
// Append and keeps no reference to them.
var avroRows = pool.NewMapPool[string, any](32)

type avroWriter struct {
	ocf   *goavro.OCFWriter
	types []string // avro type name per vector, for union wrapping
	rows  []any
}

// AvroSchema returns the Avro record schema vecs are exported with. Dates
// use the date logical type; nullable columns are unions with null.
func AvroSchema(name string, vecs []*Vector) (string, []string, error) {
	type avroField struct {
		Name    string `json:"name"`
		Type    any    `json:"type"`
		Default any    `json:"default,omitempty"`
	}
	fields := make([]avroField, len(vecs))
	types := make([]string, len(vecs))
	for i, v := range vecs {
		typ, label := avroType(v.Kind)
		types[i] = label
		f := avroField{Name: v.Name, Type: typ}
		if v.Nullable {
			f.Type = []any{"null", typ}
		}
		fields[i] = f
	}
	schema, err := json.Marshal(map[string]any{
		"type":      "record",
		"name":      avroName(name),
		"namespace": "velo",
		"fields":    fields,
	})
	if err != nil {
		return "", nil, err
	}
	return string(schema), types, nil
}

// avroType returns the schema type and the union branch label goavro expects.
func avroType(k Kind) (any, string) {
	switch k {
	case KindInt64:
		return "long", "long"
	case KindFloat64:
		return "double", "double"
	case KindBool:
		return "boolean", "boolean"
	case KindBinary:
		return "bytes", "bytes"
	case KindDate:
		return map[string]string{"type": "int", "logicalType": "date"}, "int.date"
	default:
		return "string", "string"
	}
}

// avroName turns a table name into a valid Avro name.
func avroName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "table"
	}
	return sb.String()
}

func avroCompression(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return goavro.CompressionNullLabel, nil
	case "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate", "gzip":
		return goavro.CompressionDeflateLabel, nil
	default:
		return "", fmt.Errorf("avro does not support %s compression", name)
	}
}

func newAvroWriter(w io.Writer, name string, vecs []*Vector, opts Options) (*avroWriter, error) {
	schema, types, err := AvroSchema(name, vecs)
	if err != nil {
		return nil, fmt.Errorf("failed to build Avro schema: %w", err)
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro codec: %w", err)
	}
	compression, err := avroCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro writer: %w", err)
	}
	return &avroWriter{ocf: ocf, types: types}, nil
}

func (aw *avroWriter) writeBatch(vecs []*Vector, off, n int) error {
	aw.rows = aw.rows[:0]
	defer func() {
		for _, row := range aw.rows {
			avroRows.Put(row.(map[string]any))
		}
	}()
	for i := off; i < off+n; i++ {
		row := avroRows.Get()
		for j, v := range vecs {
			value := v.Value(i)
			if v.Nullable && value != nil {
				value = goavro.Union(aw.types[j], value)
			}
			row[v.Name] = value
		}
		aw.rows = append(aw.rows, row)
	}
	return aw.ocf.Append(aw.rows)
}

// close is a no-op: every Append writes a complete block.
func (aw *avroWriter) close() error { return nil }
