package columnar

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// TableMetadataKey holds the table name in Arrow and Parquet schema metadata.
const TableMetadataKey = "velo.table"

// ArrowSchema returns the Arrow schema vecs are exported with.
func ArrowSchema(name string, vecs []*Vector) *arrow.Schema {
	fields := make([]arrow.Field, len(vecs))
	for i, v := range vecs {
		fields[i] = arrow.Field{Name: v.Name, Type: arrowType(v.Kind), Nullable: v.Nullable}
	}
	md := arrow.NewMetadata([]string{TableMetadataKey}, []string{name})
	return arrow.NewSchema(fields, &md)
}

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindBinary:
		return arrow.BinaryTypes.Binary
	case KindDate:
		return arrow.FixedWidthTypes.Date32
	default:
		return arrow.BinaryTypes.String
	}
}

// buildRecord copies rows [off, off+n) of vecs into a new record. The caller
// releases it.
func buildRecord(b *array.RecordBuilder, vecs []*Vector, off, n int) (arrow.Record, error) {
	for j, v := range vecs {
		fb := b.Field(j)
		fb.Reserve(n)
		for i := off; i < off+n; i++ {
			if v.IsNull(i) {
				fb.AppendNull()
				continue
			}
			switch bb := fb.(type) {
			case *array.StringBuilder:
				bb.Append(v.Text(i))
			case *array.Int64Builder:
				bb.Append(v.Int64(i))
			case *array.Float64Builder:
				bb.Append(v.Float64(i))
			case *array.BooleanBuilder:
				bb.Append(v.Bool(i))
			case *array.BinaryBuilder:
				bb.Append(v.Binary(i))
			case *array.Date32Builder:
				bb.Append(arrow.Date32FromTime(v.Date(i)))
			default:
				return nil, fmt.Errorf("unsupported builder type: %T", fb)
			}
		}
	}
	return b.NewRecord(), nil
}

type arrowWriter struct {
	builder *array.RecordBuilder
	writer  *ipc.FileWriter
}

func newArrowWriter(w io.Writer, name string, vecs []*Vector, opts Options) (*arrowWriter, error) {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(name, vecs)

	ipcOpts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(mem)}
	switch strings.ToLower(opts.Compression) {
	case "", "none":
	case "zstd":
		ipcOpts = append(ipcOpts, ipc.WithZstd())
	case "lz4":
		ipcOpts = append(ipcOpts, ipc.WithLZ4())
	default:
		return nil, fmt.Errorf("arrow ipc does not support %s compression", opts.Compression)
	}

	fw, err := ipc.NewFileWriter(w, ipcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	return &arrowWriter{builder: array.NewRecordBuilder(mem, schema), writer: fw}, nil
}

func (aw *arrowWriter) writeBatch(vecs []*Vector, off, n int) error {
	rec, err := buildRecord(aw.builder, vecs, off, n)
	if err != nil {
		return err
	}
	defer rec.Release()
	return aw.writer.Write(rec)
}

func (aw *arrowWriter) close() error {
	aw.builder.Release()
	return aw.writer.Close()
}
