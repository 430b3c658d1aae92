package columnar

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type parquetWriter struct {
	builder *array.RecordBuilder
	writer  *pqarrow.FileWriter
}

func newParquetWriter(w io.Writer, name string, vecs []*Vector, opts Options) (*parquetWriter, error) {
	codec, err := parquetCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(name, vecs)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithMaxRowGroupLength(int64(opts.BatchSize)),
		parquet.WithCreatedBy("velo"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	return &parquetWriter{builder: array.NewRecordBuilder(mem, schema), writer: fw}, nil
}

func parquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("parquet does not support %s compression", name)
	}
}

func (pw *parquetWriter) writeBatch(vecs []*Vector, off, n int) error {
	rec, err := buildRecord(pw.builder, vecs, off, n)
	if err != nil {
		return err
	}
	defer rec.Release()
	return pw.writer.Write(rec)
}

func (pw *parquetWriter) close() error {
	pw.builder.Release()
	return pw.writer.Close()
}
