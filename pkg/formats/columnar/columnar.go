// Package columnar exports parsed tables to columnar and row formats:
// Arrow IPC files, Parquet, Avro object container files and newline
// delimited JSON.
package columnar

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/velo/pkg/table"
)

// Format represents an export format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is the Apache Avro object container format
	Avro Format = "avro"
	// JSON is newline delimited JSON
	JSON Format = "json"
)

// DefaultBatchSize is the number of rows per record batch.
const DefaultBatchSize = 64 * 1024

// Options configures Write.
type Options struct {
	// Compression is a codec name understood by the format: snappy, gzip,
	// zstd, lz4, deflate or none. Empty selects the format default.
	Compression string
	// BatchSize is the number of rows written per batch (0 = DefaultBatchSize).
	BatchSize int
}

// Stats reports what Write produced.
type Stats struct {
	Rows    int64
	Bytes   int64
	Batches int
}

// batchWriter encodes consecutive row ranges of the same vectors.
type batchWriter interface {
	writeBatch(vecs []*Vector, off, n int) error
	close() error
}

// Write encodes every present column of tbl to w. Absent optional columns
// are omitted from the output schema. w is not closed.
func Write(w io.Writer, format Format, tbl *table.Table, opts Options) (Stats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	vecs, err := Vectors(tbl)
	if err != nil {
		return Stats{}, err
	}

	cw := &countingWriter{w: w}
	var bw batchWriter
	switch format {
	case Arrow:
		bw, err = newArrowWriter(cw, tbl.Name(), vecs, opts)
	case Parquet:
		bw, err = newParquetWriter(cw, tbl.Name(), vecs, opts)
	case Avro:
		bw, err = newAvroWriter(cw, tbl.Name(), vecs, opts)
	case JSON:
		bw, err = newJSONWriter(cw, opts)
	default:
		err = fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	rows := tbl.Len()
	for off := 0; off < rows; off += opts.BatchSize {
		n := min(opts.BatchSize, rows-off)
		if err := bw.writeBatch(vecs, off, n); err != nil {
			return stats, fmt.Errorf("failed to write %s batch at row %d: %w", format, off, err)
		}
		stats.Rows += int64(n)
		stats.Batches++
	}
	if err := bw.close(); err != nil {
		return stats, fmt.Errorf("failed to finish %s output: %w", format, err)
	}
	stats.Bytes = cw.n
	return stats, nil
}

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Parquet, Arrow, Avro, JSON:
		return f, nil
	case "ndjson", "jsonl":
		return JSON, nil
	case "ipc", "feather":
		return Arrow, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return Parquet, true
	case ".arrow", ".ipc", ".feather":
		return Arrow, true
	case ".avro":
		return Avro, true
	case ".json", ".ndjson", ".jsonl":
		return JSON, true
	default:
		return "", false
	}
}

// FormatInfo describes an export format
type FormatInfo struct {
	Format           Format
	Name             string
	FileExtension    string
	MIMEType         string
	SupportsCompress bool
}

// GetFormatInfo returns information about an export format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Parquet:
		return &FormatInfo{
			Format:           Parquet,
			Name:             "Apache Parquet",
			FileExtension:    ".parquet",
			MIMEType:         "application/vnd.apache.parquet",
			SupportsCompress: true,
		}
	case Arrow:
		return &FormatInfo{
			Format:           Arrow,
			Name:             "Apache Arrow IPC",
			FileExtension:    ".arrow",
			MIMEType:         "application/vnd.apache.arrow.file",
			SupportsCompress: true,
		}
	case Avro:
		return &FormatInfo{
			Format:           Avro,
			Name:             "Apache Avro",
			FileExtension:    ".avro",
			MIMEType:         "application/avro",
			SupportsCompress: true,
		}
	case JSON:
		return &FormatInfo{
			Format:           JSON,
			Name:             "Newline delimited JSON",
			FileExtension:    ".ndjson",
			MIMEType:         "application/x-ndjson",
			SupportsCompress: true,
		}
	default:
		return nil
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
