package pipeline

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/ajitpratap0/velo/pkg/destinations/postgres"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/formats/columnar"
	"github.com/ajitpratap0/velo/pkg/gtfs"
	"github.com/ajitpratap0/velo/pkg/logger"
	"github.com/ajitpratap0/velo/pkg/pool"
	"github.com/ajitpratap0/velo/pkg/table"
)

// ExportSink writes every loaded table to Dir/<feed>/<file><ext>.
type ExportSink struct {
	Dir     string
	Format  columnar.Format
	Options columnar.Options
	Logger  *zap.Logger
}

// Consume implements Sink.
func (s *ExportSink) Consume(ctx context.Context, feed string, f *gtfs.Feed) error {
	info := columnar.GetFormatInfo(s.Format)
	if info == nil {
		return errors.New(errors.ErrorTypeConfig, "unsupported export format").WithDetail("format", string(s.Format))
	}
	dir := filepath.Join(s.Dir, feed)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create export directory").WithDetail("path", dir)
	}
	log := logger.FromContext(ctx, s.Logger)

	for _, file := range f.Files() {
		if file.Table == nil {
			continue
		}
		path := filepath.Join(dir, file.Name+info.FileExtension)
		stats, err := ExportFile(path, s.Format, file.Table, s.Options)
		if err != nil {
			return err
		}
		log.Debug("exported table",
			zap.String("path", path),
			zap.Int64("rows", stats.Rows),
			zap.Int64("bytes", stats.Bytes),
		)
	}
	return nil
}

var exportWriters = pool.New(
	func() *bufio.Writer { return bufio.NewWriterSize(nil, 1<<20) },
	func(w *bufio.Writer) { w.Reset(nil) },
)

// ExportFile writes tbl to a new file at path.
func ExportFile(path string, format columnar.Format, tbl *table.Table, opts columnar.Options) (columnar.Stats, error) {
	out, err := os.Create(path) //nolint:gosec // export paths come from the operator
	if err != nil {
		return columnar.Stats{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to create export file").WithDetail("path", path)
	}
	w := exportWriters.Get()
	defer exportWriters.Put(w)
	w.Reset(out)
	stats, err := columnar.Write(w, format, tbl, opts)
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, errors.Wrap(err, errors.ErrorTypeFormat, "failed to export table").
			WithDetail("table", tbl.Name()).
			WithDetail("path", path)
	}
	return stats, nil
}

// PostgresSink copies every loaded table to <feed>_<file> in Schema.
type PostgresSink struct {
	Conn     postgres.Conn
	Schema   string
	Create   bool
	Truncate bool
	Logger   *zap.Logger
}

// Consume implements Sink.
func (s *PostgresSink) Consume(ctx context.Context, feed string, f *gtfs.Feed) error {
	log := logger.FromContext(ctx, s.Logger)
	for _, file := range f.Files() {
		if file.Table == nil {
			continue
		}
		_, err := postgres.CopyTable(ctx, s.Conn, file.Table, postgres.Options{
			Schema:   s.Schema,
			Table:    TableName(feed, file.Name),
			Create:   s.Create,
			Truncate: s.Truncate,
			Logger:   log,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// TableName builds a lower case SQL identifier from a feed and file name.
// Runs of characters other than letters and digits become one underscore.
func TableName(feed, file string) string {
	var sb strings.Builder
	under := false
	for _, r := range strings.ToLower(feed + "_" + file) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			under = false
			continue
		}
		if !under && sb.Len() > 0 {
			sb.WriteByte('_')
			under = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
