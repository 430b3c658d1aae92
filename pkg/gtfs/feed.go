// Package gtfs loads transit feeds. Each known file is parsed with its own
// schema; files load concurrently and a failure in one file never affects
// the others.
package gtfs

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/logger"
	"github.com/ajitpratap0/velo/pkg/metrics"
	"github.com/ajitpratap0/velo/pkg/observability"
	vstrings "github.com/ajitpratap0/velo/pkg/strings"
	"github.com/ajitpratap0/velo/pkg/table"
)

// Ext is the extension of every feed file.
const Ext = ".txt"

// Reader supplies the raw bytes of a feed file such as "stops.txt". A file
// that does not exist must be reported with an error wrapping fs.ErrNotExist.
type Reader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// Buffers is an in-memory Reader keyed by file name, extension included.
type Buffers map[string][]byte

// ReadFile implements Reader.
func (b Buffers) ReadFile(_ context.Context, name string) ([]byte, error) {
	buf, ok := b[name]
	if !ok {
		return nil, errors.Wrap(fs.ErrNotExist, errors.ErrorTypeNotFound, "no buffer for "+name)
	}
	return buf, nil
}

// Filter selects which files a load parses. The zero value selects all.
type Filter struct {
	only map[string]bool
}

// All selects every file.
func All() Filter { return Filter{} }

// None selects no file.
func None() Filter { return Filter{only: map[string]bool{}} }

// Only selects the named files. Names may carry the .txt extension.
func Only(names ...string) Filter {
	f := Filter{only: make(map[string]bool, len(names))}
	for _, n := range names {
		f.only[strings.TrimSuffix(strings.TrimSpace(n), Ext)] = true
	}
	return f
}

// ParseFilter builds a filter from a comma-separated list. An empty list or
// "all" selects every file and "none" selects nothing.
func ParseFilter(list string) (Filter, error) {
	switch strings.TrimSpace(list) {
	case "", "all":
		return All(), nil
	case "none":
		return None(), nil
	}
	f := Only(strings.Split(list, ",")...)
	for name := range f.only {
		if !known(name) {
			return Filter{}, errors.Newf(errors.ErrorTypeValidation, "unknown feed file %q", name)
		}
	}
	return f, nil
}

// Includes reports whether name is selected.
func (f Filter) Includes(name string) bool {
	return f.only == nil || f.only[name]
}

func known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Status is the outcome of loading one file.
type Status string

const (
	StatusLoaded  Status = metrics.StatusLoaded
	StatusMissing Status = metrics.StatusMissing
	StatusFailed  Status = metrics.StatusFailed
	StatusSkipped Status = "skipped"
)

// File is the load result of one feed file. Table is nil unless Status is
// StatusLoaded.
type File struct {
	Name     string
	Status   Status
	Table    *table.Table
	Err      error
	Bytes    int
	Duration time.Duration
}

// Len returns the number of records, zero when the file did not load.
func (f *File) Len() int {
	if f == nil || f.Table == nil {
		return 0
	}
	return f.Table.Len()
}

// Feed holds every known file. Tables may reference the buffers returned by
// the Reader, so the Reader must stay open while the feed is in use.
type Feed struct {
	files map[string]*File
}

// File returns the named file, or nil for a name outside Names.
func (f *Feed) File(name string) *File {
	return f.files[strings.TrimSuffix(name, Ext)]
}

// Table returns the parsed table of the named file, or nil.
func (f *Feed) Table(name string) *table.Table {
	if file := f.File(name); file != nil {
		return file.Table
	}
	return nil
}

// Files returns all files in Names order.
func (f *Feed) Files() []*File {
	out := make([]*File, 0, len(Names))
	for _, n := range Names {
		out = append(out, f.files[n])
	}
	return out
}

// String lists each file with its record count.
func (f *Feed) String() string {
	var sb strings.Builder
	for i, file := range f.Files() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d", file.Name, file.Len())
	}
	return sb.String()
}

// FileStats summarizes one file.
type FileStats struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Records  int           `json:"records"`
	Bytes    int           `json:"bytes"`
	Columns  []string      `json:"columns,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Stats summarizes a feed.
type Stats struct {
	Files   []FileStats `json:"files"`
	Records int         `json:"records"`
	Bytes   int         `json:"bytes"`
	Loaded  int         `json:"loaded"`
	Failed  int         `json:"failed"`
}

// Stats returns per-file and total counts.
func (f *Feed) Stats() Stats {
	var s Stats
	for _, file := range f.Files() {
		st := FileStats{
			Name:     file.Name,
			Status:   file.Status,
			Records:  file.Len(),
			Bytes:    file.Bytes,
			Duration: file.Duration,
		}
		if file.Table != nil {
			st.Columns = file.Table.Present()
		}
		if file.Err != nil && file.Status == StatusFailed {
			st.Error = file.Err.Error()
		}
		switch file.Status {
		case StatusLoaded:
			s.Loaded++
		case StatusFailed:
			s.Failed++
		}
		s.Records += st.Records
		s.Bytes += st.Bytes
		s.Files = append(s.Files, st)
	}
	return s
}

// Options configures Load.
type Options struct {
	// Parse is handed to every table parser.
	Parse table.Config
	// Workers bounds how many files load at once (0 = all at once).
	Workers int
	// Intern deduplicates stop_times identifiers.
	Intern bool
	Logger *zap.Logger
}

// DefaultOptions returns the default parse config with interning enabled.
func DefaultOptions() Options {
	return Options{Parse: table.DefaultConfig(), Intern: true}
}

// Load reads and parses every file selected by filter. It never fails as a
// whole: a file that is missing, unreadable or malformed is reported through
// its File entry and the remaining files still load.
func Load(ctx context.Context, r Reader, filter Filter, opts Options) *Feed {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, span := observability.StartSpan(ctx, "gtfs.Load")
	defer span.End()

	var in *vstrings.Intern
	if opts.Intern {
		in = vstrings.NewIntern()
	}
	schemas := Schemas(in)

	feed := &Feed{files: make(map[string]*File, len(Names))}
	for _, n := range Names {
		feed.files[n] = &File{Name: n, Status: StatusSkipped}
	}

	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for _, n := range Names {
		if !filter.Includes(n) {
			continue
		}
		file := feed.files[n]
		g.Go(func() error {
			loadFile(logger.WithFile(ctx, n+Ext), r, schemas[n], opts.Parse, log, file)
			return nil
		})
	}
	_ = g.Wait()

	stats := feed.Stats()
	span.SetAttributes(
		attribute.Int("records", stats.Records),
		attribute.Int("loaded", stats.Loaded),
		attribute.Int("failed", stats.Failed),
	)
	logger.FromContext(ctx, log).Debug("loaded feed",
		zap.Int("loaded", stats.Loaded),
		zap.Int("failed", stats.Failed),
		zap.Int("records", stats.Records),
	)
	return feed
}

func loadFile(ctx context.Context, r Reader, schema *table.Schema, cfg table.Config, base *zap.Logger, file *File) {
	log := logger.FromContext(ctx, base)
	start := time.Now()
	defer func() {
		file.Duration = time.Since(start)
		metrics.FeedFiles.WithLabelValues(file.Name, string(file.Status)).Inc()
	}()

	buf, err := r.ReadFile(ctx, file.Name+Ext)
	if err != nil {
		file.Err = err
		if errors.Is(err, fs.ErrNotExist) {
			file.Status = StatusMissing
			log.Debug("feed file not present")
			return
		}
		file.Status = StatusFailed
		log.Warn("feed file unavailable", zap.Error(err))
		return
	}
	file.Bytes = len(buf)

	tbl, err := table.NewParser(schema, cfg, base).Parse(ctx, buf)
	if err != nil {
		file.Status = StatusFailed
		file.Err = err
		log.Warn("feed file failed to parse", zap.Error(err))
		return
	}
	file.Status = StatusLoaded
	file.Table = tbl
}
