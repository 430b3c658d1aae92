// Package pipeline loads many feeds in one run. It is the batch layer on top
// of pkg/gtfs: feeds are discovered under a root, opened through pkg/source,
// loaded on a bounded worker pool and optionally handed to sinks that export
// or copy their tables.
//
// # Failure isolation
//
// A feed that cannot be opened, or whose sink fails, is recorded in the
// Summary and skipped. The remaining feeds still run. Files inside a feed are
// isolated the same way by gtfs.Load.
//
// # Basic Usage
//
//	runner := pipeline.NewRunner(pipeline.DefaultConfig(), logger)
//	candidates, err := pipeline.Discover("/data/feeds")
//	if err != nil {
//	    return err
//	}
//	summary, err := runner.Run(ctx, pipeline.Paths(candidates))
//	fmt.Print(summary)
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/velo/pkg/gtfs"
	"github.com/ajitpratap0/velo/pkg/logger"
	"github.com/ajitpratap0/velo/pkg/metrics"
	"github.com/ajitpratap0/velo/pkg/observability"
	"github.com/ajitpratap0/velo/pkg/performance"
	"github.com/ajitpratap0/velo/pkg/source"
)

// Sink consumes a loaded feed before its source is closed. Tables may
// reference source buffers, so a sink must not retain them after Consume
// returns.
type Sink interface {
	Consume(ctx context.Context, feed string, f *gtfs.Feed) error
}

// Config contains batch run parameters.
type Config struct {
	// Workers bounds how many feeds load at once (0 = 1).
	Workers int
	// Filter selects the files loaded from every feed.
	Filter gtfs.Filter
	// Feed is handed to gtfs.Load. Its Logger is ignored.
	Feed gtfs.Options
	// Source is handed to source.Open. Its Logger is ignored.
	Source source.Options
	// Sinks run in order for every loaded feed.
	Sinks []Sink
}

// DefaultConfig loads two feeds at once with the default feed options.
func DefaultConfig() Config {
	return Config{Workers: 2, Filter: gtfs.All(), Feed: gtfs.DefaultOptions()}
}

// Runner executes batch runs. It is safe for concurrent use.
type Runner struct {
	config Config
	logger *zap.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(config Config, log *zap.Logger) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	config.Feed.Logger = log
	config.Source.Logger = log
	return &Runner{config: config, logger: log}
}

// Run loads every path and aggregates the results. Paths are processed in
// the given order; Discover already sorts them largest first so the longest
// feeds start early. A canceled ctx stops new feeds from starting and Run
// returns the partial summary together with ctx.Err().
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	ctx, jobID := logger.NewJobContext(ctx)
	ctx, span := observability.StartSpan(ctx, "pipeline.Run", attribute.Int("feeds", len(paths)))
	log := logger.FromContext(ctx, r.logger)
	log.Info("starting batch", zap.Int("feeds", len(paths)), zap.Int("workers", r.config.Workers))

	results := make([]FeedResult, len(paths))
	var (
		scheduled int
		tracker   = metrics.NewThroughputTracker("batch")
		canceled  error
	)

	report, _ := performance.Measure("batch "+jobID, func() (int64, int64, error) {
		var g errgroup.Group
		g.SetLimit(r.config.Workers)
		for i, path := range paths {
			if err := ctx.Err(); err != nil {
				canceled = err
				break
			}
			scheduled++
			g.Go(func() error {
				results[i] = r.runFeed(ctx, path)
				tracker.Increment(int64(results[i].Stats.Records))
				return nil
			})
		}
		_ = g.Wait()

		var records, bytes int64
		for _, res := range results[:scheduled] {
			records += int64(res.Stats.Records)
			bytes += int64(res.Stats.Bytes)
		}
		return records, bytes, nil
	})

	summary := newSummary(results[:scheduled], report)
	summary.JobID = jobID
	summary.Throughput = tracker.GetAndReset()

	span.SetAttributes(
		attribute.Int("loaded", summary.Loaded),
		attribute.Int("failed", summary.Failed),
		attribute.Int("records", summary.Records),
	)
	observability.EndSpan(span, canceled)
	log.Info("finished batch",
		zap.Int("loaded", summary.Loaded),
		zap.Int("failed", summary.Failed),
		zap.Int("records", summary.Records),
		zap.Duration("duration", summary.Duration),
	)
	return summary, canceled
}

func (r *Runner) runFeed(ctx context.Context, path string) (res FeedResult) {
	name := FeedName(path)
	ctx = logger.WithFeed(ctx, name)
	log := logger.FromContext(ctx, r.logger)
	res = FeedResult{Name: name, Path: path}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	src, err := source.Open(ctx, path, r.config.Source)
	if err != nil {
		res.Err = err
		log.Warn("skipping feed that cannot be opened", zap.Error(err))
		return res
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close source", zap.Error(err))
		}
	}()
	res.Source = src.Kind()

	feed := gtfs.Load(ctx, src, r.config.Filter, r.config.Feed)
	res.Stats = feed.Stats()

	for _, sink := range r.config.Sinks {
		if err := sink.Consume(ctx, name, feed); err != nil {
			res.Err = err
			log.Warn("skipping feed after sink failure", zap.Error(err))
			return res
		}
	}

	log.Info("loaded feed",
		zap.String("source", res.Source),
		zap.Int("records", res.Stats.Records),
		zap.Int("files", res.Stats.Loaded),
		zap.Int("failed_files", res.Stats.Failed),
	)
	return res
}

// FeedName derives a feed name from its location: the last path element
// without a .zip extension.
func FeedName(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	base := filepath.Base(trimmed)
	if strings.EqualFold(filepath.Ext(base), ".zip") {
		base = base[:len(base)-len(".zip")]
	}
	return base
}
