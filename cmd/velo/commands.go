package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/velo/internal/pipeline"
	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/destinations/postgres"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/formats/columnar"
	"github.com/ajitpratap0/velo/pkg/gtfs"
	"github.com/ajitpratap0/velo/pkg/mmap"
	"github.com/ajitpratap0/velo/pkg/source"
	"github.com/ajitpratap0/velo/pkg/table"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// version needs no configuration
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Velo v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newHeaderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "header FILE",
		Short: "Print the column names of a CSV file",
		Long: `Print the header of a CSV file, one column per line. Compressed files
(.gz, .zst, .lz4, .sz, .s2, .deflate) are decompressed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, release, err := readLocal(args[0])
			if err != nil {
				return err
			}
			defer release()

			names, err := table.ReadHeader(buf)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			a.log.Debug("read header", zap.String("path", args[0]), zap.Int("columns", len(names)))
			return nil
		},
	}
}

// readLocal returns the decompressed contents of a local file. Plain files
// are memory-mapped; release unmaps them.
func readLocal(path string) ([]byte, func(), error) {
	alg, _ := compression.FromExtension(path)
	if alg != compression.None {
		data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read file").WithDetail("path", path)
		}
		data, err = compression.Decompress(alg, data)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to decompress file").WithDetail("path", path)
		}
		return data, func() {}, nil
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to map file").WithDetail("path", path)
	}
	return r.Bytes(), func() { _ = r.Close() }, nil
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON, profile bool

	cmd := &cobra.Command{
		Use:   "stats PATH",
		Short: "Load every feed under PATH and report per-file totals",
		Long: `Load every feed found at PATH and report record counts per feed file.
PATH may be a feed directory, a .zip archive, a directory of feeds or an
s3:// or gs:// location. Feeds that fail to load are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := feedPaths(args[0])
			if err != nil {
				return err
			}
			filter, err := a.filter("")
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(pipeline.Config{
				Workers: a.cfg.GetFeedWorkers(),
				Filter:  filter,
				Feed:    a.feedOptions(),
				Source:  a.sourceOptions(),
			}, a.log)

			summary, err := runner.Run(cmd.Context(), paths)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprint(out, summary)
			if profile && summary.Report != nil {
				fmt.Fprint(out, summary.Report)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&profile, "profile", false, "Print a resource usage report")
	return cmd
}

// feedPaths discovers local feeds; remote locations are taken as one feed.
func feedPaths(path string) ([]string, error) {
	if isRemote(path) {
		return []string{path}, nil
	}
	candidates, err := pipeline.Discover(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrorTypeNotFound, "no feeds found").WithDetail("path", path)
	}
	return pipeline.Paths(candidates), nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "gs://")
}

func newExportCmd(a *app) *cobra.Command {
	var file, format, compress, out string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "export FEED",
		Short: "Export feed tables as Arrow, Parquet, Avro or JSON",
		Long: `Export one feed file to --out, or every loaded file into the --out
directory when --file is not given.

Example:
  velo export ./ttc --file stops --format parquet --out stops.parquet --compress zstd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the configured codec only applies to the configured format
			if format == "" {
				format = a.cfg.Export.Format
				if compress == "" {
					compress = a.cfg.Export.Compression
				}
			}
			f, err := columnar.ParseFormat(format)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "invalid --format")
			}
			opts := columnar.Options{Compression: compress, BatchSize: batchSize}

			if file == "" {
				return a.runSinks(cmd, args[0], &pipeline.ExportSink{
					Dir: out, Format: f, Options: opts, Logger: a.log,
				})
			}
			return a.withTable(cmd, args[0], file, func(tbl *table.Table) error {
				stats, err := pipeline.ExportFile(out, f, tbl, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows (%d bytes) to %s\n", stats.Rows, stats.Bytes, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Feed file to export (default: all loaded files)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: arrow, parquet, avro, json")
	cmd.Flags().StringVar(&compress, "compress", "", "Compression codec for the chosen format")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, or directory without --file (required)")
	cmd.Flags().IntVar(&batchSize, "batch-size", columnar.DefaultBatchSize, "Rows per record batch")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newLoadPGCmd(a *app) *cobra.Command {
	var file, dsn, schema, tableName string
	var create, truncate bool
	var maxConns int32

	cmd := &cobra.Command{
		Use:   "load-pg FEED",
		Short: "COPY feed tables into PostgreSQL",
		Long: `COPY one feed file, or every loaded file, into PostgreSQL. Tables are
named <feed>_<file> unless --table is given with --file.

Example:
  velo load-pg ./ttc --file stops --dsn postgres://localhost/transit --create`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.Postgres.DSN
			}
			if schema == "" {
				schema = a.cfg.Postgres.Schema
			}
			pool, err := postgres.Connect(cmd.Context(), dsn, maxConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if file == "" {
				return a.runSinks(cmd, args[0], &pipeline.PostgresSink{
					Conn: pool, Schema: schema, Create: create, Truncate: truncate, Logger: a.log,
				})
			}
			if tableName == "" {
				tableName = pipeline.TableName(pipeline.FeedName(args[0]), file)
			}
			return a.withTable(cmd, args[0], file, func(tbl *table.Table) error {
				n, err := postgres.CopyTable(cmd.Context(), pool, tbl, postgres.Options{
					Schema: schema, Table: tableName, Create: create, Truncate: truncate, Logger: a.log,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "copied %d rows into %s.%s\n", n, schema, tableName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Feed file to load (default: all loaded files)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (or VELO postgres.dsn)")
	cmd.Flags().StringVar(&schema, "schema", "", "Target schema")
	cmd.Flags().StringVar(&tableName, "table", "", "Target table, with --file")
	cmd.Flags().BoolVar(&create, "create", false, "CREATE TABLE IF NOT EXISTS before copying")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "TRUNCATE the table before copying")
	cmd.Flags().Int32Var(&maxConns, "max-conns", 4, "Maximum pool connections")
	return cmd
}

// runSinks loads one feed with the configured filter and hands it to sink.
func (a *app) runSinks(cmd *cobra.Command, path string, sink pipeline.Sink) error {
	filter, err := a.filter("")
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(pipeline.Config{
		Workers: 1,
		Filter:  filter,
		Feed:    a.feedOptions(),
		Source:  a.sourceOptions(),
		Sinks:   []pipeline.Sink{sink},
	}, a.log)
	summary, err := runner.Run(cmd.Context(), []string{path})
	if err != nil {
		return err
	}
	if f := summary.Feeds[0]; f.Err != nil {
		return f.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records from %d files\n",
		summary.Feeds[0].Name, summary.Records, summary.Feeds[0].Stats.Loaded)
	return nil
}

// withTable loads a single feed file and calls fn with its table while the
// source is still open.
func (a *app) withTable(cmd *cobra.Command, path, file string, fn func(*table.Table) error) error {
	if filepath.Base(file) != file {
		return errors.New(errors.ErrorTypeValidation, "--file takes a feed file name, not a path")
	}
	filter, err := a.filter(file)
	if err != nil {
		return err
	}
	src, err := source.Open(cmd.Context(), path, a.sourceOptions())
	if err != nil {
		return err
	}
	defer src.Close()

	feed := gtfs.Load(cmd.Context(), src, filter, a.feedOptions())
	f := feed.File(file)
	if f.Table == nil {
		if f.Err != nil {
			return f.Err
		}
		return errors.New(errors.ErrorTypeNotFound, "feed file did not load").WithDetail("file", file)
	}
	return fn(f.Table)
}
