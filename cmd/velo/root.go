package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/velo/pkg/config"
	"github.com/ajitpratap0/velo/pkg/gtfs"
	"github.com/ajitpratap0/velo/pkg/logger"
	"github.com/ajitpratap0/velo/pkg/observability"
	"github.com/ajitpratap0/velo/pkg/performance"
	"github.com/ajitpratap0/velo/pkg/source"
	"github.com/ajitpratap0/velo/pkg/table"
)

// app holds what every command needs once flags and configuration are
// resolved.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	log      *zap.Logger
	cleanups []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "velo",
		Short: "Velo - parallel schema-driven CSV to columns",
		Long: `Velo parses CSV buffers against declared schemas into typed columns,
splitting each buffer into record-aligned chunks that decode in parallel.
It ships with the transit feed schemas and can report feed statistics,
export tables as Arrow, Parquet, Avro or JSON, and COPY them into PostgreSQL.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML configuration file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Int("chunk-size", config.DefaultChunkSize, "Approximate chunk size in bytes (0 = one record per chunk)")
	pf.Int("workers", 0, "Concurrent chunk decoders (0 = number of CPUs)")
	pf.Int("feed-workers", 0, "Feeds loaded at once by batch commands")
	pf.Bool("mmap", false, "Memory-map local feed files")
	pf.String("files", "", "Comma separated feed files to load (all, none or names)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics and /healthz on this address")
	pf.Bool("trace", false, "Export trace spans to stderr")
	pf.String("cpuprofile", "", "Write a CPU profile to this file")

	a.v.SetEnvPrefix("VELO")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		newVersionCmd(),
		newHeaderCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newLoadPGCmd(a),
	)
	return root
}

// setup resolves configuration with precedence flag > VELO_* env > file >
// defaults, then starts logging, metrics, tracing and profiling.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	cfg.Logging.OutputPaths = []string{"stderr"}
	if path := a.v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return err
		}
	}
	if a.v.IsSet("log-level") && a.v.GetString("log-level") != "" {
		cfg.Logging.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("chunk-size") {
		cfg.Parse.ChunkSize = a.v.GetInt("chunk-size")
	}
	if a.v.IsSet("workers") {
		cfg.Parse.Workers = a.v.GetInt("workers")
	}
	if a.v.IsSet("feed-workers") {
		cfg.Parse.FeedWorkers = a.v.GetInt("feed-workers")
	}
	if a.v.IsSet("mmap") {
		cfg.Source.Mmap = a.v.GetBool("mmap")
	}
	if files := a.v.GetString("files"); files != "" {
		cfg.Source.Files = strings.Split(files, ",")
	}
	if addr := a.v.GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = addr
	}
	if a.v.GetBool("trace") {
		cfg.Tracing.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return err
	}
	a.log = log.With(zap.String("command", cmd.Name()))
	a.cleanups = append(a.cleanups, func(context.Context) error {
		_ = log.Sync()
		return nil
	})

	if cfg.Metrics.Enabled {
		stop, err := serveMetrics(cfg.Metrics.Address, a.log)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, stop)
	}
	if cfg.Tracing.Enabled {
		tc := observability.DefaultTracingConfig()
		tc.ServiceName = cfg.Tracing.ServiceName
		tc.ServiceVersion = version
		tc.SamplingRate = cfg.Tracing.SampleRate
		tc.Writer = cmd.ErrOrStderr()
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, shutdown)
	}
	if path := a.v.GetString("cpuprofile"); path != "" {
		stop, err := performance.StartCPUProfile(path)
		if err != nil {
			return err
		}
		a.cleanups = append(a.cleanups, func(context.Context) error { return stop() })
	}
	return nil
}

// teardown runs cleanups in reverse order.
func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](cmd.Context()); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

func (a *app) parseConfig() table.Config {
	return table.Config{ChunkSize: a.cfg.Parse.ChunkSize, Workers: a.cfg.GetWorkers()}
}

func (a *app) feedOptions() gtfs.Options {
	opts := gtfs.DefaultOptions()
	opts.Parse = a.parseConfig()
	opts.Logger = a.log
	return opts
}

func (a *app) sourceOptions() source.Options {
	return source.Options{
		Mmap:            a.cfg.Source.Mmap,
		Region:          a.cfg.Source.Region,
		CredentialsFile: a.cfg.Source.CredentialsFile,
		Logger:          a.log,
	}
}

// filter returns the configured file filter, or only when set.
func (a *app) filter(only string) (gtfs.Filter, error) {
	if only != "" {
		return gtfs.ParseFilter(only)
	}
	return gtfs.ParseFilter(strings.Join(a.cfg.Source.Files, ","))
}
