// Package config provides the configuration system for Velo.
// A single Config structure covers the parse engine, buffer sources,
// exports and the observability stack.
//
// The configuration is organized into logical sections:
//   - Parse: chunk size and worker count for the table pipeline
//   - Source: how buffers are acquired (read or memory-mapped)
//   - Export: columnar output format and compression
//   - Postgres: bulk load destination
//   - Logging, Metrics, Tracing: observability
//
// Example usage:
//
//	cfg := config.Default()
//	if err := config.Load("velo.yaml", cfg); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
	"slices"
)

// DefaultChunkSize is the target chunk size in bytes for the chunk splitter.
const DefaultChunkSize = 256 * 1024

// Config is the root configuration document.
type Config struct {
	Parse    ParseConfig    `yaml:"parse" json:"parse"`
	Source   SourceConfig   `yaml:"source" json:"source"`
	Export   ExportConfig   `yaml:"export" json:"export"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

// ParseConfig controls the table pipeline.
type ParseConfig struct {
	// ChunkSize is the approximate byte length of each parallel chunk.
	// Zero is legal and produces one record per chunk.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// Workers bounds concurrent chunk decoding (0 = runtime.NumCPU())
	Workers int `yaml:"workers" json:"workers"`
	// FeedWorkers bounds how many feeds the batch loader handles at once
	FeedWorkers int `yaml:"feed_workers" json:"feed_workers"`
}

// SourceConfig controls buffer acquisition.
type SourceConfig struct {
	// Mmap maps directory files into memory instead of reading them
	Mmap bool `yaml:"mmap" json:"mmap"`
	// Files restricts which feed files are loaded (empty = all)
	Files []string `yaml:"files" json:"files"`
	// Region is used for s3:// sources
	Region string `yaml:"region" json:"region"`
	// CredentialsFile is a service account key used for gs:// sources
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
}

// ExportConfig controls columnar exports.
type ExportConfig struct {
	// Format is one of arrow, parquet, avro, json
	Format string `yaml:"format" json:"format"`
	// Compression is one of none, snappy, gzip, zstd, lz4 (format dependent)
	Compression string `yaml:"compression" json:"compression"`
}

// PostgresConfig contains the bulk load destination.
type PostgresConfig struct {
	DSN    string `yaml:"dsn" json:"dsn"`
	Schema string `yaml:"schema" json:"schema"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	Development bool     `yaml:"development" json:"development"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
}

var (
	exportFormats      = []string{"arrow", "parquet", "avro", "json"}
	exportCompressions = []string{"", "none", "snappy", "gzip", "zstd", "lz4", "deflate"}
	logEncodings       = []string{"json", "console"}
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			ChunkSize:   DefaultChunkSize,
			Workers:     runtime.NumCPU(),
			FeedWorkers: 2,
		},
		Export: ExportConfig{
			Format:      "parquet",
			Compression: "snappy",
		},
		Postgres: PostgresConfig{
			Schema: "public",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Tracing: TracingConfig{
			ServiceName: "velo",
			SampleRate:  1.0,
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Parse.ChunkSize < 0 {
		return fmt.Errorf("parse.chunk_size must be non-negative")
	}
	if c.Parse.Workers < 0 {
		return fmt.Errorf("parse.workers must be non-negative")
	}
	if c.Parse.FeedWorkers < 0 {
		return fmt.Errorf("parse.feed_workers must be non-negative")
	}
	if !slices.Contains(exportFormats, c.Export.Format) {
		return fmt.Errorf("export.format must be one of %v, got %q", exportFormats, c.Export.Format)
	}
	if !slices.Contains(exportCompressions, c.Export.Compression) {
		return fmt.Errorf("export.compression %q is not supported", c.Export.Compression)
	}
	if !slices.Contains(logEncodings, c.Logging.Encoding) {
		return fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	return nil
}

// GetWorkers returns the effective number of chunk workers
func (c *Config) GetWorkers() int {
	if c.Parse.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Parse.Workers
}

// GetFeedWorkers returns the effective number of concurrent feeds
func (c *Config) GetFeedWorkers() int {
	if c.Parse.FeedWorkers <= 0 {
		return 1
	}
	return c.Parse.FeedWorkers
}
