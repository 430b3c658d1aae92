// Package metrics provides performance tracking for Velo using Prometheus
// metrics. It offers pre-registered collectors for the parse pipeline and the
// feed loader, plus small timing and throughput helpers.
//
// # Basic Usage
//
//	// Count parsed records
//	metrics.RecordsParsed.WithLabelValues("stop_times").Add(float64(n))
//
//	// Time a parse
//	timer := metrics.NewTimer("stop_times")
//	tbl, err := parser.Parse(ctx, buf)
//	metrics.ParseDuration.WithLabelValues("stop_times").Observe(timer.Stop().Seconds())
//
//	// Track throughput
//	tracker := metrics.NewThroughputTracker("stop_times")
//	tracker.Increment(int64(tbl.Len()))
//	rps := tracker.GetAndReset()
//
// All metrics are registered with the default Prometheus registry on package
// initialization and can be served with promhttp.Handler.
package metrics

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values for FeedFiles.
const (
	StatusLoaded  = "loaded"
	StatusMissing = "missing"
	StatusFailed  = "failed"
)

var (
	// RecordsParsed counts records produced by successful parses.
	// Labels: table
	RecordsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velo_records_parsed_total",
			Help: "Total number of records parsed",
		},
		[]string{"table"},
	)

	// ChunksParsed counts record-aligned chunks decoded by the pipeline.
	// Labels: table
	ChunksParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velo_chunks_parsed_total",
			Help: "Total number of chunks decoded",
		},
		[]string{"table"},
	)

	// ParseDuration tracks wall time of a full table parse in seconds.
	// Labels: table
	ParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "velo_parse_duration_seconds",
			Help: "Table parse duration in seconds",
			Buckets: []float64{
				0.0001, // 100μs - tiny files such as feed_info
				0.001,  // 1ms
				0.01,   // 10ms
				0.1,    // 100ms
				1,      // 1s - large stop_times
				10,     // 10s
			},
		},
		[]string{"table"},
	)

	// OptionalColumnsDropped counts optional columns removed from a result
	// because at least one chunk failed to decode them.
	// Labels: table, column
	OptionalColumnsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velo_optional_columns_dropped_total",
			Help: "Optional columns dropped after a decode failure",
		},
		[]string{"table", "column"},
	)

	// FeedFiles counts feed files by outcome.
	// Labels: file, status (loaded/missing/failed)
	FeedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velo_feed_files_total",
			Help: "Feed files processed by outcome",
		},
		[]string{"file", "status"},
	)

	// BytesRead counts raw input bytes acquired from a source.
	// Labels: source (dir/mmap/zip/s3/gcs)
	BytesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velo_bytes_read_total",
			Help: "Raw bytes read from buffer sources",
		},
		[]string{"source"},
	)

	// Throughput tracks records per second for the most recent window.
	// Labels: table
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "velo_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"table"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks throughput (records per second) over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Records processed since last reset
	lastReset time.Time // Time of last reset
	table     string
}

// NewThroughputTracker creates a new throughput tracker for a table.
func NewThroughputTracker(table string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		table:     table,
	}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (records/second),
// updates the Prometheus gauge, resets the counter, and returns
// the calculated throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.table).Set(throughput)

	return throughput
}

// LatencyTracker keeps a bounded window of durations for percentile reports.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a new latency tracker
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value, evicting the oldest when full.
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		copy(l.values, l.values[1:])
		l.values = l.values[:len(l.values)-1]
	}
	l.values = append(l.values, d)
}

// Count returns the number of recorded values.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// GetPercentile returns the nearest-rank percentile value (0-100).
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := slices.Clone(l.values)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}
