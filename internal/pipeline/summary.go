package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/velo/pkg/gtfs"
	"github.com/ajitpratap0/velo/pkg/performance"
)

// FeedResult is the outcome of one feed. Err is set when the feed could not
// be opened or a sink failed; file level failures only appear in Stats.
type FeedResult struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Source   string        `json:"source,omitempty"`
	Stats    gtfs.Stats    `json:"stats"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// OK reports whether the feed loaded and every sink accepted it.
func (r *FeedResult) OK() bool { return r.Err == nil }

// FileTotals aggregates one feed file across every loaded feed.
type FileTotals struct {
	Name     string        `json:"name"`
	Loaded   int           `json:"loaded"`
	Missing  int           `json:"missing"`
	Failed   int           `json:"failed"`
	Records  int           `json:"records"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
}

// Summary aggregates a batch run.
type Summary struct {
	JobID      string                     `json:"job_id"`
	Feeds      []FeedResult               `json:"feeds"`
	Files      []FileTotals               `json:"files"`
	Loaded     int                        `json:"loaded"`
	Failed     int                        `json:"failed"`
	Records    int                        `json:"records"`
	Bytes      int                        `json:"bytes"`
	Duration   time.Duration              `json:"duration_ns"`
	Throughput float64                    `json:"records_per_second"`
	Report     *performance.Report        `json:"-"`
	Resources  *performance.ResourceUsage `json:"resources,omitempty"`
}

func newSummary(results []FeedResult, report *performance.Report) *Summary {
	s := &Summary{Feeds: results, Report: report}
	if report != nil {
		s.Duration = report.Duration
		s.Resources = report.Resources
	}

	totals := make(map[string]*FileTotals, len(gtfs.Names))
	for _, n := range gtfs.Names {
		totals[n] = &FileTotals{Name: n}
	}
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			res.Error = res.Err.Error()
			s.Failed++
			continue
		}
		s.Loaded++
		s.Records += res.Stats.Records
		s.Bytes += res.Stats.Bytes
		for _, fs := range res.Stats.Files {
			t := totals[fs.Name]
			switch fs.Status {
			case gtfs.StatusLoaded:
				t.Loaded++
			case gtfs.StatusMissing:
				t.Missing++
			case gtfs.StatusFailed:
				t.Failed++
			}
			t.Records += fs.Records
			t.Bytes += fs.Bytes
			t.Duration += fs.Duration
		}
	}
	for _, n := range gtfs.Names {
		s.Files = append(s.Files, *totals[n])
	}
	return s
}

// File returns the totals of the named feed file.
func (s *Summary) File(name string) (FileTotals, bool) {
	name = strings.TrimSuffix(name, gtfs.Ext)
	for _, t := range s.Files {
		if t.Name == name {
			return t, true
		}
	}
	return FileTotals{}, false
}

// String renders per-file totals followed by the failed feeds.
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feeds: %d loaded, %d failed in %v\n", s.Loaded, s.Failed, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "%-16s %8s %8s %8s %12s %10s\n", "file", "loaded", "missing", "failed", "records", "size")
	for _, t := range s.Files {
		fmt.Fprintf(&sb, "%-16s %8d %8d %8d %12d %10s\n",
			t.Name, t.Loaded, t.Missing, t.Failed, t.Records, performance.FormatBytes(uint64(t.Bytes)))
	}
	fmt.Fprintf(&sb, "Total: %d records, %s, %.0f records/sec\n",
		s.Records, performance.FormatBytes(uint64(s.Bytes)), s.Throughput)
	if s.Resources != nil {
		fmt.Fprintf(&sb, "RSS: %s\n", performance.FormatBytes(s.Resources.MemoryRSS))
	}
	for _, f := range s.Feeds {
		if f.Err != nil {
			fmt.Fprintf(&sb, "FAILED %s: %v\n", f.Path, f.Err)
		}
	}
	return sb.String()
}
