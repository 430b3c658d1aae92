package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/velo/internal/pipeline"
	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Velo v"+version)
}

func TestHeader(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	out, err := execute(t, "header", filepath.Join(dir, "stops.txt"))
	require.NoError(t, err)
	assert.Equal(t, "stop_id\nstop_name\nstop_lat\nstop_lon\nlocation_type\nwheelchair_boarding\n", out)
}

func TestHeaderCompressed(t *testing.T) {
	data, err := compression.Compress(compression.Gzip, []byte("\xef\xbb\xbfa,b\n1,2\n"), compression.Default)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "x.csv.gz")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, err := execute(t, "header", path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestStatsJSON(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	out, err := execute(t, "stats", dir, "--json", "--chunk-size", "16", "--workers", "3")
	require.NoError(t, err)

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 17, summary.Records)
}

func TestStatsText(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	out, err := execute(t, "stats", dir, "--files", "stops,trips", "--profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Feeds: 1 loaded, 0 failed")
	assert.Contains(t, out, "Total: 6 records")
	assert.Contains(t, out, "Performance Profile:")
}

func TestStatsNoFeeds(t *testing.T) {
	_, err := execute(t, "stats", t.TempDir())
	assert.ErrorContains(t, err, "no feeds found")
}

func TestStatsUnknownFile(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	_, err := execute(t, "stats", dir, "--files", "shapes")
	assert.ErrorContains(t, err, "unknown feed file")
}

func TestExportSingleFile(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	out := filepath.Join(t.TempDir(), "routes.ndjson")
	stdout, err := execute(t, "export", dir, "--file", "routes", "--format", "json", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 2 rows")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"route_long_name":"Main Line"`)
}

func TestExportAllFiles(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	out := t.TempDir()
	stdout, err := execute(t, "export", dir, "--format", "parquet", "--compress", "zstd", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "feed: 17 records from 8 files")

	for _, name := range []string{"stops", "stop_times", "feed_info"} {
		_, err := os.Stat(filepath.Join(out, "feed", name+".parquet"))
		assert.NoError(t, err, name)
	}
}

func TestExportMissingFile(t *testing.T) {
	dir := testutil.WriteFeedDir(t, testutil.SampleFeed())
	_, err := execute(t, "export", dir, "--file", "attributions", "--out", filepath.Join(t.TempDir(), "a.parquet"))
	assert.Error(t, err)

	_, err = execute(t, "export", dir, "--file", "../stops", "--out", filepath.Join(t.TempDir(), "a.parquet"))
	assert.ErrorContains(t, err, "not a path")
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "stats", t.TempDir(), "--chunk-size", "-1")
	assert.ErrorContains(t, err, "chunk_size")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  format: bogus\n"), 0o600))
	_, err := execute(t, "--config", path, "stats", t.TempDir())
	assert.ErrorContains(t, err, "export.format")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("VELO_CHUNK_SIZE", "-5")
	_, err := execute(t, "stats", t.TempDir())
	assert.ErrorContains(t, err, "chunk_size")
}

func TestMetricsRouter(t *testing.T) {
	srv := httptest.NewServer(newMetricsRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
