package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SampleFeed returns a tiny but complete transit feed keyed by file name.
func SampleFeed() map[string]string {
	return map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"TM,TriMet,https://trimet.org,America/Los_Angeles\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,wheelchair_boarding\n" +
			"1,\"Main St & 1st\",45.5231,-122.6765,0,1\n" +
			"2,\"Main St & 2nd\",45.5240,-122.6770,,\n" +
			"3,Central Station,45.5300,-122.6800,1,2\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type,route_color\n" +
			"R1,TM,1,Main Line,3,FF0000\n" +
			"R2,TM,MAX,Blue Line,0,\n",
		"trips.txt": "route_id,service_id,trip_id,direction_id,bikes_allowed\n" +
			"R1,WK,T1,0,1\n" +
			"R1,WK,T2,1,\n" +
			"R2,WE,T3,0,2\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,timepoint\n" +
			"T1,08:00:00,08:00:00,1,1,0,1\n" +
			"T1,08:05:00,08:05:30,2,2,,\n" +
			"T2,25:10:00,25:10:00,3,1,1,0\n" +
			"T3,,,1,1,,\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20241231\n" +
			"WE,0,0,0,0,0,1,1,20240101,20241231\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"WK,20240704,2\n",
		"feed_info.txt": "feed_publisher_name,feed_publisher_url,feed_lang,feed_start_date,feed_end_date\n" +
			"Velo,https://example.org,en,20240101,20241231\n",
	}
}

// WriteFeedDir writes files into a new directory under t.TempDir.
func WriteFeedDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "feed")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

// WriteFeedZip writes files into a zip archive at path.
func WriteFeedZip(t *testing.T, path string, files map[string]string) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// FeedSuite provides a temp directory and context for feed loading tests.
type FeedSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// SetupTest runs before each test in the suite
func (s *FeedSuite) SetupTest() {
	s.ctx, s.cancel = TestContext(s.T())
	s.tempDir = s.T().TempDir()
}

// TearDownTest runs after each test in the suite
func (s *FeedSuite) TearDownTest() {
	s.cancel()
}

// Context returns the test context
func (s *FeedSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *FeedSuite) TempDir() string {
	return s.tempDir
}

// CreateFeedDir writes a feed directory named name under the suite temp dir.
func (s *FeedSuite) CreateFeedDir(name string, files map[string]string) string {
	dir := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.MkdirAll(dir, 0o755))
	for file, content := range files {
		s.Require().NoError(os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600))
	}
	return dir
}

// CreateFeedZip writes a zipped feed named name under the suite temp dir.
func (s *FeedSuite) CreateFeedZip(name string, files map[string]string) string {
	return WriteFeedZip(s.T(), filepath.Join(s.tempDir, name), files)
}
