package gtfs

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/field"
	"github.com/ajitpratap0/velo/pkg/table"
	"github.com/ajitpratap0/velo/pkg/testutil"
)

func sampleBuffers() Buffers {
	bufs := Buffers{}
	for name, content := range testutil.SampleFeed() {
		bufs[name] = []byte(content)
	}
	return bufs
}

func load(t *testing.T, r Reader, filter Filter) *Feed {
	t.Helper()
	opts := DefaultOptions()
	opts.Parse = table.Config{ChunkSize: 16, Workers: 2}
	opts.Logger = testutil.TestLogger(t)
	return Load(context.Background(), r, filter, opts)
}

func TestLoadSampleFeed(t *testing.T) {
	feed := load(t, sampleBuffers(), All())

	assert.Equal(t, 4, feed.File(StopTimes).Len())
	assert.Equal(t, 3, feed.File(Stops).Len())
	assert.Equal(t, 3, feed.File(Trips).Len())
	assert.Equal(t, 2, feed.File(Routes).Len())
	assert.Equal(t, 2, feed.File(Calendar).Len())
	assert.Equal(t, 1, feed.File(CalendarDates).Len())
	assert.Equal(t, 1, feed.File(Agency).Len())
	assert.Equal(t, 1, feed.File("feed_info.txt").Len())

	attributions := feed.File(Attributions)
	assert.Equal(t, StatusMissing, attributions.Status)
	assert.Nil(t, attributions.Table)
	assert.ErrorIs(t, attributions.Err, fs.ErrNotExist)
}

func TestStopTimesColumns(t *testing.T) {
	feed := load(t, sampleBuffers(), Only(StopTimes))
	st := feed.Table(StopTimes)
	require.NotNil(t, st)

	trips, ok := table.Values[string](st, "trip_id")
	require.True(t, ok)
	assert.Equal(t, []string{"T1", "T1", "T2", "T3"}, trips)

	arrivals, ok := table.Values[field.ServiceTime](st, "arrival_time")
	require.True(t, ok)
	assert.Equal(t, field.ServiceTime{Seconds: 8 * 3600, Valid: true}, arrivals[0])
	assert.Equal(t, uint32(25*3600+10*60), arrivals[2].Seconds, "times past midnight are kept")
	assert.True(t, arrivals[3].IsNull())

	pickups, _ := table.Values[PickupDropOff](st, "pickup_type")
	assert.Equal(t, []PickupDropOff{PickupRegular, PickupRegular, PickupNotAvailable, PickupRegular}, pickups)

	timepoints, _ := table.Values[Timepoint](st, "timepoint")
	assert.Equal(t, []Timepoint{TimepointExact, TimepointExact, TimepointApproximate, TimepointExact}, timepoints)

	assert.False(t, st.Has("shape_dist_traveled"))
}

func TestStopsAndRoutesColumns(t *testing.T) {
	feed := load(t, sampleBuffers(), Only("stops.txt", "routes"))

	stops := feed.Table(Stops)
	require.NotNil(t, stops)
	kinds, _ := table.Values[LocationType](stops, "location_type")
	assert.Equal(t, []LocationType{LocationStop, LocationStop, LocationStation}, kinds)
	wheelchair, _ := table.Values[Accessibility](stops, "wheelchair_boarding")
	assert.Equal(t, []Accessibility{AccessibilityAvailable, AccessibilityNoInfo, AccessibilityNotAvailable}, wheelchair)
	lat, _ := table.Values[field.OptionalFloat](stops, "stop_lat")
	assert.InDelta(t, 45.5231, lat[0].Value, 1e-4)

	routes := feed.Table(Routes)
	require.NotNil(t, routes)
	types, _ := table.Values[RouteType](routes, "route_type")
	assert.Equal(t, []RouteType{RouteBus, RouteTram}, types)
	colors, _ := table.Values[field.Color](routes, "route_color")
	assert.Equal(t, []field.Color{{R: 0xFF, Valid: true}, {}}, colors)

	assert.Equal(t, StatusSkipped, feed.File(Trips).Status)
}

func TestCalendarColumns(t *testing.T) {
	feed := load(t, sampleBuffers(), Only(Calendar, CalendarDates))

	monday, _ := table.Values[Availability](feed.Table(Calendar), "monday")
	assert.Equal(t, []Availability{Available, NotAvailable}, monday)
	start, _ := table.Values[field.Date](feed.Table(Calendar), "start_date")
	assert.Equal(t, field.Date{Year: 2024, Month: 1, Day: 1, Valid: true}, start[0])

	exceptions, _ := table.Values[ExceptionType](feed.Table(CalendarDates), "exception_type")
	assert.Equal(t, []ExceptionType{ServiceRemoved}, exceptions)
}

func TestFailedFileIsIsolated(t *testing.T) {
	bufs := sampleBuffers()
	bufs["trips.txt"] = []byte("trip_headsign\nDowntown\n")
	bufs["routes.txt"] = []byte("route_id,route_sort_order\nR1,first\n")

	log, logs := testutil.ObservedLogger(zapcore.WarnLevel)
	opts := DefaultOptions()
	opts.Logger = log
	feed := Load(context.Background(), bufs, All(), opts)

	trips := feed.File(Trips)
	assert.Equal(t, StatusFailed, trips.Status)
	assert.True(t, errors.IsType(trips.Err, errors.ErrorTypeMissingColumn))

	routes := feed.File(Routes)
	require.Equal(t, StatusLoaded, routes.Status, "optional decode failures drop the column only")
	assert.False(t, routes.Table.Has("route_sort_order"))

	assert.Equal(t, 4, feed.File(StopTimes).Len())
	assert.Equal(t, 3, feed.File(Stops).Len())

	failures := logs.FilterMessage("feed file failed to parse").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "trips.txt", failures[0].ContextMap()["file"])
}

type failingReader struct{}

func (failingReader) ReadFile(context.Context, string) ([]byte, error) {
	return nil, errors.New(errors.ErrorTypeConnection, "connection reset")
}

func TestUnreadableFilesFail(t *testing.T) {
	feed := load(t, failingReader{}, Only(Stops))
	assert.Equal(t, StatusFailed, feed.File(Stops).Status)
	assert.True(t, errors.IsRetryable(feed.File(Stops).Err))
	assert.Equal(t, StatusSkipped, feed.File(StopTimes).Status)
}

func TestLoadNone(t *testing.T) {
	feed := load(t, sampleBuffers(), None())
	for _, f := range feed.Files() {
		assert.Equal(t, StatusSkipped, f.Status, f.Name)
	}
	assert.Equal(t, 0, feed.Stats().Records)
}

func TestFeedStats(t *testing.T) {
	feed := load(t, sampleBuffers(), All())
	stats := feed.Stats()

	assert.Equal(t, 8, stats.Loaded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 4+3+3+2+2+1+1+1, stats.Records)
	require.Len(t, stats.Files, len(Names))
	assert.Equal(t, StopTimes, stats.Files[0].Name)
	assert.Contains(t, stats.Files[0].Columns, "arrival_time")
	assert.Contains(t, feed.String(), "stop_times: 4")
}

func TestInternedIdentifiersMatch(t *testing.T) {
	opts := DefaultOptions()
	feed := Load(context.Background(), sampleBuffers(), Only(StopTimes), opts)
	plain := Load(context.Background(), sampleBuffers(), Only(StopTimes), Options{})

	a, _ := table.Values[string](feed.Table(StopTimes), "stop_id")
	b, _ := table.Values[string](plain.Table(StopTimes), "stop_id")
	assert.Equal(t, b, a)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("stops, stop_times.txt")
	require.NoError(t, err)
	assert.True(t, f.Includes(Stops))
	assert.True(t, f.Includes(StopTimes))
	assert.False(t, f.Includes(Trips))

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.True(t, f.Includes(Attributions))

	f, err = ParseFilter("none")
	require.NoError(t, err)
	assert.False(t, f.Includes(Stops))

	_, err = ParseFilter("shapes")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "must_phone", PickupMustPhone.String())
	assert.Equal(t, "boarding_area", LocationBoardingArea.String())
	assert.Equal(t, "monorail", RouteMonorail.String())
	assert.Equal(t, "unknown", RouteType(200).String())
}

func TestCodeTablesNeverFail(t *testing.T) {
	v, err := decodeRouteType([]byte(" 11 "))
	require.NoError(t, err)
	assert.Equal(t, RouteTrolleybus, v)

	v, err = decodeRouteType([]byte("700"))
	require.NoError(t, err)
	assert.Equal(t, RouteUnknown, v)

	d, err := decodeDirection([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, DirectionUnknown, d)

	y, _ := decodeYesNo(nil)
	assert.Equal(t, No, y)
}
