package gtfs

import (
	"github.com/ajitpratap0/velo/pkg/field"
	vstrings "github.com/ajitpratap0/velo/pkg/strings"
	"github.com/ajitpratap0/velo/pkg/table"
)

// File names, without the .txt extension, in load order.
const (
	StopTimes     = "stop_times"
	Stops         = "stops"
	Trips         = "trips"
	Routes        = "routes"
	Calendar      = "calendar"
	CalendarDates = "calendar_dates"
	Agency        = "agency"
	FeedInfo      = "feed_info"
	Attributions  = "attributions"
)

// Names lists every file the loader knows about.
var Names = []string{
	StopTimes, Stops, Trips, Routes, Calendar, CalendarDates, Agency, FeedInfo, Attributions,
}

// Schemas returns one schema per file. Identifiers in stop_times are interned
// through in when it is non-nil; every other string column is a view into the
// file buffer.
func Schemas(in *vstrings.Intern) map[string]*table.Schema {
	ids := field.Decoder[string](field.StringView)
	if in != nil {
		ids = field.Interned(in)
	}
	text := field.Decoder[string](field.StringView)

	return map[string]*table.Schema{
		StopTimes: table.NewSchema(StopTimes,
			table.Required("trip_id", ids),
			table.Optional("stop_id", ids),
			table.Optional("stop_sequence", field.Uint32),
			table.Optional("arrival_time", field.HHMMSS),
			table.Optional("departure_time", field.HHMMSS),
			table.Optional("location_group_id", text),
			table.Optional("location_id", text),
			table.Optional("stop_headsign", text),
			table.Optional("start_pickup_drop_off_window", field.HHMMSS),
			table.Optional("end_pickup_drop_off_window", field.HHMMSS),
			table.Optional("pickup_type", decodePickupDropOff),
			table.Optional("drop_off_type", decodePickupDropOff),
			table.Optional("continuous_pickup", decodePickupDropOff),
			table.Optional("continuous_drop_off", decodePickupDropOff),
			table.Optional("shape_dist_traveled", field.OptionalFloat32),
			table.Optional("timepoint", decodeTimepoint),
			table.Optional("pickup_booking_rule_id", text),
			table.Optional("drop_off_booking_rule_id", text),
		),
		Stops: table.NewSchema(Stops,
			table.Required("stop_id", text),
			table.Optional("stop_code", text),
			table.Optional("stop_name", text),
			table.Optional("tts_stop_name", text),
			table.Optional("stop_desc", text),
			table.Optional("stop_lat", field.OptionalFloat32),
			table.Optional("stop_lon", field.OptionalFloat32),
			table.Optional("zone_id", text),
			table.Optional("stop_url", text),
			table.Optional("location_type", decodeLocationType),
			table.Optional("parent_station", text),
			table.Optional("stop_timezone", text),
			table.Optional("wheelchair_boarding", decodeAccessibility),
			table.Optional("level_id", text),
			table.Optional("platform_code", text),
		),
		Trips: table.NewSchema(Trips,
			table.Required("route_id", text),
			table.Required("service_id", text),
			table.Required("trip_id", text),
			table.Optional("trip_headsign", text),
			table.Optional("trip_short_name", text),
			table.Optional("direction_id", decodeDirection),
			table.Optional("block_id", text),
			table.Optional("shape_id", text),
			table.Optional("wheelchair_accessible", decodeAccessibility),
			table.Optional("bikes_allowed", decodeAccessibility),
		),
		Routes: table.NewSchema(Routes,
			table.Required("route_id", text),
			table.Optional("agency_id", text),
			table.Optional("route_short_name", text),
			table.Optional("route_long_name", text),
			table.Optional("route_desc", text),
			table.Optional("route_type", decodeRouteType),
			table.Optional("route_url", text),
			table.Optional("route_color", field.HexColor),
			table.Optional("route_text_color", field.HexColor),
			table.Optional("route_sort_order", field.Uint32),
			table.Optional("continuous_pickup", decodePickupDropOff),
			table.Optional("continuous_drop_off", decodePickupDropOff),
			table.Optional("network_id", text),
		),
		Calendar: table.NewSchema(Calendar,
			table.Required("service_id", text),
			table.Optional("monday", decodeAvailability),
			table.Optional("tuesday", decodeAvailability),
			table.Optional("wednesday", decodeAvailability),
			table.Optional("thursday", decodeAvailability),
			table.Optional("friday", decodeAvailability),
			table.Optional("saturday", decodeAvailability),
			table.Optional("sunday", decodeAvailability),
			table.Optional("start_date", field.YYYYMMDD),
			table.Optional("end_date", field.YYYYMMDD),
		),
		CalendarDates: table.NewSchema(CalendarDates,
			table.Required("service_id", text),
			table.Optional("date", field.YYYYMMDD),
			table.Optional("exception_type", decodeException),
		),
		Agency: table.NewSchema(Agency,
			table.Optional("agency_id", text),
			table.Optional("agency_name", text),
			table.Optional("agency_url", text),
			table.Optional("agency_timezone", text),
			table.Optional("agency_lang", text),
			table.Optional("agency_phone", text),
			table.Optional("agency_fare_url", text),
			table.Optional("agency_email", text),
		),
		FeedInfo: table.NewSchema(FeedInfo,
			table.Required("feed_publisher_name", text),
			table.Optional("feed_publisher_url", text),
			table.Optional("feed_lang", text),
			table.Optional("default_lang", text),
			table.Optional("feed_start_date", field.YYYYMMDD),
			table.Optional("feed_end_date", field.YYYYMMDD),
			table.Optional("feed_version", text),
			table.Optional("feed_contact_email", text),
			table.Optional("feed_contact_url", text),
		),
		Attributions: table.NewSchema(Attributions,
			table.Optional("attribution_id", text),
			table.Optional("agency_id", text),
			table.Optional("route_id", text),
			table.Optional("trip_id", text),
			table.Required("organization_name", text),
			table.Optional("is_producer", decodeYesNo),
			table.Optional("is_operator", decodeYesNo),
			table.Optional("is_authority", decodeYesNo),
			table.Optional("attribution_url", text),
			table.Optional("attribution_email", text),
			table.Optional("attribution_phone", text),
		),
	}
}
