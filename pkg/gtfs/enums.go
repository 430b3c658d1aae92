package gtfs

import "github.com/ajitpratap0/velo/pkg/field"

// The code tables below never fail: unrecognized or malformed input maps to
// the Unknown value of each type.

// PickupDropOff describes how riders board or alight. It is used for
// pickup_type, drop_off_type, continuous_pickup and continuous_drop_off.
type PickupDropOff uint8

const (
	PickupRegular PickupDropOff = iota
	PickupNotAvailable
	PickupMustPhone
	PickupMustCoordinateWithDriver
	PickupUnknown
)

var pickupNames = [...]string{"regular", "not_available", "must_phone", "must_coordinate_with_driver", "unknown"}

func (v PickupDropOff) String() string { return enumName(pickupNames[:], v) }

var decodePickupDropOff = field.Codes(map[string]PickupDropOff{
	"":  PickupRegular,
	"0": PickupRegular,
	"1": PickupNotAvailable,
	"2": PickupMustPhone,
	"3": PickupMustCoordinateWithDriver,
}, PickupUnknown)

// Timepoint tells whether stop times are exact or approximate.
type Timepoint uint8

const (
	TimepointApproximate Timepoint = iota
	TimepointExact
	TimepointUnknown
)

var timepointNames = [...]string{"approximate", "exact", "unknown"}

func (v Timepoint) String() string { return enumName(timepointNames[:], v) }

var decodeTimepoint = field.Codes(map[string]Timepoint{
	"0": TimepointApproximate,
	"":  TimepointExact,
	"1": TimepointExact,
}, TimepointUnknown)

// LocationType is the kind of location a stops.txt row describes.
type LocationType uint8

const (
	LocationStop LocationType = iota
	LocationStation
	LocationEntrance
	LocationGenericNode
	LocationBoardingArea
	LocationUnknown
)

var locationNames = [...]string{"stop", "station", "entrance", "generic_node", "boarding_area", "unknown"}

func (v LocationType) String() string { return enumName(locationNames[:], v) }

var decodeLocationType = field.Codes(map[string]LocationType{
	"":  LocationStop,
	"0": LocationStop,
	"1": LocationStation,
	"2": LocationEntrance,
	"3": LocationGenericNode,
	"4": LocationBoardingArea,
}, LocationUnknown)

// Accessibility is used for wheelchair_boarding, wheelchair_accessible and
// bikes_allowed, which share one code table.
type Accessibility uint8

const (
	AccessibilityNoInfo Accessibility = iota
	AccessibilityAvailable
	AccessibilityNotAvailable
	AccessibilityUnknown
)

var accessibilityNames = [...]string{"no_info", "available", "not_available", "unknown"}

func (v Accessibility) String() string { return enumName(accessibilityNames[:], v) }

var decodeAccessibility = field.Codes(map[string]Accessibility{
	"":  AccessibilityNoInfo,
	"0": AccessibilityNoInfo,
	"1": AccessibilityAvailable,
	"2": AccessibilityNotAvailable,
}, AccessibilityUnknown)

// DirectionID distinguishes the two travel directions of a route.
type DirectionID uint8

const (
	DirectionOutbound DirectionID = iota
	DirectionInbound
	DirectionUnknown
)

var directionNames = [...]string{"outbound", "inbound", "unknown"}

func (v DirectionID) String() string { return enumName(directionNames[:], v) }

var decodeDirection = field.Codes(map[string]DirectionID{
	"0": DirectionOutbound,
	"1": DirectionInbound,
}, DirectionUnknown)

// RouteType is the vehicle type used on a route.
type RouteType uint8

const (
	RouteTram RouteType = iota
	RouteSubway
	RouteRail
	RouteBus
	RouteFerry
	RouteCableTram
	RouteAerialLift
	RouteFunicular
	RouteTrolleybus
	RouteMonorail
	RouteUnknown
)

var routeTypeNames = [...]string{
	"tram", "subway", "rail", "bus", "ferry", "cable_tram",
	"aerial_lift", "funicular", "trolleybus", "monorail", "unknown",
}

func (v RouteType) String() string { return enumName(routeTypeNames[:], v) }

var decodeRouteType = field.Codes(map[string]RouteType{
	"0":  RouteTram,
	"1":  RouteSubway,
	"2":  RouteRail,
	"3":  RouteBus,
	"4":  RouteFerry,
	"5":  RouteCableTram,
	"6":  RouteAerialLift,
	"7":  RouteFunicular,
	"11": RouteTrolleybus,
	"12": RouteMonorail,
}, RouteUnknown)

// Availability marks whether a service runs on a weekday in calendar.txt.
type Availability uint8

const (
	Available Availability = iota
	NotAvailable
	AvailabilityUnknown
)

var availabilityNames = [...]string{"available", "not_available", "unknown"}

func (v Availability) String() string { return enumName(availabilityNames[:], v) }

var decodeAvailability = field.Codes(map[string]Availability{
	"1": Available,
	"0": NotAvailable,
}, AvailabilityUnknown)

// ExceptionType is the kind of change a calendar_dates.txt row applies.
type ExceptionType uint8

const (
	ServiceAdded ExceptionType = iota
	ServiceRemoved
	ExceptionUnknown
)

var exceptionNames = [...]string{"added", "removed", "unknown"}

func (v ExceptionType) String() string { return enumName(exceptionNames[:], v) }

var decodeException = field.Codes(map[string]ExceptionType{
	"1": ServiceAdded,
	"2": ServiceRemoved,
}, ExceptionUnknown)

// YesNo is a boolean flag where a blank field means no.
type YesNo uint8

const (
	No YesNo = iota
	Yes
	YesNoUnknown
)

var yesNoNames = [...]string{"no", "yes", "unknown"}

func (v YesNo) String() string { return enumName(yesNoNames[:], v) }

var decodeYesNo = field.Codes(map[string]YesNo{
	"":  No,
	"0": No,
	"1": Yes,
}, YesNoUnknown)

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}
