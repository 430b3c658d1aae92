package field

import (
	"fmt"
	"strconv"
	"time"

	vstrings "github.com/ajitpratap0/velo/pkg/strings"
)

// ServiceTime is a time of day in seconds since midnight of the service day.
// Hours may exceed 23 for trips that run past midnight. The zero value is absent.
type ServiceTime struct {
	Seconds uint32
	Valid   bool
}

// IsNull reports whether the value is absent.
func (t ServiceTime) IsNull() bool { return !t.Valid }

// Duration returns the offset from the start of the service day.
func (t ServiceTime) Duration() time.Duration {
	return time.Duration(t.Seconds) * time.Second
}

func (t ServiceTime) String() string {
	if !t.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Seconds/3600, (t.Seconds/60)%60, t.Seconds%60)
}

// Date is a calendar date. The zero value is absent.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
	Valid bool
}

// IsNull reports whether the value is absent.
func (d Date) IsNull() bool { return !d.Valid }

// Time returns the date at midnight in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// Color is a 24-bit RGB color. The zero value is absent.
type Color struct {
	R, G, B uint8
	Valid   bool
}

// IsNull reports whether the value is absent.
func (c Color) IsNull() bool { return !c.Valid }

func (c Color) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// OptionalFloat is a float32 that may be absent.
type OptionalFloat struct {
	Value float32
	Valid bool
}

// IsNull reports whether the value is absent.
func (f OptionalFloat) IsNull() bool { return !f.Valid }

func (f OptionalFloat) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(float64(f.Value), 'f', -1, 32)
}

func digit(c byte) (uint32, bool) {
	d := uint32(c - '0')
	return d, d <= 9
}

func twoDigits(a, b byte) (uint32, bool) {
	hi, ok1 := digit(a)
	lo, ok2 := digit(b)
	return hi*10 + lo, ok1 && ok2
}

// HHMMSS decodes HH:MM:SS positionally. Input shorter than eight bytes, with
// misplaced separators or with non-digits yields an absent value. It never fails.
func HHMMSS(b []byte) (ServiceTime, error) {
	b = vstrings.TrimASCII(b)
	if len(b) < 8 || b[2] != ':' || b[5] != ':' {
		return ServiceTime{}, nil
	}
	h, okH := twoDigits(b[0], b[1])
	m, okM := twoDigits(b[3], b[4])
	s, okS := twoDigits(b[6], b[7])
	if !okH || !okM || !okS {
		return ServiceTime{}, nil
	}
	return ServiceTime{Seconds: h*3600 + m*60 + s, Valid: true}, nil
}

// YYYYMMDD decodes YYYYMMDD positionally. Input that is not exactly eight digits
// yields an absent value. It never fails.
func YYYYMMDD(b []byte) (Date, error) {
	b = vstrings.TrimASCII(b)
	if len(b) != 8 {
		return Date{}, nil
	}
	hi, ok1 := twoDigits(b[0], b[1])
	lo, ok2 := twoDigits(b[2], b[3])
	month, ok3 := twoDigits(b[4], b[5])
	day, ok4 := twoDigits(b[6], b[7])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Date{}, nil
	}
	return Date{Year: uint16(hi*100 + lo), Month: uint8(month), Day: uint8(day), Valid: true}, nil
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// HexColor decodes RRGGBB. A blank field is absent; any other input that is
// not six hex digits is an error.
func HexColor(b []byte) (Color, error) {
	b = vstrings.TrimASCII(b)
	if len(b) == 0 {
		return Color{}, nil
	}
	if len(b) != 6 {
		return Color{}, syntaxError(b)
	}
	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(b[2*i])
		lo, ok2 := hexValue(b[2*i+1])
		if !ok1 || !ok2 {
			return Color{}, syntaxError(b)
		}
		rgb[i] = hi<<4 | lo
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2], Valid: true}, nil
}

// OptionalFloat32 decodes a float32, yielding an absent value for blank or
// unparsable input. It never fails.
func OptionalFloat32(b []byte) (OptionalFloat, error) {
	v, err := Float32(b)
	if err != nil {
		return OptionalFloat{}, nil
	}
	return OptionalFloat{Value: v, Valid: true}, nil
}
