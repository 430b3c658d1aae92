// Package field defines the decoder contract that turns a raw field byte
// slice into a typed value, plus the built-in decoders used by table schemas.
//
// Decoders receive sub-slices of the input buffer. Decoders that return
// views (StringView, Bytes) alias that buffer, so the buffer must outlive
// every value they produce.
package field

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/ajitpratap0/velo/pkg/csv"
	vstrings "github.com/ajitpratap0/velo/pkg/strings"
)

// Decoder converts one raw field into a value of type T.
type Decoder[T any] func(b []byte) (T, error)

var (
	// ErrInvalidUTF8 is returned when a field is not valid UTF-8.
	ErrInvalidUTF8 = csv.ErrInvalidUTF8
	// ErrSyntax is returned when a field does not match the expected format.
	ErrSyntax = errors.New("invalid syntax")
)

// DecodeError records the row, relative to its chunk, at which a decoder failed.
type DecodeError struct {
	Row int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func syntaxError(b []byte) error {
	return fmt.Errorf("%w: %q", ErrSyntax, b)
}

// numeric trims ASCII whitespace and validates UTF-8 before numeric parsing.
// The returned string aliases b.
func numeric(b []byte) (string, error) {
	b = vstrings.TrimASCII(b)
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return vstrings.BytesToString(b), nil
}

func signed[T ~int8 | ~int16 | ~int32 | ~int64](bits int) Decoder[T] {
	return func(b []byte) (T, error) {
		s, err := numeric(b)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return 0, syntaxError(b)
		}
		return T(v), nil
	}
}

func unsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) Decoder[T] {
	return func(b []byte) (T, error) {
		s, err := numeric(b)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return 0, syntaxError(b)
		}
		return T(v), nil
	}
}

func float[T ~float32 | ~float64](bits int) Decoder[T] {
	return func(b []byte) (T, error) {
		s, err := numeric(b)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return 0, syntaxError(b)
		}
		return T(v), nil
	}
}

// Built-in numeric decoders. Surrounding ASCII whitespace is ignored; any
// other non-numeric content, including an empty field, is an error.
var (
	Int8    = signed[int8](8)
	Int16   = signed[int16](16)
	Int32   = signed[int32](32)
	Int64   = signed[int64](64)
	Uint8   = unsigned[uint8](8)
	Uint16  = unsigned[uint16](16)
	Uint32  = unsigned[uint32](32)
	Uint64  = unsigned[uint64](64)
	Float32 = float[float32](32)
	Float64 = float[float64](64)
)

// String copies the field into an owned string. It fails only on invalid UTF-8.
func String(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return vstrings.Clone(b), nil
}

// StringView returns a string sharing memory with the input buffer. It fails
// only on invalid UTF-8.
func StringView(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return vstrings.BytesToString(b), nil
}

// UncheckedView is StringView without validation. Use it only for columns
// that are never exported as strings.
func UncheckedView(b []byte) (string, error) {
	return vstrings.BytesToString(b), nil
}

// Bytes returns the raw field unchanged.
func Bytes(b []byte) ([]byte, error) {
	return b, nil
}

// Interned returns a decoder that validates UTF-8 and deduplicates values
// through in. Interned strings do not alias the input buffer.
func Interned(in *vstrings.Intern) Decoder[string] {
	return func(b []byte) (string, error) {
		if !utf8.Valid(b) {
			return "", ErrInvalidUTF8
		}
		return in.Get(b), nil
	}
}

// Codes returns a decoder for a bounded code set. The field is trimmed and
// looked up in table; unrecognized input maps to fallback. It never fails.
func Codes[T any](table map[string]T, fallback T) Decoder[T] {
	return func(b []byte) (T, error) {
		if v, ok := table[string(vstrings.TrimASCII(b))]; ok {
			return v, nil
		}
		return fallback, nil
	}
}
