// Package errors provides examples of structured error handling in Velo.
package errors_test

import (
	"fmt"
	"io"
	"os"

	"github.com/ajitpratap0/velo/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.MissingColumn("stops", "stop_id")

	col, _ := err.Detail("column")
	fmt.Println(err.Error())
	fmt.Println(col)

	// Output:
	// missing_column: missing required column "stop_id"
	// stop_id
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read stops.txt").
		WithDetail("file", "stops.txt")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Underlying error was unexpected EOF")
	}

	// Output:
	// This is a file error
	// Underlying error was unexpected EOF
}

// ExampleIsType shows that types are matched through nested wraps.
func ExampleIsType() {
	inner := errors.Wrap(os.ErrNotExist, errors.ErrorTypeNotFound, "trips.txt")
	outer := errors.Wrap(inner, errors.ErrorTypeFile, "load feed")

	fmt.Println(errors.IsType(outer, errors.ErrorTypeNotFound))
	fmt.Println(errors.IsType(outer, errors.ErrorTypeDecode))
	fmt.Println(errors.IsRetryable(outer))

	// Output:
	// true
	// false
	// false
}

// ExampleIsRetryable demonstrates which failures are worth retrying.
func ExampleIsRetryable() {
	connErr := errors.New(errors.ErrorTypeConnection, "connection reset")
	decErr := errors.Newf(errors.ErrorTypeDecode, "column %s", "stop_sequence")

	fmt.Println(errors.IsRetryable(connErr))
	fmt.Println(errors.IsRetryable(decErr))
	fmt.Println(errors.IsRetryable(nil))

	// Output:
	// true
	// false
	// false
}
