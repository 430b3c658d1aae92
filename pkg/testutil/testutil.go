// Package testutil provides testing utilities for Velo
package testutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger returns a logger whose entries at or above level are
// captured for assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RepeatRows builds a CSV document with header followed by n copies of row.
// row must not include the line terminator.
func RepeatRows(header, row string, n int) []byte {
	var buf bytes.Buffer
	buf.Grow(len(header) + 1 + n*(len(row)+1))
	buf.WriteString(header)
	buf.WriteByte('\n')
	for i := 0; i < n; i++ {
		buf.WriteString(row)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
