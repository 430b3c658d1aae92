package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx, jobID := NewJobContext(context.Background())
	_, err := uuid.Parse(jobID)
	require.NoError(t, err)

	ctx = WithFile(WithFeed(ctx, "portland"), "stops.txt")
	FromContext(ctx, base).Info("parsed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, jobID, fields["job_id"])
	assert.Equal(t, "portland", fields["feed"])
	assert.Equal(t, "stops.txt", fields["file"])
}

func TestFromContextWithoutValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	FromContext(context.Background(), base).Info("plain")
	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)

	assert.NotNil(t, FromContext(context.Background(), nil))
}
