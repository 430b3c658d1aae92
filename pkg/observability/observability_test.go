package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultTracingConfig()
	config.ServiceName = "velo-test"
	config.Writer = &buf

	shutdown, err := InitTracing(config)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "table.Parse", attribute.String("table", "stops"))
	assert.True(t, span.SpanContext().IsValid())
	_, child := StartSpan(ctx, "chunk")
	EndSpan(child, nil)
	EndSpan(span, errors.New("missing column"))

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "table.Parse")
	assert.Contains(t, out, "missing column")
	assert.Contains(t, out, "velo-test")
}

func TestNeverSample(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{ServiceName: "velo-test", SamplingRate: 0, Writer: &buf})
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "dropped")
	EndSpan(span, nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}
