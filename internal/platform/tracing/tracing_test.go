package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opagate/internal/platform/config"
)

func TestNewProvider_StdoutExportsSpans(t *testing.T) {
	var out bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{Exporter: "stdout", ServiceName: "opagate-test"}, &out)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "opa POST /v1/data/ksef/decision")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, out.String(), "opa POST /v1/data/ksef/decision")
	assert.Contains(t, out.String(), "opagate-test")
}

func TestNewProvider_NoneExportsNothing(t *testing.T) {
	var out bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{Exporter: "none"}, &out)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "opal GET /healthcheck")
	assert.True(t, span.SpanContext().IsValid(), "trace context still propagates")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Empty(t, out.String())
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Exporter: "zipkin"}, nil)
	assert.Error(t, err)
}
