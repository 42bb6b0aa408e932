package tracing

import (
	"context"
	"testing"

	"github.com/richxcame/attendance-tracker/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{}, "attendance", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestProviderExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := NewProvider(exporter, resource.Default(), 1)

	_, span := provider.Tracer("test").Start(context.Background(), "attendance.Decide")
	span.End()

	require.NoError(t, provider.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "attendance.Decide", spans[0].Name)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.1, sampleRatio("production"))
	assert.Equal(t, 1.0, sampleRatio("development"))
}
