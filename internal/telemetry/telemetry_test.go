package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func enabledConfig() *Config {
	return &Config{
		Enabled:         true,
		Endpoint:        "localhost:4317",
		ServiceName:     "pipelined",
		ServiceVersion:  "0.1.0",
		Insecure:        true,
		SampleRate:      1.0,
		MetricInterval:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)

	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true}, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTestTelemetry_RecordsSpans(t *testing.T) {
	tel := NewTestTelemetry()

	tracer := tel.Tracer("test")
	_, span := tracer.Start(context.Background(), "phase.execute")
	span.End()

	require.NotNil(t, tel.SpanByName("phase.execute"))
	assert.Nil(t, tel.SpanByName("missing"))
	assert.Len(t, tel.Spans(), 1)
}

func TestTestTelemetry_CollectsMetrics(t *testing.T) {
	tel := NewTestTelemetry()

	meter := tel.Meter("test")
	counter, err := meter.Int64Counter("executions", metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rm, err := tel.CollectMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "executions", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestShutdown_MarksUnhealthy(t *testing.T) {
	tel := NewTestTelemetry()
	require.True(t, tel.Health().Healthy)

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}
