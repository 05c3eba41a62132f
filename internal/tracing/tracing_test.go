package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer(t *testing.T) {
	t.Setenv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")

	tp, err := InitTracer("menu-service-test")
	require.NoError(t, err)
	require.NotNil(t, tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("ошибка при shutdown: %v", err)
		}
	}()

	tr := GetTracer("cache")
	assert.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "test-span")
	span.End()
}

func TestSamplerFromEnv(t *testing.T) {
	// пустое значение и мусор дают AlwaysSample
	t.Setenv("JAEGER_SAMPLER_RATIO", "")
	assert.Equal(t, "AlwaysOnSampler", samplerFromEnv().Description())

	t.Setenv("JAEGER_SAMPLER_RATIO", "не число")
	assert.Equal(t, "AlwaysOnSampler", samplerFromEnv().Description())

	t.Setenv("JAEGER_SAMPLER_RATIO", "1.5")
	assert.Equal(t, "AlwaysOnSampler", samplerFromEnv().Description())

	t.Setenv("JAEGER_SAMPLER_RATIO", "0.25")
	assert.Contains(t, samplerFromEnv().Description(), "TraceIDRatioBased")
}
