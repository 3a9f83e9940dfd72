package observability

import (
	"bytes"
	"context"
	"testing"

	"quiz-forge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{Enabled: true, Exporter: "jaeger-thrift"}, "test", nil)
	assert.Error(t, err)
}

func TestBuildExporter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := buildExporter(context.Background(), config.TracingConfig{Exporter: "stdout"}, &buf)
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(context.Background()))

	exp, err = buildExporter(context.Background(), config.TracingConfig{Exporter: "otlp", Endpoint: "localhost:4318"}, &buf)
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.0, sampleRatio(-1))
	assert.Equal(t, 0.25, sampleRatio(0.25))
	assert.Equal(t, 1.0, sampleRatio(3))
}
