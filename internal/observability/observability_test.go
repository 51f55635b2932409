package observability

import (
	"testing"

	"practiceapp/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	autosdk "go.opentelemetry.io/auto/sdk"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func otelTestConfig() *config.OpenTelemetryConfig {
	return &config.OpenTelemetryConfig{
		ServiceName:    "practice-test",
		ServiceVersion: "0.0.0-test",
		Protocol:       "grpc",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SamplingRate:   1.0,
	}
}

func TestSetupObservabilityAllEnabled(t *testing.T) {
	cfg := otelTestConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = true
	cfg.EnableLogging = true

	tp, mp, logger, err := SetupObservability(cfg, "practice-test")
	require.NoError(t, err)
	assert.NotNil(t, tp)
	assert.NotNil(t, mp)
	assert.NotNil(t, logger)
}

func TestSetupObservabilityNoneEnabled(t *testing.T) {
	tp, mp, logger, err := SetupObservability(otelTestConfig(), "practice-test")
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.Nil(t, mp)
	// The logger is always usable, a no-op when logging is disabled.
	require.NotNil(t, logger)
	logger.Info(t.Context(), "no-op")
}

func TestSetupObservabilityTracerProviderChoice(t *testing.T) {
	tests := []struct {
		name       string
		useAutoSDK bool
	}{
		{"standard sdk by default", false},
		{"auto sdk when requested", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := otelTestConfig()
			cfg.EnableTracing = true
			cfg.UseAutoSDK = tt.useAutoSDK

			tp, _, _, err := SetupObservability(cfg, "practice-test")
			require.NoError(t, err)
			require.NotNil(t, tp)

			_, isStandard := tp.(*sdktrace.TracerProvider)
			assert.Equal(t, !tt.useAutoSDK, isStandard)
			if tt.useAutoSDK {
				assert.IsType(t, autosdk.TracerProvider(), tp)
			}
		})
	}
}

func TestInitStandardTracingProtocols(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			cfg := otelTestConfig()
			cfg.Protocol = protocol

			tp, err := InitStandardTracing(cfg)
			require.NoError(t, err)
			assert.IsType(t, &sdktrace.TracerProvider{}, tp)
		})
	}
}

func TestInitStandardTracingRejectsUnknownProtocol(t *testing.T) {
	cfg := otelTestConfig()
	cfg.Protocol = "carrier-pigeon"

	tp, err := InitStandardTracing(cfg)
	require.Error(t, err)
	assert.Nil(t, tp)
	assert.Contains(t, err.Error(), "unsupported otel protocol")
}
