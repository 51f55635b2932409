package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestLoggerCorrelatesActiveSpan(t *testing.T) {
	logger, logs := observedLogger(t)

	tracer := trace.NewTracerProvider().Tracer("logging-test")
	ctx, span := tracer.Start(context.Background(), "scoring")
	defer span.End()

	logger.Info(ctx, "scored session", map[string]interface{}{"practice_id": 42})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.EqualValues(t, 42, fields["practice_id"])
}

func TestLoggerWithoutSpanOmitsTraceFields(t *testing.T) {
	logger, logs := observedLogger(t)

	logger.Info(context.Background(), "plain message", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func TestLoggerErrorFoldsErrorIntoFields(t *testing.T) {
	logger, logs := observedLogger(t)

	logger.Error(context.Background(), "sweep failed", errors.New("bank empty"), map[string]interface{}{
		"user_id": 7,
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "bank empty", fields["error"])
	assert.EqualValues(t, 7, fields["user_id"])
}

func TestMergeFields(t *testing.T) {
	assert.Empty(t, mergeFields())
	assert.Empty(t, mergeFields(nil))

	merged := mergeFields(
		map[string]interface{}{"a": 1, "b": 1},
		nil,
		map[string]interface{}{"b": 2},
	)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, merged)
}

func TestNewLoggerDisabledIsNoop(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
	// Must not panic even without any backing config.
	logger.Warn(context.Background(), "ignored", nil)
}
