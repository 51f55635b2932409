package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practiceapp/internal/config"
	"practiceapp/internal/observability"
)

func newTestWorker(t *testing.T, cfg *config.Config) *Worker {
	t.Helper()
	_, _, logger, err := observability.SetupObservability(&config.OpenTelemetryConfig{EnableTracing: false, EnableLogging: true}, "test-worker")
	require.NoError(t, err)
	return NewWorker(nil, nil, nil, "test", cfg, logger)
}

func TestHorizonDays(t *testing.T) {
	cfg := &config.Config{}
	cfg.Worker.HorizonDays = 3
	w := newTestWorker(t, cfg)

	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	w.timeNow = func() time.Time { return now }

	days := w.horizonDays(time.UTC)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), days[1])
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), days[2])
}

func TestHorizonDaysDefaultsToOne(t *testing.T) {
	w := newTestWorker(t, &config.Config{})

	days := w.horizonDays(time.UTC)
	assert.Len(t, days, 1)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	w := newTestWorker(t, &config.Config{})

	// A second trigger while one is pending must not block.
	w.Trigger()
	w.Trigger()

	select {
	case <-w.manualTrigger:
	default:
		t.Fatal("expected a pending trigger")
	}
}

func TestRunHistoryBounded(t *testing.T) {
	w := newTestWorker(t, &config.Config{})

	w.mu.Lock()
	for i := 0; i < maxRunHistory+10; i++ {
		w.history = append(w.history, RunRecord{Status: "Success"})
		if len(w.history) > maxRunHistory {
			w.history = w.history[len(w.history)-maxRunHistory:]
		}
	}
	w.mu.Unlock()

	assert.Len(t, w.GetHistory(), maxRunHistory)
}
