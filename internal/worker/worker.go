// Package worker contains the background sweeper that pre-provisions
// practice sessions ahead of their day keys. The worker runs independently
// of HTTP request handling so that a user's first fetch of the week does
// not pay the allocation cost for every missing day.
package worker

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
}

// RunRecord tracks individual worker runs
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Details   string        `json:"details"`
}

const maxRunHistory = 50

// candidate is a user row eligible for pre-provisioning
type candidate struct {
	userID       int
	languageCode string
}

// Worker pre-provisions practice sessions in the background
type Worker struct {
	db              *sql.DB
	practiceService services.PracticeServiceInterface
	questionService services.QuestionServiceInterface
	instance        string
	status          Status
	history         []RunRecord
	mu              sync.RWMutex
	manualTrigger   chan bool
	cfg             *config.Config
	logger          *observability.Logger

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
}

// NewWorker creates a new provisioning worker instance
func NewWorker(db *sql.DB, practiceService services.PracticeServiceInterface, questionService services.QuestionServiceInterface, instance string, cfg *config.Config, logger *observability.Logger) *Worker {
	if instance == "" {
		instance = "default"
	}

	return &Worker{
		db:              db,
		practiceService: practiceService,
		questionService: questionService,
		instance:        instance,
		status:          Status{IsRunning: false, CurrentActivity: "Initialized"},
		history:         make([]RunRecord, 0, maxRunHistory),
		manualTrigger:   make(chan bool, 1),
		cfg:             cfg,
		logger:          logger,
		timeNow:         time.Now,
	}
}

// Start begins the worker's background processing loop
func (w *Worker) Start(ctx context.Context) {
	w.setRunning(true)

	interval := w.cfg.Worker.Interval
	if interval <= 0 {
		interval = config.WorkerSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": w.instance,
		"interval": interval.String(),
	})

	// Sweep once at startup so a fresh deploy does not wait a full interval.
	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.setRunning(false)
			return

		case <-ticker.C:
			w.run(ctx)

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.run(ctx)
		}
	}
}

// Trigger requests an immediate sweep without waiting for the ticker
func (w *Worker) Trigger() {
	select {
	case w.manualTrigger <- true:
	default:
		// A trigger is already pending.
	}
}

// GetStatus returns a snapshot of the worker's current status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns recent run records, newest last
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

func (w *Worker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.IsRunning = running
}

// run executes a single provisioning sweep
func (w *Worker) run(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run",
		attribute.String("worker.instance", w.instance),
	)
	defer observability.FinishSpan(span, nil)

	start := w.timeNow()
	w.mu.Lock()
	w.status.LastRunStart = start
	w.status.CurrentActivity = "Provisioning practice sessions"
	w.mu.Unlock()

	provisioned, failed, err := w.sweep(ctx)

	end := w.timeNow()
	record := RunRecord{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Status:    "Success",
	}

	w.mu.Lock()
	w.status.LastRunFinish = end
	w.status.CurrentActivity = "Idle"
	w.status.NextRun = end.Add(w.cfg.Worker.Interval)
	if err != nil {
		w.status.LastRunError = err.Error()
		record.Status = "Failure"
		record.Details = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.history = append(w.history, record)
	if len(w.history) > maxRunHistory {
		w.history = w.history[len(w.history)-maxRunHistory:]
	}
	w.mu.Unlock()

	span.SetAttributes(
		attribute.Int("sweep.users_provisioned", provisioned),
		attribute.Int("sweep.users_failed", failed),
	)

	if err != nil {
		w.logger.Error(ctx, "Provisioning sweep failed", err, map[string]interface{}{
			"instance": w.instance,
		})
		return
	}

	w.logger.Info(ctx, "Provisioning sweep finished", map[string]interface{}{
		"instance":          w.instance,
		"users_provisioned": provisioned,
		"users_failed":      failed,
		"duration_ms":       end.Sub(start).Milliseconds(),
	})
}

// sweep ensures every eligible user's window is provisioned through the
// configured horizon. Per-user failures are counted and logged but do not
// stop the sweep.
func (w *Worker) sweep(ctx context.Context) (provisioned, failed int, err error) {
	candidates, err := w.eligibleUsers(ctx)
	if err != nil {
		return 0, 0, err
	}

	loc := w.cfg.ReferenceLocation()
	days := w.horizonDays(loc)

	for _, cand := range candidates {
		language, resolveErr := w.questionService.ResolveLanguage(ctx, cand.languageCode)
		if resolveErr != nil {
			failed++
			w.logger.Warn(ctx, "Skipping user with unresolvable language", map[string]interface{}{
				"user_id":  cand.userID,
				"language": cand.languageCode,
				"error":    resolveErr.Error(),
			})
			continue
		}

		if _, ensureErr := w.practiceService.EnsureWindow(ctx, cand.userID, language.ID, days); ensureErr != nil {
			failed++
			w.logger.Error(ctx, "Failed to provision window for user", ensureErr, map[string]interface{}{
				"user_id": cand.userID,
			})
			continue
		}
		provisioned++
	}

	return provisioned, failed, nil
}

// horizonDays lists the day keys from today through the provisioning horizon
func (w *Worker) horizonDays(loc *time.Location) []time.Time {
	horizon := w.cfg.Worker.HorizonDays
	if horizon <= 0 {
		horizon = 1
	}

	today := contextutils.DayKey(w.timeNow(), loc)
	days := make([]time.Time, 0, horizon)
	for i := 0; i < horizon; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}
	return days
}

// eligibleUsers lists users with a learning language configured
func (w *Worker) eligibleUsers(ctx context.Context) ([]candidate, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, learning_language
		 FROM users
		 WHERE learning_language IS NOT NULL AND learning_language <> ''
		 ORDER BY id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query eligible users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			w.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var candidates []candidate
	for rows.Next() {
		var cand candidate
		if err := rows.Scan(&cand.userID, &cand.languageCode); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan eligible user")
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate eligible users")
	}
	return candidates, nil
}
