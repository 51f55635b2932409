package services

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	"practiceapp/internal/serviceinterfaces"
	contextutils "practiceapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PracticeServiceInterface defines the interface for practice scheduling and submission
type PracticeServiceInterface interface {
	GetWeek(ctx context.Context, userID int, full bool) (*models.WeekView, error)
	GetPracticeByID(ctx context.Context, userID, practiceID int) (*models.PracticeSession, error)
	SubmitPractice(ctx context.Context, userID, practiceID int, answers []models.PracticeAnswer) (*models.SubmissionResult, error)
	GetReviewSet(ctx context.Context, userID int) ([]models.ReviewItem, error)
	EnsureWindow(ctx context.Context, userID, languageID int, days []time.Time) ([]models.PracticeSession, error)
}

// PracticeService implements weekly scheduling, idempotent session
// provisioning, exactly-once scoring and review aggregation.
type PracticeService struct {
	db        *sql.DB
	cfg       *config.Config
	logger    *observability.Logger
	questions QuestionServiceInterface
	settings  SettingsServiceInterface

	// Post-commit propagation hooks. Best-effort, at-least-once; both may
	// be nil when the collaborator is not wired (e.g. CLI usage).
	leaderboard  serviceinterfaces.LeaderboardCreditor
	achievements serviceinterfaces.AchievementEvaluator
}

// NewPracticeService creates a new PracticeService instance
func NewPracticeService(db *sql.DB, cfg *config.Config, logger *observability.Logger, questions QuestionServiceInterface, settings SettingsServiceInterface) *PracticeService {
	return &PracticeService{
		db:        db,
		cfg:       cfg,
		logger:    logger,
		questions: questions,
		settings:  settings,
	}
}

// SetRewardHooks wires the post-submission propagation collaborators
func (s *PracticeService) SetRewardHooks(leaderboard serviceinterfaces.LeaderboardCreditor, achievements serviceinterfaces.AchievementEvaluator) {
	s.leaderboard = leaderboard
	s.achievements = achievements
}

// isUniqueViolation reports whether err is a postgres unique constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// answerMatches compares a submitted answer against the canonical key using
// case-insensitive, whitespace-trimmed equality.
func answerMatches(submitted, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
}

// computeReward converts scoring counters into reward amounts. A perfect,
// fully-attempted session earns the full configured amounts; anything else
// earns the truncating proportional share. Zero attempted items earn nothing.
func computeReward(settings models.RewardSettings, correct, wrong, skipped int) (xp, gems int, perfect bool) {
	total := correct + wrong + skipped
	if total == 0 {
		return 0, 0, false
	}
	if wrong == 0 && skipped == 0 {
		return settings.FullXP, settings.FullGems, true
	}
	return settings.FullXP * correct / total, settings.FullGems * correct / total, false
}

// nextStreak advances the daily streak counter: consecutive-day practice
// increments, same-day practice holds, anything else resets to 1.
func nextStreak(current int, lastPracticed *time.Time, today time.Time, loc *time.Location) int {
	if lastPracticed == nil {
		return 1
	}
	lastDay := contextutils.DayKey(*lastPracticed, loc)
	switch {
	case lastDay.Equal(today):
		return current
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return current + 1
	default:
		return 1
	}
}

// GetWeek projects the user's current practice week, lazily provisioning any
// missing sessions first.
func (s *PracticeService) GetWeek(ctx context.Context, userID int, full bool) (result0 *models.WeekView, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "GetWeek",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			attribute.Bool("week.full", full),
		),
	)
	defer observability.FinishSpan(span, &err)

	language, err := s.resolveUserLanguage(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := s.cfg.ReferenceLocation()
	now := time.Now()
	today := contextutils.DayKey(now, loc)
	days := contextutils.WeekDays(now, full, loc)

	if _, err := s.EnsureWindow(ctx, userID, language.ID, days); err != nil {
		return nil, err
	}

	sessions, err := s.loadDaySessions(ctx, userID, days)
	if err != nil {
		return nil, err
	}

	return ProjectWeek(days, sessions, today, now), nil
}

// resolveUserLanguage maps the user's learning language code to a language row
func (s *PracticeService) resolveUserLanguage(ctx context.Context, userID int) (*models.Language, error) {
	var code sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT learning_language FROM users WHERE id = $1", userID).Scan(&code)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user language")
	}
	if !code.Valid || code.String == "" {
		return nil, contextutils.ErrLanguageNotResolved
	}
	return s.questions.ResolveLanguage(ctx, code.String)
}

// EnsureWindow guarantees a practice session exists for each day key in the
// window, provisioning missing days with non-repeating question sets. The
// exclusion set grows across same-call days so a question is never assigned
// twice even within one sweep. Idempotent: repeated calls create nothing new.
func (s *PracticeService) EnsureWindow(ctx context.Context, userID, languageID int, days []time.Time) (result0 []models.PracticeSession, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "EnsureWindow",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			attribute.Int("language.id", languageID),
			attribute.Int("window.days", len(days)),
		),
	)
	defer observability.FinishSpan(span, &err)

	existing, err := s.loadSessionsForDays(ctx, userID, days)
	if err != nil {
		return nil, err
	}

	missing := make([]time.Time, 0, len(days))
	have := make(map[string]bool, len(existing))
	for _, session := range existing {
		have[contextutils.FormatDayKey(session.PracticeDate)] = true
	}
	for _, day := range days {
		if !have[contextutils.FormatDayKey(day)] {
			missing = append(missing, day)
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}

	settings, err := s.settings.GetRewardSettings(ctx)
	if err != nil {
		return nil, err
	}

	usedIDs, err := s.usedQuestionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	created := 0
	raced := false
	for _, day := range missing {
		questions, err := s.questions.AllocateQuestions(ctx, languageID, settings.DailyBankSize, usedIDs)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			// Empty bank: stop provisioning the rest of the window
			// instead of creating empty sessions.
			s.logger.Warn(ctx, "Question bank exhausted, leaving window partially provisioned", map[string]interface{}{
				"user_id":     userID,
				"language_id": languageID,
				"day":         contextutils.FormatDayKey(day),
			})
			break
		}

		didCreate, err := s.createSession(ctx, userID, languageID, day, questions)
		if err != nil {
			return nil, err
		}
		if !didCreate {
			// The winner's session is picked up by the final re-read; its
			// questions, not ours, belong in the exclusion set.
			raced = true
			if usedIDs, err = s.usedQuestionIDs(ctx, userID); err != nil {
				return nil, err
			}
			continue
		}
		created++

		for _, q := range questions {
			usedIDs = append(usedIDs, q.ID)
		}
	}
	span.SetAttributes(attribute.Int("sessions.created", created))

	if created == 0 && !raced {
		return existing, nil
	}
	return s.loadSessionsForDays(ctx, userID, days)
}

// createSession atomically persists a session and its pending items. A
// concurrent create for the same (user, day) loses the unique-constraint
// race and is treated as already provisioned: created is false and the
// winner's session stands.
func (s *PracticeService) createSession(ctx context.Context, userID, languageID int, day time.Time, questions []models.Question) (created bool, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "createSession",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			observability.AttributeDayKey(day),
			attribute.Int("questions.count", len(questions)),
		),
	)
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to begin transaction")
	}
	// Unconditional: a no-op after commit, releases the pool connection on
	// every other path, including the absorbed duplicate-day race.
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
		}
	}()

	var practiceID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO practice_sessions (user_id, language_id, practice_date, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, languageID, day, models.PracticeStatusAssigned,
	).Scan(&practiceID)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the duplicate-day race; the winner's session stands.
			s.logger.Info(ctx, "Session already provisioned by concurrent request", map[string]interface{}{
				"user_id": userID,
				"day":     contextutils.FormatDayKey(day),
			})
			return false, nil
		}
		return false, contextutils.WrapError(err, "failed to insert practice session")
	}

	for position, q := range questions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO practice_items (practice_id, question_id, position, status)
			 VALUES ($1, $2, $3, $4)`,
			practiceID, q.ID, position, models.ItemStatusPending)
		if err != nil {
			return false, contextutils.WrapError(err, "failed to insert practice item")
		}
	}

	if err = tx.Commit(); err != nil {
		return false, contextutils.WrapError(err, "failed to commit session creation")
	}

	s.logger.Info(ctx, "Practice session provisioned", map[string]interface{}{
		"user_id":     userID,
		"practice_id": practiceID,
		"day":         contextutils.FormatDayKey(day),
		"items":       len(questions),
	})
	return true, nil
}

// usedQuestionIDs returns every question id ever assigned to the user
func (s *PracticeService) usedQuestionIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT pi.question_id
		 FROM practice_items pi
		 JOIN practice_sessions ps ON ps.id = pi.practice_id
		 WHERE ps.user_id = $1`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query used question ids")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate question ids")
	}
	return ids, nil
}

// loadSessionsForDays loads bare session rows for the given day keys
func (s *PracticeService) loadSessionsForDays(ctx context.Context, userID int, days []time.Time) ([]models.PracticeSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, language_id, practice_date, status, xp_earned, gems_earned, created_at, completed_at
		 FROM practice_sessions
		 WHERE user_id = $1 AND practice_date = ANY($2)
		 ORDER BY practice_date`,
		userID, pq.Array(days))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query practice sessions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var sessions []models.PracticeSession
	for rows.Next() {
		var session models.PracticeSession
		err := rows.Scan(&session.ID, &session.UserID, &session.LanguageID, &session.PracticeDate,
			&session.Status, &session.XPEarned, &session.GemsEarned, &session.CreatedAt, &session.CompletedAt)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan practice session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate practice sessions")
	}
	return sessions, nil
}

// loadDaySessions loads per-day aggregate snapshots for the projector
func (s *PracticeService) loadDaySessions(ctx context.Context, userID int, days []time.Time) (map[string]DaySession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ps.id, ps.practice_date, ps.status, ps.xp_earned, ps.gems_earned, ps.completed_at,
		        COUNT(pi.id),
		        COUNT(pi.id) FILTER (WHERE pi.status = 'answered'),
		        COUNT(pi.id) FILTER (WHERE pi.is_correct),
		        COUNT(pi.id) FILTER (WHERE pi.status = 'skipped')
		 FROM practice_sessions ps
		 LEFT JOIN practice_items pi ON pi.practice_id = ps.id
		 WHERE ps.user_id = $1 AND ps.practice_date = ANY($2)
		 GROUP BY ps.id`,
		userID, pq.Array(days))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query day sessions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	result := make(map[string]DaySession)
	for rows.Next() {
		var day DaySession
		var date time.Time
		var completedAt sql.NullTime
		err := rows.Scan(&day.PracticeID, &date, &day.Status, &day.XPEarned, &day.GemsEarned,
			&completedAt, &day.Total, &day.Answered, &day.Correct, &day.Skipped)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan day session")
		}
		if completedAt.Valid {
			day.CompletedAt = &completedAt.Time
		}
		result[contextutils.FormatDayKey(date)] = day
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate day sessions")
	}
	return result, nil
}

// GetPracticeByID loads a session with its items and question content.
// Sessions that are neither completed nor scheduled for today are withheld.
func (s *PracticeService) GetPracticeByID(ctx context.Context, userID, practiceID int) (result0 *models.PracticeSession, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "GetPracticeByID",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			observability.AttributePracticeID(practiceID),
		),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.loadSession(ctx, userID, practiceID)
	if err != nil {
		return nil, err
	}

	loc := s.cfg.ReferenceLocation()
	today := contextutils.DayKey(time.Now(), loc)
	day := contextutils.DayKey(session.PracticeDate, loc)
	if session.Status != models.PracticeStatusCompleted && !day.Equal(today) {
		return nil, contextutils.ErrPracticeLocked
	}

	items, err := s.loadItemsWithQuestions(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	session.Items = items
	return session, nil
}

// loadSession fetches a session owned by userID; ownership failures read as
// not-found so session ids are not probeable across users.
func (s *PracticeService) loadSession(ctx context.Context, userID, practiceID int) (*models.PracticeSession, error) {
	var session models.PracticeSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, language_id, practice_date, status, xp_earned, gems_earned, created_at, completed_at
		 FROM practice_sessions WHERE id = $1 AND user_id = $2`,
		practiceID, userID,
	).Scan(&session.ID, &session.UserID, &session.LanguageID, &session.PracticeDate,
		&session.Status, &session.XPEarned, &session.GemsEarned, &session.CreatedAt, &session.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrPracticeNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load practice session")
	}
	return &session, nil
}

// loadItemsWithQuestions fetches a session's items with question payloads
func (s *PracticeService) loadItemsWithQuestions(ctx context.Context, practiceID int) ([]models.PracticeItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pi.id, pi.practice_id, pi.question_id, pi.position, pi.status,
		        pi.user_answer, pi.is_correct, pi.answered_at
		 FROM practice_items pi
		 WHERE pi.practice_id = $1
		 ORDER BY pi.position`, practiceID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query practice items")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var items []models.PracticeItem
	var questionIDs []int
	for rows.Next() {
		var item models.PracticeItem
		err := rows.Scan(&item.ID, &item.PracticeID, &item.QuestionID, &item.Position,
			&item.Status, &item.UserAnswer, &item.IsCorrect, &item.AnsweredAt)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan practice item")
		}
		items = append(items, item)
		questionIDs = append(questionIDs, item.QuestionID)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate practice items")
	}

	questions, err := s.questions.GetQuestionsByIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Question = questions[items[i].QuestionID]
	}
	return items, nil
}

// SubmitPractice scores today's session exactly once. The assigned→completed
// transition is a single conditional update, so a concurrent duplicate
// submission observes the completed state and fails with a conflict instead
// of re-rewarding.
func (s *PracticeService) SubmitPractice(ctx context.Context, userID, practiceID int, answers []models.PracticeAnswer) (result0 *models.SubmissionResult, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "SubmitPractice",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			observability.AttributePracticeID(practiceID),
			attribute.Int("answers.count", len(answers)),
		),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.loadSession(ctx, userID, practiceID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.PracticeStatusCompleted {
		return nil, contextutils.ErrPracticeAlreadySubmitted
	}

	loc := s.cfg.ReferenceLocation()
	now := time.Now()
	today := contextutils.DayKey(now, loc)
	if !contextutils.DayKey(session.PracticeDate, loc).Equal(today) {
		return nil, contextutils.ErrPracticeLocked
	}

	settings, err := s.settings.GetRewardSettings(ctx)
	if err != nil {
		return nil, err
	}

	answersByQuestion := make(map[int]models.PracticeAnswer, len(answers))
	for _, answer := range answers {
		answersByQuestion[answer.QuestionID] = answer
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	// Claim the session first: only the transaction that flips the status
	// may score and reward.
	claim, err := tx.ExecContext(ctx,
		`UPDATE practice_sessions SET status = $1, completed_at = $2
		 WHERE id = $3 AND status = $4`,
		models.PracticeStatusCompleted, now, practiceID, models.PracticeStatusAssigned)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to complete practice session")
	}
	if claimed, _ := claim.RowsAffected(); claimed == 0 {
		err = contextutils.ErrPracticeAlreadySubmitted
		return nil, err
	}

	correct, wrong, skipped, scoreErr := s.scoreItems(ctx, tx, userID, practiceID, answersByQuestion, now)
	if scoreErr != nil {
		err = scoreErr
		return nil, err
	}

	xpEarned, gemsEarned, perfect := computeReward(settings, correct, wrong, skipped)

	_, err = tx.ExecContext(ctx,
		"UPDATE practice_sessions SET xp_earned = $1, gems_earned = $2 WHERE id = $3",
		xpEarned, gemsEarned, practiceID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to store session rewards")
	}

	totalXP, totalGems, streak, err := s.applyStats(ctx, tx, userID, xpEarned, gemsEarned, today, now, loc)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit submission")
	}

	s.notifyCollaborators(ctx, userID, xpEarned, now)

	result := &models.SubmissionResult{
		PracticeID: practiceID,
		Total:      correct + wrong + skipped,
		Correct:    correct,
		Wrong:      wrong,
		Skipped:    skipped,
		Perfect:    perfect,
		XPEarned:   xpEarned,
		GemsEarned: gemsEarned,
		TotalXP:    totalXP,
		TotalGems:  totalGems,
		Streak:     streak,
	}

	s.logger.Info(ctx, "Practice submitted", map[string]interface{}{
		"user_id":     userID,
		"practice_id": practiceID,
		"correct":     correct,
		"wrong":       wrong,
		"skipped":     skipped,
		"xp_earned":   xpEarned,
		"gems_earned": gemsEarned,
	})
	return result, nil
}

// scoreItems marks each submitted item answered or skipped and records
// per-question progress. Items without a submitted entry stay pending.
func (s *PracticeService) scoreItems(ctx context.Context, tx *sql.Tx, userID, practiceID int, answers map[int]models.PracticeAnswer, now time.Time) (correct, wrong, skipped int, err error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT pi.id, pi.question_id, q.correct_answer
		 FROM practice_items pi
		 JOIN questions q ON q.id = pi.question_id
		 WHERE pi.practice_id = $1
		 ORDER BY pi.position`, practiceID)
	if err != nil {
		return 0, 0, 0, contextutils.WrapError(err, "failed to query items for scoring")
	}

	type scoringItem struct {
		itemID     int
		questionID int
		canonical  string
	}
	var items []scoringItem
	for rows.Next() {
		var item scoringItem
		if err := rows.Scan(&item.itemID, &item.questionID, &item.canonical); err != nil {
			closeRowsQuietly(rows)
			return 0, 0, 0, contextutils.WrapError(err, "failed to scan scoring item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		closeRowsQuietly(rows)
		return 0, 0, 0, contextutils.WrapError(err, "failed to iterate scoring items")
	}
	closeRowsQuietly(rows)

	for _, item := range items {
		answer, submitted := answers[item.questionID]
		if !submitted {
			continue
		}

		if answer.Status == models.ItemStatusSkipped {
			_, err := tx.ExecContext(ctx,
				"UPDATE practice_items SET status = $1, answered_at = $2 WHERE id = $3",
				models.ItemStatusSkipped, now, item.itemID)
			if err != nil {
				return 0, 0, 0, contextutils.WrapError(err, "failed to mark item skipped")
			}
			skipped++
			continue
		}

		isCorrect := answerMatches(answer.Answer, item.canonical)
		_, err := tx.ExecContext(ctx,
			`UPDATE practice_items SET status = $1, user_answer = $2, is_correct = $3, answered_at = $4
			 WHERE id = $5`,
			models.ItemStatusAnswered, answer.Answer, isCorrect, now, item.itemID)
		if err != nil {
			return 0, 0, 0, contextutils.WrapError(err, "failed to score item")
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_progress (user_id, question_id, is_correct, answered_at, attempted_at)
			 VALUES ($1, $2, $3, $4, $4)`,
			userID, item.questionID, isCorrect, now)
		if err != nil {
			return 0, 0, 0, contextutils.WrapError(err, "failed to record progress")
		}

		if isCorrect {
			correct++
		} else {
			wrong++
		}
	}

	return correct, wrong, skipped, nil
}

func closeRowsQuietly(rows *sql.Rows) {
	_ = rows.Close()
}

// applyStats additively applies rewards and advances the streak inside the
// submission transaction. The stats row is locked to serialize with
// concurrent writers incrementing the same counters.
func (s *PracticeService) applyStats(ctx context.Context, tx *sql.Tx, userID, xpEarned, gemsEarned int, today, now time.Time, loc *time.Location) (totalXP, totalGems, streak int, err error) {
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id, hearts) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, s.cfg.Practice.MaxHearts)
	if err != nil {
		return 0, 0, 0, contextutils.WrapError(err, "failed to ensure stats row")
	}

	var currentStreak int
	var lastPracticed sql.NullTime
	err = tx.QueryRowContext(ctx,
		"SELECT streak, last_practiced_at FROM user_stats WHERE user_id = $1 FOR UPDATE",
		userID).Scan(&currentStreak, &lastPracticed)
	if err != nil {
		return 0, 0, 0, contextutils.WrapError(err, "failed to lock stats row")
	}

	var lastPtr *time.Time
	if lastPracticed.Valid {
		lastPtr = &lastPracticed.Time
	}
	streak = nextStreak(currentStreak, lastPtr, today, loc)

	err = tx.QueryRowContext(ctx,
		`UPDATE user_stats
		 SET xp = xp + $1, gems = gems + $2, streak = $3, last_practiced_at = $4, updated_at = NOW()
		 WHERE user_id = $5
		 RETURNING xp, gems`,
		xpEarned, gemsEarned, streak, now, userID).Scan(&totalXP, &totalGems)
	if err != nil {
		return 0, 0, 0, contextutils.WrapError(err, "failed to apply rewards")
	}

	return totalXP, totalGems, streak, nil
}

// notifyCollaborators fires the post-commit propagation hooks. Failures are
// logged, never surfaced: collaborators tolerate redelivery and may be
// retried out of band.
func (s *PracticeService) notifyCollaborators(ctx context.Context, userID, xpEarned int, at time.Time) {
	if s.leaderboard != nil && xpEarned > 0 {
		if err := s.leaderboard.CreditXP(ctx, userID, xpEarned, at); err != nil {
			s.logger.Warn(ctx, "Leaderboard credit failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	if s.achievements != nil {
		if err := s.achievements.Reevaluate(ctx, userID); err != nil {
			s.logger.Warn(ctx, "Achievement reevaluation failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
}

// GetReviewSet returns the user's historically skipped or incorrectly
// answered items in freshly randomized order.
func (s *PracticeService) GetReviewSet(ctx context.Context, userID int) (result0 []models.ReviewItem, err error) {
	ctx, span := otel.Tracer("practice-service").Start(ctx, "GetReviewSet",
		trace.WithAttributes(observability.AttributeUserID(userID)),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ON (pi.question_id) pi.question_id, pi.status, pi.user_answer, pi.answered_at
		 FROM practice_items pi
		 JOIN practice_sessions ps ON ps.id = pi.practice_id
		 WHERE ps.user_id = $1
		   AND (pi.status = 'skipped' OR (pi.status = 'answered' AND pi.is_correct = FALSE))
		 ORDER BY pi.question_id, pi.answered_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query review items")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	type rawReview struct {
		questionID int
		status     string
		userAnswer sql.NullString
		answeredAt sql.NullTime
	}
	var raw []rawReview
	var questionIDs []int
	for rows.Next() {
		var r rawReview
		if err := rows.Scan(&r.questionID, &r.status, &r.userAnswer, &r.answeredAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan review item")
		}
		raw = append(raw, r)
		questionIDs = append(questionIDs, r.questionID)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate review items")
	}

	questions, err := s.questions.GetQuestionsByIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]models.ReviewItem, 0, len(raw))
	for _, r := range raw {
		question := questions[r.questionID]
		if question == nil {
			continue
		}
		item := models.ReviewItem{
			Question: *question,
			Status:   r.status,
		}
		if r.userAnswer.Valid {
			answer := r.userAnswer.String
			item.UserAnswer = &answer
		}
		if r.answeredAt.Valid {
			item.AnsweredAgo = contextutils.ShortAgo(r.answeredAt.Time, now)
		}
		items = append(items, item)
	}

	shuffleReviewItems(items)

	if limit := s.cfg.Practice.ReviewSetSize; limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	span.SetAttributes(observability.AttributeCount(len(items)))
	return items, nil
}

// shuffleReviewItems randomizes review order in place. A fresh shuffle every
// call, never a stored order.
func shuffleReviewItems(items []models.ReviewItem) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
