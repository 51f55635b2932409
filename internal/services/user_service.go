package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user operations
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, password, email, learningLanguage string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	UpdateLearningLanguage(ctx context.Context, userID int, language string) error
	UpdateLastActive(ctx context.Context, userID int) error
	GetUserStats(ctx context.Context, userID int) (*models.UserStats, error)
	EnsureAdminUser(ctx context.Context, username, password string) (*models.User, error)
}

// UserService implements user management over PostgreSQL
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

const userColumns = "id, username, email, timezone, password_hash, learning_language, last_active, created_at, updated_at"

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Timezone,
		&user.PasswordHash, &user.LearningLanguage, &user.LastActive,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by primary key
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	user, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername")
	defer observability.FinishSpan(span, &err)

	user, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	return user, nil
}

// CreateUser creates a new user with a bcrypt password hash and seeds their stats row
func (s *UserService) CreateUser(ctx context.Context, username, password, email, learningLanguage string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUser")
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn,
			"Missing required field", "username is required")
	}
	if password == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn,
			"Missing required field", "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
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

	var user models.User
	user.Username = username
	if email != "" {
		user.Email = sql.NullString{String: email, Valid: true}
	}
	if learningLanguage != "" {
		user.LearningLanguage = sql.NullString{String: learningLanguage, Valid: true}
	}
	user.PasswordHash = sql.NullString{String: string(hash), Valid: true}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, learning_language)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, user.LearningLanguage,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, contextutils.ErrRecordExists
		}
		return nil, contextutils.WrapError(err, "failed to insert user")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id, hearts) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		user.ID, s.cfg.Practice.MaxHearts)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to seed user stats")
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit user creation")
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{"user_id": user.ID, "username": user.Username})
	return &user, nil
}

// AuthenticateUser verifies a username/password pair
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser")
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)) != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	if err := s.UpdateLastActive(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "Failed to update last active", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	return user, nil
}

// UpdateLearningLanguage sets the user's learning language
func (s *UserService) UpdateLearningLanguage(ctx context.Context, userID int, language string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateLearningLanguage",
		observability.AttributeUserID(userID),
		observability.AttributeLanguage(language),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET learning_language = $1, updated_at = NOW() WHERE id = $2",
		language, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update learning language")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// UpdateLastActive touches the user's last_active timestamp
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateLastActive", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET last_active = NOW() WHERE id = $1", userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update last active")
	}
	return nil
}

// GetUserStats loads a user's stats row, applying lazy heart regeneration.
// Hearts accrue one per refill interval since the last heart update, capped
// at the configured maximum; the refreshed value is persisted before return.
func (s *UserService) GetUserStats(ctx context.Context, userID int) (result0 *models.UserStats, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserStats", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var stats models.UserStats
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, xp, gems, hearts, streak, last_practiced_at, hearts_updated_at, updated_at
		 FROM user_stats WHERE user_id = $1`, userID,
	).Scan(&stats.UserID, &stats.XP, &stats.Gems, &stats.Hearts, &stats.Streak,
		&stats.LastPracticedAt, &stats.HeartsUpdatedAt, &stats.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user stats")
	}

	now := time.Now()
	refilled, refillTime := regenerateHearts(stats.Hearts, s.cfg.Practice.MaxHearts,
		stats.HeartsUpdatedAt, now, s.cfg.Practice.HeartRefillInterval)
	if refilled != stats.Hearts {
		_, err = s.db.ExecContext(ctx,
			"UPDATE user_stats SET hearts = $1, hearts_updated_at = $2, updated_at = NOW() WHERE user_id = $3",
			refilled, refillTime, userID)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to persist heart refill")
		}
		span.SetAttributes(attribute.Int("hearts.refilled", refilled-stats.Hearts))
		stats.Hearts = refilled
		stats.HeartsUpdatedAt = refillTime
	}

	return &stats, nil
}

// regenerateHearts computes how many hearts a user has after lazy refill.
// The returned time anchors the next refill window: full refills reset the
// anchor, partial refills advance it by whole intervals only, so fractional
// progress toward the next heart is preserved.
func regenerateHearts(hearts, maxHearts int, since, now time.Time, interval time.Duration) (int, time.Time) {
	if hearts >= maxHearts || interval <= 0 {
		return hearts, since
	}

	elapsed := now.Sub(since)
	if elapsed < interval {
		return hearts, since
	}

	gained := int(elapsed / interval)
	if hearts+gained >= maxHearts {
		return maxHearts, now
	}
	return hearts + gained, since.Add(time.Duration(gained) * interval)
}

// EnsureAdminUser creates the admin account if it does not already exist
func (s *UserService) EnsureAdminUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := otel.Tracer("user-service").Start(ctx, "EnsureAdminUser",
		trace.WithAttributes(attribute.String("admin.username", username)),
	)
	defer observability.FinishSpan(span, &err)

	if username == "" || password == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn,
			"Missing required field", "admin username and password are required")
	}

	user, err := s.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, contextutils.ErrRecordNotFound) {
		return nil, err
	}

	user, err = s.CreateUser(ctx, username, password, "", "")
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Admin user created", map[string]interface{}{"user_id": user.ID})
	return user, nil
}
