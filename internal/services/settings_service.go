package services

import (
	"context"
	"database/sql"
	"strconv"

	"practiceapp/internal/config"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Game setting keys recognized in the game_settings table
const (
	SettingKeyFullXP        = "full_xp"
	SettingKeyFullGems      = "full_gems"
	SettingKeyDailyBankSize = "daily_bank_size"
)

// SettingsServiceInterface defines the interface for reward configuration lookup
type SettingsServiceInterface interface {
	GetRewardSettings(ctx context.Context) (models.RewardSettings, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SettingsService reads reward tuning from the game_settings table, falling
// back to configured defaults. Values are loaded per request so operators can
// retune rewards without a restart.
type SettingsService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewSettingsService creates a new SettingsService instance
func NewSettingsService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *SettingsService {
	return &SettingsService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// GetRewardSettings resolves the full-session reward values
func (s *SettingsService) GetRewardSettings(ctx context.Context) (result0 models.RewardSettings, err error) {
	ctx, span := observability.TraceSettingsFunction(ctx, "GetRewardSettings")
	defer observability.FinishSpan(span, &err)

	settings := models.RewardSettings{
		FullXP:        s.cfg.Practice.FullXP,
		FullGems:      s.cfg.Practice.FullGems,
		DailyBankSize: s.cfg.Practice.DailyBankSize,
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM game_settings WHERE key IN ($1, $2, $3)",
		SettingKeyFullXP, SettingKeyFullGems, SettingKeyDailyBankSize)
	if err != nil {
		return models.RewardSettings{}, contextutils.WrapError(err, "failed to query game settings")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.RewardSettings{}, contextutils.WrapError(err, "failed to scan game setting")
		}

		parsed, parseErr := strconv.Atoi(value)
		if parseErr != nil || parsed < 0 {
			s.logger.Warn(ctx, "Ignoring malformed game setting", map[string]interface{}{
				"key":   key,
				"value": value,
			})
			continue
		}

		switch key {
		case SettingKeyFullXP:
			settings.FullXP = parsed
		case SettingKeyFullGems:
			settings.FullGems = parsed
		case SettingKeyDailyBankSize:
			if parsed > 0 {
				settings.DailyBankSize = parsed
			}
		}
	}
	if err := rows.Err(); err != nil {
		return models.RewardSettings{}, contextutils.WrapError(err, "failed to iterate game settings")
	}

	span.SetAttributes(
		attribute.Int("reward.full_xp", settings.FullXP),
		attribute.Int("reward.full_gems", settings.FullGems),
	)
	return settings, nil
}

// SetSetting upserts a game setting value
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) (err error) {
	ctx, span := otel.Tracer("settings-service").Start(ctx, "SetSetting",
		trace.WithAttributes(attribute.String("setting.key", key)),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return contextutils.WrapError(err, "failed to upsert game setting")
	}

	s.logger.Info(ctx, "Game setting updated", map[string]interface{}{"key": key})
	return nil
}
