package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/spf13/cobra"
)

// SettingsCommands returns the reward settings commands
func SettingsCommands(settingsService *services.SettingsService, logger *observability.Logger, db *sql.DB) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Reward settings commands",
		Long: `Reward settings commands for the practice application.

Available commands:
  show - Show the effective reward settings
  set  - Override a reward setting`,
	}

	settingsCmd.AddCommand(showSettingsCmd(settingsService, logger, db))
	settingsCmd.AddCommand(setSettingCmd(settingsService, logger))

	return settingsCmd
}

func showSettingsCmd(settingsService *services.SettingsService, logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective reward settings",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("PRACTICE_CONFIG_FILE"), "database": describeConnection(db)})

			settings, err := settingsService.GetRewardSettings(ctx)
			if err != nil {
				logger.Error(ctx, "Failed to load reward settings", err, nil)
				return contextutils.WrapErrorf(err, "failed to load reward settings")
			}

			fmt.Printf("daily_bank_size: %d\n", settings.DailyBankSize)
			fmt.Printf("full_xp:         %d\n", settings.FullXP)
			fmt.Printf("full_gems:       %d\n", settings.FullGems)
			return nil
		},
	}
}

func setSettingCmd(settingsService *services.SettingsService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Override a reward setting",
		Long:  `Override a reward setting. Valid keys: daily_bank_size, full_xp, full_gems.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			key, value := args[0], args[1]
			switch key {
			case services.SettingKeyDailyBankSize, services.SettingKeyFullXP, services.SettingKeyFullGems:
			default:
				return contextutils.ErrorWithContextf("unknown setting key '%s'", key)
			}

			if err := settingsService.SetSetting(ctx, key, value); err != nil {
				logger.Error(ctx, "Failed to set setting", err, map[string]interface{}{"key": key})
				return contextutils.WrapErrorf(err, "failed to set '%s'", key)
			}

			fmt.Printf("Setting '%s' set to '%s'\n", key, value)
			return nil
		},
	}
}
