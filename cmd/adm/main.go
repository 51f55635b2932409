// Package main provides the main entry point for the practice application admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"practiceapp/cmd/adm/commands"
	"practiceapp/internal/config"
	"practiceapp/internal/database"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Quiet logs for CLI usage, and no exporters to connect to.
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "practice-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if sdkTP, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := sdkTP.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserService(db, cfg, logger)
	questionService := services.NewQuestionService(db, logger)
	settingsService := services.NewSettingsService(db, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Practice Application Administration Tool",
		Long: `Practice Application Administration Tool

A CLI tool for administering the practice application.
Provides commands for user management, question bank maintenance, and reward settings.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger, cfg.Database.URL))
	rootCmd.AddCommand(commands.ContentCommands(questionService, logger))
	rootCmd.AddCommand(commands.SettingsCommands(settingsService, logger, db))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
