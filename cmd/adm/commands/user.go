package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the practice application.

Available commands:
  create       - Create a new user
  ensure-admin - Create the admin account if it is missing`,
	}

	userCmd.AddCommand(createUserCmd(userService, logger, databaseURL))
	userCmd.AddCommand(ensureAdminCmd(userService, logger))

	return userCmd
}

func createUserCmd(userService *services.UserService, logger *observability.Logger, databaseURL string) *cobra.Command {
	var email string
	var language string

	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a new user",
		Long:  `Create a new user account. The password is prompted for interactively.`,
		RunE:  runCreateUser(userService, logger, databaseURL, &email, &language),
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address for the new user")
	cmd.Flags().StringVar(&language, "language", "", "Learning language code (e.g. fr)")

	return cmd
}

func ensureAdminCmd(userService *services.UserService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-admin [username]",
		Short: "Create the admin account if it is missing",
		Long:  `Create the admin account if it does not already exist. The password is prompted for interactively.`,
		RunE:  runEnsureAdmin(userService, logger),
	}
}

func runCreateUser(userService *services.UserService, logger *observability.Logger, databaseURL string, email, language *string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("PRACTICE_CONFIG_FILE"), "database_url": maskDatabaseURL(databaseURL)})

		username, err := usernameFromArgsOrPrompt(args)
		if err != nil {
			return err
		}

		password, err := promptPasswordTwice()
		if err != nil {
			return err
		}

		user, err := userService.CreateUser(ctx, username, password, *email, *language)
		if err != nil {
			logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to create user '%s'", username)
		}

		fmt.Printf("Created user '%s' (ID: %d)\n", user.Username, user.ID)
		return nil
	}
}

func runEnsureAdmin(userService *services.UserService, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		username, err := usernameFromArgsOrPrompt(args)
		if err != nil {
			return err
		}

		password, err := promptPasswordTwice()
		if err != nil {
			return err
		}

		user, err := userService.EnsureAdminUser(ctx, username, password)
		if err != nil {
			logger.Error(ctx, "Failed to ensure admin user", err, map[string]interface{}{"username": username})
			return contextutils.WrapErrorf(err, "failed to ensure admin user '%s'", username)
		}

		fmt.Printf("Admin user '%s' ready (ID: %d)\n", user.Username, user.ID)
		return nil
	}
}

func usernameFromArgsOrPrompt(args []string) (string, error) {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Enter username: ")
		if _, err := fmt.Scanln(&username); err != nil {
			return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
		}
	}
	if username == "" {
		return "", contextutils.ErrorWithContextf("username is required")
	}
	return username, nil
}

func promptPasswordTwice() (string, error) {
	fmt.Print("Enter password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println()

	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if password != string(confirmBytes) {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}
	return password, nil
}
