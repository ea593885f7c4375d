package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chemifol/fieldops/cmd/cli/commands"
	"github.com/chemifol/fieldops/internal/config"
	"github.com/chemifol/fieldops/pkg/utils/logging"
)

// passwordEnv supplies --password when the flag is not given
const passwordEnv = "FIELDOPS_PASSWORD"

var (
	env      string
	username string
	password string
	verbose  bool
)

func main() {
	app := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:   "fieldops",
		Short: "fieldops CLI - field worker attendance and activity ledger",
		Long: `A CLI for clocking in and out of work sites, requesting material, reporting
issues, reading the announcement board and administering workers and sites.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Username to act as")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for --user (or set "+passwordEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(commands.All(app)...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, backend and identity
func initApp(app *commands.AppContext) error {
	var err error
	app.Env = env

	app.Logger, err = logging.InitLogger(env, logging.Options{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("backend", string(app.Cfg.Backend)))

	if err := app.OpenDatabase(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	app.Logger.Info("Database initialized successfully")

	if username == "" {
		return nil
	}
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	return app.Login(username, password)
}
