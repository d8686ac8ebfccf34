package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"gymdesk/core"
)

var (
	cfg    core.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gymctl",
	Short: "Operator tool for the gymdesk auth service",
	Long: `gymctl manages the gymdesk users table: schema migration, the bootstrap
administrator, demo accounts and day-to-day user administration.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = core.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dsn, _ := cmd.Flags().GetString("db-url"); dsn != "" {
			cfg.DatabaseURL = dsn
		}
		logger = core.NewLogger(cfg, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapAdminCmd)
	rootCmd.AddCommand(seedDemoCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(usersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func verifier() *core.CredentialVerifier {
	return core.NewCredentialVerifier(cfg.LegacyPlaintextPasswords, cfg.BcryptCost)
}
