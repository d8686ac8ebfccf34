package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gymdesk/core"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the users schema",
	Long:  `Creates the users table and its indexes. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := core.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("schema applied")
		return nil
	},
}

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the initial administrator if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		c := cfg
		c.BootstrapAdminEnabled = true
		if path, _ := cmd.Flags().GetString("password-file"); cmd.Flags().Changed("password-file") {
			c.InitialAdminPasswordPath = path
		}
		return core.BootstrapAdmin(ctx, core.NewPgUserRepository(db), verifier(), c, logger)
	},
}

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create the demo accounts listed on the login page",
	Long: `Creates admin@gym.com, manager@gym.com, trainer@gym.com and member@gym.com
with the password "password". Existing accounts are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := core.SeedDemoUsers(ctx, core.NewPgUserRepository(db), verifier())
		for _, r := range results {
			status := "exists"
			if r.Created {
				status = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-18s %s\n", r.Role, r.Email, status)
		}
		if err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
		return nil
	},
}

func init() {
	bootstrapAdminCmd.Flags().String("password-file", "", "Write the generated password here instead of INITIAL_ADMIN_PASSWORD_PATH (empty logs it)")
}
