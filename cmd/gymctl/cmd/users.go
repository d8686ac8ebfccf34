package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gymdesk/core"
)

var (
	firstNameFlag string
	lastNameFlag  string
	emailFlag     string
	phoneFlag     string
	roleFlag      string
	passwordFlag  string
	stdinFlag     bool

	searchFlag   string
	listRoleFlag string
	pageFlag     int
	perPageFlag  int
)

// usersCmd is the parent command for user management operations
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage gym accounts",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if stdinFlag {
			var err error
			if password, err = readPassword(); err != nil {
				return err
			}
		}
		if password == "" {
			return errors.New("password is required (use --password or --stdin)")
		}

		nu, err := core.NewUserInput{
			FirstName:       firstNameFlag,
			LastName:        lastNameFlag,
			Email:           emailFlag,
			Phone:           phoneFlag,
			Password:        password,
			ConfirmPassword: password,
			Role:            roleFlag,
		}.Validate()
		if err != nil {
			return err
		}
		nu.PasswordHash, err = verifier().HashSecret(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := core.NewPgUserRepository(db).Create(ctx, nu)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", rec.Email, nu.Role, rec.ID)
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := core.UserFilter{Search: searchFlag, Page: pageFlag, PerPage: perPageFlag}
		if listRoleFlag != "" {
			r, ok := core.ParseRole(listRoleFlag)
			if !ok {
				return fmt.Errorf("invalid role %q", listRoleFlag)
			}
			filter.Role = r
		}

		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		items, total, err := core.NewPgUserRepository(db).List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tROLE\tACTIVE\tCREATED")
		for _, u := range items {
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%t\t%s\n",
				u.ID, u.FirstName, u.LastName, u.Email, u.Phone, u.Role, u.IsActive, u.CreatedAt.Format("2006-01-02"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d users\n", filter.Page, len(items), total)
		return nil
	},
}

var usersSetActiveCmd = &cobra.Command{
	Use:   "set-active <user-id> <true|false>",
	Short: "Enable or disable an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var active bool
		switch strings.ToLower(args[1]) {
		case "true", "yes", "on":
			active = true
		case "false", "no", "off":
		default:
			return fmt.Errorf("expected true or false, got %q", args[1])
		}

		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		u, err := core.NewPgUserRepository(db).SetActive(ctx, args[0], active)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", u.Email, u.IsActive)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the stored digest for a password",
	Long: `Prints the bcrypt digest written for new passwords. With --legacy prints the
unsalted SHA-256 digest older rows use.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			var err error
			if password, err = readPassword(); err != nil {
				return err
			}
		}
		if password == "" {
			return errors.New("password is empty")
		}
		if legacy, _ := cmd.Flags().GetBool("legacy"); legacy {
			fmt.Fprintln(cmd.OutOrStdout(), core.LegacyDigest(password))
			return nil
		}
		hash, err := verifier().HashSecret(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func readPassword() (string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "Enter password: ")
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", nil
}

func init() {
	usersCreateCmd.Flags().StringVar(&firstNameFlag, "first-name", "", "First name")
	usersCreateCmd.Flags().StringVar(&lastNameFlag, "last-name", "", "Last name")
	usersCreateCmd.Flags().StringVar(&emailFlag, "email", "", "Email address (login identifier)")
	usersCreateCmd.Flags().StringVar(&phoneFlag, "phone", "", "Phone number (optional login identifier)")
	usersCreateCmd.Flags().StringVar(&roleFlag, "role", "member", "Role: admin, manager, trainer, staff or member")
	usersCreateCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (use --stdin to avoid shell history)")
	usersCreateCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	usersListCmd.Flags().StringVar(&searchFlag, "search", "", "Match name, email or phone")
	usersListCmd.Flags().StringVar(&listRoleFlag, "role", "", "Only this role")
	usersListCmd.Flags().IntVar(&pageFlag, "page", 1, "Page number")
	usersListCmd.Flags().IntVar(&perPageFlag, "per-page", 20, "Rows per page")

	hashPasswordCmd.Flags().Bool("legacy", false, "Print the legacy SHA-256 digest")

	usersCmd.AddCommand(usersCreateCmd, usersListCmd, usersSetActiveCmd)
}
