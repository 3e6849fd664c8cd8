package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/models"
	"github.com/routeguard/routeguard/internal/users"
)

// roleChoices are offered by the interactive role prompt
var roleChoices = []string{"member", string(guard.RoleAdmin)}

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage local user accounts",
	}

	cmd.AddCommand(newUsersCreateCmd())
	cmd.AddCommand(newUsersSetRoleCmd())
	cmd.AddCommand(newUsersListCmd())

	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var email, name, password string
	var admin bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersCreate(cmd.OutOrStdout(), email, name, password, admin)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set ROUTEGUARD_PASSWORD, will prompt if not provided)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUsersCreate(out io.Writer, email, name, password string, admin bool) error {
	if password == "" {
		password = os.Getenv("ROUTEGUARD_PASSWORD")
	}
	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.close()

	var role guard.Role
	if admin {
		role = guard.RoleAdmin
	}

	user, err := s.users.Create(context.Background(), users.CreateParams{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Created user %s (%s)\n", user.Email, user.ID)
	if admin {
		fmt.Fprintln(out, "  Role: admin")
	}

	return nil
}

func promptPassword() (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or ROUTEGUARD_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(bytePassword), nil
}

func newUsersSetRoleCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "set-role <email>",
		Short: "Change the role of a user",
		Long: `Change the role of a user. Only "admin" is meaningful to the route guard;
use "member" (or an empty role) to revoke admin access. Without --role an
interactive prompt is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("role") {
				selected, err := promptRole()
				if err != nil {
					return err
				}
				role = selected
			}
			return runUsersSetRole(cmd.OutOrStdout(), args[0], role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", `Role to assign ("admin" or "member")`)

	return cmd
}

func promptRole() (string, error) {
	prompt := promptui.Select{
		Label: "Select a role",
		Items: roleChoices,
		Templates: &promptui.SelectTemplates{
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("role selection cancelled: %w", err)
	}
	return selected, nil
}

// parseRole maps CLI input to a stored role. "member" is stored as no role.
func parseRole(value string) guard.Role {
	if value == "member" {
		return ""
	}
	return guard.Role(value)
}

func runUsersSetRole(out io.Writer, email, role string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.close()

	user, err := s.users.SetRole(context.Background(), email, parseRole(role))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ %s now has role %s\n", user.Email, displayRole(user))
	return nil
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(cmd.OutOrStdout())
		},
	}
}

func runUsersList(out io.Writer) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.close()

	all, err := s.users.List(context.Background())
	if err != nil {
		return err
	}

	if len(all) == 0 {
		fmt.Fprintln(out, "No users found.")
		fmt.Fprintln(out, "\nCreate one with: routeguard users create --email <email>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED AT")
	fmt.Fprintln(w, "──\t─────\t────\t────\t──────────")

	for i := range all {
		user := &all[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			user.ID,
			user.Email,
			user.Name,
			displayRole(user),
			user.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	return w.Flush()
}

func displayRole(user *models.User) string {
	if user.Role == "" {
		return "member"
	}
	return user.Role
}
