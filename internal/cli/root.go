package cli

import (
	"fmt"
	"os"

	"github.com/routeguard/routeguard/internal/cli/commands"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "routeguard",
	Short: "routeguard - authentication-aware routing for a web application",
	Long: `routeguard serves the web application behind a route guard that sends
anonymous visitors to /sign-in, admins to /admin/dashboard and everyone
else to /dashboard.

The CLI also manages the local user store: create users, change roles and
preview what the guard would do for a given path.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("routeguard version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewServeCmd(version))
	rootCmd.AddCommand(commands.NewUsersCmd())
	rootCmd.AddCommand(commands.NewCheckCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
