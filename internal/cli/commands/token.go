package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/routeguard/routeguard/internal/auth"
)

// NewTokenCmd creates the token command group
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue <email>",
		Short: "Issue a bearer token for a user",
		Long: `Issue a bearer token for an existing user. The token is signed with
JWT_SECRET, so the server must run with the same secret to accept it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

func runTokenIssue(out io.Writer, email string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.close()

	// config.Load has applied .env files by now
	if os.Getenv("JWT_SECRET") == "" {
		return fmt.Errorf("JWT_SECRET is not set, the server would reject a token signed with a generated secret")
	}

	user, err := s.users.FindByEmail(context.Background(), email)
	if err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(s.cfg.Auth.JWTSecret, s.cfg.Auth.JWTIssuer, s.cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	token, err := issuer.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(out, token)
	return nil
}
