package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/routematch"
)

var errSimulatedLookup = errors.New("simulated role lookup failure")

// staticRoles answers role lookups from a fixed value
type staticRoles struct {
	role guard.Role
	err  error
}

func (r staticRoles) GetUserRole(ctx context.Context, userID string) (guard.Role, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.role, nil
}

type checkOptions struct {
	userID      string
	role        string
	roleSet     bool
	lookupFails bool
}

// checkResult is what the guard would do with a request for path
type checkResult struct {
	Path     string
	Included bool
	Outcome  guard.Outcome
	Err      error
}

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Show what the route guard does for a path",
		Long: `Evaluate the route guard for a path without starting the server.

Without --user-id the caller is anonymous. With --user-id the role is read
from the user database unless --role or --lookup-fails is given.

Examples:
  routeguard check /dashboard
  routeguard check /admin/users --user-id 01HX... --role member
  routeguard check /dashboard --user-id u1 --lookup-fails`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.roleSet = cmd.Flags().Changed("role")
			return runCheck(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user-id", "", "Authenticated user ID (anonymous if empty)")
	cmd.Flags().StringVar(&opts.role, "role", "", `Role to assume instead of reading it from the database ("admin" or "member")`)
	cmd.Flags().BoolVar(&opts.lookupFails, "lookup-fails", false, "Simulate a failing role lookup")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, path string, opts checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var roles guard.RoleResolver
	switch {
	case opts.lookupFails:
		roles = staticRoles{err: errSimulatedLookup}
	case opts.roleSet || opts.userID == "":
		roles = staticRoles{role: parseRole(opts.role)}
	default:
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.close()
		roles = s.users
	}

	result, err := evaluate(ctx, cfg.Routes, path, guard.Identity{UserID: opts.userID}, roles)
	if err != nil {
		return err
	}

	printCheckResult(out, result)
	return nil
}

// evaluate runs the inclusion filter and the guard the same way the server does
func evaluate(ctx context.Context, routes config.RoutesConfig, path string, id guard.Identity, roles guard.RoleResolver) (*checkResult, error) {
	matcher, err := routematch.NewMatcher(routes.PublicRoutes)
	if err != nil {
		return nil, err
	}
	filter := routematch.NewFilter(routes.SkipPrefixes, routes.AlwaysPrefixes, routes.StaticExtensions)

	result := &checkResult{Path: path, Included: filter.Includes(path)}
	if !result.Included {
		return result, nil
	}

	result.Outcome, result.Err = guard.Decide(ctx, path, id, roles, matcher)
	return result, nil
}

func printCheckResult(out io.Writer, r *checkResult) {
	fmt.Fprintf(out, "Path:     %s\n", r.Path)

	if !r.Included {
		fmt.Fprintln(out, "Guard:    skipped (excluded by the request filter)")
		return
	}

	fmt.Fprintln(out, "Guard:    runs")
	if r.Outcome.IsRedirect() {
		fmt.Fprintf(out, "Outcome:  %s -> %s\n", r.Outcome, r.Outcome.Location())
	} else {
		fmt.Fprintf(out, "Outcome:  %s\n", r.Outcome)
	}
	if r.Err != nil {
		fmt.Fprintf(out, "Error:    %v\n", r.Err)
	}
}
