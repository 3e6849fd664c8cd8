package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/routematch"
)

func defaultRoutes() config.RoutesConfig {
	return config.RoutesConfig{
		PublicRoutes:     routematch.DefaultPublicRoutes,
		SkipPrefixes:     routematch.DefaultSkipPrefixes,
		AlwaysPrefixes:   routematch.DefaultAlwaysPrefixes,
		StaticExtensions: routematch.DefaultStaticExtensions,
	}
}

// TestEvaluate checks the offline evaluation against the redirect table
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		userID       string
		roles        staticRoles
		wantIncluded bool
		wantOutcome  guard.Outcome
		wantErr      bool
	}{
		{name: "anonymous on public page", path: "/", wantIncluded: true, wantOutcome: guard.Allow},
		{name: "anonymous on protected page", path: "/dashboard", wantIncluded: true, wantOutcome: guard.RedirectSignIn},
		{name: "static asset is skipped", path: "/logo.png", wantIncluded: false},
		{name: "next internals are skipped", path: "/_next/data/build.json", wantIncluded: false},
		{name: "admin on dashboard", path: "/dashboard", userID: "u1", roles: staticRoles{role: guard.RoleAdmin}, wantIncluded: true, wantOutcome: guard.RedirectAdminDashboard},
		{name: "member on admin area", path: "/admin/users", userID: "u1", wantIncluded: true, wantOutcome: guard.RedirectDashboard},
		{name: "member on sign-in", path: "/sign-in", userID: "u1", wantIncluded: true, wantOutcome: guard.RedirectDashboard},
		{name: "member on api", path: "/api/me", userID: "u1", wantIncluded: true, wantOutcome: guard.Allow},
		{name: "lookup fails", path: "/dashboard", userID: "u1", roles: staticRoles{err: errSimulatedLookup}, wantIncluded: true, wantOutcome: guard.RedirectError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluate(context.Background(), defaultRoutes(), tt.path, guard.Identity{UserID: tt.userID}, tt.roles)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}

			if result.Included != tt.wantIncluded {
				t.Fatalf("expected included=%v, got %v", tt.wantIncluded, result.Included)
			}
			if !tt.wantIncluded {
				return
			}
			if result.Outcome != tt.wantOutcome {
				t.Errorf("expected outcome %s, got %s", tt.wantOutcome, result.Outcome)
			}
			if tt.wantErr != (result.Err != nil) {
				t.Errorf("expected error=%v, got %v", tt.wantErr, result.Err)
			}
			if tt.wantErr && !errors.Is(result.Err, guard.ErrRoleLookup) {
				t.Errorf("expected a role lookup error, got %v", result.Err)
			}
		})
	}
}

// TestEvaluate_InvalidPattern tests that a broken routes config is reported
func TestEvaluate_InvalidPattern(t *testing.T) {
	routes := defaultRoutes()
	routes.PublicRoutes = []string{"no-leading-slash"}

	_, err := evaluate(context.Background(), routes, "/", guard.Identity{}, staticRoles{})
	if !errors.Is(err, routematch.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

// TestRunCheck_Output tests the printed result without touching the database
func TestRunCheck_Output(t *testing.T) {
	t.Setenv("ROUTES_FILE", "")

	tests := []struct {
		name  string
		path  string
		opts  checkOptions
		wants []string
	}{
		{
			name:  "anonymous redirect",
			path:  "/dashboard",
			wants: []string{"Path:     /dashboard", "Guard:    runs", "Outcome:  redirect-sign-in -> /sign-in"},
		},
		{
			name:  "admin allowed",
			path:  "/admin/dashboard",
			opts:  checkOptions{userID: "u1", role: "admin", roleSet: true},
			wants: []string{"Outcome:  allow"},
		},
		{
			name:  "skipped asset",
			path:  "/app.css",
			wants: []string{"Guard:    skipped"},
		},
		{
			name:  "simulated failure",
			path:  "/dashboard",
			opts:  checkOptions{userID: "u1", lookupFails: true},
			wants: []string{"Outcome:  redirect-error -> /error", "Error:    failed to resolve role for user u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			if err := runCheck(context.Background(), &output, tt.path, tt.opts); err != nil {
				t.Fatalf("check failed: %v", err)
			}

			for _, want := range tt.wants {
				if !strings.Contains(output.String(), want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output.String())
				}
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if got := parseRole("member"); got != "" {
		t.Errorf("expected member to map to the empty role, got %q", got)
	}
	if got := parseRole("admin"); got != guard.RoleAdmin {
		t.Errorf("expected admin role, got %q", got)
	}
}
