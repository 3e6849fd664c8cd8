package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/routeguard/routeguard/internal/auth"
	"github.com/routeguard/routeguard/internal/config"
)

// setupCLIEnv points the CLI at a throwaway database
func setupCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cli.sqlite"))
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("SESSION_SECRET", "cli-test-session")
	t.Setenv("JWT_ISSUER", "routeguard-test")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("ROUTES_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
}

// TestUsersCommands walks through create, list and set-role
func TestUsersCommands(t *testing.T) {
	setupCLIEnv(t)

	var output bytes.Buffer
	if err := runUsersList(&output); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(output.String(), "No users found") {
		t.Errorf("expected empty list message, got: %s", output.String())
	}

	output.Reset()
	if err := runUsersCreate(&output, "Ada@Example.com", "Ada", "correct-horse", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(output.String(), "Created user ada@example.com") {
		t.Errorf("expected created message, got: %s", output.String())
	}

	output.Reset()
	if err := runUsersCreate(&output, "ada@example.com", "Ada again", "correct-horse", false); err == nil {
		t.Fatal("expected duplicate email to fail")
	}

	output.Reset()
	if err := runUsersSetRole(&output, "ada@example.com", "admin"); err != nil {
		t.Fatalf("set-role failed: %v", err)
	}
	if !strings.Contains(output.String(), "now has role admin") {
		t.Errorf("expected role change message, got: %s", output.String())
	}

	output.Reset()
	if err := runUsersList(&output); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	listing := output.String()
	for _, want := range []string{"EMAIL", "ada@example.com", "Ada", "admin"} {
		if !strings.Contains(listing, want) {
			t.Errorf("expected listing to contain %q, got:\n%s", want, listing)
		}
	}

	output.Reset()
	if err := runUsersSetRole(&output, "ada@example.com", "member"); err != nil {
		t.Fatalf("set-role failed: %v", err)
	}
	if !strings.Contains(output.String(), "now has role member") {
		t.Errorf("expected member role, got: %s", output.String())
	}
}

// TestRunCheck_ReadsRoleFromDatabase tests the check command with a stored user
func TestRunCheck_ReadsRoleFromDatabase(t *testing.T) {
	setupCLIEnv(t)

	var output bytes.Buffer
	if err := runUsersCreate(&output, "root@example.com", "Root", "correct-horse", true); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	s, err := openStore()
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	user, err := s.users.FindByEmail(t.Context(), "root@example.com")
	s.close()
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	output.Reset()
	if err := runCheck(t.Context(), &output, "/dashboard", checkOptions{userID: user.ID}); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(output.String(), "redirect-admin-dashboard -> /admin/dashboard") {
		t.Errorf("expected admin dashboard redirect, got: %s", output.String())
	}

	output.Reset()
	if err := runCheck(t.Context(), &output, "/dashboard", checkOptions{userID: "missing-user"}); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(output.String(), "redirect-error -> /error") {
		t.Errorf("expected error redirect for unknown user, got: %s", output.String())
	}
}

// TestRunTokenIssue tests that issued tokens validate with the same settings
func TestRunTokenIssue(t *testing.T) {
	setupCLIEnv(t)

	var output bytes.Buffer
	if err := runUsersCreate(&output, "token@example.com", "Token", "correct-horse", false); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	output.Reset()
	if err := runTokenIssue(&output, "token@example.com"); err != nil {
		t.Fatalf("token issue failed: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, time.Hour)
	if err != nil {
		t.Fatalf("issuer failed: %v", err)
	}

	claims, err := issuer.Validate(strings.TrimSpace(output.String()))
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.Subject == "" {
		t.Error("expected token subject to carry the user ID")
	}
}

// TestRunTokenIssue_RequiresSecret tests that a generated secret is refused
func TestRunTokenIssue_RequiresSecret(t *testing.T) {
	setupCLIEnv(t)
	t.Setenv("JWT_SECRET", "")

	var output bytes.Buffer
	err := runTokenIssue(&output, "nobody@example.com")
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET is not set") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
