package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is the role string stored on a user record. Only RoleAdmin is
// distinguished; every other value, including the empty role, is non-admin.
type Role string

const RoleAdmin Role = "admin"

// IsAdmin reports whether the role grants access to the admin area
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Redirect targets
const (
	SignInPath         = "/sign-in"
	DashboardPath      = "/dashboard"
	AdminDashboardPath = "/admin/dashboard"
	ErrorPath          = "/error"

	adminPrefix = "/admin"
)

// Outcome is the single result the guard produces for a request
type Outcome int

const (
	Allow Outcome = iota
	RedirectSignIn
	RedirectDashboard
	RedirectAdminDashboard
	RedirectError
)

// Location returns the redirect target for the outcome, or "" for Allow
func (o Outcome) Location() string {
	switch o {
	case RedirectSignIn:
		return SignInPath
	case RedirectDashboard:
		return DashboardPath
	case RedirectAdminDashboard:
		return AdminDashboardPath
	case RedirectError:
		return ErrorPath
	default:
		return ""
	}
}

// IsRedirect reports whether the outcome ends the request with a redirect
func (o Outcome) IsRedirect() bool {
	return o != Allow
}

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect-sign-in"
	case RedirectDashboard:
		return "redirect-dashboard"
	case RedirectAdminDashboard:
		return "redirect-admin-dashboard"
	case RedirectError:
		return "redirect-error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Identity is the caller as resolved by the auth layer. The zero value is
// an unauthenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
}

// Authenticated reports whether an identity token was presented
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// RoleResolver fetches the role of an authenticated user
type RoleResolver interface {
	GetUserRole(ctx context.Context, userID string) (Role, error)
}

// PathClassifier decides whether a path is reachable without authentication
type PathClassifier interface {
	IsPublic(path string) bool
}

// ErrRoleLookup matches every *RoleLookupError via errors.Is
var ErrRoleLookup = errors.New("role lookup failed")

// RoleLookupError is returned by Decide when the role of an authenticated
// caller could not be resolved. The outcome is always RedirectError.
type RoleLookupError struct {
	UserID string
	Err    error
}

func (e *RoleLookupError) Error() string {
	return fmt.Sprintf("failed to resolve role for user %s: %v", e.UserID, e.Err)
}

func (e *RoleLookupError) Unwrap() error {
	return e.Err
}

func (e *RoleLookupError) Is(target error) bool {
	return target == ErrRoleLookup
}

// Decide applies the redirect table to a single request. The resolver is
// called at most once and only for authenticated callers.
func Decide(ctx context.Context, path string, id Identity, roles RoleResolver, public PathClassifier) (Outcome, error) {
	outcome, _, err := decide(ctx, path, id, roles, public)
	return outcome, err
}

func decide(ctx context.Context, path string, id Identity, roles RoleResolver, public PathClassifier) (Outcome, Role, error) {
	if !id.Authenticated() {
		if public.IsPublic(path) {
			return Allow, "", nil
		}
		return RedirectSignIn, "", nil
	}

	role, err := roles.GetUserRole(ctx, id.UserID)
	if err != nil {
		return RedirectError, "", &RoleLookupError{UserID: id.UserID, Err: err}
	}

	// Admins have their own dashboard
	if role.IsAdmin() && path == DashboardPath {
		return RedirectAdminDashboard, role, nil
	}

	if !role.IsAdmin() && strings.HasPrefix(path, adminPrefix) {
		return RedirectDashboard, role, nil
	}

	// Signed-in users have no business on the public pages (sign-in, sign-up, landing)
	if public.IsPublic(path) {
		if role.IsAdmin() {
			return RedirectAdminDashboard, role, nil
		}
		return RedirectDashboard, role, nil
	}

	return Allow, role, nil
}
