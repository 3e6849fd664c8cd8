package auth

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/routeguard/routeguard/internal/guard"
)

const (
	bearerPrefix = "Bearer "

	// SessionUserKey is the session value holding the signed-in user ID
	SessionUserKey = "user_id"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

// Resolver finds the caller's identity in the session cookie or, for API
// clients, in a bearer token. It requires the sessions middleware.
type Resolver struct {
	issuer *Issuer
	logger zerolog.Logger
}

// NewResolver creates an identity resolver
func NewResolver(issuer *Issuer, log zerolog.Logger) *Resolver {
	return &Resolver{
		issuer: issuer,
		logger: log,
	}
}

// Resolve returns the caller's identity, or the zero identity when the
// request carries no valid credentials
func (r *Resolver) Resolve(c *gin.Context) guard.Identity {
	if userID := SessionUserID(c); userID != "" {
		return guard.Identity{UserID: userID}
	}

	token, err := extractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		if !errors.Is(err, ErrMissingAuthHeader) {
			r.logger.Debug().Err(err).Msg("Ignoring malformed authorization header")
		}
		return guard.Identity{}
	}

	claims, err := r.issuer.Validate(token)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Ignoring invalid bearer token")
		return guard.Identity{}
	}

	return guard.Identity{UserID: claims.Subject}
}

// SessionUserID returns the user stored in the session cookie, or ""
func SessionUserID(c *gin.Context) string {
	userID, _ := sessions.Default(c).Get(SessionUserKey).(string)
	return userID
}

// SignIn stores the user in the session cookie
func SignIn(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(SessionUserKey, userID)
	return session.Save()
}

// SignOut clears the session cookie
func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}
