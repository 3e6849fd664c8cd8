package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	identityKey = "identity"
	roleKey     = "role"
)

// IdentityResolver extracts the caller's identity from a request
type IdentityResolver interface {
	Resolve(c *gin.Context) Identity
}

// PathFilter selects which requests the guard runs for. Requests it excludes
// (static assets, framework internals) pass through untouched.
type PathFilter interface {
	Includes(path string) bool
}

// Guard wires the redirect table into a gin middleware
type Guard struct {
	identities IdentityResolver
	roles      RoleResolver
	public     PathClassifier
	filter     PathFilter
	logger     zerolog.Logger
}

// New creates a guard. A nil filter runs the guard for every request.
func New(identities IdentityResolver, roles RoleResolver, public PathClassifier, filter PathFilter, log zerolog.Logger) *Guard {
	return &Guard{
		identities: identities,
		roles:      roles,
		public:     public,
		filter:     filter,
		logger:     log,
	}
}

// Middleware returns the gin handler that redirects or lets the request through
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if g.filter != nil && !g.filter.Includes(path) {
			c.Next()
			return
		}

		id := g.identities.Resolve(c)
		outcome, role, err := decide(c.Request.Context(), path, id, g.roles, g.public)
		if err != nil {
			g.logger.Error().
				Err(err).
				Str("user_id", id.UserID).
				Str("path", path).
				Msg("Failed to fetch user role")
		}

		if outcome.IsRedirect() {
			g.logger.Debug().
				Str("path", path).
				Str("user_id", id.UserID).
				Str("outcome", outcome.String()).
				Msg("Redirecting request")
			c.Redirect(http.StatusTemporaryRedirect, outcome.Location())
			c.Abort()
			return
		}

		if id.Authenticated() {
			c.Set(identityKey, id)
			c.Set(roleKey, role)
		}

		c.Next()
	}
}

// GetIdentity returns the identity the guard admitted the request with
func GetIdentity(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}

	id, ok := value.(Identity)
	return id, ok
}

// GetRole returns the role resolved for the admitted request
func GetRole(c *gin.Context) Role {
	value, exists := c.Get(roleKey)
	if !exists {
		return ""
	}

	role, _ := value.(Role)
	return role
}
