package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/routeguard/routeguard/internal/guard"
)

var (
	ErrNoIdentity = errors.New("no identity")
	ErrNotAdmin   = errors.New("not admin")
)

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// adminOnlyMiddleware protects admin API routes that live outside /admin and
// are therefore not covered by the guard's admin-prefix redirect
func adminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := guard.GetIdentity(c); !exists {
			respondWithError(c, log, http.StatusUnauthorized, ErrNoIdentity, "Unauthorized")
			return
		}

		if !guard.GetRole(c).IsAdmin() {
			respondWithError(c, log, http.StatusForbidden, ErrNotAdmin, "Admin access required")
			return
		}

		c.Next()
	}
}
