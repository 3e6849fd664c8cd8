package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/models"
)

// SystemInfoResponse describes the running instance for administrators
type SystemInfoResponse struct {
	Version   string          `json:"version"`
	GoVersion string          `json:"go_version"`
	Users     UserMetrics     `json:"users"`
	Routes    RouteSettings   `json:"routes"`
	Database  DatabaseMetrics `json:"database"`
}

// UserMetrics counts local user records
type UserMetrics struct {
	Total  int64 `json:"total"`
	Admins int64 `json:"admins"`
	Linked int64 `json:"linked"` // synced from the identity provider
}

// RouteSettings is the guard configuration in effect. PublicRoutes are the
// patterns the running matcher was compiled from.
type RouteSettings struct {
	PublicRoutes     []string `json:"public_routes"`
	SkipPrefixes     []string `json:"skip_prefixes"`
	AlwaysPrefixes   []string `json:"always_prefixes"`
	StaticExtensions []string `json:"static_extensions"`
}

// DatabaseMetrics reports the connection pool state
type DatabaseMetrics struct {
	OpenConnections int `json:"open_connections"`
	InUse           int `json:"in_use"`
	Idle            int `json:"idle"`
}

func (s *Server) getSystemInfo(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	userMetrics, err := s.getUserMetrics(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	response := SystemInfoResponse{
		Version:   s.version,
		GoVersion: runtime.Version(),
		Users:     *userMetrics,
		Routes: RouteSettings{
			PublicRoutes:     s.publicRoutes.Patterns(),
			SkipPrefixes:     s.config.Routes.SkipPrefixes,
			AlwaysPrefixes:   s.config.Routes.AlwaysPrefixes,
			StaticExtensions: s.config.Routes.StaticExtensions,
		},
	}

	if sqlDB, err := s.db.DB(); err == nil {
		stats := sqlDB.Stats()
		response.Database = DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) getUserMetrics(ctx context.Context) (*UserMetrics, error) {
	var metrics UserMetrics

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&metrics.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", string(guard.RoleAdmin)).Count(&metrics.Admins).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("external_id IS NOT NULL").Count(&metrics.Linked).Error; err != nil {
		return nil, err
	}

	return &metrics, nil
}
