package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/routeguard/routeguard/internal/auth"
	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/models"
	"github.com/routeguard/routeguard/internal/routematch"
	"github.com/routeguard/routeguard/internal/users"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	db           *gorm.DB
	config       *config.Config
	logger       zerolog.Logger
	validator    *validator.Validate
	issuer       *auth.Issuer
	usersService *users.Service
	publicRoutes *routematch.Matcher
	guard        *guard.Guard
	version      string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := OpenDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	return NewWithDB(cfg, db, zlog, version)
}

// NewWithDB creates a server on an already opened database
func NewWithDB(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger, version string) (*Server, error) {
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	publicRoutes, err := routematch.NewMatcher(cfg.Routes.PublicRoutes)
	if err != nil {
		return nil, err
	}
	filter := routematch.NewFilter(cfg.Routes.SkipPrefixes, cfg.Routes.AlwaysPrefixes, cfg.Routes.StaticExtensions)

	usersService := users.NewService(db, zlog)
	routeGuard := guard.New(auth.NewResolver(issuer, zlog), usersService, publicRoutes, filter, zlog)

	server := &Server{
		db:           db,
		config:       cfg,
		logger:       zlog,
		validator:    validator.New(),
		issuer:       issuer,
		usersService: usersService,
		publicRoutes: publicRoutes,
		guard:        routeGuard,
		version:      version,
	}

	server.setupRouter()

	return server, nil
}

// OpenDatabase opens the SQLite database and configures the connection pool
func OpenDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 5 * time.Minute
		busyTimeout     = 5000 // milliseconds
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL must be set first
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	s.router = gin.New()
	s.router.SetHTMLTemplate(pageTemplates)

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// cors.New panics on an empty origin list
	if len(s.config.Server.CORSAllowOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSAllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", webhookSignatureHeader},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Registered before the guard: probes are never redirected, and a failed
	// role lookup on /error must not redirect back to /error
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/error", s.errorPage)

	store := cookie.NewStore([]byte(s.config.Auth.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(s.config.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.router.Use(sessions.Sessions(s.config.Auth.SessionName, store))

	// Needs the session but not the guard: a cookie naming a deleted user
	// fails every role lookup and must still be clearable
	s.router.POST("/sign-out", s.signOut)

	s.router.Use(s.guard.Middleware())

	// Public pages
	s.router.GET("/", s.homePage)
	s.router.GET("/sign-in", s.signInPage)
	s.router.POST("/sign-in", s.signIn)
	s.router.GET("/sign-up", s.signUpPage)
	s.router.POST("/sign-up", s.signUp)
	s.router.POST("/api/webhook/register", s.registerWebhook)

	// Signed-in pages
	s.router.GET("/dashboard", s.dashboardPage)
	s.router.GET("/admin/dashboard", s.adminDashboardPage)

	api := s.router.Group("/api")
	{
		api.GET("/me", s.getCurrentUser)
		api.GET("/admin/users", adminOnlyMiddleware(s.logger), s.listUsers)
		api.GET("/admin/system", adminOnlyMiddleware(s.logger), s.getSystemInfo)
	}

	s.router.NoRoute(s.notFound)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "routeguard",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
