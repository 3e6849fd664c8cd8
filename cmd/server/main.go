package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/logger"
	"github.com/routeguard/routeguard/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	if cfg.Auth.GeneratedSecrets {
		log.Warn().Msg("JWT_SECRET or SESSION_SECRET not set - generated secrets will not survive a restart")
	}

	gin.SetMode(gin.ReleaseMode)

	// Create server
	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Msg("Starting routeguard server...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
