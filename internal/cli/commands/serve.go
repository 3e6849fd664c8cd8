package commands

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/logger"
	"github.com/routeguard/routeguard/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd(version string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides PORT)")

	return cmd
}

func runServe(version, port string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	if cfg.Auth.GeneratedSecrets {
		log.Warn().Msg("JWT_SECRET or SESSION_SECRET not set - generated secrets will not survive a restart")
	}

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(cfg, log, version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().Str("version", version).Msg("Starting routeguard server...")

	return srv.Start()
}
