package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/routeguard/routeguard/internal/config"
	"github.com/routeguard/routeguard/internal/logger"
	"github.com/routeguard/routeguard/internal/models"
	"github.com/routeguard/routeguard/internal/server"
	"github.com/routeguard/routeguard/internal/users"
)

// store bundles what the user management commands need
type store struct {
	cfg   *config.Config
	db    *gorm.DB
	users *users.Service
	log   zerolog.Logger
}

// openStore loads the configuration and opens the user database.
// Call close when done so SQLite flushes its WAL.
func openStore() (*store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so command output stays clean
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Logging.Level))
	log := logger.New("console", os.Stderr)

	db, err := server.OpenDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &store{
		cfg:   cfg,
		db:    db,
		users: users.NewService(db, log),
		log:   log,
	}, nil
}

func (s *store) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
