package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/routeguard/routeguard/internal/routematch"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Authentication Configuration
	Auth AuthConfig

	// Route guard Configuration
	Routes RoutesConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port             string
	CORSAllowOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token, session and webhook secrets
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	SessionSecret string
	SessionName   string
	WebhookSecret string

	// GeneratedSecrets is set when JWT or session secrets were generated at
	// startup. Sessions and tokens then do not survive a restart.
	GeneratedSecrets bool
}

// RoutesConfig holds the public route patterns and the guard's inclusion filter
type RoutesConfig struct {
	PublicRoutes     []string `yaml:"public_routes"`
	SkipPrefixes     []string `yaml:"skip_prefixes"`
	AlwaysPrefixes   []string `yaml:"always_prefixes"`
	StaticExtensions []string `yaml:"static_extensions"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	port := getEnv("PORT", "8080")
	dbURL := getEnv("DATABASE_URL", "routeguard.sqlite")

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL: must be positive")
	}

	authCfg := AuthConfig{
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTIssuer:     getEnv("JWT_ISSUER", "routeguard"),
		TokenTTL:      tokenTTL,
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionName:   getEnv("SESSION_NAME", "__session"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}

	// Secrets default to random values so a fresh checkout boots
	if authCfg.JWTSecret == "" {
		if authCfg.JWTSecret, err = randomSecret(); err != nil {
			return nil, err
		}
		authCfg.GeneratedSecrets = true
	}
	if authCfg.SessionSecret == "" {
		if authCfg.SessionSecret, err = randomSecret(); err != nil {
			return nil, err
		}
		authCfg.GeneratedSecrets = true
	}

	routes := RoutesConfig{
		PublicRoutes:     routematch.DefaultPublicRoutes,
		SkipPrefixes:     routematch.DefaultSkipPrefixes,
		AlwaysPrefixes:   routematch.DefaultAlwaysPrefixes,
		StaticExtensions: routematch.DefaultStaticExtensions,
	}
	if routesFile := os.Getenv("ROUTES_FILE"); routesFile != "" {
		if err := loadRoutesFile(routesFile, &routes); err != nil {
			return nil, err
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:             port,
			CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Auth:   authCfg,
		Routes: routes,
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// loadRoutesFile overrides the route settings present in a YAML file.
// Keys missing from the file keep their current value.
func loadRoutesFile(path string, routes *RoutesConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read routes file: %w", err)
	}

	var file RoutesConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse routes file %s: %w", path, err)
	}

	if file.PublicRoutes != nil {
		routes.PublicRoutes = file.PublicRoutes
	}
	if file.SkipPrefixes != nil {
		routes.SkipPrefixes = file.SkipPrefixes
	}
	if file.AlwaysPrefixes != nil {
		routes.AlwaysPrefixes = file.AlwaysPrefixes
	}
	if file.StaticExtensions != nil {
		routes.StaticExtensions = file.StaticExtensions
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// randomSecret returns 64 hex characters (32 bytes of randomness)
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
