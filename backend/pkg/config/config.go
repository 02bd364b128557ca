package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "persinteret/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string // empty selects the server default database

	// Photo side store (BadgerDB)
	PhotoDBDir        string
	PhotoDBInMemory   bool
	PhotoDBSyncWrites bool

	// Queries
	QueryTimeout     time.Duration
	DefaultListLimit int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", ""),
		PhotoDBDir:        getEnv("PHOTO_DB_DIR", "data/photos"),
		PhotoDBInMemory:   getEnvBool("PHOTO_DB_IN_MEMORY", false),
		PhotoDBSyncWrites: getEnvBool("PHOTO_DB_SYNC_WRITES", false),
		QueryTimeout:      time.Duration(getEnvInt("QUERY_TIMEOUT_MS", 10000)) * time.Millisecond,
		DefaultListLimit:  getEnvInt("DEFAULT_LIST_LIMIT", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if !c.PhotoDBInMemory && c.PhotoDBDir == "" {
		return apperrors.NewConfigMissingRequired("PHOTO_DB_DIR")
	}
	if c.QueryTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("QUERY_TIMEOUT_MS", "must be positive")
	}
	if c.DefaultListLimit <= 0 {
		return apperrors.NewConfigValidationFailed("DEFAULT_LIST_LIMIT", "must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
