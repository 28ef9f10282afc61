package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/terra-clan/certmap/internal/models"
)

// Catalog source kinds
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
)

// Config holds all configuration for certmap
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Filter    FilterConfig
	Sessions  SessionsConfig
	Cleanup   CleanupConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// CatalogConfig selects where certifications are loaded from
type CatalogConfig struct {
	Source string
	Path   string
	Watch  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address    string
	Password   string
	DB         int
	CatalogKey string
}

// NATSConfig holds the catalog feed configuration. An empty URL disables it.
type NATSConfig struct {
	URL            string
	CatalogSubject string
}

// FilterConfig holds filter engine settings
type FilterConfig struct {
	SearchDebounce time.Duration
}

// SessionsConfig holds filter session settings
type SessionsConfig struct {
	TTL         time.Duration
	MaxSessions int
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval time.Duration
}

// RateLimitConfig holds per-client request limits. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// AdminConfig holds admin API clients
type AdminConfig struct {
	Clients []*models.ApiClient
}

// Load reads an optional .env file, then loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	clients, err := models.ParseApiClients(getEnv("ADMIN_API_KEYS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_API_KEYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Catalog: CatalogConfig{
			Source: getEnv("CATALOG_SOURCE", SourceFile),
			Path:   getEnv("CATALOG_PATH", "./data/certifications.yaml"),
			Watch:  getEnvAsBool("CATALOG_WATCH", false),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			Address:    getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			CatalogKey: getEnv("REDIS_CATALOG_KEY", "certmap:catalog"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			CatalogSubject: getEnv("NATS_CATALOG_SUBJECT", "certmap.catalog"),
		},
		Filter: FilterConfig{
			SearchDebounce: getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		},
		Sessions: SessionsConfig{
			TTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			MaxSessions: getEnvAsInt("MAX_SESSIONS", 10000),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Admin: AdminConfig{
			Clients: clients,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required for the file source")
		}
	case SourcePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the postgres source")
		}
	case SourceRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis source")
		}
	default:
		return fmt.Errorf("unknown catalog source: %q", c.Catalog.Source)
	}

	if c.Catalog.Watch && c.Catalog.Source != SourceFile {
		return fmt.Errorf("catalog watch is only supported for the file source")
	}
	if c.Filter.SearchDebounce < 0 {
		return fmt.Errorf("invalid search debounce: %s", c.Filter.SearchDebounce)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("invalid session TTL: %s", c.Sessions.TTL)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}

	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
