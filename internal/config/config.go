package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the friend graph service.
type Config struct {
	AppPort           int
	DatabaseURL       string
	MigrationDir      string
	SeedDir           string
	LogLevel          string
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
	ShutdownTimeout   time.Duration
	ObjectStore       ObjectStoreConfig
}

// ObjectStoreConfig configures the S3 compatible bucket that receives graph
// snapshots. An empty Bucket disables exports.
type ObjectStoreConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	PublicBaseURL string
}

// Enabled reports whether snapshot exports have somewhere to go.
func (c ObjectStoreConfig) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development. A .env file in the working directory is loaded first
// when present; variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppPort:           getInt("FRIENDGRAPH_PORT", 8080),
		DatabaseURL:       getString("FRIENDGRAPH_DATABASE_URL", "postgresql://root@localhost:26257/friendgraph?sslmode=disable"),
		MigrationDir:      getString("FRIENDGRAPH_MIGRATIONS", "migrations"),
		SeedDir:           getString("FRIENDGRAPH_SEEDS", "seeds"),
		LogLevel:          getString("FRIENDGRAPH_LOG_LEVEL", "info"),
		JWTSecret:         os.Getenv("FRIENDGRAPH_JWT_SECRET"),
		AccessTokenTTL:    getDuration("FRIENDGRAPH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getDuration("FRIENDGRAPH_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RateLimitRequests: getInt("FRIENDGRAPH_RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:   getDuration("FRIENDGRAPH_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBurst:    getInt("FRIENDGRAPH_RATE_LIMIT_BURST", 5),
		ShutdownTimeout:   getDuration("FRIENDGRAPH_SHUTDOWN_TIMEOUT", 10*time.Second),
		ObjectStore: ObjectStoreConfig{
			Bucket:        os.Getenv("FRIENDGRAPH_S3_BUCKET"),
			Endpoint:      os.Getenv("FRIENDGRAPH_S3_ENDPOINT"),
			Region:        getString("FRIENDGRAPH_S3_REGION", "us-east-1"),
			PublicBaseURL: os.Getenv("FRIENDGRAPH_S3_PUBLIC_BASE_URL"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("FRIENDGRAPH_JWT_SECRET must be set")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return Config{}, errors.New("token ttls must be positive")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
