// Package daemon manages the dopamind process lifecycle and configuration.
package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/attnlab/dopamind/internal/app/ranking"
	"github.com/attnlab/dopamind/internal/domain"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Ranking backends.
const (
	RankingStatic = "static"
	RankingRedis  = "redis"
)

// Config holds all daemon configuration.
type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Store     StoreConfig     `toml:"store"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	API       APIConfig       `toml:"api"`
	Ranking   RankingConfig   `toml:"ranking"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Health    HealthConfig    `toml:"health"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// EngineConfig tunes the gamification engine.
type EngineConfig struct {
	RequiredPages int  `toml:"required_pages" env:"DOPAMIND_REQUIRED_PAGES"`
	LegacySync    bool `toml:"legacy_sync" env:"DOPAMIND_LEGACY_SYNC"`
}

// StoreConfig selects the progress store.
type StoreConfig struct {
	Backend string `toml:"backend" env:"DOPAMIND_STORE"`
}

// RedisConfig is shared by the redis store and the redis leaderboard.
type RedisConfig struct {
	Addr     string `toml:"addr" env:"DOPAMIND_REDIS_ADDR"`
	Password string `toml:"password" env:"DOPAMIND_REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"DOPAMIND_REDIS_DB"`
	Prefix   string `toml:"prefix" env:"DOPAMIND_REDIS_PREFIX"`
}

// PostgresConfig configures the postgres store.
type PostgresConfig struct {
	DSN      string `toml:"dsn" env:"DOPAMIND_POSTGRES_DSN"`
	MaxConns int32  `toml:"max_conns" env:"DOPAMIND_POSTGRES_MAX_CONNS"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host" env:"DOPAMIND_HOST"`
	Port        int      `toml:"port" env:"DOPAMIND_PORT"`
	CORSOrigins []string `toml:"cors_origins" env:"DOPAMIND_CORS_ORIGINS"`
}

// RankingConfig controls the leaderboard.
type RankingConfig struct {
	Backend  string               `toml:"backend" env:"DOPAMIND_RANKING"`
	Limit    int                  `toml:"limit" env:"DOPAMIND_RANKING_LIMIT"`
	UserName string               `toml:"user_name" env:"DOPAMIND_USER_NAME"`
	Member   string               `toml:"member" env:"DOPAMIND_RANKING_MEMBER"`
	Board    string               `toml:"board"`
	Roster   []ranking.Competitor `toml:"roster" envPrefix:"DOPAMIND_ROSTER_"`
}

// AnalyticsConfig controls the event tracker.
type AnalyticsConfig struct {
	Enabled   bool `toml:"enabled" env:"DOPAMIND_ANALYTICS"`
	MaxEvents int  `toml:"max_events" env:"DOPAMIND_ANALYTICS_MAX_EVENTS"`
}

// HealthConfig controls the background checker.
type HealthConfig struct {
	Interval string `toml:"interval" env:"DOPAMIND_HEALTH_INTERVAL"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus" env:"DOPAMIND_PROMETHEUS"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" env:"DOPAMIND_LOG_LEVEL"`
	Format string `toml:"format" env:"DOPAMIND_LOG_FORMAT"`
}

// DefaultConfig returns the local single-user configuration.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			RequiredPages: domain.DefaultRequiredPages,
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "dopamind:",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7439,
			CORSOrigins: []string{"*"},
		},
		Ranking: RankingConfig{
			Backend:  RankingStatic,
			Limit:    ranking.DefaultLimit,
			UserName: "You",
			Member:   ranking.CurrentUserID,
			Board:    "leaderboard",
		},
		Analytics: AnalyticsConfig{
			Enabled:   true,
			MaxEvents: 1000,
		},
		Health: HealthConfig{
			Interval: "30s",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads config from ~/.dopamind/config.toml, falling back to
// defaults, then applies DOPAMIND_* environment overrides.
func LoadConfig() (Config, error) {
	return loadConfigFile(filepath.Join(dopamindHome(), "config.toml"))
}

func loadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects unknown backends and out-of-range values.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: store %q", domain.ErrUnknownBackend, c.Store.Backend)
	}
	switch c.Ranking.Backend {
	case RankingStatic, RankingRedis:
	default:
		return fmt.Errorf("%w: ranking %q", domain.ErrUnknownBackend, c.Ranking.Backend)
	}
	if c.Store.Backend == BackendPostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("%w: postgres store needs [postgres] dsn", domain.ErrInvalidArgument)
	}
	if c.Engine.RequiredPages < 1 {
		return fmt.Errorf("%w: required_pages must be >= 1", domain.ErrInvalidArgument)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidArgument, c.API.Port)
	}
	return nil
}

// SaveConfig writes the config to ~/.dopamind/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(dopamindHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// NewLogger builds the process logger from the [logging] section.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// dopamindHome returns the data directory.
func dopamindHome() string {
	if env := os.Getenv("DOPAMIND_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dopamind")
}

// Home is exported for use by other packages.
func Home() string {
	return dopamindHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
