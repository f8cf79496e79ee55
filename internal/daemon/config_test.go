package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/attnlab/dopamind/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendSQLite)
	}
	if cfg.Engine.RequiredPages != 3 {
		t.Errorf("Engine.RequiredPages = %d, want 3", cfg.Engine.RequiredPages)
	}
	if cfg.Ranking.Limit != 5 {
		t.Errorf("Ranking.Limit = %d, want 5", cfg.Ranking.Limit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[engine]
required_pages = 5

[store]
backend = "memory"

[api]
port = 9000
cors_origins = ["http://localhost:5173"]

[[ranking.roster]]
id = "zoe"
name = "Zoe"
points = 999
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}
	if cfg.Engine.RequiredPages != 5 {
		t.Errorf("RequiredPages = %d, want 5", cfg.Engine.RequiredPages)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Backend = %q", cfg.Store.Backend)
	}
	if cfg.API.Port != 9000 || cfg.API.Host != "127.0.0.1" {
		t.Errorf("API = %+v, file should override port only", cfg.API)
	}
	if len(cfg.Ranking.Roster) != 1 || cfg.Ranking.Roster[0].Points != 999 {
		t.Errorf("Roster = %+v", cfg.Ranking.Roster)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[api]\nport = 9000\n"), 0o644)

	t.Setenv("DOPAMIND_PORT", "9100")
	t.Setenv("DOPAMIND_STORE", "memory")
	t.Setenv("DOPAMIND_CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if len(cfg.API.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.API.CORSOrigins)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("Port = %d", cfg.API.Port)
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[api\nport = "), 0o644)
	if _, err := loadConfigFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "etcd" }, domain.ErrUnknownBackend},
		{"unknown ranking", func(c *Config) { c.Ranking.Backend = "random" }, domain.ErrUnknownBackend},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, domain.ErrInvalidArgument},
		{"zero required pages", func(c *Config) { c.Engine.RequiredPages = 0 }, domain.ErrInvalidArgument},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("DOPAMIND_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Engine.LegacySync = true
	cfg.Ranking.UserName = "Marta"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !got.Engine.LegacySync || got.Ranking.UserName != "Marta" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestNewLogger_Level(t *testing.T) {
	l := NewLogger(LoggingConfig{Level: "warn", Format: "json"})
	if l.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10s", 10 * time.Second},
		{"", time.Minute},
		{"bogus", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseDuration(tt.input, time.Minute); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
