// Package config loads flashbox settings from defaults, an optional YAML
// file and FLASHBOX_* environment variables, in that order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"flashbox/internal/adapters/http/perf"
	"flashbox/internal/adapters/storage/session"
	"flashbox/internal/application/flash"
	"flashbox/internal/application/orchestrators"
)

// EnvProduction enables secure cookies and requires a CSRF key.
const EnvProduction = "production"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Session   session.Config  `yaml:"session"`
	Flash     flash.Config    `yaml:"flash"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Templates TemplatesConfig `yaml:"templates"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Perf      PerfConfig      `yaml:"perf"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CSRFKey         string        `yaml:"csrf_key"` // 64 hex characters
	TrustedOrigins  []string      `yaml:"trusted_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CatalogConfig points at a TOML message catalog. Empty means no catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// TemplatesConfig points at a directory of templates overriding the
// embedded ones. Empty means embedded only.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type SweepConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PerfConfig struct {
	RingSize int `yaml:"ring_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Session: session.Config{
			Backend: session.BackendMemory,
			TTL:     session.DefaultTTL,
		},
		Flash: flash.DefaultConfig(),
		Sweep: SweepConfig{
			Enabled: true,
			Cron:    orchestrators.DefaultSweepCron,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Perf: PerfConfig{
			RingSize: perf.DefaultRingSize,
		},
	}
}

// LoadDotEnv loads variables from each .env file that exists. Variables
// already set in the environment are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment overrides.
// POST: Returns a validated Config
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	str("FLASHBOX_ENV", &cfg.Env)
	str("FLASHBOX_ADDR", &cfg.Server.Addr)
	str("FLASHBOX_CSRF_KEY", &cfg.Server.CSRFKey)
	str("FLASHBOX_SESSION_BACKEND", &cfg.Session.Backend)
	str("FLASHBOX_DB_PATH", &cfg.Session.Path)
	str("FLASHBOX_STORAGE_KEY", &cfg.Flash.StorageKey)
	str("FLASHBOX_CATALOG", &cfg.Catalog.Path)
	str("FLASHBOX_TEMPLATES_DIR", &cfg.Templates.Dir)
	str("FLASHBOX_SWEEP_CRON", &cfg.Sweep.Cron)
	str("FLASHBOX_LOG_LEVEL", &cfg.Log.Level)
	str("FLASHBOX_LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("FLASHBOX_TRUSTED_ORIGINS"); v != "" {
		cfg.Server.TrustedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.TrustedOrigins = append(cfg.Server.TrustedOrigins, o)
			}
		}
	}
	if v := os.Getenv("FLASHBOX_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: FLASHBOX_SESSION_TTL: %v", ErrInvalid, err)
		}
		cfg.Session.TTL = d
	}
	if v := os.Getenv("FLASHBOX_SWEEP_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: FLASHBOX_SWEEP_ENABLED: %v", ErrInvalid, err)
		}
		cfg.Sweep.Enabled = b
	}
	if v := os.Getenv("FLASHBOX_RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: FLASHBOX_RATE_RPS: %v", ErrInvalid, err)
		}
		cfg.RateLimit.RPS = f
	}
	if v := os.Getenv("FLASHBOX_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FLASHBOX_RATE_BURST: %v", ErrInvalid, err)
		}
		cfg.RateLimit.Burst = n
	}
	return nil
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if _, err := c.CSRFKeyBytes(); err != nil {
		return err
	}
	if c.IsProduction() && c.Server.CSRFKey == "" {
		return fmt.Errorf("%w: server.csrf_key is required in production", ErrInvalid)
	}
	switch c.Session.Backend {
	case "", session.BackendMemory, session.BackendSQLite:
	case session.BackendPebble:
		if c.Session.Path == "" {
			return fmt.Errorf("%w: session.path is required for the pebble backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown session.backend %q", ErrInvalid, c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("%w: session.ttl must not be negative", ErrInvalid)
	}
	if c.Sweep.Enabled && !gronx.IsValid(c.Sweep.Cron) {
		return fmt.Errorf("%w: sweep.cron %q is not a cron expression", ErrInvalid, c.Sweep.Cron)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("%w: rate_limit.rps and rate_limit.burst must be positive", ErrInvalid)
	}
	return nil
}

// CSRFKeyBytes decodes Server.CSRFKey. An empty key yields nil.
func (c *Config) CSRFKeyBytes() ([]byte, error) {
	if c.Server.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Server.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: server.csrf_key must be 64 hex characters (32 bytes)", ErrInvalid)
	}
	return key, nil
}

// IsProduction reports whether Env is EnvProduction.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
