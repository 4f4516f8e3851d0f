package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flashbox/internal/adapters/storage/session"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Session.Backend != session.BackendMemory || cfg.Session.TTL != session.DefaultTTL {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Flash.StorageKey != "hint" || cfg.Flash.DefaultTemplate != "hint/default" {
		t.Errorf("Flash = %+v", cfg.Flash)
	}
	if !cfg.Sweep.Enabled || cfg.Sweep.Cron == "" {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true by default")
	}
}

// TestLoad_FileOverridesDefaults verifies unset file fields keep defaults.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "flashbox.yaml", `
server:
  addr: "127.0.0.1:9000"
  trusted_origins: ["example.com"]
session:
  backend: sqlite
  path: /tmp/sessions.db
  ttl: 2h
flash:
  storage_key: notices
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.TrustedOrigins) != 1 || cfg.Server.TrustedOrigins[0] != "example.com" {
		t.Errorf("TrustedOrigins = %v", cfg.Server.TrustedOrigins)
	}
	if cfg.Session.Backend != session.BackendSQLite || cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Flash.StorageKey != "notices" || cfg.Flash.DefaultTemplate != "hint/default" {
		t.Errorf("Flash = %+v", cfg.Flash)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want default", cfg.Server.ReadTimeout)
	}
}

// TestLoad_EnvOverridesFile verifies FLASHBOX_* variables win.
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "flashbox.yaml", "server:\n  addr: \":9000\"\n")
	t.Setenv("FLASHBOX_ADDR", ":7000")
	t.Setenv("FLASHBOX_ENV", "production")
	t.Setenv("FLASHBOX_CSRF_KEY", testKey)
	t.Setenv("FLASHBOX_TRUSTED_ORIGINS", "a.example, b.example")
	t.Setenv("FLASHBOX_SESSION_TTL", "30m")
	t.Setenv("FLASHBOX_RATE_RPS", "2.5")
	t.Setenv("FLASHBOX_RATE_BURST", "5")
	t.Setenv("FLASHBOX_SWEEP_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false")
	}
	if strings.Join(cfg.Server.TrustedOrigins, ",") != "a.example,b.example" {
		t.Errorf("TrustedOrigins = %v", cfg.Server.TrustedOrigins)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("TTL = %v", cfg.Session.TTL)
	}
	if cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 5 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Sweep.Enabled {
		t.Error("Sweep.Enabled = true")
	}
	key, err := cfg.CSRFKeyBytes()
	if err != nil || len(key) != 32 || key[31] != 0x1f {
		t.Errorf("CSRFKeyBytes() = %x, %v", key, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		invalid bool
	}{
		{name: "bad yaml", file: "server: [", invalid: false},
		{name: "short csrf key", env: map[string]string{"FLASHBOX_CSRF_KEY": "abcd"}, invalid: true},
		{name: "production without key", env: map[string]string{"FLASHBOX_ENV": "production"}, invalid: true},
		{name: "unknown backend", env: map[string]string{"FLASHBOX_SESSION_BACKEND": "redis"}, invalid: true},
		{name: "pebble without path", env: map[string]string{"FLASHBOX_SESSION_BACKEND": "pebble"}, invalid: true},
		{name: "bad cron", env: map[string]string{"FLASHBOX_SWEEP_CRON": "every minute"}, invalid: true},
		{name: "bad ttl", env: map[string]string{"FLASHBOX_SESSION_TTL": "soon"}, invalid: true},
		{name: "bad burst", env: map[string]string{"FLASHBOX_RATE_BURST": "lots"}, invalid: true},
		{name: "zero rps", env: map[string]string{"FLASHBOX_RATE_RPS": "0"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, "flashbox.yaml", tt.file)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err = %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() error = nil for missing file")
	}
}

func TestLoad_DisabledSweepSkipsCron(t *testing.T) {
	t.Setenv("FLASHBOX_SWEEP_ENABLED", "0")
	t.Setenv("FLASHBOX_SWEEP_CRON", "not a cron")
	if _, err := Load(""); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const name = "FLASHBOX_DOTENV_TEST"
	t.Cleanup(func() { os.Unsetenv(name) })

	path := writeFile(t, ".env", name+"=from-file\n")
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(name); got != "from-file" {
		t.Errorf("%s = %q, want from-file", name, got)
	}
}

// TestLoadDotEnv_KeepsEnvironment verifies real environment variables win.
func TestLoadDotEnv_KeepsEnvironment(t *testing.T) {
	t.Setenv("FLASHBOX_ADDR", ":1234")
	path := writeFile(t, ".env", "FLASHBOX_ADDR=:9999\n")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("FLASHBOX_ADDR"); got != ":1234" {
		t.Errorf("FLASHBOX_ADDR = %q, want :1234", got)
	}
}
