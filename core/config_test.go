package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearConfigEnv blanks every variable Load reads so the host environment
// does not leak into the assertions.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_FILE", "PORT", "SESSION_KEY", "SESSION_BACKEND", "SESSION_MAX_AGE", "COOKIE_SECURE",
		"COOKIE_SAMESITE", "LOG_DIR", "LOG_FORMAT", "LOG_LEVEL", "DATABASE_URL", "POSTGRES_URL", "REDIS_URL",
		"ALLOWED_ORIGINS", "BCRYPT_COST", "LEGACY_PLAINTEXT_PASSWORDS", "INITIAL_ADMIN_PASSWORD_PATH",
		"BOOTSTRAP_ADMIN", "AUTO_MIGRATE", "LOGIN_TIMEOUT_MS",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3000" || cfg.SessionBackend != "cookie" || cfg.BcryptCost != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.LegacyPlaintextPasswords || !cfg.AutoMigrate || !cfg.BootstrapAdminEnabled {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LoginTimeout() != 3*time.Second {
		t.Fatalf("LoginTimeout = %v", cfg.LoginTimeout())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "gymdesk.yaml")
	yaml := `
server:
  port: "8080"
  allowed_origins: ["https://gym.example"]
session:
  key: file-key
  backend: redis
  max_age: 600
  cookie_secure: true
log:
  format: json
  level: debug
dependencies:
  redis_url: redis://cache:6379/0
auth:
  bcrypt_cost: 10
  legacy_plaintext_passwords: false
bootstrap:
  admin: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOGIN_TIMEOUT_MS", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, env should win", cfg.Port)
	}
	if cfg.SessionKey != "file-key" || cfg.SessionBackend != "redis" || cfg.SessionMaxAge != 600 || !cfg.CookieSecure {
		t.Errorf("session = %+v", cfg)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "debug" || cfg.RedisURL != "redis://cache:6379/0" {
		t.Errorf("log/deps = %+v", cfg)
	}
	if cfg.BcryptCost != 10 || cfg.LegacyPlaintextPasswords || cfg.BootstrapAdminEnabled {
		t.Errorf("auth/bootstrap = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.LoginTimeout() != 500*time.Millisecond {
		t.Errorf("LoginTimeout = %v", cfg.LoginTimeout())
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"redis without url", map[string]string{"SESSION_BACKEND": "redis"}},
		{"unknown backend", map[string]string{"SESSION_BACKEND": "memcached"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "2"}},
		{"missing config file", map[string]string{"CONFIG_FILE": "/nonexistent/gymdesk.yaml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" a , ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("parseCSV = %v", got)
	}
	if parseCSV("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}
