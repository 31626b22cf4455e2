package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, env := range []string{EnvBaseURL, EnvToken, EnvWebhookSecret, EnvJWTSecret, EnvDatabaseURL, EnvRedisURL} {
		t.Setenv(env, "")
	}
	return dir
}

func TestLoadDefault(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.IsAuthenticated() {
		t.Error("default config should not be authenticated")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := isolate(t)

	cfg := &Config{
		BaseURL:       "https://api.learn.cheap",
		Token:         "tok",
		WebhookSecret: "whsec_abc",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath := filepath.Join(dir, ".config", "lc", "config.yaml")
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BaseURL != cfg.BaseURL {
		t.Errorf("BaseURL = %s, want %s", loaded.BaseURL, cfg.BaseURL)
	}
	if loaded.Token != cfg.Token {
		t.Errorf("Token = %s, want %s", loaded.Token, cfg.Token)
	}
	if loaded.WebhookSecret != cfg.WebhookSecret {
		t.Errorf("WebhookSecret = %s, want %s", loaded.WebhookSecret, cfg.WebhookSecret)
	}
}

func TestEnvOverride(t *testing.T) {
	isolate(t)

	if err := (&Config{BaseURL: "https://file.example", Token: "file-token"}).Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	t.Setenv(EnvBaseURL, "https://env.example")
	t.Setenv(EnvToken, "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://env.example" {
		t.Errorf("BaseURL = %s, want env value", cfg.BaseURL)
	}
	if cfg.Token != "env-token" {
		t.Errorf("Token = %s, want env value", cfg.Token)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".config", "lc")
	if err := os.MkdirAll(path, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "config.yaml"), []byte("base_url: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on invalid yaml")
	}
}

func TestGetSet(t *testing.T) {
	cfg := &Config{}
	for _, key := range Keys {
		if err := cfg.Set(key, "v-"+key); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", key, err)
		}
		if got != "v-"+key {
			t.Errorf("Get(%s) = %s", key, got)
		}
	}

	if err := cfg.Set("nope", "x"); err == nil {
		t.Error("Set(nope) should fail")
	}
}

func TestGetTimeout(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		key      string
		expected time.Duration
	}{
		{"http default", Config{}, "http", DefaultHTTPTimeout},
		{"watch default", Config{}, "watch", DefaultWatchTimeout},
		{"upload default", Config{}, "upload", DefaultUploadTimeout},
		{"custom watch", Config{Timeouts: TimeoutConfig{Watch: "10m"}}, "watch", 10 * time.Minute},
		{"invalid falls back", Config{Timeouts: TimeoutConfig{HTTP: "soon"}}, "http", DefaultHTTPTimeout},
		{"unknown key", Config{}, "other", DefaultHTTPTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetTimeout(tt.key); got != tt.expected {
				t.Errorf("GetTimeout(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestLockPath(t *testing.T) {
	if got := (&Config{LockFile: "/var/run/lc.lock"}).LockPath(); got != "/var/run/lc.lock" {
		t.Errorf("LockPath() = %s", got)
	}
	if got := (&Config{}).LockPath(); filepath.Base(got) != DefaultLockFile {
		t.Errorf("LockPath() = %s, want default name", got)
	}
}
