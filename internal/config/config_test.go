package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// clearEnv unsets every variable Load consults so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "DATA_DIR",
		"GCP_PROJECT", "PROFILE_ID", "STORE_API_BASE_URL",
		"STORE_REQUEST_TIMEOUT", "STOCK_DEBOUNCE_MS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_API_BASE_URL", "https://shop.example.com")
	t.Setenv("PORT", "9000")
	t.Setenv("STOCK_DEBOUNCE_MS", "250")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.Store.APIBaseURL != "https://shop.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.Store.APIBaseURL)
	}
	if cfg.DebounceWindow.Milliseconds() != 250 {
		t.Errorf("DebounceWindow = %v, want 250ms", cfg.DebounceWindow)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should have a default")
	}
}

func TestLoad_MissingStoreURL(t *testing.T) {
	clearEnv(t)

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error when store URL is missing")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"port": "8081",
		"log_level": "debug",
		"data_dir": "/tmp/cartd-test",
		"store": {"api_base_url": "https://shop.example.com", "request_timeout": 5},
		"stock_debounce_ms": 100
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.Store.RequestTimeout != 5 {
		t.Errorf("RequestTimeout = %d, want 5", cfg.Store.RequestTimeout)
	}
	if cfg.DebounceWindow.Milliseconds() != 100 {
		t.Errorf("DebounceWindow = %v, want 100ms", cfg.DebounceWindow)
	}
}

func TestLoad_FileMissingStoreURL(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"port":"8081"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error for file without store URL")
	}
}

func TestLoad_ProductionRequiresGCPSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_API_BASE_URL", "https://shop.example.com")

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error when GCP_PROJECT is missing in production")
	}

	t.Setenv("GCP_PROJECT", "proj-1")
	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error when PROFILE_ID is missing in production")
	}
}

func TestLoad_BadDebounceValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_API_BASE_URL", "https://shop.example.com")
	t.Setenv("STOCK_DEBOUNCE_MS", "soon")

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error for non-numeric debounce")
	}
}
