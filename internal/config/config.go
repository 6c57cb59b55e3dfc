// Package config handles loading and validation of daemon configuration.
// Supports both development (env vars, .env) and production (Secret
// Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
// Environment determines whether store settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// DataDir is where the durable cart mirror lives.
	DataDir string

	// GCP settings (required in production)
	GCPProject string
	ProfileID  string // names the secret holding store settings

	// Store holds the remote store API settings.
	Store StoreConfig

	// DebounceWindow bounds the stock validation debounce. Zero selects
	// the package default.
	DebounceWindow time.Duration
}

// StoreConfig contains remote store API settings.
// In production this is loaded from Secret Manager as JSON; in development
// from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	// APIBaseURL is the store API root, e.g. https://shop.example.com.
	APIBaseURL string `json:"api_base_url"`

	// RequestTimeout in seconds for store API calls. Zero selects the
	// client default.
	RequestTimeout int `json:"request_timeout,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → env vars / Secret Manager.
// In development a .env file in the working directory is folded into the
// environment first.
func Load(ctx context.Context) (*Config, error) {
	// .env is a development convenience only; a missing file is fine.
	if envOrDefault("ENVIRONMENT", "development") != "production" {
		_ = godotenv.Load()
	}

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "7464"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		DataDir:     envOrDefault("DATA_DIR", defaultDataDir()),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		ProfileID:   os.Getenv("PROFILE_ID"),
	}

	if ms := os.Getenv("STOCK_DEBOUNCE_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil {
			return nil, fmt.Errorf("parsing STOCK_DEBOUNCE_MS: %w", err)
		}
		cfg.DebounceWindow = time.Duration(n) * time.Millisecond
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.ProfileID == "" {
			return nil, fmt.Errorf("PROFILE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid juggling env vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port           string      `json:"port"`
		Environment    string      `json:"environment"`
		LogLevel       string      `json:"log_level"`
		DataDir        string      `json:"data_dir"`
		Store          StoreConfig `json:"store"`
		DebounceWindow int         `json:"stock_debounce_ms"`
	}
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:           withDefault(fileConfig.Port, "7464"),
		Environment:    withDefault(fileConfig.Environment, "development"),
		LogLevel:       withDefault(fileConfig.LogLevel, "info"),
		DataDir:        withDefault(fileConfig.DataDir, defaultDataDir()),
		Store:          fileConfig.Store,
		DebounceWindow: time.Duration(fileConfig.DebounceWindow) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches store settings from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{profile_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.ProfileID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads store settings from individual environment variables.
func (c *Config) loadFromEnv() error {
	c.Store.APIBaseURL = os.Getenv("STORE_API_BASE_URL")
	if timeout := os.Getenv("STORE_REQUEST_TIMEOUT"); timeout != "" {
		n, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("parsing STORE_REQUEST_TIMEOUT: %w", err)
		}
		c.Store.RequestTimeout = n
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.APIBaseURL == "" {
		return fmt.Errorf("store api_base_url is required")
	}
	if _, err := url.Parse(c.Store.APIBaseURL); err != nil {
		return fmt.Errorf("invalid store api_base_url: %w", err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	return nil
}

// defaultDataDir places the mirror under the user cache directory,
// falling back to a relative path when none is resolvable.
func defaultDataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".cartd"
	}
	return base + string(os.PathSeparator) + "cartd"
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if
// not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
