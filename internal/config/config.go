// Package config loads application configuration from defaults, an optional YAML file,
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

var (
	// ErrMissingDatabaseURL is returned when the postgres driver is selected without DATABASE_URL.
	ErrMissingDatabaseURL = errors.New("STORAGE_DRIVER=postgres requires DATABASE_URL")

	// ErrUnknownStorageDriver is returned for an unsupported STORAGE_DRIVER value.
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Storage   StorageConfig   `koanf:"storage"`
	Inference InferenceConfig `koanf:"inference"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// SpotifyConfig holds provider credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri"`
	Market       string `koanf:"market"`
	TokenURL     string `koanf:"token_url"`
	APIBaseURL   string `koanf:"api_url"`
}

// HasCredentials reports whether both client id and secret are set.
func (c SpotifyConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Driver      string `koanf:"driver"`
	DatabaseURL string `koanf:"database_url"`
}

// InferenceConfig configures the expression model and the detection loop.
type InferenceConfig struct {
	ModelURL     string        `koanf:"model_url"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	DegradedMode bool          `koanf:"degraded_mode"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":5000",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 30,
			RateLimitWindow:   time.Minute,
		},
		Spotify: SpotifyConfig{
			RedirectURI: "http://localhost:5000/api/spotify/callback",
			Market:      "US",
			TokenURL:    spotifyauth.TokenURL,
			APIBaseURL:  "https://api.spotify.com/v1/",
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Inference: InferenceConfig{
			ModelURL:     "http://127.0.0.1:8501",
			Interval:     2 * time.Second,
			Timeout:      5 * time.Second,
			DegradedMode: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the config file if one exists,
// then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that make startup impossible.
// Missing Spotify credentials are not fatal here; requests that need them fail instead.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, c.Storage.Driver)
	}

	if c.Inference.Interval <= 0 {
		return fmt.Errorf("detection interval must be positive, got %s", c.Inference.Interval)
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("inference timeout must be positive, got %s", c.Inference.Timeout)
	}
	return nil
}

// applyFallbacks fills provider credentials from the VITE_-prefixed variables
// used by the browser build.
func (c *Config) applyFallbacks() {
	if c.Spotify.ClientID == "" {
		c.Spotify.ClientID = os.Getenv("VITE_SPOTIFY_CLIENT_ID")
	}
	if c.Spotify.ClientSecret == "" {
		c.Spotify.ClientSecret = os.Getenv("VITE_SPOTIFY_CLIENT_SECRET")
	}
	if !strings.HasSuffix(c.Spotify.APIBaseURL, "/") {
		c.Spotify.APIBaseURL += "/"
	}
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys maps recognized environment variables to config paths.
// Anything not listed is ignored.
var envKeys = map[string]string{
	"HTTP_ADDR":             "server.addr",
	"CORS_ORIGINS":          "server.cors_origins",
	"RATE_LIMIT_REQUESTS":   "server.rate_limit_requests",
	"RATE_LIMIT_WINDOW":     "server.rate_limit_window",
	"SPOTIFY_CLIENT_ID":     "spotify.client_id",
	"SPOTIFY_CLIENT_SECRET": "spotify.client_secret",
	"SPOTIFY_REDIRECT_URI":  "spotify.redirect_uri",
	"SPOTIFY_MARKET":        "spotify.market",
	"SPOTIFY_TOKEN_URL":     "spotify.token_url",
	"SPOTIFY_API_URL":       "spotify.api_url",
	"STORAGE_DRIVER":        "storage.driver",
	"DATABASE_URL":          "storage.database_url",
	"INFERENCE_URL":         "inference.model_url",
	"DETECTION_INTERVAL":    "inference.interval",
	"INFERENCE_TIMEOUT":     "inference.timeout",
	"DEGRADED_MODE":         "inference.degraded_mode",
	"LOG_LEVEL":             "logging.level",
	"LOG_FORMAT":            "logging.format",
}

func envKey(name string) string {
	return envKeys[name]
}

// splitList turns a comma separated string value (from the environment) into a slice.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}

	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}
