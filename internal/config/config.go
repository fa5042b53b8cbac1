package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"steam-release-calendar/internal/logging"
	"steam-release-calendar/internal/tracing"
)

// Config holds application configuration.
type Config struct {
	Steam       SteamConfig    `yaml:"steam"`
	HTTP        HTTPConfig     `yaml:"http"`
	IGDB        IGDBConfig     `yaml:"igdb"`
	OutputDir   string         `yaml:"output_dir"`
	MetricsFile string         `yaml:"metrics_file"`
	Logging     logging.Config `yaml:"logging"`
	Tracing     tracing.Config `yaml:"tracing"`
}

// SteamConfig holds storefront settings.
type SteamConfig struct {
	APIKey    string `yaml:"api_key"`
	Country   string `yaml:"country"`
	Language  string `yaml:"language"`
	UserAgent string `yaml:"user_agent"`
}

// HTTPConfig controls retries and pacing of outgoing requests.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RetryMax          int           `yaml:"retry_max"`
	RetryWaitMin      time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax      time.Duration `yaml:"retry_wait_max"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// IGDBConfig holds optional Twitch credentials used to fill in missing dates.
type IGDBConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled reports whether both credentials are present.
func (c IGDBConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Steam: SteamConfig{
			Country:   "US",
			Language:  "english",
			UserAgent: DefaultUserAgent,
		},
		HTTP: HTTPConfig{
			Timeout:           20 * time.Second,
			RetryMax:          3,
			RetryWaitMin:      time.Second,
			RetryWaitMax:      30 * time.Second,
			RequestsPerSecond: 1,
		},
		OutputDir: "calendar_events",
		Logging:   logging.DefaultConfig(),
		Tracing:   tracing.DefaultConfig(),
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".steamcal.yaml",
		".steamcal.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "steamcal", "config.yaml"),
			filepath.Join(home, ".config", "steamcal", "config.yml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: explicit path > env STEAMCAL_CONFIG > search paths > defaults,
// then environment overrides. A .env file in the working directory is read
// first so its values count as environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("STEAMCAL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				if err := cfg.loadFromFile(p); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the user
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STEAM_API_KEY"); v != "" {
		c.Steam.APIKey = v
	}
	if v := os.Getenv("STEAMCAL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("STEAMCAL_COUNTRY"); v != "" {
		c.Steam.Country = v
	}
	if v := os.Getenv("STEAMCAL_LANGUAGE"); v != "" {
		c.Steam.Language = v
	}
	if v := os.Getenv("STEAMCAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STEAMCAL_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.HTTP.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("IGDB_CLIENT_ID"); v != "" {
		c.IGDB.ClientID = v
	}
	if v := os.Getenv("IGDB_CLIENT_SECRET"); v != "" {
		c.IGDB.ClientSecret = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
		c.Tracing.Enabled = true
	}
}

// Validate rejects settings that would make every request fail.
func (c *Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.RequestsPerSecond <= 0 {
		return fmt.Errorf("http.requests_per_second must be positive, got %g", c.HTTP.RequestsPerSecond)
	}
	if c.HTTP.RetryMax < 0 {
		return fmt.Errorf("http.retry_max must not be negative, got %d", c.HTTP.RetryMax)
	}
	if c.HTTP.RetryWaitMax < c.HTTP.RetryWaitMin {
		return fmt.Errorf("http.retry_wait_max (%s) is below retry_wait_min (%s)", c.HTTP.RetryWaitMax, c.HTTP.RetryWaitMin)
	}
	return nil
}

// GetOutputDir returns the artifact directory, applying defaults.
func (c *Config) GetOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return "calendar_events"
}

// HasAPIKey reports whether a Steam Web API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.Steam.APIKey != ""
}
