// ABOUTME: Configuration loading for the vehicle-market session client.
// ABOUTME: YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig addresses the remote agent service.
type ServerConfig struct {
	// BaseURL is the HTTP base for the synchronous API, e.g.
	// "http://localhost:8000".
	BaseURL string `yaml:"base_url"`

	// WSURL is the WebSocket base. Derived from BaseURL when empty.
	WSURL string `yaml:"ws_url"`

	// AuthToken is sent as a bearer token when set.
	AuthToken string `yaml:"auth_token"`
}

// ConnectionConfig holds reconnection timing.
type ConnectionConfig struct {
	ReconnectDelay    time.Duration `yaml:"-"`
	MaxReconnectDelay time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ReconnectDelayRaw    string `yaml:"reconnect_delay"`
	MaxReconnectDelayRaw string `yaml:"max_reconnect_delay"`
}

// TranscriptConfig controls the local conversation transcript.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8000",
		},
		Connection: ConnectionConfig{
			ReconnectDelay:    3 * time.Second,
			MaxReconnectDelay: 48 * time.Second,
		},
		Transcript: TranscriptConfig{
			Path: "vmarket-transcript.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML config file, expanding ${VAR} references
// from the environment and applying defaults for anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// WebSocketURL returns the WebSocket base, deriving it from BaseURL when
// ws_url is not set explicitly.
func (c *Config) WebSocketURL() string {
	if c.Server.WSURL != "" {
		return c.Server.WSURL
	}
	base := c.Server.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" && c.Server.WSURL == "" {
		return fmt.Errorf("server.base_url or server.ws_url is required")
	}
	if c.Transcript.Enabled && c.Transcript.Path == "" {
		return fmt.Errorf("transcript.path is required when transcript is enabled")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Connection.ReconnectDelayRaw != "" {
		cfg.Connection.ReconnectDelay, err = time.ParseDuration(cfg.Connection.ReconnectDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing reconnect_delay %q: %w", cfg.Connection.ReconnectDelayRaw, err)
		}
	}

	if cfg.Connection.MaxReconnectDelayRaw != "" {
		cfg.Connection.MaxReconnectDelay, err = time.ParseDuration(cfg.Connection.MaxReconnectDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing max_reconnect_delay %q: %w", cfg.Connection.MaxReconnectDelayRaw, err)
		}
	}

	return nil
}
