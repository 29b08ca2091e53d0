// ABOUTME: Configuration loading and parsing for coven-chat and its dev server
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigEnvVar names a config file that takes precedence over the search path.
const ConfigEnvVar = "COVEN_CHAT_CONFIG"

// Config represents the complete coven-chat configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	HTTP     HTTPConfig     `yaml:"http" toml:"http"`
	Realtime RealtimeConfig `yaml:"realtime" toml:"realtime"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	UI       UIConfig       `yaml:"ui" toml:"ui"`
	Dev      DevConfig      `yaml:"dev" toml:"dev"`
}

// ServerConfig locates the chat server
type ServerConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	// SocketURL defaults to base_url with a ws scheme and /socket appended
	SocketURL string `yaml:"socket_url" toml:"socket_url"`
}

// AuthConfig holds the session token source
type AuthConfig struct {
	Token     string `yaml:"token" toml:"token"`
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

// HTTPConfig holds REST client settings
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// RealtimeConfig holds socket and event settings
type RealtimeConfig struct {
	HandshakeTimeout time.Duration `yaml:"-" toml:"-"`
	ReconnectDelay   time.Duration `yaml:"-" toml:"-"`
	DedupeTTL        time.Duration `yaml:"-" toml:"-"`
	DedupeSize       int           `yaml:"dedupe_size" toml:"dedupe_size"`

	// Raw string values for unmarshaling
	HandshakeTimeoutRaw string `yaml:"handshake_timeout" toml:"handshake_timeout"`
	ReconnectDelayRaw   string `yaml:"reconnect_delay" toml:"reconnect_delay"`
	DedupeTTLRaw        string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// UIConfig holds terminal client preferences
type UIConfig struct {
	Color   bool   `yaml:"color" toml:"color"`
	HTMLOut string `yaml:"html_out" toml:"html_out"`
}

// DevConfig configures the local development server
type DevConfig struct {
	Addr           string        `yaml:"addr" toml:"addr"`
	Store          string        `yaml:"store" toml:"store"` // sqlite or pebble
	DatabasePath   string        `yaml:"database_path" toml:"database_path"`
	JWTSecret      string        `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"-" toml:"-"`
	TokenTTLRaw    string        `yaml:"token_ttl" toml:"token_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins" toml:"allowed_origins"` // empty allows any origin
}

// Default returns a configuration pointing at a dev server on localhost.
func Default() *Config {
	return &Config{
		Server: ServerConfig{BaseURL: "http://localhost:5001/api"},
		HTTP:   HTTPConfig{Timeout: 15 * time.Second},
		Realtime: RealtimeConfig{
			HandshakeTimeout: 10 * time.Second,
			ReconnectDelay:   3 * time.Second,
			DedupeTTL:        10 * time.Minute,
			DedupeSize:       1024,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		UI:      UIConfig{Color: true},
		Dev: DevConfig{
			Addr:         "localhost:5001",
			Store:        "sqlite",
			DatabasePath: "coven-chat.db",
			TokenTTL:     7 * 24 * time.Hour,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML. Values
// missing from the file keep their defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Locate returns the first config file that exists, checking the
// COVEN_CHAT_CONFIG variable, the working directory, then the user config
// directory. Returns "" when none is found.
func Locate() string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p
	}

	candidates := []string{"coven-chat.yaml", "coven-chat.yml", "coven-chat.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(dir, "coven-chat", "config.yaml"),
			filepath.Join(dir, "coven-chat", "config.toml"),
		)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadOrDefault loads path, or the file found by Locate when path is empty.
// With no file at all it returns Default(). The second return value is the
// file that was loaded, if any.
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		path = Locate()
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must use http or https scheme")
	}

	if c.Server.SocketURL != "" {
		u, err := url.Parse(c.Server.SocketURL)
		if err != nil {
			return fmt.Errorf("server.socket_url is not a valid URL: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("server.socket_url must use ws or wss scheme")
		}
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.Realtime.DedupeSize < 0 {
		return fmt.Errorf("realtime.dedupe_size must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// ValidateDev checks the fields the dev server needs.
func (c *Config) ValidateDev() error {
	if c.Dev.Addr == "" {
		return fmt.Errorf("dev.addr is required")
	}
	switch c.Dev.Store {
	case "sqlite", "pebble":
	default:
		return fmt.Errorf("dev.store %q is not one of sqlite, pebble", c.Dev.Store)
	}
	if c.Dev.DatabasePath == "" {
		return fmt.Errorf("dev.database_path is required")
	}
	if len(c.Dev.JWTSecret) < 32 {
		return fmt.Errorf("dev.jwt_secret must be at least 32 bytes")
	}
	return nil
}

// SocketURL returns the websocket endpoint, deriving it from the base URL
// when not set explicitly.
func (c *Config) SocketURL() string {
	if c.Server.SocketURL != "" {
		return c.Server.SocketURL
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket"
	return u.String()
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"http.timeout", cfg.HTTP.TimeoutRaw, &cfg.HTTP.Timeout},
		{"realtime.handshake_timeout", cfg.Realtime.HandshakeTimeoutRaw, &cfg.Realtime.HandshakeTimeout},
		{"realtime.reconnect_delay", cfg.Realtime.ReconnectDelayRaw, &cfg.Realtime.ReconnectDelay},
		{"realtime.dedupe_ttl", cfg.Realtime.DedupeTTLRaw, &cfg.Realtime.DedupeTTL},
		{"dev.token_ttl", cfg.Dev.TokenTTLRaw, &cfg.Dev.TokenTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
