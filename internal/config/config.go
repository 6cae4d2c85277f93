// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Config holds the application configuration.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	HomeAssistant HomeAssistantConfig `toml:"homeassistant"`
	Log           LogConfig           `toml:"log"`
	Coordinator   CoordinatorConfig   `toml:"coordinator"`
	UI            UIConfig            `toml:"ui"`
	Entries       []EntryConfig       `toml:"entries"`
}

// ServerConfig holds the HTTP service surface settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`             // e.g., ":8099"
	ShutdownTimeout string `toml:"shutdown_timeout"` // e.g., "10s"
}

// HomeAssistantConfig holds the connection to the Home Assistant instance.
type HomeAssistantConfig struct {
	URL   string `toml:"url"`   // e.g., "http://homeassistant.local:8123"
	Token string `toml:"token"` // long-lived access token
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "console" or "json"
}

// CoordinatorConfig holds the status refresh settings.
type CoordinatorConfig struct {
	Interval string `toml:"interval"` // e.g., "5m"
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	Theme string `toml:"theme"` // "mocha", "latte" or "mono"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8099",
			ShutdownTimeout: "10s",
		},
		HomeAssistant: HomeAssistantConfig{
			URL: "http://homeassistant.local:8123",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Coordinator: CoordinatorConfig{
			Interval: DefaultScanInterval,
		},
		UI: UIConfig{
			Theme: "mocha",
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "hassist", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	for i := range cfg.Entries {
		cfg.Entries[i].applyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HASSIST_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("HASSIST_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("HASSIST_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}
	// Home Assistant add-ons get a supervisor token injected.
	if cfg.HomeAssistant.Token == "" {
		cfg.HomeAssistant.Token = os.Getenv("SUPERVISOR_TOKEN")
	}

	if v := os.Getenv("HASSIST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HASSIST_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("HASSIST_COORDINATOR_INTERVAL"); v != "" {
		cfg.Coordinator.Interval = v
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for i := range cfg.Entries {
			if cfg.Entries[i].APIKey == "" {
				cfg.Entries[i].APIKey = key
			}
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr must be set")
	}
	if _, err := parseDuration(c.Server.ShutdownTimeout, "shutdown_timeout"); err != nil {
		return err
	}
	if c.HomeAssistant.URL != "" {
		u, err := url.Parse(c.HomeAssistant.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("homeassistant url must be an absolute URL, got %q", c.HomeAssistant.URL)
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}
	interval, err := parseDuration(c.Coordinator.Interval, "interval")
	if err != nil {
		return err
	}
	if interval < time.Second {
		return errors.New("coordinator interval must be at least 1s")
	}

	seenIDs := make(map[string]bool, len(c.Entries))
	seenUnique := make(map[string]bool, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %q: %w", e.Name, err)
		}
		if seenIDs[e.ID] {
			return fmt.Errorf("duplicate entry id %q", e.ID)
		}
		seenIDs[e.ID] = true
		if e.UniqueID != "" {
			if seenUnique[e.UniqueID] {
				return fmt.Errorf("entry %q: %w", e.Name, ErrAlreadyConfigured)
			}
			seenUnique[e.UniqueID] = true
		}
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed HTTP shutdown timeout.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// IntervalDuration returns the parsed coordinator refresh interval.
func (c CoordinatorConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Entry returns the entry with the given id.
func (c *Config) Entry(id string) (*EntryConfig, bool) {
	for i := range c.Entries {
		if c.Entries[i].ID == id {
			return &c.Entries[i], true
		}
	}
	return nil, false
}

// ResolveEntry returns the entry with the given id, or the only configured
// entry when id is empty.
func (c *Config) ResolveEntry(id string) (*EntryConfig, error) {
	if id != "" {
		e, ok := c.Entry(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return e, nil
	}
	switch len(c.Entries) {
	case 0:
		return nil, ErrNoEntries
	case 1:
		return &c.Entries[0], nil
	default:
		return nil, errors.New("multiple entries configured: pick one with --entry")
	}
}

// HasUniqueID reports whether an entry with the given unique id exists.
// Keyless entries have no unique id and never collide.
func (c *Config) HasUniqueID(uniqueID string) bool {
	if uniqueID == "" {
		return false
	}
	for _, e := range c.Entries {
		if e.UniqueID == uniqueID {
			return true
		}
	}
	return false
}

// AddEntry appends a new entry. It returns ErrAlreadyConfigured if an entry
// with the same unique id is already present.
func (c *Config) AddEntry(e EntryConfig) error {
	if e.UniqueID != "" && c.HasUniqueID(e.UniqueID) {
		return ErrAlreadyConfigured
	}
	c.Entries = append(c.Entries, e)
	return nil
}

// RemoveEntry drops the entry with the given id.
func (c *Config) RemoveEntry(id string) bool {
	for i := range c.Entries {
		if c.Entries[i].ID == id {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return true
		}
	}
	return false
}

func parseDuration(s, field string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m, got %q", field, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, s)
	}
	return d, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
// The file holds API keys, so it is written with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
