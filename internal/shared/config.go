package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Callback CallbackConfig `toml:"callback"`
	Database DatabaseConfig `toml:"database"`
	Polling  PollingConfig  `toml:"polling"`
}

// APIConfig contains settings for the backend API.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CallbackConfig contains settings for the local login callback server.
type CallbackConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains database connection settings.
//
// Path may be ":memory:" on hosts without persistent storage, in which case
// tokens live only for the lifetime of the process.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PollingConfig contains feed refresh cadences and limits.
type PollingConfig struct {
	NowPlayingSeconds     int `toml:"now_playing_seconds"`
	RecentlyPlayedSeconds int `toml:"recently_played_seconds"`
	RecentlyPlayedLimit   int `toml:"recently_played_limit"`
}

// NowPlayingInterval returns the now-playing poll cadence as a [time.Duration].
func (p PollingConfig) NowPlayingInterval() time.Duration {
	return time.Duration(p.NowPlayingSeconds) * time.Second
}

// RecentlyPlayedInterval returns the recently-played poll cadence as a [time.Duration].
func (p PollingConfig) RecentlyPlayedInterval() time.Duration {
	return time.Duration(p.RecentlyPlayedSeconds) * time.Second
}

// CallbackURL returns the redirect URL the backend sends the browser to after login.
func (c CallbackConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d/callback", c.Host, c.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
