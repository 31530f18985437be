package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/spf13/viper"
)

const envPrefix = "REBOOTV"

// Config holds all application configuration
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Store         StoreConfig         `mapstructure:"store"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	UI            UIConfig            `mapstructure:"ui"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// BackendConfig holds configuration of the embedded backend
type BackendConfig struct {
	DataDir   string `mapstructure:"data_dir"`   // empty keeps state in memory
	LatencyMS int    `mapstructure:"latency_ms"` // upper bound of simulated call latency
	RefreshMS int    `mapstructure:"refresh_ms"` // simulated playlist download time
	Seed      uint64 `mapstructure:"seed"`
}

// StoreConfig holds view-state store configuration
type StoreConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// NotificationsConfig holds toast configuration
type NotificationsConfig struct {
	DurationMS int `mapstructure:"duration_ms"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	DefaultView string `mapstructure:"default_view"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

func (c BackendConfig) Latency() time.Duration {
	return time.Duration(c.LatencyMS) * time.Millisecond
}

func (c BackendConfig) RefreshDelay() time.Duration {
	return time.Duration(c.RefreshMS) * time.Millisecond
}

func (c NotificationsConfig) Duration() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			DataDir:   defaultDataPath(),
			LatencyMS: 150,
			RefreshMS: 2000,
			Seed:      1,
		},
		Store: StoreConfig{
			PageSize: 48,
		},
		Notifications: NotificationsConfig{
			DurationMS: 5000,
		},
		UI: UIConfig{
			DefaultView: string(domain.ViewLiveTV),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "rebootv.log"),
			Level: "INFO",
		},
	}
}

// Validate checks values that would make the store misbehave
func (c *Config) Validate() error {
	if c.Store.PageSize <= 0 {
		return fmt.Errorf("store.page_size must be positive, got %d", c.Store.PageSize)
	}
	if c.Backend.LatencyMS < 0 {
		return fmt.Errorf("backend.latency_ms must not be negative, got %d", c.Backend.LatencyMS)
	}
	if _, ok := domain.View(c.UI.DefaultView).Kind(); !ok {
		return fmt.Errorf("ui.default_view %q is not a browsable view", c.UI.DefaultView)
	}
	return nil
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "rebootv")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "rebootv")
	}
}

// DefaultConfigDir returns the default config directory for the current OS
func DefaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "rebootv")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "rebootv")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigDir(), ".")
}

// LoadConfigFrom reads config.yaml from the first of dirs that has one.
// REBOOTV_* environment variables override file values, e.g.
// REBOOTV_STORE_PAGE_SIZE.
func LoadConfigFrom(dirs ...string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to config.yaml in dir
func SaveConfig(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(cfg)
	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// newViper returns a viper instance with every key of cfg registered as
// a default, so environment overrides apply to keys absent from the file
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend.data_dir", cfg.Backend.DataDir)
	v.SetDefault("backend.latency_ms", cfg.Backend.LatencyMS)
	v.SetDefault("backend.refresh_ms", cfg.Backend.RefreshMS)
	v.SetDefault("backend.seed", cfg.Backend.Seed)
	v.SetDefault("store.page_size", cfg.Store.PageSize)
	v.SetDefault("notifications.duration_ms", cfg.Notifications.DurationMS)
	v.SetDefault("ui.default_view", cfg.UI.DefaultView)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	return v
}
