package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mxbmm/internal/domain"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the config directory
const FileName = "config.yaml"

// Config holds global application settings
type Config struct {
	ModsRoot          string        `yaml:"mods_root,omitempty" json:"mods_root,omitempty"`
	DefaultCategory   string        `yaml:"default_category,omitempty" json:"default_category,omitempty"`
	Debounce          time.Duration `yaml:"debounce" json:"debounce"`
	InstallTimeout    time.Duration `yaml:"install_timeout" json:"install_timeout"`
	LogLevel          string        `yaml:"log_level" json:"log_level"`
	Keybindings       string        `yaml:"keybindings" json:"keybindings"`
	FlattenSingleRoot bool          `yaml:"flatten_single_root" json:"flatten_single_root"`
	Journal           bool          `yaml:"journal" json:"journal"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Debounce:       300 * time.Millisecond,
		InstallTimeout: 2 * time.Minute,
		LogLevel:       "info",
		Keybindings:    "vim",
		Journal:        true,
	}
}

// DefaultDir returns $XDG_CONFIG_HOME/mxbmm
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, "mxbmm")
}

// DataDir returns $XDG_DATA_HOME/mxbmm, where the history journal lives
func DataDir() string {
	return filepath.Join(xdg.DataHome, "mxbmm")
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(configDir, FileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be fixed up silently
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be debug, info, warn or error, got %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	switch c.Keybindings {
	case "vim", "standard":
	default:
		return fmt.Errorf("%w: keybindings must be vim or standard, got %q", domain.ErrInvalidConfig, c.Keybindings)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce cannot be negative", domain.ErrInvalidConfig)
	}
	if c.InstallTimeout < 0 {
		return fmt.Errorf("%w: install_timeout cannot be negative", domain.ErrInvalidConfig)
	}
	if c.ModsRoot != "" && !filepath.IsAbs(c.ModsRoot) {
		return fmt.Errorf("%w: mods_root must be absolute, got %q", domain.ErrInvalidConfig, c.ModsRoot)
	}
	return nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, FileName)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
