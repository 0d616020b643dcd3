package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		cfg.path = configPath
		cfg.resolvePaths(filepath.Dir(configPath))
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)
	cfg.pruneRecent()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "meshview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "meshview")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths expands "~" and makes relative texture search paths and the
// log file relative to base, the directory holding the config file.
func (c *Config) resolvePaths(base string) {
	for i, p := range c.Import.SearchPaths {
		c.Import.SearchPaths[i] = resolvePath(base, p)
	}
	if c.Logging.LogFile != "" {
		c.Logging.LogFile = resolvePath(base, c.Logging.LogFile)
	}
}

func resolvePath(base, p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// pruneRecent drops recent models that no longer exist or repeat, and
// trims the list to MaxRecent.
func (c *Config) pruneRecent() {
	seen := make(map[string]bool, len(c.History.Recent))
	recent := c.History.Recent[:0]
	for _, p := range c.History.Recent {
		if p == "" || seen[p] {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		seen[p] = true
		recent = append(recent, p)
	}
	if limit := c.History.MaxRecent; limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	c.History.Recent = recent
}
