// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Faultbox/meshview/internal/logger"
)

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Viewport ViewportConfig `yaml:"viewport"`
	Import   ImportConfig   `yaml:"import"`
	Watch    WatchConfig    `yaml:"watch"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`

	// path is the file the config was loaded from.
	path string
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// WindowConfig holds window settings.
type WindowConfig struct {
	Title        string `yaml:"title"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	VSync        bool   `yaml:"vsync"`
	SidebarWidth int    `yaml:"sidebar_width"`
}

// ViewportConfig holds preview settings.
type ViewportConfig struct {
	FOV           float32 `yaml:"fov"`
	Damping       float32 `yaml:"damping"`
	Background    string  `yaml:"background"` // "#rrggbb"
	ShowGrid      bool    `yaml:"show_grid"`
	ShowBounds    bool    `yaml:"show_bounds"`
	PixelRatioCap float32 `yaml:"pixel_ratio_cap"`
}

// ImportConfig holds model import settings.
type ImportConfig struct {
	MaxFileBytes  int64    `yaml:"max_file_bytes"`
	MaxConcurrent int64    `yaml:"max_concurrent"`
	SearchPaths   []string `yaml:"search_paths"` // Extra texture directories
}

// WatchConfig holds reload-on-change settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// HistoryConfig holds recently opened files, newest first.
type HistoryConfig struct {
	Recent    []string `yaml:"recent"`
	MaxRecent int      `yaml:"max_recent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:        "meshview",
			Width:        1280,
			Height:       800,
			VSync:        true,
			SidebarWidth: 240,
		},
		Viewport: ViewportConfig{
			FOV:           60,
			Damping:       0.08,
			Background:    "#0d0d0f",
			ShowGrid:      true,
			ShowBounds:    false,
			PixelRatioCap: 2,
		},
		Import: ImportConfig{
			MaxFileBytes:  512 << 20,
			MaxConcurrent: 1,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 250 * time.Millisecond,
		},
		History: HistoryConfig{
			MaxRecent: 8,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.SidebarWidth < 0 || c.Window.SidebarWidth >= c.Window.Width {
		errs = append(errs, fmt.Errorf("sidebar width %d must be in [0, %d)", c.Window.SidebarWidth, c.Window.Width))
	}
	if c.Viewport.FOV <= 0 || c.Viewport.FOV >= 180 {
		errs = append(errs, fmt.Errorf("fov %v must be in (0, 180)", c.Viewport.FOV))
	}
	if c.Viewport.Damping < 0 || c.Viewport.Damping > 1 {
		errs = append(errs, fmt.Errorf("damping %v must be in [0, 1]", c.Viewport.Damping))
	}
	if _, err := ParseHexColor(c.Viewport.Background); err != nil {
		errs = append(errs, err)
	}
	if c.Import.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("import max_concurrent %d must be at least 1", c.Import.MaxConcurrent))
	}
	if c.Import.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("import max_file_bytes %d must be positive", c.Import.MaxFileBytes))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch debounce %v must not be negative", c.Watch.Debounce))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BackgroundColor returns the viewport background as float RGB.
func (v ViewportConfig) BackgroundColor() [3]float32 {
	c, err := ParseHexColor(v.Background)
	if err != nil {
		c, _ = ParseHexColor(Default().Viewport.Background)
	}
	return c
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into float components.
func ParseHexColor(s string) ([3]float32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return [3]float32{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [3]float32{}, fmt.Errorf("color %q: %w", s, err)
	}
	return [3]float32{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

// AddRecent moves path to the front of the recent list, trimming it to
// MaxRecent entries.
func (c *Config) AddRecent(path string) {
	if path == "" {
		return
	}
	recent := make([]string, 0, len(c.History.Recent)+1)
	recent = append(recent, path)
	for _, p := range c.History.Recent {
		if p != path {
			recent = append(recent, p)
		}
	}
	if limit := c.History.MaxRecent; limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	c.History.Recent = recent
}
