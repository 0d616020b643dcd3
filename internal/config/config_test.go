package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test window defaults
	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 800 {
		t.Errorf("expected height 800, got %d", cfg.Window.Height)
	}
	if cfg.Window.SidebarWidth != 240 {
		t.Errorf("expected sidebar width 240, got %d", cfg.Window.SidebarWidth)
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test viewport defaults
	if cfg.Viewport.FOV != 60 {
		t.Errorf("expected fov 60, got %v", cfg.Viewport.FOV)
	}
	if cfg.Viewport.Damping != 0.08 {
		t.Errorf("expected damping 0.08, got %v", cfg.Viewport.Damping)
	}
	if !cfg.Viewport.ShowGrid {
		t.Error("expected grid to be shown by default")
	}
	if cfg.Viewport.ShowBounds {
		t.Error("expected bounds to be hidden by default")
	}

	// Test import defaults
	if cfg.Import.MaxConcurrent != 1 {
		t.Errorf("expected max concurrent 1, got %d", cfg.Import.MaxConcurrent)
	}

	// Test watch defaults
	if cfg.Watch.Enabled {
		t.Error("expected watch to be disabled by default")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %v", cfg.Watch.Debounce)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  vsync: false
  sidebar_width: 300

viewport:
  fov: 45
  damping: 0
  background: "#202020"
  show_grid: false
  show_bounds: true
  pixel_ratio_cap: 1.5

import:
  max_file_bytes: 1048576
  max_concurrent: 2
  search_paths: ["/assets/textures"]

watch:
  enabled: true
  debounce: 1s

history:
  recent: ["/models/a.fbx"]
  max_recent: 4

logging:
  level: "debug"
  log_file: "meshview.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.VSync {
		t.Error("expected vsync to be false")
	}
	if cfg.Window.SidebarWidth != 300 {
		t.Errorf("expected sidebar width 300, got %d", cfg.Window.SidebarWidth)
	}
	// Title was not in the file and keeps its default.
	if cfg.Window.Title != "meshview" {
		t.Errorf("expected default title, got %q", cfg.Window.Title)
	}

	if cfg.Viewport.FOV != 45 {
		t.Errorf("expected fov 45, got %v", cfg.Viewport.FOV)
	}
	if cfg.Viewport.Damping != 0 {
		t.Errorf("expected damping 0, got %v", cfg.Viewport.Damping)
	}
	if cfg.Viewport.ShowGrid || !cfg.Viewport.ShowBounds {
		t.Error("expected grid hidden and bounds shown")
	}
	if cfg.Viewport.PixelRatioCap != 1.5 {
		t.Errorf("expected pixel ratio cap 1.5, got %v", cfg.Viewport.PixelRatioCap)
	}

	if cfg.Import.MaxFileBytes != 1<<20 || cfg.Import.MaxConcurrent != 2 {
		t.Errorf("unexpected import config %+v", cfg.Import)
	}
	if !reflect.DeepEqual(cfg.Import.SearchPaths, []string{"/assets/textures"}) {
		t.Errorf("unexpected search paths %v", cfg.Import.SearchPaths)
	}

	if !cfg.Watch.Enabled || cfg.Watch.Debounce != time.Second {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}

	if cfg.History.MaxRecent != 4 || len(cfg.History.Recent) != 1 {
		t.Errorf("unexpected history %+v", cfg.History)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "meshview.log" {
		t.Errorf("expected log file 'meshview.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero width", func(c *Config) { c.Window.Width = 0 }, "window size"},
		{"sidebar too wide", func(c *Config) { c.Window.SidebarWidth = 1280 }, "sidebar width"},
		{"fov", func(c *Config) { c.Viewport.FOV = 180 }, "fov"},
		{"damping", func(c *Config) { c.Viewport.Damping = 1.5 }, "damping"},
		{"background", func(c *Config) { c.Viewport.Background = "blue" }, "color"},
		{"concurrency", func(c *Config) { c.Import.MaxConcurrent = 0 }, "max_concurrent"},
		{"file size", func(c *Config) { c.Import.MaxFileBytes = -1 }, "max_file_bytes"},
		{"debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "debounce"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	// Every problem is reported, not only the first.
	cfg := Default()
	cfg.Window.Width = 0
	cfg.Viewport.FOV = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "window size") || !strings.Contains(err.Error(), "fov") {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    [3]float32
		wantErr bool
	}{
		{"#0d0d0f", [3]float32{13.0 / 255, 13.0 / 255, 15.0 / 255}, false},
		{"ff0000", [3]float32{1, 0, 0}, false},
		{" #FFFFFF ", [3]float32{1, 1, 1}, false},
		{"#fff", [3]float32{}, true},
		{"#gg0000", [3]float32{}, true},
		{"", [3]float32{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	v := ViewportConfig{Background: "not a color"}
	if got := v.BackgroundColor(); got != [3]float32{13.0 / 255, 13.0 / 255, 15.0 / 255} {
		t.Errorf("invalid background should fall back to default, got %v", got)
	}
}

func TestAddRecent(t *testing.T) {
	cfg := Default()
	cfg.History.MaxRecent = 3

	for _, p := range []string{"a.fbx", "b.glb", "c.gltf", "b.glb", "d.fbx", ""} {
		cfg.AddRecent(p)
	}

	want := []string{"d.fbx", "b.glb", "c.gltf"}
	if !reflect.DeepEqual(cfg.History.Recent, want) {
		t.Errorf("Recent = %v, want %v", cfg.History.Recent, want)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	// No config file exists - should return empty
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if !cfg.Viewport.ShowBounds {
					t.Error("expected bounds overlay with debug flag")
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
		{
			name: "watch flag",
			setup: func() {
				*flagWatch = true
			},
			verify: func(cfg *Config) {
				if !cfg.Watch.Enabled {
					t.Error("expected watch to be enabled with watch flag")
				}
			},
			teardown: func() {
				*flagWatch = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestFileFlag(t *testing.T) {
	*flagFile = "model.fbx"
	defer func() { *flagFile = "" }()

	if got := File(); got != "model.fbx" {
		t.Errorf("File() = %q, want model.fbx", got)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Window.Width = 1024
	cfg.AddRecent("/models/robot.glb")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Window.Width != 1024 {
		t.Errorf("expected width 1024, got %d", loaded.Window.Width)
	}
	if !reflect.DeepEqual(loaded.History.Recent, []string{"/models/robot.glb"}) {
		t.Errorf("recent = %v", loaded.History.Recent)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("viewport:\n  fov: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "fov") {
		t.Errorf("expected fov error, got %v", err)
	}
}

func TestResolvePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	base := filepath.Join(string(filepath.Separator), "etc", "meshview")

	tests := []struct {
		in   string
		want string
	}{
		{"textures", filepath.Join(base, "textures")},
		{"../shared/tex", filepath.Join(string(filepath.Separator), "etc", "shared", "tex")},
		{"~/art", filepath.Join(home, "art")},
		{"~", home},
		{"/abs/tex/", filepath.Clean("/abs/tex")},
	}
	for _, tt := range tests {
		if got := resolvePath(base, tt.in); got != tt.want {
			t.Errorf("resolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	cfg := Default()
	cfg.Import.SearchPaths = []string{"textures"}
	cfg.Logging.LogFile = "meshview.log"
	cfg.resolvePaths(base)
	if want := []string{filepath.Join(base, "textures")}; !reflect.DeepEqual(cfg.Import.SearchPaths, want) {
		t.Errorf("search paths = %v, want %v", cfg.Import.SearchPaths, want)
	}
	if want := filepath.Join(base, "meshview.log"); cfg.Logging.LogFile != want {
		t.Errorf("log file = %q, want %q", cfg.Logging.LogFile, want)
	}
}

func TestPruneRecent(t *testing.T) {
	dir := t.TempDir()
	var models []string
	for _, name := range []string{"a.fbx", "b.fbx", "c.fbx"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		models = append(models, p)
	}
	gone := filepath.Join(dir, "deleted.fbx")

	cfg := Default()
	cfg.History.MaxRecent = 2
	cfg.History.Recent = []string{models[0], gone, models[0], "", models[1], models[2]}
	cfg.pruneRecent()

	if want := []string{models[0], models[1]}; !reflect.DeepEqual(cfg.History.Recent, want) {
		t.Errorf("recent = %v, want %v", cfg.History.Recent, want)
	}
}

func TestLoadResolvesAgainstConfigFile(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "robot.fbx")
	if err := os.WriteFile(model, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "config.yaml")
	yamlContent := "import:\n  search_paths: [\"textures\"]\nhistory:\n  recent: [\"" +
		filepath.ToSlash(model) + "\", \"" + filepath.ToSlash(filepath.Join(dir, "gone.fbx")) + "\"]\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Path() != configPath {
		t.Errorf("expected path %q, got %q", configPath, cfg.Path())
	}
	if want := []string{filepath.Join(dir, "textures")}; !reflect.DeepEqual(cfg.Import.SearchPaths, want) {
		t.Errorf("search paths = %v, want %v", cfg.Import.SearchPaths, want)
	}
	if want := []string{filepath.Clean(model)}; !reflect.DeepEqual(cfg.History.Recent, want) {
		t.Errorf("recent = %v, want %v", cfg.History.Recent, want)
	}

	// Save writes back to the same file.
	cfg.Window.Width = 1024
	if err := cfg.Save(); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	reloaded := Default()
	if err := loadFromFile(reloaded, configPath); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if reloaded.Window.Width != 1024 {
		t.Errorf("expected saved width 1024, got %d", reloaded.Window.Width)
	}
}
