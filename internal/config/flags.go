package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagWidth  = flag.Int("width", 0, "Window width")
	flagHeight = flag.Int("height", 0, "Window height")
	flagFile   = flag.String("file", "", "Model file to open on start")
	flagWatch  = flag.Bool("watch", false, "Reload the model when its file changes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// File returns the model to open on start: the --file flag, else the
// first positional argument.
func File() string {
	if *flagFile != "" {
		return *flagFile
	}
	return flag.Arg(0)
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Viewport.ShowBounds = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagWatch {
		cfg.Watch.Enabled = true
	}
}
