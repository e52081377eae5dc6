package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/overlaycat/internal/display"
)

// OverlayConfig controls the geometry and behavior of overlay windows.
type OverlayConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
	Resizable bool   `yaml:"resizable"`
	// CloseTimeout bounds how long a close waits for the window to go away.
	CloseTimeout time.Duration `yaml:"close_timeout"`
}

// MainWindowConfig controls the main application window.
type MainWindowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Label   string `yaml:"label"`
}

// MemoryConfig configures the memory watchdog.
type MemoryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	LimitMB  uint64        `yaml:"limit_mb"`
	Interval time.Duration `yaml:"interval"`
}

// HotkeyConfig binds global hotkeys. Empty strings disable a binding.
type HotkeyConfig struct {
	Reset   string `yaml:"reset,omitempty"`
	ShowAll string `yaml:"show_all,omitempty"`
}

// HeadlessDisplay describes one simulated display.
type HeadlessDisplay struct {
	Name   string `yaml:"name"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// HeadlessConfig runs the daemon without a display server.
type HeadlessConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Displays []HeadlessDisplay `yaml:"displays"`
}

// JournalConfig configures the SQLite event journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to ~/.local/share/overlaycat/journal.db
	Path string `yaml:"path,omitempty"`
	// RecordStatus also stores every memory-status tick.
	RecordStatus bool `yaml:"record_status"`
}

// Config holds the application configuration.
type Config struct {
	Display           string           `yaml:"display,omitempty"`
	XAuthority        string           `yaml:"xauthority,omitempty"`
	Overlay           OverlayConfig    `yaml:"overlay"`
	MainWindow        MainWindowConfig `yaml:"main_window"`
	Memory            MemoryConfig     `yaml:"memory"`
	ReconcileInterval time.Duration    `yaml:"reconcile_interval"`
	Hotkeys           HotkeyConfig     `yaml:"hotkeys"`
	Headless          HeadlessConfig   `yaml:"headless"`
	LogLevel          string           `yaml:"log_level"`
	LogFile           string           `yaml:"log_file,omitempty"`
	LogMaxSizeMB      int              `yaml:"log_max_size_mb"`
	LogMaxFiles       int              `yaml:"log_max_files"`
	Journal           JournalConfig    `yaml:"journal"`
}

func DefaultConfig() *Config {
	return &Config{
		Overlay: OverlayConfig{
			Title:        "overlaycat",
			Width:        display.DefaultWindowSize,
			Height:       display.DefaultWindowSize,
			MinWidth:     display.DefaultMinWindowSize,
			MinHeight:    display.DefaultMinWindowSize,
			MaxWidth:     display.DefaultMaxWindowSize,
			MaxHeight:    display.DefaultMaxWindowSize,
			Resizable:    true,
			CloseTimeout: display.DefaultCloseTimeout,
		},
		MainWindow: MainWindowConfig{
			Enabled: true,
			Label:   display.DefaultMainLabel,
		},
		Memory: MemoryConfig{
			Enabled:  true,
			LimitMB:  300,
			Interval: 10 * time.Second,
		},
		ReconcileInterval: 10 * time.Second,
		Headless: HeadlessConfig{
			Displays: []HeadlessDisplay{
				{Name: "HEADLESS-1", Width: 1920, Height: 1080},
			},
		},
		LogLevel:     "info",
		LogMaxSizeMB: 10,
		LogMaxFiles:  3,
	}
}

// DisplayOptions maps the overlay settings onto lifecycle manager options.
func (c *Config) DisplayOptions() display.Options {
	opts := display.DefaultOptions()
	opts.Title = c.Overlay.Title
	opts.Width = c.Overlay.Width
	opts.Height = c.Overlay.Height
	opts.MinWidth = c.Overlay.MinWidth
	opts.MinHeight = c.Overlay.MinHeight
	opts.MaxWidth = c.Overlay.MaxWidth
	opts.MaxHeight = c.Overlay.MaxHeight
	opts.Resizable = c.Overlay.Resizable
	opts.CloseTimeout = c.Overlay.CloseTimeout
	opts.MainLabel = ""
	if c.MainWindow.Enabled {
		opts.MainLabel = c.MainWindow.Label
	}
	return opts
}

// JournalPath returns the configured journal path or the default one.
func (c *Config) JournalPath() (string, error) {
	if strings.TrimSpace(c.Journal.Path) != "" {
		return expandHome(c.Journal.Path)
	}
	return dataFilePath("journal.db")
}

// LogFilePath returns the expanded log file path, or "" for stderr.
func (c *Config) LogFilePath() (string, error) {
	if strings.TrimSpace(c.LogFile) == "" {
		return "", nil
	}
	return expandHome(c.LogFile)
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments from
// the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	o := c.Overlay
	if o.Width <= 0 || o.Height <= 0 {
		return &ValidationError{Path: "overlay", Err: fmt.Errorf("width and height must be positive")}
	}
	if o.MinWidth <= 0 || o.MinHeight <= 0 {
		return &ValidationError{Path: "overlay", Err: fmt.Errorf("min_width and min_height must be positive")}
	}
	if o.MinWidth > o.Width || o.Width > o.MaxWidth {
		return &ValidationError{Path: "overlay.width", Err: fmt.Errorf("width must be between min_width (%d) and max_width (%d)", o.MinWidth, o.MaxWidth)}
	}
	if o.MinHeight > o.Height || o.Height > o.MaxHeight {
		return &ValidationError{Path: "overlay.height", Err: fmt.Errorf("height must be between min_height (%d) and max_height (%d)", o.MinHeight, o.MaxHeight)}
	}
	if o.CloseTimeout <= 0 {
		return &ValidationError{Path: "overlay.close_timeout", Err: fmt.Errorf("close_timeout must be positive")}
	}

	if c.MainWindow.Enabled {
		label := strings.TrimSpace(c.MainWindow.Label)
		if label == "" {
			return &ValidationError{Path: "main_window.label", Err: fmt.Errorf("label is required when the main window is enabled")}
		}
		if display.IsOverlayIdentifier(label) {
			return &ValidationError{Path: "main_window.label", Err: fmt.Errorf("label %q collides with the overlay naming scheme", label)}
		}
	}

	if c.Memory.LimitMB == 0 {
		return &ValidationError{Path: "memory.limit_mb", Err: fmt.Errorf("limit_mb must be > 0")}
	}
	if c.Memory.Interval < time.Second {
		return &ValidationError{Path: "memory.interval", Err: fmt.Errorf("interval must be at least 1s")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}

	if c.Headless.Enabled && len(c.Headless.Displays) == 0 {
		return &ValidationError{Path: "headless.displays", Err: fmt.Errorf("at least one display is required in headless mode")}
	}
	for i, d := range c.Headless.Displays {
		if d.Width <= 0 || d.Height <= 0 {
			return &ValidationError{Path: "headless.displays", Err: fmt.Errorf("display %d must have a positive size", i)}
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if c.LogMaxSizeMB < 0 {
		return &ValidationError{Path: "log_max_size_mb", Err: fmt.Errorf("log_max_size_mb must be >= 0")}
	}
	if c.LogMaxFiles < 0 {
		return &ValidationError{Path: "log_max_files", Err: fmt.Errorf("log_max_files must be >= 0")}
	}
	return nil
}

// ValidationError points at the offending key and, when known, the file
// position it was set at.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func dataFilePath(name string) (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "overlaycat", name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "overlaycat", name), nil
}
