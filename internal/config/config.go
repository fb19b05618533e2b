// Package config loads paperlike settings from TOML, YAML or JSON files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elloloop/paperlike/internal/layout"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	MeasurerApproximate = "approximate"
	MeasurerFont        = "font"
)

type Config struct {
	Layout   layout.Config  `toml:"layout" yaml:"layout" json:"layout"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage" json:"storage"`
	AutoSave AutoSaveConfig `toml:"autosave" yaml:"autosave" json:"autosave"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" json:"logging"`
	Export   ExportConfig   `toml:"export" yaml:"export" json:"export"`
	HTTP     HTTPConfig     `toml:"http" yaml:"http" json:"http"`
	Editor   EditorConfig   `toml:"editor" yaml:"editor" json:"editor"`
	Window   WindowConfig   `toml:"window" yaml:"window" json:"window"`
}

type StorageConfig struct {
	Backend string `toml:"backend" yaml:"backend" json:"backend" validate:"oneof=file sqlite"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `toml:"path" yaml:"path" json:"path" validate:"required"`
	// Watch reloads the document when another process rewrites it.
	Watch bool `toml:"watch" yaml:"watch" json:"watch"`
}

type AutoSaveConfig struct {
	Enabled  bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Interval Duration `toml:"interval" yaml:"interval" json:"interval" validate:"gt=0"`
}

type LoggingConfig struct {
	Level       string `toml:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Development bool   `toml:"development" yaml:"development" json:"development"`
}

type ExportConfig struct {
	// Dir is where exports land when no dialog is available.
	Dir string `toml:"dir" yaml:"dir" json:"dir"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Listen  string `toml:"listen" yaml:"listen" json:"listen" validate:"hostname_port"`
}

type EditorConfig struct {
	Measurer   string `toml:"measurer" yaml:"measurer" json:"measurer" validate:"oneof=approximate font"`
	MaxHistory int    `toml:"max_history" yaml:"max_history" json:"max_history" validate:"gte=0"`
}

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title" json:"title"`
	Width  int    `toml:"width" yaml:"width" json:"width" validate:"gt=0"`
	Height int    `toml:"height" yaml:"height" json:"height" validate:"gt=0"`
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Layout: layout.DefaultConfig(),
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    DataDir(),
		},
		AutoSave: AutoSaveConfig{
			Enabled:  true,
			Interval: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
		HTTP:    HTTPConfig{Listen: "127.0.0.1:8765"},
		Editor:  EditorConfig{Measurer: MeasurerFont, MaxHistory: 200},
		Window:  WindowConfig{Title: "Paperlike", Width: 1100, Height: 800},
	}
}

// DataDir is the per-user directory documents are stored in.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "paperlike")
	}
	return ".paperlike"
}

// ConfigPath is the default config file location.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Layout.ColumnWidth() <= 0 {
		return fmt.Errorf("%w: margins leave no text column", ErrInvalidConfig)
	}
	return nil
}
