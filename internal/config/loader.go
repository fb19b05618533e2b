package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PAPERLIKE_"

// Load reads path, applies environment overrides and validates the result.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config: decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func autoDetectAndParse(data []byte, cfg *Config) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode JSON: %w", err)
		}
		return nil
	}
	// A failed decode may have filled some fields; retry from defaults.
	tomlCfg := DefaultConfig()
	if _, err := toml.Decode(string(data), tomlCfg); err == nil {
		*cfg = *tomlCfg
		return nil
	}
	yamlCfg := DefaultConfig()
	if err := yaml.Unmarshal(data, yamlCfg); err == nil {
		*cfg = *yamlCfg
		return nil
	}
	return errors.New("config: unable to parse config file (tried JSON, TOML, YAML)")
}

// ApplyEnvOverrides reads PAPERLIKE_* variables over the loaded values.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(envPrefix + "STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(envPrefix + "STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "MEASURER"); v != "" {
		c.Editor.Measurer = v
	}
	if v := os.Getenv(envPrefix + "EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv(envPrefix + "HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
		c.HTTP.Enabled = true
	}
	if v := os.Getenv(envPrefix + "AUTOSAVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sAUTOSAVE_INTERVAL: %w", envPrefix, err)
		}
		c.AutoSave.Interval = Duration(d)
	}
	if v := os.Getenv(envPrefix + "AUTOSAVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sAUTOSAVE: %w", envPrefix, err)
		}
		c.AutoSave.Enabled = b
	}
	return nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode TOML: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
