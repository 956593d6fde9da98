// Package config loads the server configuration file, including overlay
// definitions to preregister at startup.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mistakeknot/overcast/internal/core"
)

// Config is the overcast.yaml shape.
type Config struct {
	Addr       string                   `yaml:"addr"`
	SocketPath string                   `yaml:"socket_path,omitempty"`
	LogLevel   string                   `yaml:"log_level,omitempty"`
	Overlays   []core.OverlayDefinition `yaml:"overlays,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{Addr: ":7340", LogLevel: "info"}
}

// Load reads path and fills unset fields from defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = Default().Addr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}

// Scaffold writes a starter config with one example overlay per layout
// family. It refuses to overwrite an existing file.
func Scaffold(path string) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := Default()
	cfg.Overlays = []core.OverlayDefinition{
		{Name: "sub", Type: core.TypeText, Layout: core.LayoutLeft, Config: map[string]any{"text": "New subscriber!"}},
		{Name: "raid", Type: core.TypeVideo, Layout: core.LayoutFullscreen, Config: map[string]any{"file": "raid.webm", "volume": 0.8}},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
