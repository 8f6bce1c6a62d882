package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultAutosaveDelay = 1500 * time.Millisecond

type appConfig struct {
	Database      string        `yaml:"database,omitempty"`
	AutosaveDelay time.Duration `yaml:"autosave_delay,omitempty" validate:"gte=0,lte=1m"`
	LogLevel      string        `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Theme         string        `yaml:"theme,omitempty" validate:"omitempty,oneof=auto dark light"`
	ExportDir     string        `yaml:"export_dir,omitempty"`
	ExportCommand []string      `yaml:"export_command,omitempty" validate:"omitempty,dive,required"`
	OpenTabs      []string      `yaml:"open_tabs,omitempty" validate:"max=10,dive,required"`
	LookupLimit   int           `yaml:"lookup_limit,omitempty" validate:"gte=0,lte=20"`
}

var configValidator = validator.New()

func defaultConfig() *appConfig {
	dir := resolveConfigDir()
	return &appConfig{
		Database:      filepath.Join(dir, "cuesheet.sqlite"),
		AutosaveDelay: defaultAutosaveDelay,
		LogLevel:      "info",
		Theme:         "auto",
		ExportDir:     filepath.Join(dir, "exports"),
		LookupLimit:   3,
	}
}

// loadConfig reads path over the defaults. A missing file is not an error;
// an unreadable or invalid one is, and the defaults are returned with it.
func loadConfig(path string) (*appConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	var file appConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := configValidator.Struct(&file); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	cfg.merge(&file)
	return cfg, nil
}

func (c *appConfig) merge(other *appConfig) {
	if strings.TrimSpace(other.Database) != "" {
		c.Database = expandHome(other.Database)
	}
	if other.AutosaveDelay > 0 {
		c.AutosaveDelay = other.AutosaveDelay
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Theme != "" {
		c.Theme = other.Theme
	}
	if strings.TrimSpace(other.ExportDir) != "" {
		c.ExportDir = expandHome(other.ExportDir)
	}
	if len(other.ExportCommand) > 0 {
		c.ExportCommand = other.ExportCommand
	}
	if len(other.OpenTabs) > 0 {
		c.OpenTabs = other.OpenTabs
	}
	if other.LookupLimit > 0 {
		c.LookupLimit = other.LookupLimit
	}
}

func (c *appConfig) validate() error {
	return configValidator.Struct(c)
}

func saveConfig(cfg *appConfig, path string) error {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func resolveConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cuesheet")
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
