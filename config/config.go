// ABOUTME: Application configuration loading
// ABOUTME: Layers defaults, an XDG JSON file, a .env file and PIPECRM_* environment variables

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const AppName = "pipecrm"

const (
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

// Config is the resolved runtime configuration.
type Config struct {
	Backend               string `json:"backend,omitempty" env:"PIPECRM_BACKEND" validate:"oneof=sqlite charm"`
	DBPath                string `json:"db_path,omitempty" env:"PIPECRM_DB_PATH" validate:"required_if=Backend sqlite"`
	CharmHost             string `json:"charm_host,omitempty" env:"PIPECRM_CHARM_HOST"`
	ClosedStage           string `json:"closed_stage,omitempty" env:"PIPECRM_CLOSED_STAGE" validate:"required"`
	PageSize              int    `json:"page_size,omitempty" env:"PIPECRM_PAGE_SIZE" validate:"gte=1,lte=500"`
	CascadeSharedContacts bool   `json:"cascade_shared_contacts" env:"PIPECRM_CASCADE_SHARED_CONTACTS"`
	LogLevel              string `json:"log_level,omitempty" env:"PIPECRM_LOG_LEVEL"`
	LogFormat             string `json:"log_format,omitempty" env:"PIPECRM_LOG_FORMAT" validate:"omitempty,oneof=text json"`
	LogFile               string `json:"log_file,omitempty" env:"PIPECRM_LOG_FILE"`
	Owner                 string `json:"owner,omitempty" env:"PIPECRM_OWNER"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:               BackendSQLite,
		DBPath:                DefaultDBPath(),
		ClosedStage:           "10",
		PageSize:              10,
		CascadeSharedContacts: true,
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// DefaultDBPath is $XDG_DATA_HOME/pipecrm/pipecrm.db.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// DefaultFilePath is $XDG_CONFIG_HOME/pipecrm/config.json.
func DefaultFilePath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}

// DefaultLogFile is where the MCP server logs, since stdout carries the protocol.
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// Sources names the files Load reads. Empty fields are skipped.
type Sources struct {
	File    string
	EnvFile string
}

// DefaultSources reads the XDG config file and ./.env.
func DefaultSources() Sources {
	return Sources{File: DefaultFilePath(), EnvFile: ".env"}
}

// Load resolves configuration from src. Missing files are not errors.
func Load(src Sources) (*Config, error) {
	cfg := Default()

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", src.File, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", src.File, err)
		}
	}

	if src.EnvFile != "" {
		// godotenv.Load never overrides variables already set in the environment
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", src.EnvFile, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Save writes the config as JSON to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
