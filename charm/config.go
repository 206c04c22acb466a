// ABOUTME: Charm connection settings persisted beside the local KV data
// ABOUTME: Host precedence is application config, then the settings file, then the 2389 server

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database and the local data directory.
	AppName = "pipecrm"

	// ConfigFileName is the settings file inside the data directory.
	ConfigFileName = "charm-config.json"
)

// Config holds the charm server and whether writes sync immediately.
type Config struct {
	Host     string `json:"host,omitempty"`
	AutoSync bool   `json:"auto_sync"`

	// path is where Save writes; empty for in-memory configs.
	path string
}

func DefaultConfig() *Config {
	return &Config{Host: DefaultCharmHost, AutoSync: true}
}

// ConfigPath resolves the settings file under $XDG_DATA_HOME/pipecrm,
// creating the directory if needed.
func ConfigPath() (string, error) {
	return xdg.DataFile(filepath.Join(AppName, ConfigFileName))
}

// LoadConfig reads the settings file. A non-empty hostOverride wins over
// whatever the file says.
func LoadConfig(hostOverride string) (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("resolve charm config path: %w", err)
	}
	cfg, err := loadFrom(path)
	if err != nil {
		return nil, err
	}
	if hostOverride != "" {
		cfg.Host = hostOverride
	}
	return cfg, nil
}

// loadFrom decodes path over the defaults, so fields the file omits keep
// their default values. A missing file is not an error.
func loadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read charm config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse charm config %s: %w", path, err)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	return cfg, nil
}

// Save writes the settings back to the file they were loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("charm config has no file to save to")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
