package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rescueline/internal/domain"
)

// Config models rescueline.yml.
type Config struct {
	Store struct {
		ID         string `yaml:"id"`
		Name       string `yaml:"name"`
		Timezone   string `yaml:"timezone"`
		StaffActor string `yaml:"staff_actor"`
	} `yaml:"store"`
	Expiry struct {
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"expiry"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Seed struct {
		Deals []SeedDeal `yaml:"deals"`
	} `yaml:"seed"`
}

// SeedDeal is a deal created when the process starts.
type SeedDeal struct {
	Category        string `yaml:"category"`
	Description     string `yaml:"description"`
	DiscountPercent int    `yaml:"discount_percent"`
	Quantity        string `yaml:"quantity"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with rl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Store.ID == "" {
		return fmt.Errorf("config.store.id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SweepInterval(); err != nil {
		return err
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config.metrics.path must start with /")
	}
	for i, d := range c.Seed.Deals {
		if _, err := domain.ParseCategory(d.Category); err != nil {
			return fmt.Errorf("seed deal %d: %w", i, err)
		}
	}
	return nil
}

// Location resolves store.timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Store.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config.store.timezone: %w", err)
	}
	return loc, nil
}

// SweepInterval parses expiry.sweep_interval; zero disables the sweeper.
func (c *Config) SweepInterval() (time.Duration, error) {
	raw := strings.TrimSpace(c.Expiry.SweepInterval)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config.expiry.sweep_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config.expiry.sweep_interval must not be negative")
	}
	return d, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "rescueline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `store:
  id: local-store
  name: "Local Market"
  timezone: Local
  staff_actor: "Store Staff"

expiry:
  sweep_interval: 1m

server:
  addr: 127.0.0.1:8080
  base_path: /v1

metrics:
  enabled: true
  path: /metrics

seed:
  deals: []
`
