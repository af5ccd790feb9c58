package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

const defaultDatabase = "runs.sqlite"

// Config represents the main application configuration
type Config struct {
	Settings        Settings       `yaml:"settings"`
	Storage         StorageConfig  `yaml:"storage"`
	ScatteringTable string         `yaml:"scatteringTable"`
	Pulsars         []PulsarConfig `yaml:"pulsars"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel       slog.Level `yaml:"logLevel"`
	Workers        int        `yaml:"workers"`        // 0 means one per CPU
	MetricsAddress string     `yaml:"metricsAddress"` // empty disables the /metrics endpoint
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Database      string `yaml:"database"` // file name inside DataDirectory
	Archive       bool   `yaml:"archive"`  // also write <name>.msgpack per pulsar
}

// PulsarConfig is one pulsar to sweep: its noise profile with the sweep
// settings nested under "sweep".
type PulsarConfig struct {
	Profile noise.ProfileConfig `json:"profile"`
	Sweep   sweep.Config        `json:"sweep"`
}

// UnmarshalYAML decodes the profile keys and the nested sweep block from the
// same mapping. Both start from their defaults.
func (p *PulsarConfig) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&p.Profile); err != nil {
		return err
	}

	var nested struct {
		Sweep *sweep.Config `yaml:"sweep"`
	}
	if err := node.Decode(&nested); err != nil {
		return err
	}

	p.Sweep = sweep.DefaultConfig()
	if nested.Sweep != nil {
		p.Sweep = *nested.Sweep
	}
	return nil
}

// LoadConfig reads, decodes and validates the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
	}
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every pulsar and sweep so that configuration mistakes
// surface before any computation starts.
func (c *Config) Validate() error {
	if len(c.Pulsars) == 0 {
		return errors.New("no pulsars specified on configuration")
	}
	if c.Settings.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Settings.Workers)
	}

	seen := make(map[string]struct{}, len(c.Pulsars))
	for i := range c.Pulsars {
		pulsar := &c.Pulsars[i]

		profile, err := noise.NewProfile(pulsar.Profile)
		if err != nil {
			return fmt.Errorf("pulsar #%d: %w", i+1, err)
		}
		if _, ok := seen[profile.Name]; ok {
			return fmt.Errorf("pulsar '%s' is specified more than once", profile.Name)
		}
		seen[profile.Name] = struct{}{}

		if err = pulsar.Sweep.Validate(); err != nil {
			return fmt.Errorf("pulsar '%s': sweep: %w", profile.Name, err)
		}
		if profile.ScatteringTime > 0 && c.ScatteringTable == "" {
			return noise.NewConfigError(fmt.Sprintf("pulsar '%s' is scattered: scatteringTable is required", profile.Name))
		}
	}
	return nil
}

// NeedsScatteringTable reports whether any pulsar has a non-zero
// scattering time.
func (c *Config) NeedsScatteringTable() bool {
	for _, pulsar := range c.Pulsars {
		if profile, err := noise.NewProfile(pulsar.Profile); err == nil && profile.ScatteringTime > 0 {
			return true
		}
	}
	return false
}

func (c *StorageConfig) database() string {
	if c.Database == "" {
		return defaultDatabase
	}
	return c.Database
}
