package sweep

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
)

const (
	defaultMinFrequency = 0.08 // GHz
	defaultMaxFrequency = 10.0 // GHz
	defaultStep         = 0.05 // GHz
	defaultNChan        = 60
	defaultNSteps       = 25
)

// Band is a frequency interval in GHz.
type Band struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Config describes the grid of receiver configurations to sweep.
type Config struct {
	MinFrequency  float64      `yaml:"minFrequency" json:"minFrequency"`   // GHz
	MaxFrequency  float64      `yaml:"maxFrequency" json:"maxFrequency"`   // GHz
	Step          float64      `yaml:"step" json:"step"`                   // GHz, linear axes only
	NChan         int          `yaml:"nchan" json:"nchan"`                 // channels per configuration
	Log           bool         `yaml:"log" json:"log"`                     // log-spaced axes and channels
	NSteps        int          `yaml:"nsteps" json:"nsteps"`               // points per decade, log axes only
	Fractional    bool         `yaml:"fractional" json:"fractional"`       // second axis is B/C
	FullBandwidth bool         `yaml:"fullBandwidth" json:"fullBandwidth"` // extend log bandwidths to MaxFrequency²
	Masks         []noise.Mask `yaml:"masks,omitempty" json:"masks,omitempty"`
	Verbose       bool         `yaml:"verbose" json:"verbose"`

	// Marker is a reference band evaluated once alongside the sweep.
	Marker *Band `yaml:"marker,omitempty" json:"marker,omitempty"`
}

// DefaultConfig returns the configuration used when a pulsar omits one.
func DefaultConfig() Config {
	return Config{
		MinFrequency: defaultMinFrequency,
		MaxFrequency: defaultMaxFrequency,
		Step:         defaultStep,
		NChan:        defaultNChan,
		Log:          true,
		NSteps:       defaultNSteps,
	}
}

// UnmarshalYAML starts from the defaults so omitted keys keep them.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config

	*c = DefaultConfig()
	return node.Decode((*plain)(c))
}

// Validate reports the first inconsistency in the configuration.
func (c *Config) Validate() error {
	if !(c.MinFrequency > 0) {
		return errors.New("minFrequency must be positive")
	}
	if !(c.MaxFrequency > c.MinFrequency) {
		return fmt.Errorf("maxFrequency (%g) must be greater than minFrequency (%g)", c.MaxFrequency, c.MinFrequency)
	}
	if c.NChan < 1 {
		return fmt.Errorf("nchan must be at least 1, got %d", c.NChan)
	}
	if c.Log && c.NSteps < 1 {
		return fmt.Errorf("nsteps must be at least 1, got %d", c.NSteps)
	}
	if !c.Log && !(c.Step > 0) {
		return errors.New("step must be positive for linear axes")
	}
	if c.FullBandwidth && !c.Log {
		return errors.New("fullBandwidth requires log axes")
	}
	if c.FullBandwidth && c.Fractional {
		return errors.New("fullBandwidth cannot be combined with fractional bandwidths")
	}
	for i, m := range c.Masks {
		if m.Min > m.Max {
			return fmt.Errorf("mask %d: lower edge %g is above upper edge %g", i, m.Min, m.Max)
		}
	}
	if c.Marker != nil && !(c.Marker.Low > 0 && c.Marker.High > c.Marker.Low) {
		return fmt.Errorf("marker band [%g, %g] is invalid", c.Marker.Low, c.Marker.High)
	}
	return nil
}

// NoiseMasks returns a copy of the configured masks for the noise model.
func (c *Config) NoiseMasks() []noise.Mask {
	if len(c.Masks) == 0 {
		return nil
	}
	return append([]noise.Mask(nil), c.Masks...)
}
