package noise

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultC1 relates scattering time and decorrelation bandwidth,
	// dnud = C1/(2π taud), for a thin screen with a Kolmogorov spectrum.
	DefaultC1 = 1.16

	defaultAlpha            = 1.7
	defaultBeta             = 2.75
	defaultEffectiveArea    = 27600.0 // m², Arecibo-like gain of 10 K/Jy
	defaultReferenceFlux    = 18.0    // mJy at 1 GHz
	defaultDistance         = 1.0     // kpc
	defaultElectronTemp     = 100.0   // K
	defaultFillingFactor    = 0.2
	defaultLeakage          = 0.08
	defaultCircularFraction = 0.1
)

type scatteringKind uint8

const (
	scatteringUnset scatteringKind = iota
	scatteringTime
	scatteringBandwidth
)

// Scattering holds whichever of scattering time or decorrelation bandwidth
// was measured. The other one is derived when the profile is built.
type Scattering struct {
	kind  scatteringKind
	value float64
}

// ScatteringTime returns a Scattering given the pulse-broadening time at
// 1 GHz in microseconds.
func ScatteringTime(taud float64) Scattering {
	return Scattering{kind: scatteringTime, value: taud}
}

// DecorrelationBandwidth returns a Scattering given the scintillation
// bandwidth at 1 GHz.
func DecorrelationBandwidth(dnud float64) Scattering {
	return Scattering{kind: scatteringBandwidth, value: dnud}
}

// resolve returns (taud, dnud).
func (s Scattering) resolve(c1 float64) (float64, float64, error) {
	switch s.kind {
	case scatteringTime:
		return s.value, c1 / (2 * math.Pi * s.value), nil
	case scatteringBandwidth:
		return c1 / (2 * math.Pi * s.value), s.value, nil
	default:
		return 0, 0, NewConfigError("one of scattering time or decorrelation bandwidth is required")
	}
}

// ProfileConfig is the user-facing description of a pulsar. It is decoded
// from YAML and turned into a Profile by NewProfile.
type ProfileConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Alpha float64 `yaml:"alpha" json:"alpha"` // flux ∝ ν^-alpha
	Beta  float64 `yaml:"beta" json:"beta"`   // sky temperature ∝ ν^-beta

	ScatteringTime         *float64 `yaml:"scatteringTime,omitempty" json:"scatteringTime,omitempty"`                 // μs at 1 GHz
	DecorrelationBandwidth *float64 `yaml:"decorrelationBandwidth,omitempty" json:"decorrelationBandwidth,omitempty"` // at 1 GHz
	C1                     float64  `yaml:"c1" json:"c1"`

	DecorrelationTime   float64  `yaml:"decorrelationTime" json:"decorrelationTime"` // s at 1 GHz
	EffectiveArea       float64  `yaml:"effectiveArea" json:"effectiveArea"`         // m²
	ReferenceFlux       float64  `yaml:"referenceFlux" json:"referenceFlux"`         // mJy at 1 GHz
	DM                  float64  `yaml:"dm" json:"dm"`                               // pc cm^-3
	Distance            float64  `yaml:"distance" json:"distance"`                   // kpc
	ElectronTemperature float64  `yaml:"electronTemperature" json:"electronTemperature"`
	FillingFactor       float64  `yaml:"fillingFactor" json:"fillingFactor"`
	TauVar              *float64 `yaml:"tauVar,omitempty" json:"tauVar,omitempty"` // μs, defaults to taud/2

	Weff             ChannelValue `yaml:"weff" json:"weff"`     // μs
	W50              ChannelValue `yaml:"w50" json:"w50"`       // μs
	Jitter           ChannelValue `yaml:"jitter" json:"jitter"` // μs
	Leakage          ChannelValue `yaml:"leakage" json:"leakage"`
	CircularFraction ChannelValue `yaml:"circularFraction" json:"circularFraction"`
}

// DefaultProfileConfig returns a config populated with the model defaults.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		Alpha:               defaultAlpha,
		Beta:                defaultBeta,
		C1:                  DefaultC1,
		EffectiveArea:       defaultEffectiveArea,
		ReferenceFlux:       defaultReferenceFlux,
		Distance:            defaultDistance,
		ElectronTemperature: defaultElectronTemp,
		FillingFactor:       defaultFillingFactor,
		Leakage:             Scalar(defaultLeakage),
		CircularFraction:    Scalar(defaultCircularFraction),
	}
}

// UnmarshalYAML starts from the defaults so omitted keys keep them.
func (c *ProfileConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain ProfileConfig

	*c = DefaultProfileConfig()
	return node.Decode((*plain)(c))
}

// Scattering returns the scattering variant described by the config.
func (c *ProfileConfig) Scattering() (Scattering, error) {
	switch {
	case c.ScatteringTime != nil && c.DecorrelationBandwidth != nil:
		return Scattering{}, NewConfigError(fmt.Sprintf("pulsar '%s': only one of scatteringTime or decorrelationBandwidth may be set", c.Name))
	case c.ScatteringTime != nil:
		return ScatteringTime(*c.ScatteringTime), nil
	case c.DecorrelationBandwidth != nil:
		return DecorrelationBandwidth(*c.DecorrelationBandwidth), nil
	default:
		return Scattering{}, NewConfigError(fmt.Sprintf("pulsar '%s': one of scatteringTime or decorrelationBandwidth is required", c.Name))
	}
}

// Profile is the resolved, immutable physical description of a pulsar and
// its line of sight. Both scattering fields are always populated.
type Profile struct {
	Name  string
	Alpha float64
	Beta  float64

	ScatteringTime         float64 // μs at 1 GHz
	DecorrelationBandwidth float64 // C1/(2π ScatteringTime)
	C1                     float64

	DecorrelationTime   float64
	EffectiveArea       float64
	ReferenceFlux       float64
	DM                  float64
	Distance            float64
	ElectronTemperature float64
	FillingFactor       float64
	TauVar              float64

	Weff             ChannelValue
	W50              ChannelValue
	Jitter           ChannelValue
	Leakage          ChannelValue
	CircularFraction ChannelValue
}

// NewProfile validates cfg and resolves the scattering variant.
func NewProfile(cfg ProfileConfig) (*Profile, error) {
	if cfg.Name == "" {
		return nil, NewConfigError("pulsar name is required")
	}

	scattering, err := cfg.Scattering()
	if err != nil {
		return nil, err
	}

	c1 := cfg.C1
	if c1 == 0 {
		c1 = DefaultC1
	}

	taud, dnud, err := scattering.resolve(c1)
	if err != nil {
		return nil, err
	}
	if taud < 0 || dnud < 0 {
		return nil, NewConfigError(fmt.Sprintf("pulsar '%s': scattering parameters must not be negative", cfg.Name))
	}
	if cfg.EffectiveArea <= 0 {
		return nil, NewConfigError(fmt.Sprintf("pulsar '%s': effective area must be positive", cfg.Name))
	}
	if !cfg.Weff.positive() {
		return nil, NewConfigError(fmt.Sprintf("pulsar '%s': weff must be positive for every channel", cfg.Name))
	}

	tauVar := taud / 2
	if cfg.TauVar != nil {
		tauVar = *cfg.TauVar
	}

	return &Profile{
		Name:                   cfg.Name,
		Alpha:                  cfg.Alpha,
		Beta:                   cfg.Beta,
		ScatteringTime:         taud,
		DecorrelationBandwidth: dnud,
		C1:                     c1,
		DecorrelationTime:      cfg.DecorrelationTime,
		EffectiveArea:          cfg.EffectiveArea,
		ReferenceFlux:          cfg.ReferenceFlux,
		DM:                     cfg.DM,
		Distance:               cfg.Distance,
		ElectronTemperature:    cfg.ElectronTemperature,
		FillingFactor:          cfg.FillingFactor,
		TauVar:                 tauVar,
		Weff:                   cfg.Weff,
		W50:                    cfg.W50,
		Jitter:                 cfg.Jitter,
		Leakage:                cfg.Leakage,
		CircularFraction:       cfg.CircularFraction,
	}, nil
}
