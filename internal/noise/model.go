package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/frequency-optimizer/internal/diss"
)

const (
	defaultIntegrationTime = 1800.0 // s
	defaultRefFrequency    = 1.0    // GHz
	defaultScintEtaNu      = 0.2
	defaultScintEtaT       = 0.2
)

// Mask is an inclusive frequency interval, in GHz, of excised channels.
type Mask struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether nu lies inside the mask.
func (m Mask) Contains(nu float64) bool {
	return nu >= m.Min && nu <= m.Max
}

// UnmarshalYAML accepts either a [min, max] pair or a {min, max} mapping.
func (m *Mask) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		type plain Mask
		return node.Decode((*plain)(m))
	}

	var edges []float64
	if err := node.Decode(&edges); err != nil {
		return fmt.Errorf("decoding mask: %w", err)
	}
	if len(edges) != 2 {
		return fmt.Errorf("line %d: mask must have exactly two edges, got %d", node.Line, len(edges))
	}
	m.Min, m.Max = edges[0], edges[1]
	return nil
}

// WithScaler sets the scintillation scaling law. Defaults to diss.Kolmogorov.
func WithScaler(s diss.Scaler) func(*Model) {
	return func(m *Model) {
		m.scaler = s
	}
}

// WithScatteringCorrector sets the amplitude-ratio corrector used when the
// pulsar has a non-zero scattering time.
func WithScatteringCorrector(c *ScatteringCorrector) func(*Model) {
	return func(m *Model) {
		m.corrector = c
	}
}

// WithMasks sets the frequency intervals whose template-fitting variance is
// forced to zero.
func WithMasks(masks ...Mask) func(*Model) {
	return func(m *Model) {
		m.masks = append([]Mask(nil), masks...)
	}
}

// WithIntegrationTime sets the observation length in seconds.
func WithIntegrationTime(seconds float64) func(*Model) {
	return func(m *Model) {
		m.integrationTime = seconds
	}
}

// Model evaluates the timing-noise budget of one pulsar. It holds no mutable
// state and is safe for concurrent use.
type Model struct {
	profile   *Profile
	scaler    diss.Scaler
	corrector *ScatteringCorrector
	masks     []Mask

	integrationTime float64
	refFrequency    float64
	etaNu, etaT     float64
}

// NewModel creates a Model for the given profile.
func NewModel(p *Profile, options ...func(*Model)) *Model {
	m := Model{
		profile:         p,
		scaler:          diss.Kolmogorov,
		integrationTime: defaultIntegrationTime,
		refFrequency:    defaultRefFrequency,
		etaNu:           defaultScintEtaNu,
		etaT:            defaultScintEtaT,
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// Profile returns the pulsar profile the model was built for.
func (m *Model) Profile() *Profile {
	return m.profile
}

// Breakdown is the per-source decomposition of a single evaluation, all in
// microseconds.
type Breakdown struct {
	Base         float64 // template fitting, jitter and scintillation, epoch averaged
	DM           float64 // dispersion-measure misestimation
	Polarization float64 // polarization calibration, epoch averaged
	Total        float64
}

// Evaluate returns the total timing uncertainty, in microseconds, for one
// channelisation of the band.
func (m *Model) Evaluate(ch Channels) (float64, error) {
	b, err := m.EvaluateBreakdown(ch)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// EvaluateBreakdown is Evaluate with every contribution reported.
func (m *Model) EvaluateBreakdown(ch Channels) (Breakdown, error) {
	tf, err := m.TemplateFittingCovariance(ch)
	if err != nil {
		return Breakdown{}, fmt.Errorf("template fitting: %w", err)
	}
	jitter, err := m.JitterCovariance(ch)
	if err != nil {
		return Breakdown{}, fmt.Errorf("jitter: %w", err)
	}
	scint, err := m.ScintillationCovariance(ch)
	if err != nil {
		return Breakdown{}, fmt.Errorf("scintillation: %w", err)
	}

	cov := mat.NewSymDense(ch.Len(), nil)
	cov.AddSym(tf, jitter)
	cov.AddSym(cov, scint)

	baseVar, err := EpochAveragedVariance(cov)
	if err != nil {
		return Breakdown{}, fmt.Errorf("epoch averaging: %w", err)
	}

	pol, err := m.PolarizationCovariance(ch)
	if err != nil {
		return Breakdown{}, fmt.Errorf("polarization: %w", err)
	}
	polVar, err := EpochAveragedVariance(pol)
	if err != nil {
		return Breakdown{}, fmt.Errorf("epoch averaging polarization: %w", err)
	}

	dm, err := m.DMMisestimation(ch, cov)
	if err != nil {
		return Breakdown{}, fmt.Errorf("dm misestimation: %w", err)
	}

	return Breakdown{
		Base:         math.Sqrt(baseVar),
		DM:           dm,
		Polarization: math.Sqrt(polVar),
		Total:        math.Sqrt(baseVar + dm*dm + polVar),
	}, nil
}
