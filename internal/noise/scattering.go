package noise

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"gonum.org/v1/gonum/interp"
	"gopkg.in/yaml.v3"
)

// minScatteringRatio is the scattering-time to effective-width ratio below
// which pulse broadening leaves the template-fitting error unchanged.
const minScatteringRatio = 0.01

// AmplitudeRatioTable holds the simulated effect of scatter broadening on
// a pulse template, tabulated against the ratio of scattering time to
// effective width. The four arrays are parallel.
type AmplitudeRatioTable struct {
	Ratios      []float64 `yaml:"ratios"`
	AmpRatios   []float64 `yaml:"ampRatios"`
	WeffRatios  []float64 `yaml:"weffRatios"`
	ErrorRatios []float64 `yaml:"errRatios"`
}

// LoadAmplitudeRatioTable reads and validates a table from a YAML file.
// A missing file is a configuration error.
func LoadAmplitudeRatioTable(path string) (*AmplitudeRatioTable, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewConfigError(fmt.Sprintf("amplitude-ratio table '%s' does not exist", path))
		}
		return nil, fmt.Errorf("reading amplitude-ratio table: %w", err)
	}

	var table AmplitudeRatioTable
	if err = yaml.Unmarshal(p, &table); err != nil {
		return nil, fmt.Errorf("decoding amplitude-ratio table: %w", err)
	}
	if err = table.validate(); err != nil {
		return nil, NewConfigError(fmt.Sprintf("amplitude-ratio table '%s': %s", path, err.Error()))
	}
	return &table, nil
}

func (t *AmplitudeRatioTable) validate() error {
	n := len(t.Ratios)
	if n < 2 {
		return fmt.Errorf("at least two rows are required, got %d", n)
	}
	if len(t.ErrorRatios) != n {
		return fmt.Errorf("errRatios has %d rows, ratios has %d", len(t.ErrorRatios), n)
	}
	if (t.AmpRatios != nil && len(t.AmpRatios) != n) || (t.WeffRatios != nil && len(t.WeffRatios) != n) {
		return errors.New("ampRatios and weffRatios must match the length of ratios")
	}
	for i := range t.Ratios {
		if t.Ratios[i] <= 0 || t.ErrorRatios[i] <= 0 {
			return fmt.Errorf("row %d: ratios must be positive for log-log interpolation", i)
		}
		if i > 0 && t.Ratios[i] <= t.Ratios[i-1] {
			return fmt.Errorf("row %d: ratios must be strictly increasing", i)
		}
	}
	return nil
}

// ScatteringCorrector turns a scattering-time to effective-width ratio into
// a multiplicative factor on the template-fitting error. The interpolant is
// built from the table on first use and shared read-only afterwards, so a
// single corrector may serve every worker of a sweep.
type ScatteringCorrector struct {
	load func() (*AmplitudeRatioTable, error)

	once   sync.Once
	err    error
	lo, hi float64
	fn     interp.PiecewiseLinear
}

// NewScatteringCorrector returns a corrector reading its table from path.
// The file is not touched until Prepare or Factors is called.
func NewScatteringCorrector(path string) *ScatteringCorrector {
	return &ScatteringCorrector{load: func() (*AmplitudeRatioTable, error) {
		return LoadAmplitudeRatioTable(path)
	}}
}

// NewScatteringCorrectorFromTable returns a corrector over an in-memory table.
func NewScatteringCorrectorFromTable(table *AmplitudeRatioTable) *ScatteringCorrector {
	return &ScatteringCorrector{load: func() (*AmplitudeRatioTable, error) {
		if err := table.validate(); err != nil {
			return nil, NewConfigError(fmt.Sprintf("amplitude-ratio table: %s", err.Error()))
		}
		return table, nil
	}}
}

// Prepare builds the interpolant if it has not been built yet and returns
// the outcome. Call it before fanning work out to surface table errors early.
func (s *ScatteringCorrector) Prepare() error {
	s.once.Do(func() {
		table, err := s.load()
		if err != nil {
			s.err = err
			return
		}

		xs := make([]float64, len(table.Ratios))
		ys := make([]float64, len(table.Ratios))
		for i := range table.Ratios {
			xs[i] = math.Log10(table.Ratios[i])
			ys[i] = math.Log10(table.ErrorRatios[i])
		}
		if err = s.fn.Fit(xs, ys); err != nil {
			s.err = fmt.Errorf("fitting amplitude-ratio interpolant: %w", err)
			return
		}
		s.lo, s.hi = xs[0], xs[len(xs)-1]
	})
	return s.err
}

// Factors returns the error multiplier for each channel given the scaled
// scattering times and effective widths. Ratios at or below 0.01 map to 1.
func (s *ScatteringCorrector) Factors(tauds, weffs []float64) ([]float64, error) {
	out := make([]float64, len(tauds))
	for i := range tauds {
		ratio := tauds[i] / weffs[i]
		if !(ratio > minScatteringRatio) {
			out[i] = 1
			continue
		}

		if err := s.Prepare(); err != nil {
			return nil, err
		}
		x := math.Log10(ratio)
		if x < s.lo || x > s.hi {
			return nil, fmt.Errorf("%w: ratio %g", ErrRatioOutOfRange, ratio)
		}
		out[i] = math.Pow(10, s.fn.Predict(x))
	}
	return out, nil
}
