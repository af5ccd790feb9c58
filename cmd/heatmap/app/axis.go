package app

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// axis maps a grid axis value onto a fractional cell index, interpolating
// in log space for log-spaced axes.
type axis struct {
	values []float64
	log    bool
	fn     interp.PiecewiseLinear
}

func newAxis(values []float64, log bool) (*axis, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty axis")
	}

	a := axis{values: values, log: log}
	if len(values) == 1 {
		return &a, nil
	}

	xs := make([]float64, len(values))
	ys := make([]float64, len(values))
	for i, v := range values {
		xs[i] = a.transform(v)
		ys[i] = float64(i)
	}
	if err := a.fn.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting axis: %w", err)
	}
	return &a, nil
}

func (a *axis) transform(v float64) float64 {
	if a.log {
		return math.Log10(v)
	}
	return v
}

// position returns the fractional index of v, or false when v lies outside
// the axis.
func (a *axis) position(v float64) (float64, bool) {
	lo, hi := a.values[0], a.values[len(a.values)-1]
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, false
	}
	if len(a.values) == 1 {
		return 0, true
	}
	return a.fn.Predict(a.transform(v)), true
}
