package sweep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
)

// MaxFractionalBandwidth is the largest B/C swept. Beyond it the lower band
// edge approaches zero frequency.
const MaxFractionalBandwidth = 1.9

// ErrEmptyAxis is returned when the configuration yields fewer than two
// points on an axis.
var ErrEmptyAxis = errors.New("axis has fewer than two points")

// Grid holds the immutable sweep axes. Centers are center frequencies in
// GHz. Widths are bandwidths in GHz, or fractional bandwidths B/C when
// Fractional is set.
type Grid struct {
	Centers    []float64
	Widths     []float64
	Fractional bool
	Log        bool
	Marker     *Band

	nchan int
}

// NewGrid validates cfg and derives the axes.
func NewGrid(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := Grid{
		Fractional: cfg.Fractional,
		Log:        cfg.Log,
		Marker:     cfg.Marker,
		nchan:      cfg.NChan,
	}

	lo, hi := cfg.MinFrequency, cfg.MaxFrequency
	if cfg.Log {
		g.Centers = logAxis(lo, hi, cfg.NSteps)
	} else {
		g.Centers = arange(lo, hi, cfg.Step)
	}
	if len(g.Centers) < 2 {
		return nil, fmt.Errorf("center frequencies: %w", ErrEmptyAxis)
	}

	switch {
	case cfg.Fractional && cfg.Log:
		g.Widths = floats.LogSpan(make([]float64, len(g.Centers)), lo/hi, 2)
	case cfg.Fractional:
		g.Widths = floats.Span(make([]float64, len(g.Centers)), lo/hi, 2)
	case cfg.Log && cfg.FullBandwidth:
		g.Widths = logAxis(lo, hi*hi, cfg.NSteps)
	case cfg.Log:
		g.Widths = logAxis(lo, hi, cfg.NSteps)
	default:
		g.Widths = arange(lo, hi/2, cfg.Step)
	}
	if len(g.Widths) < 2 {
		return nil, fmt.Errorf("bandwidths: %w", ErrEmptyAxis)
	}

	return &g, nil
}

// NChan returns the number of channels per configuration.
func (g *Grid) NChan() int {
	return g.nchan
}

// Bandwidth returns the absolute bandwidth in GHz of cell (i, j).
func (g *Grid) Bandwidth(i, j int) float64 {
	if g.Fractional {
		return g.Centers[i] * g.Widths[j]
	}
	return g.Widths[j]
}

// Feasible reports whether a receiver centered at c with bandwidth b has a
// physical, non-degenerate band.
func Feasible(c, b float64) bool {
	return b > 0 && b <= MaxFractionalBandwidth*c && c-b/2 > 0
}

// Channels returns the channelisation of [c-b/2, c+b/2) using the grid's
// spacing. The boolean is false when the pair is not feasible.
func (g *Grid) Channels(c, b float64) (noise.Channels, bool, error) {
	if !Feasible(c, b) {
		return noise.Channels{}, false, nil
	}

	ch, err := noise.BandChannels(c-b/2, c+b/2, g.nchan, g.Log)
	if err != nil {
		return noise.Channels{}, false, err
	}
	return ch, true, nil
}

// BandChannels channelises an explicit band with the grid's spacing.
func (g *Grid) BandChannels(band Band) (noise.Channels, error) {
	return noise.BandChannels(band.Low, band.High, g.nchan, g.Log)
}

// logAxis returns int((log10 hi - log10 lo)·nsteps + 1) log-spaced points
// from lo to hi inclusive.
func logAxis(lo, hi float64, nsteps int) []float64 {
	// Decades such as log10(100) may land a hair below the integer.
	n := int((math.Log10(hi)-math.Log10(lo))*float64(nsteps) + 1 + 1e-9)
	if n < 2 {
		return nil
	}
	return floats.LogSpan(make([]float64, n), lo, hi)
}

// arange returns lo, lo+step, ... strictly below hi.
func arange(lo, hi, step float64) []float64 {
	n := int(math.Ceil((hi - lo) / step))
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
