package noise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Channels is a channelised observing band: the sample frequency of each
// channel in GHz and its width in GHz.
type Channels struct {
	Freqs  []float64
	Widths []float64
}

// NewChannels builds an explicit channel set. freqs and widths must have the
// same, non-zero length.
func NewChannels(freqs, widths []float64) (Channels, error) {
	if len(freqs) == 0 {
		return Channels{}, fmt.Errorf("channel grid is empty")
	}
	if len(freqs) != len(widths) {
		return Channels{}, fmt.Errorf("%w: %d frequencies, %d widths", ErrChannelMismatch, len(freqs), len(widths))
	}
	return Channels{
		Freqs:  append([]float64(nil), freqs...),
		Widths: append([]float64(nil), widths...),
	}, nil
}

// Len returns the number of channels.
func (c Channels) Len() int {
	return len(c.Freqs)
}

// Min returns the lowest channel frequency.
func (c Channels) Min() float64 {
	return floats.Min(c.Freqs)
}

// Max returns the highest channel frequency.
func (c Channels) Max() float64 {
	return floats.Max(c.Freqs)
}

// GridFrequencies returns n frequencies spanning [lo, hi), evenly spaced in
// linear or logarithmic scale. The right edge is excluded so that adjacent
// bands never sample the same frequency twice.
func GridFrequencies(lo, hi float64, n int, log bool) []float64 {
	if n <= 0 {
		return nil
	}

	dst := make([]float64, n+1)
	if log {
		floats.LogSpan(dst, lo, hi)
	} else {
		floats.Span(dst, lo, hi)
	}
	return dst[:n]
}

// Bandwidths returns the width of each channel of a grid produced by
// GridFrequencies. Linear grids have one uniform width. Logarithmic grids
// place channel edges halfway between samples in log space, so widths grow
// with frequency and are returned as computed.
func Bandwidths(nus []float64, log bool) []float64 {
	if len(nus) < 2 {
		return nil
	}

	widths := make([]float64, len(nus))
	if !log {
		step := nus[1] - nus[0]
		for i := range widths {
			widths[i] = step
		}
		return widths
	}

	logDiff := math.Log10(nus[1]) - math.Log10(nus[0])
	prev := math.Pow(10, math.Log10(nus[0])-logDiff/2)
	for i, nu := range nus {
		edge := math.Pow(10, math.Log10(nu)+logDiff/2)
		widths[i] = edge - prev
		prev = edge
	}
	return widths
}

// LinearChannels builds n linearly spaced channels over [lo, hi).
func LinearChannels(lo, hi float64, n int) (Channels, error) {
	return gridChannels(lo, hi, n, false)
}

// LogChannels builds n logarithmically spaced channels over [lo, hi).
func LogChannels(lo, hi float64, n int) (Channels, error) {
	return gridChannels(lo, hi, n, true)
}

// BandChannels builds n channels over [lo, hi) with the requested spacing.
func BandChannels(lo, hi float64, n int, log bool) (Channels, error) {
	return gridChannels(lo, hi, n, log)
}

func gridChannels(lo, hi float64, n int, log bool) (Channels, error) {
	if n <= 0 {
		return Channels{}, fmt.Errorf("invalid channel count: %d", n)
	}
	if lo >= hi {
		return Channels{}, fmt.Errorf("invalid frequency range: low=%f, high=%f", lo, hi)
	}
	if log && lo <= 0 {
		return Channels{}, fmt.Errorf("invalid frequency range for log spacing: low=%f", lo)
	}

	nus := GridFrequencies(lo, hi, n, log)
	widths := Bandwidths(nus, log)
	if widths == nil {
		// A single channel covers the whole band.
		widths = []float64{hi - lo}
	}
	return Channels{Freqs: nus, Widths: widths}, nil
}
