package sweep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_ValuesRoundTrip(t *testing.T) {
	values := [][]float64{
		{1.2, math.NaN()},
		{0.8, 2.1},
	}

	s, err := FromValues([]float64{1, 2}, []float64{0.5, 1}, values, false)
	require.NoError(t, err)
	assert.Nil(t, s.Sigmas[0][1])
	assert.Equal(t, 3, s.Defined())

	got := s.Values()
	assert.Equal(t, 1.2, got[0][0])
	assert.True(t, math.IsNaN(got[0][1]))
	assert.Equal(t, 2.1, got[1][1])
}

func TestFromValues_ShapeMismatch(t *testing.T) {
	_, err := FromValues([]float64{1, 2}, []float64{0.5}, [][]float64{{1}}, false)
	assert.Error(t, err)

	_, err = FromValues([]float64{1}, []float64{0.5, 1}, [][]float64{{1}}, false)
	assert.Error(t, err)
}

func TestSurface_Minimum(t *testing.T) {
	s, err := FromValues(
		[]float64{1, 2, 3},
		[]float64{0.25, 0.5},
		[][]float64{
			{5, math.NaN()},
			{0.7, 0.7},
			{math.NaN(), 0.9},
		},
		true,
	)
	require.NoError(t, err)

	p, ok := s.Minimum()
	require.True(t, ok)
	assert.Equal(t, Point{Row: 1, Col: 0, Center: 2, Width: 0.25, Bandwidth: 0.5, Sigma: 0.7}, p)

	lo, hi, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, 0.7, lo)
	assert.Equal(t, 5.0, hi)
}

func TestSurface_MinimumUndefined(t *testing.T) {
	s, err := FromValues([]float64{1}, []float64{0.5}, [][]float64{{math.NaN()}}, false)
	require.NoError(t, err)

	_, ok := s.Minimum()
	assert.False(t, ok)

	_, _, ok = s.Bounds()
	assert.False(t, ok)
}
