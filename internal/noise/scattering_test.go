package noise

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAmplitudeRatioTable(t *testing.T) {
	table, err := LoadAmplitudeRatioTable(testTablePath)
	require.NoError(t, err)
	assert.Len(t, table.Ratios, 5)
	assert.Len(t, table.ErrorRatios, 5)
}

func TestLoadAmplitudeRatioTable_Missing(t *testing.T) {
	_, err := LoadAmplitudeRatioTable(filepath.Join(t.TempDir(), "nope.yaml"))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "does not exist")
}

func TestScatteringCorrector_Factors(t *testing.T) {
	table := &AmplitudeRatioTable{
		Ratios:      []float64{0.01, 0.1, 1, 10},
		ErrorRatios: []float64{1, 2, 4, 8},
	}
	c := NewScatteringCorrectorFromTable(table)
	require.NoError(t, c.Prepare())

	weffs := []float64{100, 100, 100, 100}
	factors, err := c.Factors([]float64{0, 0.5, 10, 100}, weffs)
	require.NoError(t, err)

	assert.Equal(t, 1.0, factors[0], "unscattered")
	assert.Equal(t, 1.0, factors[1], "ratio below the threshold")
	assert.InDelta(t, 2.0, factors[2], 1e-12)
	assert.InDelta(t, 4.0, factors[3], 1e-12)

	// Log-log midpoint between 1 and 10 is √10.
	mid, err := c.Factors([]float64{316.22776601683796}, []float64{100})
	require.NoError(t, err)
	assert.InDelta(t, 5.656854249492381, mid[0], 1e-9)
}

func TestScatteringCorrector_OutOfRange(t *testing.T) {
	c := NewScatteringCorrector(testTablePath)

	_, err := c.Factors([]float64{1e5}, []float64{100})
	assert.ErrorIs(t, err, ErrRatioOutOfRange)
}

func TestScatteringCorrector_LazyLoad(t *testing.T) {
	c := NewScatteringCorrector(filepath.Join(t.TempDir(), "missing.yaml"))

	factors, err := c.Factors([]float64{0.1}, []float64{100})
	require.NoError(t, err, "small ratios never touch the table")
	assert.Equal(t, []float64{1}, factors)

	var cfgErr *ConfigError
	assert.ErrorAs(t, c.Prepare(), &cfgErr)
}

func TestAmplitudeRatioTable_Validate(t *testing.T) {
	testCases := []struct {
		name  string
		table AmplitudeRatioTable
	}{
		{"too short", AmplitudeRatioTable{Ratios: []float64{1}, ErrorRatios: []float64{1}}},
		{"length mismatch", AmplitudeRatioTable{Ratios: []float64{1, 2}, ErrorRatios: []float64{1}}},
		{"not increasing", AmplitudeRatioTable{Ratios: []float64{2, 1}, ErrorRatios: []float64{1, 1}}},
		{"non-positive", AmplitudeRatioTable{Ratios: []float64{0, 1}, ErrorRatios: []float64{1, 1}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewScatteringCorrectorFromTable(&tc.table)
			var cfgErr *ConfigError
			assert.ErrorAs(t, c.Prepare(), &cfgErr)
		})
	}
}
