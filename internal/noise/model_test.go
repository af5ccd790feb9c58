package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const testTablePath = "testdata/ampratios.yaml"

func testProfile(t *testing.T, modify func(*ProfileConfig)) *Profile {
	t.Helper()

	cfg := DefaultProfileConfig()
	cfg.Name = "J1713+0747"
	taud := 0.0
	cfg.ScatteringTime = &taud
	cfg.DecorrelationTime = 1000
	cfg.Weff = Scalar(100)
	cfg.W50 = Scalar(110)
	cfg.Jitter = Scalar(0)
	cfg.Leakage = Scalar(0)
	if modify != nil {
		modify(&cfg)
	}

	p, err := NewProfile(cfg)
	require.NoError(t, err)
	return p
}

func identicalChannels(t *testing.T, n int, nu, width float64) Channels {
	t.Helper()

	freqs := make([]float64, n)
	widths := make([]float64, n)
	for i := range freqs {
		freqs[i] = nu
		widths[i] = width
	}
	ch, err := NewChannels(freqs, widths)
	require.NoError(t, err)
	return ch
}

func TestTemplateFittingCovariance_DiagonalNonNegative(t *testing.T) {
	m := NewModel(testProfile(t, nil))
	ch, err := LogChannels(0.3, 3.0, 40)
	require.NoError(t, err)

	cov, err := m.TemplateFittingCovariance(ch)
	require.NoError(t, err)
	require.Equal(t, ch.Len(), cov.SymmetricDim())

	for i := 0; i < ch.Len(); i++ {
		for j := 0; j < ch.Len(); j++ {
			if i == j {
				assert.GreaterOrEqual(t, cov.At(i, j), 0.0)
				assert.LessOrEqual(t, cov.At(i, j), MaxVariance)
			} else {
				assert.Zero(t, cov.At(i, j))
			}
		}
	}
}

func TestTemplateFittingCovariance_FullMask(t *testing.T) {
	ch, err := LinearChannels(1.0, 2.0, 16)
	require.NoError(t, err)
	m := NewModel(testProfile(t, nil), WithMasks(Mask{Min: 1.0, Max: 2.0}))

	cov, err := m.TemplateFittingCovariance(ch)
	require.NoError(t, err)
	for i := 0; i < ch.Len(); i++ {
		assert.Zero(t, cov.At(i, i), "channel %d", i)
	}
}

func TestTemplateFittingCovariance_ClampsHopelessChannels(t *testing.T) {
	tests := []struct {
		name string
		flux float64
	}{
		{"overflow", 1e-300},
		{"not a number", math.NaN()},
	}

	ch, err := LinearChannels(1.0, 2.0, 4)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile(t, func(cfg *ProfileConfig) {
				cfg.ReferenceFlux = tt.flux
			})

			cov, err := NewModel(p).TemplateFittingCovariance(ch)
			require.NoError(t, err)
			for i := 0; i < ch.Len(); i++ {
				assert.Equal(t, MaxVariance, cov.At(i, i))
			}
		})
	}
}

func TestSystemTemperature(t *testing.T) {
	assert.InDelta(t, 40.0, SystemTemperature(0.408, 2.75), 1e-12)
	assert.Greater(t, SystemTemperature(0.1, 2.75), SystemTemperature(1.0, 2.75))
}

func TestJitterCovariance_FullyCorrelated(t *testing.T) {
	p := testProfile(t, func(cfg *ProfileConfig) {
		cfg.Jitter = PerChannel([]float64{1, 2, 3})
	})
	ch, err := LinearChannels(1.0, 1.3, 3)
	require.NoError(t, err)

	cov, err := NewModel(p).JitterCovariance(ch)
	require.NoError(t, err)
	assert.Equal(t, 6.0, cov.At(1, 2))
	assert.Equal(t, 9.0, cov.At(2, 2))
	assert.Equal(t, 3.0, cov.At(2, 0))
}

func TestJitterCovariance_LengthMismatch(t *testing.T) {
	p := testProfile(t, func(cfg *ProfileConfig) {
		cfg.Jitter = PerChannel([]float64{1, 2})
	})
	ch, err := LinearChannels(1.0, 1.3, 3)
	require.NoError(t, err)

	_, err = NewModel(p).JitterCovariance(ch)
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestScintillationErrors_Unscattered(t *testing.T) {
	ch, err := LogChannels(0.5, 2.0, 8)
	require.NoError(t, err)

	for i, s := range NewModel(testProfile(t, nil)).ScintillationErrors(ch) {
		assert.Zero(t, s, "channel %d", i)
	}
}

func TestPolarizationCovariance(t *testing.T) {
	p := testProfile(t, func(cfg *ProfileConfig) {
		cfg.Leakage = Scalar(0.1)
		cfg.CircularFraction = Scalar(0.5)
		cfg.W50 = Scalar(200)
	})
	ch, err := LinearChannels(1.0, 2.0, 2)
	require.NoError(t, err)

	cov, err := NewModel(p).PolarizationCovariance(ch)
	require.NoError(t, err)
	// σ = 0.1·0.5·200/100 = 0.1 μs
	assert.InDelta(t, 0.01, cov.At(0, 0), 1e-15)
	assert.Zero(t, cov.At(0, 1))
}

func TestEvaluate_IdenticalChannelsAverageDown(t *testing.T) {
	const n = 10
	m := NewModel(testProfile(t, nil))

	single, err := m.TemplateFittingErrors(identicalChannels(t, 1, 1.4, 0.01))
	require.NoError(t, err)

	b, err := m.EvaluateBreakdown(identicalChannels(t, n, 1.4, 0.01))
	require.NoError(t, err)

	assert.Zero(t, b.DM, "a single distinct frequency cannot constrain DM")
	assert.Zero(t, b.Polarization)
	assert.InEpsilon(t, single[0]/math.Sqrt(n), b.Total, 1e-9)
}

func TestEvaluate_NegligibleScatteringMatchesUnscattered(t *testing.T) {
	testCases := []struct {
		name string
		log  bool
	}{
		{"linear", false},
		{"log", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ch, err := BandChannels(1.0, 2.0, 10, tc.log)
			require.NoError(t, err)

			clean := NewModel(testProfile(t, nil))
			scattered := NewModel(testProfile(t, func(cfg *ProfileConfig) {
				taud := 1e-6
				cfg.ScatteringTime = &taud
			}), WithScatteringCorrector(NewScatteringCorrector(testTablePath)))

			want, err := clean.Evaluate(ch)
			require.NoError(t, err)
			got, err := scattered.Evaluate(ch)
			require.NoError(t, err)

			assert.Greater(t, want, 0.0)
			assert.InEpsilon(t, want, got, 1e-6)
		})
	}
}

func TestEvaluate_ScatteredWithoutTable(t *testing.T) {
	p := testProfile(t, func(cfg *ProfileConfig) {
		taud := 50.0
		cfg.ScatteringTime = &taud
	})
	ch, err := LinearChannels(1.0, 2.0, 4)
	require.NoError(t, err)

	_, err = NewModel(p).Evaluate(ch)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEvaluate_ScatteringRaisesError(t *testing.T) {
	ch, err := LinearChannels(1.0, 2.0, 8)
	require.NoError(t, err)

	corrector := NewScatteringCorrector(testTablePath)
	clean := NewModel(testProfile(t, nil))
	scattered := NewModel(testProfile(t, func(cfg *ProfileConfig) {
		taud := 20.0
		cfg.ScatteringTime = &taud
	}), WithScatteringCorrector(corrector))

	want, err := clean.TemplateFittingErrors(ch)
	require.NoError(t, err)
	got, err := scattered.TemplateFittingErrors(ch)
	require.NoError(t, err)

	for i := range got {
		assert.Greater(t, got[i], want[i], "channel %d", i)
	}
}

func TestEvaluate_MaskedBandIsSingular(t *testing.T) {
	ch, err := LinearChannels(1.0, 2.0, 8)
	require.NoError(t, err)
	m := NewModel(testProfile(t, nil), WithMasks(Mask{Min: 0.5, Max: 2.5}))

	_, err = m.Evaluate(ch)
	assert.ErrorIs(t, err, ErrSingularCovariance)
}

func TestDMMisestimation(t *testing.T) {
	ch, err := LogChannels(0.5, 2.0, 20)
	require.NoError(t, err)
	m := NewModel(testProfile(t, nil))

	cov, err := m.TemplateFittingCovariance(ch)
	require.NoError(t, err)

	dm, err := m.DMMisestimation(ch, cov)
	require.NoError(t, err)
	assert.Greater(t, dm, 0.0)
	assert.False(t, math.IsInf(dm, 0) || math.IsNaN(dm))

	_, err = m.DMMisestimation(ch, mat.NewSymDense(3, nil))
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestDMnuError(t *testing.T) {
	assert.Zero(t, DMnuError(math.Inf(1), 2.0, 1.0))

	narrow := DMnuError(1e-3, 1.5, 1.0)
	wide := DMnuError(1e-3, 3.0, 1.0)
	assert.Greater(t, narrow, 0.0)
	assert.False(t, math.IsNaN(wide))
}
