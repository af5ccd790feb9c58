package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
)

// lowerEdge reports the lowest channel frequency as the uncertainty, which
// makes every cell's value predictable.
type lowerEdge struct {
	failBelow float64
}

func (e lowerEdge) Evaluate(ch noise.Channels) (float64, error) {
	if ch.Min() < e.failBelow {
		return 0, noise.ErrSingularCovariance
	}
	return ch.Min(), nil
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	rows     int
}

func (o *countingObserver) CellEvaluated(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) RowCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.rows++
}

func linearGrid(t *testing.T) *Grid {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Log = false
	cfg.MinFrequency, cfg.MaxFrequency, cfg.Step = 0.25, 2.0, 0.25
	cfg.NChan = 4

	g, err := NewGrid(cfg)
	require.NoError(t, err)
	return g
}

func TestSweeper_Run(t *testing.T) {
	g := linearGrid(t)
	observer := &countingObserver{}

	var handled []int
	s := NewSweeper(g, lowerEdge{}, WithWorkers(3), WithObserver(observer), WithRowHandler(func(row int, _ []*float64) error {
		handled = append(handled, row)
		return nil
	}))

	surface, err := s.Run(context.Background())
	require.NoError(t, err)

	var infeasible int
	for i, c := range g.Centers {
		for j, b := range g.Widths {
			v, ok := surface.At(i, j)
			if !Feasible(c, b) {
				assert.False(t, ok, "c=%g b=%g must be undefined", c, b)
				infeasible++
				continue
			}
			require.True(t, ok, "c=%g b=%g must be defined", c, b)
			assert.InDelta(t, c-b/2, v, 1e-12)
		}
	}

	assert.Greater(t, infeasible, 0)
	require.Len(t, handled, len(g.Centers))
	for i := range g.Centers {
		assert.Contains(t, handled, i)
	}
	assert.Equal(t, len(g.Centers), observer.rows)
	assert.Equal(t, infeasible, observer.outcomes[OutcomeInfeasible])
	assert.Equal(t, surface.Defined(), observer.outcomes[OutcomeDefined])
	assert.Zero(t, observer.outcomes[OutcomeFailed])
	assert.Nil(t, surface.Marker)
}

func TestSweeper_FailedCellsAreUndefined(t *testing.T) {
	g := linearGrid(t)
	observer := &countingObserver{}

	surface, err := NewSweeper(g, lowerEdge{failBelow: 0.5}, WithObserver(observer)).Run(context.Background())
	require.NoError(t, err)

	for i, c := range g.Centers {
		for j, b := range g.Widths {
			if _, ok := surface.At(i, j); ok {
				assert.GreaterOrEqual(t, c-b/2, 0.5)
			}
		}
	}
	assert.Greater(t, observer.outcomes[OutcomeFailed], 0)
}

func TestSweeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surface, err := NewSweeper(linearGrid(t), lowerEdge{}).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, surface)
	assert.Zero(t, surface.Defined())
}

func TestSweeper_RowHandlerError(t *testing.T) {
	g := linearGrid(t)
	errDiskFull := errors.New("disk full")

	var calls int
	s := NewSweeper(g, lowerEdge{}, WithWorkers(2), WithRowHandler(func(int, []*float64) error {
		calls++
		return errDiskFull
	}))

	surface, err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, calls)

	// the collector keeps draining, so the surface is still complete
	full, err := NewSweeper(g, lowerEdge{}).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, surface)
	assert.Equal(t, full.Defined(), surface.Defined())
	assert.Equal(t, full.Sigmas, surface.Sigmas)
}

func TestSweeper_Marker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFrequency, cfg.MaxFrequency, cfg.NSteps = 0.5, 5, 3
	cfg.Marker = &Band{Low: 1.15, High: 1.88}

	g, err := NewGrid(cfg)
	require.NoError(t, err)

	surface, err := NewSweeper(g, lowerEdge{}).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, surface.Marker)
	assert.InDelta(t, 1.15, *surface.Marker, 1e-12)
}

func TestSweeper_NoiseModel(t *testing.T) {
	pc := noise.DefaultProfileConfig()
	pc.Name = "J1909-3744"
	taud := 0.0
	pc.ScatteringTime = &taud
	pc.DecorrelationTime = 1386.1
	pc.EffectiveArea = 5520
	pc.ReferenceFlux = 2.64
	pc.Weff = noise.Scalar(250)
	pc.W50 = noise.Scalar(40)
	pc.Jitter = noise.Scalar(0.014)

	profile, err := noise.NewProfile(pc)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MinFrequency, cfg.MaxFrequency, cfg.NSteps, cfg.NChan = 0.3, 3, 4, 16

	g, err := NewGrid(cfg)
	require.NoError(t, err)

	surface, err := NewSweeper(g, noise.NewModel(profile), WithWorkers(2)).Run(context.Background())
	require.NoError(t, err)

	best, ok := surface.Minimum()
	require.True(t, ok)
	assert.Greater(t, best.Sigma, 0.0)
	assert.True(t, Feasible(best.Center, best.Bandwidth))

	for i := range surface.Sigmas {
		for j := range surface.Sigmas[i] {
			if v, ok := surface.At(i, j); ok {
				assert.GreaterOrEqual(t, v, best.Sigma)
			}
		}
	}
}
