package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/frequency-optimizer/internal/metrics"
	"github.com/roman-kulish/frequency-optimizer/internal/noise"
	"github.com/roman-kulish/frequency-optimizer/internal/storage"
	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

// WithWorkers sets the number of grid rows evaluated concurrently.
func WithWorkers(n int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.workers = n
	}
}

// WithCollector sets the metrics collector recording sweep progress.
func WithCollector(c *metrics.SweepCollector) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.collector = c
	}
}

// WithScatteringCorrector sets the amplitude-ratio corrector shared by every
// pulsar model.
func WithScatteringCorrector(c *noise.ScatteringCorrector) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.corrector = c
	}
}

// WithArchiveDirectory enables writing a msgpack archive per pulsar into dir.
func WithArchiveDirectory(dir string) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.archiveDir = dir
	}
}

// Result summarises the sweep of one pulsar.
type Result struct {
	Pulsar  string
	RunID   string
	Surface *sweep.Surface
	Minimum sweep.Point
	Found   bool
}

// Orchestrator sweeps pulsars one after another, streaming finished rows
// into the store and recording progress metrics.
type Orchestrator struct {
	logger    *slog.Logger
	store     storage.Store
	collector *metrics.SweepCollector
	corrector *noise.ScatteringCorrector

	workers    int
	archiveDir string
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(store storage.Store, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		logger: logger,
		store:  store,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run sweeps every pulsar in order. It stops at the first failure or when
// ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, pulsars []PulsarConfig) ([]Result, error) {
	if len(pulsars) == 0 {
		return nil, fmt.Errorf("no pulsars to sweep")
	}

	results := make([]Result, 0, len(pulsars))
	for _, pulsar := range pulsars {
		result, err := o.sweepPulsar(ctx, pulsar)
		if err != nil {
			return results, fmt.Errorf("pulsar '%s': %w", pulsar.Profile.Name, err)
		}
		results = append(results, *result)
	}
	return results, nil
}

func (o *Orchestrator) sweepPulsar(ctx context.Context, pulsar PulsarConfig) (*Result, error) {
	profile, err := noise.NewProfile(pulsar.Profile)
	if err != nil {
		return nil, err
	}
	grid, err := sweep.NewGrid(pulsar.Sweep)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}

	modelOptions := []func(*noise.Model){noise.WithMasks(pulsar.Sweep.NoiseMasks()...)}
	if o.corrector != nil {
		modelOptions = append(modelOptions, noise.WithScatteringCorrector(o.corrector))
	}
	model := noise.NewModel(profile, modelOptions...)

	runID, err := o.store.CreateRun(ctx, profile.Name, grid, pulsar)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	logger := o.logger.With(slog.String("pulsar", profile.Name), slog.String("run", runID))
	logger.Info("sweeping",
		slog.Int("centers", len(grid.Centers)),
		slog.Int("widths", len(grid.Widths)),
		slog.Int("nchan", grid.NChan()),
		slog.Bool("fractional", grid.Fractional),
	)

	// Rows finished before a cancellation are still worth keeping.
	storeCtx := context.WithoutCancel(ctx)
	observer := o.collector.ForPulsar(profile.Name)

	sweeper := sweep.NewSweeper(grid, model,
		sweep.WithLogger(logger),
		sweep.WithWorkers(o.workers),
		sweep.WithObserver(observer),
		sweep.WithVerbose(pulsar.Sweep.Verbose),
		sweep.WithRowHandler(func(row int, sigmas []*float64) error {
			if err := o.store.StoreRow(storeCtx, runID, row, sigmas); err != nil {
				return fmt.Errorf("storing row %d: %w", row, err)
			}
			return nil
		}),
	)

	start := time.Now()
	surface, err := sweeper.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err = o.store.FinishRun(storeCtx, runID, surface.Marker); err != nil {
		return nil, fmt.Errorf("finishing run: %w", err)
	}

	if o.archiveDir != "" {
		path := filepath.Join(o.archiveDir, profile.Name+storage.ArchiveExtension)
		if err = storage.SaveArchive(path, surface); err != nil {
			return nil, fmt.Errorf("archiving surface: %w", err)
		}
		logger.Info("surface archived", slog.String("path", path))
	}

	best, found := surface.Minimum()
	observer.SweepFinished(time.Since(start), best.Sigma, found)

	if found {
		logger.Info("minimum uncertainty",
			slog.String("center", humanize.SIWithDigits(best.Center*1e9, 3, "Hz")),
			slog.String("bandwidth", humanize.SIWithDigits(best.Bandwidth*1e9, 3, "Hz")),
			slog.Float64("sigma_us", best.Sigma),
		)
	} else {
		logger.Warn("no defined configuration in the grid")
	}
	if surface.Marker != nil {
		logger.Info("marker band", slog.Float64("sigma_us", *surface.Marker))
	}

	return &Result{
		Pulsar:  profile.Name,
		RunID:   runID,
		Surface: surface,
		Minimum: best,
		Found:   found,
	}, nil
}
