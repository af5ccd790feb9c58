package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
)

// Cell outcomes reported to an Observer.
const (
	OutcomeDefined    = "defined"
	OutcomeInfeasible = "infeasible"
	OutcomeFailed     = "failed"
)

// Evaluator computes the timing uncertainty of one channelisation.
// *noise.Model implements it.
type Evaluator interface {
	Evaluate(ch noise.Channels) (float64, error)
}

// Observer receives progress events from a running sweep. Implementations
// must be safe for concurrent use.
type Observer interface {
	CellEvaluated(outcome string, elapsed time.Duration)
	RowCompleted()
}

// RowHandler is called once per completed row, from a single goroutine, in
// completion order.
type RowHandler func(row int, sigmas []*float64) error

// Row is the result of evaluating every width at one center frequency.
type Row struct {
	Index  int
	Sigmas []*float64
	Failed int
}

// WithLogger sets the logger for the sweeper
func WithLogger(logger *slog.Logger) func(*Sweeper) {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithWorkers sets the number of rows evaluated concurrently. Values below
// one fall back to the number of CPUs.
func WithWorkers(n int) func(*Sweeper) {
	return func(s *Sweeper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithObserver sets the progress observer, typically a metrics collector.
func WithObserver(o Observer) func(*Sweeper) {
	return func(s *Sweeper) {
		s.observer = o
	}
}

// WithRowHandler sets a callback receiving each row as it completes.
func WithRowHandler(h RowHandler) func(*Sweeper) {
	return func(s *Sweeper) {
		s.rowHandler = h
	}
}

// WithVerbose raises per-row progress messages from debug to info.
func WithVerbose(verbose bool) func(*Sweeper) {
	return func(s *Sweeper) {
		if verbose {
			s.progressLevel = slog.LevelInfo
		} else {
			s.progressLevel = slog.LevelDebug
		}
	}
}

// Sweeper evaluates a model over every cell of a grid using a bounded pool
// of workers, one row at a time per worker.
type Sweeper struct {
	grid  *Grid
	model Evaluator

	workers       int
	logger        *slog.Logger
	observer      Observer
	rowHandler    RowHandler
	progressLevel slog.Level
}

// NewSweeper creates a new Sweeper with a discard logger
func NewSweeper(grid *Grid, model Evaluator, options ...func(*Sweeper)) *Sweeper {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := Sweeper{
		grid:          grid,
		model:         model,
		workers:       runtime.NumCPU(),
		logger:        logger,
		progressLevel: slog.LevelDebug,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run evaluates the whole grid and, if the grid has a marker band, the
// marker. Cancelling ctx stops dispatching rows: rows already finished stay
// in the returned surface, the others stay undefined, and ctx.Err() is
// returned alongside the partial surface. A failing row handler does not stop
// the sweep, but its first error is returned once every row is collected.
func (s *Sweeper) Run(ctx context.Context) (*Surface, error) {
	surface := NewSurface(s.grid)

	rows := make(chan int)
	results := make(chan Row, s.workers)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go s.worker(rows, results, &wg)
	}

	var (
		collected  sync.WaitGroup
		handlerErr error
	)
	collected.Add(1)
	go func() {
		defer collected.Done()
		handlerErr = s.handleRows(surface, results)
	}()

	start := time.Now()

dispatch:
	for i := range s.grid.Centers {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			break dispatch
		case rows <- i:
		}
	}
	close(rows)

	wg.Wait()
	close(results) // all workers are done, let the collector drain
	collected.Wait()

	if err := ctx.Err(); err != nil {
		return surface, fmt.Errorf("sweep interrupted: %w", err)
	}
	if handlerErr != nil {
		return surface, fmt.Errorf("handling rows: %w", handlerErr)
	}

	if s.grid.Marker != nil {
		if v, err := s.EvaluateBand(*s.grid.Marker); err != nil {
			s.logger.Warn("marker evaluation failed", slog.String("error", err.Error()))
		} else {
			surface.Marker = &v
		}
	}

	s.logger.Info("sweep finished",
		slog.Int("cells", len(s.grid.Centers)*len(s.grid.Widths)),
		slog.Int("defined", surface.Defined()),
		slog.Duration("elapsed", time.Since(start)),
	)

	return surface, nil
}

// EvaluateBand evaluates a single band channelised like the grid.
func (s *Sweeper) EvaluateBand(band Band) (float64, error) {
	ch, err := s.grid.BandChannels(band)
	if err != nil {
		return 0, fmt.Errorf("channelising band: %w", err)
	}
	return s.model.Evaluate(ch)
}

func (s *Sweeper) worker(rows <-chan int, results chan<- Row, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range rows {
		results <- s.evaluateRow(i)
	}
}

func (s *Sweeper) evaluateRow(i int) Row {
	c := s.grid.Centers[i]
	s.logger.Log(context.Background(), s.progressLevel, "computing center frequency",
		slog.String("center", humanize.SIWithDigits(c*1e9, 3, "Hz")),
		slog.Int("row", i+1),
		slog.Int("rows", len(s.grid.Centers)),
	)

	row := Row{
		Index:  i,
		Sigmas: make([]*float64, len(s.grid.Widths)),
	}
	for j := range s.grid.Widths {
		start := time.Now()
		outcome := s.evaluateCell(&row, i, j)
		if s.observer != nil {
			s.observer.CellEvaluated(outcome, time.Since(start))
		}
	}
	if s.observer != nil {
		s.observer.RowCompleted()
	}
	return row
}

func (s *Sweeper) evaluateCell(row *Row, i, j int) string {
	c, b := s.grid.Centers[i], s.grid.Bandwidth(i, j)

	ch, ok, err := s.grid.Channels(c, b)
	if err != nil {
		row.Failed++
		s.logger.Debug("channelisation failed", slog.Float64("center", c), slog.Float64("bandwidth", b), slog.String("error", err.Error()))
		return OutcomeFailed
	}
	if !ok {
		return OutcomeInfeasible
	}

	sigma, err := s.model.Evaluate(ch)
	if err != nil {
		row.Failed++
		s.logger.Debug("cell evaluation failed", slog.Float64("center", c), slog.Float64("bandwidth", b), slog.String("error", err.Error()))
		return OutcomeFailed
	}

	row.Sigmas[j] = &sigma
	return OutcomeDefined
}

// handleRows fills surface from results until the channel is closed. Once the
// row handler fails it is not called again and its first error is returned.
func (s *Sweeper) handleRows(surface *Surface, results <-chan Row) error {
	var handlerErr error
	for row := range results {
		surface.Sigmas[row.Index] = row.Sigmas

		if row.Failed > 0 {
			s.logger.Warn("cells failed to evaluate",
				slog.Int("row", row.Index),
				slog.Int("failed", row.Failed),
			)
		}

		if s.rowHandler != nil && handlerErr == nil {
			if err := s.rowHandler(row.Index, row.Sigmas); err != nil {
				s.logger.Error("row handler failed", slog.Int("row", row.Index), slog.String("error", err.Error()))
				handlerErr = err
			}
		}
	}
	return handlerErr
}
