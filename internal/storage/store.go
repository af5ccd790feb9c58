package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

// Store provides an interface for persisting sweep runs and their
// uncertainty surfaces. Rows may be stored concurrently with reads of
// finished runs.
type Store interface {
	// CreateRun registers a new sweep of a pulsar over the grid's axes and
	// returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - pulsar: Name of the pulsar being swept
	//   - grid: Sweep axes
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - runID: UUID of the created run
	//   - error: If run creation fails or context is cancelled
	CreateRun(ctx context.Context, pulsar string, grid *sweep.Grid, config any) (runID string, err error)

	// StoreRow saves every cell of one center-frequency row in a single
	// transaction. Undefined cells are stored as NULL.
	StoreRow(ctx context.Context, runID string, row int, sigmas []*float64) error

	// FinishRun stamps the run's end time and stores the marker value, if any.
	FinishRun(ctx context.Context, runID string, marker *float64) error

	// Run retrieves a specific run by its ID.
	Run(ctx context.Context, id string) (*Run, error)

	// Runs returns all runs ordered by start time.
	Runs(ctx context.Context) ([]*Run, error)

	// ReadSurface rebuilds the uncertainty surface of a run. Cells that were
	// never stored are undefined.
	ReadSurface(ctx context.Context, runID string) (*sweep.Surface, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
