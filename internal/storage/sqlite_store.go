package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

var _ Store = (*SqliteStore)(nil)

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// The schema is created on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // one writer, rows arrive from a single goroutine

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, pulsar string, grid *sweep.Grid, config any) (runID string, err error) {
	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c

		case []byte:
			configData.Valid = true
			configData.String = string(c)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	centers, err := encodeAxis(grid.Centers)
	if err != nil {
		return
	}
	widths, err := encodeAxis(grid.Widths)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	id := uuid.NewString()
	if _, err = stmt.ExecContext(ctx, id, pulsar, time.Now().UTC(), grid.Fractional, grid.Log, centers, widths, configData); err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	return id, nil
}

func (s *SqliteStore) StoreRow(ctx context.Context, runID string, row int, sigmas []*float64) (err error) {
	if len(sigmas) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	values := make([]any, 0, len(sigmas)*4)
	valuesPlaceholder := "(?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertCellSQL)

	for col, sigma := range sigmas {
		values = append(values, runID, row, col, toNullFloat64(sigma))

		if col > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	// Single batch insert
	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting cells: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) FinishRun(ctx context.Context, runID string, marker *float64) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, finishRunSQL, time.Now().UTC(), toNullFloat64(marker), runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func (s *SqliteStore) Run(ctx context.Context, id string) (run *Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	data, err := scanRun(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("run %s: %w", id, ErrRunNotFound)
			return
		}
		err = fmt.Errorf("scanning run: %w", err)
		return
	}

	return toRun(data)
}

func (s *SqliteStore) Runs(ctx context.Context) (runs []*Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data *runData
		if data, err = scanRun(rows); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}

		var run *Run
		if run, err = toRun(data); err != nil {
			return
		}
		runs = append(runs, run)
	}

	err = rows.Err()
	return
}

func (s *SqliteStore) ReadSurface(ctx context.Context, runID string) (surface *sweep.Surface, err error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return
	}

	surface = &sweep.Surface{
		Centers:    run.Centers,
		Widths:     run.Widths,
		Fractional: run.Fractional,
		Log:        run.Log,
		Sigmas:     make([][]*float64, len(run.Centers)),
		Marker:     run.Marker,
	}
	for i := range surface.Sigmas {
		surface.Sigmas[i] = make([]*float64, len(run.Widths))
	}

	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectCellsSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying cells: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var cell cellData
		if err = rows.Scan(&cell.Row, &cell.Col, &cell.Sigma); err != nil {
			err = fmt.Errorf("scanning cell: %w", err)
			return
		}
		if cell.Row < 0 || cell.Row >= len(run.Centers) || cell.Col < 0 || cell.Col >= len(run.Widths) {
			err = fmt.Errorf("cell (%d, %d) is outside the %dx%d grid", cell.Row, cell.Col, len(run.Centers), len(run.Widths))
			return
		}
		surface.Sigmas[cell.Row][cell.Col] = fromNullFloat64(cell.Sigma)
	}

	err = rows.Err()
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

func scanRun(row interface{ Scan(dest ...any) error }) (*runData, error) {
	var data runData
	err := row.Scan(
		&data.ID,
		&data.Pulsar,
		&data.StartTime,
		&data.EndTime,
		&data.Fractional,
		&data.Log,
		&data.Centers,
		&data.Widths,
		&data.Marker,
		&data.Config,
	)
	if err != nil {
		return nil, err
	}
	return &data, nil
}
