package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toNullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// encodeAxis packs an axis into a BLOB column.
func encodeAxis(axis []float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(axis); err != nil {
		return nil, fmt.Errorf("encoding axis: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeAxis(p []byte) ([]float64, error) {
	var axis []float64
	if err := msgpack.Unmarshal(p, &axis); err != nil {
		return nil, fmt.Errorf("decoding axis: %w", err)
	}
	return axis, nil
}

func toRun(data *runData) (*Run, error) {
	centers, err := decodeAxis(data.Centers)
	if err != nil {
		return nil, err
	}
	widths, err := decodeAxis(data.Widths)
	if err != nil {
		return nil, err
	}

	run := Run{
		ID:         data.ID,
		Pulsar:     data.Pulsar,
		StartTime:  data.StartTime,
		Fractional: data.Fractional,
		Log:        data.Log,
		Centers:    centers,
		Widths:     widths,
		Marker:     fromNullFloat64(data.Marker),
	}
	if data.EndTime.Valid {
		run.EndTime = &data.EndTime.Time
	}
	if data.Config.Valid {
		run.Config = &data.Config.String
	}
	return &run, nil
}
