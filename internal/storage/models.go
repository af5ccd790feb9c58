package storage

import (
	"database/sql"
	"time"
)

// Run describes one stored sweep of one pulsar. Centers and Widths are the
// sweep axes; Widths holds fractional bandwidths when Fractional is set.
type Run struct {
	ID         string     `json:"id"`                // UUID of the run
	Pulsar     string     `json:"pulsar"`            // Pulsar name
	StartTime  time.Time  `json:"startTime"`         // When the sweep began
	EndTime    *time.Time `json:"endTime,omitempty"` // When the sweep finished, nil if it never did
	Fractional bool       `json:"fractional"`
	Log        bool       `json:"log"`
	Centers    []float64  `json:"centers"`                 // GHz
	Widths     []float64  `json:"widths"`                  // GHz or B/C
	Marker     *float64   `json:"marker,omitempty"`        // Uncertainty of the marker band in μs
	Config     *string    `json:"config,string,omitempty"` // Optional run configuration in JSON format
}

type runData struct {
	ID         string
	Pulsar     string
	StartTime  time.Time
	EndTime    sql.NullTime
	Fractional bool
	Log        bool
	Centers    []byte
	Widths     []byte
	Marker     sql.NullFloat64
	Config     sql.NullString
}

type cellData struct {
	Row   int
	Col   int
	Sigma sql.NullFloat64
}
