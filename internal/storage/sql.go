package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (id,
                  pulsar,
                  start_time,
                  fractional,
                  log_axes,
                  centers,
                  widths,
                  config)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	finishRunSQL = `
UPDATE runs
SET end_time = ?,
    marker   = ?
WHERE id = ?`

	selectRunSQL = `
SELECT
    id,
    pulsar,
    start_time,
    end_time,
    fractional,
    log_axes,
    centers,
    widths,
    marker,
    config
FROM runs
WHERE
    id = ?`

	selectRunsSQL = `
SELECT
    id,
    pulsar,
    start_time,
    end_time,
    fractional,
    log_axes,
    centers,
    widths,
    marker,
    config
FROM runs
ORDER BY start_time`

	insertCellSQL = `
INSERT OR REPLACE INTO cells (run_id,
                              row_index,
                              col_index,
                              sigma)
VALUES `

	selectCellsSQL = `
SELECT
    row_index,
    col_index,
    sigma
FROM cells
WHERE
    run_id = ?`
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)
