package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

// ArchiveExtension is the file extension of surface archives.
const ArchiveExtension = ".msgpack"

// archive is the on-disk layout of a surface. Exactly one of Bandwidths and
// Fractions is set; undefined cells are NaN.
type archive struct {
	Centers    []float64   `msgpack:"Cs"`
	Bandwidths []float64   `msgpack:"Bs,omitempty"`
	Fractions  []float64   `msgpack:"Fs,omitempty"`
	Sigmas     [][]float64 `msgpack:"sigmas"`
	Log        bool        `msgpack:"log,omitempty"`
	Marker     *float64    `msgpack:"marker,omitempty"`
}

// WriteArchive encodes the surface to w.
func WriteArchive(w io.Writer, s *sweep.Surface) error {
	a := archive{
		Centers: s.Centers,
		Sigmas:  s.Values(),
		Log:     s.Log,
		Marker:  s.Marker,
	}
	if s.Fractional {
		a.Fractions = s.Widths
	} else {
		a.Bandwidths = s.Widths
	}

	if err := msgpack.NewEncoder(w).Encode(&a); err != nil {
		return fmt.Errorf("encoding surface: %w", err)
	}
	return nil
}

// ReadArchive decodes a surface written by WriteArchive.
func ReadArchive(r io.Reader) (*sweep.Surface, error) {
	var a archive
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding surface: %w", err)
	}

	var widths []float64
	var fractional bool
	switch {
	case a.Bandwidths != nil && a.Fractions != nil:
		return nil, errors.New("archive holds both bandwidths and fractional bandwidths")
	case a.Fractions != nil:
		widths, fractional = a.Fractions, true
	default:
		widths = a.Bandwidths
	}

	s, err := sweep.FromValues(a.Centers, widths, a.Sigmas, fractional)
	if err != nil {
		return nil, fmt.Errorf("decoding surface: %w", err)
	}
	s.Log = a.Log
	s.Marker = a.Marker
	return s, nil
}

// SaveArchive writes the surface to the file at path, replacing it.
func SaveArchive(path string, s *sweep.Surface) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer closeWithError(f, &err)

	w := bufio.NewWriter(f)
	if err = WriteArchive(w, s); err != nil {
		return err
	}
	return w.Flush()
}

// LoadArchive reads a surface from the file at path.
func LoadArchive(path string) (*sweep.Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	return ReadArchive(bufio.NewReader(f))
}
