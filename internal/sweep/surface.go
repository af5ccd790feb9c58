package sweep

import (
	"fmt"
	"math"
)

// Surface is the timing uncertainty, in microseconds, over a sweep grid.
// Sigmas[i][j] belongs to Centers[i] and Widths[j]; a nil cell is undefined,
// either because the configuration is infeasible or because its evaluation
// failed.
type Surface struct {
	Centers    []float64
	Widths     []float64
	Fractional bool
	Log        bool
	Sigmas     [][]*float64

	// Marker is the uncertainty of the reference band, if one was evaluated.
	Marker *float64
}

// Point is a single defined cell of a Surface.
type Point struct {
	Row, Col  int
	Center    float64 // GHz
	Width     float64 // axis value, GHz or B/C
	Bandwidth float64 // GHz
	Sigma     float64 // μs
}

// NewSurface returns a surface over the grid's axes with every cell
// undefined.
func NewSurface(g *Grid) *Surface {
	s := Surface{
		Centers:    g.Centers,
		Widths:     g.Widths,
		Fractional: g.Fractional,
		Log:        g.Log,
		Sigmas:     make([][]*float64, len(g.Centers)),
	}
	for i := range s.Sigmas {
		s.Sigmas[i] = make([]*float64, len(g.Widths))
	}
	return &s
}

// FromValues builds a surface from a dense matrix in which NaN marks
// undefined cells.
func FromValues(centers, widths []float64, values [][]float64, fractional bool) (*Surface, error) {
	if len(values) != len(centers) {
		return nil, fmt.Errorf("surface has %d rows, want %d", len(values), len(centers))
	}

	s := Surface{
		Centers:    centers,
		Widths:     widths,
		Fractional: fractional,
		Sigmas:     make([][]*float64, len(centers)),
	}
	for i, row := range values {
		if len(row) != len(widths) {
			return nil, fmt.Errorf("surface row %d has %d cells, want %d", i, len(row), len(widths))
		}

		s.Sigmas[i] = make([]*float64, len(widths))
		for j, v := range row {
			if !math.IsNaN(v) {
				s.Sigmas[i][j] = &v
			}
		}
	}
	return &s, nil
}

// Values returns the surface as a dense matrix with NaN for undefined cells.
func (s *Surface) Values() [][]float64 {
	out := make([][]float64, len(s.Sigmas))
	for i, row := range s.Sigmas {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = math.NaN()
			} else {
				out[i][j] = *v
			}
		}
	}
	return out
}

// At returns cell (i, j) and whether it is defined.
func (s *Surface) At(i, j int) (float64, bool) {
	if v := s.Sigmas[i][j]; v != nil {
		return *v, true
	}
	return 0, false
}

// Bandwidth returns the absolute bandwidth in GHz of cell (i, j).
func (s *Surface) Bandwidth(i, j int) float64 {
	if s.Fractional {
		return s.Centers[i] * s.Widths[j]
	}
	return s.Widths[j]
}

// Defined returns the number of defined cells.
func (s *Surface) Defined() int {
	var n int
	for _, row := range s.Sigmas {
		for _, v := range row {
			if v != nil {
				n++
			}
		}
	}
	return n
}

// Minimum returns the defined cell with the smallest uncertainty. Ties go
// to the lowest center frequency, then the narrowest width.
func (s *Surface) Minimum() (Point, bool) {
	var best Point
	var found bool
	for i, row := range s.Sigmas {
		for j, v := range row {
			if v == nil || (found && *v >= best.Sigma) {
				continue
			}
			best = Point{
				Row:       i,
				Col:       j,
				Center:    s.Centers[i],
				Width:     s.Widths[j],
				Bandwidth: s.Bandwidth(i, j),
				Sigma:     *v,
			}
			found = true
		}
	}
	return best, found
}

// Bounds returns the smallest and largest defined values.
func (s *Surface) Bounds() (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range s.Sigmas {
		for _, v := range row {
			if v == nil {
				continue
			}
			lo = math.Min(lo, *v)
			hi = math.Max(hi, *v)
		}
	}
	return lo, hi, lo <= hi
}
