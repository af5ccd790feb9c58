package app

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

func testSurface(t *testing.T) *sweep.Surface {
	t.Helper()

	s, err := sweep.FromValues(
		[]float64{1, 2, 3},
		[]float64{0.5, 1},
		[][]float64{
			{2.0, math.NaN()},
			{0.5, 1.0},
			{4.0, 8.0},
		},
		false,
	)
	require.NoError(t, err)
	return s
}

func TestSurfaceRenderer_Render(t *testing.T) {
	s := testSurface(t)
	r := NewSurfaceRenderer(RenderConfig{CellSize: 20, ColorTheme: GrayscaleTheme})

	img, err := r.Render(s)
	require.NoError(t, err)

	b := r.config.BorderConfig
	assert.Equal(t, 3*20+b.Left+b.Right, img.Bounds().Dx())
	assert.Equal(t, 2*20+b.Top+b.Bottom, img.Bounds().Dy())

	p := &plot{cell: 20}
	p.area.Min.X, p.area.Min.Y = b.Left, b.Top
	p.area.Max.X, p.area.Max.Y = b.Left+3*20, b.Top+2*20

	// Sample a cell corner, away from the markers drawn at cell centers.
	corner := func(row, col int) color.Color {
		rect := p.cellRect(row, col)
		return img.At(rect.Min.X+1, rect.Min.Y+1)
	}

	assert.Equal(t, UndefinedColor, corner(0, 1))

	cm := NewColorMapper(GrayscaleTheme, Bounds{Min: math.Log10(0.5), Max: math.Log10(8)})
	lowest, highest := math.Log10(0.5), math.Log10(8)
	assert.Equal(t, cm.GetColor(&lowest), corner(1, 0))
	assert.Equal(t, cm.GetColor(&highest), corner(2, 1))

	best := p.pixel(1, 0)
	assert.Equal(t, minimumColor, img.At(best.X, best.Y), "minimum is marked")
}

func TestSurfaceRenderer_Markers(t *testing.T) {
	s := testSurface(t)
	r := NewSurfaceRenderer(RenderConfig{
		CellSize: 20,
		Points:   []sweep.Point{{Center: 3, Bandwidth: 1}, {Center: 9, Bandwidth: 1}},
		Marker:   &sweep.Band{Low: 1.75, High: 2.25},
	})

	img, err := r.Render(s)
	require.NoError(t, err)

	b := r.config.BorderConfig
	p := &plot{cell: 20}
	p.area.Min.X, p.area.Min.Y = b.Left, b.Top
	p.area.Max.X, p.area.Max.Y = b.Left+3*20, b.Top+2*20

	point := p.pixel(2, 1)
	assert.Equal(t, pointColor, img.At(point.X, point.Y))

	marker := p.pixel(1, 0)
	assert.Equal(t, markerColor, img.At(marker.X-markerSize, marker.Y))
}

func TestSurfaceRenderer_FractionalPoint(t *testing.T) {
	s, err := sweep.FromValues([]float64{1, 2}, []float64{0.25, 0.5}, [][]float64{{1, 2}, {3, 4}}, true)
	require.NoError(t, err)

	centers, err := newAxis(s.Centers, false)
	require.NoError(t, err)
	widths, err := newAxis(s.Widths, false)
	require.NoError(t, err)

	p := &plot{cell: 10, centers: centers, widths: widths}
	p.area.Max.Y = 20

	pt, ok := p.locate(s, 2, 1)
	require.True(t, ok, "1 GHz at 2 GHz is a fraction of 0.5")
	assert.Equal(t, p.pixel(1, 1), pt)

	_, ok = p.locate(s, 2, 2)
	assert.False(t, ok)
}

func TestSurfaceRenderer_AllUndefined(t *testing.T) {
	s, err := sweep.FromValues([]float64{1}, []float64{0.5}, [][]float64{{math.NaN()}}, false)
	require.NoError(t, err)

	img, err := NewSurfaceRenderer(RenderConfig{}).Render(s)
	require.NoError(t, err)
	assert.False(t, img.Bounds().Empty())
}

func TestLabelStep(t *testing.T) {
	assert.Equal(t, 7, labelStep(12))
	assert.Equal(t, 1, labelStep(100))
}
