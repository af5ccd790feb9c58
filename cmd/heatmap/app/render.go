package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 80
	markerSize     = 5
	colorBarWidth  = 16

	defaultCellSize = 12

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 50
	defaultRightBorder  = 110
)

var (
	minimumColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	pointColor   = color.RGBA{A: 0xff}
	markerColor  = color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff}
)

// BorderConfig defines the sizes of white space around the surface.
type BorderConfig struct {
	Top    int // info line
	Left   int // width scale
	Bottom int // center frequency scale
	Right  int // colour bar
}

// RenderConfig holds the visualization options.
type RenderConfig struct {
	CellSize     int // pixels per grid cell side
	FontSize     float64
	ColorTheme   ColorTheme
	ColorMapSize int

	// Points are extra (center, bandwidth) configurations to mark, in GHz.
	Points []sweep.Point
	// Marker is the band whose uncertainty the surface carries, if any.
	Marker *sweep.Band

	BorderConfig BorderConfig
}

// SurfaceRenderer draws a surface as a colour-coded log10 σ heatmap with
// center frequency along x and bandwidth along y.
type SurfaceRenderer struct {
	config RenderConfig
}

// NewSurfaceRenderer creates a renderer, filling zero values with defaults.
func NewSurfaceRenderer(config RenderConfig) *SurfaceRenderer {
	if config.CellSize <= 0 {
		config.CellSize = defaultCellSize
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = EnhancedTheme
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &SurfaceRenderer{config: config}
}

// plot describes where the surface lands inside the image.
type plot struct {
	area     image.Rectangle
	cell     int
	centers  *axis
	widths   *axis
	log10Min float64
	log10Max float64
}

// cellRect returns the pixel rectangle of cell (row, col). Rows run along x,
// columns upward along y.
func (p *plot) cellRect(row, col int) image.Rectangle {
	x := p.area.Min.X + row*p.cell
	y := p.area.Max.Y - (col+1)*p.cell
	return image.Rect(x, y, x+p.cell, y+p.cell)
}

// pixel maps fractional cell indices to the pixel at the cell center.
func (p *plot) pixel(row, col float64) image.Point {
	return image.Pt(
		p.area.Min.X+int(math.Round((row+0.5)*float64(p.cell))),
		p.area.Max.Y-int(math.Round((col+0.5)*float64(p.cell))),
	)
}

// locate maps a configuration to its pixel, converting the bandwidth to a
// fraction of the center on fractional surfaces.
func (p *plot) locate(s *sweep.Surface, center, bandwidth float64) (image.Point, bool) {
	width := bandwidth
	if s.Fractional {
		width = bandwidth / center
	}

	row, ok := p.centers.position(center)
	if !ok {
		return image.Point{}, false
	}
	col, ok := p.widths.position(width)
	if !ok {
		return image.Point{}, false
	}
	return p.pixel(row, col), true
}

// Render creates an image of the surface with annotations.
func (r *SurfaceRenderer) Render(s *sweep.Surface) (*image.RGBA, error) {
	if len(s.Centers) == 0 || len(s.Widths) == 0 {
		return nil, errors.New("surface has no cells")
	}

	centers, err := newAxis(s.Centers, s.Log)
	if err != nil {
		return nil, fmt.Errorf("center axis: %w", err)
	}
	widths, err := newAxis(s.Widths, s.Log)
	if err != nil {
		return nil, fmt.Errorf("width axis: %w", err)
	}

	b := r.config.BorderConfig
	cell := r.config.CellSize
	width, height := len(s.Centers)*cell, len(s.Widths)*cell

	img := image.NewRGBA(image.Rect(0, 0, width+b.Left+b.Right, height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	p := &plot{
		area:    image.Rect(b.Left, b.Top, b.Left+width, b.Top+height),
		cell:    cell,
		centers: centers,
		widths:  widths,
	}

	lo, hi, ok := s.Bounds()
	if ok {
		p.log10Min, p.log10Max = math.Log10(lo), math.Log10(hi)
	}
	colorMap := NewColorMapperWithSize(r.config.ColorTheme, Bounds{Min: p.log10Min, Max: p.log10Max}, r.config.ColorMapSize)

	r.renderCells(img, p, s, colorMap)
	r.renderMarkers(img, p, s)

	ann, err := newAnnotator(r.config.FontSize, b)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, p, s, colorMap, ok); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func (r *SurfaceRenderer) renderCells(img *image.RGBA, p *plot, s *sweep.Surface, colorMap *ColorMapper) {
	for i := range s.Centers {
		for j := range s.Widths {
			var v *float64
			if sigma, ok := s.At(i, j); ok && sigma > 0 {
				lv := math.Log10(sigma)
				v = &lv
			}
			draw.Draw(img, p.cellRect(i, j), image.NewUniform(colorMap.GetColor(v)), image.Point{}, draw.Src)
		}
	}
}

func (r *SurfaceRenderer) renderMarkers(img *image.RGBA, p *plot, s *sweep.Surface) {
	if best, ok := s.Minimum(); ok {
		drawCross(img, p.pixel(float64(best.Row), float64(best.Col)), minimumColor)
	}

	for _, point := range r.config.Points {
		if pt, ok := p.locate(s, point.Center, point.Bandwidth); ok {
			drawCross(img, pt, pointColor)
		}
	}

	if m := r.config.Marker; m != nil {
		if pt, ok := p.locate(s, (m.Low+m.High)/2, m.High-m.Low); ok {
			drawSquare(img, pt, markerColor)
		}
	}
}

func drawCross(img *image.RGBA, at image.Point, c color.Color) {
	for d := -markerSize; d <= markerSize; d++ {
		img.Set(at.X+d, at.Y+d, c)
		img.Set(at.X+d, at.Y-d, c)
	}
}

func drawSquare(img *image.RGBA, at image.Point, c color.Color) {
	for d := -markerSize; d <= markerSize; d++ {
		img.Set(at.X+d, at.Y-markerSize, c)
		img.Set(at.X+d, at.Y+markerSize, c)
		img.Set(at.X-markerSize, at.Y+d, c)
		img.Set(at.X+markerSize, at.Y+d, c)
	}
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	borders  BorderConfig
}

func newAnnotator(size float64, borders BorderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		borders: borders,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, p *plot, s *sweep.Surface, colorMap *ColorMapper, defined bool) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"drawing center scale", func() error { return a.drawCenterScale(img, p, s) }},
		{"drawing width scale", func() error { return a.drawWidthScale(img, p, s) }},
		{"drawing colour bar", func() error { return a.drawColorBar(img, p, colorMap, defined) }},
		{"drawing info", func() error { return a.drawInfo(img, s) }},
	}
	for _, op := range ops {
		if err := op.fn(); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawString(label string, x, y int) error {
	_, err := a.context.DrawString(label, freetype.Pt(x, y))
	return err
}

func (a *annotator) drawCenterScale(img *image.RGBA, p *plot, s *sweep.Surface) error {
	step := labelStep(p.cell)
	textY := p.area.Max.Y + tickMarkLength + a.fontHeight()

	for i := 0; i < len(s.Centers); i += step {
		x := p.pixel(float64(i), 0).X
		for y := p.area.Max.Y; y < p.area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(s.Centers[i])
		w := font.MeasureString(a.fontFace, label).Round()
		if err := a.drawString(label, x-w/2, textY); err != nil {
			return err
		}
	}

	title := "center frequency"
	w := font.MeasureString(a.fontFace, title).Round()
	return a.drawString(title, p.area.Min.X+(p.area.Dx()-w)/2, textY+a.fontHeight()+4)
}

func (a *annotator) drawWidthScale(img *image.RGBA, p *plot, s *sweep.Surface) error {
	step := labelStep(p.cell)
	metrics := a.fontFace.Metrics()

	for j := 0; j < len(s.Widths); j += step {
		y := p.pixel(0, float64(j)).Y
		for x := p.area.Min.X - tickMarkLength; x < p.area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		var label string
		if s.Fractional {
			label = fmt.Sprintf("%.2f", s.Widths[j])
		} else {
			label = formatFrequency(s.Widths[j])
		}
		w := font.MeasureString(a.fontFace, label).Round()
		textY := y + a.fontHeight()/2 - metrics.Descent.Round()
		if err := a.drawString(label, p.area.Min.X-tickMarkLength-2-w, textY); err != nil {
			return err
		}
	}
	return nil
}

func (a *annotator) drawColorBar(img *image.RGBA, p *plot, colorMap *ColorMapper, defined bool) error {
	x0 := p.area.Max.X + 10
	height := p.area.Dy()
	for y := 0; y < height; y++ {
		c := colorMap.Gradient(1 - float64(y)/float64(max(height-1, 1)))
		for x := x0; x < x0+colorBarWidth; x++ {
			img.Set(x, p.area.Min.Y+y, c)
		}
	}
	if !defined {
		return nil
	}

	labelX := x0 + colorBarWidth + 4
	if err := a.drawString(formatSigma(math.Pow(10, p.log10Max)), labelX, p.area.Min.Y+a.fontHeight()); err != nil {
		return err
	}
	return a.drawString(formatSigma(math.Pow(10, p.log10Min)), labelX, p.area.Max.Y)
}

func (a *annotator) drawInfo(img *image.RGBA, s *sweep.Surface) error {
	var sb strings.Builder

	if best, ok := s.Minimum(); ok {
		sb.WriteString(fmt.Sprintf("min σ %s at %s, B %s",
			formatSigma(best.Sigma), formatFrequency(best.Center), formatFrequency(best.Bandwidth)))
	} else {
		sb.WriteString("no defined configuration")
	}
	if s.Marker != nil {
		sb.WriteString("; marker σ ")
		sb.WriteString(formatSigma(*s.Marker))
	}

	textY := (a.borders.Top+a.fontHeight())/2 - a.fontFace.Metrics().Descent.Round()
	return a.drawString(sb.String(), a.borders.Left, textY)
}

// labelStep returns how many cells apart axis labels are drawn.
func labelStep(cell int) int {
	return max(1, (pixelsPerLabel+cell-1)/cell)
}

// formatFrequency formats a frequency given in GHz.
func formatFrequency(ghz float64) string {
	return humanize.SIWithDigits(ghz*1e9, 2, "Hz")
}

func formatSigma(us float64) string {
	return humanize.SIWithDigits(us*1e-6, 2, "s")
}
