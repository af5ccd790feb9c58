package app

import (
	"fmt"
	"image/color"
	"math"
)

// ColorTheme is a named gradient for mapping uncertainties to colours.
// Low values, the better configurations, sit at the cold end.
type ColorTheme string

const (
	EnhancedTheme  ColorTheme = "enhanced"  // black, blue, cyan, yellow, red
	ClassicTheme   ColorTheme = "classic"   // blue to red
	GrayscaleTheme ColorTheme = "grayscale" // black to white
	JungleTheme    ColorTheme = "jungle"    // dark green to yellow
	ThermalTheme   ColorTheme = "thermal"   // black, red, yellow, white
	MarineTheme    ColorTheme = "marine"    // deep blue to white

	DefaultColorMapSize = 256
)

var validThemes = map[ColorTheme]struct{}{
	EnhancedTheme:  {},
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
}

// UndefinedColor fills cells with no defined uncertainty.
var UndefinedColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// ParseColorTheme validates a theme name.
func ParseColorTheme(name string) (ColorTheme, error) {
	theme := ColorTheme(name)
	if _, ok := validThemes[theme]; !ok {
		return "", fmt.Errorf("invalid colour theme: %s", name)
	}
	return theme, nil
}

// Bounds is the closed value range spread over the colour map.
type Bounds struct {
	Min, Max float64
}

// ColorMapper maps values inside Bounds onto a pre-computed gradient.
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) color.Color
	themeName     ColorTheme
	size          int
	valuePerIndex float64
	boundsMin     float64
}

// NewColorMapper creates a mapper of DefaultColorMapSize colours.
func NewColorMapper(theme ColorTheme, bounds Bounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a mapper with size pre-computed colours.
func NewColorMapperWithSize(theme ColorTheme, bounds Bounds, size int) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds sets the value range and rebuilds the gradient.
func (cm *ColorMapper) UpdateBounds(bounds Bounds) {
	cm.boundsMin = bounds.Min
	cm.valuePerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1))
	}
}

// GetColor returns the colour of v, clamped to the gradient ends. A nil
// value maps to UndefinedColor.
func (cm *ColorMapper) GetColor(v *float64) color.Color {
	if v == nil || math.IsNaN(*v) {
		return UndefinedColor
	}
	if !(cm.valuePerIndex > 0) {
		return cm.colorMap[cm.size/2]
	}

	index := int(math.Floor((*v - cm.boundsMin) / cm.valuePerIndex))
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// Gradient returns the colour at fraction f of the map, f in [0, 1].
func (cm *ColorMapper) Gradient(f float64) color.Color {
	index := int(math.Round(math.Max(0, math.Min(1, f)) * float64(cm.size-1)))
	return cm.colorMap[index]
}

// ThemeName returns the current colour theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// HSV is a colour in HSV space: hue in degrees, saturation and value in [0, 1].
type HSV struct {
	H float64
	S float64
	V float64
}

// RGB converts HSV to RGB.
func (hsv HSV) RGB() color.Color {
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := math.Mod(hsv.H, 360)
	if h < 0 {
		h += 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 240 - (x * 240),
				S: 0.9 + (x * 0.1),
				V: 0.3 + 0.7*math.Pow(x, 0.7),
			}.RGB()
		}

	case GrayscaleTheme:
		return func(x float64) color.Color {
			v := uint8(math.Pow(x, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case JungleTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 120 - (x * 60),
				S: 1.0,
				V: 0.3 + (math.Pow(x, 0.6) * 0.7),
			}.RGB()
		}

	case ThermalTheme:
		return func(x float64) color.Color {
			switch {
			case x < 1.0/3:
				return color.RGBA{R: uint8(x * 3 * 255), A: 255}
			case x < 2.0/3:
				return color.RGBA{R: 255, G: uint8((x - 1.0/3) * 3 * 255), A: 255}
			default:
				return color.RGBA{R: 255, G: 255, B: uint8(math.Min(1, (x-2.0/3)*3) * 255), A: 255}
			}
		}

	case MarineTheme:
		return func(x float64) color.Color {
			return HSV{
				H: 240 - (x * 60),
				S: 1.0 - (x * 0.8),
				V: 0.3 + (math.Pow(x, 0.6) * 0.7),
			}.RGB()
		}

	default:
		return func(x float64) color.Color {
			x = math.Max(0, math.Min(1, x))
			enhanced := math.Pow(x, 0.7)

			switch {
			case x < 0.25:
				return HSV{H: 240, S: 1.0, V: math.Min(1, 0.2+enhanced*2)}.RGB()
			case x < 0.5:
				return HSV{H: 240 - ((x - 0.25) * 240), S: 1.0, V: math.Min(1, enhanced*1.5)}.RGB()
			case x < 0.75:
				return HSV{H: 180 - ((x - 0.5) * 4 * 120), S: 1.0, V: math.Min(1, enhanced*1.5)}.RGB()
			default:
				return HSV{H: 60 - ((x - 0.75) * 4 * 60), S: 1.0, V: 1.0}.RGB()
			}
		}
	}
}
