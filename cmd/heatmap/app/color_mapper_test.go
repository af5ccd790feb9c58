package app

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorMapper_GetColor(t *testing.T) {
	cm := NewColorMapperWithSize(GrayscaleTheme, Bounds{Min: -1, Max: 1}, 3)

	low, mid, high := -1.0, 0.0, 1.0
	below, above := -5.0, 5.0

	assert.Equal(t, cm.colorMap[0], cm.GetColor(&low))
	assert.Equal(t, cm.colorMap[1], cm.GetColor(&mid))
	assert.Equal(t, cm.colorMap[2], cm.GetColor(&high))
	assert.Equal(t, cm.colorMap[0], cm.GetColor(&below), "clamped to the cold end")
	assert.Equal(t, cm.colorMap[2], cm.GetColor(&above), "clamped to the hot end")
}

func TestColorMapper_Undefined(t *testing.T) {
	cm := NewColorMapper(EnhancedTheme, Bounds{Min: 0, Max: 1})

	nan := math.NaN()
	assert.Equal(t, UndefinedColor, cm.GetColor(nil))
	assert.Equal(t, UndefinedColor, cm.GetColor(&nan))
}

func TestColorMapper_FlatBounds(t *testing.T) {
	cm := NewColorMapper(ClassicTheme, Bounds{Min: 2, Max: 2})

	v := 2.0
	assert.Equal(t, cm.colorMap[DefaultColorMapSize/2], cm.GetColor(&v))
}

func TestColorMapper_Themes(t *testing.T) {
	for theme := range validThemes {
		t.Run(string(theme), func(t *testing.T) {
			cm := NewColorMapper(theme, Bounds{Min: 0, Max: 1})
			assert.Equal(t, theme, cm.ThemeName())
			for i := 0; i <= 10; i++ {
				_, _, _, a := cm.Gradient(float64(i) / 10).RGBA()
				assert.Equal(t, uint32(0xffff), a)
			}
		})
	}
}

func TestParseColorTheme(t *testing.T) {
	theme, err := ParseColorTheme("marine")
	require.NoError(t, err)
	assert.Equal(t, MarineTheme, theme)

	_, err = ParseColorTheme("neon")
	assert.Error(t, err)
}

func TestHSV_RGB(t *testing.T) {
	r, g, b, _ := HSV{H: 0, S: 1, V: 1}.RGB().RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})

	r, g, b, _ = HSV{H: 240, S: 1, V: 1}.RGB().RGBA()
	assert.Equal(t, []uint32{0, 0, 0xffff}, []uint32{r, g, b})

	r, g, b, _ = HSV{H: 360, S: 1, V: 1}.RGB().RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b}, "hue wraps around")
}
