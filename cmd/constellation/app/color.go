package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart    = 210.0
	goldenAngle = 137.508 // spreads consecutive PRNs around the hue circle
)

var (
	backgroundColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	placeholderColor = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	gridColor        = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	axisColor        = color.RGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}
	circleColor      = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	textColor        = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

// prnColor returns a stable, distinct colour for a satellite.
func prnColor(prn int) color.RGBA {
	hue := math.Mod(hueStart+float64(prn)*goldenAngle, 360)
	if hue < 0 {
		hue += 360
	}

	r, g, b := colorful.Hsv(hue, 0.85, 0.80).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// blend mixes c into dst with the given opacity in [0, 1].
func blend(dst, c color.RGBA, alpha float64) color.RGBA {
	alpha = math.Max(0, math.Min(1, alpha))
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-alpha) + float64(b)*alpha))
	}
	return color.RGBA{R: mix(dst.R, c.R), G: mix(dst.G, c.G), B: mix(dst.B, c.B), A: 0xff}
}
