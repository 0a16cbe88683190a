package cards

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Stop is one conic segment, in whole percent of the full turn.
type Stop struct {
	Color string
	Start int
	End   int
}

// ConicStops splits the circle evenly between the palette colors, in order.
func ConicStops(palette []string) []Stop {
	if len(palette) == 0 {
		return nil
	}
	step := 100 / float64(len(palette))
	out := make([]Stop, len(palette))
	for i, c := range palette {
		out[i] = Stop{
			Color: c,
			Start: int(math.Round(float64(i) * step)),
			End:   int(math.Round(float64(i+1) * step)),
		}
	}
	return out
}

// ConicGradient renders stops as a CSS background value. A single color is returned as-is.
func ConicGradient(stops []Stop) string {
	switch len(stops) {
	case 0:
		return ""
	case 1:
		return stops[0].Color
	}
	parts := make([]string, len(stops))
	for i, s := range stops {
		parts[i] = fmt.Sprintf("%s %d%% %d%%", s.Color, s.Start, s.End)
	}
	return "conic-gradient(" + strings.Join(parts, ", ") + ")"
}

// ParseHex accepts #rgb and #rrggbb, with or without the leading '#'.
func ParseHex(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xff}, true
}

// Warmth is +1 for reds, oranges and yellows, -1 for greens, teals and blues, and 0 for greys,
// purples and unparsable values.
func Warmth(hexColor string) int {
	c, ok := ParseHex(hexColor)
	if !ok {
		return 0
	}
	h, s := hueSat(c)
	if s < 0.25 {
		return 0
	}
	switch {
	case h < 65 || h >= 335:
		return 1
	case h >= 90 && h < 250:
		return -1
	default:
		return 0
	}
}

func hueSat(c color.NRGBA) (float64, float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	d := max - min
	if d == 0 {
		return 0, 0
	}
	var h float64
	switch max {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, d / max
}
