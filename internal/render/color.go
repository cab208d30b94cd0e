package render

import (
	"strconv"

	"github.com/charmbracelet/x/ansi"
)

// encodeColor turns a cell's foreground/background color into spec.md
// §3's three-form encoding: "default" for an unset color, "idx:N" for an
// indexed (4-bit/8-bit) palette entry, or "rgb:R,G,B" for a true-color
// value. ansi's three color kinds (BasicColor, ExtendedColor, TrueColor)
// all satisfy color.Color, so a plain type switch recovers which form
// applies without needing any other introspection into the VT library's
// internal style representation.
func encodeColor(c ansi.Color) string {
	switch v := c.(type) {
	case nil:
		return "default"
	case ansi.BasicColor:
		return indexedSpec(int(v))
	case ansi.ExtendedColor:
		return indexedSpec(int(v))
	case ansi.TrueColor:
		r, g, b := uint8(v>>16), uint8(v>>8), uint8(v)
		return rgbSpec(r, g, b)
	default:
		r, g, b, a := c.RGBA()
		if a == 0 {
			return "default"
		}
		return rgbSpec(uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
}

func indexedSpec(idx int) string {
	return "idx:" + strconv.Itoa(idx)
}

func rgbSpec(r, g, b uint8) string {
	return "rgb:" + strconv.Itoa(int(r)) + "," + strconv.Itoa(int(g)) + "," + strconv.Itoa(int(b))
}
