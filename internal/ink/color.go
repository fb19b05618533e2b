package ink

import (
	"image/color"
	"strconv"
	"strings"
)

// ParseColor reads #rgb or #rrggbb. Anything else is the default ink.
func ParseColor(s string) color.RGBA {
	fallback := color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return fallback
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
