package ui

import "image/color"

type Theme struct {
	AppBackground color.RGBA
	TopBar        color.RGBA
	TopBarText    color.RGBA
	Desk          color.RGBA
	Page          color.RGBA
	Border        color.RGBA
	Guide         color.RGBA
	StatusBar     color.RGBA
	StatusText    color.RGBA
	Text          color.RGBA
	Caret         color.RGBA
	Focus         color.RGBA
	Selection     color.RGBA
	Accent        color.RGBA
	Shadow        color.RGBA
	Panel         color.RGBA
	TopBarDp      int
	StatusDp      int
	PanelPadDp    int
}

func DefaultTheme() Theme {
	return Theme{
		AppBackground: color.RGBA{0xF3, 0xF5, 0xF8, 0xFF},
		TopBar:        color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		TopBarText:    color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Desk:          color.RGBA{0xE2, 0xE7, 0xEF, 0xFF},
		Page:          color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:        color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		Guide:         color.RGBA{0xDD, 0xE3, 0xEC, 0xFF},
		StatusBar:     color.RGBA{0xEA, 0xEF, 0xF6, 0xFF},
		StatusText:    color.RGBA{0x33, 0x3D, 0x4D, 0xFF},
		Text:          color.RGBA{0x1E, 0x1E, 0x1E, 0xFF},
		Caret:         color.RGBA{0x1E, 0x1E, 0x1E, 0xFF},
		Focus:         color.RGBA{0xF2, 0xF6, 0xFD, 0xFF},
		Selection:     color.RGBA{0x4C, 0x8B, 0xF5, 0xFF},
		Accent:        color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Shadow:        color.RGBA{0xC8, 0xCF, 0xDB, 0xFF},
		Panel:         color.RGBA{0xFB, 0xFC, 0xFE, 0xFF},
		TopBarDp:      34,
		StatusDp:      28,
		PanelPadDp:    16,
	}
}
