// Package ui computes the window layout and paints the chrome around the
// paper: top bar, desk, page, column guides and status bar. Text and ink
// are drawn by the host on top.
package ui

import (
	"math"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/render"
)

// PageAspect is the minimum page height over width, A4 portrait.
const PageAspect = 297.0 / 210.0

type Layout struct {
	TopBar    render.Rect
	Canvas    render.Rect
	StatusBar render.Rect
}

func ComputeLayout(w, h int, theme Theme, scale float32) Layout {
	if scale <= 0 {
		scale = 1
	}
	dp := func(v int) int { return int(float32(v) * scale) }

	topH := dp(theme.TopBarDp)
	statusH := dp(theme.StatusDp)
	canvasH := max(h-topH-statusH, 0)

	return Layout{
		TopBar:    render.Rect{W: w, H: topH},
		Canvas:    render.Rect{Y: topH, W: w, H: canvasH},
		StatusBar: render.Rect{Y: h - statusH, W: w, H: statusH},
	}
}

// Page is the paper as it appears on screen, in window pixels.
type Page struct {
	Rect        render.Rect
	ColumnLeft  int
	ColumnRight int
}

// PageOnScreen places a page of docW x docH document pixels, whose top-left
// corner is document origin, through m. origin is the window position of
// the canvas area.
func PageOnScreen(m coords.Mapper, origin render.Rect, cfg layout.Config, docW, docH float64) Page {
	docH = max(docH, docW*PageAspect)
	tl := m.ToCanvas(coords.Point{})
	br := m.ToCanvas(coords.Point{X: docW, Y: docH})
	px := func(v float64) int { return int(math.Round(v)) }
	return Page{
		Rect: render.Rect{
			X: origin.X + px(tl.X),
			Y: origin.Y + px(tl.Y),
			W: px(br.X - tl.X),
			H: px(br.Y - tl.Y),
		},
		ColumnLeft:  origin.X + px(m.ToCanvasX(cfg.ColumnLeft())),
		ColumnRight: origin.X + px(m.ToCanvasX(cfg.ColumnRight())),
	}
}

func DrawShell(fb *render.FrameBuffer, l Layout, page Page, theme Theme, scale float32) {
	fb.Clear(theme.AppBackground)
	fb.Fill(l.TopBar, theme.TopBar)

	fb.Clip = l.Canvas
	fb.Fill(l.Canvas, theme.Desk)
	r := page.Rect
	fb.FillRect(r.X+2, r.Y+2, r.W, r.H, theme.Shadow)
	fb.Fill(r, theme.Page)
	fb.StrokeRect(r.X, r.Y, r.W, r.H, 1, theme.Border)
	accentH := max(int(3*scale), 1)
	fb.FillRect(r.X, r.Y, r.W, accentH, theme.Accent)

	dash := max(int(4*scale), 2)
	fb.DashedVLine(page.ColumnLeft, r.Y+accentH, r.Y+r.H, dash, theme.Guide)
	fb.DashedVLine(page.ColumnRight, r.Y+accentH, r.Y+r.H, dash, theme.Guide)
	fb.Clip = render.Rect{}

	fb.Fill(l.StatusBar, theme.StatusBar)
	fb.StrokeRect(l.StatusBar.X, l.StatusBar.Y, l.StatusBar.W, l.StatusBar.H, 1, theme.Border)
}

// DrawPanel paints a bordered overlay panel, such as the help sheet.
func DrawPanel(fb *render.FrameBuffer, r render.Rect, theme Theme) {
	fb.FillRect(r.X+3, r.Y+3, r.W, r.H, theme.Shadow)
	fb.Fill(r, theme.Panel)
	fb.StrokeRect(r.X, r.Y, r.W, r.H, 1, theme.Border)
}

// HighlightRow tints a focused paragraph's box on the page.
func HighlightRow(fb *render.FrameBuffer, clip render.Rect, r render.Rect, theme Theme) {
	fb.Clip = clip
	fb.Fill(r, theme.Focus)
	fb.Clip = render.Rect{}
}
