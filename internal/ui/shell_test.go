package ui

import (
	"testing"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/render"
)

func TestComputeLayout(t *testing.T) {
	l := ComputeLayout(1000, 700, DefaultTheme(), 2)
	if l.TopBar.H != 68 || l.StatusBar.H != 56 {
		t.Fatalf("bars not scaled: %+v", l)
	}
	if l.Canvas.Y != 68 || l.Canvas.H != 700-68-56 {
		t.Fatalf("unexpected canvas %+v", l.Canvas)
	}
	if l.StatusBar.Y != 700-56 {
		t.Fatalf("status bar not at the bottom: %+v", l.StatusBar)
	}

	tiny := ComputeLayout(100, 20, DefaultTheme(), 1)
	if tiny.Canvas.H != 0 {
		t.Fatalf("canvas height must not go negative: %+v", tiny.Canvas)
	}
}

func TestPageOnScreen(t *testing.T) {
	cfg := layout.DefaultConfig()
	m := coords.NewMapper(coords.Viewport{Zoom: 0.5, ScrollX: 10, ScrollY: -20}, cfg.MarginLeft, cfg.MarginTop)
	origin := render.Rect{X: 0, Y: 34, W: 1000, H: 600}

	p := PageOnScreen(m, origin, cfg, cfg.DocumentWidth, 2000)
	// Document x 0 sits at (0+80)*0.5+10 = 50.
	if p.Rect.X != 50 || p.Rect.W != 400 {
		t.Fatalf("unexpected page x/w %+v", p.Rect)
	}
	// Document y 0 sits at (0+50)*0.5-20 = 5, plus the canvas origin.
	if p.Rect.Y != 39 || p.Rect.H != 1000 {
		t.Fatalf("unexpected page y/h %+v", p.Rect)
	}
	if p.ColumnLeft != 90 || p.ColumnRight != 410 {
		t.Fatalf("unexpected guides %d %d", p.ColumnLeft, p.ColumnRight)
	}

	short := PageOnScreen(m, origin, cfg, cfg.DocumentWidth, 10)
	shortW := 800.0
	if want := int(shortW * PageAspect * 0.5); short.Rect.H < want-1 || short.Rect.H > want+1 {
		t.Fatalf("short page not extended to the minimum aspect: %d", short.Rect.H)
	}
}

func TestDrawShell(t *testing.T) {
	theme := DefaultTheme()
	fb := render.NewFrameBuffer(300, 200)
	l := ComputeLayout(300, 200, theme, 1)
	page := Page{Rect: render.Rect{X: 50, Y: 0, W: 200, H: 400}, ColumnLeft: 70, ColumnRight: 230}
	DrawShell(fb, l, page, theme, 1)

	if got := fb.At(10, 10); got != theme.TopBar {
		t.Fatalf("page drawn over the top bar: %v", got)
	}
	if got := fb.At(10, 100); got != theme.Desk {
		t.Fatalf("expected desk, got %v", got)
	}
	if got := fb.At(150, 100); got != theme.Page {
		t.Fatalf("expected page, got %v", got)
	}
	if got := fb.At(150, 190); got != theme.StatusBar {
		t.Fatalf("expected status bar, got %v", got)
	}
}
