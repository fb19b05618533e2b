package app

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/ink"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/pdfexport"
	"github.com/elloloop/paperlike/internal/render"
	"github.com/elloloop/paperlike/internal/ui"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

var helpLines = []string{
	"Click a paragraph to type | Click empty space to draw",
	"Alt+drag: draw over text | Ctrl+click in the column: new paragraph there",
	"D: draw tool | V: select strokes | Delete: remove selected stroke",
	"Ctrl+S: Save | Ctrl+E: Export | Ctrl+Shift+E: Sealed export",
	"Ctrl+O: Import | Ctrl+P: Print to PDF",
	"Ctrl+Z / Ctrl+Y: Undo / Redo",
	"Ctrl+B / Ctrl+I: Bold / Italic | Ctrl+. / Ctrl+,: Font size",
	"Ctrl+C / Ctrl+V: Copy paragraph / Paste",
	"Wheel: scroll | Shift+wheel: sideways | Ctrl+wheel or Ctrl+= / Ctrl+-: zoom",
	"Ctrl+Q: Quit | F1 or Esc closes this sheet",
}

func (a *App) uiFace(size float64, bold bool) font.Face {
	f, err := a.faces.Face(layout.Style{FontSize: size * float64(a.scale), LineHeight: 1, Bold: bold})
	if err != nil {
		return nil
	}
	return f
}

func (a *App) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.fb == nil {
		a.fb = render.NewFrameBuffer(w, h)
	}
	if a.fb.W != w || a.fb.H != h || a.chrome == nil {
		a.fb.Resize(w, h)
		a.chrome = ebiten.NewImage(w, h)
	}
	a.layout = ui.ComputeLayout(w, h, a.theme, a.scale)

	st := a.sess.State()
	doc := st.Doc()
	cfg := st.Layout()
	m := st.Mapper()
	c := a.sess.Canvas()

	pw, ph := pdfexport.PageSize(doc, cfg, c.Strokes())
	a.page = ui.PageOnScreen(m, a.layout.Canvas, cfg, pw, ph)
	ui.DrawShell(a.fb, a.layout, a.page, a.theme, a.scale)
	if p, ok := st.FocusedParagraph(); ok {
		ui.HighlightRow(a.fb, a.layout.Canvas, a.paragraphRect(m, p), a.theme)
	}
	a.chrome.WritePixels(a.fb.Pixels)
	screen.DrawImage(a.chrome, nil)

	a.drawCanvasLayer(screen, m, doc)
	a.drawBars(screen)
	if a.showHelp {
		a.drawHelp(screen)
	}
	if a.prompt != nil {
		a.drawPrompt(screen)
	}
	a.drawn = true
}

func (a *App) paragraphRect(m coords.Mapper, p paperdoc.Paragraph) render.Rect {
	tl := m.ToCanvas(coords.Point{X: p.X, Y: p.Y})
	origin := a.layout.Canvas
	return render.Rect{
		X: origin.X + int(math.Floor(tl.X)),
		Y: origin.Y + int(math.Floor(tl.Y)),
		W: int(math.Ceil(m.Scale(p.Width))),
		H: int(math.Ceil(m.Scale(p.Height))),
	}
}

// drawCanvasLayer draws text and ink into an image the size of the canvas
// area, which clips both to it.
func (a *App) drawCanvasLayer(screen *ebiten.Image, m coords.Mapper, doc paperdoc.Document) {
	cr := a.layout.Canvas
	if cr.Empty() {
		return
	}
	if a.inkLay == nil || a.inkLay.Bounds().Dx() != cr.W || a.inkLay.Bounds().Dy() != cr.H {
		a.inkLay = ebiten.NewImage(cr.W, cr.H)
	}
	a.inkLay.Clear()

	for _, p := range doc.Paragraphs {
		a.drawParagraph(m, p)
	}
	a.drawCaret(m)
	a.drawStrokes()

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(cr.X), float64(cr.Y))
	screen.DrawImage(a.inkLay, op)
}

func (a *App) drawParagraph(m coords.Mapper, p paperdoc.Paragraph) {
	if p.IsBlank() {
		return
	}
	st := layout.StyleOf(p)
	zoom := m.Viewport().Zoom
	face, err := a.faces.Face(layout.Style{FontSize: st.FontSize * zoom, LineHeight: st.LineHeight, Bold: st.Bold, Italic: st.Italic})
	if err != nil {
		return
	}
	box := st.LineBox()
	ascent := face.Metrics().Ascent.Ceil()
	// Glyphs sit centred in their line box.
	lead := (box - st.FontSize) / 2 * zoom

	x := int(math.Round(m.ToCanvasX(p.X)))
	for i, row := range a.sess.State().Engine().Rows(p) {
		top := m.ToCanvasY(p.Y + float64(i)*box)
		if top > float64(a.layout.Canvas.H) {
			break
		}
		if row.Text == "" || top+box*zoom < 0 {
			continue
		}
		text.Draw(a.inkLay, strings.TrimRight(row.Text, " "), face, x, int(math.Round(top+lead))+ascent, a.theme.Text)
	}
}

func (a *App) drawCaret(m coords.Mapper) {
	st := a.sess.State()
	p, ok := st.FocusedParagraph()
	if !ok || (a.frameTick/30)%2 == 1 {
		return
	}
	_, caret := st.Focused()
	x, y, h := st.Engine().CaretPoint(p, caret)
	top := m.ToCanvas(coords.Point{X: x, Y: y})
	vector.StrokeLine(a.inkLay, float32(top.X), float32(top.Y), float32(top.X), float32(top.Y+m.Scale(h)), 1.5, a.theme.Caret, true)
}

func (a *App) drawStrokes() {
	c := a.sess.Canvas()
	zoom := c.ViewState().Zoom
	selected := c.Selected()
	for _, s := range c.Strokes() {
		if s.ID == selected {
			a.drawStroke(c, s, float32(s.StrokeWidth*zoom+6), a.theme.Selection)
		}
		a.drawStroke(c, s, float32(s.StrokeWidth*zoom), ink.ParseColor(s.StrokeColor))
	}
	if s, ok := c.Active(); ok {
		a.drawStroke(c, s, float32(s.StrokeWidth*zoom), ink.ParseColor(s.StrokeColor))
	}
}

func (a *App) drawStroke(c *ink.Canvas, s ink.Element, width float32, clr color.Color) {
	width = max(width, 1)
	prev := c.ToCanvas(s.Abs(0))
	if len(s.Points) == 1 {
		vector.StrokeLine(a.inkLay, float32(prev.X), float32(prev.Y), float32(prev.X)+0.01, float32(prev.Y), width, clr, true)
		return
	}
	for i := 1; i < len(s.Points); i++ {
		p := c.ToCanvas(s.Abs(i))
		vector.StrokeLine(a.inkLay, float32(prev.X), float32(prev.Y), float32(p.X), float32(p.Y), width, clr, true)
		prev = p
	}
}

func (a *App) drawBars(screen *ebiten.Image) {
	st := a.sess.State()
	c := a.sess.Canvas()
	barFace := a.uiFace(13, true)
	statusFace := a.uiFace(12, false)
	if barFace == nil || statusFace == nil {
		return
	}

	title := "Paperlike"
	if a.sess.Dirty() {
		title += " *"
	}
	tb := a.layout.TopBar
	text.Draw(screen, title, barFace, tb.X+12, tb.Y+tb.H/2+5, a.theme.TopBarText)

	tool := "draw"
	if a.selectMode {
		tool = "select"
	} else if c.ViewState().ActiveTool == drawing.ToolSelection {
		tool = "text"
	}
	doc := st.Doc()
	left := fmt.Sprintf("[ %d paragraphs ] [ %d strokes ] [ Tool %s ] [ Zoom %.0f%% ]",
		len(doc.Paragraphs), len(c.Strokes()), tool, c.ViewState().Zoom*100)
	if p, ok := st.FocusedParagraph(); ok {
		_, caret := st.Focused()
		style := layout.StyleOf(p)
		flags := ""
		if style.Bold {
			flags += " B"
		}
		if style.Italic {
			flags += " I"
		}
		left = fmt.Sprintf("[ Paragraph %d/%d ] [ Caret %d ] [ %.0fpx%s ]",
			doc.IndexOf(p.ID)+1, len(doc.Paragraphs), caret, style.FontSize, flags)
	}
	sb := a.layout.StatusBar
	base := sb.Y + sb.H/2 + 5
	text.Draw(screen, left, statusFace, sb.X+12, base, a.theme.StatusText)
	right := "[ " + a.status + " ]"
	rw := font.MeasureString(statusFace, right).Ceil()
	text.Draw(screen, right, statusFace, sb.X+sb.W-rw-12, base, a.theme.StatusText)
}

func (a *App) overlayRect(w, h int) render.Rect {
	sw, sh := a.screenW, a.screenH
	w, h = min(w, sw-40), min(h, sh-40)
	return render.Rect{X: (sw - w) / 2, Y: (sh - h) / 2, W: w, H: h}
}

// drawPanel dims the window and paints an overlay panel at r.
func (a *App) drawPanel(screen *ebiten.Image, r render.Rect) {
	if a.dim == nil {
		a.dim = ebiten.NewImage(1, 1)
		a.dim.Fill(color.RGBA{A: 90})
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.screenW), float64(a.screenH))
	screen.DrawImage(a.dim, op)

	if a.panel == nil || a.panel.Bounds().Dx() != r.W+3 || a.panel.Bounds().Dy() != r.H+3 {
		fb := render.NewFrameBuffer(r.W+3, r.H+3)
		ui.DrawPanel(fb, render.Rect{W: r.W, H: r.H}, a.theme)
		a.panel = ebiten.NewImage(fb.W, fb.H)
		a.panel.WritePixels(fb.Pixels)
	}
	op = &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(r.X), float64(r.Y))
	screen.DrawImage(a.panel, op)
}

func (a *App) drawHelp(screen *ebiten.Image) {
	titleFace := a.uiFace(16, true)
	face := a.uiFace(13, false)
	if titleFace == nil || face == nil {
		return
	}
	step := int(24 * a.scale)
	r := a.overlayRect(int(620*a.scale), 80+step*len(helpLines))
	a.drawPanel(screen, r)
	pad := int(float32(a.theme.PanelPadDp) * a.scale)
	text.Draw(screen, "Help", titleFace, r.X+pad, r.Y+pad+16, a.theme.Text)
	y := r.Y + pad + 56
	for _, l := range helpLines {
		text.Draw(screen, l, face, r.X+pad, y, a.theme.StatusText)
		y += step
	}
}

func (a *App) drawPrompt(screen *ebiten.Image) {
	titleFace := a.uiFace(15, true)
	face := a.uiFace(13, false)
	if titleFace == nil || face == nil {
		return
	}
	r := a.overlayRect(int(420*a.scale), int(150*a.scale))
	a.drawPanel(screen, r)
	pad := int(float32(a.theme.PanelPadDp) * a.scale)
	text.Draw(screen, a.prompt.title, titleFace, r.X+pad, r.Y+pad+15, a.theme.Text)
	text.Draw(screen, a.prompt.hint, face, r.X+pad, r.Y+pad+48, a.theme.StatusText)

	masked := strings.Repeat("*", len([]rune(a.prompt.input)))
	if (a.frameTick/30)%2 == 0 {
		masked += "|"
	}
	text.Draw(screen, masked, face, r.X+pad, r.Y+pad+84, a.theme.Text)
	text.Draw(screen, "Enter to confirm, Esc to cancel", face, r.X+pad, r.Y+r.H-pad, a.theme.Border)
}
