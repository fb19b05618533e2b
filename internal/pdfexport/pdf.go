// Package pdfexport prints a document to a single-page PDF: paragraphs as
// text in the Go font family and freedraw strokes as vector paths.
package pdfexport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/elloloop/paperlike/internal/ink"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

const (
	ContentType = "application/pdf"
	Ext         = ".pdf"

	// MmPerPx maps document pixels at 96 dpi to millimetres.
	MmPerPx = 25.4 / 96
	ptPerPx = 0.75
)

var ErrEmptyPage = errors.New("pdfexport: page has no area")

// Options describes the page. Layout must be the configuration the
// document was laid out with.
type Options struct {
	Layout layout.Config
	Engine layout.Engine
	Title  string
	Logger *zap.Logger
}

// Renderer keeps the loaded font family between renders. It is not safe
// for concurrent use.
type Renderer struct {
	opts   Options
	family *canvas.FontFamily
}

func New(opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	family := canvas.NewFontFamily("paperlike")
	for _, f := range []struct {
		ttf   []byte
		style canvas.FontStyle
	}{
		{goregular.TTF, canvas.FontRegular},
		{gobold.TTF, canvas.FontBold},
		{goitalic.TTF, canvas.FontRegular | canvas.FontItalic},
		{gobolditalic.TTF, canvas.FontBold | canvas.FontItalic},
	} {
		if err := family.LoadFont(f.ttf, 0, f.style); err != nil {
			return nil, fmt.Errorf("pdfexport: load font: %w", err)
		}
	}
	return &Renderer{opts: opts, family: family}, nil
}

// PageSize is the page extent in document pixels. The page spans the full
// document width and reaches below the last paragraph and the lowest stroke
// by the top margin.
func PageSize(doc paperdoc.Document, cfg layout.Config, strokes []ink.Element) (w, h float64) {
	bottom := 0.0
	if n := len(doc.Paragraphs); n > 0 {
		bottom = doc.Paragraphs[n-1].Bottom()
	}
	for _, s := range strokes {
		for i := range s.Points {
			bottom = max(bottom, s.Abs(i).Y-cfg.MarginTop+s.StrokeWidth/2)
		}
	}
	return cfg.DocumentWidth, bottom + cfg.MarginTop
}

// Strokes decodes the freedraw elements of a scene, skipping anything else.
func Strokes(scene paperdoc.Scene) []ink.Element {
	var out []ink.Element
	for _, raw := range scene.Elements {
		var el ink.Element
		if json.Unmarshal(raw, &el) != nil || el.Type != ink.ElementFreedraw || len(el.Points) == 0 {
			continue
		}
		out = append(out, el)
	}
	return out
}

// Render returns doc as PDF bytes.
func (r *Renderer) Render(doc paperdoc.Document) ([]byte, error) {
	cfg := r.opts.Layout
	strokes := Strokes(doc.Scene)
	w, h := PageSize(doc, cfg, strokes)
	if !(w > 0) || !(h > 0) {
		return nil, ErrEmptyPage
	}
	wmm, hmm := w*MmPerPx, h*MmPerPx

	var buf bytes.Buffer
	writer := pdf.New(&buf, wmm, hmm, nil)
	writer.SetInfo(r.opts.Title, "", "", "", "paperlike")

	c := canvas.New(wmm, hmm)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	for _, p := range doc.Paragraphs {
		r.drawParagraph(ctx, p)
	}
	r.drawStrokes(ctx, cfg, strokes)

	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("pdfexport: %w", err)
	}
	r.opts.Logger.Debug("rendered pdf",
		zap.Int("paragraphs", len(doc.Paragraphs)),
		zap.Int("strokes", len(strokes)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (r *Renderer) drawParagraph(ctx *canvas.Context, p paperdoc.Paragraph) {
	if p.IsBlank() {
		return
	}
	st := layout.StyleOf(p)
	style := canvas.FontRegular
	if st.Bold {
		style = canvas.FontBold
	}
	if st.Italic {
		style |= canvas.FontItalic
	}
	face := r.family.Face(st.FontSize*ptPerPx, color.Black, style, canvas.FontNormal)
	ascent := face.Metrics().Ascent
	// Rows sit centred in their line box, as on screen.
	lead := (st.LineBox() - st.FontSize) / 2 * MmPerPx

	for i, row := range r.opts.Engine.Rows(p) {
		if row.Text == "" {
			continue
		}
		top := (p.Y+float64(i)*st.LineBox())*MmPerPx + lead
		ctx.DrawText(p.X*MmPerPx, top+ascent, canvas.NewTextLine(face, row.Text, canvas.Left))
	}
}

func (r *Renderer) drawStrokes(ctx *canvas.Context, cfg layout.Config, strokes []ink.Element) {
	ctx.SetFillColor(color.RGBA{})
	for _, s := range strokes {
		ctx.SetStrokeColor(ink.ParseColor(s.StrokeColor))
		ctx.SetStrokeWidth(math.Max(s.StrokeWidth, 0.5) * MmPerPx)

		path := &canvas.Path{}
		path.MoveTo(s.Points[0][0]*MmPerPx, s.Points[0][1]*MmPerPx)
		if len(s.Points) == 1 {
			// A dot still needs a visible segment.
			path.LineTo(s.Points[0][0]*MmPerPx+0.01, s.Points[0][1]*MmPerPx)
		}
		for _, pt := range s.Points[1:] {
			path.LineTo(pt[0]*MmPerPx, pt[1]*MmPerPx)
		}
		// Scene coordinates are document coordinates shifted by the margins.
		ctx.DrawPath((s.X-cfg.MarginLeft)*MmPerPx, (s.Y-cfg.MarginTop)*MmPerPx, path)
	}
}
