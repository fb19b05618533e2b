package coords

import "math"

// Viewport is the drawing engine's pan and zoom.
type Viewport struct {
	ScrollX float64
	ScrollY float64
	Zoom    float64
}

// Point is a position in either space; which one is up to the caller.
type Point struct {
	X, Y float64
}

// Mapper converts between document space, where paragraphs are laid out,
// and canvas space, where the drawing engine applies pan and zoom. Document
// origin is the top left of the text column, so the margins are added
// before zooming.
type Mapper struct {
	vp         Viewport
	marginLeft float64
	marginTop  float64
}

// NewMapper treats a zero, negative or non-finite zoom as 1.
func NewMapper(vp Viewport, marginLeft, marginTop float64) Mapper {
	if !(vp.Zoom > 0) || math.IsInf(vp.Zoom, 0) {
		vp.Zoom = 1
	}
	return Mapper{vp: vp, marginLeft: marginLeft, marginTop: marginTop}
}

func (m Mapper) Viewport() Viewport { return m.vp }

func (m Mapper) ToCanvasX(docX float64) float64 {
	return (docX+m.marginLeft)*m.vp.Zoom + m.vp.ScrollX
}

func (m Mapper) ToCanvasY(docY float64) float64 {
	return (docY+m.marginTop)*m.vp.Zoom + m.vp.ScrollY
}

func (m Mapper) ToDocX(canvasX float64) float64 {
	return (canvasX-m.vp.ScrollX)/m.vp.Zoom - m.marginLeft
}

func (m Mapper) ToDocY(canvasY float64) float64 {
	return (canvasY-m.vp.ScrollY)/m.vp.Zoom - m.marginTop
}

func (m Mapper) ToCanvas(p Point) Point {
	return Point{X: m.ToCanvasX(p.X), Y: m.ToCanvasY(p.Y)}
}

func (m Mapper) ToDoc(p Point) Point {
	return Point{X: m.ToDocX(p.X), Y: m.ToDocY(p.Y)}
}

// Scale converts a document length to canvas pixels.
func (m Mapper) Scale(length float64) float64 {
	return length * m.vp.Zoom
}
