package router

import "github.com/elloloop/paperlike/pkg/paperdoc"

type Intent int

const (
	IntentDrawing Intent = iota
	IntentText
)

func (i Intent) String() string {
	switch i {
	case IntentText:
		return "text"
	case IntentDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// Bounds is the horizontal geometry of the text column.
type Bounds struct {
	DocumentWidth float64
	MarginLeft    float64
	MarginRight   float64
}

func (b Bounds) InColumn(x float64) bool {
	return x >= b.MarginLeft && x <= b.DocumentWidth-b.MarginRight
}

// Classify decides whether a pointer at document coordinates (x, y) edits
// text or draws. Outside the text column is always drawing. Inside it, a
// point on a paragraph span is text and a point between paragraphs is
// drawing. Spans are inclusive at both ends and the first match wins.
func Classify(x, y float64, ps []paperdoc.Paragraph, b Bounds) Intent {
	if !b.InColumn(x) {
		return IntentDrawing
	}
	if _, ok := FindParagraphAt(y, ps); ok {
		return IntentText
	}
	return IntentDrawing
}

// FindParagraphAt returns the index of the first paragraph whose vertical
// span contains y.
func FindParagraphAt(y float64, ps []paperdoc.Paragraph) (int, bool) {
	for i, p := range ps {
		if y >= p.Y && y <= p.Y+p.Height {
			return i, true
		}
	}
	return -1, false
}

// FindInsertionIndex returns where a paragraph starting at y keeps the
// sequence ordered: the first paragraph starting strictly below y, or
// len(ps).
func FindInsertionIndex(y float64, ps []paperdoc.Paragraph) int {
	for i, p := range ps {
		if p.Y > y {
			return i
		}
	}
	return len(ps)
}

// Hit is a routed pointer event.
type Hit struct {
	Intent Intent
	// Index of the paragraph under the pointer, -1 for drawing.
	Index int
}

// Route classifies and resolves the target paragraph in one pass.
func Route(x, y float64, ps []paperdoc.Paragraph, b Bounds) Hit {
	if !b.InColumn(x) {
		return Hit{Intent: IntentDrawing, Index: -1}
	}
	if i, ok := FindParagraphAt(y, ps); ok {
		return Hit{Intent: IntentText, Index: i}
	}
	return Hit{Intent: IntentDrawing, Index: -1}
}
