package layout

import (
	"math"
	"slices"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// MeasureTolerance is the smallest auto-measured height change that is
// acted on.
const MeasureTolerance = 1.0

// Engine lays out paragraph sequences. Every operation returns a new slice
// and leaves its input untouched; malformed arguments (unknown id, index out
// of range) return the input unchanged.
type Engine struct {
	Measurer Measurer
}

// Default uses the approximate measurer.
var Default = Engine{Measurer: Approximate{}}

func (e Engine) measurer() Measurer {
	if e.Measurer == nil {
		return Approximate{}
	}
	return e.Measurer
}

func (e Engine) Measure(p paperdoc.Paragraph) float64 {
	return e.measurer().Height(p.Content, StyleOf(p), p.Width)
}

func (e Engine) Wrap(p paperdoc.Paragraph) []string {
	return e.measurer().Wrap(p.Content, StyleOf(p), p.Width)
}

// NewParagraph builds an empty paragraph for the text column of cfg.
func (e Engine) NewParagraph(cfg Config, id string, y float64) paperdoc.Paragraph {
	p := paperdoc.Paragraph{
		ID:         id,
		Type:       paperdoc.ParagraphType,
		X:          cfg.ColumnLeft(),
		Y:          y,
		Width:      cfg.ColumnWidth(),
		FontSize:   cfg.DefaultFontSize,
		LineHeight: cfg.LineHeight,
	}
	p.Height = e.Measure(p)
	return p
}

// RepositionFrom recomputes Height and Y of every paragraph at or after
// start. The first paragraph keeps its own Y; every other one starts
// spacing below its predecessor.
func (e Engine) RepositionFrom(ps []paperdoc.Paragraph, start int, spacing float64) []paperdoc.Paragraph {
	if start < 0 || start >= len(ps) {
		return ps
	}
	out := slices.Clone(ps)
	for i := start; i < len(out); i++ {
		p := out[i]
		if i > 0 {
			prev := out[i-1]
			p.Y = prev.Y + prev.Height + spacing
		}
		p.Height = e.Measure(p)
		out[i] = p
	}
	return out
}

// InsertAt splices p in at index. Into an empty sequence p keeps its Y; at
// index 0 of a non-empty one it takes over the old first paragraph's Y.
func (e Engine) InsertAt(ps []paperdoc.Paragraph, index int, p paperdoc.Paragraph, spacing float64) []paperdoc.Paragraph {
	if index < 0 || index > len(ps) {
		return ps
	}
	if index == 0 && len(ps) > 0 {
		p.Y = ps[0].Y
	}
	out := slices.Insert(slices.Clip(slices.Clone(ps)), index, p)
	return e.RepositionFrom(out, index, spacing)
}

// RemoveAt drops the paragraph at index. Removing the first paragraph hands
// its Y to the successor.
func (e Engine) RemoveAt(ps []paperdoc.Paragraph, index int, spacing float64) []paperdoc.Paragraph {
	if index < 0 || index >= len(ps) {
		return ps
	}
	out := slices.Delete(slices.Clone(ps), index, index+1)
	if len(out) == 0 {
		return out
	}
	if index == 0 {
		out[0].Y = ps[0].Y
	}
	return e.RepositionFrom(out, max(0, index-1), spacing)
}

func (e Engine) UpdateContent(ps []paperdoc.Paragraph, id, content string, spacing float64) []paperdoc.Paragraph {
	i := indexOf(ps, id)
	if i < 0 {
		return ps
	}
	out := slices.Clone(ps)
	out[i].Content = content
	return e.RepositionFrom(out, i, spacing)
}

// UpdateParagraph replaces the paragraph with the same id and lays out from
// there; used for formatting changes that alter the line box.
func (e Engine) UpdateParagraph(ps []paperdoc.Paragraph, p paperdoc.Paragraph, spacing float64) []paperdoc.Paragraph {
	i := indexOf(ps, p.ID)
	if i < 0 {
		return ps
	}
	out := slices.Clone(ps)
	out[i] = p
	return e.RepositionFrom(out, i, spacing)
}

// ReconcileMeasured takes a height reported by the host's own measurement.
// Differences under MeasureTolerance are ignored. Otherwise the height is
// applied and the paragraphs below are shifted, then the sequence is
// immediately re-laid-out so the stored height stays the formal one. On a
// sequence this engine laid out the result therefore equals the input; it
// only changes paragraphs whose stored geometry drifted from the recompute.
// The boolean reports whether the result differs from the input.
func (e Engine) ReconcileMeasured(ps []paperdoc.Paragraph, id string, measured, spacing float64) ([]paperdoc.Paragraph, bool) {
	i := indexOf(ps, id)
	if i < 0 {
		return ps, false
	}
	diff := measured - ps[i].Height
	if math.Abs(diff) < MeasureTolerance {
		return ps, false
	}
	shifted := slices.Clone(ps)
	shifted[i].Height = measured
	for j := i + 1; j < len(shifted); j++ {
		shifted[j].Y += diff
	}
	out := e.RepositionFrom(shifted, i, spacing)
	return out, !sameGeometry(out, ps)
}

func indexOf(ps []paperdoc.Paragraph, id string) int {
	return slices.IndexFunc(ps, func(p paperdoc.Paragraph) bool { return p.ID == id })
}

func sameGeometry(a, b []paperdoc.Paragraph) bool {
	return slices.EqualFunc(a, b, func(x, y paperdoc.Paragraph) bool {
		return x.ID == y.ID && x.Y == y.Y && x.Height == y.Height
	})
}

// CheckOrder reports the first index i whose paragraph starts above the
// bottom of paragraph i-1 plus spacing, or -1 when the sequence is well laid
// out.
func CheckOrder(ps []paperdoc.Paragraph, spacing float64) int {
	for i := 1; i < len(ps); i++ {
		if ps[i].Y < ps[i-1].Bottom()+spacing {
			return i
		}
	}
	return -1
}

func MeasureParagraph(p paperdoc.Paragraph) float64 {
	return Default.Measure(p)
}

func RepositionFrom(ps []paperdoc.Paragraph, start int, spacing float64) []paperdoc.Paragraph {
	return Default.RepositionFrom(ps, start, spacing)
}

func InsertAt(ps []paperdoc.Paragraph, index int, p paperdoc.Paragraph, spacing float64) []paperdoc.Paragraph {
	return Default.InsertAt(ps, index, p, spacing)
}

func RemoveAt(ps []paperdoc.Paragraph, index int, spacing float64) []paperdoc.Paragraph {
	return Default.RemoveAt(ps, index, spacing)
}

func UpdateContent(ps []paperdoc.Paragraph, id, content string, spacing float64) []paperdoc.Paragraph {
	return Default.UpdateContent(ps, id, content, spacing)
}
