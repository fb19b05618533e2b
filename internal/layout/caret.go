package layout

import (
	"math"
	"unicode/utf8"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// Advancer is implemented by measurers that know glyph advances.
type Advancer interface {
	Advance(s string, st Style) float64
}

func (Approximate) Advance(s string, st Style) float64 {
	return float64(utf8.RuneCountInString(s)) * st.FontSize * AvgCharWidthRatio
}

// Row is one wrapped line of a paragraph as a byte range of its content.
type Row struct {
	Start int
	End   int
	Text  string
}

func (e Engine) advance(s string, st Style) float64 {
	if a, ok := e.measurer().(Advancer); ok {
		return a.Advance(s, st)
	}
	return Approximate{}.Advance(s, st)
}

// Rows wraps p and records where each row starts in the content.
func (e Engine) Rows(p paperdoc.Paragraph) []Row {
	lines := e.Wrap(p)
	rows := make([]Row, 0, len(lines))
	off := 0
	for _, l := range lines {
		rows = append(rows, Row{Start: off, End: off + len(l), Text: l})
		off += len(l)
	}
	return rows
}

// CaretAt maps a document point to the nearest caret offset in p.
func (e Engine) CaretAt(p paperdoc.Paragraph, x, y float64) int {
	rows := e.Rows(p)
	st := StyleOf(p)
	box := st.LineBox()
	ri := 0
	if box > 0 {
		ri = int(math.Floor((y - p.Y) / box))
	}
	ri = min(max(ri, 0), len(rows)-1)
	row := rows[ri]

	rel := x - p.X
	best, bestDist := row.Start, math.Inf(1)
	for i := 0; i <= len(row.Text); {
		d := math.Abs(e.advance(row.Text[:i], st) - rel)
		if d < bestDist {
			best, bestDist = row.Start+i, d
		}
		if i == len(row.Text) {
			break
		}
		_, size := utf8.DecodeRuneInString(row.Text[i:])
		i += max(size, 1)
	}
	// The end of a non-final row is the start of the next one.
	if ri < len(rows)-1 && best == row.End && best > row.Start {
		_, size := utf8.DecodeLastRuneInString(row.Text)
		best -= size
	}
	return best
}

// CaretPoint is the document position of the top of the caret at offset
// caret, and the caret height.
func (e Engine) CaretPoint(p paperdoc.Paragraph, caret int) (x, y, h float64) {
	rows := e.Rows(p)
	st := StyleOf(p)
	ri := len(rows) - 1
	for i, r := range rows {
		if caret >= r.Start && caret < r.End {
			ri = i
			break
		}
	}
	row := rows[ri]
	caret = min(max(caret, row.Start), row.End)
	return p.X + e.advance(p.Content[row.Start:caret], st), p.Y + float64(ri)*st.LineBox(), st.LineBox()
}
