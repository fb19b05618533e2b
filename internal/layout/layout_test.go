package layout

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

const spacing = 12.0

func para(id, content string, y float64) paperdoc.Paragraph {
	cfg := DefaultConfig()
	p := Default.NewParagraph(cfg, id, y)
	p.Content = content
	p.Height = Default.Measure(p)
	return p
}

func laidOut(contents ...string) []paperdoc.Paragraph {
	ps := make([]paperdoc.Paragraph, 0, len(contents))
	for i, c := range contents {
		ps = append(ps, para(fmt.Sprintf("p%d", i), c, 50))
	}
	return RepositionFrom(ps, 0, spacing)
}

func randomContent(r *rand.Rand) string {
	n := r.IntN(300)
	var b strings.Builder
	for range n {
		if r.IntN(6) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(byte('a' + r.IntN(26)))
	}
	return b.String()
}

func TestMeasureHeightEmpty(t *testing.T) {
	for _, tc := range []struct{ fs, lh, w float64 }{
		{16, 1.5, 640}, {9, 1, 1}, {72, 2.25, 3000}, {0.5, 0.5, 0.25},
	} {
		assert.Equal(t, tc.fs*tc.lh, MeasureHeight("", tc.fs, tc.lh, tc.w))
		assert.Equal(t, tc.fs*tc.lh, MeasureHeight("  \t ", tc.fs, tc.lh, tc.w))
	}
}

func TestMeasureHeightWraps(t *testing.T) {
	// 640 / (16*0.6) = 66 characters per line.
	assert.Equal(t, 24.0, MeasureHeight(strings.Repeat("a", 66), 16, 1.5, 640))
	assert.Equal(t, 48.0, MeasureHeight(strings.Repeat("a", 67), 16, 1.5, 640))
	assert.Equal(t, 24.0, MeasureHeight("héllo", 16, 1.5, 640))
	// A column narrower than one glyph still fits a character per line.
	assert.Equal(t, 3*24.0, MeasureHeight("abc", 16, 1.5, 2))
}

func TestMeasureHeightMonotonic(t *testing.T) {
	for _, w := range []float64{1, 50, 640, 1200} {
		prev := 0.0
		for n := 0; n <= 400; n++ {
			h := MeasureHeight(strings.Repeat("w", n), 16, 1.5, w)
			require.GreaterOrEqual(t, h, prev, "width %v length %d", w, n)
			prev = h
		}
	}
}

func TestWrapLinesAgreesWithHeight(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		c := randomContent(r)
		rows := WrapLines(c, 16, 640)
		assert.Equal(t, float64(len(rows))*24, MeasureHeight(c, 16, 1.5, 640), "content %q", c)
		assert.Equal(t, c, strings.Join(rows, ""))
	}
}

func TestRepositionFromKeepsOrderAndIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for range 100 {
		n := 1 + r.IntN(8)
		contents := make([]string, n)
		for i := range contents {
			contents[i] = randomContent(r)
		}
		ps := laidOut(contents...)
		require.Equal(t, -1, CheckOrder(ps, spacing))

		k := r.IntN(n)
		edited := append([]paperdoc.Paragraph(nil), ps...)
		edited[k].Content = randomContent(r)

		once := RepositionFrom(edited, k, spacing)
		assert.Equal(t, -1, CheckOrder(once, spacing))
		assert.Equal(t, once, RepositionFrom(once, k, spacing))
		assert.Equal(t, ps[:k], once[:k], "paragraphs before start must not move")
	}
}

func TestRepositionFromKeepsFirstAnchor(t *testing.T) {
	ps := []paperdoc.Paragraph{para("a", strings.Repeat("x", 200), 300)}
	out := RepositionFrom(ps, 0, spacing)
	assert.Equal(t, 300.0, out[0].Y)
	assert.Equal(t, 4*24.0, out[0].Height)
}

func TestRepositionFromOutOfRange(t *testing.T) {
	ps := laidOut("a", "b")
	assert.Equal(t, ps, RepositionFrom(ps, 2, spacing))
	assert.Equal(t, ps, RepositionFrom(ps, -1, spacing))
	assert.Empty(t, RepositionFrom(nil, 0, spacing))
}

func TestInsertAfterFirstShiftsFollowing(t *testing.T) {
	ps := laidOut("A", "B")
	require.Equal(t, 50.0, ps[0].Y)
	require.Equal(t, 24.0, ps[0].Height)
	require.Equal(t, 86.0, ps[1].Y)

	out := InsertAt(ps, 1, para("n", "", 0), spacing)
	require.Len(t, out, 3)
	assert.Equal(t, ps[0], out[0])
	assert.Equal(t, "n", out[1].ID)
	assert.Equal(t, 86.0, out[1].Y)
	assert.Equal(t, 86+24+spacing, out[2].Y)
	assert.Equal(t, 86.0, ps[1].Y, "input must not change")
}

func TestInsertIntoEmptyKeepsOwnY(t *testing.T) {
	out := InsertAt(nil, 0, para("n", "", 140), spacing)
	require.Len(t, out, 1)
	assert.Equal(t, 140.0, out[0].Y)
}

func TestInsertRemoveRoundTrip(t *testing.T) {
	ps := laidOut("first", strings.Repeat("long ", 40), "", "last")
	for i := 0; i <= len(ps); i++ {
		inserted := InsertAt(ps, i, para("new", strings.Repeat("z", 90), 0), spacing)
		require.Len(t, inserted, len(ps)+1)
		assert.Equal(t, -1, CheckOrder(inserted, spacing))
		assert.Equal(t, ps, RemoveAt(inserted, i, spacing), "index %d", i)
	}
}

func TestInsertAtOutOfRange(t *testing.T) {
	ps := laidOut("a")
	assert.Equal(t, ps, InsertAt(ps, 3, para("x", "", 0), spacing))
	assert.Equal(t, ps, InsertAt(ps, -1, para("x", "", 0), spacing))
}

func TestRemoveAtShiftsUp(t *testing.T) {
	ps := laidOut("A", "", "C")
	out := RemoveAt(ps, 1, spacing)
	require.Len(t, out, 2)
	assert.Equal(t, ps[2].Y-(ps[1].Height+spacing), out[1].Y)

	assert.Equal(t, ps, RemoveAt(ps, 3, spacing))
	assert.Empty(t, RemoveAt(laidOut("solo"), 0, spacing))
}

func TestUpdateContent(t *testing.T) {
	ps := laidOut("A", "B", "C")
	out := UpdateContent(ps, "p1", strings.Repeat("b", 140), spacing)
	assert.Equal(t, 3*24.0, out[1].Height)
	assert.Equal(t, out[1].Y+out[1].Height+spacing, out[2].Y)
	assert.Equal(t, "B", ps[1].Content)

	assert.Equal(t, ps, UpdateContent(ps, "missing", "x", spacing))
}

func TestFormattingFontSizeChangesLineBox(t *testing.T) {
	ps := laidOut("A", "B")
	big := ps[0].WithFormatting(paperdoc.Formatting{FontSize: 32})
	out := Default.UpdateParagraph(ps, big, spacing)
	assert.Equal(t, 48.0, out[0].Height)
	assert.Equal(t, 50+48+spacing, out[1].Y)
}

func TestReconcileMeasured(t *testing.T) {
	ps := laidOut("A", "B")

	same, changed := Default.ReconcileMeasured(ps, "p0", 24.6, spacing)
	assert.False(t, changed)
	assert.Equal(t, ps, same)

	out, changed := Default.ReconcileMeasured(ps, "p0", 60, spacing)
	assert.False(t, changed, "formal recompute wins over the measured height")
	assert.Equal(t, ps, out)

	drifted := append([]paperdoc.Paragraph(nil), ps...)
	drifted[0].Height = 10
	out, changed = Default.ReconcileMeasured(drifted, "p0", 40, spacing)
	assert.True(t, changed)
	assert.Equal(t, ps, out)

	_, changed = Default.ReconcileMeasured(ps, "nope", 100, spacing)
	assert.False(t, changed)
}

func TestNewParagraph(t *testing.T) {
	cfg := DefaultConfig()
	p := Default.NewParagraph(cfg, "x", cfg.MarginTop)
	assert.Equal(t, paperdoc.ParagraphType, p.Type)
	assert.Equal(t, 80.0, p.X)
	assert.Equal(t, 640.0, p.Width)
	assert.Equal(t, 50.0, p.Y)
	assert.Equal(t, 24.0, p.Height)
	assert.Equal(t, 720.0, cfg.ColumnRight())
}

func TestFaceMeasurer(t *testing.T) {
	m, err := NewFaceMeasurer()
	require.NoError(t, err)
	st := Style{FontSize: 16, LineHeight: 1.5}

	assert.Equal(t, 24.0, m.Height("", st, 640))
	assert.Equal(t, []string{""}, m.Wrap("", st, 640))

	words := strings.Fields(strings.Repeat("lorem ipsum dolor sit amet ", 40))
	prev := 0.0
	for i := range words {
		h := m.Height(strings.Join(words[:i+1], " "), st, 300)
		require.GreaterOrEqual(t, h, prev)
		prev = h
	}
	assert.Greater(t, prev, 24.0)

	face, err := m.Face(st)
	require.NoError(t, err)
	for _, row := range m.Wrap(strings.Repeat("x", 500), st, 120) {
		assert.NotEmpty(t, row)
		assert.LessOrEqual(t, float64(font.MeasureString(face, row))/64, 120.0)
	}

	e := Engine{Measurer: m}
	ps := e.RepositionFrom([]paperdoc.Paragraph{para("a", strings.Repeat("word ", 100), 50), para("b", "", 0)}, 0, spacing)
	assert.Equal(t, -1, CheckOrder(ps, spacing))
}
