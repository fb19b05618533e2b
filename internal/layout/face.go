package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type faceKey struct {
	size   int
	bold   bool
	italic bool
}

// FaceMeasurer wraps on real glyph advances of the Go font family. Word
// wrapping is greedy, so appending text never reduces the row count.
// It caches faces and is not safe for concurrent use.
type FaceMeasurer struct {
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
	cache      map[faceKey]font.Face
}

func NewFaceMeasurer() (*FaceMeasurer, error) {
	m := &FaceMeasurer{cache: map[faceKey]font.Face{}}
	for _, f := range []struct {
		dst  **opentype.Font
		name string
		ttf  []byte
	}{
		{&m.regular, "regular", goregular.TTF},
		{&m.bold, "bold", gobold.TTF},
		{&m.italic, "italic", goitalic.TTF},
		{&m.boldItalic, "bold italic", gobolditalic.TTF},
	} {
		parsed, err := opentype.Parse(f.ttf)
		if err != nil {
			return nil, fmt.Errorf("layout: parse %s font: %w", f.name, err)
		}
		*f.dst = parsed
	}
	return m, nil
}

// Face returns the cached face for st. Size is rounded to whole pixels.
func (m *FaceMeasurer) Face(st Style) (font.Face, error) {
	key := faceKey{size: int(math.Round(st.FontSize)), bold: st.Bold, italic: st.Italic}
	if key.size < 1 {
		key.size = 1
	}
	if f, ok := m.cache[key]; ok {
		return f, nil
	}
	base := m.regular
	switch {
	case st.Bold && st.Italic:
		base = m.boldItalic
	case st.Bold:
		base = m.bold
	case st.Italic:
		base = m.italic
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: float64(key.size), DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	m.cache[key] = face
	return face, nil
}

func (m *FaceMeasurer) Height(content string, st Style, width float64) float64 {
	return float64(len(m.Wrap(content, st, width))) * st.LineBox()
}

// Wrap breaks content at spaces. Rows are contiguous slices of content:
// the spaces at a break stay at the end of the row they follow and do not
// count against the width.
func (m *FaceMeasurer) Wrap(content string, st Style, width float64) []string {
	if strings.TrimSpace(content) == "" {
		return []string{content}
	}
	face, err := m.Face(st)
	if err != nil {
		return WrapLines(content, st.FontSize, width)
	}
	advance := func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64
	}

	var rows []string
	start, pos := 0, 0
	lineW := 0.0
	hasWord := false
	for pos < len(content) {
		ws := skipFunc(content, pos, unicode.IsSpace)
		if ws == len(content) {
			break
		}
		we := skipFunc(content, ws, func(r rune) bool { return !unicode.IsSpace(r) })
		if hasWord {
			if w := advance(content[pos:we]); lineW+w <= width {
				lineW += w
				pos = we
				continue
			}
			rows = append(rows, content[start:ws])
			start = ws
		}
		// Words wider than the column are broken at rune boundaries.
		chunk := content[start:we]
		for width > 0 && advance(chunk) > width && utf8.RuneCountInString(chunk) > 1 {
			cut := fitPrefix(chunk, width, advance)
			rows = append(rows, chunk[:cut])
			start += cut
			chunk = content[start:we]
		}
		lineW = advance(chunk)
		hasWord = true
		pos = we
	}
	return append(rows, content[start:])
}

// Advance is the pen advance of s in the face for st.
func (m *FaceMeasurer) Advance(s string, st Style) float64 {
	face, err := m.Face(st)
	if err != nil {
		return Approximate{}.Advance(s, st)
	}
	return float64(font.MeasureString(face, s)) / 64
}

func skipFunc(s string, pos int, f func(rune) bool) int {
	for pos < len(s) {
		r, size := utf8.DecodeRuneInString(s[pos:])
		if !f(r) {
			break
		}
		pos += size
	}
	return pos
}

// fitPrefix returns the byte length of the longest prefix of word that fits
// in width, never less than one rune.
func fitPrefix(word string, width float64, advance func(string) float64) int {
	cut := 0
	for i := range word {
		if i > 0 && advance(word[:i]) > width {
			break
		}
		cut = i
	}
	if cut == 0 {
		for i := range word {
			if i > 0 {
				return i
			}
		}
		return len(word)
	}
	if advance(word) <= width {
		return len(word)
	}
	return cut
}
