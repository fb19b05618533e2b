package layout

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// AvgCharWidthRatio approximates the advance of an average glyph as a
// fraction of the font size.
const AvgCharWidthRatio = 0.6

type Style struct {
	FontSize   float64
	LineHeight float64
	Bold       bool
	Italic     bool
}

func StyleOf(p paperdoc.Paragraph) Style {
	return Style{
		FontSize:   p.EffectiveFontSize(),
		LineHeight: p.LineHeight,
		Bold:       p.Bold(),
		Italic:     p.Italic(),
	}
}

func (s Style) LineBox() float64 {
	return s.FontSize * s.LineHeight
}

// Measurer turns paragraph content into wrapped rows and a height.
// Implementations must return exactly one line box for blank content and
// must never shrink when content is appended to.
type Measurer interface {
	Height(content string, st Style, width float64) float64
	Wrap(content string, st Style, width float64) []string
}

// Approximate is the character-count estimate. It is not glyph measurement.
type Approximate struct{}

func (Approximate) Height(content string, st Style, width float64) float64 {
	return MeasureHeight(content, st.FontSize, st.LineHeight, width)
}

func (Approximate) Wrap(content string, st Style, width float64) []string {
	return WrapLines(content, st.FontSize, width)
}

// MeasureHeight estimates the height of content wrapped into width.
func MeasureHeight(content string, fontSize, lineHeight, width float64) float64 {
	lineBox := fontSize * lineHeight
	if strings.TrimSpace(content) == "" {
		return lineBox
	}
	n := utf8.RuneCountInString(content)
	per := charsPerLine(fontSize, width)
	lines := (n + per - 1) / per
	if lines < 1 {
		lines = 1
	}
	return float64(lines) * lineBox
}

// WrapLines splits content into the rows MeasureHeight counts.
func WrapLines(content string, fontSize, width float64) []string {
	if strings.TrimSpace(content) == "" {
		return []string{content}
	}
	per := charsPerLine(fontSize, width)
	rows := make([]string, 0, utf8.RuneCountInString(content)/per+1)
	start, count := 0, 0
	for i := range content {
		if count == per {
			rows = append(rows, content[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(rows, content[start:])
}

func charsPerLine(fontSize, width float64) int {
	avg := fontSize * AvgCharWidthRatio
	if avg <= 0 || width <= 0 {
		return 1
	}
	n := math.Floor(width / avg)
	if math.IsNaN(n) || n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
