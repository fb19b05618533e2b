package paperdoc

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Version       = "1.0.0"
	ParagraphType = "paragraph"
)

// Document is a value: mutations build a new Document and never write
// through the slices or maps of an existing one.
type Document struct {
	Version    string      `json:"version"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Scene      Scene       `json:"scene"`
	Metadata   Metadata    `json:"metadata"`
}

type Paragraph struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Content    string      `json:"content"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	FontSize   float64     `json:"fontSize"`
	LineHeight float64     `json:"lineHeight"`
	Formatting *Formatting `json:"formatting,omitempty"`
}

type Formatting struct {
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// Scene is owned by the drawing engine. Its payloads are kept as raw JSON
// and only ever replaced or merged key by key.
type Scene struct {
	Elements []json.RawMessage         `json:"elements"`
	AppState map[string]json.RawMessage `json:"appState"`
	Files    map[string]json.RawMessage `json:"files"`
}

// Metadata timestamps are unix milliseconds.
type Metadata struct {
	Created  int64 `json:"created"`
	Modified int64 `json:"modified"`
}

func NewParagraphID() string {
	return uuid.NewString()
}

// EffectiveFontSize is the formatting override when set, else the base size.
func (p Paragraph) EffectiveFontSize() float64 {
	if p.Formatting != nil && p.Formatting.FontSize > 0 {
		return p.Formatting.FontSize
	}
	return p.FontSize
}

func (p Paragraph) Bottom() float64 {
	return p.Y + p.Height
}

func (p Paragraph) Bold() bool {
	return p.Formatting != nil && p.Formatting.Bold
}

func (p Paragraph) Italic() bool {
	return p.Formatting != nil && p.Formatting.Italic
}

func (p Paragraph) IsBlank() bool {
	return strings.TrimSpace(p.Content) == ""
}

// WithFormatting returns a copy carrying its own Formatting value.
func (p Paragraph) WithFormatting(f Formatting) Paragraph {
	if f == (Formatting{}) {
		p.Formatting = nil
		return p
	}
	p.Formatting = &f
	return p
}

func UnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Touch returns doc with Modified set to now.
func Touch(doc Document, now time.Time) Document {
	doc.Metadata.Modified = UnixMillis(now)
	if doc.Metadata.Created == 0 {
		doc.Metadata.Created = doc.Metadata.Modified
	}
	return doc
}

func (d Document) IndexOf(id string) int {
	return slices.IndexFunc(d.Paragraphs, func(p Paragraph) bool { return p.ID == id })
}

func (d Document) Paragraph(id string) (Paragraph, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return Paragraph{}, false
	}
	return d.Paragraphs[i], true
}

// Clone deep-copies a document. Values are already safe to share; Clone is
// for handing a document to code that does not follow that convention.
func Clone(doc Document) Document {
	out := doc
	out.Paragraphs = make([]Paragraph, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		if p.Formatting != nil {
			f := *p.Formatting
			p.Formatting = &f
		}
		out.Paragraphs[i] = p
	}
	out.Scene = CloneScene(doc.Scene)
	return out
}

func CloneScene(s Scene) Scene {
	out := Scene{}
	if s.Elements != nil {
		out.Elements = make([]json.RawMessage, len(s.Elements))
		for i, e := range s.Elements {
			out.Elements[i] = slices.Clone(e)
		}
	}
	out.AppState = cloneRawMap(s.AppState)
	out.Files = cloneRawMap(s.Files)
	return out
}

// MergeScene applies a scene-change notification: elements are replaced when
// given, app-state keys are merged, files are replaced when given. Incoming
// payloads are stored compacted.
func MergeScene(s Scene, elements []json.RawMessage, appState, files map[string]json.RawMessage) Scene {
	out := s
	if elements != nil {
		out.Elements = compactAll(elements)
	}
	if len(appState) > 0 {
		merged := make(map[string]json.RawMessage, len(s.AppState)+len(appState))
		for k, v := range s.AppState {
			merged[k] = v
		}
		for k, v := range appState {
			merged[k] = compactRaw(v)
		}
		out.AppState = merged
	}
	if files != nil {
		out.Files = compactMap(files)
	}
	return out
}

func cloneRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
