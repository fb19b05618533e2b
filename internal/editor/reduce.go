package editor

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/router"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// Action is a document mutation request.
type Action interface {
	isAction()
}

// SplitParagraph breaks paragraph ID at byte offset At; the text after the
// caret moves into a new paragraph NewID placed right after it.
type SplitParagraph struct {
	ID    string
	At    int
	NewID string
}

// InsertParagraphAfter adds a paragraph after AfterID, or at the end when
// AfterID is empty.
type InsertParagraphAfter struct {
	AfterID string
	NewID   string
	Content string
}

// PlaceParagraph adds an empty paragraph where a pointer at document Y
// would keep the sequence ordered.
type PlaceParagraph struct {
	Y     float64
	NewID string
}

type UpdateContent struct {
	ID      string
	Content string
}

// RemoveParagraph is refused for the last remaining paragraph.
type RemoveParagraph struct {
	ID string
}

// MergeWithPrevious appends paragraph ID to the one before it.
type MergeWithPrevious struct {
	ID string
}

type SetFormatting struct {
	ID         string
	Formatting paperdoc.Formatting
}

// MeasuredHeight reports a height the host measured while rendering.
type MeasuredHeight struct {
	ID     string
	Height float64
}

// MergeScene is a drawing engine change notification.
type MergeScene struct {
	Elements []json.RawMessage
	AppState map[string]json.RawMessage
	Files    map[string]json.RawMessage
}

// ReplaceDocument swaps in a loaded or imported document.
type ReplaceDocument struct {
	Doc paperdoc.Document
}

func (SplitParagraph) isAction()       {}
func (InsertParagraphAfter) isAction() {}
func (PlaceParagraph) isAction()       {}
func (UpdateContent) isAction()        {}
func (RemoveParagraph) isAction()      {}
func (MergeWithPrevious) isAction()    {}
func (SetFormatting) isAction()        {}
func (MeasuredHeight) isAction()       {}
func (MergeScene) isAction()           {}
func (ReplaceDocument) isAction()      {}

// Effect is work for the host to do after it has rendered the committed
// document.
type Effect interface {
	isEffect()
}

// FocusEffect moves input focus to a paragraph with the caret at a byte
// offset.
type FocusEffect struct {
	ParagraphID string
	Caret       int
}

type BlurEffect struct{}

func (FocusEffect) isEffect() {}
func (BlurEffect) isEffect()  {}

type Result struct {
	Doc     paperdoc.Document
	Effects []Effect
	Changed bool
	// ViewOnly marks a Doc that differs from the input only in scroll and
	// zoom. Changed is false: a pan is not an edit.
	ViewOnly bool
}

// Reducer applies actions with a fixed layout configuration.
type Reducer struct {
	Layout layout.Config
	Engine layout.Engine
}

func NewReducer(cfg layout.Config, engine layout.Engine) Reducer {
	return Reducer{Layout: cfg, Engine: engine}
}

// Reduce applies a with the approximate measurer.
func Reduce(doc paperdoc.Document, cfg layout.Config, a Action, now time.Time) Result {
	return NewReducer(cfg, layout.Default).Reduce(doc, a, now)
}

// NewDocument is an empty document: one blank paragraph at the top margin.
func NewDocument(cfg layout.Config, now time.Time) paperdoc.Document {
	return NewReducer(cfg, layout.Default).NewDocument(now)
}

func (r Reducer) NewDocument(now time.Time) paperdoc.Document {
	ms := paperdoc.UnixMillis(now)
	return paperdoc.Document{
		Version:    paperdoc.Version,
		Paragraphs: []paperdoc.Paragraph{r.Engine.NewParagraph(r.Layout, paperdoc.NewParagraphID(), r.Layout.MarginTop)},
		Scene:      paperdoc.Scene{Elements: []json.RawMessage{}, AppState: map[string]json.RawMessage{}, Files: map[string]json.RawMessage{}},
		Metadata:   paperdoc.Metadata{Created: ms, Modified: ms},
	}
}

// Reduce returns the document after a. The input is never modified. When
// the action does not apply (unknown id, refused removal) the input comes
// back with Changed false.
func (r Reducer) Reduce(doc paperdoc.Document, a Action, now time.Time) Result {
	spacing := r.Layout.ParagraphSpacing
	unchanged := Result{Doc: doc}

	switch a := a.(type) {
	case SplitParagraph:
		i := doc.IndexOf(a.ID)
		if i < 0 {
			return unchanged
		}
		cur := doc.Paragraphs[i]
		at := clampToRuneBoundary(cur.Content, a.At)
		next := r.newParagraph(a.NewID, cur.Content[at:], cur.Formatting)
		cur.Content = cur.Content[:at]

		ps := slices.Insert(slices.Clip(slices.Clone(doc.Paragraphs)), i+1, next)
		ps[i] = cur
		return r.commit(doc, r.Engine.RepositionFrom(ps, i, spacing), now, FocusEffect{ParagraphID: next.ID})

	case InsertParagraphAfter:
		at := len(doc.Paragraphs)
		if a.AfterID != "" {
			i := doc.IndexOf(a.AfterID)
			if i < 0 {
				return unchanged
			}
			at = i + 1
		}
		p := r.newParagraph(a.NewID, cleanInput(a.Content), nil)
		p.Y = r.Layout.MarginTop
		ps := r.Engine.InsertAt(doc.Paragraphs, at, p, spacing)
		return r.commit(doc, ps, now, FocusEffect{ParagraphID: p.ID})

	case PlaceParagraph:
		p := r.newParagraph(a.NewID, "", nil)
		p.Y = a.Y
		at := router.FindInsertionIndex(a.Y, doc.Paragraphs)
		ps := r.Engine.InsertAt(doc.Paragraphs, at, p, spacing)
		return r.commit(doc, ps, now, FocusEffect{ParagraphID: p.ID})

	case UpdateContent:
		p, ok := doc.Paragraph(a.ID)
		content := cleanInput(a.Content)
		if !ok || p.Content == content {
			return unchanged
		}
		return r.commit(doc, r.Engine.UpdateContent(doc.Paragraphs, a.ID, content, spacing), now)

	case RemoveParagraph:
		i := doc.IndexOf(a.ID)
		if i < 0 || len(doc.Paragraphs) <= 1 {
			return unchanged
		}
		var focus FocusEffect
		if i > 0 {
			prev := doc.Paragraphs[i-1]
			focus = FocusEffect{ParagraphID: prev.ID, Caret: len(prev.Content)}
		} else {
			focus = FocusEffect{ParagraphID: doc.Paragraphs[1].ID}
		}
		return r.commit(doc, r.Engine.RemoveAt(doc.Paragraphs, i, spacing), now, focus)

	case MergeWithPrevious:
		i := doc.IndexOf(a.ID)
		if i <= 0 {
			return unchanged
		}
		ps := slices.Clone(doc.Paragraphs)
		prev := ps[i-1]
		caret := len(prev.Content)
		ps[i-1].Content = prev.Content + ps[i].Content
		ps = slices.Delete(ps, i, i+1)
		return r.commit(doc, r.Engine.RepositionFrom(ps, i-1, spacing), now, FocusEffect{ParagraphID: prev.ID, Caret: caret})

	case SetFormatting:
		p, ok := doc.Paragraph(a.ID)
		if !ok {
			return unchanged
		}
		next := p.WithFormatting(a.Formatting)
		if formattingEqual(p.Formatting, next.Formatting) {
			return unchanged
		}
		return r.commit(doc, r.Engine.UpdateParagraph(doc.Paragraphs, next, spacing), now)

	case MeasuredHeight:
		ps, changed := r.Engine.ReconcileMeasured(doc.Paragraphs, a.ID, a.Height, spacing)
		if !changed {
			return unchanged
		}
		return r.commit(doc, ps, now)

	case MergeScene:
		out := doc
		out.Scene = paperdoc.MergeScene(doc.Scene, a.Elements, a.AppState, a.Files)
		switch {
		case sceneEqual(doc.Scene, out.Scene, false):
			return unchanged
		case sceneEqual(doc.Scene, out.Scene, true):
			return Result{Doc: out, ViewOnly: true}
		}
		return Result{Doc: paperdoc.Touch(out, now), Changed: true}

	case ReplaceDocument:
		return Result{Doc: r.normalize(a.Doc, now), Effects: []Effect{BlurEffect{}}, Changed: true}
	}
	return unchanged
}

func (r Reducer) commit(doc paperdoc.Document, ps []paperdoc.Paragraph, now time.Time, effects ...Effect) Result {
	doc.Paragraphs = ps
	return Result{Doc: paperdoc.Touch(doc, now), Effects: effects, Changed: true}
}

func (r Reducer) newParagraph(id, content string, f *paperdoc.Formatting) paperdoc.Paragraph {
	if id == "" {
		id = paperdoc.NewParagraphID()
	}
	p := r.Engine.NewParagraph(r.Layout, id, 0)
	p.Content = content
	if f != nil {
		p = p.WithFormatting(*f)
	}
	return p
}

// normalize makes a loaded document safe to edit: at least one paragraph,
// ids and metrics filled in, laid out from the top.
func (r Reducer) normalize(doc paperdoc.Document, now time.Time) paperdoc.Document {
	if doc.Version == "" {
		doc.Version = paperdoc.Version
	}
	ps := make([]paperdoc.Paragraph, 0, max(1, len(doc.Paragraphs)))
	seen := make(map[string]bool, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		if p.ID == "" || seen[p.ID] {
			p.ID = paperdoc.NewParagraphID()
		}
		seen[p.ID] = true
		if p.Type == "" {
			p.Type = paperdoc.ParagraphType
		}
		if p.Width <= 0 {
			p.X = r.Layout.ColumnLeft()
			p.Width = r.Layout.ColumnWidth()
		}
		if p.FontSize <= 0 {
			p.FontSize = r.Layout.DefaultFontSize
		}
		if p.LineHeight <= 0 {
			p.LineHeight = r.Layout.LineHeight
		}
		ps = append(ps, p)
	}
	if len(ps) == 0 {
		ps = append(ps, r.Engine.NewParagraph(r.Layout, paperdoc.NewParagraphID(), r.Layout.MarginTop))
	}
	doc.Paragraphs = r.Engine.RepositionFrom(ps, 0, r.Layout.ParagraphSpacing)

	doc.Scene = paperdoc.CompactScene(doc.Scene)
	if doc.Scene.Elements == nil {
		doc.Scene.Elements = []json.RawMessage{}
	}
	if doc.Scene.AppState == nil {
		doc.Scene.AppState = map[string]json.RawMessage{}
	}
	if doc.Scene.Files == nil {
		doc.Scene.Files = map[string]json.RawMessage{}
	}
	if doc.Metadata.Created == 0 {
		doc = paperdoc.Touch(doc, now)
	}
	return doc
}

// sceneEqual compares scenes payload by payload. With skipView the
// viewport keys of the app state are ignored.
func sceneEqual(a, b paperdoc.Scene, skipView bool) bool {
	if !slices.EqualFunc(a.Elements, b.Elements, rawEqual) || !rawMapEqual(a.Files, b.Files, nil) {
		return false
	}
	var skip func(string) bool
	if skipView {
		skip = drawing.IsViewKey
	}
	return rawMapEqual(a.AppState, b.AppState, skip)
}

func rawEqual(a, b json.RawMessage) bool { return string(a) == string(b) }

func rawMapEqual(a, b map[string]json.RawMessage, skip func(string) bool) bool {
	for _, m := range [2][2]map[string]json.RawMessage{{a, b}, {b, a}} {
		for k, v := range m[0] {
			if skip != nil && skip(k) {
				continue
			}
			w, ok := m[1][k]
			if !ok || !rawEqual(v, w) {
				return false
			}
		}
	}
	return true
}

func formattingEqual(a, b *paperdoc.Formatting) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
