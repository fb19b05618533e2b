package editor

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/platform"
	"github.com/elloloop/paperlike/internal/router"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

const (
	minFontSize  = 8
	maxFontSize  = 72
	fontSizeStep = 2
)

type Options struct {
	Layout     layout.Config
	Engine     layout.Engine
	Drawing    *drawing.Adapter
	Logger     *zap.Logger
	Now        func() time.Time
	MaxHistory int
}

// PointerResult says what a pointer press turned into.
type PointerResult int

const (
	PointerDraw PointerResult = iota
	PointerText
	PointerPlaced
)

// State is an editing session. It holds the one current Document and is
// driven from a single goroutine, the host's event loop.
type State struct {
	reducer Reducer
	drawing *drawing.Adapter
	logger  *zap.Logger
	now     func() time.Time

	doc      paperdoc.Document
	revision uint64
	focused  string
	caret    int

	pending []Effect
	inbox   []platform.Event
	history *History
	typing  string
	batch   bool
}

// NewState starts a session on doc. A zero Document starts a new one.
func NewState(doc paperdoc.Document, opts Options) *State {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Drawing == nil {
		opts.Drawing = drawing.NewAdapter(opts.Logger)
	}
	s := &State{
		reducer: NewReducer(opts.Layout, opts.Engine),
		drawing: opts.Drawing,
		logger:  opts.Logger,
		now:     opts.Now,
		history: NewHistory(opts.MaxHistory),
	}
	if doc.Version == "" && len(doc.Paragraphs) == 0 {
		s.doc = s.reducer.NewDocument(s.now())
	} else {
		s.doc = s.reducer.normalize(doc, s.now())
	}
	return s
}

func (s *State) Doc() paperdoc.Document { return s.doc }

// Revision increases with every committed change.
func (s *State) Revision() uint64 { return s.revision }

func (s *State) Layout() layout.Config { return s.reducer.Layout }

func (s *State) Engine() layout.Engine { return s.reducer.Engine }

func (s *State) Drawing() *drawing.Adapter { return s.drawing }

func (s *State) History() *History { return s.history }

// Focused returns the focused paragraph id and caret, or "" when no
// paragraph has focus.
func (s *State) Focused() (string, int) { return s.focused, s.caret }

func (s *State) FocusedParagraph() (paperdoc.Paragraph, bool) {
	if s.focused == "" {
		return paperdoc.Paragraph{}, false
	}
	return s.doc.Paragraph(s.focused)
}

func (s *State) FocusedText() string {
	p, _ := s.FocusedParagraph()
	return p.Content
}

// Dispatch commits a synchronously and queues its effects for AfterRender.
func (s *State) Dispatch(a Action) bool {
	res, ok := s.apply(a)
	if ok {
		s.pending = append(s.pending, res.Effects...)
	}
	return ok
}

func (s *State) apply(a Action) (Result, bool) {
	res := s.reducer.Reduce(s.doc, a, s.now())
	if !res.Changed {
		if res.ViewOnly {
			s.doc = res.Doc
		}
		return res, false
	}
	s.record(a)
	s.doc = res.Doc
	s.revision++
	s.settleFocus()
	return res, true
}

func (s *State) record(a Action) {
	if s.batch {
		return
	}
	switch a := a.(type) {
	case MeasuredHeight:
		return
	case MergeScene:
		// App-state changes alone are not undoable.
		if a.Elements == nil && a.Files == nil {
			return
		}
		s.typing = ""
	case UpdateContent:
		// Consecutive edits of one paragraph undo together.
		if a.ID == s.typing {
			return
		}
		s.typing = a.ID
	default:
		s.typing = ""
	}
	s.history.push(s.snapshot())
}

func (s *State) snapshot() snapshot {
	return snapshot{doc: s.doc, focused: s.focused, caret: s.caret}
}

func (s *State) settleFocus() {
	if s.focused == "" {
		return
	}
	p, ok := s.doc.Paragraph(s.focused)
	if !ok {
		s.focused, s.caret = "", 0
		return
	}
	s.caret = clampToRuneBoundary(p.Content, s.caret)
}

// PendingEffects reports whether committed effects still wait for a render.
func (s *State) PendingEffects() bool { return len(s.pending) > 0 }

// AfterRender applies queued effects. The host calls it once the document
// committed by the last Dispatch has been drawn, so a paragraph that was
// just created exists on screen before it takes focus.
func (s *State) AfterRender() []Effect {
	if len(s.pending) == 0 {
		return nil
	}
	effects := s.pending
	s.pending = nil
	for _, e := range effects {
		switch e := e.(type) {
		case FocusEffect:
			s.Focus(e.ParagraphID, e.Caret)
		case BlurEffect:
			s.Blur()
		}
	}
	return effects
}

func (s *State) Focus(id string, caret int) {
	p, ok := s.doc.Paragraph(id)
	if !ok {
		return
	}
	if id != s.focused {
		s.typing = ""
	}
	s.focused = id
	s.caret = clampToRuneBoundary(p.Content, caret)
}

func (s *State) Blur() {
	s.focused, s.caret, s.typing = "", 0, ""
}

// Mapper returns the current canvas/document transform. Before the drawing
// engine is attached the identity viewport is used.
func (s *State) Mapper() coords.Mapper {
	cfg := s.reducer.Layout
	m, err := s.drawing.Mapper(cfg.MarginLeft, cfg.MarginTop)
	if errors.Is(err, drawing.ErrNotReady) {
		return coords.NewMapper(coords.Viewport{Zoom: 1}, cfg.MarginLeft, cfg.MarginTop)
	}
	return m
}

func (s *State) bounds() router.Bounds {
	cfg := s.reducer.Layout
	return router.Bounds{DocumentWidth: cfg.DocumentWidth, MarginLeft: cfg.MarginLeft, MarginRight: cfg.MarginRight}
}

// PointerDown routes a press at canvas coordinates. Alt forces drawing even
// over text. Command on empty column space places a new paragraph there.
func (s *State) PointerDown(canvasX, canvasY float64, mods platform.Modifiers) PointerResult {
	pt := s.Mapper().ToDoc(coords.Point{X: canvasX, Y: canvasY})
	x, y := pt.X, pt.Y

	if mods.Has(platform.ModAlt) {
		s.startDrawing()
		return PointerDraw
	}
	hit := router.Route(x, y, s.doc.Paragraphs, s.bounds())
	switch {
	case hit.Intent == router.IntentText:
		p := s.doc.Paragraphs[hit.Index]
		s.drawing.SetActiveTool(drawing.ToolSelection)
		s.Focus(p.ID, s.reducer.Engine.CaretAt(p, x, y))
		return PointerText
	case mods.Command() && s.bounds().InColumn(x):
		s.drawing.SetActiveTool(drawing.ToolSelection)
		if s.Dispatch(PlaceParagraph{Y: y}) {
			return PointerPlaced
		}
	}
	s.startDrawing()
	return PointerDraw
}

func (s *State) startDrawing() {
	s.Blur()
	s.drawing.SetActiveTool(drawing.ToolFreedraw)
}

// Enqueue buffers host input for ProcessInput.
func (s *State) Enqueue(evs ...platform.Event) {
	s.inbox = append(s.inbox, evs...)
}

// ProcessInput handles buffered events in order. It stops as soon as an
// event leaves effects waiting for a render; the rest stay buffered so
// that keys typed after Enter land in the new paragraph.
func (s *State) ProcessInput() {
	n := 0
	for n < len(s.inbox) && !s.PendingEffects() {
		s.HandleEvent(s.inbox[n])
		n++
	}
	s.inbox = append(s.inbox[:0], s.inbox[n:]...)
}

// HandleEvent applies one editing event and reports whether it was used.
func (s *State) HandleEvent(ev platform.Event) bool {
	switch ev.Type {
	case platform.EventMouseDown:
		s.PointerDown(ev.X, ev.Y, ev.Mods)
		return true
	case platform.EventTextInput:
		if s.focused == "" || ev.Text == "" {
			return false
		}
		s.InsertText(ev.Text)
		return true
	case platform.EventKeyDown:
		return s.handleKey(ev.Key, ev.Mods)
	}
	return false
}

func (s *State) handleKey(key string, mods platform.Modifiers) bool {
	if mods.Command() {
		switch strings.ToLower(key) {
		case "z":
			if mods.Has(platform.ModShift) {
				return s.Redo()
			}
			return s.Undo()
		case "y":
			return s.Redo()
		case "b":
			return s.ToggleBold()
		case "i":
			return s.ToggleItalic()
		case ".":
			return s.StepFontSize(fontSizeStep)
		case ",":
			return s.StepFontSize(-fontSizeStep)
		}
	}
	if s.focused == "" {
		return false
	}
	word := mods.Command() || mods.Has(platform.ModAlt)
	switch key {
	case platform.KeyEnter:
		if mods.Has(platform.ModShift) {
			return false
		}
		return s.Enter()
	case platform.KeyBackspace:
		if word {
			return s.DeleteWordBackward()
		}
		return s.Backspace()
	case platform.KeyDelete:
		return s.DeleteForward()
	case platform.KeyLeft:
		if word {
			s.MoveWordLeft()
		} else {
			s.MoveLeft()
		}
	case platform.KeyRight:
		if word {
			s.MoveWordRight()
		} else {
			s.MoveRight()
		}
	case platform.KeyUp:
		s.MoveParagraph(-1)
	case platform.KeyDown:
		s.MoveParagraph(1)
	case platform.KeyHome:
		s.caret = 0
	case platform.KeyEnd:
		s.caret = len(s.FocusedText())
	case platform.KeyEscape:
		s.Blur()
	default:
		return false
	}
	return true
}

// InsertText inserts at the caret. Each newline starts a new paragraph.
func (s *State) InsertText(text string) bool {
	p, ok := s.FocusedParagraph()
	if !ok {
		return false
	}
	text = cleanInput(text)
	if text == "" {
		return false
	}
	parts := strings.Split(text, "\n")
	caret := clampToRuneBoundary(p.Content, s.caret)
	content := p.Content[:caret] + parts[0] + p.Content[caret:]
	if len(parts) == 1 {
		if _, ok := s.apply(UpdateContent{ID: p.ID, Content: content}); !ok {
			return false
		}
		s.caret = s.caretAfter(p.ID, p.Content[:caret]+parts[0])
		return true
	}

	// A multi-line paste is one undo step.
	s.history.push(s.snapshot())
	s.typing = ""
	s.batch = true
	defer func() { s.batch = false }()

	id := p.ID
	s.apply(UpdateContent{ID: id, Content: content})
	at := s.caretAfter(id, p.Content[:caret]+parts[0])
	for _, part := range parts[1:] {
		newID := paperdoc.NewParagraphID()
		s.apply(SplitParagraph{ID: id, At: at, NewID: newID})
		id, at = newID, 0
		if part != "" {
			cur, _ := s.doc.Paragraph(id)
			s.apply(UpdateContent{ID: id, Content: part + cur.Content})
			at = s.caretAfter(id, part)
		}
	}
	s.pending = append(s.pending, FocusEffect{ParagraphID: id, Caret: at})
	return true
}

// Enter splits the focused paragraph at the caret. Focus moves to the new
// paragraph after the next render.
func (s *State) Enter() bool {
	if s.focused == "" {
		return false
	}
	return s.Dispatch(SplitParagraph{ID: s.focused, At: s.caret, NewID: paperdoc.NewParagraphID()})
}

// Backspace deletes the rune before the caret. At the start of an empty
// paragraph the paragraph is removed, at the start of a non-empty one it
// is merged into the previous paragraph.
func (s *State) Backspace() bool {
	p, ok := s.FocusedParagraph()
	if !ok {
		return false
	}
	if s.caret > 0 {
		start := previousRuneBoundary(p.Content, s.caret)
		return s.replaceRange(p, start, s.caret)
	}
	if p.Content == "" {
		return s.Dispatch(RemoveParagraph{ID: p.ID})
	}
	return s.Dispatch(MergeWithPrevious{ID: p.ID})
}

// DeleteForward deletes the rune after the caret, or pulls the next
// paragraph up when the caret is at the end.
func (s *State) DeleteForward() bool {
	p, ok := s.FocusedParagraph()
	if !ok {
		return false
	}
	if s.caret < len(p.Content) {
		return s.replaceRange(p, s.caret, nextRuneBoundary(p.Content, s.caret))
	}
	i := s.doc.IndexOf(p.ID)
	if i+1 >= len(s.doc.Paragraphs) {
		return false
	}
	return s.Dispatch(MergeWithPrevious{ID: s.doc.Paragraphs[i+1].ID})
}

func (s *State) DeleteWordBackward() bool {
	p, ok := s.FocusedParagraph()
	if !ok {
		return false
	}
	if s.caret == 0 {
		return s.Backspace()
	}
	return s.replaceRange(p, previousWordBoundary(p.Content, s.caret), s.caret)
}

// caretAfter places the caret behind typed, the text before the caret, in
// paragraph id. Normalization may have merged typed with what follows, so
// the offset is measured on the normalized text and kept inside the stored
// content.
func (s *State) caretAfter(id, typed string) int {
	cur, _ := s.doc.Paragraph(id)
	return clampToRuneBoundary(cur.Content, len(cleanInput(typed)))
}

func (s *State) replaceRange(p paperdoc.Paragraph, start, end int) bool {
	end = clampToRuneBoundary(p.Content, end)
	start = clampToRuneBoundary(p.Content, min(start, end))
	if _, ok := s.apply(UpdateContent{ID: p.ID, Content: p.Content[:start] + p.Content[end:]}); !ok {
		return false
	}
	s.caret = start
	return true
}

func (s *State) MoveLeft() {
	if s.caret > 0 {
		s.caret = previousRuneBoundary(s.FocusedText(), s.caret)
		return
	}
	s.MoveParagraph(-1)
	s.caret = len(s.FocusedText())
}

func (s *State) MoveRight() {
	text := s.FocusedText()
	if s.caret < len(text) {
		s.caret = nextRuneBoundary(text, s.caret)
		return
	}
	if s.MoveParagraph(1) {
		s.caret = 0
	}
}

func (s *State) MoveWordLeft() {
	if s.caret == 0 {
		s.MoveLeft()
		return
	}
	s.caret = previousWordBoundary(s.FocusedText(), s.caret)
}

func (s *State) MoveWordRight() {
	if s.caret >= len(s.FocusedText()) {
		s.MoveRight()
		return
	}
	s.caret = nextWordBoundary(s.FocusedText(), s.caret)
}

// MoveParagraph moves focus delta paragraphs, keeping the caret offset
// where the target allows.
func (s *State) MoveParagraph(delta int) bool {
	i := s.doc.IndexOf(s.focused)
	j := i + delta
	if i < 0 || j < 0 || j >= len(s.doc.Paragraphs) {
		return false
	}
	s.Focus(s.doc.Paragraphs[j].ID, s.caret)
	return true
}

func (s *State) formatting() (paperdoc.Paragraph, paperdoc.Formatting, bool) {
	p, ok := s.FocusedParagraph()
	if !ok {
		return p, paperdoc.Formatting{}, false
	}
	var f paperdoc.Formatting
	if p.Formatting != nil {
		f = *p.Formatting
	}
	return p, f, true
}

func (s *State) ToggleBold() bool {
	p, f, ok := s.formatting()
	if !ok {
		return false
	}
	f.Bold = !f.Bold
	return s.Dispatch(SetFormatting{ID: p.ID, Formatting: f})
}

func (s *State) ToggleItalic() bool {
	p, f, ok := s.formatting()
	if !ok {
		return false
	}
	f.Italic = !f.Italic
	return s.Dispatch(SetFormatting{ID: p.ID, Formatting: f})
}

// StepFontSize changes the focused paragraph's size override. Landing on
// the base size clears the override.
func (s *State) StepFontSize(delta float64) bool {
	p, f, ok := s.formatting()
	if !ok {
		return false
	}
	size := min(max(p.EffectiveFontSize()+delta, minFontSize), maxFontSize)
	if size == p.FontSize {
		size = 0
	}
	f.FontSize = size
	return s.Dispatch(SetFormatting{ID: p.ID, Formatting: f})
}

// ReportHeight feeds a host-measured height back into layout. The formal
// recompute wins, so it commits nothing unless the stored geometry had
// drifted from it.
func (s *State) ReportHeight(id string, height float64) bool {
	return s.Dispatch(MeasuredHeight{ID: id, Height: height})
}

// MergeScene records a drawing engine change notification.
func (s *State) MergeScene(elements []json.RawMessage, appState, files map[string]json.RawMessage) bool {
	return s.Dispatch(MergeScene{Elements: elements, AppState: appState, Files: files})
}

// Replace swaps in a loaded or imported document and pushes its scene to
// the drawing engine.
func (s *State) Replace(doc paperdoc.Document) {
	s.Dispatch(ReplaceDocument{Doc: doc})
	s.drawing.Load(s.doc.Scene)
	s.logger.Debug("document replaced",
		zap.Int("paragraphs", len(s.doc.Paragraphs)),
		zap.Int("elements", len(s.doc.Scene.Elements)))
}

func (s *State) Undo() bool {
	snap, ok := s.history.Undo(s.snapshot())
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

func (s *State) Redo() bool {
	snap, ok := s.history.Redo(s.snapshot())
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

func (s *State) restore(snap snapshot) {
	s.doc = snap.doc
	s.revision++
	s.typing = ""
	s.pending = nil
	s.focused, s.caret = snap.focused, snap.caret
	s.settleFocus()
	s.drawing.Load(s.doc.Scene)
}
