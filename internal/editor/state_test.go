package editor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/platform"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(paperdoc.Document{}, Options{
		Layout: layout.DefaultConfig(),
		Engine: layout.Default,
		Now:    func() time.Time { return testNow },
	})
}

func texts(s *State) []string {
	out := make([]string, 0, len(s.Doc().Paragraphs))
	for _, p := range s.Doc().Paragraphs {
		out = append(out, p.Content)
	}
	return out
}

func focusFirst(t *testing.T, s *State, text string) string {
	t.Helper()
	id := s.Doc().Paragraphs[0].ID
	s.Focus(id, 0)
	if text != "" && !s.InsertText(text) {
		t.Fatalf("insert %q failed", text)
	}
	return id
}

func TestNewStateHasOneEmptyParagraph(t *testing.T) {
	s := newTestState(t)
	ps := s.Doc().Paragraphs
	if len(ps) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(ps))
	}
	if ps[0].Y != 50 || ps[0].Height != 24 || ps[0].Content != "" {
		t.Fatalf("unexpected first paragraph: %+v", ps[0])
	}
	if s.Doc().Version != paperdoc.Version {
		t.Fatalf("unexpected version %q", s.Doc().Version)
	}
}

func TestEnterSplitsAtCaretAndFocusesAfterRender(t *testing.T) {
	s := newTestState(t)
	first := focusFirst(t, s, "hello world")
	s.Focus(first, 5)
	if !s.Enter() {
		t.Fatalf("enter was not applied")
	}

	if got := texts(s); len(got) != 2 || got[0] != "hello" || got[1] != " world" {
		t.Fatalf("unexpected paragraphs: %q", got)
	}
	if id, _ := s.Focused(); id != first {
		t.Fatalf("focus moved before render")
	}

	effects := s.AfterRender()
	if len(effects) != 1 {
		t.Fatalf("expected 1 effect, got %d", len(effects))
	}
	id, caret := s.Focused()
	if id != s.Doc().Paragraphs[1].ID || caret != 0 {
		t.Fatalf("unexpected focus %q caret %d", id, caret)
	}
}

func TestEnterAtEndShiftsFollowingParagraph(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "A")
	s.Enter()
	s.AfterRender()
	s.InsertText("B")
	s.Focus(s.Doc().Paragraphs[0].ID, 1)

	ps := s.Doc().Paragraphs
	if ps[0].Y != 50 || ps[1].Y != 86 {
		t.Fatalf("unexpected start layout: %v %v", ps[0].Y, ps[1].Y)
	}
	s.Enter()
	ps = s.Doc().Paragraphs
	if len(ps) != 3 || ps[1].Content != "" {
		t.Fatalf("unexpected paragraphs: %q", texts(s))
	}
	if ps[0].Y != 50 || ps[1].Y != 86 || ps[2].Y != 86+24+12 {
		t.Fatalf("unexpected layout: %v %v %v", ps[0].Y, ps[1].Y, ps[2].Y)
	}
}

func TestShiftEnterIsIgnored(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "abc")
	if s.HandleEvent(platform.Event{Type: platform.EventKeyDown, Key: platform.KeyEnter, Mods: platform.ModShift}) {
		t.Fatalf("shift+enter should not be handled")
	}
	if len(s.Doc().Paragraphs) != 1 {
		t.Fatalf("shift+enter created a paragraph")
	}
}

func TestBackspaceMergesWithPreviousParagraph(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "a")
	s.Enter()
	s.AfterRender()
	s.InsertText("b")
	s.Focus(s.Doc().Paragraphs[1].ID, 0)
	s.Backspace()
	s.AfterRender()

	if got := texts(s); len(got) != 1 || got[0] != "ab" {
		t.Fatalf("unexpected merged text: %q", got)
	}
	if _, caret := s.Focused(); caret != 1 {
		t.Fatalf("unexpected caret after merge: %d", caret)
	}
}

func TestBackspaceRemovesEmptyParagraph(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "a")
	s.Enter()
	s.AfterRender()
	s.Enter()
	s.AfterRender()
	if len(s.Doc().Paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(s.Doc().Paragraphs))
	}
	before := s.Doc().Paragraphs
	s.Focus(before[1].ID, 0)
	s.Backspace()
	s.AfterRender()

	after := s.Doc().Paragraphs
	if len(after) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(after))
	}
	if after[1].Y != before[2].Y-(before[1].Height+12) {
		t.Fatalf("following paragraph not shifted up: %v", after[1].Y)
	}
	if id, caret := s.Focused(); id != before[0].ID || caret != 1 {
		t.Fatalf("unexpected focus %q caret %d", id, caret)
	}
}

func TestBackspaceKeepsSoleParagraph(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "")
	if s.Backspace() {
		t.Fatalf("sole paragraph must not be removed")
	}
	if len(s.Doc().Paragraphs) != 1 {
		t.Fatalf("document lost its paragraph")
	}
}

func TestInsertAndDelete(t *testing.T) {
	s := newTestState(t)
	id := focusFirst(t, s, "abcd")
	s.Focus(id, 2)
	s.InsertText("X")
	if got := s.FocusedText(); got != "abXcd" {
		t.Fatalf("unexpected insert result: %q", got)
	}
	s.DeleteForward()
	if got := s.FocusedText(); got != "abXd" {
		t.Fatalf("unexpected delete result: %q", got)
	}
	s.DeleteWordBackward()
	if got := s.FocusedText(); got != "d" {
		t.Fatalf("unexpected word delete result: %q", got)
	}
}

func TestInsertMultilineCreatesParagraphs(t *testing.T) {
	s := newTestState(t)
	id := focusFirst(t, s, "abc")
	s.Focus(id, 1)
	s.InsertText("X\r\nY")

	if got := texts(s); len(got) != 2 || got[0] != "aX" || got[1] != "Ybc" {
		t.Fatalf("unexpected paragraphs: %q", got)
	}
	s.AfterRender()
	if fid, caret := s.Focused(); fid != s.Doc().Paragraphs[1].ID || caret != 1 {
		t.Fatalf("unexpected focus %q caret %d", fid, caret)
	}

	s.Undo()
	if got := texts(s); len(got) != 1 || got[0] != "abc" {
		t.Fatalf("paste should undo in one step: %q", got)
	}
}

func TestInsertNormalizesToNFC(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "cafe\u0301")
	if got := s.FocusedText(); got != "caf\u00e9" {
		t.Fatalf("expected composed text, got %q", got)
	}
}

func TestCombiningMarkKeepsCaretInside(t *testing.T) {
	s := newTestState(t)
	id := focusFirst(t, s, "e")
	s.InsertText("\u0301")
	if fid, caret := s.Focused(); fid != id || caret != len("\u00e9") || s.FocusedText() != "\u00e9" {
		t.Fatalf("unexpected text %q caret %d", s.FocusedText(), caret)
	}
	if !s.Backspace() {
		t.Fatal("backspace after a combined mark should delete it")
	}
	if got := s.FocusedText(); got != "" {
		t.Fatalf("expected empty paragraph, got %q", got)
	}

	s.InsertText("e")
	s.InsertText("\u0301\nx")
	if got := texts(s); len(got) != 2 || got[0] != "\u00e9" || got[1] != "x" {
		t.Fatalf("unexpected paragraphs: %q", got)
	}
	s.AfterRender()
	if _, caret := s.Focused(); caret != 1 {
		t.Fatalf("unexpected caret %d", caret)
	}
}

func TestDeleteClampsStaleCaret(t *testing.T) {
	s := newTestState(t)
	id := focusFirst(t, s, "ab")
	p, _ := s.Doc().Paragraph(id)
	if !s.replaceRange(p, 1, 10) {
		t.Fatal("expected the range to be clamped and deleted")
	}
	if got := s.FocusedText(); got != "a" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestWordMovement(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "hello brave world")
	s.MoveWordLeft()
	if _, c := s.Focused(); c != len("hello brave ") {
		t.Fatalf("unexpected first word-left caret: %d", c)
	}
	s.MoveWordLeft()
	if _, c := s.Focused(); c != len("hello ") {
		t.Fatalf("unexpected second word-left caret: %d", c)
	}
	s.MoveWordRight()
	if _, c := s.Focused(); c != len("hello brave") {
		t.Fatalf("unexpected word-right caret: %d", c)
	}
}

func TestProcessInputWaitsForRender(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "one")
	s.Enqueue(
		platform.Event{Type: platform.EventKeyDown, Key: platform.KeyEnter},
		platform.Event{Type: platform.EventTextInput, Text: "two"},
	)
	s.ProcessInput()
	if got := texts(s); len(got) != 2 || got[1] != "" {
		t.Fatalf("text was applied before the new paragraph rendered: %q", got)
	}

	s.AfterRender()
	s.ProcessInput()
	if got := texts(s); got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected paragraphs: %q", got)
	}
}

func TestUndoRedoCoalescesTyping(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "a")
	s.InsertText("b")
	s.InsertText("c")
	s.ToggleBold()

	s.Undo()
	if p, _ := s.FocusedParagraph(); p.Bold() || p.Content != "abc" {
		t.Fatalf("unexpected state after first undo: %+v", p)
	}
	s.Undo()
	if got := texts(s); got[0] != "" {
		t.Fatalf("typing should undo together, got %q", got)
	}
	if s.Undo() {
		t.Fatalf("history should be empty")
	}
	s.Redo()
	s.Redo()
	if p := s.Doc().Paragraphs[0]; !p.Bold() || p.Content != "abc" {
		t.Fatalf("unexpected state after redo: %+v", p)
	}
}

func TestFontSizeStepsRelayout(t *testing.T) {
	s := newTestState(t)
	focusFirst(t, s, "x")
	s.ToggleBold()
	s.StepFontSize(2)
	p := s.Doc().Paragraphs[0]
	if p.EffectiveFontSize() != 18 || p.Height != 27 {
		t.Fatalf("unexpected size %v height %v", p.EffectiveFontSize(), p.Height)
	}
	s.StepFontSize(-2)
	p = s.Doc().Paragraphs[0]
	if p.Formatting == nil || p.Formatting.FontSize != 0 || !p.Formatting.Bold {
		t.Fatalf("expected size override cleared and bold kept: %+v", p.Formatting)
	}
	for range 50 {
		s.StepFontSize(-2)
	}
	if got := s.Doc().Paragraphs[0].EffectiveFontSize(); got != minFontSize {
		t.Fatalf("font size not clamped: %v", got)
	}
}

type toolRecorder struct {
	view drawing.ViewState
}

func (r *toolRecorder) ViewState() drawing.ViewState              { return r.view }
func (r *toolRecorder) Elements() []json.RawMessage               { return nil }
func (r *toolRecorder) Files() map[string]json.RawMessage         { return nil }
func (r *toolRecorder) UpdateScene(u drawing.SceneUpdate)         { r.apply(u) }
func (r *toolRecorder) apply(u drawing.SceneUpdate) {
	if u.View != nil {
		r.view = u.View.Apply(r.view)
	}
}

func TestPointerDownRoutesByIntent(t *testing.T) {
	engine := &toolRecorder{view: drawing.ViewState{Zoom: 1}}
	adapter := drawing.NewAdapter(nil)
	adapter.Attach(engine)
	s := NewState(paperdoc.Document{}, Options{Layout: layout.DefaultConfig(), Engine: layout.Default, Drawing: adapter})
	focusFirst(t, s, "hello")
	s.Blur()

	// Document (400, 60) is inside the first paragraph; canvas adds the margins.
	if got := s.PointerDown(480, 110, 0); got != PointerText {
		t.Fatalf("expected text, got %v", got)
	}
	if id, caret := s.Focused(); id != s.Doc().Paragraphs[0].ID || caret != 5 {
		t.Fatalf("unexpected focus %q caret %d", id, caret)
	}
	if engine.view.ActiveTool != drawing.ToolSelection {
		t.Fatalf("expected selection tool, got %q", engine.view.ActiveTool)
	}

	if got := s.PointerDown(480, 130, 0); got != PointerDraw {
		t.Fatalf("expected drawing below the paragraph, got %v", got)
	}
	if id, _ := s.Focused(); id != "" {
		t.Fatalf("drawing should blur the paragraph")
	}
	if engine.view.ActiveTool != drawing.ToolFreedraw {
		t.Fatalf("expected freedraw tool, got %q", engine.view.ActiveTool)
	}

	if got := s.PointerDown(100, 110, 0); got != PointerDraw {
		t.Fatalf("expected drawing left of the column, got %v", got)
	}
	if got := s.PointerDown(480, 110, platform.ModAlt); got != PointerDraw {
		t.Fatalf("alt should force drawing, got %v", got)
	}

	if got := s.PointerDown(480, 350, platform.ModCtrl); got != PointerPlaced {
		t.Fatalf("expected placed paragraph, got %v", got)
	}
	ps := s.Doc().Paragraphs
	if len(ps) != 2 || ps[1].Y != 86 {
		t.Fatalf("unexpected placement: %+v", ps)
	}
	s.AfterRender()
	if id, _ := s.Focused(); id != ps[1].ID {
		t.Fatalf("placed paragraph should take focus")
	}
}

func TestPointerDownFollowsViewport(t *testing.T) {
	engine := &toolRecorder{view: drawing.ViewState{ScrollY: -100, Zoom: 2}}
	adapter := drawing.NewAdapter(nil)
	adapter.Attach(engine)
	s := NewState(paperdoc.Document{}, Options{Layout: layout.DefaultConfig(), Engine: layout.Default, Drawing: adapter})

	// Document y 60 maps to (60+50)*2-100 = 120.
	if got := s.PointerDown((400+80)*2, 120, 0); got != PointerText {
		t.Fatalf("expected text under zoom, got %v", got)
	}
}

func TestPanKeepsRevision(t *testing.T) {
	s := newTestState(t)
	rev := s.Revision()
	if s.MergeScene(nil, map[string]json.RawMessage{"scrollY": json.RawMessage(`-80`)}, nil) {
		t.Fatal("a pan should not count as an edit")
	}
	if s.Revision() != rev || s.History().CanUndo() {
		t.Fatalf("pan changed revision %d -> %d or history", rev, s.Revision())
	}
	if got := string(s.Doc().Scene.AppState["scrollY"]); got != "-80" {
		t.Fatalf("view was not kept: %q", got)
	}
}

func TestReportHeightKeepsFormalHeight(t *testing.T) {
	s := newTestState(t)
	id := focusFirst(t, s, "short")
	rev := s.Revision()
	if s.ReportHeight(id, 90) {
		t.Fatal("a measured height should not override the recompute")
	}
	p, _ := s.Doc().Paragraph(id)
	if p.Height != 24 || s.Revision() != rev {
		t.Fatalf("unexpected height %v or revision change %d -> %d", p.Height, rev, s.Revision())
	}
}
