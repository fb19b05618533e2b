package drawing

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/elloloop/paperlike/internal/coords"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// ErrNotReady is returned by queries issued before an engine is attached.
// It is a normal startup state, not something to show the user.
var ErrNotReady = errors.New("drawing: engine not ready")

type Tool string

const (
	ToolFreedraw  Tool = "freedraw"
	ToolSelection Tool = "selection"
	ToolText      Tool = "text"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolFreedraw, ToolSelection, ToolText:
		return true
	}
	return false
}

type ViewState struct {
	ScrollX    float64
	ScrollY    float64
	Zoom       float64
	ActiveTool Tool
}

func (v ViewState) Viewport() coords.Viewport {
	return coords.Viewport{ScrollX: v.ScrollX, ScrollY: v.ScrollY, Zoom: v.Zoom}
}

// ViewPatch changes only the non-nil fields.
type ViewPatch struct {
	ScrollX    *float64
	ScrollY    *float64
	Zoom       *float64
	ActiveTool *Tool
}

func (p ViewPatch) Apply(v ViewState) ViewState {
	if p.ScrollX != nil {
		v.ScrollX = *p.ScrollX
	}
	if p.ScrollY != nil {
		v.ScrollY = *p.ScrollY
	}
	if p.Zoom != nil {
		v.Zoom = *p.Zoom
	}
	if p.ActiveTool != nil {
		v.ActiveTool = *p.ActiveTool
	}
	return v
}

// SceneUpdate is a partial scene replacement. Nil Elements or Files leave
// the engine's current ones in place.
type SceneUpdate struct {
	Elements []json.RawMessage
	Files    map[string]json.RawMessage
	AppState map[string]json.RawMessage
	View     *ViewPatch
}

// Engine is what the editor needs from a drawing library.
type Engine interface {
	ViewState() ViewState
	Elements() []json.RawMessage
	Files() map[string]json.RawMessage
	UpdateScene(SceneUpdate)
}

type readiness int

const (
	uninitialized readiness = iota
	ready
)

// Adapter is the only path from the editor to the drawing engine. It owns
// the readiness check: queries fail with ErrNotReady until Attach, and
// mutations before then are dropped.
type Adapter struct {
	logger *zap.Logger
	state  readiness
	engine Engine
}

func NewAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger}
}

// Attach moves the adapter to ready. Attaching nil is ignored.
func (a *Adapter) Attach(e Engine) {
	if e == nil {
		return
	}
	a.engine = e
	a.state = ready
	a.logger.Debug("drawing engine attached")
}

func (a *Adapter) Ready() bool { return a.state == ready }

func (a *Adapter) ViewState() (ViewState, error) {
	if !a.Ready() {
		return ViewState{}, ErrNotReady
	}
	return a.engine.ViewState(), nil
}

func (a *Adapter) Elements() ([]json.RawMessage, error) {
	if !a.Ready() {
		return nil, ErrNotReady
	}
	return a.engine.Elements(), nil
}

func (a *Adapter) Files() (map[string]json.RawMessage, error) {
	if !a.Ready() {
		return nil, ErrNotReady
	}
	return a.engine.Files(), nil
}

// Mapper builds a coordinate mapper from the engine's current viewport.
func (a *Adapter) Mapper(marginLeft, marginTop float64) (coords.Mapper, error) {
	vs, err := a.ViewState()
	if err != nil {
		return coords.Mapper{}, err
	}
	return coords.NewMapper(vs.Viewport(), marginLeft, marginTop), nil
}

func (a *Adapter) UpdateScene(u SceneUpdate) {
	if !a.Ready() {
		a.logger.Debug("scene update before engine attach dropped")
		return
	}
	a.engine.UpdateScene(u)
}

func (a *Adapter) SetActiveTool(t Tool) {
	if !t.Valid() {
		a.logger.Warn("unknown drawing tool", zap.String("tool", string(t)))
		return
	}
	a.UpdateScene(SceneUpdate{View: &ViewPatch{ActiveTool: &t}})
}

// Snapshot returns the engine's scene in document form. The viewport is
// stored under the app state keys scrollX, scrollY and zoom.
func (a *Adapter) Snapshot() (paperdoc.Scene, error) {
	if !a.Ready() {
		return paperdoc.Scene{}, ErrNotReady
	}
	vs := a.engine.ViewState()
	return paperdoc.Scene{
		Elements: a.engine.Elements(),
		AppState: ViewAppState(vs),
		Files:    a.engine.Files(),
	}, nil
}

// Load replaces the engine's scene with a stored one.
func (a *Adapter) Load(s paperdoc.Scene) {
	elements := s.Elements
	if elements == nil {
		elements = []json.RawMessage{}
	}
	files := s.Files
	if files == nil {
		files = map[string]json.RawMessage{}
	}
	a.UpdateScene(SceneUpdate{
		Elements: elements,
		Files:    files,
		AppState: s.AppState,
		View:     ViewPatchFromAppState(s.AppState),
	})
}

// IsViewKey reports whether app-state key k holds viewport data written by
// ViewAppState.
func IsViewKey(k string) bool {
	return k == "scrollX" || k == "scrollY" || k == "zoom"
}

func ViewAppState(vs ViewState) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, 3)
	for k, v := range map[string]float64{"scrollX": vs.ScrollX, "scrollY": vs.ScrollY, "zoom": vs.Zoom} {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[k] = b
	}
	return out
}

// ViewPatchFromAppState reads back what ViewAppState wrote. Keys that are
// missing or not numbers are left out of the patch; nil means no viewport
// data at all.
func ViewPatchFromAppState(m map[string]json.RawMessage) *ViewPatch {
	num := func(k string) *float64 {
		raw, ok := m[k]
		if !ok {
			return nil
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil
		}
		return &f
	}
	p := ViewPatch{ScrollX: num("scrollX"), ScrollY: num("scrollY"), Zoom: num("zoom")}
	if p.ScrollX == nil && p.ScrollY == nil && p.Zoom == nil {
		return nil
	}
	return &p
}
