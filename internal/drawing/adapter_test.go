package drawing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

type fakeEngine struct {
	view     ViewState
	elements []json.RawMessage
	files    map[string]json.RawMessage
	updates  []SceneUpdate
}

func (f *fakeEngine) ViewState() ViewState              { return f.view }
func (f *fakeEngine) Elements() []json.RawMessage       { return f.elements }
func (f *fakeEngine) Files() map[string]json.RawMessage { return f.files }

func (f *fakeEngine) UpdateScene(u SceneUpdate) {
	f.updates = append(f.updates, u)
	if u.Elements != nil {
		f.elements = u.Elements
	}
	if u.Files != nil {
		f.files = u.Files
	}
	if u.View != nil {
		f.view = u.View.Apply(f.view)
	}
}

func TestAdapterNotReady(t *testing.T) {
	a := NewAdapter(zaptest.NewLogger(t))
	assert.False(t, a.Ready())

	_, err := a.ViewState()
	require.ErrorIs(t, err, ErrNotReady)
	_, err = a.Elements()
	require.ErrorIs(t, err, ErrNotReady)
	_, err = a.Files()
	require.ErrorIs(t, err, ErrNotReady)
	_, err = a.Mapper(80, 50)
	require.ErrorIs(t, err, ErrNotReady)
	_, err = a.Snapshot()
	require.ErrorIs(t, err, ErrNotReady)

	// Mutations are silently dropped.
	a.SetActiveTool(ToolFreedraw)
	a.UpdateScene(SceneUpdate{Elements: []json.RawMessage{}})
	a.Attach(nil)
	assert.False(t, a.Ready())
}

func TestAdapterReady(t *testing.T) {
	e := &fakeEngine{view: ViewState{ScrollX: 10, ScrollY: -20, Zoom: 2, ActiveTool: ToolSelection}}
	a := NewAdapter(nil)
	a.Attach(e)
	require.True(t, a.Ready())

	a.SetActiveTool(ToolFreedraw)
	vs, err := a.ViewState()
	require.NoError(t, err)
	assert.Equal(t, ToolFreedraw, vs.ActiveTool)
	assert.Equal(t, 2.0, vs.Zoom, "tool switch must not touch the viewport")

	a.SetActiveTool(Tool("laser"))
	assert.Len(t, e.updates, 1)

	m, err := a.Mapper(80, 50)
	require.NoError(t, err)
	assert.Equal(t, (0.0+50)*2-20, m.ToCanvasY(0))
}

func TestAdapterSnapshotAndLoad(t *testing.T) {
	e := &fakeEngine{
		view:     ViewState{ScrollX: 5, ScrollY: 6, Zoom: 1.5, ActiveTool: ToolFreedraw},
		elements: []json.RawMessage{json.RawMessage(`{"id":"s1"}`)},
		files:    map[string]json.RawMessage{},
	}
	a := NewAdapter(nil)
	a.Attach(e)

	s, err := a.Snapshot()
	require.NoError(t, err)
	assert.Len(t, s.Elements, 1)
	assert.JSONEq(t, `1.5`, string(s.AppState["zoom"]))

	other := &fakeEngine{}
	b := NewAdapter(nil)
	b.Attach(other)
	b.Load(s)
	assert.Equal(t, e.elements, other.elements)
	assert.Equal(t, ViewState{ScrollX: 5, ScrollY: 6, Zoom: 1.5}, other.view)

	b.Load(paperdoc.Scene{})
	assert.NotNil(t, other.elements)
	assert.Empty(t, other.elements)
	assert.Nil(t, other.updates[1].View)
}

func TestViewPatchFromAppStateIgnoresGarbage(t *testing.T) {
	p := ViewPatchFromAppState(map[string]json.RawMessage{"zoom": json.RawMessage(`"big"`), "scrollY": json.RawMessage(`3`)})
	require.NotNil(t, p)
	assert.Nil(t, p.Zoom)
	assert.Equal(t, 3.0, *p.ScrollY)
	assert.Nil(t, ViewPatchFromAppState(nil))
}
