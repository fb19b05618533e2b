package pdfexport

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

func sampleDoc() paperdoc.Document {
	return paperdoc.Document{
		Version: paperdoc.Version,
		Paragraphs: []paperdoc.Paragraph{
			{ID: "a", Type: paperdoc.ParagraphType, Content: "Dear diary, today I drew a line.", X: 80, Y: 50, Width: 640, Height: 24, FontSize: 16, LineHeight: 1.5},
			{ID: "b", Type: paperdoc.ParagraphType, Content: "", X: 80, Y: 86, Width: 640, Height: 24, FontSize: 16, LineHeight: 1.5},
			{ID: "c", Type: paperdoc.ParagraphType, Content: "loud", X: 80, Y: 122, Width: 640, Height: 36, FontSize: 24, LineHeight: 1.5,
				Formatting: &paperdoc.Formatting{Bold: true, Italic: true}},
		},
		Scene: paperdoc.Scene{
			Elements: []json.RawMessage{
				json.RawMessage(`{"id":"s","type":"freedraw","x":100,"y":300,"points":[[0,0],[40,20]],"strokeColor":"#e03131","strokeWidth":2}`),
				json.RawMessage(`{"id":"d","type":"freedraw","x":10,"y":10,"points":[[0,0]],"strokeWidth":4}`),
				json.RawMessage(`{"id":"r","type":"rectangle","x":0,"y":9000}`),
			},
			AppState: map[string]json.RawMessage{},
			Files:    map[string]json.RawMessage{},
		},
	}
}

func TestStrokesSkipsOtherElements(t *testing.T) {
	strokes := Strokes(sampleDoc().Scene)
	require.Len(t, strokes, 2)
	assert.Equal(t, "s", strokes[0].ID)
	assert.Equal(t, "d", strokes[1].ID)
}

func TestPageSize(t *testing.T) {
	cfg := layout.DefaultConfig()
	doc := sampleDoc()

	w, h := PageSize(doc, cfg, nil)
	assert.Equal(t, 800.0, w)
	assert.Equal(t, 158.0+50, h)

	// The stroke ends at scene y 320, document y 270, plus half its width.
	_, h = PageSize(doc, cfg, Strokes(doc.Scene))
	assert.Equal(t, 271.0+50, h)

	_, h = PageSize(paperdoc.Document{}, cfg, nil)
	assert.Equal(t, 50.0, h)
}

func TestRender(t *testing.T) {
	r, err := New(Options{
		Layout: layout.DefaultConfig(),
		Engine: layout.Default,
		Title:  "diary",
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	out, err := r.Render(sampleDoc())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")

	again, err := r.Render(sampleDoc())
	require.NoError(t, err)
	assert.NotEmpty(t, again, "renderer is reusable")
}

func TestRenderRejectsEmptyPage(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.DocumentWidth = 0
	r, err := New(Options{Layout: cfg})
	require.NoError(t, err)
	_, err = r.Render(sampleDoc())
	assert.ErrorIs(t, err, ErrEmptyPage)
}
