package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elloloop/paperlike/internal/config"
	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/storage"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Editor.Measurer = config.MeasurerApproximate
	cfg.Export.Dir = t.TempDir()
	return *cfg
}

func open(t *testing.T, cfg config.Config) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Config: cfg,
		Logger: zaptest.NewLogger(t),
		Now:    func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	})
	require.NoError(t, err)
	return s
}

func typeInto(t *testing.T, s *Session, text string) {
	t.Helper()
	st := s.State()
	p := st.Doc().Paragraphs[0]
	st.Focus(p.ID, len(p.Content))
	require.True(t, st.InsertText(text))
	s.Tick()
}

func TestOpenEmptyStore(t *testing.T) {
	s := open(t, testConfig(t))
	assert.Equal(t, storage.SourceNone, s.Source())
	assert.Len(t, s.State().Doc().Paragraphs, 1)
	assert.True(t, s.State().Drawing().Ready())
	assert.False(t, s.Dirty())
	assert.False(t, s.Tick())
}

func TestCloseFlushesAutoSave(t *testing.T) {
	cfg := testConfig(t)
	s := open(t, cfg)
	typeInto(t, s, "hello")
	assert.True(t, s.Dirty())
	require.NoError(t, s.Close(context.Background()))

	s = open(t, cfg)
	assert.Equal(t, storage.SourceAutoSave, s.Source())
	assert.Equal(t, "hello", s.State().Doc().Paragraphs[0].Content)
}

func TestSaveSupersedesAutoSave(t *testing.T) {
	cfg := testConfig(t)
	s := open(t, cfg)
	typeInto(t, s, "kept")
	require.NoError(t, s.Save(context.Background()))
	assert.False(t, s.Dirty())
	require.NoError(t, s.Close(context.Background()))

	fs, err := storage.NewFileStore(cfg.Storage.Path, nil)
	require.NoError(t, err)
	_, err = fs.Get(context.Background(), storage.KeyAutoSave)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	s = open(t, cfg)
	assert.Equal(t, storage.SourceDocument, s.Source())
	assert.Equal(t, "kept", s.State().Doc().Paragraphs[0].Content)
}

func TestStrokesSurviveReopen(t *testing.T) {
	cfg := testConfig(t)
	s := open(t, cfg)
	c := s.Canvas()
	c.SetTool(drawing.ToolFreedraw)
	c.PointerDown(10, 10)
	c.PointerMove(60, 40)
	require.True(t, c.PointerUp())
	s.Tick()
	require.Len(t, s.State().Doc().Scene.Elements, 1)
	require.NoError(t, s.Save(context.Background()))

	s = open(t, cfg)
	require.Len(t, s.Canvas().Strokes(), 1)
	assert.Equal(t, 10.0, s.Canvas().Strokes()[0].X)
}

func TestHTTPImportIsAppliedOnTick(t *testing.T) {
	s := open(t, testConfig(t))
	h := s.Handler()

	doc := s.State().Doc()
	doc.Paragraphs[0].Content = "from the network"
	data, err := paperdoc.Serialize(doc)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/document", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.True(t, s.Tick())
	assert.Equal(t, "from the network", s.State().Doc().Paragraphs[0].Content)

	req = httptest.NewRequest(http.MethodGet, "/api/document", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	got, err := paperdoc.Deserialize(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "from the network", got.Paragraphs[0].Content, "downloads see the published revision")

	req = httptest.NewRequest(http.MethodGet, "/api/document.pdf", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestExportImportFiles(t *testing.T) {
	cfg := testConfig(t)
	s := open(t, cfg)
	typeInto(t, s, "secret plans")

	art, err := s.ExportSealed("", "pw")
	require.NoError(t, err)
	assert.Equal(t, "paperlike_1700000000000.paperlike", art.Filename)
	path, err := s.WriteArtifact(art, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Export.Dir, art.Filename), path)

	other := open(t, testConfig(t))
	assert.ErrorIs(t, other.ImportFile(path, ""), paperdoc.ErrPasswordRequired)
	assert.ErrorIs(t, other.ImportFile(path, "nope"), paperdoc.ErrInvalidPassword)
	require.NoError(t, other.ImportFile(path, "pw"))
	assert.Equal(t, "secret plans", other.State().Doc().Paragraphs[0].Content)
	assert.True(t, other.Dirty())

	art, err = s.Export("plain")
	require.NoError(t, err)
	path, err = s.WriteArtifact(art, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "plain.json", filepath.Base(path))
	require.NoError(t, other.ImportFile(path, ""))

	assert.ErrorIs(t, other.ImportFile(filepath.Join(t.TempDir(), "missing.json"), ""), paperdoc.ErrFileRead)
}

func TestExportPDF(t *testing.T) {
	s := open(t, testConfig(t))
	typeInto(t, s, "print me")
	art, err := s.ExportPDF("")
	require.NoError(t, err)
	assert.Equal(t, "paperlike_1700000000000.pdf", art.Filename)
	assert.Equal(t, "application/pdf", art.ContentType)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
}

func TestWatchAppliesExternalSaves(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Watch = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := Open(ctx, Options{Config: cfg, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	// A second writer on the same directory, such as another editor.
	fs, err := storage.NewFileStore(cfg.Storage.Path, nil)
	require.NoError(t, err)
	doc := s.State().Doc()
	doc.Paragraphs[0].Content = "written elsewhere"
	require.NoError(t, storage.NewDocuments(fs, nil).Save(ctx, doc))

	require.Eventually(t, s.Tick, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "written elsewhere", s.State().Doc().Paragraphs[0].Content)

	// The session's own saves are not reported back.
	typeInto(t, s, "!")
	require.NoError(t, s.Save(ctx))
	time.Sleep(500 * time.Millisecond)
	assert.False(t, s.Tick())
}

func TestRunStopsWithContext(t *testing.T) {
	s := open(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenStore(config.StorageConfig{Backend: config.BackendSQLite, Path: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	_, err = os.Stat(filepath.Join(dir, sqliteFile))
	assert.NoError(t, err)

	_, err = OpenStore(config.StorageConfig{Backend: "s3", Path: dir}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendSQLite
	s := open(t, cfg)
	typeInto(t, s, "in a database")
	require.NoError(t, s.Save(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	s = open(t, cfg)
	assert.Equal(t, "in a database", s.State().Doc().Paragraphs[0].Content)
}
