// Package session wires an editing session to its surroundings: the store
// it was recovered from, the auto-saver, the file watcher, the HTTP
// mailbox and the ink canvas. Everything except Run belongs to the host's
// event loop.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elloloop/paperlike/internal/config"
	"github.com/elloloop/paperlike/internal/drawing"
	"github.com/elloloop/paperlike/internal/editor"
	"github.com/elloloop/paperlike/internal/httpapi"
	"github.com/elloloop/paperlike/internal/ink"
	"github.com/elloloop/paperlike/internal/layout"
	"github.com/elloloop/paperlike/internal/pdfexport"
	"github.com/elloloop/paperlike/internal/storage"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

const sqliteFile = "paperlike.db"

type Options struct {
	Config config.Config
	// Store overrides the backend named by Config.Storage.
	Store  storage.Store
	Logger *zap.Logger
	Now    func() time.Time
}

type Session struct {
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time

	state   *editor.State
	canvas  *ink.Canvas
	store   storage.Store
	docs    *storage.Documents
	saver   *storage.AutoSaver
	mailbox *httpapi.Mailbox
	printer *pdfexport.Renderer
	watch   <-chan []byte

	source    storage.Source
	published uint64
	saved     uint64
}

// OpenStore opens the backend cfg names. A sqlite path without an
// extension is taken as a directory for the database file.
func OpenStore(cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqliteFile)
		}
		return storage.OpenSQLite(path)
	case config.BackendFile, "":
		return storage.NewFileStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// NewEngine builds the layout engine cfg asks for. Engines backed by font
// measurement must not be shared between goroutines.
func NewEngine(cfg config.EditorConfig) (layout.Engine, error) {
	if cfg.Measurer != config.MeasurerFont {
		return layout.Default, nil
	}
	m, err := layout.NewFaceMeasurer()
	if err != nil {
		return layout.Engine{}, err
	}
	return layout.Engine{Measurer: m}, nil
}

// Open recovers the last document, preferring the auto-save, and attaches
// the ink canvas. An unreadable store is logged and the session starts on
// a new document. ctx bounds the file watcher.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := opts.Config
	s := &Session{cfg: cfg, logger: opts.Logger, now: opts.Now, store: opts.Store}

	if s.store == nil {
		st, err := OpenStore(cfg.Storage, s.logger)
		if err != nil {
			return nil, fmt.Errorf("session: open store: %w", err)
		}
		s.store = st
	}
	s.docs = storage.NewDocuments(s.store, s.logger)

	engine, err := NewEngine(cfg.Editor)
	if err != nil {
		s.store.Close()
		return nil, fmt.Errorf("session: %w", err)
	}
	printEngine, err := NewEngine(cfg.Editor)
	if err != nil {
		s.store.Close()
		return nil, fmt.Errorf("session: %w", err)
	}
	s.printer, err = pdfexport.New(pdfexport.Options{Layout: cfg.Layout, Engine: printEngine, Logger: s.logger})
	if err != nil {
		s.store.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	doc, src, err := s.docs.Recover(ctx)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		doc = paperdoc.Document{}
	default:
		s.logger.Warn("could not recover document, starting a new one", zap.Error(err))
		doc = paperdoc.Document{}
	}
	s.source = src

	adapter := drawing.NewAdapter(s.logger)
	s.state = editor.NewState(doc, editor.Options{
		Layout:     cfg.Layout,
		Engine:     engine,
		Drawing:    adapter,
		Logger:     s.logger,
		Now:        s.now,
		MaxHistory: cfg.Editor.MaxHistory,
	})
	s.canvas = ink.NewCanvas(s.logger.Named("ink"))
	s.canvas.OnChange(func(elements []json.RawMessage, appState, files map[string]json.RawMessage) {
		s.state.MergeScene(elements, appState, files)
	})
	adapter.Attach(s.canvas)
	adapter.Load(s.state.Doc().Scene)

	s.saver = storage.NewAutoSaver(s.docs, cfg.AutoSave.Interval.Std(), s.logger)
	s.mailbox = httpapi.NewMailbox()
	s.publish()

	if cfg.Storage.Watch {
		if fs, ok := s.store.(*storage.FileStore); ok {
			if s.watch, err = fs.Watch(ctx, storage.KeyDocument); err != nil {
				s.logger.Warn("file watch disabled", zap.Error(err))
			}
		}
	}

	s.logger.Info("session opened",
		zap.Stringer("source", src),
		zap.Int("paragraphs", len(s.state.Doc().Paragraphs)),
		zap.Int("elements", len(s.state.Doc().Scene.Elements)))
	return s, nil
}

func (s *Session) State() *editor.State { return s.state }

func (s *Session) Canvas() *ink.Canvas { return s.canvas }

func (s *Session) Config() config.Config { return s.cfg }

// Source says where the opening document came from.
func (s *Session) Source() storage.Source { return s.source }

// Dirty reports whether the document changed since the last explicit save
// or load.
func (s *Session) Dirty() bool { return s.state.Revision() != s.saved }

// Handler is the HTTP endpoint for this session. Its PDF printer has an
// engine of its own since requests arrive off the event loop.
func (s *Session) Handler() http.Handler {
	engine, err := NewEngine(s.cfg.Editor)
	var printer *pdfexport.Renderer
	if err == nil {
		printer, err = pdfexport.New(pdfexport.Options{Layout: s.cfg.Layout, Engine: engine, Logger: s.logger})
	}
	if err != nil {
		s.logger.Warn("pdf route disabled", zap.Error(err))
		return httpapi.NewHandler(s.mailbox, s.logger.Named("http"))
	}
	return httpapi.NewHandler(s.mailbox, s.logger.Named("http"), httpapi.WithPrinter(printer))
}

// Run drives the background workers until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.cfg.AutoSave.Enabled {
		g.Go(func() error {
			s.saver.Run(ctx)
			return nil
		})
	}
	if s.cfg.HTTP.Enabled {
		h := s.Handler()
		g.Go(func() error {
			// A busy port costs the endpoint, not the auto-saver.
			if err := httpapi.Serve(ctx, s.cfg.HTTP.Listen, h, s.logger); err != nil {
				s.logger.Error("http endpoint stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Tick runs once per host frame after drawing. It applies post-render
// effects, takes in documents queued by the HTTP endpoint or the watcher
// and publishes new revisions. It reports whether the document was
// replaced.
func (s *Session) Tick() bool {
	s.state.AfterRender()

	replaced := false
	select {
	case doc := <-s.mailbox.Incoming():
		s.replace(doc, "http import")
		replaced = true
	default:
	}
	if s.watch != nil {
		select {
		case data, ok := <-s.watch:
			if !ok {
				s.watch = nil
				break
			}
			doc, err := paperdoc.Deserialize(data)
			if err != nil {
				s.logger.Warn("ignoring external change", zap.Error(err))
				break
			}
			s.replace(doc, "external change")
			replaced = true
		default:
		}
	}

	s.publish()
	return replaced
}

func (s *Session) replace(doc paperdoc.Document, reason string) {
	s.state.Replace(doc)
	s.logger.Info("document replaced", zap.String("reason", reason))
}

func (s *Session) publish() {
	rev := s.state.Revision()
	if rev == s.published && s.published != 0 {
		return
	}
	doc := s.state.Doc()
	s.mailbox.Publish(doc)
	if s.cfg.AutoSave.Enabled {
		s.saver.Publish(doc, rev)
	}
	s.published = rev
}

// Save writes an explicit save, which supersedes the auto-save.
func (s *Session) Save(ctx context.Context) error {
	rev := s.state.Revision()
	if err := s.docs.Save(ctx, s.state.Doc()); err != nil {
		return err
	}
	s.saver.MarkSaved(rev)
	s.saved = rev
	s.logger.Info("document saved", zap.Uint64("revision", rev))
	return nil
}

// Export builds the JSON export of the current document.
func (s *Session) Export(filename string) (paperdoc.Artifact, error) {
	return paperdoc.Export(s.state.Doc(), filename, s.now())
}

// ExportSealed builds a compressed export, encrypted when password is set.
func (s *Session) ExportSealed(filename, password string) (paperdoc.Artifact, error) {
	return paperdoc.ExportSealed(s.state.Doc(), filename, s.now(), paperdoc.SealOptions{
		Compress: true,
		Password: password,
	})
}

func (s *Session) ExportPDF(filename string) (paperdoc.Artifact, error) {
	data, err := s.printer.Render(s.state.Doc())
	if err != nil {
		return paperdoc.Artifact{}, err
	}
	return paperdoc.Artifact{
		Filename:    paperdoc.ExportName(filename, s.now(), pdfexport.Ext),
		ContentType: pdfexport.ContentType,
		Data:        data,
	}, nil
}

// WriteArtifact writes art into dir, or the configured export directory
// when dir is empty, and returns the path written.
func (s *Session) WriteArtifact(art paperdoc.Artifact, dir string) (string, error) {
	if dir == "" {
		dir = s.cfg.Export.Dir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("session: export dir: %w", err)
	}
	path := filepath.Join(dir, art.Filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("session: write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("session: write export: %w", err)
	}
	s.logger.Info("exported", zap.String("path", path), zap.Int("bytes", len(art.Data)))
	return path, nil
}

// ImportFile replaces the document with the one at path.
func (s *Session) ImportFile(path, password string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", paperdoc.ErrFileRead, err)
	}
	defer f.Close()
	doc, err := paperdoc.Import(f, password)
	if err != nil {
		return err
	}
	s.replace(doc, "file import")
	return nil
}

// Close flushes the last auto-save and closes the store.
func (s *Session) Close(ctx context.Context) error {
	if s.cfg.AutoSave.Enabled && s.Dirty() {
		s.publish()
		s.saver.Flush(ctx)
	}
	return s.store.Close()
}
