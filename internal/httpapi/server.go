// Package httpapi exposes the open document over HTTP: download as an
// export or a PDF, upload to replace it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// PasswordHeader carries the password for sealed exports and imports.
const PasswordHeader = "X-Paperlike-Password"

// Source is the editor side of the endpoint. Snapshot must be safe to call
// from any goroutine; Submit hands a document to the event loop.
type Source interface {
	Snapshot() paperdoc.Document
	Submit(paperdoc.Document) error
}

// Printer renders a document to PDF.
type Printer interface {
	Render(paperdoc.Document) ([]byte, error)
}

type Option func(*handler)

// WithPrinter enables GET /api/document.pdf. Calls to p are serialized.
func WithPrinter(p Printer) Option {
	return func(h *handler) { h.printer = p }
}

type handler struct {
	src    Source
	logger *zap.Logger
	now    func() time.Time

	printMu sync.Mutex
	printer Printer
}

func NewHandler(src Source, logger *zap.Logger, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{src: src, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", h.health)
	r.Get("/api/document", h.download)
	r.Put("/api/document", h.upload)
	if h.printer != nil {
		r.Get("/api/document.pdf", h.print)
	}
	return r
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// download serves the document as an attachment. ?sealed=true wraps it in
// the envelope, encrypted when the password header is set; ?name= picks
// the filename.
func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	doc := h.src.Snapshot()
	name := r.URL.Query().Get("name")

	sealed, _ := strconv.ParseBool(r.URL.Query().Get("sealed"))
	var (
		art paperdoc.Artifact
		err error
	)
	if sealed {
		art, err = paperdoc.ExportSealed(doc, name, h.now(), paperdoc.SealOptions{
			Compress: true,
			Password: r.Header.Get(PasswordHeader),
		})
	} else {
		art, err = paperdoc.Export(doc, name, h.now())
	}
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "export_failed", "could not export document")
		return
	}

	h.attach(w, art)
}

func (h *handler) print(w http.ResponseWriter, r *http.Request) {
	doc := h.src.Snapshot()
	h.printMu.Lock()
	data, err := h.printer.Render(doc)
	h.printMu.Unlock()
	if err != nil {
		h.logger.Error("pdf export failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "export_failed", "could not render document")
		return
	}
	h.attach(w, paperdoc.Artifact{
		Filename:    paperdoc.ExportName(r.URL.Query().Get("name"), h.now(), ".pdf"),
		ContentType: "application/pdf",
		Data:        data,
	})
}

func (h *handler) attach(w http.ResponseWriter, art paperdoc.Artifact) {
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		h.logger.Debug("write export", zap.Error(err))
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	doc, err := paperdoc.Import(r.Body, r.Header.Get(PasswordHeader))
	if err != nil {
		status, code := importStatus(err)
		respondError(w, status, code, err.Error())
		return
	}
	if err := h.src.Submit(doc); err != nil {
		h.logger.Warn("import not queued", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "busy", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]int{"paragraphs": len(doc.Paragraphs)})
}

func importStatus(err error) (int, string) {
	switch {
	case errors.Is(err, paperdoc.ErrPasswordRequired):
		return http.StatusUnauthorized, "password_required"
	case errors.Is(err, paperdoc.ErrInvalidPassword):
		return http.StatusForbidden, "invalid_password"
	case errors.Is(err, paperdoc.ErrFileRead):
		return http.StatusBadRequest, "read_failed"
	default:
		return http.StatusBadRequest, "invalid_document"
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": code, "message": message})
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http endpoint listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
