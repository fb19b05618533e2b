package storage

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

const DefaultAutoSaveInterval = 30 * time.Second

type published struct {
	doc      paperdoc.Document
	revision uint64
}

// AutoSaver periodically writes the last published document to the
// auto-save key. The editor publishes from its event loop; Run reads the
// snapshot from its own goroutine and never touches editor state. Failures
// are logged and dropped.
type AutoSaver struct {
	docs     *Documents
	interval time.Duration
	logger   *zap.Logger

	latest atomic.Pointer[published]
	saved  atomic.Uint64
}

func NewAutoSaver(docs *Documents, interval time.Duration, logger *zap.Logger) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSaver{docs: docs, interval: interval, logger: logger}
}

// Publish offers a committed document. Revisions must increase; an
// unchanged revision is not written twice.
func (a *AutoSaver) Publish(doc paperdoc.Document, revision uint64) {
	a.latest.Store(&published{doc: doc, revision: revision})
}

// MarkSaved records that revision reached storage by another path, such as
// an explicit save.
func (a *AutoSaver) MarkSaved(revision uint64) {
	a.saved.Store(revision)
}

func (a *AutoSaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush writes the latest snapshot now if it has not been saved yet.
func (a *AutoSaver) Flush(ctx context.Context) bool {
	p := a.latest.Load()
	if p == nil || p.revision == 0 || p.revision == a.saved.Load() {
		return false
	}
	if err := a.docs.AutoSave(ctx, p.doc); err != nil {
		a.logger.Warn("autosave failed", zap.Uint64("revision", p.revision), zap.Error(err))
		return false
	}
	a.saved.Store(p.revision)
	a.logger.Debug("autosaved", zap.Uint64("revision", p.revision))
	return true
}
