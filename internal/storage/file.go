package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 250 * time.Millisecond

// FileStore keeps one JSON file per key in a directory. Writes go through a
// temporary file and a rename so readers never see a partial document.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	written map[string][32]byte
}

func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable("create", dir, err)
	}
	return &FileStore{dir: dir, logger: logger, written: map[string][32]byte{}}, nil
}

func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return b, nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return unavailable("write", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return unavailable("write", key, err)
	}
	s.mu.Lock()
	s.written[key] = sha256.Sum256(data)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("delete", key, err)
	}
	s.mu.Lock()
	delete(s.written, key)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Close() error { return nil }

// Watch reports contents of key written by someone else, for instance a
// second editor or a sync tool. Bursts of events are debounced and this
// store's own writes are skipped. The channel closes when ctx is done.
func (s *FileStore) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, unavailable("watch", key, err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, unavailable("watch", key, err)
	}
	out := make(chan []byte, 1)
	go s.watchLoop(ctx, w, key, out)
	return out, nil
}

func (s *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, key string, out chan<- []byte) {
	defer close(out)
	defer w.Close()

	path := s.Path(key)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("storage watch error", zap.String("key", key), zap.Error(err))
		case <-timer.C:
			b, err := os.ReadFile(path)
			if err != nil {
				s.logger.Debug("storage watch read failed", zap.String("key", key), zap.Error(err))
				continue
			}
			s.mu.Lock()
			own := s.written[key] == sha256.Sum256(b)
			s.mu.Unlock()
			if own {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}
