package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable wraps every backend read or write failure.
	ErrStorageUnavailable = errors.New("storage: unavailable")
	ErrNotFound           = errors.New("storage: not found")
)

// Explicit saves and auto-saves live under separate keys so neither can
// overwrite the other.
const (
	KeyDocument = "paperlike_document"
	KeyAutoSave = "paperlike_autosave"
)

// Store is a small key/value persistence backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStorageUnavailable, op, key, err)
}
