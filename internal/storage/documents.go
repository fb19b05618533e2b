package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// Source says where a recovered document came from.
type Source int

const (
	SourceNone Source = iota
	SourceAutoSave
	SourceDocument
)

func (s Source) String() string {
	switch s {
	case SourceAutoSave:
		return "autosave"
	case SourceDocument:
		return "document"
	default:
		return "none"
	}
}

// Documents stores paperlike documents under the explicit and auto-save
// keys of a Store.
type Documents struct {
	store  Store
	logger *zap.Logger
}

func NewDocuments(store Store, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{store: store, logger: logger}
}

func (d *Documents) Store() Store { return d.store }

func (d *Documents) put(ctx context.Context, key string, doc paperdoc.Document) error {
	data, err := paperdoc.Serialize(doc)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return d.store.Put(ctx, key, data)
}

func (d *Documents) get(ctx context.Context, key string) (paperdoc.Document, error) {
	data, err := d.store.Get(ctx, key)
	if err != nil {
		return paperdoc.Document{}, err
	}
	return paperdoc.Deserialize(data)
}

// Save writes an explicit save and then drops the auto-save it supersedes.
func (d *Documents) Save(ctx context.Context, doc paperdoc.Document) error {
	if err := d.put(ctx, KeyDocument, doc); err != nil {
		return err
	}
	return d.ClearAutoSave(ctx)
}

func (d *Documents) AutoSave(ctx context.Context, doc paperdoc.Document) error {
	return d.put(ctx, KeyAutoSave, doc)
}

func (d *Documents) Load(ctx context.Context) (paperdoc.Document, error) {
	return d.get(ctx, KeyDocument)
}

func (d *Documents) LoadAutoSave(ctx context.Context) (paperdoc.Document, error) {
	return d.get(ctx, KeyAutoSave)
}

// Recover picks the document to open a session with: the auto-save when
// one exists and decodes, else the explicit save. ErrNotFound means there
// is nothing to recover.
func (d *Documents) Recover(ctx context.Context) (paperdoc.Document, Source, error) {
	doc, err := d.LoadAutoSave(ctx)
	switch {
	case err == nil:
		return doc, SourceAutoSave, nil
	case errors.Is(err, paperdoc.ErrInvalidDocument):
		d.logger.Warn("ignoring unreadable autosave", zap.Error(err))
	case !errors.Is(err, ErrNotFound):
		return paperdoc.Document{}, SourceNone, err
	}

	doc, err = d.Load(ctx)
	if err != nil {
		return paperdoc.Document{}, SourceNone, err
	}
	return doc, SourceDocument, nil
}

func (d *Documents) ClearAutoSave(ctx context.Context) error {
	return d.store.Delete(ctx, KeyAutoSave)
}

func (d *Documents) ClearAll(ctx context.Context) error {
	return errors.Join(d.store.Delete(ctx, KeyDocument), d.store.Delete(ctx, KeyAutoSave))
}
