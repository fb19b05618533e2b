package httpapi

import (
	"errors"
	"sync/atomic"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

var ErrBusy = errors.New("httpapi: an import is already waiting")

// Mailbox is a Source backed by a published snapshot and a one-slot inbox
// the event loop drains.
type Mailbox struct {
	current atomic.Pointer[paperdoc.Document]
	inbox   chan paperdoc.Document
}

func NewMailbox() *Mailbox {
	return &Mailbox{inbox: make(chan paperdoc.Document, 1)}
}

// Publish makes doc the one served to downloads. doc must not be mutated
// afterwards.
func (m *Mailbox) Publish(doc paperdoc.Document) {
	m.current.Store(&doc)
}

func (m *Mailbox) Snapshot() paperdoc.Document {
	if p := m.current.Load(); p != nil {
		return *p
	}
	return paperdoc.Document{Version: paperdoc.Version}
}

func (m *Mailbox) Submit(doc paperdoc.Document) error {
	select {
	case m.inbox <- doc:
		return nil
	default:
		return ErrBusy
	}
}

func (m *Mailbox) Incoming() <-chan paperdoc.Document {
	return m.inbox
}
