// Package store defines the document collection contract every backend
// implements: a live subscription that delivers complete, ordered snapshots
// and an insert that returns a backend-assigned id.
package store

import (
	"context"
	"errors"
	"maps"
)

// ErrClosed is returned by operations on a collection after Close.
var ErrClosed = errors.New("store: collection closed")

// Document is one stored record: its backend-assigned id plus its field map.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is every document in the collection at one point in time, in the
// order the backend returns them.
type Snapshot struct {
	Docs []Document

	// Seq orders snapshots from the same Broker. A higher Seq was read no
	// earlier than a lower one.
	Seq uint64
}

// Len reports the number of documents.
func (s Snapshot) Len() int { return len(s.Docs) }

// SnapshotHandler receives the full current snapshot on every change.
type SnapshotHandler func(Snapshot)

// Unsubscribe releases a live subscription. Safe to call more than once.
type Unsubscribe func()

// Collection is a live document collection.
type Collection interface {
	// OnSnapshot registers h and delivers the current snapshot to it, then a
	// fresh snapshot after every change until the returned Unsubscribe is
	// called or ctx is done.
	OnSnapshot(ctx context.Context, h SnapshotHandler) (Unsubscribe, error)

	// Add inserts a new document and returns the id the backend assigned.
	Add(ctx context.Context, fields map[string]any) (string, error)

	// Close stops every subscription and releases backend resources.
	Close() error
}

// cloneDocs copies the document slice and each field map so handlers can't
// reach into backend state.
func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Fields: maps.Clone(d.Fields)}
	}
	return out
}
