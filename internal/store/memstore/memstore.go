// Package memstore is an in-process collection. Nothing survives the process;
// it backs demos and tests.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/idilsaglam/livetodo/internal/store"
)

// Store keeps documents in insertion order.
type Store struct {
	mu     sync.RWMutex
	docs   []store.Document
	closed bool

	broker *store.Broker
}

// New returns an empty Store.
func New(logger *log.Logger) *Store {
	s := &Store{}
	s.broker = store.NewBroker(s.load, logger)
	return s
}

func (s *Store) load(ctx context.Context) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	return append([]store.Document(nil), s.docs...), nil
}

// OnSnapshot implements store.Collection.
func (s *Store) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	return s.broker.Subscribe(ctx, h)
}

// Add implements store.Collection.
func (s *Store) Add(ctx context.Context, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", store.ErrClosed
	}
	s.docs = append(s.docs, store.Document{ID: id, Fields: maps.Clone(fields)})
	s.mu.Unlock()

	s.broker.Notify(ctx)
	return id, nil
}

// Close implements store.Collection.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.broker.Close()
	return nil
}
