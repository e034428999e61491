// Package todo maps to-do items onto a live document collection.
package todo

import (
	"context"
	"strings"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/store"
)

// Normalize trims text and rejects it when nothing is left.
func Normalize(text string) (string, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// Service reads and creates items in one collection.
type Service struct {
	coll store.Collection
}

// NewService returns a Service over coll.
func NewService(coll store.Collection) *Service {
	return &Service{coll: coll}
}

// Create validates text and inserts {title, complete: false}. Blank input
// fails with ErrEmptyTitle before the backend is touched; backend failures
// come back as *BackendError. The returned item carries the new id.
func (s *Service) Create(ctx context.Context, text string) (model.Item, error) {
	title, err := Normalize(text)
	if err != nil {
		return model.Item{}, err
	}
	it := model.Item{Title: title, Complete: false}
	id, err := s.coll.Add(ctx, it.Fields())
	if err != nil {
		return model.Item{}, &BackendError{Op: "add todo", Err: err}
	}
	it.ID = id
	return it, nil
}

// Subscribe calls fn with the full item list on every change, in backend
// order, until the returned Unsubscribe is called or ctx is done.
func (s *Service) Subscribe(ctx context.Context, fn func([]model.Item)) (store.Unsubscribe, error) {
	unsub, err := s.coll.OnSnapshot(ctx, func(snap store.Snapshot) {
		fn(Items(snap))
	})
	if err != nil {
		return nil, &BackendError{Op: "subscribe", Err: err}
	}
	return unsub, nil
}

// List returns the current items: it subscribes, takes the first snapshot
// and releases the subscription.
func (s *Service) List(ctx context.Context) ([]model.Item, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := make(chan []model.Item, 1)
	unsub, err := s.Subscribe(ctx, func(items []model.Item) {
		select {
		case first <- items:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer unsub()

	select {
	case items := <-first:
		return items, nil
	case <-ctx.Done():
		return nil, &BackendError{Op: "list", Err: ctx.Err()}
	}
}

// Items converts a snapshot to items without filtering or reordering.
func Items(snap store.Snapshot) []model.Item {
	items := make([]model.Item, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		items = append(items, model.FromFields(d.ID, d.Fields))
	}
	return items
}
