package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/idilsaglam/livetodo/internal/store"
)

// JSON-backed collection. Single file, human-readable, portable.
// The file is watched, so edits made by hand or by another process show up
// in live subscriptions. No cross-process locking; fine for a local
// single-user tool.

// DefaultFileName is the data file used when no path is configured.
const DefaultFileName = "todos.json"

const idKey = "id"

// Store is a file-backed collection.
type Store struct {
	path   string
	logger *log.Logger
	broker *store.Broker

	mu     sync.Mutex
	closed bool

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// Open starts watching path. The file need not exist yet.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	// Watch the directory: atomic saves replace the file, which drops a
	// watch placed on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s := &Store{
		path:    abs,
		logger:  logger.With("store", "json", "path", abs),
		watcher: w,
	}
	s.broker = store.NewBroker(func(context.Context) ([]store.Document, error) { return s.read() }, s.logger)

	s.wg.Add(1)
	go s.watch()
	return s, nil
}

// Path reports the data file in use.
func (s *Store) Path() string { return s.path }

func (s *Store) watch() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				s.logger.Debug("file changed", "op", ev.Op.String())
				s.broker.Notify(context.Background())
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", "err", err)
		}
	}
}

func (s *Store) read() ([]store.Document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []store.Document{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	docs := make([]store.Document, 0, len(raw))
	for _, r := range raw {
		id, _ := r[idKey].(string)
		delete(r, idKey)
		docs = append(docs, store.Document{ID: id, Fields: r})
	}
	return docs, nil
}

func (s *Store) write(docs []store.Document) error {
	raw := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		r := make(map[string]any, len(d.Fields)+1)
		for k, v := range d.Fields {
			r[k] = v
		}
		r[idKey] = d.ID
		raw = append(raw, r)
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".todos-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// OnSnapshot implements store.Collection.
func (s *Store) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	return s.broker.Subscribe(ctx, h)
}

// Add implements store.Collection.
func (s *Store) Add(ctx context.Context, fields map[string]any) (string, error) {
	if _, ok := fields[idKey]; ok {
		return "", fmt.Errorf("field %q is reserved", idKey)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", store.ErrClosed
	}
	docs, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	id := uuid.NewString()
	docs = append(docs, store.Document{ID: id, Fields: fields})
	err = s.write(docs)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	s.broker.Notify(ctx)
	return id, nil
}

// Close implements store.Collection.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.broker.Close()
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}
