// Package sqlitestore keeps the collection in a local SQLite file.
//
// Writes from this process are published straight away. Writes from other
// processes sharing the file are picked up by polling PRAGMA data_version on
// a dedicated connection.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/idilsaglam/livetodo/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    doc_id TEXT NOT NULL UNIQUE,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection, seq);`

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 500 * time.Millisecond

// Options configure Open.
type Options struct {
	Path         string
	Collection   string
	PollInterval time.Duration
	Logger       *log.Logger
}

// Store is a SQLite-backed collection.
type Store struct {
	db         *sql.DB
	collection string
	logger     *log.Logger
	broker     *store.Broker

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Open creates the database file and schema if needed and starts the
// change poller.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("sqlitestore: collection name required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}

	dsn := "file:" + opts.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:         db,
		collection: opts.Collection,
		logger:     opts.Logger.With("store", "sqlite", "collection", opts.Collection),
	}
	s.broker = store.NewBroker(s.load, s.logger)

	pollCtx, cancel := context.WithCancel(context.Background())
	conn, err := db.Conn(pollCtx)
	if err != nil {
		cancel()
		db.Close()
		return nil, fmt.Errorf("poll conn: %w", err)
	}
	var version int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version); err != nil {
		conn.Close()
		cancel()
		db.Close()
		return nil, fmt.Errorf("read data_version: %w", err)
	}
	s.cancel = cancel
	s.wg.Add(1)
	go s.poll(pollCtx, conn, version, opts.PollInterval)
	return s, nil
}

func (s *Store) load(ctx context.Context) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, data FROM documents WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// poll watches data_version, which changes whenever another connection
// commits to the database file. last is read in Open so that commits landing
// before the first tick are still reported.
func (s *Store) poll(ctx context.Context, conn *sql.Conn, last int64, every time.Duration) {
	defer s.wg.Done()
	defer conn.Close()

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		var v int64
		if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("read data_version", "err", err)
			}
			continue
		}
		if v != last {
			last = v
			s.logger.Debug("external change detected", "data_version", v)
			s.broker.Notify(ctx)
		}
	}
}

// OnSnapshot implements store.Collection.
func (s *Store) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	return s.broker.Subscribe(ctx, h)
}

// Add implements store.Collection. Ids are UUIDv7 so they sort by creation.
func (s *Store) Add(ctx context.Context, fields map[string]any) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", store.ErrClosed
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_id, data, created_at) VALUES (?, ?, ?, ?)`,
		s.collection, id, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
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
	s.cancel()
	s.wg.Wait()
	return s.db.Close()
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
