// Package pgstore keeps the collection in PostgreSQL. A trigger raises
// NOTIFY on every change and a dedicated connection LISTENs for it, so writes
// from any client reach every subscriber.
package pgstore

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/idilsaglam/livetodo/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const channel = "documents_changed"

// Options configure Open.
type Options struct {
	DSN        string
	Collection string
	Logger     *log.Logger
}

// Store is a PostgreSQL-backed collection.
type Store struct {
	pool       *pgxpool.Pool
	collection string
	logger     *log.Logger
	broker     *store.Broker

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Open connects, applies migrations and starts listening for changes.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("pgstore: collection name required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if err := migrate(opts.DSN); err != nil {
		return nil, err
	}
	pool, err := newPool(ctx, opts.DSN)
	if err != nil {
		return nil, err
	}

	s := &Store{
		pool:       pool,
		collection: opts.Collection,
		logger:     opts.Logger.With("store", "postgres", "collection", opts.Collection),
	}
	s.broker = store.NewBroker(s.load, s.logger)

	listenCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.listen(listenCtx)
	return s, nil
}

func migrate(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

func (s *Store) load(ctx context.Context) ([]store.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc_id, data FROM documents WHERE collection = $1 ORDER BY seq`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// listen holds one pooled connection in LISTEN and re-acquires it after
// connection loss. A reload follows every reconnect, since notifications
// sent while disconnected are gone.
func (s *Store) listen(ctx context.Context) {
	defer s.wg.Done()
	backoff := 250 * time.Millisecond
	for ctx.Err() == nil {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("listener stopped, reconnecting", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.broker.Notify(ctx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload != s.collection {
			continue
		}
		s.broker.Notify(ctx)
	}
}

// OnSnapshot implements store.Collection.
func (s *Store) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	return s.broker.Subscribe(ctx, h)
}

// Add implements store.Collection. The database assigns the id; the change
// reaches subscribers through NOTIFY.
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
	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (collection, data) VALUES ($1, $2) RETURNING doc_id`,
		s.collection, data).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
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
	s.pool.Close()
	return nil
}
