// Package redisstore keeps the collection in Redis: a hash of id → JSON
// document, a list holding insertion order, and a pub/sub channel that
// announces changes to every client.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/idilsaglam/livetodo/internal/store"
)

// Options configure Open. URL, when set, overrides Addr, Password and DB.
type Options struct {
	Addr       string
	Password   string
	DB         int
	URL        string
	Collection string
	Logger     *log.Logger
}

// Store is a Redis-backed collection.
type Store struct {
	rdb        *redis.Client
	collection string
	logger     *log.Logger
	broker     *store.Broker
	pubsub     *redis.PubSub

	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Open connects and subscribes to the collection's change channel.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("redisstore: collection name required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	ropts := &redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		ropts = parsed
	}
	rdb := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	s := &Store{
		rdb:        rdb,
		collection: opts.Collection,
		logger:     opts.Logger.With("store", "redis", "collection", opts.Collection),
	}
	s.broker = store.NewBroker(s.load, s.logger)

	s.pubsub = rdb.Subscribe(ctx, s.channelKey())
	if _, err := s.pubsub.Receive(ctx); err != nil {
		_ = s.pubsub.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	s.wg.Add(1)
	go s.listen()
	return s, nil
}

func (s *Store) docsKey() string    { return s.collection + ":docs" }
func (s *Store) orderKey() string   { return s.collection + ":order" }
func (s *Store) channelKey() string { return s.collection + ":changed" }

func (s *Store) listen() {
	defer s.wg.Done()
	for msg := range s.pubsub.Channel() {
		s.logger.Debug("change announced", "id", msg.Payload)
		s.broker.Notify(context.Background())
	}
}

func (s *Store) load(ctx context.Context) ([]store.Document, error) {
	ids, err := s.rdb.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read order: %w", err)
	}
	if len(ids) == 0 {
		return []store.Document{}, nil
	}
	vals, err := s.rdb.HMGet(ctx, s.docsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	docs := make([]store.Document, 0, len(ids))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// listed but no body: skip rather than fail the whole snapshot
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", ids[i], err)
		}
		docs = append(docs, store.Document{ID: ids[i], Fields: fields})
	}
	return docs, nil
}

// OnSnapshot implements store.Collection.
func (s *Store) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	return s.broker.Subscribe(ctx, h)
}

// Add implements store.Collection.
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
	id := uuid.NewString()
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.docsKey(), id, data)
		p.RPush(ctx, s.orderKey(), id)
		p.Publish(ctx, s.channelKey(), id)
		return nil
	})
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
	err := s.pubsub.Close()
	s.wg.Wait()
	if cerr := s.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}
