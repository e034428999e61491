package store

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Loader reads the whole collection.
type Loader func(ctx context.Context) ([]Document, error)

// Broker fans snapshots out to subscribers. Backends call Notify whenever
// they learn the collection changed; the Broker reloads once (concurrent
// reloads share a single read) and hands the result to every subscriber.
//
// Each subscriber has its own delivery goroutine, so handlers run one at a
// time and in Seq order. A subscriber that falls behind only ever sees the
// newest pending snapshot.
type Broker struct {
	load   Loader
	logger *log.Logger

	group singleflight.Group
	seq   atomic.Uint64

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

const loadKey = "snapshot"

// NewBroker returns a Broker reading snapshots through load.
func NewBroker(load Loader, logger *log.Logger) *Broker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Broker{
		load:   load,
		logger: logger,
		subs:   make(map[uint64]*subscriber),
	}
}

// Subscribe registers h and delivers the current snapshot to it.
func (b *Broker) Subscribe(ctx context.Context, h SnapshotHandler) (Unsubscribe, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	s := newSubscriber(h)
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			s.stop()
		})
	}

	snap, err := b.read(ctx, false)
	if err != nil {
		unsub()
		return nil, err
	}
	s.offer(snap)

	stopOnCancel := context.AfterFunc(ctx, unsub)
	return func() {
		stopOnCancel()
		unsub()
	}, nil
}

// Notify reloads the collection and publishes the result. Load failures are
// logged; subscribers keep the last snapshot they saw.
func (b *Broker) Notify(ctx context.Context) {
	if b.Subscribers() == 0 {
		// Nobody to tell, but a load already in flight predates this change
		// and must not be handed to the next subscriber.
		b.group.Forget(loadKey)
		return
	}
	snap, err := b.read(ctx, true)
	if err != nil {
		b.logger.Error("reload snapshot", "err", err)
		return
	}
	b.Publish(snap)
}

// Publish hands snap to every current subscriber.
func (b *Broker) Publish(snap Snapshot) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.offer(snap)
	}
}

// Subscribers reports how many handlers are registered.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops every subscriber. Later Subscribe calls fail with ErrClosed.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*subscriber)
	b.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}

// read loads a snapshot. A fresh read never joins a load that was already
// in flight, since that load may predate the change being announced.
func (b *Broker) read(ctx context.Context, fresh bool) (Snapshot, error) {
	if fresh {
		b.group.Forget(loadKey)
	}
	v, err, _ := b.group.Do(loadKey, func() (any, error) {
		seq := b.seq.Add(1)
		docs, err := b.load(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Docs: docs, Seq: seq}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap := v.(Snapshot)
	snap.Docs = cloneDocs(snap.Docs)
	return snap, nil
}

type subscriber struct {
	handler SnapshotHandler

	mu        sync.Mutex
	pending   *Snapshot
	delivered uint64
	hasSent   bool
	stopped   bool

	wake chan struct{}
	done chan struct{}
}

func newSubscriber(h SnapshotHandler) *subscriber {
	s := &subscriber{
		handler: h,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// offer queues snap unless something at least as new is already queued or
// delivered.
func (s *subscriber) offer(snap Snapshot) {
	s.mu.Lock()
	if s.stopped || (s.hasSent && snap.Seq <= s.delivered) || (s.pending != nil && snap.Seq <= s.pending.Seq) {
		s.mu.Unlock()
		return
	}
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		if s.stopped || s.pending == nil {
			s.mu.Unlock()
			continue
		}
		snap := *s.pending
		s.pending = nil
		s.delivered = snap.Seq
		s.hasSent = true
		s.mu.Unlock()

		s.handler(snap)
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.pending = nil
	close(s.done)
}
