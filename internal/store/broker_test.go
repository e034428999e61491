package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory document list the broker reads from.
type fakeSource struct {
	mu    sync.Mutex
	docs  []Document
	err   error
	loads int
}

func (f *fakeSource) load(ctx context.Context) ([]Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Document(nil), f.docs...), nil
}

func (f *fakeSource) add(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, Document{ID: id, Fields: map[string]any{"title": title}})
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func collect(t *testing.T) (SnapshotHandler, <-chan Snapshot) {
	t.Helper()
	ch := make(chan Snapshot, 64)
	return func(s Snapshot) { ch <- s }, ch
}

func next(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func ids(s Snapshot) []string {
	out := make([]string, 0, len(s.Docs))
	for _, d := range s.Docs {
		out = append(out, d.ID)
	}
	return out
}

func TestBrokerDeliversInitialSnapshot(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()

	snap := next(t, ch)
	assert.Equal(t, 0, snap.Len())
}

func TestBrokerNotifyPublishesFullSnapshot(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()
	next(t, ch)

	src.add("a", "first")
	b.Notify(context.Background())
	assert.Equal(t, []string{"a"}, ids(next(t, ch)))

	src.add("b", "second")
	b.Notify(context.Background())
	assert.Equal(t, []string{"a", "b"}, ids(next(t, ch)))
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	next(t, ch)

	unsub()
	unsub()
	assert.Equal(t, 0, b.Subscribers())

	src.add("a", "first")
	b.Notify(context.Background())
	select {
	case s := <-ch:
		t.Fatalf("unexpected delivery after unsubscribe: %v", ids(s))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerContextCancelReleasesSubscription(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	ctx, cancel := context.WithCancel(context.Background())
	h, ch := collect(t)
	_, err := b.Subscribe(ctx, h)
	require.NoError(t, err)
	next(t, ch)

	cancel()
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBrokerSubscribeLoadError(t *testing.T) {
	src := &fakeSource{}
	src.fail(errors.New("boom"))
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, _ := collect(t)
	_, err := b.Subscribe(context.Background(), h)
	require.Error(t, err)
	assert.Equal(t, 0, b.Subscribers())
}

func TestBrokerNotifyErrorKeepsLastSnapshot(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()
	next(t, ch)

	src.fail(errors.New("network down"))
	b.Notify(context.Background())
	select {
	case s := <-ch:
		t.Fatalf("unexpected delivery on failed reload: %v", ids(s))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerDropsStaleSnapshots(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()
	first := next(t, ch)

	b.Publish(Snapshot{Seq: first.Seq})
	b.Publish(Snapshot{Seq: first.Seq + 10, Docs: []Document{{ID: "z"}}})
	b.Publish(Snapshot{Seq: first.Seq + 5})

	got := next(t, ch)
	assert.Equal(t, first.Seq+10, got.Seq)
	select {
	case s := <-ch:
		t.Fatalf("stale snapshot delivered: seq %d", s.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerHandlersCannotMutateSource(t *testing.T) {
	src := &fakeSource{}
	src.add("a", "first")
	b := NewBroker(src.load, nil)
	t.Cleanup(b.Close)

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()

	snap := next(t, ch)
	snap.Docs[0].Fields["title"] = "changed"

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, "first", src.docs[0].Fields["title"])
}

func TestBrokerClose(t *testing.T) {
	src := &fakeSource{}
	b := NewBroker(src.load, nil)

	h, _ := collect(t)
	_, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)

	b.Close()
	b.Close()
	assert.Equal(t, 0, b.Subscribers())

	_, err = b.Subscribe(context.Background(), h)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBrokerNotifyWithoutSubscribersDropsInFlightLoad(t *testing.T) {
	src := &fakeSource{}
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	load := func(ctx context.Context) ([]Document, error) {
		docs, err := src.load(ctx)
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return docs, err
	}
	b := NewBroker(load, nil)
	defer b.Close()

	go b.read(context.Background(), false)
	<-started

	src.add("1", "Buy milk")
	b.Notify(context.Background())

	h, ch := collect(t)
	unsub, err := b.Subscribe(context.Background(), h)
	require.NoError(t, err)
	defer unsub()
	close(release)

	snap := next(t, ch)
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "1", snap.Docs[0].ID)
}
