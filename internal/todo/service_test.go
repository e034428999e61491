package todo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/store"
	"github.com/idilsaglam/livetodo/internal/store/memstore"
)

// recordingCollection remembers every Add and can be told to fail.
type recordingCollection struct {
	mu      sync.Mutex
	added   []map[string]any
	addErr  error
	snap    store.Snapshot
	subErr  error
	unsubed int
}

func (c *recordingCollection) OnSnapshot(ctx context.Context, h store.SnapshotHandler) (store.Unsubscribe, error) {
	if c.subErr != nil {
		return nil, c.subErr
	}
	go h(c.snap)
	return func() {
		c.mu.Lock()
		c.unsubed++
		c.mu.Unlock()
	}, nil
}

func (c *recordingCollection) Add(ctx context.Context, fields map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return "", c.addErr
	}
	c.added = append(c.added, fields)
	return "id-1", nil
}

func (c *recordingCollection) Close() error { return nil }

func (c *recordingCollection) adds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.added)
}

func whitespace() *rapid.Generator[string] {
	return rapid.StringOf(rapid.RuneFrom([]rune{' ', '\t', '\n', '\r', '\v', '\f', ' ', ' '}))
}

func nonBlankCore() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9]([A-Za-z0-9 .,!?]{0,40}[A-Za-z0-9])?`)
}

func TestCreate_WhitespaceNeverInserts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		coll := &recordingCollection{}
		svc := NewService(coll)

		text := whitespace().Draw(t, "text")
		_, err := svc.Create(context.Background(), text)

		if !errors.Is(err, ErrEmptyTitle) {
			t.Fatalf("want ErrEmptyTitle for %q, got %v", text, err)
		}
		if n := coll.adds(); n != 0 {
			t.Fatalf("backend called %d times for blank input %q", n, text)
		}
	})
}

func TestCreate_StoresTrimmedTitleIncomplete(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		coll := &recordingCollection{}
		svc := NewService(coll)

		core := nonBlankCore().Draw(t, "core")
		text := whitespace().Draw(t, "left") + core + whitespace().Draw(t, "right")

		it, err := svc.Create(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if coll.adds() != 1 {
			t.Fatalf("want exactly one insert, got %d", coll.adds())
		}
		got := coll.added[0]
		if got["title"] != core {
			t.Fatalf("stored title %q, want %q", got["title"], core)
		}
		if got["complete"] != false {
			t.Fatalf("stored complete %v, want false", got["complete"])
		}
		if it.Title != core || it.Complete || it.ID != "id-1" {
			t.Fatalf("returned item %+v", it)
		}
	})
}

func TestCreate_BuyMilk(t *testing.T) {
	coll := &recordingCollection{}
	svc := NewService(coll)

	it, err := svc.Create(context.Background(), "  Buy milk  ")
	require.NoError(t, err)
	assert.Equal(t, model.Item{ID: "id-1", Title: "Buy milk"}, it)
	require.Len(t, coll.added, 1)
	assert.Equal(t, map[string]any{"title": "Buy milk", "complete": false}, coll.added[0])
}

func TestCreate_BackendError(t *testing.T) {
	cause := errors.New("unavailable")
	coll := &recordingCollection{addErr: cause}
	svc := NewService(coll)

	_, err := svc.Create(context.Background(), "Buy milk")
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "add todo", be.Op)
	assert.ErrorIs(t, err, cause)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestSubscribeConvertsSnapshot(t *testing.T) {
	coll := &recordingCollection{snap: store.Snapshot{Docs: []store.Document{
		{ID: "b", Fields: map[string]any{"title": "second", "complete": false}},
		{ID: "a", Fields: map[string]any{"title": "first", "complete": false}},
		{ID: "a", Fields: map[string]any{"title": "first", "complete": false}},
	}}}
	svc := NewService(coll)

	got := make(chan []model.Item, 1)
	unsub, err := svc.Subscribe(context.Background(), func(items []model.Item) { got <- items })
	require.NoError(t, err)
	defer unsub()

	select {
	case items := <-got:
		// backend order, duplicates and all
		assert.Equal(t, []model.Item{
			{ID: "b", Title: "second"},
			{ID: "a", Title: "first"},
			{ID: "a", Title: "first"},
		}, items)
	case <-time.After(time.Second):
		t.Fatal("no items delivered")
	}
}

func TestSubscribeError(t *testing.T) {
	coll := &recordingCollection{subErr: store.ErrClosed}
	_, err := NewService(coll).Subscribe(context.Background(), func([]model.Item) {})

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestListReleasesSubscription(t *testing.T) {
	coll := &recordingCollection{snap: store.Snapshot{}}
	items, err := NewService(coll).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, coll.unsubed)
}

func TestEndToEndWithMemstore(t *testing.T) {
	coll := memstore.New(nil)
	t.Cleanup(func() { coll.Close() })
	svc := NewService(coll)

	got := make(chan []model.Item, 16)
	unsub, err := svc.Subscribe(context.Background(), func(items []model.Item) { got <- items })
	require.NoError(t, err)
	defer unsub()
	assert.Empty(t, <-got)

	created, err := svc.Create(context.Background(), "  Buy milk  ")
	require.NoError(t, err)

	select {
	case items := <-got:
		assert.Equal(t, []model.Item{created}, items)
	case <-time.After(2 * time.Second):
		t.Fatal("created item never arrived through the subscription")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "\t\n", wantErr: true},
		{in: "x", want: "x"},
		{in: "  Buy milk  ", want: "Buy milk"},
		{in: "inner  spaces kept", want: "inner  spaces kept"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrEmptyTitle, "input %q", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
