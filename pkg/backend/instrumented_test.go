package backend_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/backend/memory"
)

type opRecord struct {
	collection string
	op         string
	failed     bool
}

type fakeObserver struct {
	mu        sync.Mutex
	ops       []opRecord
	snapshots map[string]int
}

func (f *fakeObserver) ObserveOp(collection, op string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, opRecord{collection: collection, op: op, failed: err != nil})
}

func (f *fakeObserver) IncSnapshot(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshots == nil {
		f.snapshots = map[string]int{}
	}
	f.snapshots[collection]++
}

func TestInstrumentDocumentStore(t *testing.T) {
	ctx := context.Background()
	obs := &fakeObserver{}
	store := backend.InstrumentDocumentStore(memory.NewStore(), obs)

	sub, err := store.Subscribe(ctx, "products", func([]backend.Document) {})
	require.NoError(t, err)
	defer sub.Stop()

	id, err := store.Add(ctx, "products", map[string]any{"name": "A"})
	require.NoError(t, err)
	require.Error(t, store.Update(ctx, "products", "missing", map[string]any{"name": "B"}))
	_, found, err := store.Get(ctx, "products", id)
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, []opRecord{
		{collection: "products", op: "subscribe"},
		{collection: "products", op: "add"},
		{collection: "products", op: "update", failed: true},
		{collection: "products", op: "get"},
	}, obs.ops)
	require.Equal(t, 2, obs.snapshots["products"])
}

func TestInstrumentBlobStore(t *testing.T) {
	ctx := context.Background()
	obs := &fakeObserver{}
	blobs := backend.InstrumentBlobStore(memory.NewBlobStore(""), obs)

	handle, err := blobs.Upload(ctx, "product_images/a", []byte{1}, "image/png")
	require.NoError(t, err)
	_, err = blobs.PublicURL(ctx, handle)
	require.NoError(t, err)
	require.Len(t, obs.ops, 2)
}

func TestInstrumentWithoutObserverReturnsInner(t *testing.T) {
	store := memory.NewStore()
	require.Same(t, store, backend.InstrumentDocumentStore(store, nil))
}
