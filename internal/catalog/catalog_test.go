package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/backend/memory"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

func seedProducts(t *testing.T, store *memory.Store, products ...models.Product) {
	t.Helper()
	for _, product := range products {
		require.NoError(t, store.Set(context.Background(), models.ProductsCollection, product.ID, product.Fields()))
	}
}

func newStartedStore(t *testing.T, docs *memory.Store) *Store {
	t.Helper()
	catalog, err := NewStore(docs, nil)
	require.NoError(t, err)
	require.NoError(t, catalog.Start(context.Background()))
	t.Cleanup(catalog.Stop)
	return catalog
}

func TestFilterEmptyQueryReturnsBackup(t *testing.T) {
	backup := []models.Product{{ID: "1", Name: "Tomato Seeds"}, {ID: "2", Name: "Hoe"}}
	require.Equal(t, backup, Filter(backup, ""))
}

func TestFilterIsCaseInsensitiveSubsequence(t *testing.T) {
	backup := []models.Product{
		{ID: "1", Name: "Tomato Seeds"},
		{ID: "2", Name: "Hoe"},
		{ID: "3", Name: "Chili SEEDS"},
	}
	got := Filter(backup, "seeds")
	require.Equal(t, []models.Product{backup[0], backup[2]}, got)

	got = Filter(backup, "SEED")
	require.Len(t, got, 2)
	require.Empty(t, Filter(backup, "fertilizer"))
}

func TestFilterWhitespaceQueryIsNotEmpty(t *testing.T) {
	backup := []models.Product{{ID: "1", Name: "Hoe"}, {ID: "2", Name: "Seed Tray"}}
	require.Equal(t, []models.Product{backup[1]}, Filter(backup, " "))
}

func TestFilterDoesNotModifyBackup(t *testing.T) {
	backup := []models.Product{{ID: "1", Name: "Hoe"}}
	out := Filter(backup, "")
	out[0].Name = "changed"
	require.Equal(t, "Hoe", backup[0].Name)
}

func TestNewStoreRequiresDocuments(t *testing.T) {
	_, err := NewStore(nil, nil)
	require.Error(t, err)
}

func TestStoreMirrorsProductsCollection(t *testing.T) {
	docs := memory.NewStore()
	seedProducts(t, docs, models.Product{ID: "p1", Name: "Hoe", Price: 25000})
	catalog := newStartedStore(t, docs)

	<-catalog.Ready()
	require.Len(t, catalog.Products(), 1)

	seedProducts(t, docs, models.Product{ID: "p2", Name: "Rake", Price: 30000})
	require.Len(t, catalog.Products(), 2)

	product, ok := catalog.GetByID("p2")
	require.True(t, ok)
	require.Equal(t, "Rake", product.Name)

	require.NoError(t, docs.Delete(context.Background(), models.ProductsCollection, "p1"))
	_, ok = catalog.GetByID("p1")
	require.False(t, ok)
}

func TestGetByIDMissesUnknownAndEmptyID(t *testing.T) {
	catalog := newStartedStore(t, memory.NewStore())
	_, ok := catalog.GetByID("")
	require.False(t, ok)
	_, ok = catalog.GetByID("nope")
	require.False(t, ok)
}

func TestStartTwiceKeepsOneListener(t *testing.T) {
	docs := memory.NewStore()
	catalog := newStartedStore(t, docs)
	require.NoError(t, catalog.Start(context.Background()))
	require.Equal(t, 1, docs.ListenerCount(models.ProductsCollection))

	catalog.Stop()
	require.Equal(t, 0, docs.ListenerCount(models.ProductsCollection))
}

func TestUndecodableProductIsSkipped(t *testing.T) {
	docs := memory.NewStore()
	require.NoError(t, docs.Set(context.Background(), models.ProductsCollection, "bad", map[string]any{"price": "not a number"}))
	seedProducts(t, docs, models.Product{ID: "ok", Name: "Hoe"})
	catalog := newStartedStore(t, docs)

	products := catalog.Products()
	require.Len(t, products, 1)
	require.Equal(t, "ok", products[0].ID)
}

func TestViewSearchAndRefresh(t *testing.T) {
	docs := memory.NewStore()
	seedProducts(t, docs,
		models.Product{ID: "1", Name: "Tomato Seeds"},
		models.Product{ID: "2", Name: "Hoe"},
	)
	catalog := newStartedStore(t, docs)
	view := catalog.NewView()
	require.Len(t, view.Products(), 2)

	got := view.Search("seeds")
	require.Len(t, got, 1)
	require.Equal(t, "seeds", view.Query())

	seedProducts(t, docs, models.Product{ID: "3", Name: "Corn Seeds"})
	require.Len(t, view.Products(), 2)

	require.Len(t, view.Search(""), 3)
}

func TestViewsAreIndependent(t *testing.T) {
	docs := memory.NewStore()
	seedProducts(t, docs, models.Product{ID: "1", Name: "Hoe"}, models.Product{ID: "2", Name: "Rake"})
	catalog := newStartedStore(t, docs)

	a := catalog.NewView()
	b := catalog.NewView()
	a.Search("hoe")
	require.Len(t, a.Products(), 1)
	require.Len(t, b.Products(), 2)
}

func TestReleasedViewStopsRefreshing(t *testing.T) {
	docs := memory.NewStore()
	catalog := newStartedStore(t, docs)
	view := catalog.NewView()
	catalog.ReleaseView(view)

	seedProducts(t, docs, models.Product{ID: "1", Name: "Hoe"})
	require.Empty(t, view.Products())
}

func TestViewSubscribeReceivesUpdates(t *testing.T) {
	docs := memory.NewStore()
	catalog := newStartedStore(t, docs)
	view := catalog.NewView()

	var seen [][]models.Product
	cancel := view.Subscribe(func(products []models.Product) { seen = append(seen, products) })
	defer cancel()

	seedProducts(t, docs, models.Product{ID: "1", Name: "Hoe"})
	require.NotEmpty(t, seen)
	require.Len(t, seen[len(seen)-1], 1)
}

func TestPingWaitsForFirstSnapshot(t *testing.T) {
	docs := memory.NewStore()
	catalog, err := NewStore(docs, nil)
	require.NoError(t, err)
	if err := catalog.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail before the listener started")
	}

	require.NoError(t, catalog.Start(context.Background()))
	t.Cleanup(catalog.Stop)
	if err := catalog.Ping(context.Background()); err != nil {
		t.Fatalf("ping after first snapshot: %v", err)
	}
}

func TestBrokenProductsListenerIsReopened(t *testing.T) {
	docs := memory.NewStore()
	catalog, err := NewStore(docs, nil)
	require.NoError(t, err)
	catalog.retry = backend.RetryPolicy{Initial: 20 * time.Millisecond, Max: 20 * time.Millisecond}
	require.NoError(t, catalog.Start(context.Background()))
	t.Cleanup(catalog.Stop)

	docs.BreakListeners(models.ProductsCollection, errors.New("stream reset"))
	if err := catalog.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to report the ended listener")
	}

	require.Eventually(t, func() bool {
		return catalog.Ping(context.Background()) == nil
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, docs.ListenerCount(models.ProductsCollection))

	seedProducts(t, docs, models.Product{ID: "p1", Name: "Hoe"})
	if _, ok := catalog.GetByID("p1"); !ok {
		t.Fatal("reopened listener did not refresh the backup")
	}
}

func TestStoppedCatalogFailsPing(t *testing.T) {
	docs := memory.NewStore()
	catalog := newStartedStore(t, docs)
	catalog.Stop()
	if err := catalog.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail once stopped")
	}
}
