package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/security"
)

type recorder struct {
	mu        sync.Mutex
	snapshots [][]backend.Document
}

func (r *recorder) fn(docs []backend.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, docs)
}

func (r *recorder) last() []backend.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestStoreGetAbsentIsNotAnError(t *testing.T) {
	store := NewStore()
	doc, found, err := store.Get(context.Background(), "users", "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, doc)
}

func TestStoreSetGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Set(ctx, "users/u1/cart", "p1", map[string]any{"name": "Seed", "quantity": 1}))
	require.NoError(t, store.Update(ctx, "users/u1/cart", "p1", map[string]any{"quantity": 2}))

	doc, found, err := store.Get(ctx, "users/u1/cart", "p1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "p1", doc.ID)
	require.Equal(t, "Seed", doc.Fields["name"])
	require.Equal(t, 2, doc.Fields["quantity"])

	require.NoError(t, store.Delete(ctx, "users/u1/cart", "p1"))
	_, found, err = store.Get(ctx, "users/u1/cart", "p1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Delete(ctx, "users/u1/cart", "p1"), "deleting an absent doc is a no-op")
}

func TestStoreUpdateMissingIsWriteFailure(t *testing.T) {
	err := NewStore().Update(context.Background(), "products", "nope", map[string]any{"name": "x"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeWriteFailure))
}

func TestStoreReturnedFieldsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	fields := map[string]any{"name": "Seed"}
	require.NoError(t, store.Set(ctx, "products", "p1", fields))
	fields["name"] = "mutated"

	doc, _, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	doc.Fields["name"] = "also mutated"

	again, _, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	require.Equal(t, "Seed", again.Fields["name"])
}

func TestStoreAddGeneratesID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first, err := store.Add(ctx, "products", map[string]any{"name": "A"})
	require.NoError(t, err)
	second, err := store.Add(ctx, "products", map[string]any{"name": "B"})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
}

func TestSubscribeDeliversInitialAndOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Set(ctx, "products", "a", map[string]any{"name": "A"}))

	rec := &recorder{}
	sub, err := store.Subscribe(ctx, "products", rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	require.Equal(t, 1, rec.count())
	require.Len(t, rec.last(), 1)

	require.NoError(t, store.Set(ctx, "products", "b", map[string]any{"name": "B"}))
	require.NoError(t, store.Set(ctx, "products", "c", map[string]any{"name": "C"}))
	require.NoError(t, store.Delete(ctx, "products", "b"))

	require.Equal(t, 4, rec.count())
	last := rec.last()
	require.Len(t, last, 2)
	require.Equal(t, "a", last[0].ID)
	require.Equal(t, "c", last[1].ID)
}

func TestSubscribeIsScopedToCollection(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rec := &recorder{}
	sub, err := store.Subscribe(ctx, "users/u1/cart", rec.fn)
	require.NoError(t, err)
	defer sub.Stop()

	require.NoError(t, store.Set(ctx, "users/u2/cart", "p1", map[string]any{"quantity": 1}))
	require.Equal(t, 1, rec.count())
}

func TestStopEndsDelivery(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rec := &recorder{}
	sub, err := store.Subscribe(ctx, "products", rec.fn)
	require.NoError(t, err)

	sub.Stop()
	sub.Stop()
	<-sub.Done()
	require.NoError(t, sub.Err())
	require.Equal(t, 0, store.ListenerCount("products"))

	require.NoError(t, store.Set(ctx, "products", "a", map[string]any{"name": "A"}))
	require.Equal(t, 1, rec.count())
}

func TestContextCancelStopsSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore()
	sub, err := store.Subscribe(ctx, "products", func([]backend.Document) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
	require.Equal(t, 0, store.ListenerCount("products"))
}

func TestBreakListenersEndsWithError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rec := &recorder{}
	sub, err := store.Subscribe(ctx, "products", rec.fn)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	other, err := store.Subscribe(ctx, "users/u1/cart", func([]backend.Document) {})
	if err != nil {
		t.Fatalf("subscribe cart: %v", err)
	}

	broken := errors.New("stream reset")
	store.BreakListeners("products", broken)
	<-sub.Done()
	if !errors.Is(sub.Err(), broken) {
		t.Fatalf("expected %v, got %v", broken, sub.Err())
	}
	if store.ListenerCount("products") != 0 {
		t.Fatalf("broken listener still registered")
	}
	if other.Err() != nil || store.ListenerCount("users/u1/cart") != 1 {
		t.Fatalf("listener on another collection was affected")
	}

	_ = store.Set(ctx, "products", "a", map[string]any{"name": "A"})
	if rec.count() != 1 {
		t.Fatalf("expected no delivery after break, got %d snapshots", rec.count())
	}
}

func TestFailSubscribes(t *testing.T) {
	store := NewStore()
	store.FailSubscribes(errors.New("offline"))
	if _, err := store.Subscribe(context.Background(), "products", func([]backend.Document) {}); err == nil {
		t.Fatal("expected subscribe to fail")
	}

	store.FailSubscribes(nil)
	sub, err := store.Subscribe(context.Background(), "products", func([]backend.Document) {})
	if err != nil {
		t.Fatalf("subscribe after clearing: %v", err)
	}
	sub.Stop()
}

func TestFailWritesAndReads(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	store.FailWrites(errors.New("offline"))
	err := store.Set(ctx, "products", "a", map[string]any{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeWriteFailure))
	store.FailWrites(nil)
	require.NoError(t, store.Set(ctx, "products", "a", map[string]any{}))

	store.FailReads(errors.New("offline"))
	_, _, err = store.Get(ctx, "products", "a")
	require.Error(t, err)
}

func TestBlobStoreUploadAndURL(t *testing.T) {
	ctx := context.Background()
	blobs := NewBlobStore("https://cdn.test/bucket/")

	handle, err := blobs.Upload(ctx, "product_images/abc", []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	require.Equal(t, "product_images/abc", handle.Path)

	url, err := blobs.PublicURL(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/bucket/product_images/abc", url)

	obj, ok := blobs.Object("product_images/abc")
	require.True(t, ok)
	require.Equal(t, "image/png", obj.ContentType)

	_, err = blobs.PublicURL(ctx, backend.BlobHandle{Path: "missing"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUploadFailure))
}

func TestBlobStoreFailUploads(t *testing.T) {
	blobs := NewBlobStore("")
	blobs.FailUploads(errors.New("quota"))
	_, err := blobs.Upload(context.Background(), "product_images/x", []byte{1}, "image/png")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUploadFailure))
	require.Equal(t, 0, blobs.Len())
}

func testAuth() *Auth {
	return NewAuth(security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1}))
}

func TestAuthSignUpSignIn(t *testing.T) {
	ctx := context.Background()
	auth := testAuth()

	created, err := auth.SignUp(ctx, "Farmer@Example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, created.UID)
	require.Equal(t, "farmer@example.com", created.Email)

	identity, err := auth.SignIn(ctx, "farmer@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, created.UID, identity.UID)
	require.True(t, auth.IsSignedIn(identity.UID))

	require.NoError(t, auth.SignOut(ctx, identity.UID))
	require.False(t, auth.IsSignedIn(identity.UID))
}

func TestAuthFailures(t *testing.T) {
	ctx := context.Background()
	auth := testAuth()
	_, err := auth.SignUp(ctx, "farmer@example.com", "secret123")
	require.NoError(t, err)

	cases := map[string]func() error{
		"duplicate email": func() error { _, err := auth.SignUp(ctx, "farmer@example.com", "secret123"); return err },
		"weak password":   func() error { _, err := auth.SignUp(ctx, "other@example.com", "123"); return err },
		"malformed email": func() error { _, err := auth.SignUp(ctx, "not-an-email", "secret123"); return err },
		"wrong password":  func() error { _, err := auth.SignIn(ctx, "farmer@example.com", "nope-nope"); return err },
		"unknown account": func() error { _, err := auth.SignIn(ctx, "ghost@example.com", "secret123"); return err },
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			require.True(t, pkgerrors.Is(call(), pkgerrors.CodeAuthFailure))
		})
	}
}

func TestAuthSignInUpgradesWeakHash(t *testing.T) {
	ctx := context.Background()
	weak := NewAuth(security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1}))
	_, err := weak.SignUp(ctx, "petani@example.com", "rahasia1")
	require.NoError(t, err)
	before := weak.passwordHash("petani@example.com")

	weak.hasher = security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 2, ArgonParallelism: 1})
	_, err = weak.SignIn(ctx, "petani@example.com", "rahasia1")
	require.NoError(t, err)

	after := weak.passwordHash("petani@example.com")
	require.NotEqual(t, before, after)
	require.Contains(t, after, "t=2")
	require.False(t, weak.hasher.NeedsRehash(after))
}
