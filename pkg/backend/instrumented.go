package backend

import (
	"context"
	"time"
)

// OpObserver receives timings for backend calls.
type OpObserver interface {
	ObserveOp(collection, op string, duration time.Duration, err error)
	IncSnapshot(collection string)
}

type instrumentedStore struct {
	next DocumentStore
	obs  OpObserver
}

// InstrumentDocumentStore reports every call on store to obs.
func InstrumentDocumentStore(store DocumentStore, obs OpObserver) DocumentStore {
	if obs == nil {
		return store
	}
	return &instrumentedStore{next: store, obs: obs}
}

func (s *instrumentedStore) observe(collection, op string, start time.Time, err error) {
	s.obs.ObserveOp(collection, op, time.Since(start), err)
}

func (s *instrumentedStore) Get(ctx context.Context, collection, id string) (*Document, bool, error) {
	start := time.Now()
	doc, found, err := s.next.Get(ctx, collection, id)
	s.observe(collection, "get", start, err)
	return doc, found, err
}

func (s *instrumentedStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	start := time.Now()
	err := s.next.Set(ctx, collection, id, fields)
	s.observe(collection, "set", start, err)
	return err
}

func (s *instrumentedStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	start := time.Now()
	id, err := s.next.Add(ctx, collection, fields)
	s.observe(collection, "add", start, err)
	return id, err
}

func (s *instrumentedStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	start := time.Now()
	err := s.next.Update(ctx, collection, id, fields)
	s.observe(collection, "update", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, collection, id)
	s.observe(collection, "delete", start, err)
	return err
}

func (s *instrumentedStore) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Subscription, error) {
	start := time.Now()
	sub, err := s.next.Subscribe(ctx, collection, func(docs []Document) {
		s.obs.IncSnapshot(collection)
		fn(docs)
	})
	s.observe(collection, "subscribe", start, err)
	return sub, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

type instrumentedBlobs struct {
	next BlobStore
	obs  OpObserver
}

// InstrumentBlobStore reports uploads and URL lookups to obs.
func InstrumentBlobStore(blobs BlobStore, obs OpObserver) BlobStore {
	if obs == nil {
		return blobs
	}
	return &instrumentedBlobs{next: blobs, obs: obs}
}

func (b *instrumentedBlobs) Upload(ctx context.Context, path string, data []byte, contentType string) (BlobHandle, error) {
	start := time.Now()
	handle, err := b.next.Upload(ctx, path, data, contentType)
	b.obs.ObserveOp("blobs", "upload", time.Since(start), err)
	return handle, err
}

func (b *instrumentedBlobs) PublicURL(ctx context.Context, handle BlobHandle) (string, error) {
	start := time.Now()
	url, err := b.next.PublicURL(ctx, handle)
	b.obs.ObserveOp("blobs", "public_url", time.Since(start), err)
	return url, err
}
