package memory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
)

// Object is an uploaded blob.
type Object struct {
	Data        []byte
	ContentType string
}

// BlobStore keeps uploaded objects in memory and serves them under baseURL.
type BlobStore struct {
	mu        sync.RWMutex
	baseURL   string
	objects   map[string]Object
	uploadErr error
}

func NewBlobStore(baseURL string) *BlobStore {
	if baseURL == "" {
		baseURL = "http://localhost/blobs"
	}
	return &BlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: map[string]Object{},
	}
}

// FailUploads makes every subsequent upload return err until cleared with nil.
func (b *BlobStore) FailUploads(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadErr = err
}

func (b *BlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (backend.BlobHandle, error) {
	if err := ctx.Err(); err != nil {
		return backend.BlobHandle{}, backend.UploadFailure(err, "upload "+path)
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return backend.BlobHandle{}, backend.UploadFailure(fmt.Errorf("empty object path"), "upload")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return backend.BlobHandle{}, backend.UploadFailure(b.uploadErr, "upload "+path)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	b.objects[path] = Object{Data: stored, ContentType: contentType}
	return backend.BlobHandle{Path: path}, nil
}

func (b *BlobStore) PublicURL(ctx context.Context, handle backend.BlobHandle) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.objects[handle.Path]; !ok {
		return "", backend.UploadFailure(fmt.Errorf("object %q not found", handle.Path), "resolve url")
	}
	return b.baseURL + "/" + (&url.URL{Path: handle.Path}).EscapedPath(), nil
}

// Object returns a stored blob by path.
func (b *BlobStore) Object(path string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[path]
	return obj, ok
}

// Len reports how many blobs are stored.
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
