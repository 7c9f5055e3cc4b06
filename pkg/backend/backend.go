// Package backend defines the managed backend collaborators the storefront
// state layer talks to: identity, documents and blobs.
package backend

import (
	"context"
	"strings"
)

// Identity is the authenticated principal returned by the identity provider.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Auth is the identity provider. Session-side observation of the signed-in
// identity lives with the session registry, not here.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, uid string) error
}

// Document is one record of a collection snapshot.
type Document struct {
	ID     string
	Fields map[string]any
}

// SnapshotFunc receives the full contents of a collection after every change.
type SnapshotFunc func(docs []Document)

// Subscription is a live collection listener.
type Subscription interface {
	Stop()
	// Done is closed once the listener has ended for any reason.
	Done() <-chan struct{}
	// Err reports why a listener ended on its own. Nil after Stop.
	Err() error
}

// DocumentStore is the document database. Collections are slash separated
// paths, so a per-user sub-collection is "users/{uid}/cart".
type DocumentStore interface {
	// Get returns found=false, not an error, when the document is absent.
	Get(ctx context.Context, collection, id string) (*Document, bool, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	// Subscribe delivers the current snapshot, then one per change, until the
	// subscription is stopped or ctx is done.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Subscription, error)
	Ping(ctx context.Context) error
}

// BlobHandle identifies an uploaded object.
type BlobHandle struct {
	Path string `json:"path"`
}

// BlobStore is the object storage holding product images.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (BlobHandle, error)
	PublicURL(ctx context.Context, handle BlobHandle) (string, error)
}

// JoinPath builds a collection path from its segments.
func JoinPath(segments ...string) string {
	cleaned := make([]string, 0, len(segments))
	for _, segment := range segments {
		if trimmed := strings.Trim(segment, "/"); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "/")
}
