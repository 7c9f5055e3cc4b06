// Package firestore implements the document store on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/gcp"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

type Client struct {
	fs   *gfs.Client
	logg *logger.Logger
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, fbCfg config.FirebaseConfig, logg *logger.Logger) (*Client, error) {
	if gcpCfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	database := fbCfg.DatabaseID
	if database == "" {
		database = gfs.DefaultDatabaseID
	}

	fs, err := gfs.NewClientWithDatabase(ctx, gcpCfg.ProjectID, database, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient failed (project=%s): %w", gcpCfg.ProjectID, err)
	}

	if logg != nil {
		logg.Info(ctx, "firestore client initialized")
	}
	return &Client{fs: fs, logg: logg}, nil
}

func (c *Client) Close() error {
	if c == nil || c.fs == nil {
		return nil
	}
	return c.fs.Close()
}

// Ping lists collections; Firestore has no dedicated health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.fs == nil {
		return errors.New("firestore client not initialized")
	}
	if _, err := c.fs.Collections(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (*backend.Document, bool, error) {
	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backend.ReadFailure(err, "get "+collection+"/"+id)
	}
	if !snap.Exists() {
		return nil, false, nil
	}
	return &backend.Document{ID: snap.Ref.ID, Fields: snap.Data()}, true, nil
}

func (c *Client) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := c.fs.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return backend.WriteFailure(err, "set "+collection+"/"+id)
	}
	return nil
}

func (c *Client) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := c.fs.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", backend.WriteFailure(err, "add "+collection)
	}
	return ref.ID, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]gfs.Update, 0, len(fields))
	for key, value := range fields {
		updates = append(updates, gfs.Update{FieldPath: gfs.FieldPath{key}, Value: value})
	}
	if _, err := c.fs.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return backend.WriteFailure(err, "update "+collection+"/"+id)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.fs.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return backend.WriteFailure(err, "delete "+collection+"/"+id)
	}
	return nil
}

// Subscribe runs a snapshot listener on its own goroutine. The first
// delivery is the collection's current contents.
func (c *Client) Subscribe(ctx context.Context, collection string, fn backend.SnapshotFunc) (backend.Subscription, error) {
	if fn == nil {
		return nil, errors.New("snapshot callback required")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	it := c.fs.Collection(collection).Snapshots(listenCtx)

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if listenCtx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				sub.fail(err)
				if c.logg != nil {
					c.logg.Error(ctx, "firestore listener ended: "+collection, err)
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				sub.fail(err)
				if c.logg != nil {
					c.logg.Error(ctx, "firestore snapshot read failed: "+collection, err)
				}
				return
			}
			fn(toDocuments(snaps))
		}
	}()

	return sub, nil
}

func toDocuments(snaps []*gfs.DocumentSnapshot) []backend.Document {
	docs := make([]backend.Document, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		docs = append(docs, backend.Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Stop cancels the listener without waiting for it to drain, so it is safe to
// call from inside a snapshot callback.
func (s *subscription) Stop() {
	s.cancel()
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

var _ backend.DocumentStore = (*Client)(nil)
