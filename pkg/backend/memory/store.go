// Package memory provides in-process implementations of the backend
// collaborators for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
}

// Store is a DocumentStore kept in memory. Change notifications are delivered
// synchronously on the writing goroutine, in write order. Listeners must not
// write back into the store from inside their callback.
type Store struct {
	notifyMu sync.Mutex
	mu       sync.RWMutex

	collections map[string]*collection
	listeners   map[string]map[string]*subscription
	writeErr    error
	readErr     error
	subErr      error
}

func NewStore() *Store {
	return &Store{
		collections: map[string]*collection{},
		listeners:   map[string]map[string]*subscription{},
	}
}

// FailWrites makes every subsequent write return err until cleared with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailReads makes every subsequent Get return err until cleared with nil.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailSubscribes makes every subsequent Subscribe return err until cleared
// with nil.
func (s *Store) FailSubscribes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subErr = err
}

// BreakListeners ends every live listener on path with err, the way a
// dropped Firestore stream ends.
func (s *Store) BreakListeners(path string, err error) {
	s.mu.RLock()
	broken := make([]*subscription, 0, len(s.listeners[path]))
	for _, sub := range s.listeners[path] {
		broken = append(broken, sub)
	}
	s.mu.RUnlock()
	for _, sub := range broken {
		sub.end(err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Get(ctx context.Context, path, id string) (*backend.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, false, backend.ReadFailure(s.readErr, "get "+path+"/"+id)
	}
	col, ok := s.collections[path]
	if !ok {
		return nil, false, nil
	}
	fields, ok := col.docs[id]
	if !ok {
		return nil, false, nil
	}
	return &backend.Document{ID: id, Fields: copyFields(fields)}, true, nil
}

func (s *Store) Set(ctx context.Context, path, id string, fields map[string]any) error {
	return s.write(ctx, path, func(col *collection) error {
		if _, exists := col.docs[id]; !exists {
			col.order = append(col.order, id)
		}
		col.docs[id] = copyFields(fields)
		return nil
	})
}

func (s *Store) Add(ctx context.Context, path string, fields map[string]any) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	if err := s.Set(ctx, path, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, path, id string, fields map[string]any) error {
	return s.write(ctx, path, func(col *collection) error {
		existing, ok := col.docs[id]
		if !ok {
			return backend.WriteFailure(fmt.Errorf("no document to update"), "update "+path+"/"+id)
		}
		for key, value := range fields {
			existing[key] = value
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, path, id string) error {
	return s.write(ctx, path, func(col *collection) error {
		if _, ok := col.docs[id]; !ok {
			return nil
		}
		delete(col.docs, id)
		for i, candidate := range col.order {
			if candidate == id {
				col.order = append(col.order[:i], col.order[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (s *Store) Subscribe(ctx context.Context, path string, fn backend.SnapshotFunc) (backend.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("snapshot callback required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	subErr := s.subErr
	s.mu.RUnlock()
	if subErr != nil {
		return nil, backend.ReadFailure(subErr, "subscribe "+path)
	}

	sub := &subscription{
		id:    uuid.NewString(),
		path:  path,
		fn:    fn,
		store: s,
		done:  make(chan struct{}),
	}

	s.notifyMu.Lock()
	s.mu.Lock()
	if s.listeners[path] == nil {
		s.listeners[path] = map[string]*subscription{}
	}
	s.listeners[path][sub.id] = sub
	snapshot := s.snapshotLocked(path)
	s.mu.Unlock()
	fn(snapshot)
	s.notifyMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Stop()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (s *Store) write(ctx context.Context, path string, mutate func(col *collection) error) error {
	if err := ctx.Err(); err != nil {
		return backend.WriteFailure(err, "write "+path)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return backend.WriteFailure(err, "write "+path)
	}
	col, ok := s.collections[path]
	if !ok {
		col = &collection{docs: map[string]map[string]any{}}
		s.collections[path] = col
	}
	if err := mutate(col); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.snapshotLocked(path)
	listeners := make([]*subscription, 0, len(s.listeners[path]))
	for _, sub := range s.listeners[path] {
		listeners = append(listeners, sub)
	}
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.deliver(snapshot)
	}
	return nil
}

func (s *Store) snapshotLocked(path string) []backend.Document {
	col, ok := s.collections[path]
	if !ok {
		return []backend.Document{}
	}
	docs := make([]backend.Document, 0, len(col.order))
	for _, id := range col.order {
		docs = append(docs, backend.Document{ID: id, Fields: copyFields(col.docs[id])})
	}
	return docs
}

func (s *Store) remove(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listeners, ok := s.listeners[sub.path]; ok {
		delete(listeners, sub.id)
		if len(listeners) == 0 {
			delete(s.listeners, sub.path)
		}
	}
}

// ListenerCount reports the live subscriptions on a collection.
func (s *Store) ListenerCount(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners[path])
}

type subscription struct {
	id    string
	path  string
	fn    backend.SnapshotFunc
	store *Store
	done  chan struct{}
	once  sync.Once
	err   error
}

func (s *subscription) deliver(docs []backend.Document) {
	select {
	case <-s.done:
		return
	default:
	}
	s.fn(docs)
}

func (s *subscription) Stop() {
	s.end(nil)
}

func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.store.remove(s)
		s.err = err
		close(s.done)
	})
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}

// Err is only meaningful once Done is closed.
func (s *subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return out
}

var (
	_ backend.DocumentStore = (*Store)(nil)
	_ backend.BlobStore     = (*BlobStore)(nil)
	_ backend.Auth          = (*Auth)(nil)
)
