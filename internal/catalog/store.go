// Package catalog mirrors the products collection and serves per-session
// search views over it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
	"github.com/angelmondragon/agristore-backend/pkg/observable"
)

// Store holds the backup: the most recent full products snapshot, shared by
// every session.
type Store struct {
	docs  backend.DocumentStore
	logg  *logger.Logger
	retry backend.RetryPolicy

	backup *observable.Value[[]models.Product]
	ready  chan struct{}

	mu    sync.Mutex
	views map[*View]struct{}

	// subMu guards sub. It is separate from mu because the initial snapshot
	// may be delivered from inside Subscribe.
	subMu     sync.Mutex
	sub       backend.Subscription
	readyOnce sync.Once
}

func NewStore(docs backend.DocumentStore, logg *logger.Logger) (*Store, error) {
	if docs == nil {
		return nil, errors.New("document store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		docs:   docs,
		logg:   logg,
		retry:  backend.DefaultRetry,
		backup: observable.NewValue([]models.Product{}),
		ready:  make(chan struct{}),
		views:  map[*View]struct{}{},
	}, nil
}

// Start subscribes to the products collection. Calling it again while a
// listener is live is a no-op. A listener that ends on its own is reopened
// until ctx is done or Stop is called; the last backup stays readable
// meanwhile.
func (s *Store) Start(ctx context.Context) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub != nil {
		return nil
	}
	return s.subscribe(ctx)
}

// subscribe must be called with subMu held.
func (s *Store) subscribe(ctx context.Context) error {
	sub, err := s.docs.Subscribe(ctx, models.ProductsCollection, s.apply)
	if err != nil {
		return err
	}
	s.sub = sub
	go backend.Supervise(ctx, sub, s.retry, func(err error) {
		s.logg.Error(context.Background(), "products listener ended", err)
	}, func() error {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if s.sub != sub {
			return nil
		}
		return s.subscribe(ctx)
	})
	return nil
}

// Stop ends the products listener. The last backup stays readable.
func (s *Store) Stop() {
	s.subMu.Lock()
	sub := s.sub
	s.sub = nil
	s.subMu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

// Ready is closed after the first snapshot has been applied.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Ping reports whether the backup is current: the first snapshot has
// arrived and the listener is still running.
func (s *Store) Ping(ctx context.Context) error {
	select {
	case <-s.ready:
	default:
		return errors.New("waiting for first products snapshot")
	}
	s.subMu.Lock()
	sub := s.sub
	s.subMu.Unlock()
	if sub == nil {
		return errors.New("products listener not running")
	}
	select {
	case <-sub.Done():
		if err := sub.Err(); err != nil {
			return fmt.Errorf("products listener ended: %w", err)
		}
		return errors.New("products listener ended")
	default:
	}
	return ctx.Err()
}

func (s *Store) apply(docs []backend.Document) {
	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := models.ProductFromDocument(doc)
		if err != nil {
			s.logg.Warn(s.logg.WithField(context.Background(), "product_id", doc.ID), "skipping undecodable product: "+err.Error())
			continue
		}
		products = append(products, product)
	}
	s.backup.Set(products)
	s.readyOnce.Do(func() { close(s.ready) })

	s.mu.Lock()
	views := make([]*View, 0, len(s.views))
	for view := range s.views {
		views = append(views, view)
	}
	s.mu.Unlock()
	for _, view := range views {
		view.refresh(products)
	}
}

// Products returns the backup.
func (s *Store) Products() []models.Product {
	return s.backup.Get()
}

// GetByID scans the backup; it never fetches from the backend.
func (s *Store) GetByID(id string) (models.Product, bool) {
	if id == "" {
		return models.Product{}, false
	}
	for _, product := range s.backup.Get() {
		if product.ID == id {
			return product, true
		}
	}
	return models.Product{}, false
}

// Subscribe calls fn with every new backup.
func (s *Store) Subscribe(fn func([]models.Product)) (cancel func()) {
	return s.backup.Subscribe(fn)
}

// NewView registers a search view that starts with an empty query.
func (s *Store) NewView() *View {
	view := &View{
		catalog:   s,
		displayed: observable.NewValue(Filter(s.backup.Get(), "")),
	}
	s.mu.Lock()
	s.views[view] = struct{}{}
	s.mu.Unlock()
	return view
}

// ReleaseView stops refreshing a view.
func (s *Store) ReleaseView(view *View) {
	s.mu.Lock()
	delete(s.views, view)
	s.mu.Unlock()
}
