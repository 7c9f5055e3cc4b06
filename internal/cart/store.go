package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
	"github.com/angelmondragon/agristore-backend/pkg/observable"
)

// Snapshot is one delivered state of a user's cart.
type Snapshot struct {
	Items []models.CartItem
	byID  map[string]int
}

func newSnapshot(items []models.CartItem) Snapshot {
	byID := make(map[string]int, len(items))
	for i, item := range items {
		byID[item.ProductID] = i
	}
	return Snapshot{Items: items, byID: byID}
}

// Get returns the line for productID.
func (s Snapshot) Get(productID string) (models.CartItem, bool) {
	i, ok := s.byID[productID]
	if !ok {
		return models.CartItem{}, false
	}
	return s.Items[i], true
}

// TotalPrice sums price times quantity over every line.
func (s Snapshot) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Store mirrors one user's cart collection.
type Store struct {
	docs  backend.DocumentStore
	logg  *logger.Logger
	retry backend.RetryPolicy

	snapshot *observable.Value[Snapshot]

	// listenMu serializes Listen, Stop and listener restarts.
	listenMu sync.Mutex
	mu       sync.Mutex
	active   *listener
}

// listener is one open subscription. Only the active listener publishes.
type listener struct {
	uid    string
	ctx    context.Context
	sub    backend.Subscription
	latest *Snapshot
}

func NewStore(docs backend.DocumentStore, logg *logger.Logger) (*Store, error) {
	if docs == nil {
		return nil, errors.New("document store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		docs:     docs,
		logg:     logg,
		retry:    backend.DefaultRetry,
		snapshot: observable.NewValue(newSnapshot(nil)),
	}, nil
}

// Listen subscribes to uid's cart. The listener already open keeps running
// until the new one is live, so a failed Listen leaves the mirror as it was.
// A listener that ends on its own is reopened until ctx is done.
func (s *Store) Listen(ctx context.Context, uid string) error {
	if uid == "" {
		return errors.New("uid required")
	}
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	return s.open(ctx, uid)
}

func (s *Store) open(ctx context.Context, uid string) error {
	l := &listener{uid: uid, ctx: ctx}
	sub, err := s.docs.Subscribe(ctx, models.CartCollection(uid), func(docs []backend.Document) {
		s.apply(l, docs)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	l.sub = sub
	previous := s.active
	s.active = l
	if l.latest != nil {
		s.snapshot.Set(*l.latest)
	} else if previous == nil || previous.uid != uid {
		s.snapshot.Set(newSnapshot(nil))
	}
	s.mu.Unlock()

	if previous != nil {
		previous.sub.Stop()
	}
	go backend.Supervise(ctx, sub, s.retry, func(err error) {
		s.logg.Error(s.logg.WithUserID(context.Background(), uid), "cart listener ended", err)
	}, func() error {
		return s.reopen(l)
	})
	return nil
}

// reopen replaces l if it is still the active listener.
func (s *Store) reopen(l *listener) error {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.mu.Lock()
	current := s.active
	s.mu.Unlock()
	if current != l {
		return nil
	}
	return s.open(l.ctx, l.uid)
}

func (s *Store) apply(l *listener, docs []backend.Document) {
	items := make([]models.CartItem, 0, len(docs))
	for _, doc := range docs {
		item, err := models.CartItemFromDocument(doc)
		if err != nil {
			ctx := s.logg.WithFields(context.Background(), map[string]any{"user_id": l.uid, "product_id": doc.ID})
			s.logg.Warn(ctx, "skipping undecodable cart line: "+err.Error())
			continue
		}
		items = append(items, item)
	}
	snapshot := newSnapshot(items)

	s.mu.Lock()
	defer s.mu.Unlock()
	l.latest = &snapshot
	if s.active == l {
		s.snapshot.Set(snapshot)
	}
}

// Stop ends the listener and empties the mirror.
func (s *Store) Stop() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.mu.Lock()
	l := s.active
	s.active = nil
	if l != nil {
		s.snapshot.Set(newSnapshot(nil))
	}
	s.mu.Unlock()
	if l != nil {
		l.sub.Stop()
	}
}

// Listening reports whether a listener is open and has not ended.
func (s *Store) Listening() bool {
	s.mu.Lock()
	l := s.active
	s.mu.Unlock()
	if l == nil {
		return false
	}
	select {
	case <-l.sub.Done():
		return false
	default:
		return true
	}
}

// Snapshot returns the latest delivered cart.
func (s *Store) Snapshot() Snapshot {
	return s.snapshot.Get()
}

// Items returns the lines in delivery order.
func (s *Store) Items() []models.CartItem {
	return s.snapshot.Get().Items
}

func (s *Store) Get(productID string) (models.CartItem, bool) {
	return s.snapshot.Get().Get(productID)
}

// TotalPrice is recomputed from the current snapshot on every call.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.snapshot.Get().TotalPrice()
}

// Subscribe calls fn with every new snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.snapshot.Subscribe(fn)
}
