package catalog

import (
	"sync"

	"github.com/angelmondragon/agristore-backend/pkg/models"
	"github.com/angelmondragon/agristore-backend/pkg/observable"
)

// View is one session's displayed catalog: the backup filtered by the
// session's current query.
type View struct {
	catalog *Store

	mu        sync.Mutex
	query     string
	displayed *observable.Value[[]models.Product]
}

// Search sets the query and recomputes the displayed list from the backup.
func (v *View) Search(query string) []models.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = query
	result := Filter(v.catalog.Products(), query)
	v.displayed.Set(result)
	return result
}

// Products returns the displayed list.
func (v *View) Products() []models.Product {
	return v.displayed.Get()
}

// Query returns the query currently applied.
func (v *View) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Subscribe calls fn with every new displayed list.
func (v *View) Subscribe(fn func([]models.Product)) (cancel func()) {
	return v.displayed.Subscribe(fn)
}

// refresh re-applies the current query to a new backup.
func (v *View) refresh(backup []models.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.displayed.Set(Filter(backup, v.query))
}
