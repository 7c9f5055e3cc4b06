// Package session keeps the per-user state of signed-in storefront users:
// identity, role, mutation flags, the catalog search view and the cart mirror.
package session

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/catalog"
	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	"github.com/angelmondragon/agristore-backend/pkg/models"
	"github.com/angelmondragon/agristore-backend/pkg/observable"
)

// Session is the state owned by one signed-in user.
type Session struct {
	uid string

	identity      *observable.Value[*backend.Identity]
	role          *observable.Value[enums.Role]
	loading       *observable.Value[bool]
	uploadSuccess *observable.Value[bool]

	view *catalog.View
	cart *cart.Store

	// cancel ends listeners opened on the session's behalf.
	cancel context.CancelFunc
}

// State is a point-in-time copy of everything a client renders.
type State struct {
	Identity      *backend.Identity `json:"identity"`
	Role          enums.Role        `json:"role"`
	IsLoading     bool              `json:"isLoading"`
	UploadSuccess bool              `json:"uploadSuccess"`
	Query         string            `json:"query"`
	Products      []models.Product  `json:"products"`
	Cart          []models.CartItem `json:"cart"`
	CartTotal     decimal.Decimal   `json:"cartTotal"`
}

func newSession(uid string, view *catalog.View, cartStore *cart.Store, cancel context.CancelFunc) *Session {
	return &Session{
		uid:           uid,
		identity:      observable.NewValue[*backend.Identity](nil),
		role:          observable.NewValue(enums.RoleCustomer),
		loading:       observable.NewValue(false),
		uploadSuccess: observable.NewValue(false),
		view:          view,
		cart:          cartStore,
		cancel:        cancel,
	}
}

func (s *Session) UID() string { return s.uid }

// CurrentIdentity returns the signed-in identity, or nil after sign-out.
func (s *Session) CurrentIdentity() *backend.Identity {
	return s.identity.Get()
}

// OnAuthStateChange calls fn with the current identity, then on every change.
func (s *Session) OnAuthStateChange(fn func(*backend.Identity)) (cancel func()) {
	cancel = s.identity.Subscribe(fn)
	fn(s.identity.Get())
	return cancel
}

func (s *Session) Role() enums.Role {
	return s.role.Get()
}

func (s *Session) IsAdmin() bool {
	return s.role.Get() == enums.RoleAdmin
}

func (s *Session) IsLoading() bool     { return s.loading.Get() }
func (s *Session) UploadSuccess() bool { return s.uploadSuccess.Get() }

func (s *Session) SetLoading(loading bool) {
	s.loading.Set(loading)
}

func (s *Session) SetUploadSuccess(success bool) {
	s.uploadSuccess.Set(success)
}

// ResetUploadState clears uploadSuccess once the client has acknowledged it.
func (s *Session) ResetUploadState() {
	s.uploadSuccess.Set(false)
}

// View is the session's catalog search view.
func (s *Session) View() *catalog.View {
	return s.view
}

// Cart is the session's cart mirror.
func (s *Session) Cart() *cart.Store {
	return s.cart
}

// State copies the current value of every cell.
func (s *Session) State() State {
	snapshot := s.cart.Snapshot()
	return State{
		Identity:      s.identity.Get(),
		Role:          s.role.Get(),
		IsLoading:     s.loading.Get(),
		UploadSuccess: s.uploadSuccess.Get(),
		Query:         s.view.Query(),
		Products:      s.view.Products(),
		Cart:          snapshot.Items,
		CartTotal:     snapshot.TotalPrice(),
	}
}

// OnChange calls fn after any cell of the session changes.
func (s *Session) OnChange(fn func()) (cancel func()) {
	cancels := []func(){
		s.identity.Subscribe(func(*backend.Identity) { fn() }),
		s.role.Subscribe(func(enums.Role) { fn() }),
		s.loading.Subscribe(func(bool) { fn() }),
		s.uploadSuccess.Subscribe(func(bool) { fn() }),
		s.view.Subscribe(func([]models.Product) { fn() }),
		s.cart.Subscribe(func(cart.Snapshot) { fn() }),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
