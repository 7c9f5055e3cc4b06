package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/catalog"
	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// Manager is the registry of live sessions, keyed by uid.
type Manager struct {
	catalog  *catalog.Store
	docs     backend.DocumentStore
	resolver *Resolver
	logg     *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	restores singleflight.Group
}

func NewManager(catalogStore *catalog.Store, docs backend.DocumentStore, logg *logger.Logger) (*Manager, error) {
	if catalogStore == nil {
		return nil, errors.New("catalog store required")
	}
	resolver, err := NewResolver(docs)
	if err != nil {
		return nil, err
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{
		catalog:  catalogStore,
		docs:     docs,
		resolver: resolver,
		logg:     logg,
		sessions: map[string]*Session{},
	}, nil
}

// SignIn publishes identity on its session, creating the session on first
// sign-in, then resolves the role and (re)opens the cart listener.
func (m *Manager) SignIn(ctx context.Context, identity backend.Identity) (*Session, error) {
	if identity.UID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uid required")
	}
	ctx = m.logg.WithUserID(ctx, identity.UID)

	sess, created, err := m.getOrCreate(identity.UID)
	if err != nil {
		return nil, err
	}

	id := identity
	sess.identity.Set(&id)
	m.ResolveRole(ctx, sess)

	listenCtx, cancel := context.WithCancel(context.Background())
	if err := sess.cart.Listen(listenCtx, identity.UID); err != nil {
		cancel()
		if created {
			m.drop(identity.UID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open cart listener")
	}
	m.mu.Lock()
	previous := sess.cancel
	sess.cancel = cancel
	m.mu.Unlock()
	if previous != nil {
		previous()
	}

	m.logg.Info(m.logg.WithRole(ctx, sess.Role().String()), "session signed in")
	return sess, nil
}

func (m *Manager) getOrCreate(uid string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[uid]; ok {
		return sess, false, nil
	}
	cartStore, err := cart.NewStore(m.docs, m.logg)
	if err != nil {
		return nil, false, err
	}
	sess := newSession(uid, m.catalog.NewView(), cartStore, nil)
	m.sessions[uid] = sess
	return sess, true, nil
}

// ResolveRole looks the role up again and publishes it on sess. A failed
// lookup keeps the previous role.
func (m *Manager) ResolveRole(ctx context.Context, sess *Session) enums.Role {
	role, err := m.resolver.ResolveRole(ctx, sess.uid)
	if err != nil {
		m.logg.Error(ctx, "role lookup failed, keeping previous role", err)
		return sess.Role()
	}
	sess.role.Set(role)
	return role
}

// Restore returns the live session for uid, rebuilding it from the token
// claims when the process has none. Concurrent restores of one uid share a
// single rebuild.
func (m *Manager) Restore(ctx context.Context, uid, email string) (*Session, error) {
	if sess, ok := m.Get(uid); ok {
		return sess, nil
	}
	v, err, _ := m.restores.Do(uid, func() (any, error) {
		if sess, ok := m.Get(uid); ok {
			return sess, nil
		}
		return m.SignIn(ctx, backend.Identity{UID: uid, Email: email})
	})
	if err != nil {
		return nil, err
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil, fmt.Errorf("unexpected restore result %T", v)
	}
	return sess, nil
}

func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[uid]
	return sess, ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SignOut resets the role to customer, clears the identity and tears the
// session down. Holders of the old session see the identity go nil before
// its listeners stop. Unknown uids are a no-op.
func (m *Manager) SignOut(ctx context.Context, uid string) {
	sess, cancel := m.remove(uid)
	if sess == nil {
		return
	}
	sess.role.Set(enums.RoleCustomer)
	sess.identity.Set(nil)
	m.teardown(sess, cancel)
	m.logg.Info(m.logg.WithUserID(ctx, uid), "session signed out")
}

func (m *Manager) drop(uid string) {
	if sess, cancel := m.remove(uid); sess != nil {
		m.teardown(sess, cancel)
	}
}

func (m *Manager) remove(uid string) (*Session, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[uid]
	if !ok {
		return nil, nil
	}
	delete(m.sessions, uid)
	cancel := sess.cancel
	sess.cancel = nil
	return sess, cancel
}

func (m *Manager) teardown(sess *Session, cancel context.CancelFunc) {
	sess.cart.Stop()
	m.catalog.ReleaseView(sess.view)
	if cancel != nil {
		cancel()
	}
}

// Close signs every session out.
func (m *Manager) Close(ctx context.Context) {
	m.mu.RLock()
	uids := make([]string, 0, len(m.sessions))
	for uid := range m.sessions {
		uids = append(uids, uid)
	}
	m.mu.RUnlock()
	for _, uid := range uids {
		m.SignOut(ctx, uid)
	}
}
