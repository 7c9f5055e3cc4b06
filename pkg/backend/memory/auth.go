package memory

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/security"
)

type account struct {
	uid          string
	email        string
	passwordHash string
}

// Auth is an email/password identity provider kept in memory.
type Auth struct {
	mu       sync.RWMutex
	hasher   *security.PasswordHasher
	accounts map[string]account
	signedIn map[string]bool
}

func NewAuth(hasher *security.PasswordHasher) *Auth {
	return &Auth{
		hasher:   hasher,
		accounts: map[string]account{},
		signedIn: map[string]bool{},
	}
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (backend.Identity, error) {
	if err := ctx.Err(); err != nil {
		return backend.Identity{}, err
	}
	key := normalizeEmail(email)
	if _, err := mail.ParseAddress(key); err != nil || key == "" {
		return backend.Identity{}, backend.AuthFailure(fmt.Errorf("invalid email %q", email), "sign up")
	}
	if err := security.CheckStrength(password); err != nil {
		return backend.Identity{}, backend.AuthFailure(err, "sign up")
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return backend.Identity{}, backend.AuthFailure(err, "sign up")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[key]; exists {
		return backend.Identity{}, backend.AuthFailure(fmt.Errorf("email already in use"), "sign up")
	}
	acct := account{uid: strings.ReplaceAll(uuid.NewString(), "-", ""), email: key, passwordHash: hash}
	a.accounts[key] = acct
	a.signedIn[acct.uid] = true
	return backend.Identity{UID: acct.uid, Email: acct.email}, nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	if err := ctx.Err(); err != nil {
		return backend.Identity{}, err
	}
	a.mu.RLock()
	acct, ok := a.accounts[normalizeEmail(email)]
	a.mu.RUnlock()
	if !ok {
		return backend.Identity{}, backend.AuthFailure(fmt.Errorf("unknown account"), "sign in")
	}

	match, err := a.hasher.Verify(password, acct.passwordHash)
	if err != nil {
		return backend.Identity{}, backend.AuthFailure(err, "sign in")
	}
	if !match {
		return backend.Identity{}, backend.AuthFailure(fmt.Errorf("wrong password"), "sign in")
	}

	var upgraded string
	if a.hasher.NeedsRehash(acct.passwordHash) {
		// a failed upgrade keeps the old hash, the sign in still succeeds
		if rehashed, err := a.hasher.Hash(password); err == nil {
			upgraded = rehashed
		}
	}

	a.mu.Lock()
	if upgraded != "" {
		acct.passwordHash = upgraded
		a.accounts[acct.email] = acct
	}
	a.signedIn[acct.uid] = true
	a.mu.Unlock()
	return backend.Identity{UID: acct.uid, Email: acct.email}, nil
}

func (a *Auth) SignOut(ctx context.Context, uid string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.signedIn, uid)
	return nil
}

// IsSignedIn reports whether uid has an open provider session.
func (a *Auth) IsSignedIn(uid string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.signedIn[uid]
}

// passwordHash exposes the stored hash for tests.
func (a *Auth) passwordHash(email string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accounts[normalizeEmail(email)].passwordHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
