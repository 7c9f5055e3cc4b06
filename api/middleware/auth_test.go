package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/internal/catalog"
	"github.com/angelmondragon/agristore-backend/internal/session"
	"github.com/angelmondragon/agristore-backend/pkg/auth"
	authsession "github.com/angelmondragon/agristore-backend/pkg/auth/session"
	"github.com/angelmondragon/agristore-backend/pkg/backend/memory"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), stubSessionVerifier{ok: true}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), stubSessionVerifier{ok: true}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "uid-1")
	handler := Auth(cfg, stubSessionVerifier{ok: false}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionLookupFailure(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "uid-1")
	handler := Auth(cfg, stubSessionVerifier{err: errors.New("redis down")}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "uid-1")

	var captured struct {
		user   string
		access string
		role   enums.Role
	}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.access = AccessIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != "uid-1" {
		t.Fatalf("expected uid-1 got %q", captured.user)
	}
	if captured.access == "" {
		t.Fatal("expected access id in context")
	}
	if captured.role != enums.RoleCustomer {
		t.Fatalf("expected customer without session got %s", captured.role)
	}
}

func TestAuthRestoresSessionRole(t *testing.T) {
	cfg := testJWTConfig()
	mgr, docs := newTestSessions(t)
	require.NoError(t, docs.Set(context.Background(), models.UsersCollection, "uid-admin", map[string]any{
		"email": "admin@example.com",
		"role":  "admin",
	}))
	token := mintTestToken(t, cfg, "uid-admin")

	var sess *session.Session
	var role enums.Role
	handler := Auth(cfg, stubSessionVerifier{ok: true}, mgr, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess = SessionFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, sess)
	require.Equal(t, "uid-admin", sess.UID())
	require.Equal(t, enums.RoleAdmin, role)
	require.Equal(t, 1, mgr.Len())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer  abc ")
	require.Equal(t, "abc", bearerToken(req))

	req.Header.Set("Authorization", "raw")
	require.Equal(t, "raw", bearerToken(req))
}

func newTestSessions(t *testing.T) (*session.Manager, *memory.Store) {
	t.Helper()
	docs := memory.NewStore()
	catalogStore, err := catalog.NewStore(docs, nil)
	require.NoError(t, err)
	require.NoError(t, catalogStore.Start(context.Background()))
	t.Cleanup(catalogStore.Stop)

	mgr, err := session.NewManager(catalogStore, docs, nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close(context.Background()) })
	return mgr, docs
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, uid string) string {
	t.Helper()
	payload := auth.AccessTokenPayload{
		UserID: uid,
		Email:  uid + "@example.com",
		JTI:    authsession.NewAccessID(),
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
