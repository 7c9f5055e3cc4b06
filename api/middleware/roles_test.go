package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/enums"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

func TestRequireRole(t *testing.T) {
	mgr, docs := newTestSessions(t)
	ctx := context.Background()
	require.NoError(t, docs.Set(ctx, models.UsersCollection, "boss", map[string]any{"email": "boss@example.com", "role": "admin"}))
	require.NoError(t, docs.Set(ctx, models.UsersCollection, "shopper", map[string]any{"email": "shopper@example.com", "role": "customer"}))

	admin, err := mgr.SignIn(ctx, backend.Identity{UID: "boss", Email: "boss@example.com"})
	require.NoError(t, err)
	shopper, err := mgr.SignIn(ctx, backend.Identity{UID: "shopper", Email: "shopper@example.com"})
	require.NoError(t, err)

	handler := RequireRole(enums.RoleAdmin, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"admin session", WithSession(ctx, admin), http.StatusNoContent},
		{"customer session", WithSession(ctx, shopper), http.StatusForbidden},
		{"no session", ctx, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", nil).WithContext(tc.ctx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestRequireRoleFollowsDemotion(t *testing.T) {
	mgr, docs := newTestSessions(t)
	ctx := context.Background()
	require.NoError(t, docs.Set(ctx, models.UsersCollection, "boss", map[string]any{"email": "boss@example.com", "role": "admin"}))

	sess, err := mgr.SignIn(ctx, backend.Identity{UID: "boss", Email: "boss@example.com"})
	require.NoError(t, err)
	require.True(t, sess.IsAdmin())

	handler := RequireRole(enums.RoleAdmin, mgr, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func() int {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/products/p1", nil).WithContext(WithSession(ctx, sess))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := serve(); code != http.StatusNoContent {
		t.Fatalf("expected admin to pass, got %d", code)
	}

	// The session was signed in as admin; only the stored profile changes.
	require.NoError(t, docs.Set(ctx, models.UsersCollection, "boss", map[string]any{"email": "boss@example.com", "role": "customer"}))
	if code := serve(); code != http.StatusForbidden {
		t.Fatalf("expected demoted admin to be refused, got %d", code)
	}
	if sess.IsAdmin() {
		t.Fatal("session still holds the admin role after demotion")
	}
}

func TestStatusRecorderDefaultsAndFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}
	_, err := sr.Write([]byte("data: x\n\n"))
	require.NoError(t, err)
	sr.WriteHeader(http.StatusTeapot)
	sr.Flush()

	require.Equal(t, http.StatusOK, sr.status)
	require.True(t, rec.Flushed)
	require.Same(t, rec, sr.Unwrap())
}
