package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/api/middleware"
	"github.com/angelmondragon/agristore-backend/internal/auth"
	"github.com/angelmondragon/agristore-backend/internal/catalog"
	"github.com/angelmondragon/agristore-backend/internal/checkout"
	"github.com/angelmondragon/agristore-backend/internal/session"
	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/backend/memory"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

type stubAuthService struct {
	resp      *auth.LoginResponse
	err       error
	loggedOut []string
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return s.resp, s.err
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.resp, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, userID, accessID string) error {
	s.loggedOut = append(s.loggedOut, userID+":"+accessID)
	return s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	return nil, s.err
}

type stubCatalog map[string]models.Product

func (c stubCatalog) GetByID(id string) (models.Product, bool) {
	p, ok := c[id]
	return p, ok
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func withProductID(req *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: &auth.UserDTO{ID: "u1"}}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"secret"}`))
	resp := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "access", resp.Header().Get(tokenHeader))
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"secret","role":"admin"}`))
	resp := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
}

func TestAuthRegisterPropagatesAuthFailure(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeAuthFailure, "email already in use")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, string(pkgerrors.CodeAuthFailure), errorCode(t, resp))
}

func TestAuthLogoutRequiresUserContext(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	resp := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Empty(t, svc.loggedOut)
}

func TestSessionHandlersRequireSession(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"session":  SessionFetch(nil),
		"products": ProductList(nil),
		"cart":     CartFetch(nil),
		"events":   SessionEvents(0, nil),
	}
	for name, handler := range handlers {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, resp.Code)
		}
	}
}

func TestProductDetail(t *testing.T) {
	catalog := stubCatalog{"p1": {ID: "p1", Name: "Pupuk Organik", Price: 8000}}

	resp := httptest.NewRecorder()
	ProductDetail(catalog, nil).ServeHTTP(resp, withProductID(httptest.NewRequest(http.MethodGet, "/", nil), "p1"))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"name":"Pupuk Organik"`)

	resp = httptest.NewRecorder()
	ProductDetail(catalog, nil).ServeHTTP(resp, withProductID(httptest.NewRequest(http.MethodGet, "/", nil), "nope"))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProductInquiry(t *testing.T) {
	catalog := stubCatalog{"p1": {ID: "p1", Name: "Pupuk Organik", Price: 8000}}
	svc, err := checkout.NewService(config.StorefrontConfig{WhatsAppOrderPhone: "6285173342484"})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	ProductInquiry(catalog, svc, nil).ServeHTTP(resp, withProductID(httptest.NewRequest(http.MethodGet, "/", nil), "p1"))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data checkout.Link `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "6285173342484", envelope.Data.Phone)
	require.True(t, strings.HasPrefix(envelope.Data.URL, "https://api.whatsapp.com/send?"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"documents": stubPinger{}, "redis": nil}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "dev", resp.Header().Get("X-AgriStore-Env"))

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"redis": stubPinger{err: errors.New("connection refused")}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, resp))
}

func TestSessionEventsEndOnSignOut(t *testing.T) {
	ctx := context.Background()
	docs := memory.NewStore()
	catalogStore, err := catalog.NewStore(docs, nil)
	require.NoError(t, err)
	require.NoError(t, catalogStore.Start(ctx))
	t.Cleanup(catalogStore.Stop)
	mgr, err := session.NewManager(catalogStore, docs, nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close(ctx) })

	sess, err := mgr.SignIn(ctx, backend.Identity{UID: "petani-1", Email: "petani@example.com"})
	require.NoError(t, err)

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(middleware.WithSession(reqCtx, sess))
	resp := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		SessionEvents(time.Hour, nil).ServeHTTP(resp, req)
	}()
	time.Sleep(20 * time.Millisecond)

	// Another device logs out the shared session.
	mgr.SignOut(ctx, "petani-1")

	select {
	case <-finished:
	case <-reqCtx.Done():
		t.Fatal("event stream kept running after sign out")
	}
	body := resp.Body.String()
	if !strings.Contains(body, "event: signed_out\n") {
		t.Fatalf("expected signed_out event, got %q", body)
	}

	restored, err := mgr.Restore(ctx, "petani-1", "petani@example.com")
	require.NoError(t, err)
	if restored == sess {
		t.Fatal("restore returned the signed-out session")
	}
}
