package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/service/session"
)

type fakeIdentity struct {
	loginErr    error
	exchangeErr error
}

func (f *fakeIdentity) LoginURL(context.Context) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "https://id.example.com/authorize?client_id=chatgw", nil
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code string) (session.TokenResult, error) {
	if f.exchangeErr != nil {
		return session.TokenResult{}, f.exchangeErr
	}
	return session.TokenResult{
		AccessToken: "tok-" + code,
		UserInfo:    &session.UserInfo{ID: "u1", Name: "Pat", Groups: []string{"staff"}},
	}, nil
}

func newRouter(t *testing.T, identity session.IdentityClient) http.Handler {
	t.Helper()

	sessions := session.NewManager(identity, session.NewMemoryStore(0), nil, nil)
	handler := New(sessions)

	r := chi.NewRouter()
	handler.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))
		handler.RegisterProtectedRoutes(r)
	})
	return r
}

func do(t *testing.T, router http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginReturnsAuthURL(t *testing.T) {
	router := newRouter(t, &fakeIdentity{})

	rec := do(t, router, http.MethodGet, "/auth/login", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["auth_url"] == "" {
		t.Fatal("expected auth_url in response")
	}
}

func TestLoginUpstreamFailure(t *testing.T) {
	router := newRouter(t, &fakeIdentity{loginErr: errors.New("provider down")})

	rec := do(t, router, http.MethodGet, "/auth/login", "", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestTokenExchange(t *testing.T) {
	router := newRouter(t, &fakeIdentity{})

	rec := do(t, router, http.MethodPost, "/auth/token", "", map[string]string{"code": "abc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		SessionID   string `json:"session_id"`
		AccessToken string `json:"access_token"`
		User        struct {
			Name   string   `json:"name"`
			Groups []string `json:"groups"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.SessionID == "" {
		t.Fatal("expected a session_id")
	}
	if payload.AccessToken != "tok-abc" {
		t.Errorf("access_token = %q, want %q", payload.AccessToken, "tok-abc")
	}
	if len(payload.User.Groups) != 1 || payload.User.Groups[0] != "staff" {
		t.Errorf("unexpected groups: %v", payload.User.Groups)
	}
}

func TestTokenEmptyCode(t *testing.T) {
	router := newRouter(t, &fakeIdentity{})

	rec := do(t, router, http.MethodPost, "/auth/token", "", map[string]string{"code": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty code, got %d", rec.Code)
	}
}

func TestTokenExchangeRejected(t *testing.T) {
	router := newRouter(t, &fakeIdentity{exchangeErr: errors.New("invalid code")})

	rec := do(t, router, http.MethodPost, "/auth/token", "", map[string]string{"code": "bad"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected code, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := newRouter(t, &fakeIdentity{})

	rec := do(t, router, http.MethodPost, "/auth/token", "", map[string]string{"code": "abc"})
	var exchanged struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&exchanged); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = do(t, router, http.MethodGet, "/auth/session", exchanged.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for live session, got %d", rec.Code)
	}
	var info struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.Phase != string(session.PhaseAuthenticated) {
		t.Errorf("phase = %q, want %q", info.Phase, session.PhaseAuthenticated)
	}

	rec = do(t, router, http.MethodPost, "/auth/logout", exchanged.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from logout, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/auth/session", exchanged.SessionID, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
