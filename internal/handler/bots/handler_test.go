package bots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/model/chat"
	"github.com/formfill/chatbot/backend/internal/service/catalog"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
	"github.com/formfill/chatbot/backend/internal/service/session"
)

type staticBackend struct{}

func (staticBackend) Send(context.Context, string, string, []chat.Turn) ([]chat.ReplyElement, error) {
	return chat.TextElement("ok"), nil
}

type staticIdentity struct {
	groups []string
}

func (s *staticIdentity) LoginURL(context.Context) (string, error) {
	return "https://id.example.com/login", nil
}

func (s *staticIdentity) ExchangeCode(context.Context, string) (session.TokenResult, error) {
	return session.TokenResult{
		AccessToken: "tok",
		UserInfo:    &session.UserInfo{ID: "u1", Groups: s.groups},
	}, nil
}

func newBotsRouter(t *testing.T, groups []string) (http.Handler, string) {
	t.Helper()

	registry := dialogue.NewRegistry()
	registry.Register("formbot", staticBackend{})
	registry.Register("admin-bot", staticBackend{})
	// estates-qa stays unregistered: no backend, never offered.

	store := bot.NewMemoryStore([]bot.Bot{
		{ID: "formbot", Name: "Form Filling Chatbot", Kind: bot.KindRest},
		{ID: "admin-bot", Name: "Admin Bot", Kind: bot.KindRest, RequiredGroups: []string{"admins"}},
		{ID: "estates-qa", Name: "Real Estate Q&A", Kind: bot.KindQA},
	})

	path := filepath.Join(t.TempDir(), "forms_subset.json")
	if err := os.WriteFile(path, []byte(`{"Taxes": ["W-9"]}`), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	sessions := session.NewManager(&staticIdentity{groups: groups}, session.NewMemoryStore(0), nil, nil)
	sess, err := sessions.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))
		New(store, registry, catalog.Load(path, nil)).RegisterRoutes(r)
	})
	return r, sess.ID
}

func listBots(t *testing.T, router http.Handler, bearer string) []bot.Bot {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/bots", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var bots []bot.Bot
	if err := json.NewDecoder(rec.Body).Decode(&bots); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return bots
}

func TestListBotsHidesUnbackedAndGated(t *testing.T) {
	router, bearer := newBotsRouter(t, []string{"staff"})

	bots := listBots(t, router, bearer)
	if len(bots) != 1 || bots[0].ID != "formbot" {
		t.Fatalf("unexpected bot list: %+v", bots)
	}
}

func TestListBotsOffersGatedBotToMember(t *testing.T) {
	router, bearer := newBotsRouter(t, []string{"admins"})

	bots := listBots(t, router, bearer)
	if len(bots) != 2 {
		t.Fatalf("expected formbot and admin-bot, got %+v", bots)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	router, bearer := newBotsRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Categories []string            `json:"categories"`
		Forms      map[string][]string `json:"forms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Categories) != 1 || payload.Categories[0] != "Taxes" {
		t.Fatalf("unexpected categories: %v", payload.Categories)
	}
	if forms := payload.Forms["Taxes"]; len(forms) != 1 || forms[0] != "W-9" {
		t.Fatalf("unexpected forms: %v", payload.Forms)
	}
}
