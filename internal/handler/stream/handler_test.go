package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/model/chat"
	"github.com/formfill/chatbot/backend/internal/service/conversation"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
)

type stubBackend struct {
	replies []chat.ReplyElement
}

func (s *stubBackend) Send(_ context.Context, _, _ string, _ []chat.Turn) ([]chat.ReplyElement, error) {
	return s.replies, nil
}

func newStreamRouter(backend dialogue.Backend) http.Handler {
	registry := dialogue.NewRegistry()
	registry.Register("formbot", backend)
	registry.Register("vip-bot", backend)
	conversations := conversation.NewService(registry, 0, nil, nil)

	bots := bot.NewMemoryStore([]bot.Bot{
		{ID: "formbot", Name: "Form Assistant", Kind: bot.KindRest},
		{ID: "vip-bot", Name: "VIP", Kind: bot.KindRest, RequiredGroups: []string{"vip"}},
	})

	r := chi.NewRouter()
	New(conversations, bots, nil).RegisterRoutes(r)
	return r
}

func TestSSEEmitsTurnsAndDone(t *testing.T) {
	router := newStreamRouter(&stubBackend{replies: chat.TextElement("hello")})

	req := httptest.NewRequest(http.MethodGet, "/bots/formbot/stream?message=hi", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	if got := strings.Count(body, "event: turn"); got != 2 {
		t.Errorf("expected 2 turn events, got %d in %q", got, body)
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("missing done event in %q", body)
	}
}

func TestSSERejectsInvalidDate(t *testing.T) {
	prompt := chat.ReplyElement{Custom: &chat.CustomReply{DataType: "date", Text: "When?"}}
	router := newStreamRouter(&stubBackend{replies: []chat.ReplyElement{prompt}})

	// Prime the date prompt, then answer with something that is not a date.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/formbot/stream?message=start", nil))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/formbot/stream?message=not-a-date", nil))

	if !strings.Contains(rec.Body.String(), "event: rejected") {
		t.Errorf("expected rejected event, got %q", rec.Body.String())
	}
}

func TestSSERequiresMessage(t *testing.T) {
	router := newStreamRouter(&stubBackend{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/formbot/stream", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without message, got %d", rec.Code)
	}

	// Whitespace-only input is as empty as no input at all.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/formbot/stream?message=%20%20", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", rec.Code)
	}
}

func TestSSEUnknownBot(t *testing.T) {
	router := newStreamRouter(&stubBackend{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/nope/stream?message=hi", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bot, got %d", rec.Code)
	}
}

func TestSSEGroupGate(t *testing.T) {
	router := newStreamRouter(&stubBackend{replies: chat.TextElement("hello")})

	// No session groups are present, so the vip-gated bot must not stream.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bots/vip-bot/stream?message=hi", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for gated bot, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "event: turn") {
		t.Fatal("gated bot must not stream turns")
	}
}

func TestWebsocketGroupGate(t *testing.T) {
	router := newStreamRouter(&stubBackend{replies: chat.TextElement("hello")})
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/bots/vip-bot/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake rejection for gated bot")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %+v", resp)
	}
}

func TestWebsocketTurnRoundTrip(t *testing.T) {
	router := newStreamRouter(&stubBackend{replies: chat.TextElement("hello")})
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/bots/formbot/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var events []string
	for {
		var frame struct {
			Event string     `json:"event"`
			Turn  *chat.Turn `json:"turn"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, frame.Event)
		if frame.Event == "done" {
			break
		}
	}

	if len(events) != 3 || events[0] != "turn" || events[1] != "turn" {
		t.Fatalf("unexpected event sequence: %v", events)
	}
}
