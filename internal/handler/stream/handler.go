package stream

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/model/chat"
	"github.com/formfill/chatbot/backend/internal/service/conversation"
	"github.com/formfill/chatbot/backend/internal/service/session"
	"github.com/formfill/chatbot/backend/pkg/utils"
)

// Handler pushes chat turns to the SPA as they are appended, over SSE for
// one-shot turns and over a websocket for a held-open conversation.
type Handler struct {
	conversations *conversation.Service
	bots          bot.Store
	logger        *slog.Logger
	upgrader      websocket.Upgrader
}

// New creates the stream handler.
func New(conversations *conversation.Service, bots bot.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conversations: conversations,
		bots:          bots,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the streaming routes; both require a session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/bots/{botID}/stream", h.handleSSE)
	r.Get("/bots/{botID}/ws", h.handleWebsocket)
}

// turnEvent is one frame of either transport.
type turnEvent struct {
	Event string     `json:"event"`
	Turn  *chat.Turn `json:"turn,omitempty"`
	Error string     `json:"error,omitempty"`
}

// handleSSE runs one turn and emits each appended turn as its own event,
// ending with done. Validation failures become a rejected event so the SPA
// can keep the input.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}

	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	utils.SetupSSEHeaders(w)

	turns, err := h.conversations.SendTurn(r.Context(), sess.ID, botID, message)
	if err != nil {
		utils.SendSSEEvent(w, flusher, "rejected", turnEvent{Event: "rejected", Error: err.Error()})
		return
	}

	for i := range turns {
		utils.SendSSEEvent(w, flusher, "turn", turnEvent{Event: "turn", Turn: &turns[i]})
	}
	utils.SendSSEEvent(w, flusher, "done", turnEvent{Event: "done"})
}

// handleWebsocket holds a two-way chat channel: the client sends {message}
// frames and receives one frame per appended turn.
func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var frame struct {
			Message string `json:"message"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		turns, err := h.conversations.SendTurn(r.Context(), sess.ID, botID, frame.Message)
		if err != nil {
			h.writeEvent(conn, turnEvent{Event: "rejected", Error: err.Error()})
			continue
		}
		for i := range turns {
			h.writeEvent(conn, turnEvent{Event: "turn", Turn: &turns[i]})
		}
		h.writeEvent(conn, turnEvent{Event: "done"})
	}
}

// resolveBot applies the same registry and group checks as the plain chat
// routes; the streaming transports grant no wider access.
func (h *Handler) resolveBot(w http.ResponseWriter, r *http.Request) (string, session.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	botID := chi.URLParam(r, "botID")

	b, ok := h.bots.FindByID(botID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "bot not found")
		return "", sess, false
	}
	if !session.HasAccess(sess.Credential.Groups, b.RequiredGroups) {
		utils.RespondError(w, http.StatusForbidden, "bot not available for this account")
		return "", sess, false
	}
	return botID, sess, true
}

func (h *Handler) writeEvent(conn *websocket.Conn, event turnEvent) {
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
	}
}
