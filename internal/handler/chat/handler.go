package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/service/conversation"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
	"github.com/formfill/chatbot/backend/internal/service/session"
	"github.com/formfill/chatbot/backend/pkg/utils"
)

// Handler exposes the conversation engine over HTTP.
type Handler struct {
	conversations *conversation.Service
	bots          bot.Store
}

// New creates the chat handler.
func New(conversations *conversation.Service, bots bot.Store) *Handler {
	return &Handler{conversations: conversations, bots: bots}
}

// RegisterRoutes registers the chat routes; all of them require a session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/bots/{botID}/messages", h.handleSendMessage)
	r.Post("/bots/{botID}/forms", h.handleSubmitForm)
	r.Post("/bots/{botID}/options", h.handleSelectOption)
	r.Get("/bots/{botID}/transcript", h.handleTranscript)
}

// handleSendMessage runs one chat turn. Whitespace-only input answers 204
// without touching the transcript; a failed date validation answers 422 with
// the reason so the SPA keeps the input for correction.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	turns, err := h.conversations.SendTurn(r.Context(), sess.ID, botID, payload.Message)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// handleSubmitForm routes a form selection through the turn protocol.
func (h *Handler) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}

	var payload struct {
		Category string `json:"category"`
		Form     string `json:"form"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turns, err := h.conversations.SubmitFormSelection(r.Context(), sess.ID, botID, payload.Category, payload.Form)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// handleSelectOption sends the title of a chosen option as the next turn.
func (h *Handler) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		utils.RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	turns, err := h.conversations.SelectOption(r.Context(), sess.ID, botID, payload.Title)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// handleTranscript returns the conversation so far.
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	botID, sess, ok := h.resolveBot(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"turns": h.conversations.Transcript(sess.ID, botID),
	})
}

// resolveBot validates the bot route parameter against the registry and the
// session's group memberships.
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

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrInvalidDate):
		utils.RespondError(w, http.StatusUnprocessableEntity, "please enter a valid date in the format MM-DD-YYYY")
	case errors.Is(err, conversation.ErrFormNotSelected):
		utils.RespondError(w, http.StatusUnprocessableEntity, "please select a valid form before submitting")
	case errors.Is(err, dialogue.ErrBackendNotFound):
		utils.RespondError(w, http.StatusServiceUnavailable, "bot backend unavailable")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "failed to process turn")
	}
}
