package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/service/session"
	"github.com/formfill/chatbot/backend/pkg/utils"
)

// Handler exposes the session lifecycle over HTTP.
type Handler struct {
	sessions *session.Manager
}

// New creates the auth handler.
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterPublicRoutes registers the routes reachable without a session.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/auth/login", h.handleLogin)
	r.Post("/auth/token", h.handleToken)
}

// RegisterProtectedRoutes registers the routes that need a resolved session.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/session", h.handleSession)
	r.Post("/auth/logout", h.handleLogout)
}

// handleLogin relays the provider's interactive login URL to the SPA, which
// performs the full-page redirect.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.sessions.InitiateLogin(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to initiate login")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

// handleToken exchanges the authorization code from the redirect URL for a
// session. The SPA strips the code from its location once this returns.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.sessions.ExchangeCode(r.Context(), payload.Code)
	if errors.Is(err, session.ErrEmptyCode) {
		utils.RespondError(w, http.StatusBadRequest, "code is required")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"access_token": sess.Credential.AccessToken,
		"user": map[string]any{
			"id":     sess.Credential.UserID,
			"name":   sess.Credential.Name,
			"groups": sess.Credential.Groups,
		},
	})
}

// handleSession reports the resolved session for the presented bearer.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"id":     sess.ID,
		"phase":  sess.Phase,
		"userId": sess.Credential.UserID,
		"name":   sess.Credential.Name,
		"groups": sess.Credential.Groups,
	})
}

// handleLogout tears the session down; always succeeds.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	h.sessions.Logout(r.Context(), sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
