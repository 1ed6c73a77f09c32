package bots

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/service/catalog"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
	"github.com/formfill/chatbot/backend/internal/service/session"
	"github.com/formfill/chatbot/backend/pkg/utils"
)

// Handler serves the bot selection list and the form catalog.
type Handler struct {
	bots     bot.Store
	registry *dialogue.Registry
	forms    *catalog.Catalog
}

// New creates the bots handler.
func New(bots bot.Store, registry *dialogue.Registry, forms *catalog.Catalog) *Handler {
	return &Handler{bots: bots, registry: registry, forms: forms}
}

// RegisterRoutes registers the bot and catalog routes; both require a session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/bots", h.handleListBots)
	r.Get("/catalog", h.handleCatalog)
}

// handleListBots lists the bots the session may talk to: a bot is offered
// when its backend is configured and the session's groups satisfy the bot's
// requirement.
func (h *Handler) handleListBots(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	offered := make([]bot.Bot, 0)
	for _, b := range h.bots.List() {
		if !h.registry.Available(b.ID) {
			continue
		}
		if !session.HasAccess(sess.Credential.Groups, b.RequiredGroups) {
			continue
		}
		offered = append(offered, b)
	}
	utils.RespondJSON(w, http.StatusOK, offered)
}

// handleCatalog returns the category to form-name mapping; an empty catalog
// is a valid degraded answer.
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"categories": h.forms.Categories(),
		"forms":      h.forms.All(),
	})
}
