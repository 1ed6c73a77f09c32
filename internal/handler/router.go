package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "github.com/formfill/chatbot/backend/internal/handler/auth"
	botsHandler "github.com/formfill/chatbot/backend/internal/handler/bots"
	chatHandler "github.com/formfill/chatbot/backend/internal/handler/chat"
	streamHandler "github.com/formfill/chatbot/backend/internal/handler/stream"
	mw "github.com/formfill/chatbot/backend/internal/middleware"
	"github.com/formfill/chatbot/backend/internal/model/bot"
	"github.com/formfill/chatbot/backend/internal/service/catalog"
	"github.com/formfill/chatbot/backend/internal/service/conversation"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
	"github.com/formfill/chatbot/backend/internal/service/session"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions      *session.Manager
	Conversations *conversation.Service
	Bots          bot.Store
	Registry      *dialogue.Registry
	Catalog       *catalog.Catalog
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS)

	auth := authHandler.New(deps.Sessions)
	bots := botsHandler.New(deps.Bots, deps.Registry, deps.Catalog)
	chat := chatHandler.New(deps.Conversations, deps.Bots)
	stream := streamHandler.New(deps.Conversations, deps.Bots, nil)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		auth.RegisterPublicRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(mw.RequireSession(deps.Sessions))

			auth.RegisterProtectedRoutes(protected)
			bots.RegisterRoutes(protected)
			chat.RegisterRoutes(protected)
			stream.RegisterRoutes(protected)
		})
	})

	return r
}
