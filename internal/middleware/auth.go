package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/formfill/chatbot/backend/internal/service/session"
	"github.com/formfill/chatbot/backend/pkg/utils"
)

type contextKeySession struct{}

// SessionFromContext returns the authenticated session placed by
// RequireSession; the zero Session means unauthenticated.
func SessionFromContext(ctx context.Context) session.Session {
	sess, ok := ctx.Value(contextKeySession{}).(session.Session)
	if !ok {
		return session.Session{Phase: session.PhaseUnauthenticated}
	}
	return sess
}

// RequireSession resolves the bearer session ID against the session manager
// on every request; credentials are never assumed valid across requests.
// Missing or unknown bearers get 401, which the SPA answers by starting the
// login flow.
func RequireSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess, ok := sessions.Resolve(r.Context(), token)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "session expired or unknown")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeySession{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
