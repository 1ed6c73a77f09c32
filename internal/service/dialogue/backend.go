package dialogue

import (
	"context"
	"errors"

	"github.com/formfill/chatbot/backend/internal/model/chat"
)

var ErrBackendNotFound = errors.New("no dialogue backend for bot")

// Backend is one dialogue engine the gateway can relay turns to. Sender is
// the stable conversation identity presented to the engine; history is the
// transcript so far, which drivers may ignore.
type Backend interface {
	Send(ctx context.Context, sender, message string, history []chat.Turn) ([]chat.ReplyElement, error)
}

// Registry maps bot IDs to their configured backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register binds a backend to a bot ID, replacing any previous binding.
func (r *Registry) Register(botID string, backend Backend) {
	r.backends[botID] = backend
}

// Lookup returns the backend serving a bot.
func (r *Registry) Lookup(botID string) (Backend, bool) {
	backend, ok := r.backends[botID]
	return backend, ok
}

// Available reports whether a bot has a usable backend; bots without one are
// hidden from the selection list.
func (r *Registry) Available(botID string) bool {
	_, ok := r.backends[botID]
	return ok
}
