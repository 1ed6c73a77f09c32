package session

import (
	"context"
	"sync"
	"time"
)

// CredentialStore is the injected persistence capability for credentials.
// Entries live for the browser session's TTL; implementations expire them.
type CredentialStore interface {
	Set(ctx context.Context, sessionID string, cred Credential) error
	Get(ctx context.Context, sessionID string) (Credential, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	cred    Credential
	expires time.Time
}

// MemoryStore keeps credentials in process memory; state is lost on restart,
// which matches the volatile session-storage semantics of the web client.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore builds an in-memory store with the given session TTL.
// A non-positive TTL means entries never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Set stores a credential under the session ID.
func (s *MemoryStore) Set(_ context.Context, sessionID string, cred Credential) error {
	entry := memoryEntry{cred: cred}
	if s.ttl > 0 {
		entry.expires = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

// Get retrieves a credential, expiring stale entries lazily.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (Credential, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return Credential{}, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return Credential{}, false, nil
	}
	return entry.cred, true, nil
}

// Clear removes a credential; clearing an absent entry is not an error.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
