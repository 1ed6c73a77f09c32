package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formfill/chatbot/backend/internal/platform/metrics"
)

var (
	ErrEmptyCode      = errors.New("authorization code is required")
	ErrExchangeFailed = errors.New("code exchange failed")
)

// Phase is the authorization state of one browser session.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseExchangingCode  Phase = "exchanging_code"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseExchangeFailed  Phase = "exchange_failed"
)

// Credential is the bearer token obtained from the identity provider plus
// the identity attributes returned alongside it.
type Credential struct {
	AccessToken string   `json:"accessToken"`
	UserID      string   `json:"userId,omitempty"`
	Name        string   `json:"name,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// Session is the resolved state handed to handlers after a bearer lookup.
type Session struct {
	ID         string     `json:"id"`
	Phase      Phase      `json:"phase"`
	Credential Credential `json:"credential"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IdentityClient is the narrow contract against the identity collaborator.
type IdentityClient interface {
	LoginURL(ctx context.Context) (string, error)
	ExchangeCode(ctx context.Context, code string) (TokenResult, error)
}

// how long a consumed authorization code is remembered for replay detection;
// provider codes expire well inside this window.
const codeReplayWindow = 10 * time.Minute

type usedCode struct {
	sessionID string
	expires   time.Time
}

// phaseRetention bounds how long a phase record outlives its last update.
// Authenticated sessions fall back to the credential store once the record
// lapses; failed exchanges simply read as unauthenticated again.
const phaseRetention = time.Hour

type phaseRecord struct {
	phase   Phase
	expires time.Time
}

// Manager owns the authorization lifecycle: initiating login, exchanging an
// authorization code for a credential, resolving bearer session IDs, and
// tearing sessions down on logout.
type Manager struct {
	identity IdentityClient
	store    CredentialStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	phases    map[string]phaseRecord
	usedCodes map[string]usedCode
	onLogout  []func(sessionID string)
}

// NewManager wires a Manager against an identity client and credential store.
func NewManager(identity IdentityClient, store CredentialStore, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		identity:  identity,
		store:     store,
		logger:    logger,
		metrics:   m,
		phases:    make(map[string]phaseRecord),
		usedCodes: make(map[string]usedCode),
	}
}

// OnLogout registers a callback fired after a session is torn down; the
// conversation engine uses it to drop the session's transcripts.
func (m *Manager) OnLogout(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// InitiateLogin asks the identity collaborator for the interactive login
// URL. A failure here changes no session state.
func (m *Manager) InitiateLogin(ctx context.Context) (string, error) {
	url, err := m.identity.LoginURL(ctx)
	if err != nil {
		m.logger.Warn("login initiation failed", "error", err)
		return "", fmt.Errorf("initiate login: %w", err)
	}
	return url, nil
}

// ExchangeCode trades an authorization code for a credential and opens a new
// session. Replaying a code that already succeeded returns the session it
// opened without contacting the provider again; authorization codes are
// single-use upstream.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{Phase: PhaseUnauthenticated}, ErrEmptyCode
	}

	if sess, ok := m.replayedSession(ctx, code); ok {
		return sess, nil
	}

	sessionID := uuid.NewString()
	m.setPhase(sessionID, PhaseExchangingCode)

	token, err := m.identity.ExchangeCode(ctx, code)
	if err != nil {
		m.setPhase(sessionID, PhaseExchangeFailed)
		m.countExchange("failure")
		m.logger.Warn("code exchange failed", "sessionId", sessionID, "error", err)
		return Session{ID: sessionID, Phase: PhaseExchangeFailed}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	cred := Credential{AccessToken: token.AccessToken}
	if token.UserInfo != nil {
		cred.UserID = token.UserInfo.ID
		cred.Name = token.UserInfo.Name
		cred.Groups = token.UserInfo.Groups
	}
	if len(cred.Groups) == 0 {
		cred.Groups = groupsFromToken(token.AccessToken)
	}

	if err := m.store.Set(ctx, sessionID, cred); err != nil {
		m.setPhase(sessionID, PhaseExchangeFailed)
		m.countExchange("failure")
		return Session{ID: sessionID, Phase: PhaseExchangeFailed}, fmt.Errorf("%w: store credential: %v", ErrExchangeFailed, err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.phases[sessionID] = phaseRecord{phase: PhaseAuthenticated, expires: now.Add(phaseRetention)}
	m.usedCodes[code] = usedCode{sessionID: sessionID, expires: now.Add(codeReplayWindow)}
	m.mu.Unlock()

	m.countExchange("success")
	m.logger.Info("session authenticated", "sessionId", sessionID, "groups", len(cred.Groups))
	return Session{ID: sessionID, Phase: PhaseAuthenticated, Credential: cred, CreatedAt: now}, nil
}

// Resolve looks up the session behind a bearer session ID. A stored
// credential is trusted until a downstream call rejects it.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (Session, bool) {
	if sessionID == "" {
		return Session{Phase: PhaseUnauthenticated}, false
	}
	cred, ok, err := m.store.Get(ctx, sessionID)
	if err != nil {
		m.logger.Warn("credential lookup failed", "sessionId", sessionID, "error", err)
		return Session{Phase: PhaseUnauthenticated}, false
	}
	if !ok {
		return Session{Phase: PhaseUnauthenticated}, false
	}
	return Session{ID: sessionID, Phase: PhaseAuthenticated, Credential: cred}, true
}

// CurrentCredential returns the active credential for a session, if any.
// Pure accessor; safe at any phase.
func (m *Manager) CurrentCredential(ctx context.Context, sessionID string) (Credential, bool) {
	sess, ok := m.Resolve(ctx, sessionID)
	if !ok {
		return Credential{}, false
	}
	return sess.Credential, true
}

// Phase reports the authorization phase of a session ID.
func (m *Manager) Phase(ctx context.Context, sessionID string) Phase {
	m.mu.Lock()
	rec, tracked := m.phases[sessionID]
	m.mu.Unlock()
	if tracked {
		return rec.phase
	}
	if _, ok := m.Resolve(ctx, sessionID); ok {
		return PhaseAuthenticated
	}
	return PhaseUnauthenticated
}

// GroupMemberships returns the group IDs attached to the session credential.
func (m *Manager) GroupMemberships(ctx context.Context, sessionID string) []string {
	cred, ok := m.CurrentCredential(ctx, sessionID)
	if !ok {
		return nil
	}
	return cred.Groups
}

// Logout tears the session down locally. It is best effort: the provider's
// own session is not revoked, and a failing store never blocks the reset.
func (m *Manager) Logout(ctx context.Context, sessionID string) {
	if err := m.store.Clear(ctx, sessionID); err != nil {
		m.logger.Warn("credential clear failed", "sessionId", sessionID, "error", err)
	}

	m.mu.Lock()
	delete(m.phases, sessionID)
	for code, used := range m.usedCodes {
		if used.sessionID == sessionID {
			delete(m.usedCodes, code)
		}
	}
	callbacks := append([]func(string){}, m.onLogout...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(sessionID)
	}
	m.logger.Info("session logged out", "sessionId", sessionID)
}

// HasAccess reports whether a group set satisfies a bot's requirement: true
// when nothing is required, otherwise true iff the intersection is non-empty.
func HasAccess(memberships, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range memberships {
			if want == have {
				return true
			}
		}
	}
	return false
}

func (m *Manager) replayedSession(ctx context.Context, code string) (Session, bool) {
	m.mu.Lock()
	m.sweepLocked(time.Now())
	used, ok := m.usedCodes[code]
	m.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	sess, live := m.Resolve(ctx, used.sessionID)
	if !live {
		return Session{}, false
	}
	return sess, true
}

func (m *Manager) setPhase(sessionID string, p Phase) {
	m.mu.Lock()
	m.phases[sessionID] = phaseRecord{phase: p, expires: time.Now().Add(phaseRetention)}
	m.mu.Unlock()
}

// sweepLocked drops used-code records past the replay window and phase
// records past their retention, keeping both maps bounded on a long-running
// gateway. Callers hold m.mu.
func (m *Manager) sweepLocked(now time.Time) {
	for code, used := range m.usedCodes {
		if now.After(used.expires) {
			delete(m.usedCodes, code)
		}
	}
	for id, rec := range m.phases {
		if now.After(rec.expires) {
			delete(m.phases, id)
		}
	}
}

func (m *Manager) countExchange(result string) {
	if m.metrics != nil {
		m.metrics.CodeExchanges.WithLabelValues(result).Inc()
	}
}
