package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formfill/chatbot/backend/internal/model/chat"
	"github.com/formfill/chatbot/backend/internal/platform/metrics"
	"github.com/formfill/chatbot/backend/internal/service/dialogue"
)

var (
	ErrInvalidDate     = errors.New("a valid date in MM-DD-YYYY format is required")
	ErrFormNotSelected = errors.New("a form must be selected before submitting")
)

// connectionErrorText is the synthetic bot reply appended when the dialogue
// backend cannot be reached; the exact wording is part of the UI contract.
const connectionErrorText = "Error: Unable to connect to the server."

// formSentinel is the placeholder option of the form dropdown.
const formSentinel = "Select Form"

const defaultTimeout = 30 * time.Second

type convKey struct {
	sessionID string
	botID     string
}

// Service is the conversation engine: it owns the per-session transcripts,
// gates outbound turns, relays them to the bot's dialogue backend and
// classifies the structured replies into transcript turns.
type Service struct {
	backends *dialogue.Registry
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	transcripts map[convKey][]chat.Turn
	inFlight    map[convKey]*sync.Mutex
}

// NewService builds the engine. A non-positive timeout falls back to the
// default bound for outbound dialogue calls.
func NewService(backends *dialogue.Registry, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backends:    backends,
		timeout:     timeout,
		logger:      logger,
		metrics:     m,
		transcripts: make(map[convKey][]chat.Turn),
		inFlight:    make(map[convKey]*sync.Mutex),
	}
}

// SendTurn relays one user utterance through the turn protocol and returns
// the turns appended by this call, user turn first. Empty input (after
// trimming) is a no-op, not an error. If the last transcript entry is a date
// prompt, the input must validate as a calendar date before anything is
// appended or sent. A backend failure appends exactly one synthetic error
// turn; the transcript is never rewound.
func (s *Service) SendTurn(ctx context.Context, sessionID, botID, text string) ([]chat.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	backend, ok := s.backends.Lookup(botID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dialogue.ErrBackendNotFound, botID)
	}

	key := convKey{sessionID: sessionID, botID: botID}
	lock := s.convLock(key)
	lock.Lock()
	defer lock.Unlock()

	history := s.snapshot(key)
	if n := len(history); n > 0 && history[n-1].ExpectsDate() && !ValidateDate(text) {
		if s.metrics != nil {
			s.metrics.ValidationRejects.Inc()
		}
		return nil, ErrInvalidDate
	}

	appended := []chat.Turn{s.append(key, chat.UserTurn(text))}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	elements, err := backend.Send(callCtx, sessionID, text, history)
	if err != nil {
		s.logger.Warn("dialogue turn failed", "bot", botID, "sessionId", sessionID, "error", err)
		if s.metrics != nil {
			s.metrics.TurnFailures.WithLabelValues(botID).Inc()
		}
		errTurn := s.append(key, chat.BotTurn(chat.ReplyPayload{Kind: chat.PayloadText, Text: connectionErrorText}))
		return append(appended, errTurn), nil
	}

	for _, element := range elements {
		payload := chat.Classify(element)
		if payload.Kind == chat.PayloadUnknown {
			s.logger.Warn("dropping unrecognized reply element", "bot", botID, "sessionId", sessionID)
			if s.metrics != nil {
				s.metrics.RepliesDropped.Inc()
			}
			continue
		}
		appended = append(appended, s.append(key, chat.BotTurn(payload)))
	}

	if s.metrics != nil {
		s.metrics.TurnsSent.WithLabelValues(botID).Inc()
	}
	return appended, nil
}

// SubmitFormSelection routes a form choice through the turn protocol as the
// command utterance the dialogue engine recognizes. The empty choice and the
// dropdown placeholder are rejected before any call is made.
func (s *Service) SubmitFormSelection(ctx context.Context, sessionID, botID, category, form string) ([]chat.Turn, error) {
	form = strings.TrimSpace(form)
	if form == "" || form == formSentinel {
		if s.metrics != nil {
			s.metrics.ValidationRejects.Inc()
		}
		return nil, ErrFormNotSelected
	}
	s.logger.Debug("form selected", "bot", botID, "category", category, "form", form)
	return s.SendTurn(ctx, sessionID, botID, fmt.Sprintf(`/trigger_action{"param": %q}`, form))
}

// SelectOption sends an option title chosen from a prior select_options
// reply; it is plain SendTurn with no extra validation.
func (s *Service) SelectOption(ctx context.Context, sessionID, botID, title string) ([]chat.Turn, error) {
	return s.SendTurn(ctx, sessionID, botID, title)
}

// Transcript returns a copy of the conversation so far.
func (s *Service) Transcript(sessionID, botID string) []chat.Turn {
	return s.snapshot(convKey{sessionID: sessionID, botID: botID})
}

// ClearSession drops every transcript belonging to a session; wired to the
// session manager's logout callback. Each conversation's lock is taken
// before its wipe, so a turn still in flight lands first and cannot
// resurrect the transcript afterwards.
func (s *Service) ClearSession(sessionID string) {
	s.mu.Lock()
	keys := make([]convKey, 0)
	seen := make(map[convKey]bool)
	for key := range s.transcripts {
		if key.sessionID == sessionID && !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	for key := range s.inFlight {
		if key.sessionID == sessionID && !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	s.mu.Unlock()

	for _, key := range keys {
		lock := s.convLock(key)
		lock.Lock()
		s.mu.Lock()
		delete(s.transcripts, key)
		delete(s.inFlight, key)
		s.mu.Unlock()
		lock.Unlock()
	}
}

func (s *Service) append(key convKey, turn chat.Turn) chat.Turn {
	turn.ID = uuid.NewString()
	turn.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.transcripts[key] = append(s.transcripts[key], turn)
	s.mu.Unlock()
	return turn
}

func (s *Service) snapshot(key convKey) []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.transcripts[key]
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied
}

// convLock returns the mutex serializing turns for one conversation, so a
// second send issued before the first resolves waits its turn and append
// order matches send order.
func (s *Service) convLock(key convKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.inFlight[key]
	if !ok {
		lock = &sync.Mutex{}
		s.inFlight[key] = lock
	}
	return lock
}

