package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/registry"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

// DefaultTurnThreshold is the number of user messages after which a payload is expected.
const DefaultTurnThreshold = 4

// Session is one user's conversation with the model.
type Session struct {
	mu     sync.Mutex
	chat   services.ChatSession
	turns  int
	closed bool
}

// Turns returns how many messages have been answered in this session.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// Outcome is the result of one inbound message.
//
// Payload is non-nil only on the turn that closed the session. ExtractErr records why a reply
// at or past the threshold did not yield a payload.
type Outcome struct {
	Reply      string
	Turn       int
	Payload    *models.MoodPayload
	ExtractErr error
}

// Option customises the Engine.
type Option func(*Engine)

// WithThreshold sets the turn threshold N.
func WithThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine drives mood conversations keyed by an opaque user key.
type Engine struct {
	chatter   services.Chatter
	sessions  *registry.SessionStore[*Session]
	threshold int
	logger    *log.Logger
}

// NewEngine creates an Engine storing sessions in store.
func NewEngine(chatter services.Chatter, store *registry.SessionStore[*Session], opts ...Option) *Engine {
	e := &Engine{
		chatter:   chatter,
		sessions:  store,
		threshold: DefaultTurnThreshold,
		logger:    shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured turn threshold.
func (e *Engine) Threshold() int {
	return e.threshold
}

// Handle forwards message for key and advances that user's session.
//
// Upstream failures are returned and do not count as a turn. Turns for the same key are
// serialized.
func (e *Engine) Handle(ctx context.Context, key, message string) (*Outcome, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: user key is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", shared.ErrInvalidInput)
	}

	for {
		session, created := e.sessions.GetOrCreate(key, func() *Session {
			return &Session{chat: e.chatter.StartSession(SystemPrompt(e.threshold))}
		})
		if created {
			e.logger.Debug("dialogue session opened", "user", key)
		}

		session.mu.Lock()
		if session.closed {
			// closed by a concurrent turn; the store now holds a fresh session or none
			session.mu.Unlock()
			continue
		}

		outcome, err := e.turn(ctx, key, session, message)
		session.mu.Unlock()
		return outcome, err
	}
}

// turn runs one message against a locked, open session.
func (e *Engine) turn(ctx context.Context, key string, session *Session, message string) (*Outcome, error) {
	reply, err := session.chat.SendTurn(ctx, message)
	if err != nil {
		e.logger.Error("dialogue turn failed", "user", key, "turn", session.turns+1, "error", err)
		return nil, fmt.Errorf("dialogue turn: %w", err)
	}

	session.turns++
	outcome := &Outcome{Reply: reply, Turn: session.turns}
	if session.turns < e.threshold {
		return outcome, nil
	}

	payload, err := ExtractPayload(reply)
	if err != nil {
		e.logger.Info("no payload in reply, continuing", "user", key, "turn", session.turns, "reason", err)
		outcome.ExtractErr = err
		return outcome, nil
	}

	session.closed = true
	e.sessions.CompareAndDelete(key, func(current *Session) bool { return current == session })
	e.logger.Info("dialogue session closed", "user", key, "turn", session.turns, "mood", payload.Mood)

	outcome.Payload = payload
	return outcome, nil
}

// Active reports whether key has an open session.
func (e *Engine) Active(key string) bool {
	_, ok := e.sessions.Get(key)
	return ok
}

// Reset discards any session for key.
func (e *Engine) Reset(key string) {
	e.sessions.Delete(key)
}
