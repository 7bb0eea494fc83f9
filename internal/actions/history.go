package actions

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperjump/seiri/internal/models"
)

// ErrSessionNotFound is returned for session ids that were never recorded
// or have been evicted.
var ErrSessionNotFound = fmt.Errorf("session not found")

// session is one recorded batch of executed actions.
type session struct {
	id          string
	description string
	createdAt   time.Time
	executed    []models.ExecutedAction
	undone      bool
}

// Engine tracks executed file actions per session and derives undo sets.
// History is bounded; the oldest-created session is evicted first. All
// mutations are atomic with respect to concurrent readers.
type Engine struct {
	maxSessions int
	mu          sync.Mutex
	sessions    map[string]*session
	order       []string // session ids in creation order, oldest first
}

// NewEngine creates an engine bounded to maxSessions recorded sessions.
func NewEngine(maxSessions int) *Engine {
	if maxSessions <= 0 {
		maxSessions = 50
	}
	return &Engine{
		maxSessions: maxSessions,
		sessions:    make(map[string]*session),
	}
}

// Session ids share one monotonic entropy source so ids minted within the
// same millisecond still sort by creation. MonotonicEntropy is not safe for
// concurrent use; the mutex serializes access.
var (
	sessionEntropyMu sync.Mutex
	sessionEntropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSessionID returns a fresh session id. IDs sort lexicographically by
// creation time, matching the engine's eviction order.
func NewSessionID() string {
	sessionEntropyMu.Lock()
	defer sessionEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), sessionEntropy).String()
}

// Record stores one executed batch. Only actions reported successful get a
// reverse action; failed actions are retained for audit but contribute
// nothing to undo. Recording beyond the bound evicts the oldest session.
func (e *Engine) Record(sessionID string, acts []models.FileAction, results []models.ExecutionResult, description string) {
	outcome := make(map[string]bool, len(results))
	for _, r := range results {
		outcome[r.ActionID] = r.Success
	}
	now := time.Now()
	s := &session{
		id:          sessionID,
		description: description,
		createdAt:   now,
	}
	for _, a := range acts {
		ok := outcome[a.ID]
		ea := models.ExecutedAction{
			Action:     a,
			ExecutedAt: now,
			Success:    ok,
		}
		if ok {
			ea.Reverse = ReverseAction(a)
		}
		s.executed = append(s.executed, ea)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.sessions[sessionID]; !exists {
		e.order = append(e.order, sessionID)
	}
	e.sessions[sessionID] = s
	for len(e.order) > e.maxSessions {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.sessions, oldest)
	}
}

// UndoActionsFor returns the reverse actions for a session in LIFO order,
// so operations that depend on earlier ones (a move into a folder created
// by a prior action) unwind safely.
func (e *Engine) UndoActionsFor(sessionID string) ([]models.FileAction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return undoSet(s), nil
}

// UndoActionsForLastSession returns the undo set of the most recent session
// that has at least one invertible successful action, skipping newer
// sessions that have none. The second return value is the session id.
func (e *Engine) UndoActionsForLastSession() ([]models.FileAction, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.order) - 1; i >= 0; i-- {
		s := e.sessions[e.order[i]]
		if s.undone {
			continue
		}
		if set := undoSet(s); len(set) > 0 {
			return set, s.id, nil
		}
	}
	return nil, "", fmt.Errorf("%w: no session with undoable actions", ErrSessionNotFound)
}

// MarkUndone flags a session as undone so later default undos skip it.
func (e *Engine) MarkUndone(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.undone = true
	return nil
}

// HistorySummary lists recorded sessions, most recent first.
func (e *Engine) HistorySummary() []models.SessionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	summaries := make([]models.SessionSummary, 0, len(e.order))
	for i := len(e.order) - 1; i >= 0; i-- {
		s := e.sessions[e.order[i]]
		sum := models.SessionSummary{
			SessionID:   s.id,
			Description: s.description,
			CreatedAt:   s.createdAt,
			Actions:     len(s.executed),
			Undone:      s.undone,
		}
		for _, ea := range s.executed {
			if ea.Success {
				sum.Succeeded++
			}
			if ea.Reverse != nil {
				sum.Invertible++
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries
}

// ExecutedActions returns a session's full audit trail in execution order.
func (e *Engine) ExecutedActions(sessionID string) ([]models.ExecutedAction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	out := make([]models.ExecutedAction, len(s.executed))
	copy(out, s.executed)
	return out, nil
}

// Clear drops all recorded sessions.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = make(map[string]*session)
	e.order = nil
}

// undoSet collects a session's reverse actions in reverse execution order.
func undoSet(s *session) []models.FileAction {
	var out []models.FileAction
	for i := len(s.executed) - 1; i >= 0; i-- {
		if r := s.executed[i].Reverse; r != nil {
			out = append(out, *r)
		}
	}
	return out
}
