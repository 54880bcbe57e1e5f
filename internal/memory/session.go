package memory

import (
	"fmt"
	"strings"
	"sync"
)

// defaultMaxTurns bounds the session transcript so prompts stay small.
const defaultMaxTurns = 40

// Turn is a single entry in a session transcript.
type Turn struct {
	Role    string // "operator", "agent", "tool"
	Content string
}

// Session is the tier-1 memory: a bounded, in-memory transcript for one
// request. It is never persisted.
type Session struct {
	mu        sync.Mutex
	requestID string
	turns     []Turn
	maxTurns  int
	dropped   int
}

// NewSession creates a session transcript for the given request.
func NewSession(requestID string) *Session {
	return &Session{
		requestID: requestID,
		maxTurns:  defaultMaxTurns,
	}
}

// SetMaxTurns overrides the transcript bound. Values under 1 are ignored.
func (s *Session) SetMaxTurns(n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTurns = n
	s.trimLocked()
}

// Append adds a turn to the transcript, evicting the oldest turns when
// the bound is exceeded.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{Role: role, Content: content})
	s.trimLocked()
}

// trimLocked drops oldest turns beyond maxTurns. Caller holds mu.
func (s *Session) trimLocked() {
	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append([]Turn(nil), s.turns[over:]...)
		s.dropped += over
	}
}

// Turns returns a copy of the current transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Dropped returns how many turns were evicted by the bound.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// RequestID returns the request this session belongs to.
func (s *Session) RequestID() string {
	return s.requestID
}

// Render formats the transcript for prompt injection.
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		return ""
	}

	var b strings.Builder
	for _, t := range s.turns {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, t.Content)
	}
	return b.String()
}
