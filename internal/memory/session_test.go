package memory

import (
	"fmt"
	"strings"
	"testing"
)

func TestSessionAppendAndRender(t *testing.T) {
	s := NewSession("req-1")
	s.Append("operator", "check the database")
	s.Append("agent", "running query")

	turns := s.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "operator" || turns[1].Role != "agent" {
		t.Errorf("unexpected roles: %+v", turns)
	}

	rendered := s.Render()
	if !strings.Contains(rendered, "[operator] check the database") {
		t.Errorf("render missing operator turn: %q", rendered)
	}
	if !strings.Contains(rendered, "[agent] running query") {
		t.Errorf("render missing agent turn: %q", rendered)
	}
}

func TestSessionBoundEvictsOldest(t *testing.T) {
	s := NewSession("req-2")
	s.SetMaxTurns(3)

	for i := 0; i < 5; i++ {
		s.Append("agent", fmt.Sprintf("turn %d", i))
	}

	turns := s.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns after eviction, got %d", len(turns))
	}
	if turns[0].Content != "turn 2" {
		t.Errorf("expected oldest surviving turn to be 'turn 2', got %q", turns[0].Content)
	}
	if s.Dropped() != 2 {
		t.Errorf("expected 2 dropped turns, got %d", s.Dropped())
	}
}

func TestSessionSetMaxTurnsIgnoresInvalid(t *testing.T) {
	s := NewSession("req-3")
	s.SetMaxTurns(0)
	s.Append("agent", "still works")
	if len(s.Turns()) != 1 {
		t.Error("append should work after invalid SetMaxTurns")
	}
}

func TestSessionEmptyRender(t *testing.T) {
	s := NewSession("req-4")
	if s.Render() != "" {
		t.Error("empty session should render to empty string")
	}
}
