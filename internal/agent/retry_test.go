package agent

import (
	"context"
	"testing"
	"time"
)

type fakeLearnings struct {
	fixes []string
}

func (f *fakeLearnings) RecallFormatted(_ context.Context, _ string, _ int) ([]string, error) {
	return f.fixes, nil
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		errMsg    string
		retryable bool
	}{
		{"API call failed: 529 overloaded", true},
		{"rate limit exceeded", true},
		{"dial tcp: connection refused", true},
		{"token budget (100000) exceeded", false},
		{"stop signal received", false},
		{"max iterations (50) reached", false},
		{"invalid request", false},
	}

	for _, tt := range tests {
		t.Run(tt.errMsg, func(t *testing.T) {
			if got := Retryable(tt.errMsg); got != tt.retryable {
				t.Errorf("Retryable(%q) = %v, want %v", tt.errMsg, got, tt.retryable)
			}
		})
	}
}

func TestHandleFailureFirstAttemptRetries(t *testing.T) {
	h := NewRetryHandler(nil)
	rctx, decision := h.HandleFailure(context.Background(), "database", "503 service unavailable")
	if decision != Retry {
		t.Fatalf("expected Retry, got %v", decision)
	}
	if rctx.Strategy != "retry_original" {
		t.Errorf("expected retry_original, got %q", rctx.Strategy)
	}
	if rctx.Attempt != 1 {
		t.Errorf("expected attempt 1, got %d", rctx.Attempt)
	}
}

func TestHandleFailureAppliesKnownFix(t *testing.T) {
	brain := &fakeLearnings{fixes: []string{"WHEN 503 DO wait and retry RESULT succeeds"}}
	h := NewRetryHandler(brain)
	ctx := context.Background()

	h.HandleFailure(ctx, "deployment", "503 service unavailable")
	rctx, decision := h.HandleFailure(ctx, "deployment", "503 service unavailable")
	if decision != Retry {
		t.Fatalf("expected Retry, got %v", decision)
	}
	if rctx.Strategy != "apply_learning" {
		t.Errorf("expected apply_learning, got %q", rctx.Strategy)
	}
	if rctx.SuggestedFix == "" {
		t.Error("expected a suggested fix")
	}
}

func TestHandleFailureEscalatesAtMaxAttempts(t *testing.T) {
	h := NewRetryHandler(nil)
	ctx := context.Background()

	h.HandleFailure(ctx, "monitoring", "timeout")
	h.HandleFailure(ctx, "monitoring", "timeout")
	_, decision := h.HandleFailure(ctx, "monitoring", "timeout")
	if decision != Escalate {
		t.Fatalf("expected Escalate at attempt 3, got %v", decision)
	}
}

func TestHandleFailureNonRetryableEscalatesImmediately(t *testing.T) {
	h := NewRetryHandler(nil)
	_, decision := h.HandleFailure(context.Background(), "database", "token budget (100000) exceeded")
	if decision != Escalate {
		t.Fatalf("expected immediate Escalate, got %v", decision)
	}
}

func TestRetryHandlerReset(t *testing.T) {
	h := NewRetryHandler(nil)
	ctx := context.Background()

	h.HandleFailure(ctx, "database", "timeout")
	h.HandleFailure(ctx, "database", "timeout")
	if h.Attempts("database") != 2 {
		t.Fatalf("expected 2 attempts, got %d", h.Attempts("database"))
	}

	h.Reset("database")
	if h.Attempts("database") != 0 {
		t.Errorf("expected 0 attempts after reset, got %d", h.Attempts("database"))
	}
	if len(h.Errors("database")) != 0 {
		t.Error("expected no errors after reset")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt); got != tt.expected {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestEscalationSummary(t *testing.T) {
	s := EscalationSummary("database", 3, []string{"first", "second"})
	if s != "Agent database failed after 3 attempts. Latest error: second" {
		t.Errorf("unexpected summary: %q", s)
	}

	empty := EscalationSummary("database", 0, nil)
	if empty != "Agent database failed after 0 attempts. Latest error: (no error recorded)" {
		t.Errorf("unexpected empty summary: %q", empty)
	}
}
