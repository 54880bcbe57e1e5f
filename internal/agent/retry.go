package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// RetryDecision represents the decision after evaluating a failure.
type RetryDecision int

const (
	// Retry indicates the agent should retry, possibly with a suggested fix.
	Retry RetryDecision = iota
	// Escalate indicates the failure should be surfaced to the operator.
	Escalate
	// Abort indicates the agent should stop without escalation.
	Abort
)

// String returns a human-readable representation of the retry decision.
func (d RetryDecision) String() string {
	switch d {
	case Retry:
		return "retry"
	case Escalate:
		return "escalate"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// LearningSource searches past learnings for known fixes. Satisfied by
// the memory brain.
type LearningSource interface {
	RecallFormatted(ctx context.Context, query string, limit int) ([]string, error)
}

// RetryContext contains information about the current retry state.
type RetryContext struct {
	// Agent is the roster name of the agent that failed.
	Agent string
	// Error is the error message from the failure.
	Error string
	// Attempt is the current attempt number (1-indexed).
	Attempt int
	// SuggestedFix is a known fix recalled from the brain, if found.
	SuggestedFix string
	// Strategy describes what approach to try next.
	Strategy string
}

// RetryHandler manages failure handling for agent requests. The tiered
// strategy: retry the original approach once, then search the brain for
// known fixes, then escalate to the operator.
type RetryHandler struct {
	brain       LearningSource
	maxAttempts int
	attempts    map[string]int      // agent -> attempt count
	errors      map[string][]string // agent -> errors encountered
	mu          sync.RWMutex
}

// NewRetryHandler creates a RetryHandler that searches the given
// learning source (may be nil) for known fixes.
func NewRetryHandler(brain LearningSource) *RetryHandler {
	return &RetryHandler{
		brain:       brain,
		maxAttempts: 3,
		attempts:    make(map[string]int),
		errors:      make(map[string][]string),
	}
}

// SetMaxAttempts sets the maximum number of attempts before escalation.
// The default is 3 attempts.
func (h *RetryHandler) SetMaxAttempts(max int) {
	if max < 1 {
		max = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxAttempts = max
}

// MaxAttempts returns the current maximum attempts setting.
func (h *RetryHandler) MaxAttempts() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxAttempts
}

// Retryable reports whether an error message looks transient: network
// problems, rate limits and server-side errors are worth retrying,
// budget and signal stops are not.
func Retryable(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, fatal := range []string{"budget", "stop signal", "max iterations"} {
		if strings.Contains(lower, fatal) {
			return false
		}
	}
	for _, transient := range []string{"rate limit", "429", "500", "502", "503", "529", "overloaded", "timeout", "connection"} {
		if strings.Contains(lower, transient) {
			return true
		}
	}
	return false
}

// HandleFailure evaluates a failure and returns a retry context and
// decision. Non-retryable failures escalate immediately.
func (h *RetryHandler) HandleFailure(ctx context.Context, agent, errMsg string) (*RetryContext, RetryDecision) {
	h.mu.Lock()
	h.attempts[agent]++
	attempt := h.attempts[agent]
	h.errors[agent] = append(h.errors[agent], errMsg)
	maxAttempts := h.maxAttempts
	h.mu.Unlock()

	rctx := &RetryContext{
		Agent:   agent,
		Error:   errMsg,
		Attempt: attempt,
	}

	if !Retryable(errMsg) {
		rctx.Strategy = "escalate_to_operator"
		log.Printf("[retry] agent %s: non-retryable failure, escalating: %s", agent, errMsg)
		return rctx, Escalate
	}

	if attempt == 1 {
		rctx.Strategy = "retry_original"
		log.Printf("[retry] agent %s: attempt %d, trying original approach again", agent, attempt)
		return rctx, Retry
	}

	if attempt < maxAttempts {
		if h.brain != nil {
			fixes, err := h.brain.RecallFormatted(ctx, errMsg, 1)
			if err == nil && len(fixes) > 0 {
				rctx.SuggestedFix = fixes[0]
				rctx.Strategy = "apply_learning"
				log.Printf("[retry] agent %s: attempt %d, applying known fix", agent, attempt)
				return rctx, Retry
			}
		}

		rctx.Strategy = "retry_with_backoff"
		log.Printf("[retry] agent %s: attempt %d, retrying with backoff", agent, attempt)
		return rctx, Retry
	}

	rctx.Strategy = "escalate_to_operator"
	log.Printf("[retry] agent %s: max attempts (%d) reached, escalating", agent, maxAttempts)
	return rctx, Escalate
}

// Backoff returns how long to wait before the given attempt: 2s, 4s,
// 8s, capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Reset clears the attempt counter and error history for an agent.
// Called when a request completes successfully.
func (h *RetryHandler) Reset(agent string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.attempts, agent)
	delete(h.errors, agent)
}

// Attempts returns the current attempt count for an agent.
func (h *RetryHandler) Attempts(agent string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.attempts[agent]
}

// Errors returns all errors encountered by an agent this request.
func (h *RetryHandler) Errors(agent string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	errs := make([]string, len(h.errors[agent]))
	copy(errs, h.errors[agent])
	return errs
}

// EscalationSummary renders a failure for the operator.
func EscalationSummary(agent string, attempts int, errors []string) string {
	latest := "(no error recorded)"
	if len(errors) > 0 {
		latest = errors[len(errors)-1]
	}
	return fmt.Sprintf("Agent %s failed after %d attempts. Latest error: %s", agent, attempts, latest)
}
