// Package orchestrator coordinates the workforce: routing requests to
// agents, running them under budget, and recording outcomes.
package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRequestSubmitted indicates a request entered the system.
	EventRequestSubmitted EventType = "request_submitted"
	// EventRequestRouted indicates the dispatcher selected an agent.
	EventRequestRouted EventType = "request_routed"
	// EventAgentStarted indicates an agent began working a request.
	EventAgentStarted EventType = "agent_started"
	// EventAgentProgress provides streaming updates during execution.
	EventAgentProgress EventType = "agent_progress"
	// EventAgentRetry indicates a transient failure is being retried.
	EventAgentRetry EventType = "agent_retry"
	// EventRequestCompleted indicates a request finished successfully.
	EventRequestCompleted EventType = "request_completed"
	// EventRequestFailed indicates a request failed or was stopped.
	EventRequestFailed EventType = "request_failed"
	// EventLearningSaved indicates a learning was distilled into the brain.
	EventLearningSaved EventType = "learning_saved"
)

// Event represents an event emitted by the orchestrator. These events
// drive the TUI and progress output.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RequestID is the ID of the related request.
	RequestID string
	// Agent is the roster name of the related agent, if applicable.
	Agent string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// TokensUsed is the current total tokens used (for progress events).
	TokensUsed int64
	// Cost is the current total cost (for progress events).
	Cost float64
	// CurrentAction describes what the agent is doing right now.
	CurrentAction string
}
