package models

import "time"

// RequestStatus represents the lifecycle state of a request.
type RequestStatus string

const (
	// RequestPending indicates the request has not been routed yet.
	RequestPending RequestStatus = "pending"
	// RequestRouting indicates the dispatcher is scoring the request.
	RequestRouting RequestStatus = "routing"
	// RequestRunning indicates an agent is working the request.
	RequestRunning RequestStatus = "running"
	// RequestDone indicates the request completed successfully.
	RequestDone RequestStatus = "done"
	// RequestFailed indicates the request errored or was stopped.
	RequestFailed RequestStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestRouting, RequestRunning, RequestDone, RequestFailed:
		return true
	default:
		return false
	}
}

// Request represents a natural-language operational request submitted
// to the workforce.
type Request struct {
	// ID is the unique identifier for this request.
	ID string `json:"id"`
	// Text is the raw request text as typed by the operator.
	Text string `json:"text"`
	// Status is the current lifecycle state.
	Status RequestStatus `json:"status"`
	// Agent is the roster name of the agent that handled the request.
	Agent string `json:"agent,omitempty"`
	// Output is the agent's final answer.
	Output string `json:"output,omitempty"`
	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`
	// SubmittedAt is when the request entered the system.
	SubmittedAt time.Time `json:"submitted_at"`
	// CompletedAt is when the request finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// TokensIn is the input token count consumed by the request.
	TokensIn int64 `json:"tokens_in"`
	// TokensOut is the output token count produced by the request.
	TokensOut int64 `json:"tokens_out"`
	// Cost is the estimated API cost in dollars.
	Cost float64 `json:"cost"`
}

// RouteDecision records how the dispatcher routed a request.
type RouteDecision struct {
	// Agent is the roster name of the selected agent.
	Agent string `json:"agent"`
	// Score is the winning agent's total match score.
	Score int `json:"score"`
	// Matched lists the keywords and phrases that contributed to the score.
	Matched []string `json:"matched,omitempty"`
	// Confidence is the score margin over the runner-up, normalized to 0..1.
	Confidence float64 `json:"confidence"`
	// Fallback is true when no agent scored and the fallback agent was used.
	Fallback bool `json:"fallback"`
	// Override is true when the operator forced the agent with @agent: syntax.
	Override bool `json:"override"`
}
