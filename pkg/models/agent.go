package models

import "time"

// AgentStatus represents the current state of an agent runtime.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent has no request in flight.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusRunning indicates the agent is actively working a request.
	AgentStatusRunning AgentStatus = "running"
	// AgentStatusPaused indicates the agent is temporarily stopped.
	AgentStatusPaused AgentStatus = "paused"
	// AgentStatusFailed indicates the agent's last request errored.
	AgentStatusFailed AgentStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusRunning, AgentStatusPaused, AgentStatusFailed:
		return true
	default:
		return false
	}
}

// AgentDefinition describes a specialized agent in the workforce roster.
// Definitions are loaded from YAML (configs/agents/*.yaml) with built-in
// defaults for the stock FibreFlow roster.
type AgentDefinition struct {
	// Name is the unique roster name (e.g. "database", "deployment").
	Name string `yaml:"name"`
	// Domain is a short human-readable description of the agent's area.
	Domain string `yaml:"domain"`
	// Persona is the system-prompt persona text for the agent.
	Persona string `yaml:"persona"`
	// Keywords maps routing keywords to their match weight.
	Keywords map[string]int `yaml:"keywords"`
	// Phrases are multi-word routing matches, weighted heavier than keywords.
	Phrases []string `yaml:"phrases"`
	// Tools lists the tool names this agent may call.
	Tools []string `yaml:"tools"`
	// Tier selects the model capability tier for this agent.
	Tier Tier `yaml:"tier"`
	// Priority breaks routing ties; higher wins.
	Priority int `yaml:"priority"`
	// Fallback marks the agent that receives unroutable requests.
	Fallback bool `yaml:"fallback"`
}

// Agent represents a live agent runtime in the workforce.
type Agent struct {
	// Name is the roster name of the agent.
	Name string `json:"name"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// RequestID is the ID of the request the agent is working, if any.
	RequestID string `json:"request_id,omitempty"`
	// StartedAt is when the current request began.
	StartedAt time.Time `json:"started_at"`
	// TokensUsed is the number of tokens consumed by this agent.
	TokensUsed int64 `json:"tokens_used"`
	// Cost is the total cost in dollars for this agent's API usage.
	Cost float64 `json:"cost"`
	// RequestsServed counts completed requests since startup.
	RequestsServed int `json:"requests_served"`
}
