package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/fibreflow/workforce/pkg/models"
)

// AgentRegistry tracks the live runtime state of every roster agent.
// It provides thread-safe storage and retrieval of agent information.
type AgentRegistry struct {
	agents map[string]*models.Agent
	mu     sync.RWMutex
}

// NewAgentRegistry creates a registry with idle entries for each roster name.
func NewAgentRegistry(names []string) *AgentRegistry {
	agents := make(map[string]*models.Agent, len(names))
	for _, name := range names {
		agents[name] = &models.Agent{
			Name:   name,
			Status: models.AgentStatusIdle,
		}
	}
	return &AgentRegistry{agents: agents}
}

// MarkRunning records that an agent picked up a request.
func (r *AgentRegistry) MarkRunning(name, requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.ensureLocked(name)
	a.Status = models.AgentStatusRunning
	a.RequestID = requestID
	a.StartedAt = time.Now()
}

// MarkDone records a completed request with its usage.
func (r *AgentRegistry) MarkDone(name string, tokensUsed int64, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.ensureLocked(name)
	a.Status = models.AgentStatusIdle
	a.RequestID = ""
	a.TokensUsed += tokensUsed
	a.Cost += cost
	a.RequestsServed++
}

// MarkFailed records a failed request with its partial usage.
func (r *AgentRegistry) MarkFailed(name string, tokensUsed int64, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.ensureLocked(name)
	a.Status = models.AgentStatusFailed
	a.RequestID = ""
	a.TokensUsed += tokensUsed
	a.Cost += cost
}

// Get retrieves an agent's runtime state by name.
// Returns nil if the agent is not registered.
func (r *AgentRegistry) Get(name string) *models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[name]; ok {
		copied := *a
		return &copied
	}
	return nil
}

// All returns a copy of all registered agents, sorted by name.
func (r *AgentRegistry) All() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		copied := *a
		agents = append(agents, &copied)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents
}

// Running returns how many agents currently have a request in flight.
func (r *AgentRegistry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, a := range r.agents {
		if a.Status == models.AgentStatusRunning {
			count++
		}
	}
	return count
}

// ensureLocked returns the agent entry, creating it if the roster grew.
// Caller holds mu.
func (r *AgentRegistry) ensureLocked(name string) *models.Agent {
	a, ok := r.agents[name]
	if !ok {
		a = &models.Agent{Name: name, Status: models.AgentStatusIdle}
		r.agents[name] = a
	}
	return a
}
