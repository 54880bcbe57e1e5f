package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/fibreflow/workforce/internal/agent"
	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/internal/config"
	"github.com/fibreflow/workforce/internal/memory"
	"github.com/fibreflow/workforce/internal/router"
	"github.com/fibreflow/workforce/internal/state"
	"github.com/fibreflow/workforce/pkg/models"
)

// BrainStore is the orchestrator's view of tier-3 memory.
// Satisfied by *memory.Brain.
type BrainStore interface {
	api.BrainAccess
	SaveEpisode(ctx context.Context, agent, request, response string) error
}

// ClientFactory creates an API client configured with the given model.
type ClientFactory func(model anthropic.Model) (*api.Client, error)

// Config contains the dependencies for an Orchestrator.
type Config struct {
	Roster  *config.Roster
	Router  *router.Router
	DB      *state.DB
	Brain   BrainStore
	Domain  *memory.DomainStore
	Signals *api.SignalManager
	Clients ClientFactory
	// RunbookDir is the root of the markdown runbook corpus.
	RunbookDir string
	// TokenBudget caps tokens per request (0 = unlimited).
	TokenBudget int64
	// Timeouts maps a tier name to the request timeout.
	Timeouts func(tier string) time.Duration
	Logger   *DebugLogger
	Emitter  *EventEmitter
}

// Orchestrator routes requests to agents and runs them to completion.
type Orchestrator struct {
	cfg      Config
	registry *AgentRegistry
	retries  *agent.RetryHandler
}

// New creates an orchestrator over the given dependencies.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Roster == nil || cfg.Roster.Len() == 0 {
		return nil, fmt.Errorf("orchestrator requires a non-empty roster")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("orchestrator requires a router")
	}
	if cfg.Clients == nil {
		return nil, fmt.Errorf("orchestrator requires a client factory")
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = NewEventEmitter(100)
	}

	var learnings agent.LearningSource
	if cfg.Brain != nil {
		learnings = cfg.Brain
	}

	return &Orchestrator{
		cfg:      cfg,
		registry: NewAgentRegistry(cfg.Roster.Names()),
		retries:  agent.NewRetryHandler(learnings),
	}, nil
}

// Registry returns the live agent registry.
func (o *Orchestrator) Registry() *AgentRegistry {
	return o.registry
}

// Events returns the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.cfg.Emitter.Events()
}

// DryRoute scores a request without running it.
func (o *Orchestrator) DryRoute(text string) (*models.RouteDecision, error) {
	return o.cfg.Router.Route(text)
}

// Handle works one request end to end: route, run, persist, capture.
// The returned request reflects the final ledger state even on failure.
func (o *Orchestrator) Handle(ctx context.Context, text string) (*models.Request, error) {
	req := &models.Request{
		ID:          uuid.New().String()[:8],
		Text:        text,
		Status:      models.RequestPending,
		SubmittedAt: time.Now().UTC(),
	}

	if o.cfg.DB != nil {
		if err := o.cfg.DB.CreateRequest(req); err != nil {
			return nil, err
		}
	}
	o.cfg.Emitter.Emit(Event{Type: EventRequestSubmitted, RequestID: req.ID, Message: text})
	o.cfg.Logger.Log("request %s submitted: %s", req.ID, text)

	req.Status = models.RequestRouting
	if o.cfg.DB != nil {
		if err := o.cfg.DB.MarkRouting(req.ID); err != nil {
			o.cfg.Logger.Log("request %s: ledger update failed: %v", req.ID, err)
		}
	}

	decision, err := o.cfg.Router.Route(text)
	if err != nil {
		return o.fail(req, fmt.Errorf("routing failed: %w", err), "", 0, 0, 0)
	}

	if o.cfg.DB != nil {
		if err := o.cfg.DB.RecordDispatch(req.ID, decision); err != nil {
			return o.fail(req, err, "", 0, 0, 0)
		}
	}
	req.Status = models.RequestRunning
	req.Agent = decision.Agent

	routeMsg := fmt.Sprintf("routed to %s (score %d, confidence %.2f)", decision.Agent, decision.Score, decision.Confidence)
	if decision.Fallback {
		routeMsg = fmt.Sprintf("no agent matched, falling back to %s", decision.Agent)
	}
	if decision.Override {
		routeMsg = fmt.Sprintf("operator override to %s", decision.Agent)
	}
	o.cfg.Emitter.Emit(Event{Type: EventRequestRouted, RequestID: req.ID, Agent: decision.Agent, Message: routeMsg})
	o.cfg.Logger.Log("request %s %s", req.ID, routeMsg)

	def := o.cfg.Roster.Get(decision.Agent)
	if def == nil {
		return o.fail(req, fmt.Errorf("routed to unknown agent %q", decision.Agent), "", 0, 0, 0)
	}

	return o.run(ctx, req, def)
}

// run executes the request on the selected agent with retries.
func (o *Orchestrator) run(ctx context.Context, req *models.Request, def *models.AgentDefinition) (*models.Request, error) {
	model := agent.SelectModel(def, req.Text)
	client, err := o.cfg.Clients(model)
	if err != nil {
		return o.fail(req, fmt.Errorf("create API client: %w", err), "", 0, 0, 0)
	}

	var timeout time.Duration
	if o.cfg.Timeouts != nil {
		timeout = o.cfg.Timeouts(string(def.Tier))
	}

	runner, err := agent.NewRunner(agent.RunnerConfig{
		Definition:  def,
		Client:      client,
		Signals:     o.cfg.Signals,
		Brain:       o.cfg.Brain,
		State:       o.cfg.Domain,
		RunbookDir:  o.cfg.RunbookDir,
		TokenBudget: o.cfg.TokenBudget,
		Timeout:     timeout,
	})
	if err != nil {
		return o.fail(req, err, "", 0, 0, 0)
	}
	runner.SetStreamHandler(func(ev api.StreamEvent) {
		if ev.Type == "tool_use" {
			o.cfg.Emitter.Emit(Event{
				Type:          EventAgentProgress,
				RequestID:     req.ID,
				Agent:         def.Name,
				CurrentAction: api.FormatToolAction(ev.Tool, ev.Input),
			})
		}
	})

	o.registry.MarkRunning(def.Name, req.ID)
	o.cfg.Emitter.Emit(Event{Type: EventAgentStarted, RequestID: req.ID, Agent: def.Name, Message: string(model)})
	o.trackTask(def.Name, req, "open")

	session := memory.NewSession(req.ID)

	var result *agent.RunResult
	for {
		result, err = runner.Run(ctx, req.Text, session)
		if err == nil {
			o.retries.Reset(def.Name)
			break
		}

		rctx, decision := o.retries.HandleFailure(ctx, def.Name, err.Error())
		if decision != agent.Retry {
			o.retries.Reset(def.Name)
			break
		}

		o.cfg.Emitter.Emit(Event{
			Type:      EventAgentRetry,
			RequestID: req.ID,
			Agent:     def.Name,
			Message:   fmt.Sprintf("attempt %d (%s)", rctx.Attempt, rctx.Strategy),
		})
		o.cfg.Logger.Log("request %s retry attempt %d: %v", req.ID, rctx.Attempt, err)

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(agent.Backoff(rctx.Attempt)):
			continue
		}
		break
	}

	tokensIn, tokensOut := int64(0), int64(0)
	partial := ""
	if result != nil {
		tokensIn, tokensOut = result.TokensIn, result.TokensOut
		partial = result.Output
	}
	cost := client.Tracker().Cost()

	if err != nil {
		o.registry.MarkFailed(def.Name, tokensIn+tokensOut, cost)
		o.trackTask(def.Name, req, "blocked")
		return o.fail(req, err, partial, tokensIn, tokensOut, cost)
	}

	if o.cfg.DB != nil {
		if dbErr := o.cfg.DB.CompleteRequest(req.ID, result.Output, tokensIn, tokensOut, cost); dbErr != nil {
			o.cfg.Logger.Log("request %s: ledger update failed: %v", req.ID, dbErr)
		}
	}
	o.registry.MarkDone(def.Name, tokensIn+tokensOut, cost)
	o.trackTask(def.Name, req, "done")

	req.Status = models.RequestDone
	req.Output = result.Output
	req.TokensIn = tokensIn
	req.TokensOut = tokensOut
	req.Cost = cost
	now := time.Now().UTC()
	req.CompletedAt = &now

	o.cfg.Emitter.Emit(Event{
		Type:       EventRequestCompleted,
		RequestID:  req.ID,
		Agent:      def.Name,
		TokensUsed: tokensIn + tokensOut,
		Cost:       cost,
	})
	o.cfg.Logger.Log("request %s completed by %s (%d tokens, $%.4f)", req.ID, def.Name, tokensIn+tokensOut, cost)

	o.capture(ctx, runner, req)

	return req, nil
}

// capture distills a learning and records the episode. Capture failures
// never fail the request.
func (o *Orchestrator) capture(ctx context.Context, runner *agent.Runner, req *models.Request) {
	if o.cfg.Brain == nil {
		return
	}

	if err := o.cfg.Brain.SaveEpisode(ctx, req.Agent, req.Text, req.Output); err != nil {
		o.cfg.Logger.Log("request %s: save episode failed: %v", req.ID, err)
	}

	if err := runner.Distill(ctx, req.Text, req.Output); err != nil {
		o.cfg.Logger.Log("request %s: distill failed: %v", req.ID, err)
		return
	}
	o.cfg.Emitter.Emit(Event{Type: EventLearningSaved, RequestID: req.ID, Agent: req.Agent})
}

// trackTask mirrors the request into the agent's domain state.
func (o *Orchestrator) trackTask(agentName string, req *models.Request, status string) {
	if o.cfg.Domain == nil {
		return
	}
	err := o.cfg.Domain.UpsertTask(agentName, memory.TaskEntry{
		ID:     req.ID,
		Title:  truncateTitle(req.Text),
		Status: status,
	})
	if err != nil {
		o.cfg.Logger.Log("request %s: state update failed: %v", req.ID, err)
	}
}

// fail records a failed request in the ledger and emits the event.
// Output produced before the failure (a stopped or budget-capped loop)
// is preserved on the request and in the ledger.
func (o *Orchestrator) fail(req *models.Request, cause error, output string, tokensIn, tokensOut int64, cost float64) (*models.Request, error) {
	req.Status = models.RequestFailed
	req.Error = cause.Error()
	req.Output = output
	req.TokensIn = tokensIn
	req.TokensOut = tokensOut
	req.Cost = cost
	now := time.Now().UTC()
	req.CompletedAt = &now

	if o.cfg.DB != nil {
		if dbErr := o.cfg.DB.FailRequest(req.ID, cause.Error(), output, tokensIn, tokensOut, cost); dbErr != nil {
			o.cfg.Logger.Log("request %s: ledger update failed: %v", req.ID, dbErr)
		}
	}

	o.cfg.Emitter.Emit(Event{Type: EventRequestFailed, RequestID: req.ID, Agent: req.Agent, Error: cause})
	o.cfg.Logger.Log("request %s failed: %v", req.ID, cause)

	return req, cause
}

// truncateTitle shortens request text for task entries without
// splitting a multi-byte rune.
func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= 80 {
		return s
	}
	return string(runes[:80]) + "..."
}
