package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/internal/memory"
	"github.com/fibreflow/workforce/pkg/models"
)

// Runner executes one agent's requests: it binds a roster definition to
// the API loop, wiring in the agent's tool subset and memory tiers.
type Runner struct {
	def     *models.AgentDefinition
	client  *api.Client
	signals *api.SignalManager
	brain   api.BrainAccess
	state   api.StateAccess

	runbookDir  string
	tokenBudget int64
	timeout     time.Duration
	onStream    func(api.StreamEvent)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Definition is the agent's roster entry.
	Definition *models.AgentDefinition
	// Client is an API client configured with the agent's model.
	Client *api.Client
	// Signals provides stop/pause checks and operator decisions. May be nil.
	Signals *api.SignalManager
	// Brain provides recall_memory / save_memory. May be nil.
	Brain api.BrainAccess
	// State provides read_state. May be nil.
	State api.StateAccess
	// RunbookDir is the root of the markdown runbook corpus.
	RunbookDir string
	// TokenBudget stops the request once total tokens exceed it (0 = unlimited).
	TokenBudget int64
	// Timeout bounds the whole request (0 = no timeout).
	Timeout time.Duration
}

// NewRunner creates a runner for one agent.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Definition == nil {
		return nil, fmt.Errorf("runner requires an agent definition")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("runner requires an API client")
	}
	return &Runner{
		def:         cfg.Definition,
		client:      cfg.Client,
		signals:     cfg.Signals,
		brain:       cfg.Brain,
		state:       cfg.State,
		runbookDir:  cfg.RunbookDir,
		tokenBudget: cfg.TokenBudget,
		timeout:     cfg.Timeout,
	}, nil
}

// SetStreamHandler sets a callback for streaming events during execution.
func (r *Runner) SetStreamHandler(fn func(api.StreamEvent)) {
	r.onStream = fn
}

// Name returns the agent's roster name.
func (r *Runner) Name() string {
	return r.def.Name
}

// RunResult is the outcome of one request execution.
type RunResult struct {
	Output     string
	TokensIn   int64
	TokensOut  int64
	ToolCalls  int
	Iterations int
	Stopped    bool
}

// Run works one request to completion. The session transcript is
// updated with the request and the agent's answer.
func (r *Runner) Run(ctx context.Context, requestText string, session *memory.Session) (*RunResult, error) {
	if strings.TrimSpace(requestText) == "" {
		return nil, fmt.Errorf("empty request")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	pctx := r.buildContext(ctx, requestText, session)

	executor := api.NewToolExecutor(api.ExecutorConfig{
		Agent:      r.def.Name,
		RunbookDir: r.runbookDir,
		Brain:      r.brain,
		State:      r.state,
	})

	loop := api.NewAgentLoop(api.AgentLoopConfig{
		Client:      r.client,
		Executor:    executor,
		Signals:     r.signals,
		Tools:       api.ToolDefinitionsFor(r.def.Tools),
		TokenBudget: r.tokenBudget,
	})
	if r.onStream != nil {
		loop.SetStreamHandler(r.onStream)
	}

	systemPrompt := BuildSystemPrompt(r.def, pctx)
	userPrompt := BuildUserPrompt(requestText, pctx)

	seedSession(session, requestText)

	result, err := loop.Run(ctx, systemPrompt, userPrompt)
	out := &RunResult{}
	if result != nil {
		out.Output = result.Output
		out.TokensIn = result.TokensIn
		out.TokensOut = result.TokensOut
		out.ToolCalls = result.ToolCalls
		out.Iterations = result.Iterations
		out.Stopped = result.Stopped
	}

	if session != nil && out.Output != "" {
		session.Append("agent", out.Output)
	}

	if err != nil {
		return out, fmt.Errorf("agent %s: %w", r.def.Name, err)
	}
	return out, nil
}

// Distill asks the model whether the completed request produced a
// durable learning and saves it to the brain if so.
func (r *Runner) Distill(ctx context.Context, requestText, output string) error {
	if r.brain == nil || output == "" {
		return nil
	}

	loop := api.NewAgentLoop(api.AgentLoopConfig{
		Client:   r.client,
		Executor: api.NewToolExecutor(api.ExecutorConfig{Agent: r.def.Name}),
	})

	answer, err := loop.SimpleCall(ctx,
		"You distill completed operational requests into reusable learnings.",
		BuildDistillPrompt(requestText, output))
	if err != nil {
		return fmt.Errorf("distill learning: %w", err)
	}

	condition, action, result, ok := parseDistilled(answer)
	if !ok {
		return nil
	}
	return r.brain.SaveLearning(ctx, r.def.Name, condition, action, result)
}

// seedSession records the operator turn once per request. Retry
// attempts reuse the session, so the turn must not repeat.
func seedSession(session *memory.Session, requestText string) {
	if session == nil {
		return
	}
	for _, t := range session.Turns() {
		if t.Role == "operator" && t.Content == requestText {
			return
		}
	}
	session.Append("operator", requestText)
}

// buildContext gathers domain state and brain recall for the prompts.
// Memory failures degrade to an empty context rather than blocking the
// request.
func (r *Runner) buildContext(ctx context.Context, requestText string, session *memory.Session) PromptContext {
	pctx := PromptContext{}

	if r.state != nil {
		if summary, err := r.state.Summary(r.def.Name); err == nil {
			pctx.StateSummary = summary
		}
	}
	if r.brain != nil {
		if recalled, err := r.brain.RecallFormatted(ctx, requestText, 5); err == nil {
			pctx.Recalled = recalled
		}
	}
	if session != nil {
		pctx.Transcript = session.Render()
	}

	return pctx
}

// parseDistilled extracts WHEN/DO/RESULT lines from a distillation
// answer. Returns ok=false for NONE or malformed answers.
func parseDistilled(answer string) (condition, action, result string, ok bool) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" || strings.EqualFold(trimmed, "NONE") {
		return "", "", "", false
	}

	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "WHEN:"):
			condition = strings.TrimSpace(strings.TrimPrefix(line, "WHEN:"))
		case strings.HasPrefix(line, "DO:"):
			action = strings.TrimSpace(strings.TrimPrefix(line, "DO:"))
		case strings.HasPrefix(line, "RESULT:"):
			result = strings.TrimSpace(strings.TrimPrefix(line, "RESULT:"))
		}
	}

	if condition == "" || action == "" || result == "" {
		return "", "", "", false
	}
	return condition, action, result, true
}
