package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AgentLoop manages the API call and tool execution cycle for one agent.
type AgentLoop struct {
	client        *Client
	executor      *ToolExecutor
	signals       *SignalManager
	tools         []anthropic.ToolUnionParam
	onStream      func(StreamEvent)
	maxIterations int
	tokenBudget   int64
}

// StreamEvent represents an event during agent execution for streaming to UI.
type StreamEvent struct {
	Type    string // "text", "tool_use", "tool_result", "done", "error"
	Content string
	Tool    string
	Input   json.RawMessage
}

// LoopResult contains the results of an agent loop execution.
type LoopResult struct {
	Output     string
	TokensIn   int64
	TokensOut  int64
	ToolCalls  int
	Iterations int
	Stopped    bool // True if stopped by signal or budget
}

// AgentLoopConfig contains configuration for the agent loop.
type AgentLoopConfig struct {
	Client   *Client
	Executor *ToolExecutor
	Signals  *SignalManager
	// Tools is the agent's tool schema subset (see ToolDefinitionsFor).
	Tools []anthropic.ToolUnionParam
	// MaxIterations is the max API calls before stopping (0 = default 50).
	MaxIterations int
	// TokenBudget stops the loop once total tokens exceed it (0 = unlimited).
	TokenBudget int64
}

// NewAgentLoop creates a new agent loop with the given configuration.
func NewAgentLoop(cfg AgentLoopConfig) *AgentLoop {
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 50
	}

	return &AgentLoop{
		client:        cfg.Client,
		executor:      cfg.Executor,
		signals:       cfg.Signals,
		tools:         cfg.Tools,
		maxIterations: maxIter,
		tokenBudget:   cfg.TokenBudget,
	}
}

// SetStreamHandler sets a callback for streaming events during execution.
func (l *AgentLoop) SetStreamHandler(fn func(StreamEvent)) {
	l.onStream = fn
}

// emit sends a stream event if a handler is configured.
func (l *AgentLoop) emit(event StreamEvent) {
	if l.onStream != nil {
		l.onStream(event)
	}
}

// Run executes the agent loop with the given prompts. Partial output is
// preserved in the result even when the loop stops early.
func (l *AgentLoop) Run(ctx context.Context, systemPrompt, userPrompt string) (*LoopResult, error) {
	result := &LoopResult{}

	// Inject shared operator decisions and check for a stop before starting.
	if l.signals != nil {
		decisions := l.signals.ReadDecisions()
		if decisions != "" {
			systemPrompt = fmt.Sprintf("%s\n\n## Operator Decisions\n%s", systemPrompt, decisions)
		}

		if l.signals.ShouldStop() {
			result.Stopped = true
			return result, fmt.Errorf("stop signal received before start")
		}
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	var textOutput string
	for result.Iterations < l.maxIterations {
		result.Iterations++

		if l.signals != nil && l.signals.ShouldStop() {
			result.Stopped = true
			result.Output = textOutput
			return result, fmt.Errorf("stop signal received")
		}
		if l.tokenBudget > 0 && result.TokensIn+result.TokensOut >= l.tokenBudget {
			result.Stopped = true
			result.Output = textOutput
			return result, fmt.Errorf("token budget (%d) exceeded", l.tokenBudget)
		}

		resp, err := l.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
			Model:     l.client.Model(),
			MaxTokens: 8192,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: messages,
			Tools:    l.tools,
		})
		if err != nil {
			l.emit(StreamEvent{Type: "error", Content: err.Error()})
			result.Output = textOutput
			return result, fmt.Errorf("API call failed: %w", err)
		}

		result.TokensIn += resp.Usage.InputTokens
		result.TokensOut += resp.Usage.OutputTokens
		l.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				l.emit(StreamEvent{Type: "text", Content: variant.Text})
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				result.ToolCalls++

				l.emit(StreamEvent{
					Type:  "tool_use",
					Tool:  variant.Name,
					Input: variant.Input,
				})
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				toolResult := l.executor.Execute(ctx, variant.Name, variant.Input)
				l.emit(StreamEvent{
					Type:    "tool_result",
					Tool:    variant.Name,
					Content: truncateForDisplay(toolResult.Content),
				})

				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		// Done when the model stops calling tools.
		if resp.StopReason == anthropic.StopReasonEndTurn {
			result.Output = textOutput
			l.emit(StreamEvent{Type: "done"})
			return result, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	result.Output = textOutput
	return result, fmt.Errorf("max iterations (%d) reached", l.maxIterations)
}

// SimpleCall makes a single API call without tool execution (for routing
// explanations and learning distillation).
func (l *AgentLoop) SimpleCall(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := l.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     l.client.Model(),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", err
	}

	l.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result += variant.Text
		}
	}

	return result, nil
}

func truncateForDisplay(s string) string {
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
