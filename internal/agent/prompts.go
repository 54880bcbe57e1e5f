package agent

import (
	"fmt"
	"strings"

	"github.com/fibreflow/workforce/pkg/models"
)

// PromptContext carries the memory and roster context injected into an
// agent's system prompt.
type PromptContext struct {
	// StateSummary is the agent's domain state rendered as text.
	StateSummary string
	// Recalled holds brain learnings relevant to the request.
	Recalled []string
	// Transcript is the session so far, for follow-up requests.
	Transcript string
}

// BuildSystemPrompt assembles the system prompt for an agent: persona,
// tool guidance, domain state and recalled learnings.
func BuildSystemPrompt(def *models.AgentDefinition, pctx PromptContext) string {
	var b strings.Builder

	b.WriteString(def.Persona)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are the %s agent", def.Name)
	if def.Domain != "" {
		fmt.Fprintf(&b, " for %s", def.Domain)
	}
	b.WriteString(". Work the request with your tools, verify before you act, and finish with a concise report of what you found or did.\n")

	if len(def.Tools) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s.\n", strings.Join(def.Tools, ", "))
	}

	if pctx.StateSummary != "" {
		b.WriteString("\n## Your Domain State\n")
		b.WriteString(pctx.StateSummary)
	}

	if len(pctx.Recalled) > 0 {
		b.WriteString("\n## Relevant Past Learnings\n")
		for _, l := range pctx.Recalled {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	b.WriteString("\nWhen you learn something durable about this environment, save it with save_memory so the next request benefits.\n")

	return b.String()
}

// BuildUserPrompt assembles the user prompt: transcript context for
// follow-ups, then the request itself.
func BuildUserPrompt(requestText string, pctx PromptContext) string {
	if pctx.Transcript == "" {
		return requestText
	}

	var b strings.Builder
	b.WriteString("## Session So Far\n")
	b.WriteString(pctx.Transcript)
	b.WriteString("\n## Request\n")
	b.WriteString(requestText)
	return b.String()
}

// BuildDistillPrompt asks the model to turn a completed request into a
// WHEN-DO-RESULT learning, or NONE when nothing durable was learned.
func BuildDistillPrompt(requestText, output string) string {
	return fmt.Sprintf(`A request was just completed. Decide whether it produced a durable, reusable learning about this environment.

Request: %s

Outcome:
%s

If there is a durable learning, answer in exactly this format:
WHEN: <the triggering condition>
DO: <the action to take>
RESULT: <the expected outcome>

If nothing durable was learned, answer exactly: NONE`, requestText, truncate(output, 4000))
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
