package agent

import (
	"strings"
	"testing"

	"github.com/fibreflow/workforce/pkg/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	def := &models.AgentDefinition{
		Name:    "database",
		Domain:  "Neon Postgres and ticket data",
		Persona: "You are a careful database operator.",
		Tools:   []string{"run_command", "recall_memory"},
	}

	prompt := BuildSystemPrompt(def, PromptContext{
		StateSummary: "Tasks (1):\n- [open] audit slow queries\n",
		Recalled:     []string{"WHEN query times out DO check indexes RESULT fast queries"},
	})

	for _, want := range []string{
		"You are a careful database operator.",
		"database agent for Neon Postgres",
		"run_command, recall_memory",
		"## Your Domain State",
		"audit slow queries",
		"## Relevant Past Learnings",
		"WHEN query times out",
		"save_memory",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptEmptyContext(t *testing.T) {
	def := &models.AgentDefinition{Name: "runbook", Persona: "You answer from runbooks."}
	prompt := BuildSystemPrompt(def, PromptContext{})

	if strings.Contains(prompt, "## Your Domain State") {
		t.Error("empty state should not produce a state section")
	}
	if strings.Contains(prompt, "## Relevant Past Learnings") {
		t.Error("no recall should not produce a learnings section")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	plain := BuildUserPrompt("check disk space", PromptContext{})
	if plain != "check disk space" {
		t.Errorf("prompt without transcript should be the raw request, got %q", plain)
	}

	withHistory := BuildUserPrompt("and the other server?", PromptContext{
		Transcript: "[operator] check disk space\n[agent] disk at 40%\n",
	})
	if !strings.Contains(withHistory, "## Session So Far") {
		t.Error("follow-up prompt missing transcript section")
	}
	if !strings.Contains(withHistory, "## Request\nand the other server?") {
		t.Error("follow-up prompt missing request section")
	}
}

func TestParseDistilled(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		ok     bool
		action string
	}{
		{
			name:   "valid",
			answer: "WHEN: disk fills on the vps\nDO: prune docker images\nRESULT: space reclaimed",
			ok:     true,
			action: "prune docker images",
		},
		{"none", "NONE", false, ""},
		{"none lowercase", "none", false, ""},
		{"empty", "", false, ""},
		{"missing result", "WHEN: a\nDO: b", false, ""},
		{"prose answer", "Nothing durable was learned here.", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, action, _, ok := parseDistilled(tt.answer)
			if ok != tt.ok {
				t.Fatalf("parseDistilled(%q) ok = %v, want %v", tt.answer, ok, tt.ok)
			}
			if ok && action != tt.action {
				t.Errorf("action = %q, want %q", action, tt.action)
			}
		})
	}
}
