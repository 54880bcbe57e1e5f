package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fibreflow/workforce/internal/orchestrator"
	"github.com/fibreflow/workforce/pkg/models"
)

func TestSubmitMarksBusyAndCallsHandler(t *testing.T) {
	registry := orchestrator.NewAgentRegistry([]string{"database"})
	app := NewApp(registry, make(chan orchestrator.Event))

	var submitted string
	app.SetSubmitHandler(func(text string) { submitted = text })

	app.Update(RequestSubmittedMsg{Text: "check the database"})
	if submitted != "check the database" {
		t.Errorf("handler not called, got %q", submitted)
	}
	if !app.busy {
		t.Error("app should be busy after submit")
	}

	// A second submit while busy is rejected.
	submitted = ""
	app.Update(RequestSubmittedMsg{Text: "another request"})
	if submitted != "" {
		t.Error("submit while busy should not call the handler")
	}
}

func TestRequestDoneAppendsAnswer(t *testing.T) {
	registry := orchestrator.NewAgentRegistry([]string{"database"})
	app := NewApp(registry, make(chan orchestrator.Event))
	app.busy = true

	app.Update(RequestDoneMsg{Request: &models.Request{
		Agent:     "database",
		Output:    "42 open tickets",
		TokensIn:  1000,
		TokensOut: 200,
		Cost:      0.01,
	}})

	if app.busy {
		t.Error("app should be idle after completion")
	}
	joined := strings.Join(app.transcript, "\n")
	if !strings.Contains(joined, "42 open tickets") {
		t.Errorf("transcript missing answer: %q", joined)
	}
	if app.totalTokens != 1200 {
		t.Errorf("expected 1200 tokens tracked, got %d", app.totalTokens)
	}
}

func TestRequestDoneShowsError(t *testing.T) {
	registry := orchestrator.NewAgentRegistry([]string{"database"})
	app := NewApp(registry, make(chan orchestrator.Event))
	app.busy = true

	app.Update(RequestDoneMsg{Err: errTest})

	joined := strings.Join(app.transcript, "\n")
	if !strings.Contains(joined, "boom") {
		t.Errorf("transcript missing error: %q", joined)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }

func TestViewShowsRoster(t *testing.T) {
	registry := orchestrator.NewAgentRegistry([]string{"database", "runbook"})
	registry.MarkRunning("database", "r1")

	app := NewApp(registry, make(chan orchestrator.Event))
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := app.View()
	if !strings.Contains(view, "database") || !strings.Contains(view, "runbook") {
		t.Errorf("view missing roster agents:\n%s", view)
	}
}
