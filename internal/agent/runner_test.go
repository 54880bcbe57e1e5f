package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/internal/memory"
	"github.com/fibreflow/workforce/pkg/models"
)

type fakeState struct {
	summary string
}

func (f *fakeState) Summary(string) (string, error) {
	return f.summary, nil
}

type fakeBrain struct {
	recalled []string
	saved    [][4]string
}

func (f *fakeBrain) RecallFormatted(_ context.Context, _ string, _ int) ([]string, error) {
	return f.recalled, nil
}

func (f *fakeBrain) SaveLearning(_ context.Context, agent, condition, action, outcome string) error {
	f.saved = append(f.saved, [4]string{agent, condition, action, outcome})
	return nil
}

func testClient(t *testing.T) *api.Client {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	client, err := api.NewClient(api.ClientConfig{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewRunnerValidation(t *testing.T) {
	client := testClient(t)

	if _, err := NewRunner(RunnerConfig{Client: client}); err == nil {
		t.Error("expected error for missing definition")
	}
	if _, err := NewRunner(RunnerConfig{Definition: &models.AgentDefinition{Name: "database"}}); err == nil {
		t.Error("expected error for missing client")
	}

	r, err := NewRunner(RunnerConfig{
		Definition: &models.AgentDefinition{Name: "database"},
		Client:     client,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.Name() != "database" {
		t.Errorf("expected name 'database', got %q", r.Name())
	}
}

func TestRunRejectsEmptyRequest(t *testing.T) {
	r, err := NewRunner(RunnerConfig{
		Definition: &models.AgentDefinition{Name: "database"},
		Client:     testClient(t),
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	if _, err := r.Run(context.Background(), "   ", nil); err == nil {
		t.Error("expected error for empty request")
	}
}

func TestBuildContextGathersMemory(t *testing.T) {
	r, err := NewRunner(RunnerConfig{
		Definition: &models.AgentDefinition{Name: "fieldops"},
		Client:     testClient(t),
		Brain:      &fakeBrain{recalled: []string{"WHEN sync fails DO check token RESULT sync works"}},
		State:      &fakeState{summary: "Tasks (1):\n- [open] sync lawley\n"},
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	session := memory.NewSession("req-1")
	session.Append("operator", "earlier question")

	pctx := r.buildContext(context.Background(), "sync the project", session)
	if !strings.Contains(pctx.StateSummary, "sync lawley") {
		t.Errorf("missing state summary: %q", pctx.StateSummary)
	}
	if len(pctx.Recalled) != 1 {
		t.Errorf("expected 1 recalled learning, got %d", len(pctx.Recalled))
	}
	if !strings.Contains(pctx.Transcript, "earlier question") {
		t.Errorf("missing transcript: %q", pctx.Transcript)
	}
}

func TestSeedSessionAppendsOnce(t *testing.T) {
	session := memory.NewSession("req-1")

	seedSession(session, "restart the sync service")
	session.Append("agent", "stopped the service, restart pending")
	seedSession(session, "restart the sync service")

	var operatorTurns int
	for _, turn := range session.Turns() {
		if turn.Role == "operator" {
			operatorTurns++
		}
	}
	if operatorTurns != 1 {
		t.Errorf("expected 1 operator turn across retries, got %d", operatorTurns)
	}
	if got := len(session.Turns()); got != 2 {
		t.Errorf("expected 2 turns, got %d", got)
	}

	seedSession(nil, "no session")
}
