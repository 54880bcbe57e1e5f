package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/internal/config"
	"github.com/fibreflow/workforce/internal/router"
	"github.com/fibreflow/workforce/internal/state"
	"github.com/fibreflow/workforce/pkg/models"
)

func testOrchestrator(t *testing.T, clients ClientFactory) (*Orchestrator, *state.DB) {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	roster := config.DefaultRoster()
	orch, err := New(Config{
		Roster:  roster,
		Router:  router.New(roster, 2),
		DB:      db,
		Clients: clients,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return orch, db
}

func TestNewValidation(t *testing.T) {
	roster := config.DefaultRoster()
	clients := func(anthropic.Model) (*api.Client, error) { return nil, nil }

	if _, err := New(Config{Router: router.New(roster, 2), Clients: clients}); err == nil {
		t.Error("expected error for missing roster")
	}
	if _, err := New(Config{Roster: roster, Clients: clients}); err == nil {
		t.Error("expected error for missing router")
	}
	if _, err := New(Config{Roster: roster, Router: router.New(roster, 2)}); err == nil {
		t.Error("expected error for missing client factory")
	}
}

func TestDryRoute(t *testing.T) {
	orch, _ := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})

	decision, err := orch.DryRoute("run a query against the tickets table")
	if err != nil {
		t.Fatalf("DryRoute failed: %v", err)
	}
	if decision.Agent != "database" {
		t.Errorf("expected database, got %q", decision.Agent)
	}
}

func TestHandleRecordsRoutingFailure(t *testing.T) {
	orch, db := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})

	req, err := orch.Handle(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty request")
	}
	if req == nil {
		t.Fatal("expected a request record even on failure")
	}
	if req.Status != models.RequestFailed {
		t.Errorf("expected failed status, got %q", req.Status)
	}

	stored, err := db.GetRequest(req.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Status != models.RequestFailed {
		t.Errorf("ledger should record failure, got %q", stored.Status)
	}
}

func TestHandleRecordsClientFailure(t *testing.T) {
	orch, db := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("no credentials configured")
	})

	req, err := orch.Handle(context.Background(), "restart the docker container on the vps")
	if err == nil {
		t.Fatal("expected error from client factory")
	}
	if req.Agent != "deployment" {
		t.Errorf("request should be routed before failing, got agent %q", req.Agent)
	}

	// The dispatch is recorded even though execution never started.
	decision, err := db.GetDispatch(req.ID)
	if err != nil {
		t.Fatalf("GetDispatch failed: %v", err)
	}
	if decision.Agent != "deployment" {
		t.Errorf("expected deployment dispatch, got %q", decision.Agent)
	}

	stored, _ := db.GetRequest(req.ID)
	if stored.Status != models.RequestFailed {
		t.Errorf("expected failed status, got %q", stored.Status)
	}
}

func TestHandleEmitsEvents(t *testing.T) {
	orch, _ := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("no credentials configured")
	})

	orch.Handle(context.Background(), "check the whatsapp alerts")

	var types []EventType
	for len(orch.Events()) > 0 {
		types = append(types, (<-orch.Events()).Type)
	}

	want := []EventType{EventRequestSubmitted, EventRequestRouted, EventRequestFailed}
	if len(types) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), types)
	}
	for i, w := range want {
		if types[i] != w {
			t.Errorf("event %d: expected %s, got %s", i, w, types[i])
		}
	}
}

func TestFailPreservesPartialOutput(t *testing.T) {
	orch, db := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})

	req := &models.Request{ID: "r1", Text: "diagnose the replica lag"}
	if err := db.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	partial := "checked replication slot, lag is 40s and growing"
	got, cause := orch.fail(req, fmt.Errorf("token budget exceeded"), partial, 90000, 10000, 1.2)
	if cause == nil {
		t.Fatal("fail should return the cause")
	}
	if got.Status != models.RequestFailed {
		t.Errorf("expected failed status, got %q", got.Status)
	}
	if got.Output != partial {
		t.Errorf("partial output should survive failure, got %q", got.Output)
	}

	stored, err := db.GetRequest("r1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Output != partial {
		t.Errorf("ledger should keep partial output, got %q", stored.Output)
	}
	if stored.Error != "token budget exceeded" {
		t.Errorf("unexpected error %q", stored.Error)
	}
}

func TestTruncateTitle(t *testing.T) {
	short := "restart nginx"
	if got := truncateTitle(short); got != short {
		t.Errorf("short title should be unchanged, got %q", got)
	}

	long := strings.Repeat("ü", 100)
	got := truncateTitle(long)
	if !utf8.ValidString(got) {
		t.Errorf("truncated title is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("ü", 80)+"..." {
		t.Errorf("expected 80 runes plus ellipsis, got %q", got)
	}
}
