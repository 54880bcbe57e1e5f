package state

import (
	"path/filepath"
	"testing"

	"github.com/fibreflow/workforce/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetRequest(t *testing.T) {
	db := testDB(t)

	req := &models.Request{ID: "r1", Text: "check database health"}
	if err := db.CreateRequest(req); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	got, err := db.GetRequest("r1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Text != "check database health" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.Status != models.RequestPending {
		t.Errorf("expected pending status, got %q", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("new request should have no completion time")
	}
}

func TestCreateRequestRequiresID(t *testing.T) {
	db := testDB(t)
	if err := db.CreateRequest(&models.Request{Text: "no id"}); err == nil {
		t.Error("expected error for missing ID")
	}
}

func TestRecordDispatchMarksRunning(t *testing.T) {
	db := testDB(t)

	db.CreateRequest(&models.Request{ID: "r1", Text: "run a query on neon"})
	err := db.RecordDispatch("r1", &models.RouteDecision{
		Agent:      "database",
		Score:      7,
		Confidence: 0.8,
		Matched:    []string{"query", "neon"},
	})
	if err != nil {
		t.Fatalf("RecordDispatch failed: %v", err)
	}

	req, _ := db.GetRequest("r1")
	if req.Status != models.RequestRunning {
		t.Errorf("expected running status, got %q", req.Status)
	}
	if req.Agent != "database" {
		t.Errorf("expected agent 'database', got %q", req.Agent)
	}

	decision, err := db.GetDispatch("r1")
	if err != nil {
		t.Fatalf("GetDispatch failed: %v", err)
	}
	if decision.Score != 7 {
		t.Errorf("expected score 7, got %d", decision.Score)
	}
	if len(decision.Matched) != 2 || decision.Matched[0] != "query" {
		t.Errorf("unexpected matched terms: %v", decision.Matched)
	}
}

func TestCompleteRequest(t *testing.T) {
	db := testDB(t)

	db.CreateRequest(&models.Request{ID: "r1", Text: "check disk space"})
	if err := db.CompleteRequest("r1", "disk at 40%", 1200, 300, 0.012); err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}

	req, _ := db.GetRequest("r1")
	if req.Status != models.RequestDone {
		t.Errorf("expected done status, got %q", req.Status)
	}
	if req.Output != "disk at 40%" {
		t.Errorf("unexpected output %q", req.Output)
	}
	if req.CompletedAt == nil {
		t.Error("completed request should have completion time")
	}
	if req.TokensIn != 1200 || req.TokensOut != 300 {
		t.Errorf("unexpected token counts: %d/%d", req.TokensIn, req.TokensOut)
	}
}

func TestFailRequestKeepsPartialUsage(t *testing.T) {
	db := testDB(t)

	db.CreateRequest(&models.Request{ID: "r1", Text: "deploy the new build"})
	partial := "pulled image, restart pending"
	if err := db.FailRequest("r1", "token budget exceeded", partial, 90000, 10000, 1.2); err != nil {
		t.Fatalf("FailRequest failed: %v", err)
	}

	req, _ := db.GetRequest("r1")
	if req.Status != models.RequestFailed {
		t.Errorf("expected failed status, got %q", req.Status)
	}
	if req.Error != "token budget exceeded" {
		t.Errorf("unexpected error %q", req.Error)
	}
	if req.Output != partial {
		t.Errorf("partial output should be recorded, got %q", req.Output)
	}
	if req.TokensIn != 90000 {
		t.Errorf("partial usage should be recorded, got %d", req.TokensIn)
	}
}

func TestMarkRouting(t *testing.T) {
	db := testDB(t)

	db.CreateRequest(&models.Request{ID: "r1", Text: "why is the replica lagging"})
	if err := db.MarkRouting("r1"); err != nil {
		t.Fatalf("MarkRouting failed: %v", err)
	}

	req, _ := db.GetRequest("r1")
	if req.Status != models.RequestRouting {
		t.Errorf("expected routing status, got %q", req.Status)
	}

	if err := db.MarkRouting("missing"); err == nil {
		t.Error("expected error marking unknown request")
	}
}

func TestCompleteUnknownRequest(t *testing.T) {
	db := testDB(t)
	if err := db.CompleteRequest("missing", "out", 0, 0, 0); err == nil {
		t.Error("expected error completing unknown request")
	}
}

func TestListRequestsNewestFirst(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"r1", "r2", "r3"} {
		db.CreateRequest(&models.Request{ID: id, Text: "request " + id})
	}

	requests, err := db.ListRequests(2)
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
}

func TestStatsByAgent(t *testing.T) {
	db := testDB(t)

	db.CreateRequest(&models.Request{ID: "r1", Text: "query tickets"})
	db.RecordDispatch("r1", &models.RouteDecision{Agent: "database", Score: 5})
	db.CompleteRequest("r1", "42 open tickets", 1000, 200, 0.01)

	db.CreateRequest(&models.Request{ID: "r2", Text: "restart container"})
	db.RecordDispatch("r2", &models.RouteDecision{Agent: "deployment", Score: 6})
	db.FailRequest("r2", "ssh unreachable", "", 500, 100, 0.005)

	stats, err := db.StatsByAgent()
	if err != nil {
		t.Fatalf("StatsByAgent failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(stats))
	}
	// Sorted by agent name.
	if stats[0].Agent != "database" || stats[1].Agent != "deployment" {
		t.Errorf("unexpected agent order: %v", stats)
	}
	if stats[0].Failed != 0 || stats[1].Failed != 1 {
		t.Errorf("unexpected failure counts: %+v", stats)
	}
	if stats[0].TokensIn != 1000 {
		t.Errorf("expected 1000 tokens in for database, got %d", stats[0].TokensIn)
	}
}
