package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/pkg/models"
)

func TestPoolDefaultsMaxConcurrent(t *testing.T) {
	orch, _ := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})

	if got := NewPool(orch, 0).MaxConcurrent(); got != 3 {
		t.Errorf("expected default of 3, got %d", got)
	}
	if got := NewPool(orch, 5).MaxConcurrent(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestPoolSubmitRejectsUnroutable(t *testing.T) {
	orch, _ := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})
	pool := NewPool(orch, 2)

	if err := pool.Submit(context.Background(), "", nil); err == nil {
		t.Error("expected error for empty request")
	}
	pool.Wait()
}

func TestPoolSubmitDeliversResult(t *testing.T) {
	orch, db := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("no client in tests")
	})
	pool := NewPool(orch, 2)

	var (
		mu     sync.Mutex
		gotReq *models.Request
		gotErr error
	)
	err := pool.Submit(context.Background(), "run a query against the tickets table",
		func(req *models.Request, err error) {
			mu.Lock()
			defer mu.Unlock()
			gotReq, gotErr = req, err
		})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if gotErr == nil {
		t.Fatal("expected error from failing client factory")
	}
	if gotReq == nil || gotReq.Status != models.RequestFailed {
		t.Fatalf("expected failed request, got %+v", gotReq)
	}

	stored, err := db.GetRequest(gotReq.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Status != models.RequestFailed {
		t.Errorf("expected failed in ledger, got %q", stored.Status)
	}
}

func TestPoolStopRejectsSubmit(t *testing.T) {
	orch, _ := testOrchestrator(t, func(anthropic.Model) (*api.Client, error) {
		return nil, fmt.Errorf("not used")
	})
	pool := NewPool(orch, 2)

	pool.Stop()
	err := pool.Submit(context.Background(), "run a query against the tickets table", nil)
	if err == nil {
		t.Error("expected error submitting to a stopped pool")
	}
	// Stop must be safe to follow with Wait.
	pool.Wait()
}
