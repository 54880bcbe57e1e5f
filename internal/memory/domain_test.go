package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDomainStoreLoadMissingIsFresh(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	state, err := store.Load("database")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.Agent != "database" {
		t.Errorf("expected agent 'database', got %q", state.Agent)
	}
	if len(state.Tasks) != 0 {
		t.Errorf("fresh state should have no tasks, got %d", len(state.Tasks))
	}
}

func TestDomainStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	if err := store.UpsertTask("deployment", TaskEntry{
		ID:     "t1",
		Title:  "restart app container",
		Status: "open",
		Notes:  "waiting on maintenance window",
	}); err != nil {
		t.Fatalf("UpsertTask failed: %v", err)
	}

	state, err := store.Load("deployment")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(state.Tasks))
	}
	if state.Tasks[0].Title != "restart app container" {
		t.Errorf("unexpected task title %q", state.Tasks[0].Title)
	}
	if state.Version != domainSchemaVersion {
		t.Errorf("expected version %d, got %d", domainSchemaVersion, state.Version)
	}
}

func TestDomainStoreUpsertReplacesByID(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	store.UpsertTask("database", TaskEntry{ID: "t1", Title: "first", Status: "open"})
	store.UpsertTask("database", TaskEntry{ID: "t1", Title: "first", Status: "done"})

	state, _ := store.Load("database")
	if len(state.Tasks) != 1 {
		t.Fatalf("expected 1 task after upsert, got %d", len(state.Tasks))
	}
	if state.Tasks[0].Status != "done" {
		t.Errorf("expected status 'done', got %q", state.Tasks[0].Status)
	}
}

func TestDomainStoreCorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDomainStore(dir)
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	path := filepath.Join(dir, "monitoring.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	state, err := store.Load("monitoring")
	if err != nil {
		t.Fatalf("Load on corrupt file should recover, got %v", err)
	}
	if len(state.Tasks) != 0 {
		t.Error("recovered state should be fresh")
	}

	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("corrupt file should be moved to .corrupt: %v", err)
	}
}

func TestDomainStoreSummary(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	empty, err := store.Summary("fieldops")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if empty != "" {
		t.Errorf("empty state should summarize to empty string, got %q", empty)
	}

	store.UpsertTask("fieldops", TaskEntry{ID: "t1", Title: "sync lawley project", Status: "blocked", Notes: "tablet offline"})
	store.AddNote("fieldops", "QFieldCloud staging uses a separate login")

	summary, err := store.Summary("fieldops")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !strings.Contains(summary, "[blocked] sync lawley project: tablet offline") {
		t.Errorf("summary missing task line: %q", summary)
	}
	if !strings.Contains(summary, "QFieldCloud staging uses a separate login") {
		t.Errorf("summary missing note: %q", summary)
	}
}

func TestDomainStoreAddNoteRejectsEmpty(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}
	if err := store.AddNote("database", "   "); err == nil {
		t.Error("expected error for empty note")
	}
}

func TestDomainStoreUpdateAtomicOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDomainStore(dir)
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	if err := store.Update("database", func(s *DomainState) error {
		s.Notes = append(s.Notes, "neon branch per ticket")
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// No temp file should be left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
