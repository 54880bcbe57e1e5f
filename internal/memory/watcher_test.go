package memory

import (
	"testing"
	"time"
)

func TestWatchStateNotifiesOnWrite(t *testing.T) {
	store, err := NewDomainStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDomainStore failed: %v", err)
	}

	watcher, err := WatchState(store)
	if err != nil {
		t.Fatalf("WatchState failed: %v", err)
	}
	defer watcher.Close()

	if err := store.AddNote("database", "replica lag resolved"); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case agent := <-watcher.Changes():
			if agent == "database" {
				return
			}
			// Temp-file renames can surface other names first, keep draining.
		case <-deadline:
			t.Fatal("timed out waiting for state change notification")
		}
	}
}
