package api

import (
	"strings"
	"testing"
)

func TestSignalManager_StopAndClear(t *testing.T) {
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSignalManager() error = %v", err)
	}
	defer sm.Close()

	if sm.ShouldStop() {
		t.Fatal("fresh manager should not report stop")
	}

	if err := sm.SendKill(); err != nil {
		t.Fatalf("SendKill() error = %v", err)
	}
	// ShouldStop polls the file directly, so this works without the watcher.
	if !sm.ShouldStop() {
		t.Error("ShouldStop() = false after SendKill")
	}

	sm.ClearSignals()
	if sm.ShouldStop() {
		t.Error("ShouldStop() = true after ClearSignals")
	}
}

func TestSignalManager_Pause(t *testing.T) {
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSignalManager() error = %v", err)
	}
	defer sm.Close()

	if sm.ShouldPause() {
		t.Fatal("fresh manager should not report pause")
	}
	if err := sm.SendPause(); err != nil {
		t.Fatalf("SendPause() error = %v", err)
	}
	if !sm.ShouldPause() {
		t.Error("ShouldPause() = false after SendPause")
	}
}

func TestSignalManager_Decisions(t *testing.T) {
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSignalManager() error = %v", err)
	}
	defer sm.Close()

	initial := sm.ReadDecisions()
	if !strings.Contains(initial, "Operator Decisions") {
		t.Errorf("decisions file not initialized: %q", initial)
	}

	if err := sm.AppendDecision("never restart postgres during business hours"); err != nil {
		t.Fatalf("AppendDecision() error = %v", err)
	}

	updated := sm.ReadDecisions()
	if !strings.Contains(updated, "never restart postgres") {
		t.Errorf("appended decision missing: %q", updated)
	}
}
