package api

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalManager handles operator signals and shared decisions via the
// .workforce directory.
type SignalManager struct {
	workforceDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalManager creates a signal manager rooted at the given base
// directory (usually the operator's working directory).
func NewSignalManager(baseDir string) (*SignalManager, error) {
	workforceDir := filepath.Join(baseDir, ".workforce")

	dirs := []string{
		workforceDir,
		filepath.Join(workforceDir, "signals"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	// Initialize decisions file if it doesn't exist
	decisionsPath := filepath.Join(workforceDir, "decisions.md")
	if _, err := os.Stat(decisionsPath); os.IsNotExist(err) {
		initial := `# Operator Decisions

Standing decisions every agent reads before each request and may append to.

## Access

<!-- Which hosts/services agents may touch, and how -->

## Conventions

<!-- Naming, escalation, notification conventions -->

## Constraints

<!-- Hard limits: no destructive commands, maintenance windows, etc. -->
`
		if err := os.WriteFile(decisionsPath, []byte(initial), 0644); err != nil {
			return nil, err
		}
	}

	sm := &SignalManager{
		workforceDir: workforceDir,
		done:         make(chan struct{}),
	}

	// Start file watcher for immediate signals
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - ShouldStop polls the file directly
		return sm, nil
	}
	sm.watcher = watcher

	signalsDir := filepath.Join(workforceDir, "signals")
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		sm.watcher = nil
		return sm, nil
	}

	go sm.watchSignals()

	return sm, nil
}

// watchSignals monitors the signals directory for kill/pause files.
func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			sm.mu.Lock()
			base := filepath.Base(event.Name)
			if base == "kill" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sm.stopSignal = true
			} else if base == "pause" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sm.pauseSignal = true
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ReadDecisions returns the current contents of the decisions file.
func (sm *SignalManager) ReadDecisions() string {
	path := filepath.Join(sm.workforceDir, "decisions.md")
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(content)
}

// AppendDecision adds a new decision to the decisions file.
func (sm *SignalManager) AppendDecision(decision string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	path := filepath.Join(sm.workforceDir, "decisions.md")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04")
	entry := "\n- " + timestamp + ": " + decision + "\n"

	_, err = f.WriteString(entry)
	return err
}

// ShouldStop returns true if a stop signal has been received.
func (sm *SignalManager) ShouldStop() bool {
	// Also check file directly in case watcher missed it
	killPath := filepath.Join(sm.workforceDir, "signals", "kill")
	if _, err := os.Stat(killPath); err == nil {
		sm.mu.Lock()
		sm.stopSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stopSignal
}

// ShouldPause returns true if a pause signal has been received.
func (sm *SignalManager) ShouldPause() bool {
	pausePath := filepath.Join(sm.workforceDir, "signals", "pause")
	if _, err := os.Stat(pausePath); err == nil {
		sm.mu.Lock()
		sm.pauseSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.pauseSignal
}

// SendKill creates a kill signal file.
func (sm *SignalManager) SendKill() error {
	path := filepath.Join(sm.workforceDir, "signals", "kill")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (sm *SignalManager) SendPause() error {
	path := filepath.Join(sm.workforceDir, "signals", "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stopSignal = false
	sm.pauseSignal = false

	os.Remove(filepath.Join(sm.workforceDir, "signals", "kill"))
	os.Remove(filepath.Join(sm.workforceDir, "signals", "pause"))
}

// WorkforceDir returns the path to the .workforce directory.
func (sm *SignalManager) WorkforceDir() string {
	return sm.workforceDir
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
