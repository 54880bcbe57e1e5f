package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// domainSchemaVersion is bumped when the state file layout changes.
const domainSchemaVersion = 1

// TaskEntry tracks one in-flight piece of work in an agent's domain state.
type TaskEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"` // open, blocked, done
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DomainState is the tier-2 memory for one agent: task progress and
// pinned notes that survive across sessions.
type DomainState struct {
	Version   int         `json:"version"`
	Agent     string      `json:"agent"`
	UpdatedAt time.Time   `json:"updated_at"`
	Tasks     []TaskEntry `json:"tasks"`
	Notes     []string    `json:"notes,omitempty"`
}

// DomainStore persists per-agent DomainState as JSON files under a base
// directory (.workforce/state/<agent>.json). Writes are atomic
// (temp file + rename) and serialized per agent.
type DomainStore struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDomainStore creates a DomainStore rooted at baseDir, creating the
// directory if needed.
func NewDomainStore(baseDir string) (*DomainStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &DomainStore{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the store's base directory.
func (d *DomainStore) Dir() string {
	return d.baseDir
}

// path returns the state file path for an agent.
func (d *DomainStore) path(agent string) string {
	return filepath.Join(d.baseDir, agent+".json")
}

// lockFor returns the per-agent mutex, creating it on first use.
func (d *DomainStore) lockFor(agent string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[agent]
	if !ok {
		l = &sync.Mutex{}
		d.locks[agent] = l
	}
	return l
}

// Load reads the agent's state. A missing file yields a fresh state.
// A corrupt file is moved aside (.corrupt suffix) and a fresh state
// started, so a bad write never wedges the agent.
func (d *DomainStore) Load(agent string) (*DomainState, error) {
	l := d.lockFor(agent)
	l.Lock()
	defer l.Unlock()
	return d.loadLocked(agent)
}

// loadLocked reads state. Caller holds the agent lock.
func (d *DomainStore) loadLocked(agent string) (*DomainState, error) {
	path := d.path(agent)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return freshState(agent), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state for %s: %w", agent, err)
	}

	state := &DomainState{}
	if err := json.Unmarshal(data, state); err != nil {
		backup := path + ".corrupt"
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("state for %s is corrupt and could not be moved aside: %w", agent, renameErr)
		}
		return freshState(agent), nil
	}

	if state.Version == 0 {
		state.Version = domainSchemaVersion
	}
	if state.Agent == "" {
		state.Agent = agent
	}
	return state, nil
}

// Save writes the agent's state atomically.
func (d *DomainStore) Save(state *DomainState) error {
	if state.Agent == "" {
		return fmt.Errorf("state has no agent name")
	}

	l := d.lockFor(state.Agent)
	l.Lock()
	defer l.Unlock()
	return d.saveLocked(state)
}

// saveLocked writes state atomically. Caller holds the agent lock.
func (d *DomainStore) saveLocked(state *DomainState) error {
	state.Version = domainSchemaVersion
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", state.Agent, err)
	}

	path := d.path(state.Agent)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state for %s: %w", state.Agent, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state for %s: %w", state.Agent, err)
	}
	return nil
}

// Update loads the agent's state, applies fn, and saves the result,
// all under the agent's lock. This is the only safe way to modify
// state from concurrent request handlers.
func (d *DomainStore) Update(agent string, fn func(*DomainState) error) error {
	l := d.lockFor(agent)
	l.Lock()
	defer l.Unlock()

	state, err := d.loadLocked(agent)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return d.saveLocked(state)
}

// UpsertTask inserts or updates a task entry by ID.
func (d *DomainStore) UpsertTask(agent string, entry TaskEntry) error {
	return d.Update(agent, func(state *DomainState) error {
		entry.UpdatedAt = time.Now().UTC()
		for i, t := range state.Tasks {
			if t.ID == entry.ID {
				state.Tasks[i] = entry
				return nil
			}
		}
		state.Tasks = append(state.Tasks, entry)
		return nil
	})
}

// AddNote appends a pinned note to the agent's state.
func (d *DomainStore) AddNote(agent, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return fmt.Errorf("empty note")
	}
	return d.Update(agent, func(state *DomainState) error {
		state.Notes = append(state.Notes, note)
		return nil
	})
}

// Summary renders the agent's state as text for prompt injection and
// the read_state tool. Returns "" for an empty state.
func (d *DomainStore) Summary(agent string) (string, error) {
	state, err := d.Load(agent)
	if err != nil {
		return "", err
	}

	if len(state.Tasks) == 0 && len(state.Notes) == 0 {
		return "", nil
	}

	var b strings.Builder
	if len(state.Tasks) > 0 {
		fmt.Fprintf(&b, "Tasks (%d):\n", len(state.Tasks))
		tasks := append([]TaskEntry(nil), state.Tasks...)
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt) })
		for _, t := range tasks {
			fmt.Fprintf(&b, "- [%s] %s", t.Status, t.Title)
			if t.Notes != "" {
				fmt.Fprintf(&b, ": %s", t.Notes)
			}
			b.WriteString("\n")
		}
	}
	if len(state.Notes) > 0 {
		fmt.Fprintf(&b, "Notes:\n")
		for _, n := range state.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String(), nil
}

// freshState returns an empty state for an agent.
func freshState(agent string) *DomainState {
	return &DomainState{
		Version: domainSchemaVersion,
		Agent:   agent,
	}
}
