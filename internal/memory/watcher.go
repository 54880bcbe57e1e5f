package memory

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// StateWatcher notifies when an agent's domain state file changes on
// disk, so externally edited state (an operator fixing a note by hand)
// is picked up without a restart.
type StateWatcher struct {
	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
}

// WatchState starts watching the domain store's directory. Each change
// to an <agent>.json file delivers the agent name on Changes().
func WatchState(store *DomainStore) (*StateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(store.Dir()); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &StateWatcher{
		watcher: watcher,
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// run forwards relevant fsnotify events as agent names.
func (w *StateWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			// Skip temp and corrupt-backup files from our own writes.
			if !strings.HasSuffix(base, ".json") {
				continue
			}
			agent := strings.TrimSuffix(base, ".json")
			select {
			case w.changes <- agent:
			default:
				// Drop when nobody is draining; the next change re-notifies.
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Changes returns the channel of agent names whose state changed.
func (w *StateWatcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher.
func (w *StateWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
