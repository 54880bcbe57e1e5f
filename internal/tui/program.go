package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fibreflow/workforce/internal/memory"
	"github.com/fibreflow/workforce/internal/orchestrator"
	"github.com/fibreflow/workforce/pkg/models"
)

// Run starts the interactive terminal over the orchestrator. Submitted
// requests go through the pool; results come back as messages.
func Run(ctx context.Context, orch *orchestrator.Orchestrator, pool *orchestrator.Pool, domain *memory.DomainStore) error {
	app := NewApp(orch.Registry(), orch.Events())
	p := tea.NewProgram(app, tea.WithAltScreen())

	app.SetSubmitHandler(func(text string) {
		err := pool.Submit(ctx, text, func(req *models.Request, err error) {
			p.Send(RequestDoneMsg{Request: req, Err: err})
		})
		if err != nil {
			p.Send(RequestDoneMsg{Err: err})
		}
	})

	// Surface out-of-band domain state edits in the transcript. The
	// terminal works without the watcher if the platform lacks one.
	if domain != nil {
		if watcher, err := memory.WatchState(domain); err == nil {
			defer watcher.Close()
			go func() {
				for agent := range watcher.Changes() {
					p.Send(StateChangedMsg{Agent: agent})
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run interactive mode: %w", err)
	}

	pool.Wait()
	return nil
}
