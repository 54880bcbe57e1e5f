package main

import (
	"context"

	"github.com/fibreflow/workforce/internal/tui"
)

// runInteractive launches the interactive terminal.
func runInteractive() error {
	w, err := buildWorkforce()
	if err != nil {
		return err
	}
	defer w.close()

	return tui.Run(context.Background(), w.orch, w.pool, w.domain)
}
