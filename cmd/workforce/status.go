package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fibreflow/workforce/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the request ledger and per-agent usage",
	Long: `Display recent requests, their outcomes, and cumulative usage per
agent from the local ledger.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := stateDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No requests yet. Run 'workforce ask <request>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	stats, err := db.StatsByAgent()
	if err != nil {
		return fmt.Errorf("agent stats: %w", err)
	}

	if len(stats) > 0 {
		fmt.Println("Agents:")
		for _, s := range stats {
			fmt.Printf("  %-12s %3d requests (%d failed)  %s tokens  $%.4f\n",
				s.Agent, s.Requests, s.Failed,
				formatNumber(s.TokensIn+s.TokensOut), s.Cost)
		}
		fmt.Println()
	}

	requests, err := db.ListRequests(10)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	if len(requests) == 0 {
		fmt.Println("No requests yet. Run 'workforce ask <request>' to start.")
		return nil
	}

	fmt.Println("Recent Requests:")
	for _, r := range requests {
		agent := r.Agent
		if agent == "" {
			agent = "-"
		}
		fmt.Printf("  %s  %-7s %-12s %s (%s ago)\n",
			r.ID, r.Status, agent, truncateText(r.Text, 50),
			formatDuration(time.Since(r.SubmittedAt)))
	}

	// Brain stats when memory is reachable.
	if w, err := buildWorkforce(); err == nil {
		defer w.close()
		if learnings, episodes, err := w.brain.Counts(context.Background()); err == nil {
			fmt.Printf("\nBrain: %d learnings, %d episodes\n", learnings, episodes)
		}
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		if len(s) > offset {
			result.WriteString(",")
		}
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}

// truncateText shortens text for table display.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
