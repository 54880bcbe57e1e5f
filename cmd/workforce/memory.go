package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the memory tiers",
	Long: `Work with the workforce memory: search the shared brain, compact
stale learnings, show per-agent domain state, and pin operator decisions.`,
}

var memorySearchLimit int

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the brain for learnings and episodes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := buildWorkforce()
		if err != nil {
			return err
		}
		defer w.close()

		query := strings.Join(args, " ")
		results, err := w.brain.Recall(context.Background(), query, memorySearchLimit)
		if err != nil {
			return fmt.Errorf("search brain: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No matching records.")
			return nil
		}

		for _, r := range results {
			switch {
			case r.Learning != nil:
				l := r.Learning
				fmt.Printf("%s [%s] (triggered %d, effectiveness %.0f%%)\n",
					color.New(color.Bold).Sprint("learning"), l.Agent,
					l.TriggerCount, l.Effectiveness()*100)
				fmt.Printf("  WHEN   %s\n", l.Condition)
				fmt.Printf("  DO     %s\n", l.Action)
				fmt.Printf("  RESULT %s\n", l.Outcome)
			case r.Episode != nil:
				e := r.Episode
				fmt.Printf("%s [%s] %s\n",
					color.New(color.Bold).Sprint("episode"), e.Agent,
					e.CreatedAt.Format("2006-01-02"))
				fmt.Printf("  %s\n", e.Request)
			}
			fmt.Println()
		}
		return nil
	},
}

var memoryCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Remove expired and ineffective learnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := buildWorkforce()
		if err != nil {
			return err
		}
		defer w.close()

		removed, err := w.brain.Compact(context.Background())
		if err != nil {
			return fmt.Errorf("compact brain: %w", err)
		}

		fmt.Printf("Removed %d stale learnings.\n", removed)
		return nil
	},
}

var memoryStateCmd = &cobra.Command{
	Use:   "state [agent]",
	Short: "Show per-agent domain state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := buildWorkforce()
		if err != nil {
			return err
		}
		defer w.close()

		names := w.roster.Names()
		if len(args) == 1 {
			names = []string{args[0]}
		}

		for _, name := range names {
			summary, err := w.domain.Summary(name)
			if err != nil {
				return fmt.Errorf("read state for %s: %w", name, err)
			}
			if summary == "" {
				continue
			}
			fmt.Println(color.New(color.Bold).Sprint(name))
			for _, line := range strings.Split(strings.TrimRight(summary, "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
			fmt.Println()
		}
		return nil
	},
}

var memoryDecideCmd = &cobra.Command{
	Use:   "decide <decision>",
	Short: "Pin an operator decision for all agents",
	Long: `Append a decision to .workforce/decisions.md. Decisions are injected
into every agent's system prompt until removed from the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := buildWorkforce()
		if err != nil {
			return err
		}
		defer w.close()

		decision := strings.Join(args, " ")
		if err := w.signals.AppendDecision(decision); err != nil {
			return fmt.Errorf("append decision: %w", err)
		}

		fmt.Printf("%s Decision pinned.\n", color.GreenString("✓"))
		return nil
	},
}

func init() {
	memorySearchCmd.Flags().IntVar(&memorySearchLimit, "limit", 10, "Maximum results to show")
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryCompactCmd)
	memoryCmd.AddCommand(memoryStateCmd)
	memoryCmd.AddCommand(memoryDecideCmd)
}
