package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fibreflow/workforce/internal/orchestrator"
)

var (
	askAgent  string
	askDryRun bool
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Submit one request and print the answer",
	Long: `Submit a natural-language request, wait for the selected agent to
work it, and print the answer.

The dispatcher picks the agent by keyword score. Force an agent with
--agent or the @agent: prefix.

Examples:
  workforce ask "how many QA photo reviews are stuck?"
  workforce ask --agent deployment "restart the app container"
  workforce ask --dry-run "sync the lawley project to qfieldcloud"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askAgent, "agent", "", "Force a specific agent instead of routing")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "Show the routing decision without running the agent")
}

func runAsk(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if askAgent != "" {
		text = fmt.Sprintf("@%s: %s", askAgent, text)
	}

	w, err := buildWorkforce()
	if err != nil {
		return err
	}
	defer w.close()

	if askDryRun {
		return printDryRoute(w, text)
	}

	// Drain events for progress output while the request runs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range w.orch.Events() {
			switch ev.Type {
			case orchestrator.EventRequestRouted:
				fmt.Fprintf(os.Stderr, "%s %s\n", color.CyanString("→"), ev.Message)
			case orchestrator.EventAgentProgress:
				fmt.Fprintf(os.Stderr, "  %s\n", color.HiBlackString(ev.CurrentAction))
			case orchestrator.EventAgentRetry:
				fmt.Fprintf(os.Stderr, "%s retry: %s\n", color.YellowString("⚠"), ev.Message)
			case orchestrator.EventRequestCompleted, orchestrator.EventRequestFailed:
				return
			}
		}
	}()

	req, err := w.orch.Handle(context.Background(), text)
	<-done
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	fmt.Println(req.Output)
	fmt.Fprintf(os.Stderr, "\n%s %s answered (%d tokens, $%.4f)\n",
		color.GreenString("✓"), req.Agent, req.TokensIn+req.TokensOut, req.Cost)
	return nil
}

func printDryRoute(w *workforce, text string) error {
	decision, err := w.orch.DryRoute(text)
	if err != nil {
		return err
	}

	fmt.Printf("agent: %s\n", decision.Agent)
	fmt.Printf("score: %d\n", decision.Score)
	fmt.Printf("confidence: %.2f\n", decision.Confidence)
	if len(decision.Matched) > 0 {
		fmt.Printf("matched: %s\n", strings.Join(decision.Matched, ", "))
	}
	if decision.Fallback {
		fmt.Println("fallback: no agent scored above the threshold")
	}
	if decision.Override {
		fmt.Println("override: agent forced by operator")
	}
	return nil
}
