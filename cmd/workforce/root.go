package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "workforce",
	Short: "AI workforce for fiber-installation operations",
	Long: `Workforce routes natural-language operational requests to a roster of
specialized AI agents: database, deployment, field operations, monitoring
and runbook lookups.

With no arguments, launches interactive mode where you can type requests
and watch the selected agent work them.

Core capabilities:
- Routes each request to the best-matching agent by keyword score
- Agents work with a fixed tool set (commands, HTTP, runbooks, memory)
- Remembers: per-agent domain state plus a shared learning brain
- Records every request and its cost in a local ledger`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(versionCmd)
}
