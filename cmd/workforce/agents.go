package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agent roster",
	Long: `List every agent in the roster with its domain, tier, routing
keywords and tools.

The roster comes from configs/agents/*.yaml when present, with a
built-in default roster otherwise.`,
	RunE: runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	w, err := buildWorkforce()
	if err != nil {
		return err
	}
	defer w.close()

	for _, def := range w.roster.Agents() {
		name := color.New(color.Bold).Sprint(def.Name)
		if def.Fallback {
			name += color.HiBlackString(" (fallback)")
		}
		fmt.Printf("%s  %s\n", name, color.HiBlackString("["+string(def.Tier)+"]"))
		if def.Domain != "" {
			fmt.Printf("  %s\n", def.Domain)
		}

		if len(def.Keywords) > 0 {
			keywords := make([]string, 0, len(def.Keywords))
			for kw, weight := range def.Keywords {
				keywords = append(keywords, fmt.Sprintf("%s:%d", kw, weight))
			}
			sort.Strings(keywords)
			fmt.Printf("  keywords: %s\n", strings.Join(keywords, " "))
		}
		if len(def.Phrases) > 0 {
			fmt.Printf("  phrases: %q\n", def.Phrases)
		}
		if len(def.Tools) > 0 {
			fmt.Printf("  tools: %s\n", strings.Join(def.Tools, ", "))
		}
		fmt.Println()
	}

	return nil
}
