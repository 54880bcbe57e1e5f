package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fibreflow/workforce/internal/config"
)

var (
	initForce      bool
	initWithRoster bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a workforce project",
	Long: `Initialize a directory for use with workforce.

This command sets up everything needed to run the agent workforce:
  - Creates the .workforce directory structure (logs, state, ledger)
  - Creates a runbooks/ directory for operational procedures
  - Creates a .workforce.yaml project config template
  - Optionally writes the default agent roster to configs/agents/

The directory argument is optional and defaults to the current directory.

Examples:
  workforce init                # Initialize current directory
  workforce init ./ops          # Initialize specific directory
  workforce init --force        # Reinitialize even if already set up
  workforce init --with-roster  # Write editable agent roster files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithRoster, "with-roster", false, "Write the default agent roster to configs/agents/")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing workforce in %s...\n\n", absPath)

	workforceDir := filepath.Join(absPath, ".workforce")
	if _, err := os.Stat(workforceDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, dir := range []string{
		workforceDir,
		filepath.Join(workforceDir, "logs"),
		filepath.Join(workforceDir, "state"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .workforce directory structure", color.FgGreen)

	runbookDir := filepath.Join(absPath, "runbooks")
	if err := os.MkdirAll(runbookDir, 0755); err != nil {
		return fmt.Errorf("creating runbooks directory: %w", err)
	}
	if err := createExampleRunbook(runbookDir); err != nil {
		return fmt.Errorf("creating example runbook: %w", err)
	}
	printStatus("✓", "Created runbooks/ directory", color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus("✓", "Updated .gitignore with workforce entries", color.FgGreen)

	if err := createProjectConfig(absPath); err != nil {
		return fmt.Errorf("creating project config: %w", err)
	}
	printStatus("✓", "Created .workforce.yaml template", color.FgGreen)

	if initWithRoster {
		if err := writeDefaultRoster(absPath); err != nil {
			return fmt.Errorf("writing agent roster: %w", err)
		}
		printStatus("✓", "Wrote default agent roster to configs/agents/", color.FgGreen)
	}

	fmt.Printf("\n%s Workforce initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if apiKey == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Ask the workforce:")
	fmt.Println("     workforce ask \"why is the postgres replica lagging\"")
	fmt.Println("     # or: workforce (for interactive mode)")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     workforce --help")

	return nil
}

// updateGitignore adds workforce entries to .gitignore if not present.
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	entries := []string{
		".workforce/logs/",
		".workforce/state.db*",
		"workforce",
	}

	needsUpdate := false
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# Workforce\n")
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// createProjectConfig creates the .workforce.yaml template.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".workforce.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil // already exists, don't overwrite
	}

	template := `# Workforce Project Configuration
# This file overrides defaults from ~/.config/workforce/config.yaml

# defaults:
#   token_budget: 100000
#   max_concurrent: 3

# router:
#   min_score: 2

# memory:
#   brain_recall_limit: 5
#   ollama_endpoint: http://localhost:11434
#   ollama_model: embeddinggemma

# timeouts:
#   light: 2m
#   standard: 10m
#   deep: 30m
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// createExampleRunbook seeds the runbooks directory with a template
// agents can read through the read_runbook tool.
func createExampleRunbook(runbookDir string) error {
	path := filepath.Join(runbookDir, "example.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	content := `# Example Runbook

Runbooks in this directory are readable by every agent. Name files
after the procedure they describe, e.g. restore-database.md.

## Symptoms

Describe what the operator observes.

## Procedure

1. Step one.
2. Step two.

## Escalation

Who to page when the procedure does not resolve the issue.
`

	return os.WriteFile(path, []byte(content), 0644)
}

// writeDefaultRoster serializes the built-in roster so operators can
// edit keywords, tools and tiers per project.
func writeDefaultRoster(repoPath string) error {
	agentsDir := filepath.Join(repoPath, "configs", "agents")
	if err := os.MkdirAll(agentsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", agentsDir, err)
	}

	for _, def := range config.DefaultRoster().Agents() {
		path := filepath.Join(agentsDir, def.Name+".yaml")
		if _, err := os.Stat(path); err == nil && !initForce {
			continue
		}

		data, err := yaml.Marshal(def)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", def.Name, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return nil
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
