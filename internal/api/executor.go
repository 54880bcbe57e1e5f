package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// maxToolOutput caps tool output returned to the model.
const maxToolOutput = 30000

// BrainAccess is the slice of the memory brain the tool executor needs.
type BrainAccess interface {
	// RecallFormatted returns up to limit records relevant to the query,
	// formatted for prompt injection.
	RecallFormatted(ctx context.Context, query string, limit int) ([]string, error)
	// SaveLearning stores a WHEN-DO-RESULT record attributed to an agent.
	SaveLearning(ctx context.Context, agent, condition, action, outcome string) error
}

// StateAccess is the slice of the domain state store the executor needs.
type StateAccess interface {
	// Summary renders the agent's current domain state as text.
	Summary(agent string) (string, error)
}

// DefaultCommandAllowlist is the stock set of permitted run_command
// leading words: remote administration and read-mostly diagnostics.
var DefaultCommandAllowlist = []string{
	"ssh", "docker", "psql", "curl", "ping", "dig", "uptime", "df", "git",
}

// ToolExecutor executes tool calls from the Claude API on behalf of one agent.
type ToolExecutor struct {
	agent      string
	runbookDir string
	allowlist  []string
	brain      BrainAccess
	state      StateAccess
}

// ExecutorConfig configures a ToolExecutor.
type ExecutorConfig struct {
	// Agent is the roster name of the owning agent.
	Agent string
	// RunbookDir is the root of the markdown runbook corpus.
	RunbookDir string
	// Allowlist overrides DefaultCommandAllowlist when non-empty.
	Allowlist []string
	// Brain provides recall_memory / save_memory. May be nil.
	Brain BrainAccess
	// State provides read_state. May be nil.
	State StateAccess
}

// NewToolExecutor creates a tool executor for the given agent.
func NewToolExecutor(cfg ExecutorConfig) *ToolExecutor {
	allowlist := cfg.Allowlist
	if len(allowlist) == 0 {
		allowlist = DefaultCommandAllowlist
	}
	return &ToolExecutor{
		agent:      cfg.Agent,
		runbookDir: cfg.RunbookDir,
		allowlist:  allowlist,
		brain:      cfg.Brain,
		state:      cfg.State,
	}
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	Content string
	IsError bool
}

// Execute runs a tool by name with the given JSON input.
func (e *ToolExecutor) Execute(ctx context.Context, name string, input json.RawMessage) ToolResult {
	switch name {
	case "run_command":
		return e.execRunCommand(ctx, input)
	case "http_request":
		return e.execHTTPRequest(ctx, input)
	case "read_runbook":
		return e.execReadRunbook(input)
	case "list_runbooks":
		return e.execListRunbooks(input)
	case "recall_memory":
		return e.execRecallMemory(ctx, input)
	case "save_memory":
		return e.execSaveMemory(ctx, input)
	case "read_state":
		return e.execReadState()
	default:
		return ToolResult{Content: fmt.Sprintf("Unknown tool: %s", name), IsError: true}
	}
}

func (e *ToolExecutor) execRunCommand(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Command     string `json:"command"`
		Timeout     int    `json:"timeout"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}

	cmdWord := firstWord(params.Command)
	if cmdWord == "" {
		return ToolResult{Content: "Empty command", IsError: true}
	}
	if !e.allowed(cmdWord) {
		return ToolResult{
			Content: fmt.Sprintf("Command %q is not on the allowlist (%s)", cmdWord, strings.Join(e.allowlist, ", ")),
			IsError: true,
		}
	}

	// Default timeout of 2 minutes
	timeout := 120 * time.Second
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", params.Command)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ToolResult{
				Content: fmt.Sprintf("Command timed out after %v:\n%s", timeout, string(output)),
				IsError: true,
			}
		}
		return ToolResult{
			Content: fmt.Sprintf("%s\nError: %v", string(output), err),
			IsError: true,
		}
	}

	return ToolResult{Content: truncateOutput(string(output))}
}

func (e *ToolExecutor) execHTTPRequest(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		URL    string `json:"url"`
		Method string `json:"method"`
		Body   string `json:"body"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}

	method := strings.ToUpper(params.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return ToolResult{Content: fmt.Sprintf("Method %q not permitted (GET or POST only)", method), IsError: true}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var bodyReader io.Reader
	if params.Body != "" {
		bodyReader = strings.NewReader(params.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, params.URL, bodyReader)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid request: %v", err), IsError: true}
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Request failed: %v", err), IsError: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxToolOutput))
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Reading response: %v", err), IsError: true}
	}

	return ToolResult{
		Content: fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, string(body)),
		IsError: resp.StatusCode >= 500,
	}
}

func (e *ToolExecutor) execReadRunbook(input json.RawMessage) ToolResult {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}

	if e.runbookDir == "" {
		return ToolResult{Content: "No runbook directory configured", IsError: true}
	}

	// Reject traversal outside the corpus.
	cleaned := filepath.Clean(params.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return ToolResult{Content: fmt.Sprintf("Runbook path %q escapes the docs root", params.Name), IsError: true}
	}

	path := filepath.Join(e.runbookDir, cleaned)
	content, err := os.ReadFile(path)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Failed to read runbook: %v", err), IsError: true}
	}

	// Format with line numbers (cat -n style)
	lines := strings.Split(string(content), "\n")
	var result strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&result, "%6d\t%s\n", i+1, line)
	}

	return ToolResult{Content: truncateOutput(result.String())}
}

func (e *ToolExecutor) execListRunbooks(input json.RawMessage) ToolResult {
	var params struct {
		Filter string `json:"filter"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
		}
	}

	if e.runbookDir == "" {
		return ToolResult{Content: "No runbook directory configured", IsError: true}
	}

	var matches []string
	filter := strings.ToLower(params.Filter)
	err := filepath.WalkDir(e.runbookDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, _ := filepath.Rel(e.runbookDir, path)
		if filter == "" || strings.Contains(strings.ToLower(rel), filter) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("List error: %v", err), IsError: true}
	}

	if len(matches) == 0 {
		return ToolResult{Content: "No runbooks matched"}
	}

	sort.Strings(matches)
	return ToolResult{Content: strings.Join(matches, "\n")}
}

func (e *ToolExecutor) execRecallMemory(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}

	if e.brain == nil {
		return ToolResult{Content: "Memory brain is not available", IsError: true}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}

	records, err := e.brain.RecallFormatted(ctx, params.Query, limit)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Recall failed: %v", err), IsError: true}
	}
	if len(records) == 0 {
		return ToolResult{Content: "No relevant memories found"}
	}

	return ToolResult{Content: strings.Join(records, "\n")}
}

func (e *ToolExecutor) execSaveMemory(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Condition string `json:"condition"`
		Action    string `json:"action"`
		Outcome   string `json:"outcome"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{Content: fmt.Sprintf("Invalid parameters: %v", err), IsError: true}
	}

	if e.brain == nil {
		return ToolResult{Content: "Memory brain is not available", IsError: true}
	}
	if params.Condition == "" || params.Action == "" || params.Outcome == "" {
		return ToolResult{Content: "condition, action and outcome are all required", IsError: true}
	}

	if err := e.brain.SaveLearning(ctx, e.agent, params.Condition, params.Action, params.Outcome); err != nil {
		return ToolResult{Content: fmt.Sprintf("Save failed: %v", err), IsError: true}
	}

	return ToolResult{Content: "Learning saved"}
}

func (e *ToolExecutor) execReadState() ToolResult {
	if e.state == nil {
		return ToolResult{Content: "Domain state is not available", IsError: true}
	}

	summary, err := e.state.Summary(e.agent)
	if err != nil {
		return ToolResult{Content: fmt.Sprintf("Failed to read state: %v", err), IsError: true}
	}
	if summary == "" {
		return ToolResult{Content: "Domain state is empty"}
	}
	return ToolResult{Content: summary}
}

// allowed reports whether the command word is on the allowlist.
func (e *ToolExecutor) allowed(word string) bool {
	for _, a := range e.allowlist {
		if word == a {
			return true
		}
	}
	return false
}

// firstWord returns the leading word of a command line.
func firstWord(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// truncateOutput caps very long tool output.
func truncateOutput(s string) string {
	if len(s) > maxToolOutput {
		return s[:maxToolOutput] + "\n... (output truncated)"
	}
	return s
}

// FormatToolAction returns a human-readable description of a tool call.
func FormatToolAction(name string, input json.RawMessage) string {
	switch name {
	case "run_command":
		var p struct {
			Command     string `json:"command"`
			Description string `json:"description"`
		}
		json.Unmarshal(input, &p)
		if p.Description != "" {
			return p.Description
		}
		cmd := firstWord(p.Command)
		if len(cmd) > 20 {
			cmd = cmd[:17] + "..."
		}
		return "Running " + cmd
	case "http_request":
		var p struct {
			URL string `json:"url"`
		}
		json.Unmarshal(input, &p)
		return "Requesting " + p.URL
	case "read_runbook":
		var p struct {
			Name string `json:"name"`
		}
		json.Unmarshal(input, &p)
		return "Reading runbook " + filepath.Base(p.Name)
	case "list_runbooks":
		return "Listing runbooks"
	case "recall_memory":
		var p struct {
			Query string `json:"query"`
		}
		json.Unmarshal(input, &p)
		q := p.Query
		if len(q) > 30 {
			q = q[:27] + "..."
		}
		return "Recalling " + q
	case "save_memory":
		return "Saving learning"
	case "read_state":
		return "Reading domain state"
	default:
		return name
	}
}
