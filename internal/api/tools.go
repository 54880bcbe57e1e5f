package api

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// allToolDefinitions returns the schemas for every operational tool the
// workforce knows. Individual agents see only the subset their definition
// lists (see ToolDefinitionsFor).
func allToolDefinitions() map[string]anthropic.ToolUnionParam {
	return map[string]anthropic.ToolUnionParam{
		"run_command": {
			OfTool: &anthropic.ToolParam{
				Name:        "run_command",
				Description: anthropic.String("Run an allowlisted shell command (ssh, docker, psql, curl wrappers) and return combined output."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"command": map[string]interface{}{
							"type":        "string",
							"description": "The command to execute. The leading word must be on the allowlist.",
						},
						"timeout": map[string]interface{}{
							"type":        "integer",
							"description": "Timeout in milliseconds (optional, default 120000)",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "What this command does",
						},
					},
					Required: []string{"command"},
				},
			},
		},
		"http_request": {
			OfTool: &anthropic.ToolParam{
				Name:        "http_request",
				Description: anthropic.String("Issue an HTTP GET or POST to a service endpoint (health checks, REST APIs). Returns status and body."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"url": map[string]interface{}{
							"type":        "string",
							"description": "The URL to request",
						},
						"method": map[string]interface{}{
							"type":        "string",
							"description": "GET or POST (default GET)",
						},
						"body": map[string]interface{}{
							"type":        "string",
							"description": "Request body for POST (optional)",
						},
					},
					Required: []string{"url"},
				},
			},
		},
		"read_runbook": {
			OfTool: &anthropic.ToolParam{
				Name:        "read_runbook",
				Description: anthropic.String("Read a markdown runbook from the docs corpus. Returns contents with line numbers."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"name": map[string]interface{}{
							"type":        "string",
							"description": "Runbook path relative to the docs root (e.g. deployment/restart.md)",
						},
					},
					Required: []string{"name"},
				},
			},
		},
		"list_runbooks": {
			OfTool: &anthropic.ToolParam{
				Name:        "list_runbooks",
				Description: anthropic.String("List runbooks in the docs corpus, optionally filtered by a substring."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"filter": map[string]interface{}{
							"type":        "string",
							"description": "Substring to filter runbook paths (optional)",
						},
					},
				},
			},
		},
		"recall_memory": {
			OfTool: &anthropic.ToolParam{
				Name:        "recall_memory",
				Description: anthropic.String("Search the persistent brain for learnings and past episodes relevant to a query."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "What to recall",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Max records to return (default 5)",
						},
					},
					Required: []string{"query"},
				},
			},
		},
		"save_memory": {
			OfTool: &anthropic.ToolParam{
				Name:        "save_memory",
				Description: anthropic.String("Save a WHEN-DO-RESULT learning to the persistent brain for future requests."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"condition": map[string]interface{}{
							"type":        "string",
							"description": "WHEN: the triggering condition",
						},
						"action": map[string]interface{}{
							"type":        "string",
							"description": "DO: the action to take",
						},
						"outcome": map[string]interface{}{
							"type":        "string",
							"description": "RESULT: the expected outcome",
						},
					},
					Required: []string{"condition", "action", "outcome"},
				},
			},
		},
		"read_state": {
			OfTool: &anthropic.ToolParam{
				Name:        "read_state",
				Description: anthropic.String("Read this agent's domain state file: open tasks, recent progress, pinned notes."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{},
				},
			},
		},
	}
}

// ToolDefinitionsFor returns the schemas for the named tools, in a stable
// order. Unknown names are skipped.
func ToolDefinitionsFor(names []string) []anthropic.ToolUnionParam {
	all := allToolDefinitions()
	var defs []anthropic.ToolUnionParam
	for _, name := range names {
		if def, ok := all[name]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// KnownTool reports whether a tool name is part of the workforce tool set.
func KnownTool(name string) bool {
	_, ok := allToolDefinitions()[name]
	return ok
}
