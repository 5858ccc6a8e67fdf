package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool for MCP discovery: its name, what it does, and
// the JSON schema of its arguments.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolResult is the outcome of executing a tool.
type ToolResult struct {
	Content     string `json:"content"`
	IsError     bool   `json:"is_error"`
	IsRetryable bool   `json:"is_retryable,omitempty"`
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup and listing.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	List() []Tool
}
