package toolbackend

import "context"

// ToolDescriptor describes one tool advertised to the model.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolResult is the raw outcome of one tool invocation. Content carries the
// tool's JSON response; Error is set only for transport-level failures.
// Domain failures (unknown doctor, validation rejects) travel inside Content
// as an {"error": ...} field.
type ToolResult struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Client is one backend session. The engine opens a fresh client per inbound
// message and closes it when the request ends.
type Client interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
	Close() error
}

// Connector hands out per-request clients.
type Connector interface {
	Open(ctx context.Context) (Client, error)
}
