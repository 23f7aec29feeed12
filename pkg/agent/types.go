package agent

import "github.com/harun/assigny/pkg/session"

// UserType identifies who is talking to the assistant.
type UserType string

// Supported user types.
const (
	UserPatient UserType = "patient"
	UserDoctor  UserType = "doctor"
)

// PlanKind discriminates the two plan variants.
type PlanKind int

// Plan variants.
const (
	PlanFinal PlanKind = iota
	PlanToolCall
)

// Plan is the decoded model output: either a final free-text answer or a
// single tool invocation. A nil *Plan means the model produced no usable
// plan.
type Plan struct {
	Kind     PlanKind
	Final    string
	ToolName string
	RawArgs  any
}

// CompletionRequest is one model call: a system instruction, prior
// conversation turns and the current user message.
type CompletionRequest struct {
	Model       string
	System      string
	History     []session.Turn
	Message     string
	Temperature float64
	MaxTokens   int
}
