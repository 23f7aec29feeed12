package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/assigny/pkg/scheduling"
	"github.com/harun/assigny/pkg/session"
	"github.com/harun/assigny/pkg/toolbackend"
)

// Fixed degraded replies.
const (
	modelUnavailableReply = "I'm sorry, I can't help right now: no language model is configured. Please contact the clinic directly."
	modelFailureReply     = "I'm sorry, I couldn't process that request. Please try again."
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	Connector   toolbackend.Connector
	Provider    Provider // nil means no model is configured
	History     session.Store
	Logger      zerolog.Logger
	Model       string
	Temperature float64
	MaxTokens   int
	Now         func() time.Time
}

// Engine processes inbound messages. It is stateless apart from its side
// effect on the session history store, so one Engine serves all sessions.
type Engine struct {
	connector   toolbackend.Connector
	provider    Provider
	history     session.Store
	logger      zerolog.Logger
	model       string
	temperature float64
	maxTokens   int
	now         func() time.Time
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Connector == nil {
		return nil, fmt.Errorf("tool backend connector is required")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Engine{
		connector:   cfg.Connector,
		provider:    cfg.Provider,
		history:     cfg.History,
		logger:      cfg.Logger,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		now:         cfg.Now,
	}, nil
}

// executedCall records the last tool invocation of a request so the booking
// retry can replay it.
type executedCall struct {
	name string
	args map[string]any
}

// ProcessMessage runs one message through the pipeline and returns the reply
// text. Failures degrade to a textual response; the history store records
// the original message and the final reply either way.
func (e *Engine) ProcessMessage(ctx context.Context, message, sessionID string, userType UserType) string {
	original := message

	if e.provider == nil {
		e.logger.Warn().Str("session", sessionID).Msg("No model provider configured")
		e.remember(sessionID, original, modelUnavailableReply)
		return modelUnavailableReply
	}

	client, err := e.connector.Open(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to open tool backend session")
		reply := fmt.Sprintf("Error executing tool backend: %v", err)
		e.remember(sessionID, original, reply)
		return reply
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to list tools, continuing with empty catalog")
		tools = nil
	}

	message = e.resolveRelativeDates(ctx, client, tools, message)

	text, executed := e.dispatch(ctx, client, tools, message, sessionID, userType)

	text = e.dateResolutionFollowUp(ctx, client, original, text, &executed)
	text = e.bookingRetry(ctx, client, original, text, executed)

	e.remember(sessionID, original, text)
	return text
}

// resolveRelativeDates rewrites a relative-date keyword in the message with
// its resolved ISO date. Any failure leaves the message unmodified.
func (e *Engine) resolveRelativeDates(ctx context.Context, client toolbackend.Client, tools []toolbackend.ToolDescriptor, message string) string {
	if !catalogHas(tools, scheduling.ToolResolveDate) {
		return message
	}
	keyword := selectDateKeyword(message)
	if keyword == "" {
		return message
	}

	result, err := client.CallTool(ctx, scheduling.ToolResolveDate, map[string]any{"text": keyword})
	if err != nil {
		e.logger.Debug().Err(err).Str("keyword", keyword).Msg("Date resolution failed")
		return message
	}

	var payload struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil || payload.Date == "" {
		return message
	}

	rewritten := rewriteMessage(message, keyword, payload.Date)
	e.logger.Debug().Str("keyword", keyword).Str("date", payload.Date).Msg("Rewrote relative date")
	return rewritten
}

// dispatch runs the model-plan-execute-format pipeline on the (possibly
// rewritten) message.
func (e *Engine) dispatch(ctx context.Context, client toolbackend.Client, tools []toolbackend.ToolDescriptor, message, sessionID string, userType UserType) (string, *executedCall) {
	history, err := e.history.Turns(sessionID)
	if err != nil {
		e.logger.Warn().Err(err).Str("session", sessionID).Msg("Failed to load history")
	}

	output, err := e.provider.Complete(ctx, CompletionRequest{
		Model:       e.model,
		System:      e.buildSystemPrompt(tools, userType),
		History:     history,
		Message:     message,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("Model call failed")
		output = ""
	}

	plan := ExtractPlan(output)

	if plan != nil && plan.Kind == PlanToolCall {
		args := Normalize(plan.ToolName, plan.RawArgs)
		text := e.callTool(ctx, client, plan.ToolName, args)
		return text, &executedCall{name: plan.ToolName, args: args}
	}

	// No tool plan. A data query must still be answered through a tool,
	// never from the model's free text.
	if IsDataQuery(message) {
		name, args := ForcedCall(message, e.now())
		args = Normalize(name, args)
		e.logger.Debug().Str("tool", name).Msg("Forcing tool call for data query")
		text := e.callTool(ctx, client, name, args)
		return text, &executedCall{name: name, args: args}
	}

	if plan != nil && plan.Kind == PlanFinal {
		return plan.Final, nil
	}
	if strings.TrimSpace(output) != "" {
		return output, nil
	}
	return modelFailureReply, nil
}

// dateResolutionFollowUp turns a bare date-resolution reply into an
// availability lookup when the original message names a doctor.
func (e *Engine) dateResolutionFollowUp(ctx context.Context, client toolbackend.Client, original, text string, executed **executedCall) string {
	if !strings.HasPrefix(text, dateResolvedPrefix) {
		return text
	}

	date := extractResolvedDate(text)
	doctor := ExtractDoctorName(original)
	if date == "" || doctor == "" {
		return text
	}

	query := map[string]any{"doctor_name": doctor, "date": date}
	if part := extractPartOfDay(original); part != "" {
		query["part_of_day"] = part
	}
	args := map[string]any{"query": query}

	followUp := e.callTool(ctx, client, scheduling.ToolCheckAvailability, args)
	*executed = &executedCall{name: scheduling.ToolCheckAvailability, args: args}
	return followUp
}

// bookingRetry registers an unknown patient once and retries the booking
// once. Any other failure text stands as-is.
func (e *Engine) bookingRetry(ctx context.Context, client toolbackend.Client, original, text string, executed *executedCall) string {
	if executed == nil || executed.name != scheduling.ToolBookAppointment {
		return text
	}
	if !strings.Contains(text, "Patient not found") {
		return text
	}

	data, _ := executed.args["data"].(map[string]any)
	email, _ := data["patient_email"].(string)
	if email == "" {
		email = extractEmail(original)
	}
	if email == "" {
		return text
	}

	condition, _ := data["description"].(string)
	if condition == "" {
		condition = "general consultation"
	}
	name := displayNameFromEmail(email)

	e.logger.Info().Str("email", email).Msg("Auto-registering unknown patient before booking retry")
	registration := e.callTool(ctx, client, scheduling.ToolRegisterPatient, map[string]any{
		"data": map[string]any{"name": name, "email": email, "primary_condition": condition},
	})
	if !isRegistrationSuccess(registration) {
		return registration
	}

	retried := e.callTool(ctx, client, executed.name, executed.args)
	return fmt.Sprintf("Welcome, %s! You've been registered as a new patient. %s", name, retried)
}

// callTool invokes one tool and formats its result. A transport failure
// becomes text embedding the tool name and is not retried here.
func (e *Engine) callTool(ctx context.Context, client toolbackend.Client, name string, args map[string]any) string {
	result, err := client.CallTool(ctx, name, args)
	if err != nil {
		e.logger.Error().Err(err).Str("tool", name).Msg("Tool call failed")
		return fmt.Sprintf("Error executing tool %s: %v", name, err)
	}
	return FormatResult(name, result.Content)
}

// remember appends exactly one user and one assistant turn for the request.
// Intermediate chained exchanges are not persisted separately.
func (e *Engine) remember(sessionID, message, reply string) {
	now := e.now().UTC()
	err := e.history.Append(sessionID,
		session.Turn{Role: session.RoleUser, Content: message, Timestamp: now},
		session.Turn{Role: session.RoleAssistant, Content: reply, Timestamp: now},
	)
	if err != nil {
		e.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to persist turns")
	}
}

// buildSystemPrompt assembles the persona, the current date, the caller's
// role and the tool catalog, plus the JSON plan protocol the extractor
// expects.
func (e *Engine) buildSystemPrompt(tools []toolbackend.ToolDescriptor, userType UserType) string {
	var b strings.Builder
	b.WriteString("You are Assigny, a medical scheduling assistant for a clinic.\n")
	fmt.Fprintf(&b, "Today's date is %s.\n", e.now().UTC().Format(scheduling.DateLayout))
	fmt.Fprintf(&b, "You are talking to a %s.\n\n", userType)

	if len(tools) > 0 {
		b.WriteString("You can call the following tools:\n")
		for _, tool := range tools {
			fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
			if tool.InputSchema != nil {
				if schema, err := json.Marshal(tool.InputSchema); err == nil {
					fmt.Fprintf(&b, "  input schema: %s\n", schema)
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("To call a tool, reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"action": "tool", "tool_name": "<name>", "args": {...}}` + "\n")
	b.WriteString("To answer the user directly, reply with:\n")
	b.WriteString(`{"final": "<your answer>"}` + "\n")
	b.WriteString("Never invent appointment data; always use a tool for questions about appointments, availability, patients or statistics.")
	return b.String()
}

func catalogHas(tools []toolbackend.ToolDescriptor, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
