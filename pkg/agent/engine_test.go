package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/assigny/pkg/scheduling"
	"github.com/harun/assigny/pkg/session"
	"github.com/harun/assigny/pkg/toolbackend"
)

// Thursday 2025-08-14.
var engineNow = func() time.Time { return time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC) }

// stubProvider returns scripted outputs in order, then empty strings.
type stubProvider struct {
	outputs  []string
	err      error
	requests []CompletionRequest
}

func (p *stubProvider) Complete(ctx context.Context, request CompletionRequest) (string, error) {
	p.requests = append(p.requests, request)
	if p.err != nil {
		return "", p.err
	}
	if len(p.outputs) == 0 {
		return "", nil
	}
	out := p.outputs[0]
	p.outputs = p.outputs[1:]
	return out, nil
}

func (p *stubProvider) Name() string { return "stub" }

type recordedCall struct {
	Name string
	Args map[string]any
}

// fakeBackend is both Connector and Client; it records calls and answers
// from a canned content table.
type fakeBackend struct {
	tools    []toolbackend.ToolDescriptor
	contents map[string]string
	errs     map[string]error
	calls    []recordedCall
}

func (f *fakeBackend) Open(ctx context.Context) (toolbackend.Client, error) { return f, nil }

func (f *fakeBackend) ListTools(ctx context.Context) ([]toolbackend.ToolDescriptor, error) {
	return f.tools, nil
}

func (f *fakeBackend) CallTool(ctx context.Context, name string, args map[string]any) (toolbackend.ToolResult, error) {
	f.calls = append(f.calls, recordedCall{Name: name, Args: args})
	if err := f.errs[name]; err != nil {
		return toolbackend.ToolResult{}, err
	}
	return toolbackend.ToolResult{Content: f.contents[name]}, nil
}

func (f *fakeBackend) Close() error { return nil }

func fakeCatalog(names ...string) []toolbackend.ToolDescriptor {
	tools := make([]toolbackend.ToolDescriptor, len(names))
	for i, n := range names {
		tools[i] = toolbackend.ToolDescriptor{Name: n, Description: n}
	}
	return tools
}

func newTestEngine(t *testing.T, provider Provider, backend toolbackend.Connector) (*Engine, *session.MemoryStore) {
	t.Helper()
	history := session.NewMemoryStore()
	engine, err := NewEngine(EngineConfig{
		Connector: backend,
		Provider:  provider,
		History:   history,
		Logger:    zerolog.Nop(),
		Model:     "test-model",
		Now:       engineNow,
	})
	require.NoError(t, err)
	return engine, history
}

func TestEngine_NoProviderShortCircuits(t *testing.T) {
	backend := &fakeBackend{}
	engine, history := newTestEngine(t, nil, backend)

	reply := engine.ProcessMessage(context.Background(), "list appointments today", "s1", UserPatient)
	assert.Equal(t, modelUnavailableReply, reply)
	assert.Empty(t, backend.calls)

	turns, err := history.Turns("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "list appointments today", turns[0].Content)
	assert.Equal(t, modelUnavailableReply, turns[1].Content)
}

func TestEngine_ModelToolPlanExecuted(t *testing.T) {
	backend := &fakeBackend{
		tools: fakeCatalog(scheduling.ToolAppointmentStats),
		contents: map[string]string{
			scheduling.ToolAppointmentStats: `{"total_appointments": 4, "completed": 1, "canceled": 0}`,
		},
	}
	provider := &stubProvider{outputs: []string{
		`{"action": "tool", "tool_name": "appointment_stats_tool", "args": {"date": "2025-08-14"}}`,
	}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "stats for 2025-08-14 please", "s1", UserDoctor)
	assert.Equal(t, "Total: 4; Completed: 1; Canceled: 0", reply)

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Equal(t, scheduling.ToolAppointmentStats, call.Name)
	// Args were normalized: wrapped in query with the date key remapped.
	assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-14"}}, call.Args)
}

func TestEngine_ForcedSlackSummary(t *testing.T) {
	backend := &fakeBackend{
		tools: fakeCatalog(scheduling.ToolResolveDate, scheduling.ToolAppointmentStats),
		contents: map[string]string{
			scheduling.ToolResolveDate:      `{"date": "2025-08-14"}`,
			scheduling.ToolAppointmentStats: `{"total_appointments": 2, "completed": 0, "canceled": 0, "slack_sent": true}`,
		},
	}
	provider := &stubProvider{outputs: []string{"Sure, I'll send that summary right away!"}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "Send a Slack summary for today", "s1", UserDoctor)
	assert.Equal(t, slackSentReply, reply)

	require.Len(t, backend.calls, 2)
	assert.Equal(t, scheduling.ToolResolveDate, backend.calls[0].Name)
	assert.Equal(t, map[string]any{"text": "today"}, backend.calls[0].Args)

	stats := backend.calls[1]
	assert.Equal(t, scheduling.ToolAppointmentStats, stats.Name)
	assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-14", "notify": true}}, stats.Args)
}

func TestEngine_ForcedListTomorrow(t *testing.T) {
	backend := &fakeBackend{
		tools: fakeCatalog(scheduling.ToolResolveDate, scheduling.ToolListAppointments),
		contents: map[string]string{
			scheduling.ToolResolveDate:      `{"date": "2025-08-15"}`,
			scheduling.ToolListAppointments: `{"appointments": []}`,
		},
	}
	provider := &stubProvider{outputs: []string{"Let me look that up for you."}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "list appointments tomorrow", "s1", UserDoctor)
	assert.Equal(t, "No appointments found.", reply)

	require.Len(t, backend.calls, 2)
	list := backend.calls[1]
	assert.Equal(t, scheduling.ToolListAppointments, list.Name)
	assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-15"}}, list.Args)
}

func TestEngine_DateResolutionFollowUp(t *testing.T) {
	backend := &fakeBackend{
		tools: fakeCatalog(scheduling.ToolResolveDate, scheduling.ToolCheckAvailability),
		contents: map[string]string{
			scheduling.ToolResolveDate:       `{"date": "2025-08-15"}`,
			scheduling.ToolCheckAvailability: `{"doctor_name": "Dr. Ahuja", "available_slots": ["2025-08-15T09:00Z-2025-08-15T09:30Z"]}`,
		},
	}
	provider := &stubProvider{outputs: []string{
		`{"action": "tool", "tool_name": "resolve_date_tool", "args": {"text": "2025-08-15"}}`,
	}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "Is Dr. Ahuja free on friday morning?", "s1", UserPatient)
	assert.Contains(t, reply, "2025-08-15 09:00-09:30")
	assert.NotContains(t, reply, dateResolvedPrefix)

	// Keyword rewrite, the model's resolve call, then the follow-up lookup.
	last := backend.calls[len(backend.calls)-1]
	require.Equal(t, scheduling.ToolCheckAvailability, last.Name)
	assert.Equal(t, map[string]any{"query": map[string]any{
		"doctor_name": "Dr. Ahuja",
		"date":        "2025-08-15",
		"part_of_day": "morning",
	}}, last.Args)
}

func TestEngine_BookingRetryEndToEnd(t *testing.T) {
	store, err := scheduling.Open(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Seed(context.Background()))

	registry := toolbackend.NewRegistry(5 * time.Second)
	require.NoError(t, scheduling.NewToolset(store, nil, engineNow).Register(registry))

	bookArgs := map[string]any{"data": map[string]any{
		"doctor_name":   "Dr. Ahuja",
		"patient_email": "jane.doe77@mail.com",
		"start_at":      "2025-09-01T09:00",
		"end_at":        "2025-09-01T09:30",
	}}
	planJSON, err := json.Marshal(map[string]any{
		"action": "tool", "tool_name": scheduling.ToolBookAppointment, "args": bookArgs,
	})
	require.NoError(t, err)

	provider := &stubProvider{outputs: []string{string(planJSON)}}
	engine, history := newTestEngine(t, provider, registry)

	original := "book dr. ahuja for jane.doe77@mail.com 2025-09-01T09:00 to 09:30"
	reply := engine.ProcessMessage(context.Background(), original, "s1", UserPatient)

	assert.Contains(t, reply, "Welcome, Jane Doe!")
	assert.Contains(t, reply, "registered as a new patient")
	assert.Contains(t, reply, "booked successfully")

	patient, err := store.PatientByEmail(context.Background(), "jane.doe77@mail.com")
	require.NoError(t, err)
	require.NotNil(t, patient)
	assert.Equal(t, "Jane Doe", patient.Name)

	appts, err := store.AppointmentsOn(context.Background(), time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), scheduling.ListFilter{})
	require.NoError(t, err)
	require.Len(t, appts, 1)

	turns, err := history.Turns("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, original, turns[0].Content)
}

func TestEngine_TransportErrorSurfacedAsText(t *testing.T) {
	backend := &fakeBackend{
		tools: fakeCatalog(scheduling.ToolListAppointments),
		errs:  map[string]error{scheduling.ToolListAppointments: errors.New("backend down")},
	}
	provider := &stubProvider{outputs: []string{
		`{"action": "tool", "tool_name": "list_appointments_tool", "args": {"query": {"for_date": "2025-08-14"}}}`,
	}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "appointments on 2025-08-14", "s1", UserDoctor)
	assert.Equal(t, "Error executing tool list_appointments_tool: backend down", reply)
}

func TestEngine_NonDataQueryPassesThroughModelText(t *testing.T) {
	backend := &fakeBackend{}
	provider := &stubProvider{outputs: []string{"Hello! How can I help you with your appointments?"}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "Hi there", "s1", UserPatient)
	assert.Equal(t, "Hello! How can I help you with your appointments?", reply)
	assert.Empty(t, backend.calls)
}

func TestEngine_FinalAnswerPlan(t *testing.T) {
	backend := &fakeBackend{}
	provider := &stubProvider{outputs: []string{`{"final": "The clinic is open weekdays 9 to 5."}`}}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "when are you open?", "s1", UserPatient)
	assert.Equal(t, "The clinic is open weekdays 9 to 5.", reply)
}

func TestEngine_ModelFailureOnChitchat(t *testing.T) {
	backend := &fakeBackend{}
	provider := &stubProvider{err: errors.New("rate limited")}
	engine, _ := newTestEngine(t, provider, backend)

	reply := engine.ProcessMessage(context.Background(), "Hi there", "s1", UserPatient)
	assert.Equal(t, modelFailureReply, reply)
}

func TestEngine_HistoryFlowsIntoModelRequest(t *testing.T) {
	backend := &fakeBackend{}
	provider := &stubProvider{outputs: []string{"First reply.", "Second reply."}}
	engine, _ := newTestEngine(t, provider, backend)

	engine.ProcessMessage(context.Background(), "first message", "s1", UserPatient)
	engine.ProcessMessage(context.Background(), "second message", "s1", UserPatient)

	require.Len(t, provider.requests, 2)
	second := provider.requests[1]
	require.Len(t, second.History, 2)
	assert.Equal(t, "first message", second.History[0].Content)
	assert.Equal(t, "First reply.", second.History[1].Content)
	assert.Contains(t, second.System, "2025-08-14")
}
