package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harun/assigny/pkg/scheduling"
)

func TestNormalize_ResolveDate(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"text key", map[string]any{"text": "tomorrow"}, "tomorrow"},
		{"date_string key", map[string]any{"date_string": "friday"}, "friday"},
		{"date key", map[string]any{"date": "next monday"}, "next monday"},
		{"query key", map[string]any{"query": "today"}, "today"},
		{"bare string", "yesterday", "yesterday"},
		{"number coerced", 42, "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(scheduling.ToolResolveDate, tc.in)
			assert.Equal(t, map[string]any{"text": tc.want}, got)
		})
	}
}

func TestNormalize_SQLRead(t *testing.T) {
	got := Normalize(scheduling.ToolSQLRead, map[string]any{
		"query": "SELECT 1", "row_limit": 5.0,
	})
	assert.Equal(t, map[string]any{"sql": "SELECT 1", "row_limit": 5.0}, got)

	got = Normalize(scheduling.ToolSQLRead, "SELECT name FROM doctors")
	assert.Equal(t, map[string]any{"sql": "SELECT name FROM doctors"}, got)
}

func TestNormalize_QueryTools(t *testing.T) {
	t.Run("wraps bare map", func(t *testing.T) {
		got := Normalize(scheduling.ToolListAppointments, map[string]any{"for_date": "2025-08-14"})
		assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-14"}}, got)
	})

	t.Run("keeps wrapped map", func(t *testing.T) {
		in := map[string]any{"query": map[string]any{"for_date": "2025-08-14"}}
		assert.Equal(t, in, Normalize(scheduling.ToolListAppointments, in))
	})

	t.Run("stats remaps date to for_date", func(t *testing.T) {
		got := Normalize(scheduling.ToolAppointmentStats, map[string]any{"date": "2025-08-14", "notify": true})
		assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-14", "notify": true}}, got)
	})

	t.Run("patients remaps condition_like", func(t *testing.T) {
		got := Normalize(scheduling.ToolPatientsByReason, map[string]any{"condition_like": "fever"})
		assert.Equal(t, map[string]any{"query": map[string]any{"reason_like": "fever"}}, got)
	})

	t.Run("non-map becomes raw", func(t *testing.T) {
		got := Normalize(scheduling.ToolCheckAvailability, "anything")
		assert.Equal(t, map[string]any{"query": map[string]any{"raw": "anything"}}, got)
	})

	t.Run("alias dropped without mutating input", func(t *testing.T) {
		in := map[string]any{"date": "2025-08-01", "for_date": "2025-08-14"}
		got := Normalize(scheduling.ToolAppointmentStats, in)
		assert.Equal(t, map[string]any{"query": map[string]any{"for_date": "2025-08-14"}}, got)
		assert.Equal(t, map[string]any{"date": "2025-08-01", "for_date": "2025-08-14"}, in)
	})
}

func TestNormalize_DataTools(t *testing.T) {
	t.Run("wraps bare map", func(t *testing.T) {
		got := Normalize(scheduling.ToolBookAppointment, map[string]any{"doctor_name": "Dr. Ahuja"})
		assert.Equal(t, map[string]any{"data": map[string]any{"doctor_name": "Dr. Ahuja"}}, got)
	})

	t.Run("keeps wrapped map", func(t *testing.T) {
		in := map[string]any{"data": map[string]any{"name": "Jane"}}
		assert.Equal(t, in, Normalize(scheduling.ToolRegisterPatient, in))
	})
}

func TestNormalize_UnknownTool(t *testing.T) {
	in := map[string]any{"whatever": 1}
	assert.Equal(t, in, Normalize("mystery_tool", in))

	got := Normalize("mystery_tool", []any{"not", "a", "map"})
	assert.Equal(t, map[string]any{"query": map[string]any{"raw": `["not","a","map"]`}}, got)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := map[string]any{
		scheduling.ToolResolveDate:        map[string]any{"date_string": "friday"},
		scheduling.ToolSQLRead:            map[string]any{"query": "SELECT 1"},
		scheduling.ToolCheckAvailability:  map[string]any{"doctor_name": "Dr. Ahuja"},
		scheduling.ToolAppointmentStats:   map[string]any{"date": "2025-08-14"},
		scheduling.ToolListAppointments:   "tomorrow",
		scheduling.ToolPatientsByReason:   map[string]any{"condition_like": "flu"},
		scheduling.ToolBookAppointment:    map[string]any{"doctor_name": "Dr. Ahuja"},
		scheduling.ToolRegisterPatient:    map[string]any{"name": "Jane"},
		scheduling.ToolCancelAppointments: 99,
		"mystery_tool":                    map[string]any{"k": "v"},
	}
	for tool, in := range inputs {
		t.Run(tool, func(t *testing.T) {
			once := Normalize(tool, in)
			twice := Normalize(tool, any(once))
			assert.Equal(t, once, twice)
		})
	}
}
