package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/assigny/pkg/scheduling"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestFormatResult_MalformedContentPassesThrough(t *testing.T) {
	assert.Equal(t, "not json at all", FormatResult(scheduling.ToolAppointmentStats, "not json at all"))
}

func TestFormatResult_ErrorFieldVerbatim(t *testing.T) {
	content := marshal(t, map[string]any{"error": "Doctor not found"})
	assert.Equal(t, "Doctor not found", FormatResult(scheduling.ToolCheckAvailability, content))
	assert.Equal(t, "Doctor not found", FormatResult(scheduling.ToolBookAppointment, content))
}

func TestFormatResult_Availability(t *testing.T) {
	t.Run("eight slots shows six plus more", func(t *testing.T) {
		slots := make([]string, 8)
		for i := range slots {
			slots[i] = fmt.Sprintf("2025-08-14T%02d:00Z-2025-08-14T%02d:30Z", 9+i, 9+i)
		}
		content := marshal(t, map[string]any{"doctor_name": "Dr. Ahuja", "available_slots": slots})

		text := FormatResult(scheduling.ToolCheckAvailability, content)
		lines := strings.Split(text, "\n")

		// Header, six slot lines, the truncation marker, the question.
		require.Len(t, lines, 9)
		assert.Equal(t, "2025-08-14 09:00-09:30", lines[1])
		assert.Equal(t, "...and 2 more", lines[7])
		assert.Contains(t, lines[8], "?")
	})

	t.Run("empty list uses fixed message", func(t *testing.T) {
		content := marshal(t, map[string]any{"doctor_name": "Dr. Ahuja", "available_slots": []string{}})
		assert.Equal(t, noSlotsMessage, FormatResult(scheduling.ToolCheckAvailability, content))
	})
}

func TestFormatResult_Stats(t *testing.T) {
	t.Run("plain counts", func(t *testing.T) {
		content := marshal(t, map[string]any{"total_appointments": 5, "completed": 2, "canceled": 1})
		assert.Equal(t, "Total: 5; Completed: 2; Canceled: 1", FormatResult(scheduling.ToolAppointmentStats, content))
	})

	t.Run("by reason", func(t *testing.T) {
		content := marshal(t, map[string]any{
			"total_appointments": 3, "completed": 0, "canceled": 0,
			"by_condition": map[string]int{"fever": 2},
		})
		assert.Equal(t, "Total: 3; Completed: 0; Canceled: 0; By reason: fever:2",
			FormatResult(scheduling.ToolAppointmentStats, content))
	})

	t.Run("slack sent flag wins", func(t *testing.T) {
		content := marshal(t, map[string]any{"total_appointments": 5, "slack_sent": true})
		assert.Equal(t, slackSentReply, FormatResult(scheduling.ToolAppointmentStats, content))
	})
}

func TestFormatResult_AppointmentList(t *testing.T) {
	t.Run("caps at ten lines", func(t *testing.T) {
		items := make([]map[string]any, 12)
		for i := range items {
			items[i] = map[string]any{
				"id": i + 1, "doctor_name": "Dr. Ahuja", "patient_name": "John Doe",
				"start_at": "2025-08-14T09:00:00Z", "end_at": "2025-08-14T09:30:00Z",
				"description": "checkup",
			}
		}
		text := FormatResult(scheduling.ToolListAppointments, marshal(t, map[string]any{"appointments": items}))
		lines := strings.Split(text, "\n")
		require.Len(t, lines, 11)
		assert.Contains(t, lines[0], "Dr. Ahuja - John Doe")
		assert.Contains(t, lines[0], "[#1]")
		assert.Equal(t, "...and 2 more", lines[10])
	})

	t.Run("empty", func(t *testing.T) {
		text := FormatResult(scheduling.ToolListAppointments, marshal(t, map[string]any{"appointments": []any{}}))
		assert.Equal(t, "No appointments found.", text)
	})
}

func TestFormatResult_Patients(t *testing.T) {
	content := marshal(t, map[string]any{"patients": []map[string]any{
		{"name": "John Doe", "email": "john@example.com", "appointment_id": 7,
			"start_at": "2025-08-14T09:00:00Z", "end_at": "2025-08-14T09:30:00Z"},
	}})
	text := FormatResult(scheduling.ToolPatientsByReason, content)
	assert.Equal(t, "John Doe (john@example.com) - appt #7 2025-08-14 09:00-09:30", text)

	empty := FormatResult(scheduling.ToolPatientsByReason, marshal(t, map[string]any{"patients": []any{}}))
	assert.Equal(t, "No matching patients found.", empty)
}

func TestFormatResult_BookingAndRegistration(t *testing.T) {
	booked := marshal(t, map[string]any{"message": "Appointment booked successfully with Dr. Ahuja on 2025-09-01 09:00 for John Doe.", "appointment_id": 7})
	assert.Contains(t, FormatResult(scheduling.ToolBookAppointment, booked), "booked successfully")

	registered := marshal(t, map[string]any{"message": "Patient registered successfully", "patient_id": 2})
	assert.Equal(t, "Patient registered successfully", FormatResult(scheduling.ToolRegisterPatient, registered))
}

func TestFormatResult_ResolveDateSentinel(t *testing.T) {
	content := marshal(t, map[string]any{"date": "2025-08-15"})
	assert.Equal(t, "date resolved to 2025-08-15", FormatResult(scheduling.ToolResolveDate, content))
}

func TestFormatResult_UnknownToolPassesThrough(t *testing.T) {
	content := marshal(t, map[string]any{"anything": 1})
	assert.Equal(t, content, FormatResult("mystery_tool", content))
}
