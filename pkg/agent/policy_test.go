package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/assigny/pkg/scheduling"
)

var policyNow = time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

func TestIsDataQuery(t *testing.T) {
	dataQueries := []string{
		"How many appointments do we have today?",
		"list appointments tomorrow",
		"Show me the patients with fever today",
		"Is Dr. Ahuja available on friday?",
		"Send a Slack summary for today",
		"any free slots tomorrow morning?",
	}
	for _, msg := range dataQueries {
		assert.True(t, IsDataQuery(msg), msg)
	}

	chitchat := []string{
		"Hello there!",
		"What are your opening hours?",
		"Thanks, that's all.",
	}
	for _, msg := range chitchat {
		assert.False(t, IsDataQuery(msg), msg)
	}
}

func TestForcedCall_Precedence(t *testing.T) {
	t.Run("count beats list", func(t *testing.T) {
		name, args := ForcedCall("how many appointments are on the list today?", policyNow)
		assert.Equal(t, scheduling.ToolAppointmentStats, name)
		query := args["query"].(map[string]any)
		assert.Equal(t, "2025-08-14", query["for_date"])
		assert.Nil(t, query["notify"])
	})

	t.Run("list", func(t *testing.T) {
		name, args := ForcedCall("list appointments tomorrow", policyNow)
		assert.Equal(t, scheduling.ToolListAppointments, name)
		assert.Equal(t, "2025-08-15", args["query"].(map[string]any)["for_date"])
	})

	t.Run("patient search captures condition", func(t *testing.T) {
		name, args := ForcedCall("which patients with migraine are coming today?", policyNow)
		assert.Equal(t, scheduling.ToolPatientsByReason, name)
		assert.Equal(t, "migraine", args["query"].(map[string]any)["reason_like"])
	})

	t.Run("availability captures doctor", func(t *testing.T) {
		name, args := ForcedCall("is dr. smith available on 2025-09-01?", policyNow)
		assert.Equal(t, scheduling.ToolCheckAvailability, name)
		query := args["query"].(map[string]any)
		assert.Equal(t, "Dr. Smith", query["doctor_name"])
		assert.Equal(t, "2025-09-01", query["date"])
	})

	t.Run("availability default doctor", func(t *testing.T) {
		_, args := ForcedCall("any free slots tomorrow?", policyNow)
		assert.Equal(t, "Dr. Ahuja", args["query"].(map[string]any)["doctor_name"])
	})

	t.Run("slack summary", func(t *testing.T) {
		name, args := ForcedCall("Send a Slack summary for today", policyNow)
		assert.Equal(t, scheduling.ToolAppointmentStats, name)
		query := args["query"].(map[string]any)
		assert.Equal(t, "2025-08-14", query["for_date"])
		assert.Equal(t, true, query["notify"])
	})

	t.Run("fallback is plain stats", func(t *testing.T) {
		name, args := ForcedCall("something about yesterday", policyNow)
		require.Equal(t, scheduling.ToolAppointmentStats, name)
		assert.Equal(t, "2025-08-13", args["query"].(map[string]any)["for_date"])
	})
}

func TestExtractDate_LiteralWins(t *testing.T) {
	_, args := ForcedCall("list appointments tomorrow or on 2025-12-24", policyNow)
	assert.Equal(t, "2025-12-24", args["query"].(map[string]any)["for_date"])
}

func TestExtractDoctorName(t *testing.T) {
	assert.Equal(t, "Dr. Ahuja", ExtractDoctorName("book me with dr. ahuja please"))
	assert.Equal(t, "Dr. Smith", ExtractDoctorName("Is DR Smith free?"))
	assert.Equal(t, "", ExtractDoctorName("no doctor mentioned"))
}
