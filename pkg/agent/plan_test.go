package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlan_WholeObject(t *testing.T) {
	plan := ExtractPlan(`{"action": "tool", "tool_name": "appointment_stats_tool", "args": {"query": {"for_date": "2025-08-14"}}}`)
	require.NotNil(t, plan)
	assert.Equal(t, PlanToolCall, plan.Kind)
	assert.Equal(t, "appointment_stats_tool", plan.ToolName)
}

func TestExtractPlan_EmbeddedInProse(t *testing.T) {
	text := `Sure, let me check that for you.
{"action": "tool", "tool_name": "list_appointments_tool", "args": {"query": {"for_date": "2025-08-15"}}}
I hope that helps!`

	plan := ExtractPlan(text)
	require.NotNil(t, plan)
	assert.Equal(t, PlanToolCall, plan.Kind)
	assert.Equal(t, "list_appointments_tool", plan.ToolName)

	args, ok := plan.RawArgs.(map[string]any)
	require.True(t, ok)
	query := args["query"].(map[string]any)
	assert.Equal(t, "2025-08-15", query["for_date"])
}

func TestExtractPlan_FinalAnswer(t *testing.T) {
	plan := ExtractPlan(`{"final": "You have no appointments today."}`)
	require.NotNil(t, plan)
	assert.Equal(t, PlanFinal, plan.Kind)
	assert.Equal(t, "You have no appointments today.", plan.Final)
}

func TestExtractPlan_NonStringFinal(t *testing.T) {
	plan := ExtractPlan(`{"final": {"count": 3}}`)
	require.NotNil(t, plan)
	assert.Equal(t, PlanFinal, plan.Kind)
	assert.JSONEq(t, `{"count": 3}`, plan.Final)
}

func TestExtractPlan_Rejections(t *testing.T) {
	cases := map[string]string{
		"no brace":            "plain prose with no JSON at all",
		"empty":               "   ",
		"unbalanced":          `prefix {"action": "tool", "tool_name": "x"`,
		"array not object":    `[1, 2, 3]`,
		"neither shape":       `{"hello": "world"}`,
		"tool without name":   `{"action": "tool", "args": {}}`,
		"non-json in braces":  `look at {this} text`,
		"unknown action verb": `{"action": "dance", "tool_name": "x"}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, ExtractPlan(input))
		})
	}
}

func TestExtractPlan_ScanLimit(t *testing.T) {
	long := "{" + strings.Repeat("x", planScanLimit+100)
	assert.Nil(t, ExtractPlan(long))
}

func TestExtractPlan_NestedBraces(t *testing.T) {
	text := `prefix {"action": "tool", "tool_name": "book_appointment_tool", "args": {"data": {"doctor_name": "Dr. Ahuja"}}} suffix`
	plan := ExtractPlan(text)
	require.NotNil(t, plan)
	assert.Equal(t, "book_appointment_tool", plan.ToolName)
}
