package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harun/assigny/pkg/scheduling"
)

// Formatter limits and fixed phrases.
const (
	maxSlotLines = 6
	maxListLines = 10

	noSlotsMessage = "No available slots were found in the next 3 weeks. Would you like me to check a different doctor or a later period?"
	slackSentReply = "Done! I've sent the appointment summary to Slack."

	// dateResolvedPrefix is matched literally by the chaining coordinator;
	// changing it disables the availability follow-up.
	dateResolvedPrefix = "date resolved to "
)

const displayTimeLayout = "2006-01-02 15:04"

// FormatResult renders a tool's JSON content as reply text. Malformed or
// non-JSON content, and any backend-provided error field, pass through
// verbatim.
func FormatResult(toolName, content string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return content
	}

	if errText, ok := payload["error"].(string); ok && errText != "" {
		return errText
	}

	switch toolName {
	case scheduling.ToolResolveDate:
		if date, ok := payload["date"].(string); ok {
			return dateResolvedPrefix + date
		}
		return content

	case scheduling.ToolCheckAvailability:
		return formatAvailability(payload)

	case scheduling.ToolAppointmentStats:
		return formatStats(payload)

	case scheduling.ToolListAppointments:
		return formatAppointments(payload)

	case scheduling.ToolPatientsByReason:
		return formatPatients(payload)

	case scheduling.ToolBookAppointment, scheduling.ToolRegisterPatient:
		if msg, ok := payload["message"].(string); ok && msg != "" {
			return msg
		}
		return "Done."

	case scheduling.ToolCancelAppointments:
		return formatCancellation(payload)

	case scheduling.ToolSQLRead:
		return formatRows(payload)

	default:
		return content
	}
}

func formatAvailability(payload map[string]any) string {
	doctor, _ := payload["doctor_name"].(string)
	rawSlots, _ := payload["available_slots"].([]any)
	if len(rawSlots) == 0 {
		return noSlotsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the next available slots for %s:\n", doctor)
	shown := 0
	for _, raw := range rawSlots {
		if shown >= maxSlotLines {
			break
		}
		wire, _ := raw.(string)
		slot, err := scheduling.ParseSlot(wire)
		if err != nil {
			b.WriteString(wire + "\n")
		} else {
			fmt.Fprintf(&b, "%s-%s\n", slot.Start.Format(displayTimeLayout), slot.End.Format("15:04"))
		}
		shown++
	}
	if extra := len(rawSlots) - shown; extra > 0 {
		fmt.Fprintf(&b, "...and %d more\n", extra)
	}
	b.WriteString("Which one works for you?")
	return b.String()
}

func formatStats(payload map[string]any) string {
	if sent, ok := payload["slack_sent"].(bool); ok && sent {
		return slackSentReply
	}

	total := intFrom(payload["total_appointments"])
	completed := intFrom(payload["completed"])
	canceled := intFrom(payload["canceled"])

	text := fmt.Sprintf("Total: %d; Completed: %d; Canceled: %d", total, completed, canceled)

	if byCondition, ok := payload["by_condition"].(map[string]any); ok && len(byCondition) > 0 {
		keys := make([]string, 0, len(byCondition))
		for k := range byCondition {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%d", k, intFrom(byCondition[k])))
		}
		text += "; By reason: " + strings.Join(parts, ", ")
	}
	return text
}

func formatAppointments(payload map[string]any) string {
	items, _ := payload["appointments"].([]any)
	if len(items) == 0 {
		return "No appointments found."
	}

	var b strings.Builder
	shown := 0
	for _, raw := range items {
		if shown >= maxListLines {
			break
		}
		item, _ := raw.(map[string]any)
		doctor, _ := item["doctor_name"].(string)
		patient, _ := item["patient_name"].(string)
		reason, _ := item["description"].(string)
		if reason == "" {
			reason = "general"
		}
		fmt.Fprintf(&b, "%s - %s (%s-%s) - %s [#%d]\n",
			doctor, patient,
			displayTimestamp(item["start_at"]), displayClock(item["end_at"]),
			reason, intFrom(item["id"]))
		shown++
	}
	if extra := len(items) - shown; extra > 0 {
		fmt.Fprintf(&b, "...and %d more", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPatients(payload map[string]any) string {
	items, _ := payload["patients"].([]any)
	if len(items) == 0 {
		return "No matching patients found."
	}

	var b strings.Builder
	shown := 0
	for _, raw := range items {
		if shown >= maxListLines {
			break
		}
		item, _ := raw.(map[string]any)
		name, _ := item["name"].(string)
		email, _ := item["email"].(string)
		fmt.Fprintf(&b, "%s (%s) - appt #%d %s-%s\n", name, email,
			intFrom(item["appointment_id"]), displayTimestamp(item["start_at"]), displayClock(item["end_at"]))
		shown++
	}
	if extra := len(items) - shown; extra > 0 {
		fmt.Fprintf(&b, "...and %d more", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCancellation(payload map[string]any) string {
	canceled := intFrom(payload["canceled"])
	forDate, _ := payload["for_date"].(string)
	if doctor, ok := payload["doctor"].(string); ok && doctor != "" {
		return fmt.Sprintf("Canceled %d appointment(s) for %s on %s.", canceled, doctor, forDate)
	}
	return fmt.Sprintf("Canceled %d appointment(s) on %s.", canceled, forDate)
}

func formatRows(payload map[string]any) string {
	rows, _ := payload["rows"].([]any)
	if len(rows) == 0 {
		return "The query returned no rows."
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return fmt.Sprintf("Found %d row(s):\n%s", len(rows), data)
}

func displayTimestamp(v any) string {
	s, _ := v.(string)
	t, err := scheduling.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Format(displayTimeLayout)
}

func displayClock(v any) string {
	s, _ := v.(string)
	t, err := scheduling.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Format("15:04")
}

func intFrom(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}
