package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/harun/assigny/pkg/scheduling"
)

// Intent patterns, in precedence order. A message matching any of them is a
// data query: the engine must answer it through a tool call, never from the
// model's free text.
var (
	countPattern        = regexp.MustCompile(`(?i)\b(how many|count|number of)\b.*\bappointments?\b`)
	listPattern         = regexp.MustCompile(`(?i)\b(list|show|display)\b.*\bappointments?\b`)
	patientsPattern     = regexp.MustCompile(`(?i)\bpatients?\b.*\b(?:with|having)\s+([a-z]+)`)
	availabilityPattern = regexp.MustCompile(`(?i)\b(availab|free slot|open slot|slots?\b)`)
	slackPattern        = regexp.MustCompile(`(?i)\bslack\b`)
)

var (
	isoDatePattern    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	doctorNamePattern = regexp.MustCompile(`(?i)\bdr\.?\s+([a-z]+)`)
)

// IsDataQuery reports whether the message matches any data-query intent.
func IsDataQuery(message string) bool {
	return countPattern.MatchString(message) ||
		listPattern.MatchString(message) ||
		patientsPattern.MatchString(message) ||
		availabilityPattern.MatchString(message) ||
		slackPattern.MatchString(message)
}

// ForcedCall synthesizes the one tool call for a data query the model failed
// to plan. Precedence: count, list, patient search, availability, Slack
// summary, then a plain stats call for the resolved date.
func ForcedCall(message string, now time.Time) (string, map[string]any) {
	date := extractDate(message, now)

	switch {
	case countPattern.MatchString(message):
		return scheduling.ToolAppointmentStats, map[string]any{
			"query": map[string]any{"for_date": date},
		}

	case listPattern.MatchString(message):
		return scheduling.ToolListAppointments, map[string]any{
			"query": map[string]any{"for_date": date},
		}

	case patientsPattern.MatchString(message):
		condition := "fever"
		if m := patientsPattern.FindStringSubmatch(message); m != nil {
			if captured := strings.TrimSpace(m[1]); captured != "" {
				condition = captured
			}
		}
		return scheduling.ToolPatientsByReason, map[string]any{
			"query": map[string]any{"for_date": date, "reason_like": condition},
		}

	case availabilityPattern.MatchString(message):
		doctor := ExtractDoctorName(message)
		if doctor == "" {
			doctor = "Dr. Ahuja"
		}
		return scheduling.ToolCheckAvailability, map[string]any{
			"query": map[string]any{"doctor_name": doctor, "date": date},
		}

	case slackPattern.MatchString(message):
		return scheduling.ToolAppointmentStats, map[string]any{
			"query": map[string]any{"for_date": date, "notify": true},
		}

	default:
		return scheduling.ToolAppointmentStats, map[string]any{
			"query": map[string]any{"for_date": date},
		}
	}
}

// extractDate pulls the date cue out of a message: an ISO literal wins, then
// the relative keywords, then the current date.
func extractDate(message string, now time.Time) string {
	if m := isoDatePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}

	today := now.UTC().Truncate(24 * time.Hour)
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(scheduling.DateLayout)
	case strings.Contains(lower, "yesterday"):
		return today.AddDate(0, 0, -1).Format(scheduling.DateLayout)
	default:
		return today.Format(scheduling.DateLayout)
	}
}

// ExtractDoctorName finds a "Dr. <name>" mention and returns it title-cased,
// or "" if the message names no doctor.
func ExtractDoctorName(message string) string {
	m := doctorNamePattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	name := strings.ToLower(m[1])
	return "Dr. " + strings.ToUpper(name[:1]) + name[1:]
}
