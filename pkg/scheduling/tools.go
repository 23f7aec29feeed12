package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/assigny/pkg/notify"
	"github.com/harun/assigny/pkg/toolbackend"
)

// Tool names exported by this package's backend.
const (
	ToolResolveDate        = "resolve_date_tool"
	ToolCheckAvailability  = "check_doctor_availability"
	ToolAppointmentStats   = "appointment_stats_tool"
	ToolListAppointments   = "list_appointments_tool"
	ToolPatientsByReason   = "patients_by_reason_tool"
	ToolBookAppointment    = "book_appointment_tool"
	ToolRegisterPatient    = "register_patient_tool"
	ToolCancelAppointments = "cancel_appointments_by_date_tool"
	ToolSQLRead            = "sql_read_tool"
)

// Toolset binds the scheduling store and outbound notifications to the tool
// backend. The clock is injectable so relative dates are testable.
type Toolset struct {
	store    *Store
	notifier *notify.Notifier
	now      func() time.Time
}

// NewToolset creates a toolset. A nil clock means time.Now.
func NewToolset(store *Store, notifier *notify.Notifier, now func() time.Time) *Toolset {
	if now == nil {
		now = time.Now
	}
	return &Toolset{store: store, notifier: notifier, now: now}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{"type": "object"}
	if props != nil {
		schema["properties"] = props
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var querySchema = objectSchema([]string{"query"}, map[string]any{
	"query": map[string]any{"type": "object"},
})

var dataSchema = objectSchema([]string{"data"}, map[string]any{
	"data": map[string]any{"type": "object"},
})

// Register wires every scheduling tool into the registry.
func (t *Toolset) Register(reg *toolbackend.Registry) error {
	defs := []toolbackend.Definition{
		{
			Name:        ToolResolveDate,
			Description: "Resolves a natural-language date expression like 'tomorrow' or 'next friday' to an ISO date.",
			InputSchema: objectSchema([]string{"text"}, map[string]any{
				"text": map[string]any{"type": "string"},
			}),
			Handler: t.resolveDate,
		},
		{
			Name:        ToolCheckAvailability,
			Description: "Finds a doctor's open 30-minute appointment slots on or after a date, optionally filtered by part of day.",
			InputSchema: querySchema,
			Handler:     t.checkAvailability,
		},
		{
			Name:        ToolAppointmentStats,
			Description: "Summarizes appointments for a day: totals, completed and canceled counts, optionally by condition, with optional Slack notification.",
			InputSchema: querySchema,
			Handler:     t.appointmentStats,
		},
		{
			Name:        ToolListAppointments,
			Description: "Lists appointments for a day, optionally filtered by doctor, patient email or start time.",
			InputSchema: querySchema,
			Handler:     t.listAppointments,
		},
		{
			Name:        ToolPatientsByReason,
			Description: "Lists patients with an appointment on a day whose visit reason or condition matches a term.",
			InputSchema: querySchema,
			Handler:     t.patientsByReason,
		},
		{
			Name:        ToolBookAppointment,
			Description: "Books an appointment for a patient with a doctor, creating a calendar event and sending a confirmation email.",
			InputSchema: dataSchema,
			Handler:     t.bookAppointment,
		},
		{
			Name:        ToolRegisterPatient,
			Description: "Registers a new patient by name and email.",
			InputSchema: dataSchema,
			Handler:     t.registerPatient,
		},
		{
			Name:        ToolCancelAppointments,
			Description: "Cancels all appointments on a date, optionally for one doctor.",
			InputSchema: dataSchema,
			Handler:     t.cancelAppointments,
		},
		{
			Name:        ToolSQLRead,
			Description: "Runs a read-only SELECT against the scheduling database and returns the rows.",
			InputSchema: objectSchema([]string{"sql"}, map[string]any{
				"sql":       map[string]any{"type": "string"},
				"params":    map[string]any{"type": "array"},
				"row_limit": map[string]any{"type": "number"},
			}),
			Handler: t.sqlRead,
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

func domainError(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

func subMap(args map[string]any, key string) map[string]any {
	if m, ok := args[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func strField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// dateOrToday parses m[key] as an ISO date, defaulting to the current day.
func (t *Toolset) dateOrToday(m map[string]any, key string) (time.Time, error) {
	raw := strField(m, key)
	if raw == "" {
		return t.now().UTC().Truncate(24 * time.Hour), nil
	}
	return ParseDate(raw)
}

// findDoctor resolves an optional doctor_name field. A missing name returns
// (nil, "") with no error; an unknown name is the caller's domain error.
func (t *Toolset) findDoctor(ctx context.Context, m map[string]any) (*Doctor, string, error) {
	name := strField(m, "doctor_name")
	if name == "" {
		return nil, "", nil
	}
	doctor, err := t.store.DoctorByName(ctx, name)
	if err != nil {
		return nil, name, err
	}
	return doctor, name, nil
}

func (t *Toolset) resolveDate(ctx context.Context, args map[string]any) (map[string]any, error) {
	text := strField(args, "text")
	resolved, err := ResolveDateText(text, t.now())
	if err != nil {
		return domainError("could not resolve %q to a date", text), nil
	}
	return map[string]any{"date": resolved}, nil
}

func (t *Toolset) checkAvailability(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := subMap(args, "query")

	doctor, name, err := t.findDoctor(ctx, query)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return domainError("doctor_name is required"), nil
	}
	if doctor == nil {
		return domainError("Doctor not found"), nil
	}

	from, err := t.dateOrToday(query, "date")
	if err != nil {
		return domainError("%s", err), nil
	}

	slots, err := t.store.FindSlots(ctx, doctor.ID, SlotFilter{
		FromDate:  from,
		PartOfDay: strField(query, "part_of_day"),
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"doctor_id":       doctor.ID,
		"doctor_name":     doctor.Name,
		"available_slots": SlotStrings(slots),
	}, nil
}

func (t *Toolset) appointmentStats(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := subMap(args, "query")

	day, err := t.dateOrToday(query, "for_date")
	if err != nil {
		return domainError("%s", err), nil
	}

	doctor, name, err := t.findDoctor(ctx, query)
	if err != nil {
		return nil, err
	}
	if name != "" && doctor == nil {
		return domainError("Doctor not found"), nil
	}
	var doctorID int64
	if doctor != nil {
		doctorID = doctor.ID
	}

	stats, err := t.store.DailyStats(ctx, day, doctorID, strField(query, "condition_like"))
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"for_date":           day.Format(DateLayout),
		"total_appointments": stats.TotalAppointments,
		"completed":          stats.Completed,
		"canceled":           stats.Canceled,
	}
	if stats.ByCondition != nil {
		out["by_condition"] = stats.ByCondition
	}

	if boolField(query, "notify") {
		sent, err := t.notifier.PostSlack(ctx, strField(query, "notify_channel"), formatStatsMessage(day, stats))
		if err != nil {
			return nil, fmt.Errorf("failed to post stats to slack: %w", err)
		}
		if sent {
			out["slack_sent"] = true
		}
	}
	return out, nil
}

func formatStatsMessage(day time.Time, stats Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment summary for %s\n", day.Format(DateLayout))
	fmt.Fprintf(&b, "Total: %d; Completed: %d; Canceled: %d", stats.TotalAppointments, stats.Completed, stats.Canceled)
	for condition, count := range stats.ByCondition {
		fmt.Fprintf(&b, "\n%s: %d", condition, count)
	}
	return b.String()
}

func (t *Toolset) listAppointments(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := subMap(args, "query")

	day, err := t.dateOrToday(query, "for_date")
	if err != nil {
		return domainError("%s", err), nil
	}

	doctor, name, err := t.findDoctor(ctx, query)
	if err != nil {
		return nil, err
	}
	if name != "" && doctor == nil {
		return domainError("Doctor not found"), nil
	}

	filter := ListFilter{
		PatientEmail: strField(query, "patient_email"),
		AtTime:       strField(query, "at_time"),
	}
	if doctor != nil {
		filter.DoctorID = doctor.ID
	}

	details, err := t.store.AppointmentsOn(ctx, day, filter)
	if err != nil {
		return nil, err
	}

	appts := make([]map[string]any, 0, len(details))
	for _, d := range details {
		appts = append(appts, map[string]any{
			"id":           d.ID,
			"doctor_name":  d.DoctorName,
			"patient_name": d.PatientName,
			"start_at":     d.StartAt.Format(time.RFC3339),
			"end_at":       d.EndAt.Format(time.RFC3339),
			"status":       d.Status,
			"description":  d.Description,
		})
	}
	return map[string]any{"appointments": appts, "for_date": day.Format(DateLayout)}, nil
}

func (t *Toolset) patientsByReason(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := subMap(args, "query")

	day, err := t.dateOrToday(query, "for_date")
	if err != nil {
		return domainError("%s", err), nil
	}

	reason := strField(query, "reason_like")
	if reason == "" {
		return domainError("reason_like is required"), nil
	}

	doctor, name, err := t.findDoctor(ctx, query)
	if err != nil {
		return nil, err
	}
	if name != "" && doctor == nil {
		return domainError("Doctor not found"), nil
	}
	var doctorID int64
	if doctor != nil {
		doctorID = doctor.ID
	}

	matches, err := t.store.PatientsByReason(ctx, day, reason, doctorID)
	if err != nil {
		return nil, err
	}

	patients := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		patients = append(patients, map[string]any{
			"name":           m.Name,
			"email":          m.Email,
			"appointment_id": m.AppointmentID,
			"start_at":       m.StartAt.Format(time.RFC3339),
			"end_at":         m.EndAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"patients": patients, "for_date": day.Format(DateLayout)}, nil
}

func (t *Toolset) bookAppointment(ctx context.Context, args map[string]any) (map[string]any, error) {
	data := subMap(args, "data")

	doctor, name, err := t.findDoctor(ctx, data)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return domainError("doctor_name is required"), nil
	}
	if doctor == nil {
		return domainError("Doctor not found"), nil
	}

	email := strField(data, "patient_email")
	if email == "" {
		return domainError("patient_email is required"), nil
	}
	patient, err := t.store.PatientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return domainError("Patient not found"), nil
	}

	start, err := ParseTimestamp(strField(data, "start_at"))
	if err != nil {
		return domainError("%s", err), nil
	}
	end, err := ParseTimestamp(strField(data, "end_at"))
	if err != nil {
		return domainError("%s", err), nil
	}

	description := strField(data, "description")
	appt, err := t.store.BookAppointment(ctx, doctor, patient, start, end, description)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return domainError("Requested time overlaps with existing appointment"), nil
		}
		return nil, err
	}

	// The booking is committed; side effects that fail only lose their
	// notification, they never undo the appointment.
	summary := fmt.Sprintf("Appointment: %s with %s", patient.Name, doctor.Name)
	eventID, err := t.notifier.CreateCalendarEvent(ctx, summary, description, appt.StartAt, appt.EndAt)
	if err != nil {
		log.Warn().Err(err).Int64("appointment_id", appt.ID).Msg("Calendar event creation failed")
		eventID = ""
	}

	when := appt.StartAt.Format("2006-01-02 15:04")
	body := fmt.Sprintf("Hi %s,\n\nYour appointment with %s on %s is confirmed.\n", patient.Name, doctor.Name, when)
	if err := t.notifier.SendEmail(patient.Email, "Appointment confirmation", body); err != nil {
		log.Warn().Err(err).Str("patient_email", patient.Email).Msg("Confirmation email failed")
	}

	return map[string]any{
		"appointment_id":    appt.ID,
		"calendar_event_id": eventID,
		"message": fmt.Sprintf("Appointment booked successfully with %s on %s for %s.",
			doctor.Name, when, patient.Name),
	}, nil
}

func (t *Toolset) registerPatient(ctx context.Context, args map[string]any) (map[string]any, error) {
	data := subMap(args, "data")

	name := strField(data, "name")
	email := strField(data, "email")
	if name == "" || email == "" {
		return domainError("name and email are required"), nil
	}

	patient, err := t.store.CreatePatient(ctx, name, email, strField(data, "primary_condition"))
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return domainError("%s", err), nil
		}
		return nil, err
	}

	return map[string]any{
		"message":    "Patient registered successfully",
		"patient_id": patient.ID,
	}, nil
}

func (t *Toolset) cancelAppointments(ctx context.Context, args map[string]any) (map[string]any, error) {
	data := subMap(args, "data")

	day, err := t.dateOrToday(data, "for_date")
	if err != nil {
		return domainError("%s", err), nil
	}

	doctor, name, err := t.findDoctor(ctx, data)
	if err != nil {
		return nil, err
	}
	if name != "" && doctor == nil {
		return domainError("Doctor not found"), nil
	}
	var doctorID int64
	if doctor != nil {
		doctorID = doctor.ID
	}

	canceled, err := t.store.CancelByDate(ctx, day, doctorID, strField(data, "reason"))
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"canceled": canceled,
		"for_date": day.Format(DateLayout),
	}
	if doctor != nil {
		out["doctor"] = doctor.Name
	}
	return out, nil
}

func (t *Toolset) sqlRead(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := strField(args, "sql")
	if query == "" {
		return domainError("sql is required"), nil
	}

	var params []any
	if raw, ok := args["params"].([]any); ok {
		params = raw
	}

	rows, err := t.store.ReadQuery(ctx, query, params, intField(args, "row_limit"))
	if err != nil {
		return domainError("%s", err), nil
	}
	return map[string]any{"rows": rows, "row_count": len(rows)}, nil
}
