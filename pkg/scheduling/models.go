package scheduling

import (
	"fmt"
	"time"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// Doctor is a practitioner row.
type Doctor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Specialty string `json:"specialty,omitempty"`
}

// Patient is a patient row.
type Patient struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	PrimaryCondition string `json:"primary_condition,omitempty"`
}

// AvailabilityWindow is a recurring weekly working window for a doctor.
// Weekday follows time.Weekday (0=Sunday).
type AvailabilityWindow struct {
	ID       int64        `json:"id"`
	DoctorID int64        `json:"doctor_id"`
	Weekday  time.Weekday `json:"weekday"`
	Start    string       `json:"start"` // "15:04"
	End      string       `json:"end"`
}

// Appointment is a booked appointment row.
type Appointment struct {
	ID          int64     `json:"id"`
	DoctorID    int64     `json:"doctor_id"`
	PatientID   int64     `json:"patient_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Diagnosis   string    `json:"diagnosis,omitempty"`
}

// AppointmentDetail joins an appointment with its doctor and patient names.
type AppointmentDetail struct {
	Appointment
	DoctorName   string `json:"doctor_name"`
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
}

// Slot is one bookable interval.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders a slot in the wire format the availability tool returns,
// e.g. "2025-08-14T09:00Z-2025-08-14T09:30Z".
func (s Slot) String() string {
	const layout = "2006-01-02T15:04Z"
	return s.Start.UTC().Format(layout) + "-" + s.End.UTC().Format(layout)
}

// Stats aggregates one day of appointments.
type Stats struct {
	TotalAppointments int            `json:"total_appointments"`
	Completed         int            `json:"completed"`
	Canceled          int            `json:"canceled"`
	ByCondition       map[string]int `json:"by_condition,omitempty"`
}

// DateLayout is the ISO date format used across tool arguments.
const DateLayout = "2006-01-02"

// clockLayout is the wall-clock format used in availability windows.
const clockLayout = "15:04"

// ParseDate parses an ISO "YYYY-MM-DD" date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t.UTC(), nil
}

// ParseTimestamp parses appointment timestamps, tolerating the shapes a
// model tends to produce.
func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q (expected HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}
