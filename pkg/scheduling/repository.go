package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConflict is returned when a booking overlaps an existing appointment.
var ErrConflict = errors.New("requested time overlaps with existing appointment")

// DoctorByName looks a doctor up by case-insensitive name.
func (s *Store) DoctorByName(ctx context.Context, name string) (*Doctor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, COALESCE(specialty, '') FROM doctors WHERE lower(name) = lower(?)`,
		strings.TrimSpace(name))

	var d Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specialty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query doctor: %w", err)
	}
	return &d, nil
}

// PatientByEmail looks a patient up by case-insensitive email.
func (s *Store) PatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, COALESCE(primary_condition, '') FROM patients WHERE lower(email) = lower(?)`,
		strings.TrimSpace(email))

	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PrimaryCondition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return &p, nil
}

// CreateDoctor inserts a doctor.
func (s *Store) CreateDoctor(ctx context.Context, name, email, specialty string) (*Doctor, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO doctors (name, email, specialty) VALUES (?, ?, ?)`,
		name, email, specialty)
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Doctor{ID: id, Name: name, Email: email, Specialty: specialty}, nil
}

// CreatePatient inserts a patient. A duplicate email is a domain error the
// caller can surface verbatim.
func (s *Store) CreatePatient(ctx context.Context, name, email, condition string) (*Patient, error) {
	existing, err := s.PatientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("patient with email %s already exists", email)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (name, email, primary_condition) VALUES (?, ?, ?)`,
		name, email, condition)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Patient{ID: id, Name: name, Email: email, PrimaryCondition: condition}, nil
}

// AddAvailability records a weekly availability window for a doctor,
// ignoring duplicates so seeding stays idempotent.
func (s *Store) AddAvailability(ctx context.Context, doctorID int64, weekday time.Weekday, start, end string) error {
	if _, _, err := parseClock(start); err != nil {
		return err
	}
	if _, _, err := parseClock(end); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO doctor_availability (doctor_id, day_of_week, start_time, end_time) VALUES (?, ?, ?, ?)`,
		doctorID, int(weekday), start, end)
	if err != nil {
		return fmt.Errorf("failed to add availability: %w", err)
	}
	return nil
}

// availabilityWindows loads a doctor's windows for one weekday.
func (s *Store) availabilityWindows(ctx context.Context, doctorID int64, weekday time.Weekday) ([]AvailabilityWindow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doctor_id, day_of_week, start_time, end_time
		 FROM doctor_availability WHERE doctor_id = ? AND day_of_week = ?
		 ORDER BY start_time`,
		doctorID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	var windows []AvailabilityWindow
	for rows.Next() {
		var w AvailabilityWindow
		var day int
		if err := rows.Scan(&w.ID, &w.DoctorID, &day, &w.Start, &w.End); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		w.Weekday = time.Weekday(day)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// appointmentsBetween loads non-canceled appointments for a doctor starting
// inside [from, to).
func (s *Store) appointmentsBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doctor_id, patient_id, start_at, end_at, status, COALESCE(description, ''), COALESCE(diagnosis, '')
		 FROM appointments
		 WHERE doctor_id = ? AND status != ? AND start_at >= ? AND start_at < ?
		 ORDER BY start_at`,
		doctorID, StatusCanceled, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

func scanAppointments(rows *sql.Rows) ([]Appointment, error) {
	var appts []Appointment
	for rows.Next() {
		var a Appointment
		var startAt, endAt string
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &startAt, &endAt, &a.Status, &a.Description, &a.Diagnosis); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		start, err := ParseTimestamp(startAt)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(endAt)
		if err != nil {
			return nil, err
		}
		a.StartAt, a.EndAt = start, end
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// BookAppointment books a slot for a doctor/patient pair after checking for
// overlap with existing non-canceled appointments.
func (s *Store) BookAppointment(ctx context.Context, doctor *Doctor, patient *Patient, start, end time.Time, description string) (*Appointment, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end time must be after start time")
	}

	var conflicts int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM appointments
		 WHERE doctor_id = ? AND status != ? AND start_at < ? AND end_at > ?`,
		doctor.ID, StatusCanceled, end.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339)).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if conflicts > 0 {
		return nil, ErrConflict
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (doctor_id, patient_id, start_at, end_at, status, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doctor.ID, patient.ID, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), StatusScheduled, description)
	if err != nil {
		return nil, fmt.Errorf("failed to insert appointment: %w", err)
	}
	id, _ := res.LastInsertId()

	return &Appointment{
		ID:          id,
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		StartAt:     start.UTC(),
		EndAt:       end.UTC(),
		Status:      StatusScheduled,
		Description: description,
	}, nil
}

// ListFilter narrows AppointmentsOn.
type ListFilter struct {
	DoctorID     int64  // 0 = any doctor
	PatientEmail string // "" = any patient
	AtTime       string // "HH:MM"; "" = any time
}

// AppointmentsOn lists appointments starting on the given day, newest last.
func (s *Store) AppointmentsOn(ctx context.Context, day time.Time, filter ListFilter) ([]AppointmentDetail, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `SELECT a.id, a.doctor_id, a.patient_id, a.start_at, a.end_at, a.status,
		COALESCE(a.description, ''), COALESCE(a.diagnosis, ''),
		d.name, p.name, p.email
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN patients p ON p.id = a.patient_id
		WHERE a.start_at >= ? AND a.start_at < ?`
	args := []any{dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339)}

	if filter.DoctorID != 0 {
		query += ` AND a.doctor_id = ?`
		args = append(args, filter.DoctorID)
	}
	if filter.PatientEmail != "" {
		query += ` AND lower(p.email) = lower(?)`
		args = append(args, filter.PatientEmail)
	}
	query += ` ORDER BY a.start_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var details []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		var startAt, endAt string
		if err := rows.Scan(&d.ID, &d.DoctorID, &d.PatientID, &startAt, &endAt, &d.Status,
			&d.Description, &d.Diagnosis, &d.DoctorName, &d.PatientName, &d.PatientEmail); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		start, err := ParseTimestamp(startAt)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(endAt)
		if err != nil {
			return nil, err
		}
		d.StartAt, d.EndAt = start, end

		if filter.AtTime != "" && d.StartAt.Format("15:04") != filter.AtTime {
			continue
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// CancelByDate cancels all non-canceled appointments starting on the given
// day, optionally narrowed to one doctor, and returns the count.
func (s *Store) CancelByDate(ctx context.Context, day time.Time, doctorID int64, reason string) (int, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `UPDATE appointments SET status = ?, diagnosis = COALESCE(diagnosis, ?)
		WHERE status != ? AND start_at >= ? AND start_at < ?`
	args := []any{StatusCanceled, reason, StatusCanceled, dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339)}

	if doctorID != 0 {
		query += ` AND doctor_id = ?`
		args = append(args, doctorID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel appointments: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DailyStats aggregates one day of appointments, optionally narrowed to a
// doctor, with an optional per-condition count.
func (s *Store) DailyStats(ctx context.Context, day time.Time, doctorID int64, conditionLike string) (Stats, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `SELECT status, COUNT(id) FROM appointments WHERE start_at >= ? AND start_at < ?`
	args := []any{dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339)}
	if doctorID != 0 {
		query += ` AND doctor_id = ?`
		args = append(args, doctorID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.TotalAppointments += count
		switch status {
		case StatusCompleted:
			stats.Completed = count
		case StatusCanceled:
			stats.Canceled = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	if conditionLike != "" {
		condQuery := `SELECT COUNT(a.id) FROM appointments a
			JOIN patients p ON p.id = a.patient_id
			WHERE a.start_at >= ? AND a.start_at < ?
			AND lower(p.primary_condition) LIKE ?`
		condArgs := []any{dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339),
			"%" + strings.ToLower(conditionLike) + "%"}
		if doctorID != 0 {
			condQuery += ` AND a.doctor_id = ?`
			condArgs = append(condArgs, doctorID)
		}

		var count int
		if err := s.db.QueryRowContext(ctx, condQuery, condArgs...).Scan(&count); err != nil {
			return Stats{}, fmt.Errorf("failed to count by condition: %w", err)
		}
		stats.ByCondition = map[string]int{conditionLike: count}
	}

	return stats, nil
}

// PatientMatch is one row from PatientsByReason.
type PatientMatch struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	AppointmentID int64     `json:"appointment_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
}

// PatientsByReason lists patients whose appointment on the given day matches
// a reason, against either the visit description or the patient's primary
// condition.
func (s *Store) PatientsByReason(ctx context.Context, day time.Time, reasonLike string, doctorID int64) ([]PatientMatch, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)
	pattern := "%" + strings.ToLower(strings.TrimSpace(reasonLike)) + "%"

	query := `SELECT p.name, p.email, a.id, a.start_at, a.end_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.start_at >= ? AND a.start_at < ? AND a.status != ?
		AND (lower(COALESCE(a.description, '')) LIKE ? OR lower(COALESCE(p.primary_condition, '')) LIKE ?)`
	args := []any{dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339), StatusCanceled, pattern, pattern}

	if doctorID != 0 {
		query += ` AND a.doctor_id = ?`
		args = append(args, doctorID)
	}
	query += ` ORDER BY a.start_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients by reason: %w", err)
	}
	defer rows.Close()

	var matches []PatientMatch
	for rows.Next() {
		var m PatientMatch
		var startAt, endAt string
		if err := rows.Scan(&m.Name, &m.Email, &m.AppointmentID, &startAt, &endAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient match: %w", err)
		}
		start, err := ParseTimestamp(startAt)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(endAt)
		if err != nil {
			return nil, err
		}
		m.StartAt, m.EndAt = start, end
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ReadQuery runs a read-only SQL statement and returns rows as maps. Only a
// single SELECT (or WITH ... SELECT) statement is accepted.
func (s *Store) ReadQuery(ctx context.Context, query string, params []any, rowLimit int) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("only SELECT statements are allowed")
	}
	if strings.Contains(trimmed, ";") {
		return nil, fmt.Errorf("multiple statements are not allowed")
	}
	if rowLimit <= 0 {
		rowLimit = 50
	}

	rows, err := s.db.QueryContext(ctx, trimmed, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() && len(out) < rowLimit {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
