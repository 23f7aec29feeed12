package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Seed populates the store with the default demo clinic: one doctor with
// weekday morning and afternoon windows, and one patient. It is idempotent.
func (s *Store) Seed(ctx context.Context) error {
	doctor, err := s.DoctorByName(ctx, "Dr. Ahuja")
	if err != nil {
		return err
	}
	if doctor == nil {
		doctor, err = s.CreateDoctor(ctx, "Dr. Ahuja", "ahuja@example.com", "General Physician")
		if err != nil {
			return fmt.Errorf("failed to seed doctor: %w", err)
		}
	}

	for wd := time.Monday; wd <= time.Friday; wd++ {
		if err := s.AddAvailability(ctx, doctor.ID, wd, "09:00", "12:00"); err != nil {
			return fmt.Errorf("failed to seed availability: %w", err)
		}
		if err := s.AddAvailability(ctx, doctor.ID, wd, "14:00", "17:00"); err != nil {
			return fmt.Errorf("failed to seed availability: %w", err)
		}
	}

	patient, err := s.PatientByEmail(ctx, "john@example.com")
	if err != nil {
		return err
	}
	if patient == nil {
		if _, err := s.CreatePatient(ctx, "John Doe", "john@example.com", "fever"); err != nil {
			return fmt.Errorf("failed to seed patient: %w", err)
		}
	}

	log.Info().Msg("Scheduling store seeded")
	return nil
}
