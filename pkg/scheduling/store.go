package scheduling

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Store is the SQLite persistence layer behind the scheduling tools.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the scheduling database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps concurrent readers from blocking the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Scheduling store opened")
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS doctors (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	email     TEXT NOT NULL UNIQUE,
	specialty TEXT
);
CREATE INDEX IF NOT EXISTS idx_doctors_name ON doctors(name);

CREATE TABLE IF NOT EXISTS patients (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL UNIQUE,
	primary_condition TEXT
);
CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(name);

CREATE TABLE IF NOT EXISTS doctor_availability (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	doctor_id   INTEGER NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
	day_of_week INTEGER NOT NULL,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	UNIQUE(doctor_id, day_of_week, start_time)
);
CREATE INDEX IF NOT EXISTS idx_availability_doctor ON doctor_availability(doctor_id);

CREATE TABLE IF NOT EXISTS appointments (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	doctor_id   INTEGER NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
	patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
	start_at    TEXT NOT NULL,
	end_at      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'scheduled',
	description TEXT,
	diagnosis   TEXT
);
-- Uniqueness ignores canceled rows so a canceled slot can be rebooked.
CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_doctor_start
	ON appointments(doctor_id, start_at) WHERE status != 'canceled';
CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments(doctor_id);
CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id);
CREATE INDEX IF NOT EXISTS idx_appointments_start ON appointments(start_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for read-only query tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
