package sink

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tofpid/tofpid/pid"
)

// schemaSQL defines the derived-table schema: one row per track for event
// times and beta, one row per track and species for nsigma.
//
//go:embed schema.sql
var schemaSQL string

// SQLiteSink writes the produced tables into a sqlite database, tagged with
// the processing run id.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

// NewSQLiteSink opens (or creates) the database, applies the schema and
// registers the processing run.
func NewSQLiteSink(path, runID string, runNumber int64) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO runs (run_id, run_number) VALUES (?, ?)`, runID, runNumber); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}
	return &SQLiteSink{db: db, runID: runID}, nil
}

func (s *SQLiteSink) WriteEventTime(row pid.EventTimeRow) error {
	_, err := s.db.Exec(
		`INSERT INTO tof_event_time (run_id, track_idx, collision_id, time_ps, time_err_ps, flags, multiplicity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, row.TrackIndex, row.CollisionID, row.Time, row.TimeErr, int(row.Flags), row.Multiplicity)
	if err != nil {
		return fmt.Errorf("inserting event-time row: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WriteNsigma(row pid.NsigmaRow) error {
	_, err := s.db.Exec(
		`INSERT INTO tof_nsigma (run_id, track_idx, species, exp_sigma_ps, nsigma, packed, full)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, row.TrackIndex, row.Species.String(), row.ExpSigma, row.Nsigma, int(row.Packed), row.Full)
	if err != nil {
		return fmt.Errorf("inserting nsigma row: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WriteBeta(row pid.BetaRow) error {
	_, err := s.db.Exec(
		`INSERT INTO tof_beta (run_id, track_idx, beta, beta_err, mass_gev)
		 VALUES (?, ?, ?, ?, ?)`,
		s.runID, row.TrackIndex, row.Beta, row.BetaErr, row.Mass)
	if err != nil {
		return fmt.Errorf("inserting beta row: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
