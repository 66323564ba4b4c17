package feedback

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store backed by a local SQLite file. It serves
// single-clinic deployments that run without a PostgreSQL instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite-backed feedback store at the given path
// and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinician_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assessment_id INTEGER NOT NULL UNIQUE,
		medical_record_id INTEGER NOT NULL,
		recommended_treatment TEXT NOT NULL,
		chosen_treatment TEXT NOT NULL,
		clinician_agreed INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_clinician_feedback_record
		ON clinician_feedback(medical_record_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores or updates feedback, keyed by assessment ID.
func (s *SQLiteStore) Save(ctx context.Context, f *Feedback) error {
	query := `
	INSERT INTO clinician_feedback (
		assessment_id, medical_record_id, recommended_treatment,
		chosen_treatment, clinician_agreed, notes, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (assessment_id) DO UPDATE SET
		chosen_treatment = excluded.chosen_treatment,
		clinician_agreed = excluded.clinician_agreed,
		notes = excluded.notes,
		updated_at = CURRENT_TIMESTAMP
	RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		f.AssessmentID, f.MedicalRecordID, string(f.RecommendedTreatment),
		string(f.ChosenTreatment), f.ClinicianAgreed, f.Notes,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// Get retrieves feedback for an assessment.
func (s *SQLiteStore) Get(ctx context.Context, assessmentID int64) (*Feedback, error) {
	query := `
	SELECT id, assessment_id, medical_record_id, recommended_treatment,
	       chosen_treatment, clinician_agreed, notes, created_at, updated_at
	FROM clinician_feedback
	WHERE assessment_id = ?`

	f, err := scanFeedback(s.db.QueryRowContext(ctx, query, assessmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

// List returns feedback entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, assessment_id, medical_record_id, recommended_treatment,
	       chosen_treatment, clinician_agreed, notes, created_at, updated_at
	FROM clinician_feedback
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Stats aggregates agreement counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	query := `
	SELECT recommended_treatment,
	       COUNT(*),
	       SUM(CASE WHEN clinician_agreed THEN 1 ELSE 0 END)
	FROM clinician_feedback
	GROUP BY recommended_treatment`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback stats: %w", err)
	}
	defer rows.Close()

	return collectStats(rows)
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM clinician_feedback WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("feedback %d not found", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
