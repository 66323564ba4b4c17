package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL-backed feedback store and ensures
// the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinician_feedback (
		id BIGSERIAL PRIMARY KEY,
		assessment_id BIGINT NOT NULL UNIQUE,
		medical_record_id BIGINT NOT NULL,
		recommended_treatment TEXT NOT NULL,
		chosen_treatment TEXT NOT NULL,
		clinician_agreed BOOLEAN NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_clinician_feedback_record
		ON clinician_feedback(medical_record_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save stores or updates feedback, keyed by assessment ID.
func (s *PostgresStore) Save(ctx context.Context, f *Feedback) error {
	query := `
	INSERT INTO clinician_feedback (
		assessment_id, medical_record_id, recommended_treatment,
		chosen_treatment, clinician_agreed, notes, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (assessment_id) DO UPDATE SET
		chosen_treatment = EXCLUDED.chosen_treatment,
		clinician_agreed = EXCLUDED.clinician_agreed,
		notes = EXCLUDED.notes,
		updated_at = NOW()
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
func (s *PostgresStore) Get(ctx context.Context, assessmentID int64) (*Feedback, error) {
	query := `
	SELECT id, assessment_id, medical_record_id, recommended_treatment,
	       chosen_treatment, clinician_agreed, notes, created_at, updated_at
	FROM clinician_feedback
	WHERE assessment_id = $1`

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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, assessment_id, medical_record_id, recommended_treatment,
	       chosen_treatment, clinician_agreed, notes, created_at, updated_at
	FROM clinician_feedback
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

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
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	query := `
	SELECT recommended_treatment,
	       COUNT(*),
	       COUNT(*) FILTER (WHERE clinician_agreed)
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
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM clinician_feedback WHERE id = $1`, id)
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

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
