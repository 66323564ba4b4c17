// Package feedback stores clinician feedback on treatment
// recommendations: whether the recommending algorithm was followed, and
// which treatment was actually chosen. The data feeds rule-tuning reviews.
package feedback

import (
	"context"
	"time"

	"github.com/dental-cdss-server/internal/domain"
)

// Feedback represents a clinician's verdict on one assessment.
type Feedback struct {
	ID                   int64                `json:"id,omitempty"`
	AssessmentID         int64                `json:"assessment_id"`
	MedicalRecordID      int64                `json:"medical_record_id"`
	RecommendedTreatment domain.TreatmentType `json:"recommended_treatment"`
	ChosenTreatment      domain.TreatmentType `json:"chosen_treatment"`
	ClinicianAgreed      bool                 `json:"clinician_agreed"`
	Notes                string               `json:"notes,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// Stats summarizes recommendation acceptance.
type Stats struct {
	Total        int64                          `json:"total"`
	Agreed       int64                          `json:"agreed"`
	ByTreatment  map[domain.TreatmentType]int64 `json:"by_treatment"`
	AgreementPct float64                        `json:"agreement_pct"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for an assessment. Feedback for the
	// same assessment is overwritten.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for an assessment; nil when none exists.
	Get(ctx context.Context, assessmentID int64) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Stats aggregates agreement counts across all feedback.
	Stats(ctx context.Context) (*Stats, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// Close closes the store and releases resources.
	Close() error
}
