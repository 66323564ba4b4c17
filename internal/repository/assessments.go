package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// AssessmentRepository persists assessment results and treatment plans.
// Evaluation detail (trace, category scores, failures) is stored as JSONB
// alongside the scalar columns.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{db: db, log: logger}
}

// Save stores the assessment and its treatment plans in one transaction
// and de-marks the record's previous latest assessment.
func (r *AssessmentRepository) Save(ctx context.Context, assessment *domain.Assessment) error {
	failures, err := json.Marshal(assessment.MandatoryFailures)
	if err != nil {
		return fmt.Errorf("marshaling mandatory failures: %w", err)
	}
	alternatives, err := json.Marshal(assessment.AlternativeTreatments)
	if err != nil {
		return fmt.Errorf("marshaling alternatives: %w", err)
	}
	categoryScores, err := json.Marshal(assessment.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshaling category scores: %w", err)
	}
	ruleEvaluations, err := json.Marshal(assessment.RuleEvaluations)
	if err != nil {
		return fmt.Errorf("marshaling rule evaluations: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE assessment_results SET is_latest = FALSE
		WHERE medical_record_id = $1 AND is_latest = TRUE`,
		assessment.MedicalRecordID,
	); err != nil {
		return fmt.Errorf("de-marking previous assessment: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO assessment_results (
			medical_record_id, total_score, success_probability, risk_level,
			passed_mandatory, mandatory_failures, recommended_treatment,
			confidence_level, alternative_treatments, category_scores,
			rule_evaluations, assessed_by, assessed_at, is_latest
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE)
		RETURNING id`,
		assessment.MedicalRecordID,
		assessment.TotalScore,
		assessment.SuccessProbability,
		assessment.RiskLevel,
		assessment.PassedMandatory,
		failures,
		assessment.RecommendedTreatment,
		assessment.ConfidenceLevel,
		alternatives,
		categoryScores,
		ruleEvaluations,
		assessment.AssessedBy,
		assessment.AssessedAt,
	).Scan(&assessment.ID)
	if err != nil {
		return fmt.Errorf("inserting assessment: %w", err)
	}

	for _, plan := range assessment.TreatmentPlans {
		if _, err := tx.Exec(ctx, `
			INSERT INTO treatment_plans (
				assessment_id, treatment_type, priority, description,
				estimated_success_rate, estimated_cost, estimated_duration,
				complexity, contraindications, post_treatment_care
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			assessment.ID,
			plan.TreatmentType,
			plan.Priority,
			plan.Description,
			plan.EstimatedSuccessRate,
			plan.EstimatedCost,
			plan.EstimatedDuration,
			plan.Complexity,
			plan.Contraindications,
			plan.PostTreatmentCare,
		); err != nil {
			return fmt.Errorf("inserting treatment plan: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing assessment: %w", err)
	}

	assessment.IsLatest = true
	r.log.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"record_id":     assessment.MedicalRecordID,
		"plans":         len(assessment.TreatmentPlans),
	}).Info("Assessment saved")

	return nil
}

const assessmentColumns = `id, medical_record_id, total_score, success_probability,
	risk_level, passed_mandatory, mandatory_failures, recommended_treatment,
	confidence_level, alternative_treatments, category_scores, rule_evaluations,
	assessed_by, assessed_at, is_latest`

// ListByRecord returns all assessments of a record, newest first, with
// their treatment plans.
func (r *AssessmentRepository) ListByRecord(ctx context.Context, recordID int64) ([]domain.Assessment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assessment_results
		WHERE medical_record_id = $1
		ORDER BY assessed_at DESC, id DESC`, assessmentColumns)

	rows, err := r.db.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var assessments []domain.Assessment
	for rows.Next() {
		assessment, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *assessment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range assessments {
		plans, err := r.loadPlans(ctx, assessments[i].ID)
		if err != nil {
			return nil, err
		}
		assessments[i].TreatmentPlans = plans
	}
	return assessments, nil
}

// GetLatest returns the record's latest assessment with its plans.
func (r *AssessmentRepository) GetLatest(ctx context.Context, recordID int64) (*domain.Assessment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assessment_results
		WHERE medical_record_id = $1 AND is_latest = TRUE`, assessmentColumns)

	assessment, err := scanAssessment(r.db.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("latest assessment for record %d: %w", recordID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting latest assessment: %w", err)
	}

	plans, err := r.loadPlans(ctx, assessment.ID)
	if err != nil {
		return nil, err
	}
	assessment.TreatmentPlans = plans
	return assessment, nil
}

func (r *AssessmentRepository) loadPlans(ctx context.Context, assessmentID int64) ([]domain.TreatmentPlan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT treatment_type, priority, description, estimated_success_rate,
			   estimated_cost, estimated_duration, complexity, contraindications,
			   post_treatment_care
		FROM treatment_plans
		WHERE assessment_id = $1
		ORDER BY priority`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("querying treatment plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.TreatmentPlan
	for rows.Next() {
		var plan domain.TreatmentPlan
		if err := rows.Scan(
			&plan.TreatmentType,
			&plan.Priority,
			&plan.Description,
			&plan.EstimatedSuccessRate,
			&plan.EstimatedCost,
			&plan.EstimatedDuration,
			&plan.Complexity,
			&plan.Contraindications,
			&plan.PostTreatmentCare,
		); err != nil {
			return nil, fmt.Errorf("scanning treatment plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var (
		assessment                                    domain.Assessment
		failures, alternatives, categories, evaluated []byte
	)
	err := row.Scan(
		&assessment.ID,
		&assessment.MedicalRecordID,
		&assessment.TotalScore,
		&assessment.SuccessProbability,
		&assessment.RiskLevel,
		&assessment.PassedMandatory,
		&failures,
		&assessment.RecommendedTreatment,
		&assessment.ConfidenceLevel,
		&alternatives,
		&categories,
		&evaluated,
		&assessment.AssessedBy,
		&assessment.AssessedAt,
		&assessment.IsLatest,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(failures, &assessment.MandatoryFailures); err != nil {
		return nil, fmt.Errorf("unmarshaling mandatory failures: %w", err)
	}
	if err := json.Unmarshal(alternatives, &assessment.AlternativeTreatments); err != nil {
		return nil, fmt.Errorf("unmarshaling alternatives: %w", err)
	}
	if err := json.Unmarshal(categories, &assessment.CategoryScores); err != nil {
		return nil, fmt.Errorf("unmarshaling category scores: %w", err)
	}
	if err := json.Unmarshal(evaluated, &assessment.RuleEvaluations); err != nil {
		return nil, fmt.Errorf("unmarshaling rule evaluations: %w", err)
	}
	return &assessment, nil
}
