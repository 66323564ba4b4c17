package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/cache"
	"github.com/dental-cdss-server/internal/domain"
)

// AssessmentService drives the full decision-support flow for a stored
// record: load record, take a rule snapshot, recommend, persist the
// assessment with its treatment plans and de-mark the previous latest one.
type AssessmentService struct {
	records     domain.RecordStore
	assessments domain.AssessmentStore
	snapshots   *SnapshotProvider
	decider     *DecisionAlgorithm
	cache       *cache.AssessmentCache
	logger      *logrus.Logger
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	records domain.RecordStore,
	assessments domain.AssessmentStore,
	snapshots *SnapshotProvider,
	decider *DecisionAlgorithm,
	assessmentCache *cache.AssessmentCache,
	logger *logrus.Logger,
) *AssessmentService {
	return &AssessmentService{
		records:     records,
		assessments: assessments,
		snapshots:   snapshots,
		decider:     decider,
		cache:       assessmentCache,
		logger:      logger,
	}
}

// Assess generates and persists a recommendation for the stored record.
func (s *AssessmentService) Assess(ctx context.Context, recordID, assessedBy int64) (*domain.Assessment, *domain.Recommendation, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading medical record %d: %w", recordID, err)
	}

	snapshot, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading rule snapshot: %w", err)
	}

	recommendation, err := s.decider.Recommend(record, snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("generating recommendation for record %d: %w", recordID, err)
	}

	assessment := buildAssessment(record.ID, assessedBy, recommendation)
	if err := s.assessments.Save(ctx, assessment); err != nil {
		return nil, nil, fmt.Errorf("saving assessment for record %d: %w", recordID, err)
	}

	s.cache.SetLatest(ctx, assessment)

	s.logger.WithFields(logrus.Fields{
		"record_id":     recordID,
		"assessment_id": assessment.ID,
		"treatment":     assessment.RecommendedTreatment,
		"risk_level":    assessment.RiskLevel,
	}).Info("Assessment persisted")

	return assessment, recommendation, nil
}

// Simulate evaluates an inline record without persisting anything.
func (s *AssessmentService) Simulate(ctx context.Context, record *domain.MedicalRecord) (*domain.Recommendation, error) {
	snapshot, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rule snapshot: %w", err)
	}
	return s.decider.Recommend(record, snapshot)
}

// History returns all assessments of a record, newest first.
func (s *AssessmentService) History(ctx context.Context, recordID int64) ([]domain.Assessment, error) {
	return s.assessments.ListByRecord(ctx, recordID)
}

// Latest returns the record's latest assessment, preferring the cache.
func (s *AssessmentService) Latest(ctx context.Context, recordID int64) (*domain.Assessment, error) {
	if assessment, ok := s.cache.GetLatest(ctx, recordID); ok {
		return assessment, nil
	}
	assessment, err := s.assessments.GetLatest(ctx, recordID)
	if err != nil {
		return nil, err
	}
	s.cache.SetLatest(ctx, assessment)
	return assessment, nil
}

// buildAssessment flattens a recommendation into its persisted form.
func buildAssessment(recordID, assessedBy int64, recommendation *domain.Recommendation) *domain.Assessment {
	evaluation := recommendation.Evaluation
	return &domain.Assessment{
		MedicalRecordID:       recordID,
		TotalScore:            evaluation.TotalScore,
		SuccessProbability:    evaluation.SuccessProbability,
		RiskLevel:             evaluation.RiskLevel,
		PassedMandatory:       evaluation.PassedMandatory,
		MandatoryFailures:     evaluation.MandatoryFailures,
		RecommendedTreatment:  recommendation.RecommendedTreatment,
		ConfidenceLevel:       recommendation.ConfidenceLevel,
		AlternativeTreatments: recommendation.AlternativeTreatments,
		CategoryScores:        evaluation.CategoryScores,
		RuleEvaluations:       evaluation.RuleEvaluations,
		TreatmentPlans:        recommendation.TreatmentPlans,
		AssessedBy:            assessedBy,
		AssessedAt:            time.Now().UTC(),
		IsLatest:              true,
	}
}
