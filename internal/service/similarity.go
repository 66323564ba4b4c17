package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// SimilarCase is one search hit: a finalized record resembling the query
// record, with its latest assessment summary when available.
type SimilarCase struct {
	RecordID        int64              `json:"record_id"`
	PatientID       int64              `json:"patient_id"`
	ChiefComplaint  string             `json:"chief_complaint"`
	Diagnosis       string             `json:"diagnosis"`
	TreatmentNote   string             `json:"treatment_plan"`
	VisitDate       string             `json:"visit_date,omitempty"`
	SimilarityScore int                `json:"similarity_score"`
	SimilarityLevel string             `json:"similarity_level"`
	Assessment      *AssessmentSummary `json:"assessment,omitempty"`
}

// AssessmentSummary is the compact assessment view attached to a hit.
type AssessmentSummary struct {
	TotalScore           float64              `json:"total_score"`
	RiskLevel            domain.RiskLevel     `json:"risk_level"`
	RecommendedTreatment domain.TreatmentType `json:"recommended_treatment"`
}

// SimilaritySearch finds finalized records resembling a query record with
// a fixed-weight attribute-overlap score: diagnosis 40 points, complaint
// keyword overlap 30, bone loss / mobility / caries 10 each. Hits below 60
// points are discarded. Results are cached briefly per record.
type SimilaritySearch struct {
	records     domain.RecordStore
	assessments domain.AssessmentStore
	results     *expirable.LRU[int64, []SimilarCase]
	logger      *logrus.Logger
}

// NewSimilaritySearch creates a similarity search with a result cache of
// the given size and TTL.
func NewSimilaritySearch(records domain.RecordStore, assessments domain.AssessmentStore, cacheSize int, cacheTTL time.Duration, logger *logrus.Logger) *SimilaritySearch {
	return &SimilaritySearch{
		records:     records,
		assessments: assessments,
		results:     expirable.NewLRU[int64, []SimilarCase](cacheSize, nil, cacheTTL),
		logger:      logger,
	}
}

// FindSimilarCases returns up to limit finalized records similar to the
// given one, most similar first.
func (s *SimilaritySearch) FindSimilarCases(ctx context.Context, record *domain.MedicalRecord, limit int) ([]SimilarCase, error) {
	if record == nil {
		return nil, domain.ErrMissingRecord
	}
	if limit <= 0 {
		limit = 5
	}

	if cached, ok := s.results.Get(record.ID); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	candidates, err := s.records.ListFinalized(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("listing finalized records: %w", err)
	}

	hits := []SimilarCase{}
	for i := range candidates {
		candidate := &candidates[i]
		score := similarityScore(record, candidate)
		if score <= 60 {
			continue
		}
		hit := SimilarCase{
			RecordID:        candidate.ID,
			PatientID:       candidate.PatientID,
			ChiefComplaint:  truncate(candidate.ChiefComplaint, 50),
			Diagnosis:       candidate.Diagnosis,
			TreatmentNote:   candidate.TreatmentNote,
			SimilarityScore: score,
			SimilarityLevel: similarityLevel(score),
		}
		if !candidate.VisitDate.IsZero() {
			hit.VisitDate = candidate.VisitDate.Format("2006-01-02")
		}
		if assessment, err := s.assessments.GetLatest(ctx, candidate.ID); err == nil {
			hit.Assessment = &AssessmentSummary{
				TotalScore:           assessment.TotalScore,
				RiskLevel:            assessment.RiskLevel,
				RecommendedTreatment: assessment.RecommendedTreatment,
			}
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].SimilarityScore > hits[j].SimilarityScore
	})

	s.results.Add(record.ID, hits)

	s.logger.WithFields(logrus.Fields{
		"record_id":  record.ID,
		"candidates": len(candidates),
		"hits":       len(hits),
	}).Debug("Similar-case search completed")

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// similarityScore computes the 0-100 overlap score of two records.
func similarityScore(a, b *domain.MedicalRecord) int {
	score := 0

	if a.Diagnosis != "" && b.Diagnosis != "" {
		da, db := strings.ToLower(a.Diagnosis), strings.ToLower(b.Diagnosis)
		switch {
		case da == db:
			score += 40
		case strings.Contains(db, a.Diagnosis) || strings.Contains(da, b.Diagnosis):
			score += 20
		}
	}

	if a.ChiefComplaint != "" && b.ChiefComplaint != "" {
		common := keywordOverlap(a.ChiefComplaint, b.ChiefComplaint)
		if common > 0 {
			points := common * 5
			if points > 30 {
				points = 30
			}
			score += points
		}
	}

	if a.BoneLossPercentage != nil && b.BoneLossPercentage != nil {
		diff := *a.BoneLossPercentage - *b.BoneLossPercentage
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff < 10:
			score += 10
		case diff < 20:
			score += 5
		}
	}

	if a.MobilityDegree != nil && b.MobilityDegree != nil && *a.MobilityDegree == *b.MobilityDegree {
		score += 10
	}

	if a.CariesDegree != "" && b.CariesDegree != "" && a.CariesDegree == b.CariesDegree {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// keywordOverlap counts whitespace-separated keywords shared by the two
// complaints, case-insensitively.
func keywordOverlap(a, b string) int {
	wordsA := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(a)) {
		wordsA[word] = struct{}{}
	}
	common := 0
	seen := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(b)) {
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		if _, ok := wordsA[word]; ok {
			common++
		}
	}
	return common
}

func similarityLevel(score int) string {
	switch {
	case score >= 80:
		return "高度相似"
	case score >= 60:
		return "中度相似"
	case score >= 40:
		return "轻度相似"
	default:
		return "不相似"
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
