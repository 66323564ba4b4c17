package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dental-cdss-server/internal/domain"
)

type stubRecordStore struct {
	finalized []domain.MedicalRecord
	listCalls int
}

func (s *stubRecordStore) GetByID(ctx context.Context, id int64) (*domain.MedicalRecord, error) {
	return nil, domain.ErrNotFound
}

func (s *stubRecordStore) ListFinalized(ctx context.Context, excludeID int64) ([]domain.MedicalRecord, error) {
	s.listCalls++
	var out []domain.MedicalRecord
	for _, record := range s.finalized {
		if record.ID != excludeID {
			out = append(out, record)
		}
	}
	return out, nil
}

type stubAssessmentStore struct {
	latest map[int64]*domain.Assessment
}

func (s *stubAssessmentStore) Save(ctx context.Context, assessment *domain.Assessment) error {
	return nil
}

func (s *stubAssessmentStore) ListByRecord(ctx context.Context, recordID int64) ([]domain.Assessment, error) {
	return nil, nil
}

func (s *stubAssessmentStore) GetLatest(ctx context.Context, recordID int64) (*domain.Assessment, error) {
	assessment, ok := s.latest[recordID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return assessment, nil
}

func newSimilarityFixture(records ...domain.MedicalRecord) (*SimilaritySearch, *stubRecordStore, *stubAssessmentStore) {
	recordStore := &stubRecordStore{finalized: records}
	assessmentStore := &stubAssessmentStore{latest: map[int64]*domain.Assessment{}}
	search := NewSimilaritySearch(recordStore, assessmentStore, 16, time.Minute, testLogger())
	return search, recordStore, assessmentStore
}

func TestSimilarityScore(t *testing.T) {
	query := &domain.MedicalRecord{
		Diagnosis:          "慢性牙周炎",
		ChiefComplaint:     "左下 后牙 咀嚼 疼痛",
		BoneLossPercentage: intPtr(30),
		MobilityDegree:     intPtr(2),
		CariesDegree:       domain.CariesMedium,
	}

	identical := *query
	// 40 + 20 (4 keywords capped contribution) + 10 + 10 + 10
	assert.Equal(t, 90, similarityScore(query, &identical))

	partial := &domain.MedicalRecord{
		Diagnosis:          "重度慢性牙周炎",
		BoneLossPercentage: intPtr(45),
	}
	// substring diagnosis 20, bone diff 15 -> 5
	assert.Equal(t, 25, similarityScore(query, partial))

	unrelated := &domain.MedicalRecord{Diagnosis: "正畸复诊"}
	assert.Equal(t, 0, similarityScore(query, unrelated))
}

func TestSimilarityScore_CappedAt100(t *testing.T) {
	complaint := "a b c d e f g h"
	a := &domain.MedicalRecord{
		Diagnosis:          "深龋",
		ChiefComplaint:     complaint,
		BoneLossPercentage: intPtr(10),
		MobilityDegree:     intPtr(1),
		CariesDegree:       domain.CariesDeep,
	}
	b := *a
	// 40 + 30 (keyword cap) + 10 + 10 + 10
	assert.Equal(t, 100, similarityScore(a, &b))
}

func TestFindSimilarCases_FiltersAndSorts(t *testing.T) {
	query := &domain.MedicalRecord{
		ID:                 1,
		Diagnosis:          "慢性牙周炎",
		ChiefComplaint:     "牙龈 出血 咀嚼 无力",
		BoneLossPercentage: intPtr(30),
		MobilityDegree:     intPtr(2),
		CariesDegree:       domain.CariesMedium,
	}

	strong := *query
	strong.ID = 2
	strong.PatientID = 20

	weaker := *query
	weaker.ID = 3
	weaker.PatientID = 30
	weaker.CariesDegree = domain.CariesDeep
	weaker.MobilityDegree = intPtr(1)

	unrelated := domain.MedicalRecord{ID: 4, Diagnosis: "正畸复诊"}

	search, _, assessments := newSimilarityFixture(strong, weaker, unrelated)
	assessments.latest[2] = &domain.Assessment{
		TotalScore:           55,
		RiskLevel:            domain.RiskMedium,
		RecommendedTreatment: domain.TreatmentBridge,
	}

	hits, err := search.FindSimilarCases(context.Background(), query, 5)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].RecordID)
	assert.Equal(t, int64(3), hits[1].RecordID)
	assert.GreaterOrEqual(t, hits[0].SimilarityScore, hits[1].SimilarityScore)
	assert.Greater(t, hits[1].SimilarityScore, 60)

	require.NotNil(t, hits[0].Assessment)
	assert.Equal(t, domain.TreatmentBridge, hits[0].Assessment.RecommendedTreatment)
	assert.Nil(t, hits[1].Assessment)
}

func TestFindSimilarCases_ExcludesQueryRecord(t *testing.T) {
	query := &domain.MedicalRecord{ID: 1, Diagnosis: "慢性牙周炎"}
	self := *query

	search, _, _ := newSimilarityFixture(self)

	hits, err := search.FindSimilarCases(context.Background(), query, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFindSimilarCases_UsesCache(t *testing.T) {
	query := &domain.MedicalRecord{
		ID:             1,
		Diagnosis:      "慢性牙周炎",
		ChiefComplaint: "牙龈 出血 咀嚼 无力",
	}
	match := *query
	match.ID = 2

	search, recordStore, _ := newSimilarityFixture(match)

	_, err := search.FindSimilarCases(context.Background(), query, 5)
	require.NoError(t, err)
	_, err = search.FindSimilarCases(context.Background(), query, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, recordStore.listCalls)
}

func TestFindSimilarCases_NilRecord(t *testing.T) {
	search, _, _ := newSimilarityFixture()
	_, err := search.FindSimilarCases(context.Background(), nil, 5)
	assert.ErrorIs(t, err, domain.ErrMissingRecord)
}

func TestSimilarityLevel(t *testing.T) {
	assert.Equal(t, "高度相似", similarityLevel(85))
	assert.Equal(t, "中度相似", similarityLevel(65))
	assert.Equal(t, "轻度相似", similarityLevel(45))
	assert.Equal(t, "不相似", similarityLevel(20))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "短主诉", truncate("短主诉", 50))

	long := make([]rune, 0, 60)
	for i := 0; i < 60; i++ {
		long = append(long, '牙')
	}
	got := truncate(string(long), 50)
	assert.Equal(t, 53, len([]rune(got)))
	assert.Contains(t, got, "...")
}
