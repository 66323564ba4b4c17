package feedback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dental-cdss-server/internal/domain"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	f := &Feedback{
		AssessmentID:         10,
		MedicalRecordID:      4,
		RecommendedTreatment: domain.TreatmentImplant,
		ChosenTreatment:      domain.TreatmentImplant,
		ClinicianAgreed:      true,
	}
	require.NoError(t, store.Save(ctx, f))
	assert.NotZero(t, f.ID)

	got, err := store.Get(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.TreatmentImplant, got.RecommendedTreatment)
	assert.True(t, got.ClinicianAgreed)
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	first := &Feedback{
		AssessmentID:         10,
		MedicalRecordID:      4,
		RecommendedTreatment: domain.TreatmentImplant,
		ChosenTreatment:      domain.TreatmentImplant,
		ClinicianAgreed:      true,
	}
	require.NoError(t, store.Save(ctx, first))

	second := &Feedback{
		AssessmentID:         10,
		MedicalRecordID:      4,
		RecommendedTreatment: domain.TreatmentImplant,
		ChosenTreatment:      domain.TreatmentBridge,
		ClinicianAgreed:      false,
		Notes:                "bone density insufficient for implant",
	}
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := store.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentBridge, got.ChosenTreatment)
	assert.False(t, got.ClinicianAgreed)
	assert.Equal(t, "bone density insufficient for implant", got.Notes)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newSQLiteStore(t)

	got, err := store.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListAndStats(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	entries := []*Feedback{
		{AssessmentID: 1, MedicalRecordID: 1, RecommendedTreatment: domain.TreatmentRootCanal, ChosenTreatment: domain.TreatmentRootCanal, ClinicianAgreed: true},
		{AssessmentID: 2, MedicalRecordID: 2, RecommendedTreatment: domain.TreatmentRootCanal, ChosenTreatment: domain.TreatmentExtraction, ClinicianAgreed: false},
		{AssessmentID: 3, MedicalRecordID: 3, RecommendedTreatment: domain.TreatmentFilling, ChosenTreatment: domain.TreatmentFilling, ClinicianAgreed: true},
	}
	for _, f := range entries {
		require.NoError(t, store.Save(ctx, f))
	}

	list, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Agreed)
	assert.Equal(t, int64(2), stats.ByTreatment[domain.TreatmentRootCanal])
	assert.InDelta(t, 66.7, stats.AgreementPct, 0.01)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	f := &Feedback{
		AssessmentID:         5,
		MedicalRecordID:      5,
		RecommendedTreatment: domain.TreatmentObservation,
		ChosenTreatment:      domain.TreatmentObservation,
		ClinicianAgreed:      true,
	}
	require.NoError(t, store.Save(ctx, f))

	require.NoError(t, store.Delete(ctx, f.ID))

	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = store.Delete(ctx, f.ID)
	assert.ErrorContains(t, err, "not found")
}
