package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dental-cdss-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO clinician_feedback`).
		WithArgs(int64(7), int64(3), "root_canal", "extraction", false, "patient preferred extraction").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	f := &Feedback{
		AssessmentID:         7,
		MedicalRecordID:      3,
		RecommendedTreatment: domain.TreatmentRootCanal,
		ChosenTreatment:      domain.TreatmentExtraction,
		ClinicianAgreed:      false,
		Notes:                "patient preferred extraction",
	}
	err := store.Save(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.ID)
	assert.Equal(t, now, f.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	columns := []string{
		"id", "assessment_id", "medical_record_id", "recommended_treatment",
		"chosen_treatment", "clinician_agreed", "notes", "created_at", "updated_at",
	}
	mock.ExpectQuery(`FROM clinician_feedback`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), int64(7), int64(3), "root_canal", "root_canal", true, "", now, now))

	f, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, domain.TreatmentRootCanal, f.RecommendedTreatment)
	assert.True(t, f.ClinicianAgreed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM clinician_feedback`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	f, err := store.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT recommended_treatment`).
		WillReturnRows(sqlmock.NewRows([]string{"recommended_treatment", "count", "agreed"}).
			AddRow("root_canal", int64(4), int64(3)).
			AddRow("extraction", int64(2), int64(2)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(5), stats.Agreed)
	assert.Equal(t, int64(4), stats.ByTreatment[domain.TreatmentRootCanal])
	assert.InDelta(t, 83.3, stats.AgreementPct, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM clinician_feedback`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), 42)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
