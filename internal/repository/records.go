package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// RecordRepository loads medical records for the decision pipeline.
type RecordRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRecordRepository creates a new medical-record repository
func NewRecordRepository(db *pgxpool.Pool, logger *logrus.Logger) *RecordRepository {
	return &RecordRepository{db: db, log: logger}
}

const recordColumns = `id, record_id, patient_id, creator_id, visit_date,
	COALESCE(chief_complaint, ''), COALESCE(diagnosis, ''), COALESCE(treatment_plan, ''),
	COALESCE(tooth_number, ''), COALESCE(periodontal_status, ''), bone_loss_percentage,
	mobility_degree, COALESCE(caries_degree, ''), COALESCE(pulp_condition, ''),
	COALESCE(occlusion_type, ''), COALESCE(oral_hygiene, ''), COALESCE(smoking_status, ''),
	diabetic_status, COALESCE(xray_path, ''), COALESCE(ct_path, ''), COALESCE(photo_path, ''),
	is_finalized, created_at, updated_at`

// GetByID retrieves a medical record by its numeric ID.
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*domain.MedicalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM medical_records WHERE id = $1`, recordColumns)

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medical record %d: %w", id, domain.ErrNotFound)
		}
		r.log.WithError(err).WithField("record_id", id).Error("Failed to get medical record")
		return nil, fmt.Errorf("getting medical record: %w", err)
	}
	return record, nil
}

// ListFinalized returns all finalized records except the given one.
func (r *RecordRepository) ListFinalized(ctx context.Context, excludeID int64) ([]domain.MedicalRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM medical_records
		WHERE is_finalized = TRUE AND id <> $1
		ORDER BY id`, recordColumns)

	rows, err := r.db.Query(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("querying finalized records: %w", err)
	}
	defer rows.Close()

	var records []domain.MedicalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.MedicalRecord, error) {
	var (
		record                                    domain.MedicalRecord
		periodontal, caries, pulp, occlusion      string
		hygiene, smoking                          string
	)
	err := row.Scan(
		&record.ID,
		&record.RecordID,
		&record.PatientID,
		&record.CreatorID,
		&record.VisitDate,
		&record.ChiefComplaint,
		&record.Diagnosis,
		&record.TreatmentNote,
		&record.ToothNumber,
		&periodontal,
		&record.BoneLossPercentage,
		&record.MobilityDegree,
		&caries,
		&pulp,
		&occlusion,
		&hygiene,
		&smoking,
		&record.DiabeticStatus,
		&record.XrayPath,
		&record.CTPath,
		&record.PhotoPath,
		&record.IsFinalized,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.PeriodontalStatus = domain.PeriodontalStatus(periodontal)
	record.CariesDegree = domain.CariesDegree(caries)
	record.PulpCondition = domain.PulpCondition(pulp)
	record.OcclusionType = domain.OcclusionType(occlusion)
	record.OralHygiene = domain.OralHygiene(hygiene)
	record.SmokingStatus = domain.SmokingStatus(smoking)
	return &record, nil
}
