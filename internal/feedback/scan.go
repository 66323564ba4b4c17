package feedback

import (
	"math"

	"github.com/dental-cdss-server/internal/domain"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row scanner) (*Feedback, error) {
	var f Feedback
	var recommended, chosen string
	err := row.Scan(
		&f.ID, &f.AssessmentID, &f.MedicalRecordID,
		&recommended, &chosen, &f.ClinicianAgreed, &f.Notes,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.RecommendedTreatment = domain.TreatmentType(recommended)
	f.ChosenTreatment = domain.TreatmentType(chosen)
	return &f, nil
}

// statsRows abstracts *sql.Rows for per-treatment aggregates.
type statsRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectStats(rows statsRows) (*Stats, error) {
	stats := &Stats{ByTreatment: make(map[domain.TreatmentType]int64)}
	for rows.Next() {
		var treatment string
		var total, agreed int64
		if err := rows.Scan(&treatment, &total, &agreed); err != nil {
			return nil, err
		}
		stats.ByTreatment[domain.TreatmentType(treatment)] = total
		stats.Total += total
		stats.Agreed += agreed
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		pct := float64(stats.Agreed) / float64(stats.Total) * 100
		stats.AgreementPct = math.Round(pct*10) / 10
	}
	return stats, nil
}
