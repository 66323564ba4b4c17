package domain

import "time"

// RuleCategory groups scoring rules and carries the weight multiplier
// applied to the summed raw score of its rules.
type RuleCategory struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Weight       float64   `json:"weight"`
	DisplayOrder int       `json:"order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Condition is the (field, operator, value) triple a rule evaluates
// against a medical record.
type Condition struct {
	Field    ConditionField `json:"field"`
	Operator Operator       `json:"operator"`
	Value    string         `json:"value"`
}

// Rule is a single weighted, conditional scoring rule. Rules are
// configuration data: immutable during an evaluation, mutated only by
// administrative edits which bump Version.
type Rule struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Condition Condition `json:"condition"`

	Score                   int    `json:"score"`
	IsMandatory             bool   `json:"is_mandatory"`
	MandatoryFailureMessage string `json:"mandatory_failure_message,omitempty"`

	TreatmentSuggestion TreatmentType `json:"treatment_suggestion,omitempty"`
	RiskLevel           RiskLevel     `json:"risk_level,omitempty"`

	IsActive  bool      `json:"is_active"`
	Version   int       `json:"version"`
	CreatedBy int64     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the rule's structural invariants: a known condition
// field, a valid operator, and a failure message on mandatory rules.
func (r *Rule) Validate() error {
	if !r.Condition.Operator.IsValid() {
		return ErrInvalidOperator
	}
	if !KnownConditionField(r.Condition.Field) {
		return ErrUnknownField
	}
	if r.IsMandatory && r.MandatoryFailureMessage == "" {
		return &ValidationError{Field: "mandatory_failure_message", Message: "required for mandatory rules"}
	}
	if r.TreatmentSuggestion != "" && !r.TreatmentSuggestion.IsValid() {
		return ErrInvalidTreatment
	}
	return nil
}

// RuleSnapshot is an immutable view of the active rule set handed to the
// engine. The engine never mutates it; administrative edits produce a new
// snapshot.
type RuleSnapshot struct {
	Rules      []Rule                 `json:"rules"`
	Categories map[int64]RuleCategory `json:"categories"`
	LoadedAt   time.Time              `json:"loaded_at"`
}

// MedicalRecord is the clinical attribute bag the engine evaluates.
// Optional clinical attributes use pointers (numeric, boolean) or the
// empty string; an absent attribute never matches a rule condition.
type MedicalRecord struct {
	ID        int64     `json:"id"`
	RecordID  string    `json:"record_id"`
	PatientID int64     `json:"patient_id"`
	CreatorID int64     `json:"creator_id"`
	VisitDate time.Time `json:"visit_date"`

	ChiefComplaint string `json:"chief_complaint,omitempty"`
	Diagnosis      string `json:"diagnosis,omitempty"`
	TreatmentNote  string `json:"treatment_plan,omitempty"`

	ToothNumber        string            `json:"tooth_number,omitempty"`
	PeriodontalStatus  PeriodontalStatus `json:"periodontal_status,omitempty"`
	BoneLossPercentage *int              `json:"bone_loss_percentage,omitempty"`
	MobilityDegree     *int              `json:"mobility_degree,omitempty"`
	CariesDegree       CariesDegree      `json:"caries_degree,omitempty"`
	PulpCondition      PulpCondition     `json:"pulp_condition,omitempty"`
	OcclusionType      OcclusionType     `json:"occlusion_type,omitempty"`
	OralHygiene        OralHygiene       `json:"oral_hygiene,omitempty"`
	SmokingStatus      SmokingStatus     `json:"smoking_status,omitempty"`
	DiabeticStatus     *bool             `json:"diabetic_status,omitempty"`

	XrayPath  string `json:"xray_path,omitempty"`
	CTPath    string `json:"ct_path,omitempty"`
	PhotoPath string `json:"photo_path,omitempty"`

	IsFinalized bool      `json:"is_finalized"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsDiabetic reports whether the record positively marks the patient as
// diabetic. An unrecorded status counts as not diabetic.
func (m *MedicalRecord) IsDiabetic() bool {
	return m.DiabeticStatus != nil && *m.DiabeticStatus
}
