// Package domain contains the core business entities for dental clinical
// decision support: scoring rules, medical records, evaluations and
// treatment recommendations.
package domain

import "errors"

// TreatmentType is the closed set of treatments the decision algorithm can
// recommend. Values match the persisted enum used by the rule and
// assessment stores.
type TreatmentType string

const (
	TreatmentFullCrown   TreatmentType = "full_crown"
	TreatmentImplant     TreatmentType = "implant"
	TreatmentBridge      TreatmentType = "bridge"
	TreatmentFilling     TreatmentType = "filling"
	TreatmentRootCanal   TreatmentType = "root_canal"
	TreatmentExtraction  TreatmentType = "extraction"
	TreatmentObservation TreatmentType = "observation"
)

// AllTreatmentTypes lists every valid treatment in catalog order.
var AllTreatmentTypes = []TreatmentType{
	TreatmentFullCrown,
	TreatmentImplant,
	TreatmentBridge,
	TreatmentFilling,
	TreatmentRootCanal,
	TreatmentExtraction,
	TreatmentObservation,
}

// IsValid reports whether the treatment type is part of the closed set.
// Only valid treatment types may reach clinical output.
func (t TreatmentType) IsValid() bool {
	switch t {
	case TreatmentFullCrown, TreatmentImplant, TreatmentBridge, TreatmentFilling,
		TreatmentRootCanal, TreatmentExtraction, TreatmentObservation:
		return true
	default:
		return false
	}
}

func (t TreatmentType) String() string { return string(t) }

// RiskLevel represents the derived patient risk for a treatment outcome.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

func (r RiskLevel) String() string { return string(r) }

// Operator is the comparison operator of a rule condition.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpContains       Operator = "contains"
)

func (o Operator) IsValid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreaterThan, OpLessThan,
		OpGreaterOrEqual, OpLessOrEqual, OpIn, OpNotIn, OpContains:
		return true
	default:
		return false
	}
}

func (o Operator) String() string { return string(o) }

// ConditionField names a medical-record attribute a rule condition may read.
// The set is closed: a rule referencing a field outside the registry is
// rejected when the rule is loaded, not silently skipped at evaluation time.
type ConditionField string

const (
	FieldDiagnosis          ConditionField = "diagnosis"
	FieldChiefComplaint     ConditionField = "chief_complaint"
	FieldToothNumber        ConditionField = "tooth_number"
	FieldPeriodontalStatus  ConditionField = "periodontal_status"
	FieldBoneLossPercentage ConditionField = "bone_loss_percentage"
	FieldMobilityDegree     ConditionField = "mobility_degree"
	FieldCariesDegree       ConditionField = "caries_degree"
	FieldPulpCondition      ConditionField = "pulp_condition"
	FieldOcclusionType      ConditionField = "occlusion_type"
	FieldOralHygiene        ConditionField = "oral_hygiene"
	FieldSmokingStatus      ConditionField = "smoking_status"
	FieldDiabeticStatus     ConditionField = "diabetic_status"
)

func (f ConditionField) String() string { return string(f) }

// Clinical attribute enums. Empty string means the attribute was not recorded.

type PeriodontalStatus string

const (
	PeriodontalHealthy       PeriodontalStatus = "healthy"
	PeriodontalGingivitis    PeriodontalStatus = "gingivitis"
	PeriodontalPeriodontitis PeriodontalStatus = "periodontitis"
)

type CariesDegree string

const (
	CariesNone        CariesDegree = "none"
	CariesSuperficial CariesDegree = "superficial"
	CariesMedium      CariesDegree = "medium"
	CariesDeep        CariesDegree = "deep"
)

type PulpCondition string

const (
	PulpVital    PulpCondition = "vital"
	PulpNecrotic PulpCondition = "necrotic"
	PulpPulpitis PulpCondition = "pulpitis"
)

type OcclusionType string

const (
	OcclusionNormal OcclusionType = "normal"
	OcclusionDeep   OcclusionType = "deep"
	OcclusionCross  OcclusionType = "cross"
	OcclusionOpen   OcclusionType = "open"
)

type OralHygiene string

const (
	HygieneGood OralHygiene = "good"
	HygieneFair OralHygiene = "fair"
	HygienePoor OralHygiene = "poor"
)

type SmokingStatus string

const (
	NonSmoker    SmokingStatus = "non-smoker"
	FormerSmoker SmokingStatus = "former-smoker"
	Smoker       SmokingStatus = "smoker"
)

// Complexity grades how technically demanding a treatment is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Sentinel errors shared across stores and services.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperator  = errors.New("invalid condition operator")
	ErrUnknownField     = errors.New("unknown condition field")
	ErrInvalidTreatment = errors.New("invalid treatment type")
	ErrMissingRecord    = errors.New("medical record is required")
)
