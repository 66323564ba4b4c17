package domain

import "time"

// CategoryScore holds the raw and weighted score a rule category
// contributed to an evaluation.
type CategoryScore struct {
	RawScore      int     `json:"raw_score"`
	WeightedScore float64 `json:"weighted_score"`
	Weight        float64 `json:"weight"`
}

// RuleEvaluation is one entry of the evaluation trace, recorded for every
// rule whose condition matched.
type RuleEvaluation struct {
	RuleID              int64         `json:"rule_id"`
	RuleName            string        `json:"rule_name"`
	Category            string        `json:"category"`
	Score               int           `json:"score"`
	ConditionMet        bool          `json:"condition_met"`
	IsMandatory         bool          `json:"is_mandatory"`
	TreatmentSuggestion TreatmentType `json:"treatment_suggestion,omitempty"`
	RiskLevel           RiskLevel     `json:"risk_level,omitempty"`
}

// MandatoryFailure records a matched mandatory rule that hard-disqualifies
// the default scoring path.
type MandatoryFailure struct {
	RuleID   int64  `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Message  string `json:"message"`
}

// Evaluation is the rule engine's output for one record against one rule
// snapshot. It is computed fresh per call and never mutated afterwards.
type Evaluation struct {
	TotalScore         float64                  `json:"total_score"`
	SuccessProbability float64                  `json:"success_probability"`
	RiskLevel          RiskLevel                `json:"risk_level"`
	PassedMandatory    bool                     `json:"passed_mandatory"`
	MandatoryFailures  []MandatoryFailure       `json:"mandatory_failures"`
	CategoryScores     map[string]CategoryScore `json:"category_scores"`
	RuleEvaluations    []RuleEvaluation         `json:"rule_evaluations"`
}

// TreatmentPlan is one concrete plan of a recommendation, priority 1 being
// the primary treatment.
type TreatmentPlan struct {
	TreatmentType        TreatmentType `json:"treatment_type"`
	Priority             int           `json:"priority"`
	Description          string        `json:"description"`
	EstimatedSuccessRate float64       `json:"estimated_success_rate"`
	EstimatedCost        float64       `json:"estimated_cost"`
	EstimatedDuration    string        `json:"estimated_duration"`
	Complexity           Complexity    `json:"complexity"`
	Contraindications    string        `json:"contraindications"`
	PostTreatmentCare    string        `json:"post_treatment_care"`
}

// Recommendation is the decision algorithm's full output bundle.
type Recommendation struct {
	Evaluation            *Evaluation     `json:"evaluation"`
	RecommendedTreatment  TreatmentType   `json:"recommended_treatment"`
	ConfidenceLevel       float64         `json:"confidence_level"`
	AlternativeTreatments []TreatmentType `json:"alternative_treatments"`
	TreatmentPlans        []TreatmentPlan `json:"treatment_plans"`
}

// Assessment is the persisted form of a recommendation: one row per
// assessment run, the newest one per record flagged IsLatest.
type Assessment struct {
	ID              int64 `json:"id"`
	MedicalRecordID int64 `json:"medical_record_id"`

	TotalScore         float64            `json:"total_score"`
	SuccessProbability float64            `json:"success_probability"`
	RiskLevel          RiskLevel          `json:"risk_level"`
	PassedMandatory    bool               `json:"passed_mandatory"`
	MandatoryFailures  []MandatoryFailure `json:"mandatory_failures"`

	RecommendedTreatment  TreatmentType   `json:"recommended_treatment"`
	ConfidenceLevel       float64         `json:"confidence_level"`
	AlternativeTreatments []TreatmentType `json:"alternative_treatments"`

	CategoryScores  map[string]CategoryScore `json:"category_scores"`
	RuleEvaluations []RuleEvaluation         `json:"rule_evaluations"`

	TreatmentPlans []TreatmentPlan `json:"treatment_plans"`

	AssessedBy int64     `json:"assessed_by"`
	AssessedAt time.Time `json:"assessed_at"`
	IsLatest   bool      `json:"is_latest"`
}
