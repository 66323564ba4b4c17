package service

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// pulpNecrosisMarker identifies the pulp-necrosis mandatory failure in the
// gate stage; the matching seed rule carries it in its failure message.
const pulpNecrosisMarker = "牙髓坏死"

// noContraindication is returned when no contraindication rule applies.
const noContraindication = "无明显禁忌症"

// completenessFields is the fixed field set whose presence scales the
// confidence level.
var completenessFields = []domain.ConditionField{
	domain.FieldChiefComplaint,
	domain.FieldDiagnosis,
	domain.FieldPeriodontalStatus,
	domain.FieldBoneLossPercentage,
	domain.FieldMobilityDegree,
	domain.FieldCariesDegree,
}

// DecisionAlgorithm turns a rule-engine evaluation into a concrete
// treatment recommendation: a primary treatment, ranked alternatives and
// per-patient adjusted treatment plans.
type DecisionAlgorithm struct {
	engine *RuleEngine
	logger *logrus.Logger
}

// NewDecisionAlgorithm creates a new decision algorithm
func NewDecisionAlgorithm(engine *RuleEngine, logger *logrus.Logger) *DecisionAlgorithm {
	return &DecisionAlgorithm{engine: engine, logger: logger}
}

// Recommend evaluates the record and builds the full recommendation
// bundle. A failed mandatory gate short-circuits to a forced treatment;
// otherwise selection is score- and suggestion-driven.
func (d *DecisionAlgorithm) Recommend(record *domain.MedicalRecord, snapshot *domain.RuleSnapshot) (*domain.Recommendation, error) {
	evaluation, err := d.engine.Evaluate(record, snapshot)
	if err != nil {
		return nil, err
	}

	if !evaluation.PassedMandatory {
		return d.handleMandatoryFailure(evaluation), nil
	}

	primary := d.selectTreatment(evaluation, record)
	alternatives := d.selectAlternatives(primary, evaluation.TotalScore)
	plans := d.buildTreatmentPlans(primary, alternatives, evaluation, record)

	recommendation := &domain.Recommendation{
		Evaluation:            evaluation,
		RecommendedTreatment:  primary,
		ConfidenceLevel:       d.confidenceLevel(evaluation, record),
		AlternativeTreatments: alternatives,
		TreatmentPlans:        plans,
	}

	d.logger.WithFields(logrus.Fields{
		"record_id":    record.ID,
		"treatment":    primary,
		"alternatives": len(alternatives),
		"confidence":   recommendation.ConfidenceLevel,
	}).Info("Generated treatment recommendation")

	return recommendation, nil
}

// handleMandatoryFailure is the gate stage: a matched mandatory rule
// forces the treatment and skips scoring-based selection entirely.
func (d *DecisionAlgorithm) handleMandatoryFailure(evaluation *domain.Evaluation) *domain.Recommendation {
	for _, failure := range evaluation.MandatoryFailures {
		if strings.Contains(failure.Message, pulpNecrosisMarker) {
			return &domain.Recommendation{
				Evaluation:            evaluation,
				RecommendedTreatment:  domain.TreatmentRootCanal,
				ConfidenceLevel:       0.9,
				AlternativeTreatments: []domain.TreatmentType{domain.TreatmentExtraction, domain.TreatmentObservation},
				TreatmentPlans: []domain.TreatmentPlan{{
					TreatmentType:        domain.TreatmentRootCanal,
					Priority:             1,
					Description:          "必须先进行根管治疗解决牙髓坏死问题",
					EstimatedSuccessRate: 85,
					EstimatedCost:        1500,
					EstimatedDuration:    "2-3次就诊",
					Complexity:           domain.ComplexityMedium,
					Contraindications:    "全身健康状况不佳者慎用",
					PostTreatmentCare:    "避免用患牙咀嚼硬物，定期复查",
				}},
			}
		}
	}

	return &domain.Recommendation{
		Evaluation:            evaluation,
		RecommendedTreatment:  domain.TreatmentExtraction,
		ConfidenceLevel:       0.8,
		AlternativeTreatments: []domain.TreatmentType{domain.TreatmentObservation},
		TreatmentPlans: []domain.TreatmentPlan{{
			TreatmentType:        domain.TreatmentExtraction,
			Priority:             1,
			Description:          "牙齿因硬性条件不满足而无法保留，建议拔除",
			EstimatedSuccessRate: 100,
			EstimatedCost:        300,
			EstimatedDuration:    "1次就诊",
			Complexity:           domain.ComplexityLow,
			Contraindications:    "急性炎症期、血液病患者慎用",
			PostTreatmentCare:    "咬紧棉球30分钟，24小时内不刷牙漱口",
		}},
	}
}

// selectTreatment picks the primary treatment. Rule suggestions win over
// score bands; ties between suggestion counts break on first appearance
// in the evaluation trace.
func (d *DecisionAlgorithm) selectTreatment(evaluation *domain.Evaluation, record *domain.MedicalRecord) domain.TreatmentType {
	counts := map[domain.TreatmentType]int{}
	var order []domain.TreatmentType
	for _, entry := range evaluation.RuleEvaluations {
		if entry.TreatmentSuggestion == "" {
			continue
		}
		if _, seen := counts[entry.TreatmentSuggestion]; !seen {
			order = append(order, entry.TreatmentSuggestion)
		}
		counts[entry.TreatmentSuggestion]++
	}
	if len(order) > 0 {
		best := order[0]
		for _, treatment := range order[1:] {
			if counts[treatment] > counts[best] {
				best = treatment
			}
		}
		return best
	}

	return d.selectByScore(evaluation.TotalScore, record)
}

// selectByScore is the score-band fallback used when no rule suggested a
// treatment. Absent bone loss counts as 0%; absent caries degree falls to
// the root-canal branch.
func (d *DecisionAlgorithm) selectByScore(totalScore float64, record *domain.MedicalRecord) domain.TreatmentType {
	switch {
	case totalScore >= 70:
		boneLoss := 0
		if record.BoneLossPercentage != nil {
			boneLoss = *record.BoneLossPercentage
		}
		if boneLoss < 30 {
			return domain.TreatmentFullCrown
		}
		return domain.TreatmentImplant
	case totalScore >= 50:
		// Adjacent-teeth health has no real data source yet; the check is a
		// documented stub that always passes, so the bridge branch wins.
		if d.adjacentTeethHealthy(record) {
			return domain.TreatmentBridge
		}
		return domain.TreatmentFullCrown
	case totalScore >= 30:
		if record.CariesDegree == domain.CariesSuperficial || record.CariesDegree == domain.CariesMedium {
			return domain.TreatmentFilling
		}
		return domain.TreatmentRootCanal
	default:
		return domain.TreatmentExtraction
	}
}

// adjacentTeethHealthy is an explicit stub: per-tooth adjacency data is
// not captured in the record model.
func (d *DecisionAlgorithm) adjacentTeethHealthy(record *domain.MedicalRecord) bool {
	return true
}

// selectAlternatives filters the adjacency table by catalog min-score and
// truncates to at most three entries.
func (d *DecisionAlgorithm) selectAlternatives(primary domain.TreatmentType, totalScore float64) []domain.TreatmentType {
	filtered := []domain.TreatmentType{}
	for _, alternative := range alternativeTable[primary] {
		option, ok := treatmentCatalog[alternative]
		if !ok {
			continue
		}
		if totalScore >= option.MinScore || alternative == domain.TreatmentObservation {
			filtered = append(filtered, alternative)
		}
	}
	if len(filtered) > 3 {
		filtered = filtered[:3]
	}
	return filtered
}

// buildTreatmentPlans creates the primary plan (priority 1) and up to two
// alternative plans (priority 2, 3).
func (d *DecisionAlgorithm) buildTreatmentPlans(primary domain.TreatmentType, alternatives []domain.TreatmentType, evaluation *domain.Evaluation, record *domain.MedicalRecord) []domain.TreatmentPlan {
	plans := []domain.TreatmentPlan{d.buildPlan(primary, 1, evaluation, record)}
	for i, alternative := range alternatives {
		if i >= 2 {
			break
		}
		plans = append(plans, d.buildPlan(alternative, i+2, evaluation, record))
	}
	return plans
}

// buildPlan assembles one plan from the catalog entry, adjusting the
// baseline success rate for risk level and patient factors.
func (d *DecisionAlgorithm) buildPlan(treatment domain.TreatmentType, priority int, evaluation *domain.Evaluation, record *domain.MedicalRecord) domain.TreatmentPlan {
	option := catalogEntry(treatment)

	return domain.TreatmentPlan{
		TreatmentType:        treatment,
		Priority:             priority,
		Description:          option.Description,
		EstimatedSuccessRate: d.adjustSuccessRate(option.SuccessRate, evaluation.RiskLevel, record),
		EstimatedCost:        option.Cost,
		EstimatedDuration:    option.Duration,
		Complexity:           treatmentComplexity(treatment),
		Contraindications:    d.contraindications(treatment, record),
		PostTreatmentCare:    careInstructions(treatment),
	}
}

// adjustSuccessRate applies the fixed risk and patient-factor adjustments
// and clamps the result to [0, 100].
func (d *DecisionAlgorithm) adjustSuccessRate(baseRate float64, risk domain.RiskLevel, record *domain.MedicalRecord) float64 {
	adjusted := baseRate

	switch risk {
	case domain.RiskHigh:
		adjusted -= 15
	case domain.RiskMedium:
		adjusted -= 5
	}

	if record.IsDiabetic() {
		adjusted -= 10
	}
	if record.SmokingStatus == domain.Smoker {
		adjusted -= 15
	}
	switch record.OralHygiene {
	case domain.HygieneGood:
		adjusted += 5
	case domain.HygienePoor:
		adjusted -= 10
	}

	return math.Min(100, math.Max(0, adjusted))
}

// treatmentComplexity is a static lookup by treatment type.
func treatmentComplexity(treatment domain.TreatmentType) domain.Complexity {
	switch treatment {
	case domain.TreatmentImplant, domain.TreatmentBridge:
		return domain.ComplexityHigh
	case domain.TreatmentFullCrown, domain.TreatmentRootCanal:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}

// contraindications assembles the applicable warnings from a fixed rule
// set, joined with a full-width semicolon.
func (d *DecisionAlgorithm) contraindications(treatment domain.TreatmentType, record *domain.MedicalRecord) string {
	var warnings []string

	if record.IsDiabetic() && (treatment == domain.TreatmentImplant || treatment == domain.TreatmentExtraction) {
		warnings = append(warnings, "糖尿病患者需控制血糖稳定后方可进行")
	}
	if record.SmokingStatus == domain.Smoker && treatment == domain.TreatmentImplant {
		warnings = append(warnings, "吸烟者种植体失败风险增加，建议戒烟")
	}
	if record.PeriodontalStatus == domain.PeriodontalPeriodontitis && treatment == domain.TreatmentFullCrown {
		warnings = append(warnings, "需先控制牙周炎症")
	}

	if len(warnings) == 0 {
		return noContraindication
	}
	return strings.Join(warnings, "；")
}

// careInstructions is a static lookup by treatment type.
func careInstructions(treatment domain.TreatmentType) string {
	if care, ok := postTreatmentCare[treatment]; ok {
		return care
	}
	return "请遵循医生指导"
}

// confidenceLevel estimates recommendation trustworthiness from category
// coverage and record completeness, clamped to [0, 1].
func (d *DecisionAlgorithm) confidenceLevel(evaluation *domain.Evaluation, record *domain.MedicalRecord) float64 {
	confidence := 0.7

	if len(evaluation.CategoryScores) >= 3 {
		confidence += 0.1
	}

	filled := 0
	for _, field := range completenessFields {
		if _, present := domain.LookupField(record, field); present {
			filled++
		}
	}
	completeness := float64(filled) / float64(len(completenessFields))
	confidence += completeness * 0.2

	return math.Min(1, math.Max(0, confidence))
}
