package service

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// RuleEngine evaluates a medical record against an immutable snapshot of
// the active scoring rules. Each call is pure and stateless: the same
// record and snapshot always produce the same Evaluation.
type RuleEngine struct {
	logger *logrus.Logger
}

// NewRuleEngine creates a new rule engine
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// Evaluate runs every active rule in the snapshot against the record and
// aggregates category-weighted scores, the mandatory gate, the derived
// risk level and the success probability. A malformed rule degrades to
// "condition not met"; it never aborts the batch.
func (e *RuleEngine) Evaluate(record *domain.MedicalRecord, snapshot *domain.RuleSnapshot) (*domain.Evaluation, error) {
	if record == nil {
		return nil, domain.ErrMissingRecord
	}

	eval := &domain.Evaluation{
		PassedMandatory:   true,
		MandatoryFailures: []domain.MandatoryFailure{},
		CategoryScores:    map[string]domain.CategoryScore{},
		RuleEvaluations:   []domain.RuleEvaluation{},
	}

	var rules []domain.Rule
	if snapshot != nil {
		rules = snapshot.Rules
	}

	for _, group := range groupByCategory(snapshot, rules) {
		category, known := lookupCategory(snapshot, group.categoryID)
		categoryScore := 0

		for _, rule := range group.rules {
			if !rule.Condition.Matches(record) {
				continue
			}

			if rule.IsMandatory {
				eval.PassedMandatory = false
				eval.MandatoryFailures = append(eval.MandatoryFailures, domain.MandatoryFailure{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					Message:  rule.MandatoryFailureMessage,
				})
			}

			categoryScore += rule.Score

			eval.RuleEvaluations = append(eval.RuleEvaluations, domain.RuleEvaluation{
				RuleID:              rule.ID,
				RuleName:            rule.Name,
				Category:            category.Name,
				Score:               rule.Score,
				ConditionMet:        true,
				IsMandatory:         rule.IsMandatory,
				TreatmentSuggestion: rule.TreatmentSuggestion,
				RiskLevel:           rule.RiskLevel,
			})
		}

		weightedScore := float64(categoryScore) * category.Weight
		eval.TotalScore += weightedScore
		eval.CategoryScores[category.Name] = domain.CategoryScore{
			RawScore:      categoryScore,
			WeightedScore: weightedScore,
			Weight:        category.Weight,
		}

		if !known {
			e.logger.WithFields(logrus.Fields{
				"category_id": group.categoryID,
				"record_id":   record.ID,
			}).Warn("Rule references unknown category, defaulting weight to 1.0")
		}
	}

	eval.SuccessProbability = e.successProbability(eval.TotalScore, record)
	eval.RiskLevel = e.riskLevel(eval.TotalScore, eval.MandatoryFailures)

	e.logger.WithFields(logrus.Fields{
		"record_id":        record.ID,
		"total_score":      eval.TotalScore,
		"matched_rules":    len(eval.RuleEvaluations),
		"passed_mandatory": eval.PassedMandatory,
		"risk_level":       eval.RiskLevel,
	}).Debug("Completed rule evaluation")

	return eval, nil
}

// categoryGroup keeps a category's rules in a stable order.
type categoryGroup struct {
	categoryID int64
	rules      []domain.Rule
}

// groupByCategory partitions rules per category. Categories are ordered by
// display order (unknown categories last) with category ID as tie-breaker,
// and rules within a category by ID ascending, so the trace order is
// deterministic for a given snapshot.
func groupByCategory(snapshot *domain.RuleSnapshot, rules []domain.Rule) []categoryGroup {
	byCategory := map[int64][]domain.Rule{}
	for _, rule := range rules {
		byCategory[rule.CategoryID] = append(byCategory[rule.CategoryID], rule)
	}

	displayOrder := func(id int64) int {
		if category, ok := lookupCategory(snapshot, id); ok {
			return category.DisplayOrder
		}
		return int(^uint(0) >> 1)
	}

	groups := make([]categoryGroup, 0, len(byCategory))
	for id, categoryRules := range byCategory {
		sort.Slice(categoryRules, func(i, j int) bool {
			return categoryRules[i].ID < categoryRules[j].ID
		})
		groups = append(groups, categoryGroup{categoryID: id, rules: categoryRules})
	}
	sort.Slice(groups, func(i, j int) bool {
		oi, oj := displayOrder(groups[i].categoryID), displayOrder(groups[j].categoryID)
		if oi != oj {
			return oi < oj
		}
		return groups[i].categoryID < groups[j].categoryID
	})
	return groups
}

// lookupCategory resolves a category from the snapshot, falling back to an
// "unknown" category of weight 1.0 so evaluation continues.
func lookupCategory(snapshot *domain.RuleSnapshot, id int64) (domain.RuleCategory, bool) {
	if snapshot != nil {
		if category, ok := snapshot.Categories[id]; ok {
			return category, true
		}
	}
	return domain.RuleCategory{ID: id, Name: "unknown", Weight: 1.0}, false
}

// successProbability derives the estimated success rate: 50% base plus
// 0.5% per score point, adjusted for patient factors and clamped to
// [0, 100] with one decimal place.
func (e *RuleEngine) successProbability(totalScore float64, record *domain.MedicalRecord) float64 {
	probability := 50 + totalScore*0.5

	if record.IsDiabetic() {
		probability -= 10
	}
	if record.SmokingStatus == domain.Smoker {
		probability -= 15
	}
	if record.OralHygiene == domain.HygieneGood {
		probability += 5
	}

	probability = math.Min(100, math.Max(0, probability))
	return math.Round(probability*10) / 10
}

// riskLevel derives the risk level. Any mandatory failure forces high risk
// regardless of score.
func (e *RuleEngine) riskLevel(totalScore float64, failures []domain.MandatoryFailure) domain.RiskLevel {
	switch {
	case len(failures) > 0:
		return domain.RiskHigh
	case totalScore < 30:
		return domain.RiskHigh
	case totalScore < 60:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
