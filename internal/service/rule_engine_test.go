package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dental-cdss-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func snapshotWith(categories map[int64]domain.RuleCategory, rules ...domain.Rule) *domain.RuleSnapshot {
	return &domain.RuleSnapshot{
		Rules:      rules,
		Categories: categories,
		LoadedAt:   time.Now(),
	}
}

func standardCategories() map[int64]domain.RuleCategory {
	return map[int64]domain.RuleCategory{
		1: {ID: 1, Name: "牙体状况", Weight: 1.2, DisplayOrder: 1, IsActive: true},
		2: {ID: 2, Name: "牙周状况", Weight: 1.0, DisplayOrder: 2, IsActive: true},
		3: {ID: 3, Name: "患者因素", Weight: 0.9, DisplayOrder: 4, IsActive: true},
	}
}

func TestRuleEngine_NilRecord(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	_, err := engine.Evaluate(nil, snapshotWith(standardCategories()))
	assert.ErrorIs(t, err, domain.ErrMissingRecord)
}

func TestRuleEngine_EmptyRuleSet(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{Diagnosis: "健康牙列"}

	eval, err := engine.Evaluate(record, snapshotWith(standardCategories()))
	require.NoError(t, err)

	assert.Zero(t, eval.TotalScore)
	assert.True(t, eval.PassedMandatory)
	assert.Empty(t, eval.MandatoryFailures)
	assert.Empty(t, eval.RuleEvaluations)
	// Base probability with no matched rules and no patient factors.
	assert.Equal(t, 50.0, eval.SuccessProbability)
	assert.Equal(t, domain.RiskHigh, eval.RiskLevel)
}

func TestRuleEngine_CategoryWeights(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{
		CariesDegree:       domain.CariesDeep,
		BoneLossPercentage: intPtr(40),
	}

	snapshot := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 1, Name: "深龋", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: 20, IsActive: true},
		domain.Rule{ID: 2, CategoryID: 2, Name: "骨吸收", Condition: domain.Condition{Field: domain.FieldBoneLossPercentage, Operator: domain.OpGreaterOrEqual, Value: "30"}, Score: 30, IsActive: true},
		domain.Rule{ID: 3, CategoryID: 2, Name: "不匹配", Condition: domain.Condition{Field: domain.FieldMobilityDegree, Operator: domain.OpEqual, Value: "3"}, Score: 99, IsActive: true},
	)

	eval, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)

	// 20*1.2 + 30*1.0
	assert.InDelta(t, 54.0, eval.TotalScore, 0.001)
	assert.Len(t, eval.RuleEvaluations, 2)

	caries := eval.CategoryScores["牙体状况"]
	assert.Equal(t, 20, caries.RawScore)
	assert.InDelta(t, 24.0, caries.WeightedScore, 0.001)
	assert.InDelta(t, 1.2, caries.Weight, 0.001)

	perio := eval.CategoryScores["牙周状况"]
	assert.Equal(t, 30, perio.RawScore)

	assert.Equal(t, domain.RiskMedium, eval.RiskLevel)
	// 50 + 54*0.5 = 77.0
	assert.Equal(t, 77.0, eval.SuccessProbability)
}

func TestRuleEngine_MandatoryFailureForcesHighRisk(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{PulpCondition: domain.PulpNecrotic}

	snapshot := snapshotWith(standardCategories(),
		domain.Rule{
			ID: 1, CategoryID: 1, Name: "牙髓坏死检查",
			Condition:               domain.Condition{Field: domain.FieldPulpCondition, Operator: domain.OpEqual, Value: "necrotic"},
			Score:                   -100,
			IsMandatory:             true,
			MandatoryFailureMessage: "牙髓坏死必须先进行根管治疗",
			IsActive:                true,
		},
		domain.Rule{ID: 2, CategoryID: 2, Name: "高分规则", Condition: domain.Condition{Field: domain.FieldPulpCondition, Operator: domain.OpNotEqual, Value: "vital"}, Score: 200, IsActive: true},
	)

	eval, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)

	assert.False(t, eval.PassedMandatory)
	require.Len(t, eval.MandatoryFailures, 1)
	assert.Equal(t, "牙髓坏死必须先进行根管治疗", eval.MandatoryFailures[0].Message)
	// Score would be low risk otherwise; the mandatory failure overrides.
	assert.Equal(t, domain.RiskHigh, eval.RiskLevel)
}

func TestRuleEngine_PatientFactorAdjustments(t *testing.T) {
	engine := NewRuleEngine(testLogger())

	base := &domain.MedicalRecord{}
	diabeticSmoker := &domain.MedicalRecord{
		DiabeticStatus: boolPtr(true),
		SmokingStatus:  domain.Smoker,
	}
	goodHygiene := &domain.MedicalRecord{OralHygiene: domain.HygieneGood}

	snapshot := snapshotWith(standardCategories())

	eval, err := engine.Evaluate(base, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 50.0, eval.SuccessProbability)

	eval, err = engine.Evaluate(diabeticSmoker, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 25.0, eval.SuccessProbability)

	eval, err = engine.Evaluate(goodHygiene, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 55.0, eval.SuccessProbability)
}

func TestRuleEngine_ProbabilityClamped(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{CariesDegree: domain.CariesDeep}

	high := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 2, Name: "满分", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: 500, IsActive: true},
	)
	eval, err := engine.Evaluate(record, high)
	require.NoError(t, err)
	assert.Equal(t, 100.0, eval.SuccessProbability)

	low := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 2, Name: "极低分", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: -500, IsActive: true},
	)
	eval, err = engine.Evaluate(record, low)
	require.NoError(t, err)
	assert.Equal(t, 0.0, eval.SuccessProbability)
}

func TestRuleEngine_UnknownCategoryDefaultsWeight(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{CariesDegree: domain.CariesDeep}

	snapshot := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 42, Name: "孤儿规则", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: 10, IsActive: true},
	)

	eval, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, eval.TotalScore, 0.001)
	unknown := eval.CategoryScores["unknown"]
	assert.Equal(t, 10, unknown.RawScore)
	assert.InDelta(t, 1.0, unknown.Weight, 0.001)
}

func TestRuleEngine_Idempotent(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{
		CariesDegree:       domain.CariesDeep,
		BoneLossPercentage: intPtr(40),
		SmokingStatus:      domain.Smoker,
	}
	snapshot := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 1, Name: "深龋", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: 20, IsActive: true},
		domain.Rule{ID: 2, CategoryID: 2, Name: "骨吸收", Condition: domain.Condition{Field: domain.FieldBoneLossPercentage, Operator: domain.OpGreaterOrEqual, Value: "30"}, Score: 30, IsActive: true},
	)

	first, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)
	second, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRuleEngine_TraceFollowsDisplayOrder(t *testing.T) {
	engine := NewRuleEngine(testLogger())
	record := &domain.MedicalRecord{
		CariesDegree:  domain.CariesDeep,
		SmokingStatus: domain.Smoker,
	}

	// Patient factors (display order 4) must trail tooth status (order 1)
	// regardless of rule IDs.
	snapshot := snapshotWith(standardCategories(),
		domain.Rule{ID: 1, CategoryID: 3, Name: "吸烟", Condition: domain.Condition{Field: domain.FieldSmokingStatus, Operator: domain.OpEqual, Value: "smoker"}, Score: -10, IsActive: true},
		domain.Rule{ID: 2, CategoryID: 1, Name: "深龋", Condition: domain.Condition{Field: domain.FieldCariesDegree, Operator: domain.OpEqual, Value: "deep"}, Score: 20, IsActive: true},
	)

	eval, err := engine.Evaluate(record, snapshot)
	require.NoError(t, err)

	require.Len(t, eval.RuleEvaluations, 2)
	assert.Equal(t, "深龋", eval.RuleEvaluations[0].RuleName)
	assert.Equal(t, "吸烟", eval.RuleEvaluations[1].RuleName)
}
