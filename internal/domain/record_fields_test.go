package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func testRecord() *MedicalRecord {
	return &MedicalRecord{
		Diagnosis:          "慢性牙周炎伴深龋",
		ChiefComplaint:     "牙齿疼痛",
		ToothNumber:        "36",
		PeriodontalStatus:  PeriodontalPeriodontitis,
		BoneLossPercentage: intPtr(35),
		MobilityDegree:     intPtr(2),
		CariesDegree:       CariesDeep,
		PulpCondition:      PulpNecrotic,
		OralHygiene:        HygienePoor,
		SmokingStatus:      Smoker,
		DiabeticStatus:     boolPtr(true),
	}
}

func TestConditionMatches_Operators(t *testing.T) {
	record := testRecord()

	tests := []struct {
		name      string
		condition Condition
		want      bool
	}{
		{"equal string match", Condition{FieldPulpCondition, OpEqual, "necrotic"}, true},
		{"equal string miss", Condition{FieldPulpCondition, OpEqual, "vital"}, false},
		{"equal numeric compares as string", Condition{FieldMobilityDegree, OpEqual, "2"}, true},
		{"equal bool compares as string", Condition{FieldDiabeticStatus, OpEqual, "true"}, true},
		{"not equal", Condition{FieldOralHygiene, OpNotEqual, "good"}, true},
		{"not equal miss", Condition{FieldOralHygiene, OpNotEqual, "poor"}, false},
		{"greater than", Condition{FieldBoneLossPercentage, OpGreaterThan, "30"}, true},
		{"greater than equal boundary", Condition{FieldBoneLossPercentage, OpGreaterThan, "35"}, false},
		{"greater or equal boundary", Condition{FieldBoneLossPercentage, OpGreaterOrEqual, "35"}, true},
		{"less than", Condition{FieldBoneLossPercentage, OpLessThan, "40"}, true},
		{"less or equal", Condition{FieldMobilityDegree, OpLessOrEqual, "2"}, true},
		{"in membership", Condition{FieldCariesDegree, OpIn, "medium,deep"}, true},
		{"in membership with spaces", Condition{FieldCariesDegree, OpIn, "medium, deep"}, true},
		{"in miss", Condition{FieldCariesDegree, OpIn, "none,superficial"}, false},
		{"not in", Condition{FieldCariesDegree, OpNotIn, "none,superficial"}, true},
		{"not in miss", Condition{FieldCariesDegree, OpNotIn, "deep"}, false},
		{"contains", Condition{FieldDiagnosis, OpContains, "牙周炎"}, true},
		{"contains miss", Condition{FieldDiagnosis, OpContains, "种植"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.condition.Matches(record))
		})
	}
}

func TestConditionMatches_AbsentFieldNeverMatches(t *testing.T) {
	empty := &MedicalRecord{}

	conditions := []Condition{
		{FieldDiagnosis, OpEqual, ""},
		{FieldDiagnosis, OpNotEqual, "anything"},
		{FieldBoneLossPercentage, OpGreaterOrEqual, "0"},
		{FieldDiabeticStatus, OpEqual, "false"},
		{FieldCariesDegree, OpNotIn, "deep"},
	}
	for _, c := range conditions {
		assert.False(t, c.Matches(empty), "field %s should not match on an empty record", c.Field)
	}
}

func TestConditionMatches_NumericCoercionFailure(t *testing.T) {
	record := testRecord()

	// Non-numeric threshold on a numeric operator never matches.
	c := Condition{FieldBoneLossPercentage, OpGreaterThan, "severe"}
	assert.False(t, c.Matches(record))

	// Non-numeric field value on a numeric operator never matches.
	c = Condition{FieldDiagnosis, OpGreaterThan, "10"}
	assert.False(t, c.Matches(record))
}

func TestConditionMatches_UnknownOperatorAndField(t *testing.T) {
	record := testRecord()

	assert.False(t, Condition{FieldDiagnosis, "~=", "x"}.Matches(record))
	assert.False(t, Condition{"no_such_field", OpEqual, "x"}.Matches(record))
	assert.False(t, Condition{FieldDiagnosis, OpEqual, "x"}.Matches(nil))
}

func TestLookupField(t *testing.T) {
	record := testRecord()

	value, ok := LookupField(record, FieldBoneLossPercentage)
	assert.True(t, ok)
	assert.Equal(t, 35, value)

	_, ok = LookupField(&MedicalRecord{}, FieldBoneLossPercentage)
	assert.False(t, ok)

	assert.True(t, KnownConditionField(FieldSmokingStatus))
	assert.False(t, KnownConditionField("shoe_size"))
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		Name:      "深龋",
		Condition: Condition{FieldCariesDegree, OpEqual, "deep"},
		Score:     -20,
	}
	assert.NoError(t, valid.Validate())

	badOp := valid
	badOp.Condition.Operator = "like"
	assert.ErrorIs(t, badOp.Validate(), ErrInvalidOperator)

	badField := valid
	badField.Condition.Field = "nope"
	assert.ErrorIs(t, badField.Validate(), ErrUnknownField)

	mandatoryNoMessage := valid
	mandatoryNoMessage.IsMandatory = true
	assert.Error(t, mandatoryNoMessage.Validate())

	badTreatment := valid
	badTreatment.TreatmentSuggestion = "magic"
	assert.ErrorIs(t, badTreatment.Validate(), ErrInvalidTreatment)
}
