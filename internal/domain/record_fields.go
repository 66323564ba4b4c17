package domain

import (
	"strconv"
	"strings"
)

// fieldExtractor reads one clinical attribute from a record. The second
// return value is false when the attribute was not recorded, in which
// case no condition can match it.
type fieldExtractor func(*MedicalRecord) (any, bool)

// fieldRegistry maps every rule-addressable field to its typed extractor.
// Built once; unknown field names are a configuration-time error surfaced
// by Rule.Validate, never a silent runtime miss.
var fieldRegistry = map[ConditionField]fieldExtractor{
	FieldDiagnosis: func(m *MedicalRecord) (any, bool) {
		return m.Diagnosis, m.Diagnosis != ""
	},
	FieldChiefComplaint: func(m *MedicalRecord) (any, bool) {
		return m.ChiefComplaint, m.ChiefComplaint != ""
	},
	FieldToothNumber: func(m *MedicalRecord) (any, bool) {
		return m.ToothNumber, m.ToothNumber != ""
	},
	FieldPeriodontalStatus: func(m *MedicalRecord) (any, bool) {
		return string(m.PeriodontalStatus), m.PeriodontalStatus != ""
	},
	FieldBoneLossPercentage: func(m *MedicalRecord) (any, bool) {
		if m.BoneLossPercentage == nil {
			return nil, false
		}
		return *m.BoneLossPercentage, true
	},
	FieldMobilityDegree: func(m *MedicalRecord) (any, bool) {
		if m.MobilityDegree == nil {
			return nil, false
		}
		return *m.MobilityDegree, true
	},
	FieldCariesDegree: func(m *MedicalRecord) (any, bool) {
		return string(m.CariesDegree), m.CariesDegree != ""
	},
	FieldPulpCondition: func(m *MedicalRecord) (any, bool) {
		return string(m.PulpCondition), m.PulpCondition != ""
	},
	FieldOcclusionType: func(m *MedicalRecord) (any, bool) {
		return string(m.OcclusionType), m.OcclusionType != ""
	},
	FieldOralHygiene: func(m *MedicalRecord) (any, bool) {
		return string(m.OralHygiene), m.OralHygiene != ""
	},
	FieldSmokingStatus: func(m *MedicalRecord) (any, bool) {
		return string(m.SmokingStatus), m.SmokingStatus != ""
	},
	FieldDiabeticStatus: func(m *MedicalRecord) (any, bool) {
		if m.DiabeticStatus == nil {
			return nil, false
		}
		return *m.DiabeticStatus, true
	},
}

// KnownConditionField reports whether the field is registered.
func KnownConditionField(f ConditionField) bool {
	_, ok := fieldRegistry[f]
	return ok
}

// LookupField returns the value of the named attribute and whether it is
// present on the record.
func LookupField(m *MedicalRecord, f ConditionField) (any, bool) {
	extract, ok := fieldRegistry[f]
	if !ok || m == nil {
		return nil, false
	}
	return extract(m)
}

// stringify renders a field value the way conditions compare it.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// toFloat coerces a field or condition value to float64. The second
// return value is false when coercion is impossible; comparisons then
// simply do not match.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Matches evaluates the condition against the record. An absent field,
// an unknown operator or a failed numeric coercion all yield false, never
// an error: one malformed rule must not block assessment of a record.
func (c Condition) Matches(m *MedicalRecord) bool {
	fieldValue, present := LookupField(m, c.Field)
	if !present {
		return false
	}

	switch c.Operator {
	case OpEqual:
		return stringify(fieldValue) == c.Value
	case OpNotEqual:
		return stringify(fieldValue) != c.Value
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		left, okL := toFloat(fieldValue)
		right, okR := toFloat(c.Value)
		if !okL || !okR {
			return false
		}
		switch c.Operator {
		case OpGreaterThan:
			return left > right
		case OpLessThan:
			return left < right
		case OpGreaterOrEqual:
			return left >= right
		default:
			return left <= right
		}
	case OpIn, OpNotIn:
		member := false
		needle := stringify(fieldValue)
		for _, candidate := range strings.Split(c.Value, ",") {
			if strings.TrimSpace(candidate) == needle {
				member = true
				break
			}
		}
		if c.Operator == OpIn {
			return member
		}
		return !member
	case OpContains:
		return strings.Contains(stringify(fieldValue), c.Value)
	default:
		return false
	}
}
