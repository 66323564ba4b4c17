package service

import "github.com/dental-cdss-server/internal/domain"

// TreatmentOption is one static catalog entry: the baseline estimates a
// plan starts from before per-patient adjustment.
type TreatmentOption struct {
	Name        string
	Description string
	MinScore    float64
	SuccessRate float64
	Cost        float64
	Duration    string
}

// treatmentCatalog is read-only reference data keyed by treatment type.
var treatmentCatalog = map[domain.TreatmentType]TreatmentOption{
	domain.TreatmentFullCrown: {
		Name:        "全冠修复",
		Description: "适用于牙体缺损较大但牙根完好的牙齿",
		MinScore:    60,
		SuccessRate: 85,
		Cost:        2000,
		Duration:    "2周",
	},
	domain.TreatmentImplant: {
		Name:        "种植修复",
		Description: "适用于牙齿缺失或无法保留的情况",
		MinScore:    70,
		SuccessRate: 95,
		Cost:        8000,
		Duration:    "3-6个月",
	},
	domain.TreatmentBridge: {
		Name:        "固定桥修复",
		Description: "适用于缺失1-2颗牙且邻牙健康的情况",
		MinScore:    50,
		SuccessRate: 80,
		Cost:        5000,
		Duration:    "3周",
	},
	domain.TreatmentFilling: {
		Name:        "充填修复",
		Description: "适用于龋齿或小范围牙体缺损",
		MinScore:    40,
		SuccessRate: 90,
		Cost:        500,
		Duration:    "1次就诊",
	},
	domain.TreatmentRootCanal: {
		Name:        "根管治疗",
		Description: "适用于牙髓病变或感染的情况",
		MinScore:    30,
		SuccessRate: 85,
		Cost:        1500,
		Duration:    "2-3次就诊",
	},
	domain.TreatmentExtraction: {
		Name:        "拔牙",
		Description: "适用于无法保留的牙齿",
		MinScore:    0,
		SuccessRate: 100,
		Cost:        300,
		Duration:    "1次就诊",
	},
	domain.TreatmentObservation: {
		Name:        "观察随访",
		Description: "适用于轻微问题或需要进一步检查的情况",
		MinScore:    0,
		SuccessRate: 100,
		Cost:        0,
		Duration:    "定期复查",
	},
}

// catalogEntry looks up a treatment option, falling back to sensible
// defaults for a missing entry rather than failing the recommendation.
func catalogEntry(treatment domain.TreatmentType) TreatmentOption {
	if option, ok := treatmentCatalog[treatment]; ok {
		return option
	}
	return TreatmentOption{SuccessRate: 80}
}

// alternativeTable maps each primary treatment to its candidate
// alternatives, in preference order. Observation is the universal
// fallback and always passes the min-score filter.
var alternativeTable = map[domain.TreatmentType][]domain.TreatmentType{
	domain.TreatmentImplant:     {domain.TreatmentBridge, domain.TreatmentFullCrown, domain.TreatmentObservation},
	domain.TreatmentFullCrown:   {domain.TreatmentBridge, domain.TreatmentFilling, domain.TreatmentObservation},
	domain.TreatmentBridge:      {domain.TreatmentImplant, domain.TreatmentFullCrown, domain.TreatmentObservation},
	domain.TreatmentFilling:     {domain.TreatmentRootCanal, domain.TreatmentObservation},
	domain.TreatmentRootCanal:   {domain.TreatmentExtraction, domain.TreatmentObservation},
	domain.TreatmentExtraction:  {domain.TreatmentObservation},
	domain.TreatmentObservation: {domain.TreatmentFilling, domain.TreatmentRootCanal},
}

// postTreatmentCare is static after-care guidance per treatment type.
var postTreatmentCare = map[domain.TreatmentType]string{
	domain.TreatmentImplant:     "术后24小时内冰敷，避免剧烈运动，保持口腔卫生，定期复查",
	domain.TreatmentFullCrown:   "避免用修复牙咀嚼硬物，注意口腔卫生，定期检查",
	domain.TreatmentBridge:      "注意桥体清洁，使用牙线清洁器，避免咀嚼过硬食物",
	domain.TreatmentFilling:     "避免过硬食物，如有不适及时复诊",
	domain.TreatmentRootCanal:   "避免用患牙咀嚼，按时复诊完成冠部修复",
	domain.TreatmentExtraction:  "咬紧棉球30分钟，24小时内不刷牙漱口，避免辛辣食物",
	domain.TreatmentObservation: "保持良好的口腔卫生，定期复查",
}
