package domain

import "context"

// RuleStore provides the rule and category configuration the engine
// evaluates against. Implementations must return data safe to treat as a
// read-only snapshot for the duration of a call.
type RuleStore interface {
	// ActiveSnapshot loads every active rule with its category, ordered by
	// category display order then rule ID.
	ActiveSnapshot(ctx context.Context) (*RuleSnapshot, error)

	ListRules(ctx context.Context, categoryID int64, activeOnly bool) ([]Rule, error)
	ListCategories(ctx context.Context) ([]RuleCategory, error)
	CreateRule(ctx context.Context, rule *Rule) error
	// UpdateRule persists the edit and bumps the rule's Version.
	UpdateRule(ctx context.Context, rule *Rule) error
}

// RecordStore loads the medical records consumed by the decision pipeline.
type RecordStore interface {
	GetByID(ctx context.Context, id int64) (*MedicalRecord, error)
	// ListFinalized returns finalized records excluding the given one, used
	// by similar-case search.
	ListFinalized(ctx context.Context, excludeID int64) ([]MedicalRecord, error)
}

// AssessmentStore persists assessment results and their treatment plans.
type AssessmentStore interface {
	// Save stores the assessment and its plans in one transaction,
	// de-marking the record's previous latest assessment.
	Save(ctx context.Context, assessment *Assessment) error
	ListByRecord(ctx context.Context, recordID int64) ([]Assessment, error)
	GetLatest(ctx context.Context, recordID int64) (*Assessment, error)
}
