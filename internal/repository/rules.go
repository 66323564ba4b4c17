// Package repository contains the PostgreSQL persistence layer built on
// pgx connection pools.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// RuleRepository persists scoring rules and their categories.
type RuleRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *pgxpool.Pool, logger *logrus.Logger) *RuleRepository {
	return &RuleRepository{db: db, log: logger}
}

const ruleColumns = `id, category_id, name, description, condition_field, condition_operator,
	condition_value, score, is_mandatory, mandatory_failure_message, treatment_suggestion,
	risk_level, is_active, version, COALESCE(created_by, 0), created_at, updated_at`

// ActiveSnapshot loads every active rule together with the active
// categories, ordered by category display order then rule ID.
func (r *RuleRepository) ActiveSnapshot(ctx context.Context) (*domain.RuleSnapshot, error) {
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM rules
		WHERE is_active = TRUE
		ORDER BY category_id, id`, ruleColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying active rules: %w", err)
	}
	defer rows.Close()

	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.RuleSnapshot{
		Rules:      rules,
		Categories: make(map[int64]domain.RuleCategory, len(categories)),
		LoadedAt:   time.Now().UTC(),
	}
	for _, category := range categories {
		snapshot.Categories[category.ID] = category
	}

	r.log.WithFields(logrus.Fields{
		"rules":      len(rules),
		"categories": len(categories),
	}).Debug("Loaded active rule snapshot")

	return snapshot, nil
}

// ListRules returns rules filtered by category and active flag. A
// categoryID of 0 means all categories.
func (r *RuleRepository) ListRules(ctx context.Context, categoryID int64, activeOnly bool) ([]domain.Rule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rules
		WHERE ($1 = 0 OR category_id = $1)
		  AND (NOT $2 OR is_active = TRUE)
		ORDER BY category_id, id`, ruleColumns)

	rows, err := r.db.Query(ctx, query, categoryID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListCategories returns the active categories in display order.
func (r *RuleRepository) ListCategories(ctx context.Context) ([]domain.RuleCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), weight, display_order, is_active, created_at
		FROM rule_categories
		WHERE is_active = TRUE
		ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("querying rule categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.RuleCategory
	for rows.Next() {
		var category domain.RuleCategory
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.Weight,
			&category.DisplayOrder,
			&category.IsActive,
			&category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning rule category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// CreateRule inserts a new rule at version 1.
func (r *RuleRepository) CreateRule(ctx context.Context, rule *domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO rules (
			category_id, name, description, condition_field, condition_operator,
			condition_value, score, is_mandatory, mandatory_failure_message,
			treatment_suggestion, risk_level, is_active, version, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, 1, $12)
		RETURNING id, version, created_at, updated_at`,
		rule.CategoryID,
		rule.Name,
		nullable(rule.Description),
		rule.Condition.Field,
		rule.Condition.Operator,
		rule.Condition.Value,
		rule.Score,
		rule.IsMandatory,
		nullable(rule.MandatoryFailureMessage),
		nullable(string(rule.TreatmentSuggestion)),
		nullable(string(rule.RiskLevel)),
		rule.CreatedBy,
	).Scan(&rule.ID, &rule.Version, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		r.log.WithError(err).WithField("rule", rule.Name).Error("Failed to create rule")
		return fmt.Errorf("creating rule: %w", err)
	}

	rule.IsActive = true
	r.log.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"rule":    rule.Name,
	}).Info("Rule created")
	return nil
}

// UpdateRule persists the edit and bumps the rule's version stamp.
func (r *RuleRepository) UpdateRule(ctx context.Context, rule *domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	err := r.db.QueryRow(ctx, `
		UPDATE rules SET
			category_id = $2, name = $3, description = $4, condition_field = $5,
			condition_operator = $6, condition_value = $7, score = $8,
			is_mandatory = $9, mandatory_failure_message = $10,
			treatment_suggestion = $11, risk_level = $12, is_active = $13,
			version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at`,
		rule.ID,
		rule.CategoryID,
		rule.Name,
		nullable(rule.Description),
		rule.Condition.Field,
		rule.Condition.Operator,
		rule.Condition.Value,
		rule.Score,
		rule.IsMandatory,
		nullable(rule.MandatoryFailureMessage),
		nullable(string(rule.TreatmentSuggestion)),
		nullable(string(rule.RiskLevel)),
		rule.IsActive,
	).Scan(&rule.Version, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("rule %d: %w", rule.ID, domain.ErrNotFound)
		}
		r.log.WithError(err).WithField("rule_id", rule.ID).Error("Failed to update rule")
		return fmt.Errorf("updating rule: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"version": rule.Version,
	}).Info("Rule updated")
	return nil
}

// scanRules drains rule rows into domain rules.
func scanRules(rows pgx.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		var (
			rule                         domain.Rule
			description, failureMessage  *string
			treatmentSuggestion, riskStr *string
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.CategoryID,
			&rule.Name,
			&description,
			&rule.Condition.Field,
			&rule.Condition.Operator,
			&rule.Condition.Value,
			&rule.Score,
			&rule.IsMandatory,
			&failureMessage,
			&treatmentSuggestion,
			&riskStr,
			&rule.IsActive,
			&rule.Version,
			&rule.CreatedBy,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		if description != nil {
			rule.Description = *description
		}
		if failureMessage != nil {
			rule.MandatoryFailureMessage = *failureMessage
		}
		if treatmentSuggestion != nil {
			rule.TreatmentSuggestion = domain.TreatmentType(*treatmentSuggestion)
		}
		if riskStr != nil {
			rule.RiskLevel = domain.RiskLevel(*riskStr)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
