package repository

import (
	"context"
	"fmt"

	"insurance-etl/internal/models"

	"github.com/jmoiron/sqlx"
)

type RuleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Replace swaps the persisted rule table for a freshly imported set in one
// transaction. Seq preserves workbook row order, which is the documented
// tie-break for overlapping rules.
func (r *RuleRepository) Replace(ctx context.Context, rules []models.LateFeeRule) error {
	query := `
		INSERT INTO late_fee_rule (id, region, month_from, month_to, min_days, max_days, fee_kind, fee_value, seq)
		VALUES (:id, :region, :month_from, :month_to, :min_days, :max_days, :fee_kind, :fee_value, :seq)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rule replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM late_fee_rule`); err != nil {
		return fmt.Errorf("failed to clear rule table: %w", err)
	}
	for i := range rules {
		rules[i].Seq = i
		if _, err := tx.NamedExecContext(ctx, query, rules[i]); err != nil {
			return fmt.Errorf("failed to insert rule seq %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule replace: %w", err)
	}
	return nil
}

// List returns the persisted rules in insertion order.
func (r *RuleRepository) List(ctx context.Context) ([]models.LateFeeRule, error) {
	query := `
		SELECT id, region, month_from, month_to, min_days, max_days, fee_kind, fee_value, seq
		FROM late_fee_rule
		ORDER BY seq`

	var rules []models.LateFeeRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list late fee rules: %w", err)
	}
	return rules, nil
}
