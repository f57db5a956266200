package repository

import (
	"context"
	"fmt"

	"insurance-etl/internal/models"

	"github.com/jmoiron/sqlx"
)

type FactRepository struct {
	db *sqlx.DB
}

func NewFactRepository(db *sqlx.DB) *FactRepository {
	return &FactRepository{db: db}
}

// Truncate drops all fact rows. Each run reprocesses the full snapshot, so
// the fact table is rebuilt from scratch while dimensions are upserted.
func (r *FactRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE fact_policy_payments RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate fact table: %w", err)
	}
	return nil
}

// Insert writes one measure row and returns its surrogate key.
func (r *FactRepository) Insert(ctx context.Context, fact *models.FactPolicyPayment) error {
	query := `
		INSERT INTO fact_policy_payments (
			customer_key, policy_id, address_id,
			effective_start_date_id, effective_end_date_id,
			policy_start_date_id, policy_end_date_id,
			next_premium_date_id, actual_premium_paid_date_id,
			premium_amt, total_policy_amt, premium_amt_paid_tilldate,
			days_delay, no_rule_matched
		) VALUES (
			:customer_key, :policy_id, :address_id,
			:effective_start_date_id, :effective_end_date_id,
			:policy_start_date_id, :policy_end_date_id,
			:next_premium_date_id, :actual_premium_paid_date_id,
			:premium_amt, :total_policy_amt, :premium_amt_paid_tilldate,
			:days_delay, :no_rule_matched
		) RETURNING fact_id`

	rows, err := r.db.NamedQueryContext(ctx, query, fact)
	if err != nil {
		return fmt.Errorf("failed to insert fact row: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&fact.FactID); err != nil {
			return fmt.Errorf("failed to scan fact_id: %w", err)
		}
	}
	return rows.Err()
}

// ListPayments returns every fact row the late-fee engine can price: the
// premium amount must be known. Region degrades to Unknown when the fact
// has no address; unknown delay counts as not late.
func (r *FactRepository) ListPayments(ctx context.Context) ([]models.PremiumPayment, error) {
	query := `
		SELECT f.fact_id, f.customer_key, f.policy_id,
			COALESCE(a.region, 'Unknown') AS region,
			COALESCE(f.actual_premium_paid_date_id / 100 % 100, 0) AS payment_month,
			f.premium_amt,
			COALESCE(f.days_delay, 0) AS late_days
		FROM fact_policy_payments f
		LEFT JOIN dim_address a ON a.address_id = f.address_id
		WHERE f.premium_amt IS NOT NULL
		ORDER BY f.fact_id`

	var payments []models.PremiumPayment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("failed to list premium payments: %w", err)
	}
	return payments, nil
}

// UpdateFees writes the computed fee columns back onto the fact rows in one
// transaction, so a rerun after rule corrections replaces them atomically.
func (r *FactRepository) UpdateFees(ctx context.Context, payments []models.PremiumPayment) error {
	query := `
		UPDATE fact_policy_payments SET
			flat_fee = :flat_fee,
			percentage_fee = :percentage_fee,
			late_fee_amount = :late_fee_amount,
			no_rule_matched = :no_rule_matched
		WHERE fact_id = :fact_id`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin fee update transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range payments {
		if _, err := tx.NamedExecContext(ctx, query, payments[i]); err != nil {
			return fmt.Errorf("failed to update fees for fact %d: %w", payments[i].FactID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fee updates: %w", err)
	}
	return nil
}
