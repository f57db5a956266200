package repository

import (
	"context"
	"fmt"

	"insurance-etl/internal/models"

	"github.com/jmoiron/sqlx"
)

type DimensionRepository struct {
	db *sqlx.DB
}

func NewDimensionRepository(db *sqlx.DB) *DimensionRepository {
	return &DimensionRepository{db: db}
}

// UpsertDates loads calendar rows keyed by date_id (YYYYMMDD). Existing
// dates are left untouched; calendar attributes never change.
func (r *DimensionRepository) UpsertDates(ctx context.Context, dates []models.DimDate) error {
	query := `
		INSERT INTO dim_date (date_id, full_date, year, quarter, month, day, day_name, weekofyear)
		VALUES (:date_id, :full_date, :year, :quarter, :month, :day, :day_name, :weekofyear)
		ON CONFLICT (date_id) DO NOTHING`

	for _, d := range dates {
		if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
			return fmt.Errorf("failed to upsert dim_date %d: %w", d.DateID, err)
		}
	}
	return nil
}

// GetOrCreateAddress returns the surrogate key for a unique location
// combination, inserting it when unseen.
func (r *DimensionRepository) GetOrCreateAddress(ctx context.Context, addr models.DimAddress) (int64, error) {
	query := `
		INSERT INTO dim_address (country, region, state_or_province, city, postal_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (country, region, state_or_province, city, postal_code)
		DO UPDATE SET country = EXCLUDED.country
		RETURNING address_id`

	var id int64
	err := r.db.GetContext(ctx, &id, query, addr.Country, addr.Region, addr.StateOrProvince, addr.City, addr.PostalCode)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert dim_address: %w", err)
	}
	return id, nil
}

// UpsertCustomer loads one customer row keyed by customer_key.
func (r *DimensionRepository) UpsertCustomer(ctx context.Context, cust models.DimCustomer) error {
	query := `
		INSERT INTO dim_customer (customer_key, customer_name, customer_segment, marital_status, gender, dob_id, address_id)
		VALUES (:customer_key, :customer_name, :customer_segment, :marital_status, :gender, :dob_id, :address_id)
		ON CONFLICT (customer_key) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_segment = EXCLUDED.customer_segment,
			marital_status = EXCLUDED.marital_status,
			gender = EXCLUDED.gender,
			dob_id = EXCLUDED.dob_id,
			address_id = EXCLUDED.address_id`

	if _, err := r.db.NamedExecContext(ctx, query, cust); err != nil {
		return fmt.Errorf("failed to upsert dim_customer %s: %w", cust.CustomerKey, err)
	}
	return nil
}

// UpsertPolicy loads one policy master row keyed by policy_id.
func (r *DimensionRepository) UpsertPolicy(ctx context.Context, policy models.DimPolicy) error {
	query := `
		INSERT INTO dim_policy (policy_id, policy_name, policy_type_id, policy_type, policy_type_desc, policy_term)
		VALUES (:policy_id, :policy_name, :policy_type_id, :policy_type, :policy_type_desc, :policy_term)
		ON CONFLICT (policy_id) DO UPDATE SET
			policy_name = EXCLUDED.policy_name,
			policy_type_id = EXCLUDED.policy_type_id,
			policy_type = EXCLUDED.policy_type,
			policy_type_desc = EXCLUDED.policy_type_desc,
			policy_term = EXCLUDED.policy_term`

	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("failed to upsert dim_policy %s: %w", policy.PolicyID, err)
	}
	return nil
}
