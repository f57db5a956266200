package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// LATE FEE RULES
// ============================================================================

// LateFeeRule is one row of the fee policy table. A nil scope field means
// "any": the rule matches every value of that dimension. The late-day slab
// is the half-open range [MinDays, MaxDays); a nil MaxDays leaves the slab
// open-ended. Rules are immutable once loaded.
type LateFeeRule struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Region    *Region         `json:"region,omitempty" db:"region"`
	MonthFrom *time.Month     `json:"month_from,omitempty" db:"month_from"`
	MonthTo   *time.Month     `json:"month_to,omitempty" db:"month_to"`
	MinDays   int             `json:"min_days" db:"min_days"`
	MaxDays   *int            `json:"max_days,omitempty" db:"max_days"`
	Kind      FeeKind         `json:"fee_kind" db:"fee_kind"`
	Value     decimal.Decimal `json:"fee_value" db:"fee_value"`
	Seq       int             `json:"seq" db:"seq"`
}

// Specificity counts the pinned (non-any) scope dimensions among region,
// month and late-day slab. More pinned dimensions means a more specific rule.
func (r LateFeeRule) Specificity() int {
	n := 0
	if r.Region != nil {
		n++
	}
	if r.MonthFrom != nil || r.MonthTo != nil {
		n++
	}
	if r.MinDays > 0 || r.MaxDays != nil {
		n++
	}
	return n
}

// Matches reports whether the rule's scope predicate is satisfied. An "any"
// dimension always matches; a pinned dimension must equal or fall within
// range.
func (r LateFeeRule) Matches(region Region, month time.Month, lateDays int) bool {
	if r.Region != nil && *r.Region != region {
		return false
	}
	if r.MonthFrom != nil && month < *r.MonthFrom {
		return false
	}
	if r.MonthTo != nil && month > *r.MonthTo {
		return false
	}
	if lateDays < r.MinDays {
		return false
	}
	if r.MaxDays != nil && lateDays >= *r.MaxDays {
		return false
	}
	return true
}

// ============================================================================
// PREMIUM PAYMENT FACT
// ============================================================================

// PremiumPayment is one fact-table row as seen by the late-fee engine:
// region, payment month and late days already resolved by the warehouse
// assembly. The engine mutates the fee fields in place; nothing else
// touches them.
type PremiumPayment struct {
	FactID        int64           `json:"fact_id" db:"fact_id"`
	CustomerKey   string          `json:"customer_key" db:"customer_key"`
	PolicyID      string          `json:"policy_id" db:"policy_id"`
	Region        Region          `json:"region" db:"region"`
	PaymentMonth  time.Month      `json:"payment_month" db:"payment_month"`
	PremiumAmt    decimal.Decimal `json:"premium_amt" db:"premium_amt"`
	LateDays      int             `json:"late_days" db:"late_days"`
	FlatFee       decimal.Decimal `json:"flat_fee" db:"flat_fee"`
	PercentageFee decimal.Decimal `json:"percentage_fee" db:"percentage_fee"`
	LateFeeAmount decimal.Decimal `json:"late_fee_amount" db:"late_fee_amount"`
	NoRuleMatched bool            `json:"no_rule_matched" db:"no_rule_matched"`
}
