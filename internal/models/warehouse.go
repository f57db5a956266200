package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// STAR SCHEMA (DIMENSIONS + FACT)
// ============================================================================

// DimDate holds calendar attributes keyed by date_id (YYYYMMDD).
type DimDate struct {
	DateID     int       `json:"date_id" db:"date_id"`
	FullDate   time.Time `json:"full_date" db:"full_date"`
	Year       int       `json:"year" db:"year"`
	Quarter    int       `json:"quarter" db:"quarter"`
	Month      int       `json:"month" db:"month"`
	Day        int       `json:"day" db:"day"`
	DayName    string    `json:"day_name" db:"day_name"`
	WeekOfYear int       `json:"weekofyear" db:"weekofyear"`
}

// NewDimDate derives the calendar attributes for one date.
func NewDimDate(t time.Time) DimDate {
	_, week := t.ISOWeek()
	return DimDate{
		DateID:     DateID(t),
		FullDate:   t,
		Year:       t.Year(),
		Quarter:    (int(t.Month())-1)/3 + 1,
		Month:      int(t.Month()),
		Day:        t.Day(),
		DayName:    t.Weekday().String(),
		WeekOfYear: week,
	}
}

// DateID is the YYYYMMDD surrogate key for a calendar date.
func DateID(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DimAddress is one unique country/region/state/city/postal combination.
type DimAddress struct {
	AddressID       int64  `json:"address_id" db:"address_id"`
	Country         string `json:"country" db:"country"`
	Region          string `json:"region" db:"region"`
	StateOrProvince string `json:"state_or_province" db:"state_or_province"`
	City            string `json:"city" db:"city"`
	PostalCode      string `json:"postal_code" db:"postal_code"`
}

type DimCustomer struct {
	CustomerKey     string         `json:"customer_key" db:"customer_key"`
	CustomerName    *string        `json:"customer_name,omitempty" db:"customer_name"`
	CustomerSegment *string        `json:"customer_segment,omitempty" db:"customer_segment"`
	MaritalStatus   *MaritalStatus `json:"marital_status,omitempty" db:"marital_status"`
	Gender          *Gender        `json:"gender,omitempty" db:"gender"`
	DOBID           *int           `json:"dob_id,omitempty" db:"dob_id"`
	AddressID       *int64         `json:"address_id,omitempty" db:"address_id"`
}

type DimPolicy struct {
	PolicyID       string  `json:"policy_id" db:"policy_id"`
	PolicyName     *string `json:"policy_name,omitempty" db:"policy_name"`
	PolicyTypeID   *string `json:"policy_type_id,omitempty" db:"policy_type_id"`
	PolicyType     *string `json:"policy_type,omitempty" db:"policy_type"`
	PolicyTypeDesc *string `json:"policy_type_desc,omitempty" db:"policy_type_desc"`
	PolicyTerm     *string `json:"policy_term,omitempty" db:"policy_term"`
}

// FactPolicyPayment is one measure row in fact_policy_payments. Fee columns
// start null and are written by the late-fee engine pass.
type FactPolicyPayment struct {
	FactID                   int64               `json:"fact_id" db:"fact_id"`
	CustomerKey              string              `json:"customer_key" db:"customer_key"`
	PolicyID                 string              `json:"policy_id" db:"policy_id"`
	AddressID                *int64              `json:"address_id,omitempty" db:"address_id"`
	EffectiveStartDateID     *int                `json:"effective_start_date_id,omitempty" db:"effective_start_date_id"`
	EffectiveEndDateID       *int                `json:"effective_end_date_id,omitempty" db:"effective_end_date_id"`
	PolicyStartDateID        *int                `json:"policy_start_date_id,omitempty" db:"policy_start_date_id"`
	PolicyEndDateID          *int                `json:"policy_end_date_id,omitempty" db:"policy_end_date_id"`
	NextPremiumDateID        *int                `json:"next_premium_date_id,omitempty" db:"next_premium_date_id"`
	ActualPremiumPaidDateID  *int                `json:"actual_premium_paid_date_id,omitempty" db:"actual_premium_paid_date_id"`
	PremiumAmt               decimal.NullDecimal `json:"premium_amt" db:"premium_amt"`
	TotalPolicyAmt           decimal.NullDecimal `json:"total_policy_amt" db:"total_policy_amt"`
	PremiumAmtPaidTillDate   decimal.NullDecimal `json:"premium_amt_paid_tilldate" db:"premium_amt_paid_tilldate"`
	DaysDelay                *int                `json:"days_delay,omitempty" db:"days_delay"`
	FlatFee                  decimal.NullDecimal `json:"flat_fee" db:"flat_fee"`
	PercentageFee            decimal.NullDecimal `json:"percentage_fee" db:"percentage_fee"`
	LateFeeAmount            decimal.NullDecimal `json:"late_fee_amount" db:"late_fee_amount"`
	NoRuleMatched            bool                `json:"no_rule_matched" db:"no_rule_matched"`
}
