package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical DD-MM-YYYY rendering every normalized date
// field is re-emitted in.
const DateLayout = "02-01-2006"

// RawRecord is one row exactly as it appeared in a source extract: an
// untyped column-name -> string-value mapping plus provenance attached by
// the ingest step. Never mutated after ingest.
type RawRecord struct {
	Fields      map[string]string `json:"fields"`
	Region      string            `json:"region"`
	SourceFile  string            `json:"source_file"`
	DetectedDay int               `json:"detected_day"`
}

// NullDate is a calendar date or the explicit null sentinel.
type NullDate struct {
	Time  time.Time
	Valid bool
}

func NewDate(t time.Time) NullDate {
	return NullDate{Time: t, Valid: true}
}

// String renders the date in the canonical DD-MM-YYYY layout, empty when null.
func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d NullDate) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time, nil
}

func (d *NullDate) Scan(src any) error {
	if src == nil {
		*d = NullDate{}
		return nil
	}
	t, ok := src.(time.Time)
	if !ok {
		return fmt.Errorf("cannot scan %T into NullDate", src)
	}
	*d = NullDate{Time: t, Valid: true}
	return nil
}

// CleanRecord is the canonical typed representation of one policy/payment
// row, following the 26-column standardized layout. Every field is either a
// valid typed value or its null sentinel (nil pointer, invalid NullDate,
// invalid NullDecimal) -- never an empty string or raw unparsed text.
type CleanRecord struct {
	CustomerID          string              `json:"customer_id"`
	CustomerName        *string             `json:"customer_name,omitempty"`
	CustomerSegment     *string             `json:"customer_segment,omitempty"`
	MaritalStatus       MaritalStatus       `json:"marital_status"`
	Gender              Gender              `json:"gender"`
	DOB                 NullDate            `json:"dob"`
	EffectiveStartDt    NullDate            `json:"effective_start_dt"`
	EffectiveEndDt      NullDate            `json:"effective_end_dt"`
	PolicyTypeID        *string             `json:"policy_type_id,omitempty"`
	PolicyType          *string             `json:"policy_type,omitempty"`
	PolicyTypeDesc      *string             `json:"policy_type_desc,omitempty"`
	PolicyID            string              `json:"policy_id"`
	PolicyName          *string             `json:"policy_name,omitempty"`
	PremiumAmt          decimal.NullDecimal `json:"premium_amt"`
	PolicyTerm          *string             `json:"policy_term,omitempty"`
	PolicyStartDt       NullDate            `json:"policy_start_dt"`
	PolicyEndDt         NullDate            `json:"policy_end_dt"`
	NextPremiumDt       NullDate            `json:"next_premium_dt"`
	ActualPremiumPaidDt NullDate            `json:"actual_premium_paid_dt"`
	Country             *string             `json:"country,omitempty"`
	Region              Region              `json:"region"`
	StateOrProvince     *string             `json:"state_or_province,omitempty"`
	City                *string             `json:"city,omitempty"`
	PostalCode          *string             `json:"postal_code,omitempty"`
	TotalPolicyAmt      decimal.NullDecimal `json:"total_policy_amt"`
	PremiumPaidTillDate decimal.NullDecimal `json:"premium_amt_paid_tilldate"`

	SourceFile  string `json:"source_file"`
	DetectedDay int    `json:"detected_day"`
}

// NaturalKey identifies a record for deduplication: customer identity +
// policy identity + payment date.
func (r CleanRecord) NaturalKey() string {
	return strings.Join([]string{r.CustomerID, r.PolicyID, r.ActualPremiumPaidDt.String()}, "||")
}

// DaysDelay is days between the premium due date and the actual paid date.
// Positive means the payment was late. Null when either date is missing.
func (r CleanRecord) DaysDelay() (int, bool) {
	if !r.NextPremiumDt.Valid || !r.ActualPremiumPaidDt.Valid {
		return 0, false
	}
	return int(r.ActualPremiumPaidDt.Time.Sub(r.NextPremiumDt.Time).Hours() / 24), true
}
