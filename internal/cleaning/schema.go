package cleaning

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
)

// Canonical column identifiers of the standardized layout.
const (
	ColCustomerID          = "customer_id"
	ColCustomerName        = "customer_name"
	ColCustomerFirstName   = "customer_first_name"
	ColCustomerMiddleName  = "customer_middle_name"
	ColCustomerLastName    = "customer_last_name"
	ColCustomerSegment     = "customer_segment"
	ColMaritalStatus       = "marital_status"
	ColGender              = "gender"
	ColDOB                 = "dob"
	ColEffectiveStartDt    = "effective_start_dt"
	ColEffectiveEndDt      = "effective_end_dt"
	ColPolicyTypeID        = "policy_type_id"
	ColPolicyType          = "policy_type"
	ColPolicyTypeDesc      = "policy_type_desc"
	ColPolicyID            = "policy_id"
	ColPolicyName          = "policy_name"
	ColPremiumAmt          = "premium_amt"
	ColPolicyTerm          = "policy_term"
	ColPolicyStartDt       = "policy_start_dt"
	ColPolicyEndDt         = "policy_end_dt"
	ColNextPremiumDt       = "next_premium_dt"
	ColActualPremiumPaidDt = "actual_premium_paid_dt"
	ColCountry             = "country"
	ColRegion              = "region"
	ColStateOrProvince     = "state_or_province"
	ColCity                = "city"
	ColPostalCode          = "postal_code"
	ColTotalPolicyAmt      = "total_policy_amt"
	ColPremiumPaidTillDate = "premium_amt_paid_tilldate"
)

// candidateColumns lists, per canonical column, the known raw-name variants
// in coalesce priority order. The canonical name is always its own first
// candidate, which keeps resolution idempotent: already-canonical input
// maps onto itself.
var candidateColumns = map[string][]string{
	ColCustomerID:          {"customer_id", "cust_id", "id"},
	ColCustomerName:        {"customer_name", "customer_full_name", "customer"},
	ColCustomerFirstName:   {"customer_first_name", "customer_firstname", "first_name"},
	ColCustomerMiddleName:  {"customer_middle_name", "customer_middlename", "middle_name"},
	ColCustomerLastName:    {"customer_last_name", "customer_lastname", "last_name"},
	ColCustomerSegment:     {"customer_segment", "segment"},
	ColMaritalStatus:       {"marital_status", "maritial_status", "maritalstatus"},
	ColGender:              {"gender", "sex"},
	ColDOB:                 {"dob", "date_of_birth", "birth_date"},
	ColEffectiveStartDt:    {"effective_start_dt", "effective_start_date", "effective_start"},
	ColEffectiveEndDt:      {"effective_end_dt", "effective_end_date", "effective_end"},
	ColPolicyTypeID:        {"policy_type_id", "policy_typeid"},
	ColPolicyType:          {"policy_type"},
	ColPolicyTypeDesc:      {"policy_type_desc", "policytypedesc"},
	ColPolicyID:            {"policy_id", "policyid"},
	ColPolicyName:          {"policy_name"},
	ColPremiumAmt:          {"premium_amt", "premium_amount", "premium_amt_paid", "amount"},
	ColPolicyTerm:          {"policy_term", "term"},
	ColPolicyStartDt:       {"policy_start_dt", "policy_start_date", "policy_start"},
	ColPolicyEndDt:         {"policy_end_dt", "policy_end_date", "policy_end"},
	ColNextPremiumDt:       {"next_premium_dt", "next_premium_date", "next_premium"},
	ColActualPremiumPaidDt: {"actual_premium_paid_dt", "actual_premium_paid_date", "actual_premium_date", "payment_date"},
	ColCountry:             {"country"},
	ColRegion:              {"region", "region_1", "state_region", "zone"},
	ColStateOrProvince:     {"state_or_province", "state", "province"},
	ColCity:                {"city"},
	ColPostalCode:          {"postal_code", "postalcode", "zip", "zipcode"},
	ColTotalPolicyAmt:      {"total_policy_amt", "total_policy_amount"},
	ColPremiumPaidTillDate: {"premium_amt_paid_tilldate", "premium_amt_paid_till_date"},
}

// requiredConcepts name the structural concepts a run cannot proceed
// without: at least one date column and at least one amount column must be
// recognizable somewhere in the input, since no normalizer can synthesize a
// missing concept.
var requiredConcepts = map[string][]string{
	"date":   {ColDOB, ColEffectiveStartDt, ColEffectiveEndDt, ColPolicyStartDt, ColPolicyEndDt, ColNextPremiumDt, ColActualPremiumPaidDt},
	"amount": {ColPremiumAmt, ColTotalPolicyAmt, ColPremiumPaidTillDate},
}

var nonWordChars = regexp.MustCompile(`[^\w]`)
var whitespace = regexp.MustCompile(`\s+`)

// NormalizeColumn lowercases a raw column name, replaces internal
// whitespace with underscores and strips remaining non-word characters.
func NormalizeColumn(name string) string {
	c := strings.TrimSpace(name)
	c = whitespace.ReplaceAllString(c, "_")
	c = nonWordChars.ReplaceAllString(c, "")
	return strings.ToLower(c)
}

// variantToCanonical is derived once from candidateColumns: normalized
// variant name -> (canonical, priority rank).
type variantRank struct {
	canonical string
	rank      int
}

var variantToCanonical = func() map[string]variantRank {
	m := make(map[string]variantRank)
	for canonical, variants := range candidateColumns {
		for rank, v := range variants {
			m[NormalizeColumn(v)] = variantRank{canonical: canonical, rank: rank}
		}
	}
	return m
}()

// ColumnMapping is the resolved raw -> canonical column mapping for one
// batch of source files.
type ColumnMapping struct {
	// sources holds, per canonical column, the raw column names that feed
	// it, ordered by coalesce priority.
	sources map[string][]string
	raw     map[string]string
}

// Canonical returns the canonical column a raw name resolved to.
func (m *ColumnMapping) Canonical(rawName string) (string, bool) {
	c, ok := m.raw[rawName]
	return c, ok
}

// Sources returns the raw columns feeding one canonical column, in
// coalesce priority order.
func (m *ColumnMapping) Sources(canonical string) []string {
	return m.sources[canonical]
}

// Value coalesces a canonical column's value for one row: the first
// non-blank value across the mapped raw columns wins, later duplicates are
// dropped.
func (m *ColumnMapping) Value(row map[string]string, canonical string) string {
	for _, rawName := range m.sources[canonical] {
		if v, ok := row[rawName]; ok && !IsBlank(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ResolveColumns maps every recognizable raw column name across the merged
// input onto exactly one canonical column. Resolution is deterministic and
// idempotent; duplicate raw spellings of one concept collapse into a single
// canonical column ordered by the fixed candidate priority. It fails only
// when a required structural concept is entirely absent.
func ResolveColumns(rawNames []string) (*ColumnMapping, error) {
	m := &ColumnMapping{
		sources: make(map[string][]string),
		raw:     make(map[string]string),
	}

	type entry struct {
		rawName string
		rank    int
		pos     int
	}
	byCanonical := make(map[string][]entry)

	for pos, rawName := range rawNames {
		normed := NormalizeColumn(rawName)
		vr, ok := variantToCanonical[normed]
		if !ok {
			// Unmapped columns keep their normalized spelling so nothing
			// silently disappears from the mapping.
			m.raw[rawName] = normed
			continue
		}
		m.raw[rawName] = vr.canonical
		byCanonical[vr.canonical] = append(byCanonical[vr.canonical], entry{rawName: rawName, rank: vr.rank, pos: pos})
	}

	for canonical, entries := range byCanonical {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].rank != entries[j].rank {
				return entries[i].rank < entries[j].rank
			}
			return entries[i].pos < entries[j].pos
		})
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.rawName)
		}
		m.sources[canonical] = names
		if len(names) > 1 {
			log.Printf("[SchemaUnifier] %d raw columns collapse into %s: %v (coalesced by priority, later duplicates dropped)",
				len(names), canonical, names)
		}
	}

	for concept, members := range requiredConcepts {
		found := false
		for _, col := range members {
			if len(m.sources[col]) > 0 {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("input has no recognizable %s column: correct the source extracts before re-running", concept)
		}
	}

	return m, nil
}
