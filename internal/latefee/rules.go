package latefee

import (
	"log"
	"time"

	"insurance-etl/internal/models"
)

// Repository holds the parsed late-fee rules. It is loaded once before any
// fee computation begins and never mutated afterwards, so concurrent
// lookups need no synchronization.
type Repository struct {
	rules []models.LateFeeRule
}

// NewRepository loads a rule collection, assigning each rule its insertion
// sequence. Sequence order is the documented tie-break for overlapping
// rules of equal specificity.
func NewRepository(rules []models.LateFeeRule) *Repository {
	copied := make([]models.LateFeeRule, len(rules))
	copy(copied, rules)
	for i := range copied {
		copied[i].Seq = i
	}
	return &Repository{rules: copied}
}

// Rules returns the loaded rules in insertion order.
func (r *Repository) Rules() []models.LateFeeRule {
	return r.rules
}

// FindCandidates returns every rule whose scope predicate is satisfied by
// the payment's region, month and late days. An "any" dimension always
// matches.
func (r *Repository) FindCandidates(region models.Region, month time.Month, lateDays int) []models.LateFeeRule {
	var candidates []models.LateFeeRule
	for _, rule := range r.rules {
		if rule.Matches(region, month, lateDays) {
			candidates = append(candidates, rule)
		}
	}
	return candidates
}

// Resolve picks the single winning rule for a payment: the most specific
// candidate, with equal specificity broken by insertion order (earliest
// wins). Returns ok=false when no rule matches.
func (r *Repository) Resolve(region models.Region, month time.Month, lateDays int) (models.LateFeeRule, bool) {
	candidates := r.FindCandidates(region, month, lateDays)
	if len(candidates) == 0 {
		return models.LateFeeRule{}, false
	}

	winner := candidates[0]
	for _, c := range candidates[1:] {
		if c.Specificity() > winner.Specificity() {
			winner = c
		}
	}
	if len(candidates) > 1 {
		log.Printf("[RuleRepository] %d candidate rules for region=%s month=%d late_days=%d; winner seq=%d specificity=%d (ties resolve to earliest insertion)",
			len(candidates), region, month, lateDays, winner.Seq, winner.Specificity())
	}
	return winner, true
}
