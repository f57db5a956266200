package models

import (
	"time"

	"github.com/google/uuid"
)

// CleaningReport summarizes one cleaning pass. Counters are plain sums so
// reports produced by parallel partitions can be merged in any order.
type CleaningReport struct {
	RowsIn            int            `json:"rows_in"`
	RowsOut           int            `json:"rows_out"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	NullsByField      map[string]int `json:"nulls_by_field"`
}

func NewCleaningReport() *CleaningReport {
	return &CleaningReport{NullsByField: make(map[string]int)}
}

// CountNull tallies one field value that degraded to the null sentinel.
func (r *CleaningReport) CountNull(field string) {
	r.NullsByField[field]++
}

// Merge folds another partial report into this one. Associative and
// order-independent, which is what makes partitioned cleaning safe.
func (r *CleaningReport) Merge(other *CleaningReport) {
	r.RowsIn += other.RowsIn
	r.RowsOut += other.RowsOut
	r.DuplicatesRemoved += other.DuplicatesRemoved
	for field, n := range other.NullsByField {
		r.NullsByField[field] += n
	}
}

// RunSummary is the persisted state of one pipeline run, checkpointed in
// Redis so a partial run can resume from the cleaned dataset.
type RunSummary struct {
	RunID          uuid.UUID       `json:"run_id"`
	Status         RunStatus       `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Cleaning       *CleaningReport `json:"cleaning,omitempty"`
	FactsLoaded    int             `json:"facts_loaded"`
	FeesComputed   int             `json:"fees_computed"`
	UnmatchedFees  int             `json:"unmatched_fees"`
	SkippedFiles   []string        `json:"skipped_files,omitempty"`
	FailureMessage *string         `json:"failure_message,omitempty"`
}
