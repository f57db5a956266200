package cleaning

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
)

// Cleaner applies the schema unifier and field normalizers over a merged
// batch of raw records and deduplicates the result. Row-level defects
// degrade to null and are tallied; a run fails only when a required
// structural column is missing from the whole batch.
type Cleaner struct {
	workers int
}

// NewCleaner creates a cleaner that normalizes rows across the given number
// of worker goroutines. Workers operate on disjoint row partitions;
// deduplication always runs as a single sequential pass afterwards.
func NewCleaner(workers int) *Cleaner {
	if workers < 1 {
		workers = 1
	}
	return &Cleaner{workers: workers}
}

// Clean produces the ordered canonical dataset plus the cleaning report for
// one batch of day/region-merged raw records.
func (c *Cleaner) Clean(ctx context.Context, records []models.RawRecord) ([]models.CleanRecord, *models.CleaningReport, error) {
	mapping, err := ResolveColumns(collectColumns(records))
	if err != nil {
		return nil, nil, fmt.Errorf("schema resolution failed: %w", err)
	}

	report := models.NewCleaningReport()
	report.RowsIn = len(records)

	normalized := make([]models.CleanRecord, len(records))
	partials := c.normalizePartitions(ctx, mapping, records, normalized)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	for _, p := range partials {
		report.Merge(p)
	}

	// Dedup by natural key, first occurrence wins. Not partition-safe, so
	// always sequential.
	seen := make(map[string]struct{}, len(normalized))
	cleaned := make([]models.CleanRecord, 0, len(normalized))
	for _, rec := range normalized {
		key := rec.NaturalKey()
		if _, dup := seen[key]; dup {
			report.DuplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, rec)
	}
	report.RowsOut = len(cleaned)

	log.Printf("[Cleaner] rows_in=%d rows_out=%d duplicates_removed=%d", report.RowsIn, report.RowsOut, report.DuplicatesRemoved)
	return cleaned, report, nil
}

// normalizePartitions fans row normalization out over disjoint contiguous
// partitions and returns one partial report per partition. Counters are
// plain sums, so merge order does not matter.
func (c *Cleaner) normalizePartitions(ctx context.Context, mapping *ColumnMapping, records []models.RawRecord, out []models.CleanRecord) []*models.CleaningReport {
	workers := c.workers
	if workers > len(records) {
		workers = len(records)
	}
	if workers <= 1 {
		rep := models.NewCleaningReport()
		for i, raw := range records {
			out[i] = normalizeRecord(mapping, raw, rep)
		}
		return []*models.CleaningReport{rep}
	}

	partials := make([]*models.CleaningReport, workers)
	chunk := (len(records) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(records))
		partials[w] = models.NewCleaningReport()

		wg.Add(1)
		go func(rep *models.CleaningReport, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return
				}
				out[i] = normalizeRecord(mapping, records[i], rep)
			}
		}(partials[w], lo, hi)
	}
	wg.Wait()
	return partials
}

// normalizeRecord applies one field normalizer per canonical column and
// tallies every value that degraded to null.
func normalizeRecord(m *ColumnMapping, raw models.RawRecord, rep *models.CleaningReport) models.CleanRecord {
	row := raw.Fields
	rec := models.CleanRecord{
		SourceFile:  raw.SourceFile,
		DetectedDay: raw.DetectedDay,
	}

	rec.CustomerID = m.Value(row, ColCustomerID)
	if rec.CustomerID == "" {
		rep.CountNull(ColCustomerID)
	}
	rec.PolicyID = m.Value(row, ColPolicyID)
	if rec.PolicyID == "" {
		rep.CountNull(ColPolicyID)
	}

	if name, ok := ComposeName(
		m.Value(row, ColCustomerFirstName),
		m.Value(row, ColCustomerMiddleName),
		m.Value(row, ColCustomerLastName),
		m.Value(row, ColCustomerName),
	); ok {
		rec.CustomerName = &name
	} else {
		rep.CountNull(ColCustomerName)
	}

	rec.Gender = NormalizeGender(m.Value(row, ColGender))
	if rec.Gender == models.GenderUnknown && m.Value(row, ColGender) != "" {
		rep.CountNull(ColGender)
	}
	rec.MaritalStatus = NormalizeMaritalStatus(m.Value(row, ColMaritalStatus))
	if rec.MaritalStatus == models.MaritalUnknown && m.Value(row, ColMaritalStatus) != "" {
		rep.CountNull(ColMaritalStatus)
	}

	// Region falls back to the provenance region derived from the source
	// folder when the column itself is blank.
	regionRaw := m.Value(row, ColRegion)
	if regionRaw == "" {
		regionRaw = raw.Region
	}
	rec.Region = NormalizeRegion(regionRaw)
	if rec.Region == models.RegionUnknown && regionRaw != "" {
		rep.CountNull(ColRegion)
	}

	if v := m.Value(row, ColCountry); v != "" {
		country := NormalizeCountry(v)
		rec.Country = &country
	} else {
		rep.CountNull(ColCountry)
	}

	rec.CustomerSegment = BlankToNull(m.Value(row, ColCustomerSegment))
	rec.PolicyTypeID = BlankToNull(m.Value(row, ColPolicyTypeID))
	rec.PolicyType = BlankToNull(m.Value(row, ColPolicyType))
	rec.PolicyTypeDesc = BlankToNull(m.Value(row, ColPolicyTypeDesc))
	rec.PolicyName = BlankToNull(m.Value(row, ColPolicyName))
	rec.PolicyTerm = BlankToNull(m.Value(row, ColPolicyTerm))
	rec.StateOrProvince = BlankToNull(m.Value(row, ColStateOrProvince))
	rec.City = BlankToNull(m.Value(row, ColCity))
	rec.PostalCode = BlankToNull(m.Value(row, ColPostalCode))

	normDate := func(col string) models.NullDate {
		v := m.Value(row, col)
		d := NormalizeDate(v)
		if !d.Valid && v != "" {
			rep.CountNull(col)
		}
		return d
	}
	rec.DOB = normDate(ColDOB)
	rec.EffectiveStartDt = normDate(ColEffectiveStartDt)
	rec.EffectiveEndDt = normDate(ColEffectiveEndDt)
	rec.PolicyStartDt = normDate(ColPolicyStartDt)
	rec.PolicyEndDt = normDate(ColPolicyEndDt)
	rec.NextPremiumDt = normDate(ColNextPremiumDt)
	rec.ActualPremiumPaidDt = normDate(ColActualPremiumPaidDt)

	normAmount := func(col string) decimal.NullDecimal {
		v := m.Value(row, col)
		d := NormalizeAmount(v)
		if !d.Valid && v != "" {
			rep.CountNull(col)
		}
		return d
	}
	rec.PremiumAmt = normAmount(ColPremiumAmt)
	rec.TotalPolicyAmt = normAmount(ColTotalPolicyAmt)
	rec.PremiumPaidTillDate = normAmount(ColPremiumPaidTillDate)

	return rec
}

// collectColumns gathers the sorted union of raw column names across the
// batch so schema resolution is deterministic regardless of map iteration
// order.
func collectColumns(records []models.RawRecord) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Fields {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
