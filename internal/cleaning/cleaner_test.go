package cleaning

import (
	"bytes"
	"context"
	"testing"

	"insurance-etl/internal/models"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func rawRecord(fields map[string]string) models.RawRecord {
	return models.RawRecord{
		Fields:      fields,
		Region:      "East",
		SourceFile:  "Insurance_details_US_East_day 1.csv",
		DetectedDay: 1,
	}
}

// ============================================================================
// TEST SUITE 1: END-TO-END CLEANING
// ============================================================================

func TestClean_MixedDefectsScenario(t *testing.T) {
	records := []models.RawRecord{
		rawRecord(map[string]string{
			"customer_id": "C1", "policy_id": "P1", "gender": "m",
			"country": "US", "premium_amt": "$4,500.00", "payment_date": "2024-03-05",
		}),
		rawRecord(map[string]string{
			"customer_id": "C2", "policy_id": "P2", "gender": "FEMALE",
			"country": "u.s.a.", "premium_amt": "abc", "payment_date": "2024-03-06",
		}),
		rawRecord(map[string]string{
			"customer_id": "C3", "policy_id": "P3", "gender": "x",
			"country": "Canada", "premium_amt": "-10", "payment_date": "not a date",
		}),
	}

	cleaned, report, err := NewCleaner(1).Clean(context.Background(), records)
	assert.NoError(t, err)
	assert.Len(t, cleaned, 3)

	assert.Equal(t, models.GenderMale, cleaned[0].Gender)
	assert.Equal(t, "USA", *cleaned[0].Country)
	assert.Equal(t, "4500.00", cleaned[0].PremiumAmt.Decimal.StringFixed(2))
	assert.Equal(t, "05-03-2024", cleaned[0].ActualPremiumPaidDt.String())

	assert.Equal(t, models.GenderFemale, cleaned[1].Gender)
	assert.Equal(t, "USA", *cleaned[1].Country)
	assert.False(t, cleaned[1].PremiumAmt.Valid, "unparseable amount degrades to null")

	assert.Equal(t, models.GenderUnknown, cleaned[2].Gender)
	assert.Equal(t, "Canada", *cleaned[2].Country, "unrecognized country passes through")
	assert.False(t, cleaned[2].PremiumAmt.Valid, "negative amount degrades to null")
	assert.False(t, cleaned[2].ActualPremiumPaidDt.Valid)

	assert.Equal(t, 3, report.RowsIn)
	assert.Equal(t, 3, report.RowsOut)
	assert.Equal(t, 0, report.DuplicatesRemoved)
	assert.Equal(t, 1, report.NullsByField[ColGender], "only the unrecognized non-empty gender counts")
	assert.Equal(t, 2, report.NullsByField[ColPremiumAmt])
	assert.Equal(t, 1, report.NullsByField[ColActualPremiumPaidDt])
}

func TestClean_DedupFirstWins(t *testing.T) {
	dup := map[string]string{
		"customer_id": "C1", "policy_id": "P1",
		"premium_amt": "100", "payment_date": "2024-03-05",
	}
	records := []models.RawRecord{
		rawRecord(dup),
		rawRecord(map[string]string{
			"customer_id": "C1", "policy_id": "P1",
			"premium_amt": "999", "payment_date": "2024-03-05",
		}),
		rawRecord(map[string]string{
			"customer_id": "C1", "policy_id": "P1",
			"premium_amt": "100", "payment_date": "2024-03-06",
		}),
	}

	cleaned, report, err := NewCleaner(1).Clean(context.Background(), records)
	assert.NoError(t, err)
	assert.Len(t, cleaned, 2, "same customer+policy+payment date is one duplicate")
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, "100.00", cleaned[0].PremiumAmt.Decimal.StringFixed(2), "first occurrence wins")
}

func TestClean_RegionFallsBackToProvenance(t *testing.T) {
	records := []models.RawRecord{
		rawRecord(map[string]string{
			"customer_id": "C1", "policy_id": "P1",
			"premium_amt": "100", "payment_date": "2024-03-05",
		}),
	}

	cleaned, _, err := NewCleaner(1).Clean(context.Background(), records)
	assert.NoError(t, err)
	assert.Equal(t, models.RegionEast, cleaned[0].Region, "region derives from the source folder when the column is blank")
}

func TestClean_StructuralDefectFails(t *testing.T) {
	records := []models.RawRecord{
		rawRecord(map[string]string{"gender": "m", "country": "US", "premium_amt": "100"}),
	}

	_, _, err := NewCleaner(1).Clean(context.Background(), records)
	assert.Error(t, err, "a batch without any date column cannot proceed")
	assert.Contains(t, err.Error(), "date")
}

// ============================================================================
// TEST SUITE 2: PARALLEL PARTITIONS
// ============================================================================

func TestClean_ParallelMatchesSequential(t *testing.T) {
	var records []models.RawRecord
	for i := range 100 {
		records = append(records, rawRecord(map[string]string{
			"customer_id":  string(rune('A' + i%26)),
			"policy_id":    "P1",
			"premium_amt":  "100",
			"payment_date": "2024-03-05",
		}))
	}

	seqClean, seqReport, err := NewCleaner(1).Clean(context.Background(), records)
	assert.NoError(t, err)
	parClean, parReport, err := NewCleaner(4).Clean(context.Background(), records)
	assert.NoError(t, err)

	assert.Equal(t, seqClean, parClean, "partitioned cleaning preserves input order and content")
	assert.Equal(t, seqReport, parReport, "merged partial reports equal the sequential report")
}

// ============================================================================
// TEST SUITE 3: CHECKPOINT ROUND TRIP
// ============================================================================

func TestWriteReadCSV_RoundTrip(t *testing.T) {
	records := []models.RawRecord{
		rawRecord(map[string]string{
			"customer_id": "C1", "policy_id": "P1", "customer_name": "Ada Lovelace",
			"gender": "f", "marital_status": "married", "country": "US",
			"premium_amt": "$4,500.00", "payment_date": "2024-03-05",
			"next_premium_dt": "2024-03-01", "city": "Boston",
		}),
	}
	cleaned, _, err := NewCleaner(1).Clean(context.Background(), records)
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, WriteCSV(&buf, cleaned))

	restored, err := ReadCSV(&buf)
	assert.NoError(t, err)
	assert.Equal(t, cleaned, restored)
}
