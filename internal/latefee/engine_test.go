package latefee

import (
	"context"
	"testing"
	"time"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func payment(region models.Region, month time.Month, premium string, lateDays int) models.PremiumPayment {
	return models.PremiumPayment{
		Region:       region,
		PaymentMonth: month,
		PremiumAmt:   decimal.RequireFromString(premium),
		LateDays:     lateDays,
	}
}

func TestComputeFee_NotLate(t *testing.T) {
	// Even with an all-any rule loaded, an on-time payment gets zero fees.
	engine := NewEngine(NewRepository([]models.LateFeeRule{flatRule("25")}))

	for _, lateDays := range []int{0, -3} {
		p := payment(models.RegionEast, time.January, "100", lateDays)
		engine.ComputeFee(&p)
		assert.True(t, p.LateFeeAmount.IsZero(), "late_days=%d must not be charged", lateDays)
		assert.False(t, p.NoRuleMatched)
	}
}

func TestComputeFee_FlatFee(t *testing.T) {
	engine := NewEngine(NewRepository([]models.LateFeeRule{flatRule("25")}))

	p := payment(models.RegionEast, time.January, "100", 5)
	engine.ComputeFee(&p)

	assert.Equal(t, "25.00", p.FlatFee.StringFixed(2))
	assert.True(t, p.PercentageFee.IsZero())
	assert.Equal(t, "25.00", p.LateFeeAmount.StringFixed(2))
}

func TestComputeFee_PercentageFee(t *testing.T) {
	rule := models.LateFeeRule{Kind: models.FeePercentage, Value: decimal.RequireFromString("0.015")}
	engine := NewEngine(NewRepository([]models.LateFeeRule{rule}))

	p := payment(models.RegionEast, time.January, "4500", 5)
	engine.ComputeFee(&p)

	assert.True(t, p.FlatFee.IsZero())
	assert.Equal(t, "67.50", p.PercentageFee.StringFixed(2), "1.5% of 4500, rounded to cents")
	assert.Equal(t, "67.50", p.LateFeeAmount.StringFixed(2))
}

func TestComputeFee_NoRuleMatched(t *testing.T) {
	east := flatRule("25")
	east.Region = regionPtr(models.RegionEast)
	engine := NewEngine(NewRepository([]models.LateFeeRule{east}))

	p := payment(models.RegionWest, time.January, "100", 5)
	engine.ComputeFee(&p)

	assert.True(t, p.NoRuleMatched, "a late payment no rule covers is flagged")
	assert.True(t, p.LateFeeAmount.IsZero())
}

func TestComputeFee_Idempotent(t *testing.T) {
	engine := NewEngine(NewRepository([]models.LateFeeRule{flatRule("25")}))

	p := payment(models.RegionEast, time.January, "100", 5)
	engine.ComputeFee(&p)
	first := p
	engine.ComputeFee(&p)

	assert.Equal(t, first, p, "recomputation must not accumulate fees")
}

func TestComputeAll_CountsUnmatched(t *testing.T) {
	east := flatRule("25")
	east.Region = regionPtr(models.RegionEast)
	engine := NewEngine(NewRepository([]models.LateFeeRule{east}))

	payments := []models.PremiumPayment{
		payment(models.RegionEast, time.January, "100", 5),
		payment(models.RegionWest, time.January, "100", 5),
		payment(models.RegionWest, time.January, "100", 0),
	}

	unmatched := engine.ComputeAll(context.Background(), payments, 1)
	assert.Equal(t, 1, unmatched, "on-time payments are never flagged")
	assert.Equal(t, "25.00", payments[0].LateFeeAmount.StringFixed(2))
}

func TestComputeAll_ParallelMatchesSequential(t *testing.T) {
	east := flatRule("25")
	east.Region = regionPtr(models.RegionEast)
	pct := models.LateFeeRule{Kind: models.FeePercentage, Value: decimal.RequireFromString("0.02")}
	engine := NewEngine(NewRepository([]models.LateFeeRule{east, pct}))

	regions := []models.Region{models.RegionEast, models.RegionWest, models.RegionSouth}
	var seq, par []models.PremiumPayment
	for i := range 50 {
		p := payment(regions[i%3], time.Month(i%12+1), "100", i%7)
		seq = append(seq, p)
		par = append(par, p)
	}

	seqUnmatched := engine.ComputeAll(context.Background(), seq, 1)
	parUnmatched := engine.ComputeAll(context.Background(), par, 4)

	assert.Equal(t, seqUnmatched, parUnmatched)
	assert.Equal(t, seq, par, "per-payment fan-out yields the same fees in order")
}
