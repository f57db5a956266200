package latefee

import (
	"testing"
	"time"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func regionPtr(r models.Region) *models.Region { return &r }

func monthPtr(m time.Month) *time.Month { return &m }

func intPtr(n int) *int { return &n }

func flatRule(value string) models.LateFeeRule {
	return models.LateFeeRule{Kind: models.FeeFlat, Value: decimal.RequireFromString(value)}
}

// ============================================================================
// TEST SUITE 1: RULE MATCHING
// ============================================================================

func TestMatches_AnyDimensions(t *testing.T) {
	rule := flatRule("25")
	assert.True(t, rule.Matches(models.RegionEast, time.January, 1))
	assert.True(t, rule.Matches(models.RegionWest, time.December, 365))
	assert.True(t, rule.Matches(models.RegionUnknown, time.June, 0), "an all-any rule matches everything")
}

func TestMatches_PinnedRegion(t *testing.T) {
	rule := flatRule("25")
	rule.Region = regionPtr(models.RegionEast)
	assert.True(t, rule.Matches(models.RegionEast, time.January, 5))
	assert.False(t, rule.Matches(models.RegionWest, time.January, 5))
}

func TestMatches_MonthWindow(t *testing.T) {
	rule := flatRule("25")
	rule.MonthFrom = monthPtr(time.March)
	rule.MonthTo = monthPtr(time.June)
	assert.False(t, rule.Matches(models.RegionEast, time.February, 5))
	assert.True(t, rule.Matches(models.RegionEast, time.March, 5))
	assert.True(t, rule.Matches(models.RegionEast, time.June, 5))
	assert.False(t, rule.Matches(models.RegionEast, time.July, 5))
}

func TestMatches_DaySlabHalfOpen(t *testing.T) {
	rule := flatRule("25")
	rule.MinDays = 10
	rule.MaxDays = intPtr(30)
	assert.False(t, rule.Matches(models.RegionEast, time.January, 9))
	assert.True(t, rule.Matches(models.RegionEast, time.January, 10), "min bound is inclusive")
	assert.True(t, rule.Matches(models.RegionEast, time.January, 29))
	assert.False(t, rule.Matches(models.RegionEast, time.January, 30), "max bound is exclusive")
}

// ============================================================================
// TEST SUITE 2: SPECIFICITY
// ============================================================================

func TestSpecificity(t *testing.T) {
	rule := flatRule("25")
	assert.Equal(t, 0, rule.Specificity())

	rule.Region = regionPtr(models.RegionEast)
	assert.Equal(t, 1, rule.Specificity())

	rule.MonthFrom = monthPtr(time.January)
	assert.Equal(t, 2, rule.Specificity())

	rule.MinDays = 10
	assert.Equal(t, 3, rule.Specificity())
}

func TestSpecificity_SlabCountsOnce(t *testing.T) {
	rule := flatRule("25")
	rule.MinDays = 10
	rule.MaxDays = intPtr(30)
	assert.Equal(t, 1, rule.Specificity(), "min and max days pin one dimension together")
}

// ============================================================================
// TEST SUITE 3: RESOLUTION
// ============================================================================

func TestResolve_MostSpecificWins(t *testing.T) {
	east := flatRule("10")
	east.Region = regionPtr(models.RegionEast)

	eastJanuary := flatRule("20")
	eastJanuary.Region = regionPtr(models.RegionEast)
	eastJanuary.MonthFrom = monthPtr(time.January)
	eastJanuary.MonthTo = monthPtr(time.January)

	repo := NewRepository([]models.LateFeeRule{east, eastJanuary})

	winner, ok := repo.Resolve(models.RegionEast, time.January, 5)
	assert.True(t, ok)
	assert.Equal(t, "20", winner.Value.String(), "region+month beats region alone")

	winner, ok = repo.Resolve(models.RegionEast, time.March, 5)
	assert.True(t, ok)
	assert.Equal(t, "10", winner.Value.String(), "outside the month window only the broader rule matches")
}

func TestResolve_TieBreaksToEarliestInsertion(t *testing.T) {
	first := flatRule("10")
	first.Region = regionPtr(models.RegionEast)
	second := flatRule("99")
	second.Region = regionPtr(models.RegionEast)

	repo := NewRepository([]models.LateFeeRule{first, second})

	winner, ok := repo.Resolve(models.RegionEast, time.January, 5)
	assert.True(t, ok)
	assert.Equal(t, 0, winner.Seq)
	assert.Equal(t, "10", winner.Value.String(), "equal specificity resolves to the earlier rule")
}

func TestResolve_NoMatch(t *testing.T) {
	east := flatRule("10")
	east.Region = regionPtr(models.RegionEast)
	repo := NewRepository([]models.LateFeeRule{east})

	_, ok := repo.Resolve(models.RegionWest, time.January, 5)
	assert.False(t, ok)
}

func TestNewRepository_AssignsSequence(t *testing.T) {
	repo := NewRepository([]models.LateFeeRule{flatRule("1"), flatRule("2"), flatRule("3")})
	rules := repo.Rules()
	for i, rule := range rules {
		assert.Equal(t, i, rule.Seq)
	}
}
