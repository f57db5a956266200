package latefee

import (
	"context"
	"sync"

	"insurance-etl/internal/models"

	"github.com/shopspring/decimal"
)

// Engine assigns late-fee amounts to premium payments from an immutable
// rule repository. Computation is idempotent: re-running on the same
// payment and rule set always yields the same amounts.
type Engine struct {
	repo *Repository
}

func NewEngine(repo *Repository) *Engine {
	return &Engine{repo: repo}
}

// ComputeFee resolves the single winning rule for one payment and writes
// flat_fee, percentage_fee and late_fee_amount in place. A payment that is
// not late gets a zero fee without any rule lookup; a late payment no rule
// covers gets a zero fee plus the no-rule-matched diagnostic flag.
func (e *Engine) ComputeFee(p *models.PremiumPayment) {
	p.FlatFee = decimal.Zero
	p.PercentageFee = decimal.Zero
	p.LateFeeAmount = decimal.Zero
	p.NoRuleMatched = false

	if p.LateDays <= 0 {
		return
	}

	rule, ok := e.repo.Resolve(p.Region, p.PaymentMonth, p.LateDays)
	if !ok {
		p.NoRuleMatched = true
		return
	}

	switch rule.Kind {
	case models.FeeFlat:
		p.FlatFee = rule.Value
	case models.FeePercentage:
		p.PercentageFee = p.PremiumAmt.Mul(rule.Value).Round(2)
	}
	p.LateFeeAmount = p.FlatFee.Add(p.PercentageFee)
}

// ComputeAll runs the engine over a batch, fanning out across the given
// number of goroutines. Rule lookup is read-only, so per-payment
// parallelism is safe. Returns how many payments were flagged with no
// applicable rule.
func (e *Engine) ComputeAll(ctx context.Context, payments []models.PremiumPayment, workers int) int {
	if workers < 1 {
		workers = 1
	}
	if workers > len(payments) {
		workers = len(payments)
	}

	if workers <= 1 {
		for i := range payments {
			e.ComputeFee(&payments[i])
		}
	} else {
		chunk := (len(payments) + workers - 1) / workers
		var wg sync.WaitGroup
		for w := range workers {
			lo := w * chunk
			hi := min(lo+chunk, len(payments))
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					if ctx.Err() != nil {
						return
					}
					e.ComputeFee(&payments[i])
				}
			}(lo, hi)
		}
		wg.Wait()
	}

	unmatched := 0
	for i := range payments {
		if payments[i].NoRuleMatched {
			unmatched++
		}
	}
	return unmatched
}
