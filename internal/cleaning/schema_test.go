package cleaning

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumn(t *testing.T) {
	assert.Equal(t, "customer_id", NormalizeColumn("  Customer ID "))
	assert.Equal(t, "premium_amt", NormalizeColumn("Premium Amt"))
	assert.Equal(t, "premiumamt", NormalizeColumn("Premium-Amt"), "non-word characters are stripped, not converted")
	assert.Equal(t, "policy_start_dt", NormalizeColumn("Policy  Start\tDt"))
	assert.Equal(t, "dob", NormalizeColumn("DOB"))
}

func TestResolveColumns_SynonymCollapse(t *testing.T) {
	mapping, err := ResolveColumns([]string{"Cust ID", "Payment Date", "Premium Amount", "Zip"})
	assert.NoError(t, err)

	canonical, ok := mapping.Canonical("Cust ID")
	assert.True(t, ok)
	assert.Equal(t, ColCustomerID, canonical)

	canonical, _ = mapping.Canonical("Payment Date")
	assert.Equal(t, ColActualPremiumPaidDt, canonical)

	canonical, _ = mapping.Canonical("Premium Amount")
	assert.Equal(t, ColPremiumAmt, canonical)

	canonical, _ = mapping.Canonical("Zip")
	assert.Equal(t, ColPostalCode, canonical)
}

func TestResolveColumns_Idempotent(t *testing.T) {
	// Canonical names resolve onto themselves, so a second pass over
	// already-unified headers changes nothing.
	mapping, err := ResolveColumns([]string{ColCustomerID, ColActualPremiumPaidDt, ColPremiumAmt})
	assert.NoError(t, err)

	for _, col := range []string{ColCustomerID, ColActualPremiumPaidDt, ColPremiumAmt} {
		canonical, ok := mapping.Canonical(col)
		assert.True(t, ok)
		assert.Equal(t, col, canonical)
		assert.Equal(t, []string{col}, mapping.Sources(col))
	}
}

func TestResolveColumns_CoalescePriority(t *testing.T) {
	// Both the canonical spelling and a variant feed the same column; the
	// canonical one has higher priority regardless of position.
	mapping, err := ResolveColumns([]string{"premium_amount", "premium_amt", "payment_date"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"premium_amt", "premium_amount"}, mapping.Sources(ColPremiumAmt))
}

func TestColumnMapping_ValueCoalesce(t *testing.T) {
	mapping, err := ResolveColumns([]string{"premium_amt", "premium_amount", "payment_date"})
	assert.NoError(t, err)

	// First non-blank source wins.
	row := map[string]string{"premium_amt": "nan", "premium_amount": " 120.50 "}
	assert.Equal(t, "120.50", mapping.Value(row, ColPremiumAmt))

	row = map[string]string{"premium_amt": "99", "premium_amount": "120.50"}
	assert.Equal(t, "99", mapping.Value(row, ColPremiumAmt))

	row = map[string]string{"premium_amt": "None", "premium_amount": ""}
	assert.Equal(t, "", mapping.Value(row, ColPremiumAmt))
}

func TestResolveColumns_MissingDateConcept(t *testing.T) {
	_, err := ResolveColumns([]string{"gender", "country", "premium_amt"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestResolveColumns_MissingAmountConcept(t *testing.T) {
	_, err := ResolveColumns([]string{"gender", "country", "payment_date"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestResolveColumns_LogsCollapsedDuplicates(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	_, err := ResolveColumns([]string{"premium_amt", "premium_amount", "payment_date"})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "premium_amt", "merged duplicate columns leave an audit line")
	assert.Contains(t, buf.String(), "premium_amount")
}

func TestResolveColumns_UnmappedColumnKept(t *testing.T) {
	mapping, err := ResolveColumns([]string{"Internal Notes", "payment_date", "premium_amt"})
	assert.NoError(t, err)

	canonical, ok := mapping.Canonical("Internal Notes")
	assert.True(t, ok)
	assert.Equal(t, "internal_notes", canonical, "unmapped columns keep their normalized spelling")
}
