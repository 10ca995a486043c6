package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalsCascadesValueTotal(t *testing.T) {
	totals := NewTotals()

	totals.Set(ExpensesTotal, 12.5)
	assert.Equal(t, 12.5, totals.Get(ValueTotal))

	totals.Set(LaborTotal, 30)
	assert.Equal(t, 42.5, totals.Get(ValueTotal))

	totals.Set(ExpensesTotal, 0)
	assert.Equal(t, 30.0, totals.Get(ValueTotal))
}

func TestTotalsCascadesFeesTotal(t *testing.T) {
	totals := NewTotals()
	assert.Equal(t, 0.2, totals.Get(FeesTotal))

	totals.SetMany(map[Field]float64{
		ProcessingFeeTotal:    0.62,
		TransactionFeeTotal:   0.75,
		ShippingLabelFeeTotal: 0.33,
		ListingPrice:          11.58,
	})
	assert.Equal(t, 1.9, totals.Get(FeesTotal))

	totals.Set(OffsiteAdFeeTotal, 1.1)
	assert.Equal(t, 3.0, totals.Get(FeesTotal))
}

func TestTotalsIgnoresWritesToDerivedFields(t *testing.T) {
	totals := NewTotals()
	totals.Set(ExpensesTotal, 5)

	totals.Set(ValueTotal, 100)
	totals.Set(FeesTotal, 100)

	assert.Equal(t, 5.0, totals.Get(ValueTotal))
	assert.Equal(t, 0.2, totals.Get(FeesTotal))
}

func TestTotalsRoundsToCents(t *testing.T) {
	totals := NewTotals()
	totals.Set(ExpensesTotal, 10.005)
	assert.Equal(t, 10.01, totals.Get(ExpensesTotal))
}

func TestTotalsFormatted(t *testing.T) {
	totals := NewTotals()
	totals.Set(LaborTotal, 7)

	out := totals.Formatted()
	assert.Len(t, out, len(Fields))
	assert.Equal(t, "7.00", out["laborTotal"])
	assert.Equal(t, "7.00", out["valueTotal"])
	assert.Equal(t, "0.20", out["listingFeeTotal"])
	assert.Equal(t, "0.00", out["qcReturn"])
}

func TestTotalsApplyBreakdown(t *testing.T) {
	totals := NewTotals()
	totals.Set(ExpensesTotal, 10)

	b, err := Resolve(Input{ValueTotal: 10, ExpensesTotal: 10, SalesTaxRate: 0.0752, ListingFeeFlat: 0.2})
	assert.NoError(t, err)
	totals.ApplyBreakdown(b)

	assert.Equal(t, 11.58, totals.Get(ListingPrice))
	assert.Equal(t, b.FeesTotal, totals.Get(FeesTotal))
	assert.Equal(t, 10.01, totals.Get(ReturnTotal))

	clone := totals.Clone()
	totals.Set(ExpensesTotal, 0)
	assert.Equal(t, 10.0, clone.Get(ValueTotal))
}
