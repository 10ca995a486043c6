package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/listprice/internal/fees"
)

// Field names a value of the totals panel. The names are the keys of the
// output map handed to the UI.
type Field string

const (
	ExpensesTotal         Field = "expensesTotal"
	LaborTotal            Field = "laborTotal"
	LaborHoursTotal       Field = "laborHoursTotal"
	ValueTotal            Field = "valueTotal"
	ListingFeeTotal       Field = "listingFeeTotal"
	ProcessingFeeTotal    Field = "processingFeeTotal"
	TransactionFeeTotal   Field = "transactionFeeTotal"
	ShippingLabelFeeTotal Field = "shippingLabelFeeTotal"
	OffsiteAdFeeTotal     Field = "offsiteAdFeeTotal"
	FeesTotal             Field = "feesTotal"
	ListingPrice          Field = "listingPrice"
	TaxTotal              Field = "taxTotal"
	CustomerTotal         Field = "customerTotal"
	ReturnTotal           Field = "returnTotal"
	IncomeTaxTotal        Field = "incomeTaxTotal"
	QCReturn              Field = "qcReturn"
)

// Fields lists every total in display order.
var Fields = []Field{
	ExpensesTotal, LaborTotal, LaborHoursTotal, ValueTotal,
	ListingFeeTotal, ProcessingFeeTotal, TransactionFeeTotal, ShippingLabelFeeTotal, OffsiteAdFeeTotal, FeesTotal,
	ListingPrice, TaxTotal, CustomerTotal, ReturnTotal, IncomeTaxTotal, QCReturn,
}

var (
	valueTotalInputs = []Field{ExpensesTotal, LaborTotal}
	feeFields        = []Field{ListingFeeTotal, ProcessingFeeTotal, TransactionFeeTotal, ShippingLabelFeeTotal, OffsiteAdFeeTotal}
)

// dependents maps a field to the derived totals that must be recomputed after
// it is written. Derived totals are only ever written by their recompute func.
var dependents = map[Field][]Field{
	ExpensesTotal:         {ValueTotal},
	LaborTotal:            {ValueTotal},
	ListingFeeTotal:       {FeesTotal},
	ProcessingFeeTotal:    {FeesTotal},
	TransactionFeeTotal:   {FeesTotal},
	ShippingLabelFeeTotal: {FeesTotal},
	OffsiteAdFeeTotal:     {FeesTotal},
}

var recompute = map[Field]func(*Totals){
	ValueTotal: func(t *Totals) { t.values[ValueTotal] = t.sum(valueTotalInputs) },
	FeesTotal:  func(t *Totals) { t.values[FeesTotal] = t.sum(feeFields) },
}

// Totals is the in-memory state of every displayed total. Values are kept in
// cents, as rendered.
type Totals struct {
	values map[Field]decimal.Decimal
}

// NewTotals returns totals for an empty form.
func NewTotals() *Totals {
	t := &Totals{values: make(map[Field]decimal.Decimal, len(Fields))}
	t.Set(ListingFeeTotal, fees.ListingFeeFlat)
	return t
}

// Get returns the value of f.
func (t *Totals) Get(f Field) float64 {
	return t.values[f].InexactFloat64()
}

// Set writes f and recomputes the totals that depend on it. Writes to derived
// totals are ignored.
func (t *Totals) Set(f Field, v float64) {
	t.SetMany(map[Field]float64{f: v})
}

// SetMany writes several fields, then recomputes each affected derived total
// once.
func (t *Totals) SetMany(values map[Field]float64) {
	stale := make(map[Field]bool, len(recompute))
	for f, v := range values {
		if _, ok := recompute[f]; ok {
			continue
		}
		t.values[f] = decimal.NewFromFloat(v).Round(2)
		for _, d := range dependents[f] {
			stale[d] = true
		}
	}
	for _, d := range []Field{ValueTotal, FeesTotal} {
		if stale[d] {
			recompute[d](t)
		}
	}
}

// ApplyBreakdown writes every price-derived total from b.
func (t *Totals) ApplyBreakdown(b Breakdown) {
	t.SetMany(map[Field]float64{
		ListingPrice:          b.ListingPrice,
		ListingFeeTotal:       b.ListingFeeTotal,
		ProcessingFeeTotal:    b.ProcessingFeeTotal,
		TransactionFeeTotal:   b.TransactionFeeTotal,
		ShippingLabelFeeTotal: b.ShippingLabelFeeTotal,
		OffsiteAdFeeTotal:     b.OffsiteAdFeeTotal,
		TaxTotal:              b.TaxTotal,
		CustomerTotal:         b.CustomerTotal,
		IncomeTaxTotal:        b.IncomeTaxTotal,
		ReturnTotal:           b.ReturnTotal,
	})
}

func (t *Totals) sum(fields []Field) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fields {
		total = total.Add(t.values[f])
	}
	return total
}

// Map returns every total keyed by field name.
func (t *Totals) Map() map[string]float64 {
	out := make(map[string]float64, len(Fields))
	for _, f := range Fields {
		out[string(f)] = t.Get(f)
	}
	return out
}

// Formatted returns every total as a two decimal string, the form the UI
// renders verbatim.
func (t *Totals) Formatted() map[string]string {
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		out[string(f)] = strconv.FormatFloat(t.Get(f), 'f', 2, 64)
	}
	return out
}

// Clone returns an independent copy.
func (t *Totals) Clone() *Totals {
	c := &Totals{values: make(map[Field]decimal.Decimal, len(t.values))}
	for k, v := range t.values {
		c.values[k] = v
	}
	return c
}
