// Package calculator owns the state of one pricing form: its inputs, the
// totals derived from them and the outcome of the last recompute.
package calculator

import (
	"errors"
	"strconv"

	"github.com/Simplici0/listprice/internal/fees"
	"github.com/Simplici0/listprice/internal/lineitem"
	"github.com/Simplici0/listprice/internal/pricing"
	"github.com/Simplici0/listprice/internal/setup"
)

// OffsiteAd is the offsite ad fee selection.
type OffsiteAd struct {
	Mode    fees.OffsiteAdMode `json:"mode"`
	Percent lineitem.Amount    `json:"percent"`
}

// IncomeTax is the income tax selection.
type IncomeTax struct {
	Mode    fees.IncomeTaxMode `json:"mode"`
	Percent lineitem.Amount    `json:"percent"`
}

// Form holds every raw input of the calculator.
type Form struct {
	Expenses        []lineitem.Item `json:"expenses"`
	Labor           []lineitem.Item `json:"labor"`
	Shipping        lineitem.Amount `json:"shipping"`
	SalesTaxPercent lineitem.Amount `json:"salesTaxPercent"`
	OffsiteAd       OffsiteAd       `json:"offsiteAd"`
	IncomeTax       IncomeTax       `json:"incomeTax"`
}

// DefaultForm returns the inputs of a cleared form.
func DefaultForm() Form {
	return Form{
		Expenses:        []lineitem.Item{},
		Labor:           []lineitem.Item{},
		SalesTaxPercent: lineitem.FromFloat(fees.DefaultSalesTaxPercent),
		OffsiteAd: OffsiteAd{
			Mode:    fees.OffsiteAdIgnore,
			Percent: lineitem.Amount(strconv.Itoa(fees.DefaultOffsiteAdPercent)),
		},
		IncomeTax: IncomeTax{
			Mode:    fees.IncomeTaxIgnore,
			Percent: lineitem.FromFloat(fees.DefaultIncomeTaxPercent),
		},
	}
}

// Status is the outcome of the last recompute.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusPriced     Status = "priced"
	StatusInfeasible Status = "infeasible"
)

// View is a read-only copy of the session for rendering.
type View struct {
	Name      string            `json:"name"`
	Form      Form              `json:"form"`
	Totals    map[string]string `json:"totals"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Subtotals Subtotals         `json:"subtotals"`
}

// Subtotals are the per-row products shown next to each line item.
type Subtotals struct {
	Expenses []string `json:"expenses"`
	Labor    []string `json:"labor"`
}

// Session is the single owner of a form and its totals. Every change runs one
// complete recompute before returning. A Session is not safe for concurrent
// use.
type Session struct {
	name   string
	form   Form
	totals *pricing.Totals
	status Status
	err    error
}

// NewSession returns a session holding a cleared form.
func NewSession() *Session {
	s := &Session{}
	s.Clear()
	return s
}

// Clear resets every input to its default and recomputes.
func (s *Session) Clear() {
	s.name = ""
	s.form = DefaultForm()
	s.totals = pricing.NewTotals()
	_ = s.Recalculate()
}

// Update replaces the form inputs and recomputes. The returned error wraps
// pricing.ErrInfeasibleFeeConfiguration when no price can be produced.
func (s *Session) Update(form Form) error {
	s.form = normalize(form)
	return s.Recalculate()
}

// Recalculate runs the aggregate, fee policy and price resolution pass.
// When the fee configuration is infeasible every price-derived total is reset
// to zero and the session reports StatusInfeasible.
func (s *Session) Recalculate() error {
	expenses := lineitem.Aggregate(s.form.Expenses)
	labor := lineitem.Aggregate(s.form.Labor)

	s.totals.SetMany(map[pricing.Field]float64{
		pricing.ExpensesTotal:   expenses.Total,
		pricing.LaborTotal:      labor.Total,
		pricing.LaborHoursTotal: lineitem.TotalHours(s.form.Labor),
	})

	in := s.input()
	b, err := pricing.Resolve(in)
	if err != nil {
		s.totals.ApplyBreakdown(pricing.Breakdown{ListingFeeTotal: in.ListingFeeFlat})
		s.status, s.err = StatusInfeasible, err
		return err
	}

	s.totals.ApplyBreakdown(b)
	s.err = nil
	if in.ValueTotal <= 0 {
		s.status = StatusEmpty
	} else {
		s.status = StatusPriced
	}
	return nil
}

func (s *Session) input() pricing.Input {
	return pricing.Input{
		ValueTotal:     s.totals.Get(pricing.ValueTotal),
		ExpensesTotal:  s.totals.Get(pricing.ExpensesTotal),
		LaborTotal:     s.totals.Get(pricing.LaborTotal),
		Shipping:       s.form.Shipping.Float(),
		SalesTaxRate:   fees.PercentToRate(s.form.SalesTaxPercent.Float()),
		IncomeTaxMode:  s.form.IncomeTax.Mode,
		IncomeTaxRate:  fees.PercentToRate(s.form.IncomeTax.Percent.Float()),
		OffsiteAdMode:  s.form.OffsiteAd.Mode,
		OffsiteAdRate:  fees.OffsiteAdRate(s.form.OffsiteAd.Mode, s.form.OffsiteAd.Percent.Float()),
		ListingFeeFlat: fees.ListingFeeFlat,
	}
}

// QuickEstimate stores and returns the quick-calculator return for a listing
// price. It does not touch the form.
func (s *Session) QuickEstimate(listingPrice lineitem.Amount) pricing.QuickResult {
	res := pricing.QuickEstimate(listingPrice.Float())
	s.totals.Set(pricing.QCReturn, res.Return)
	return res
}

// Load replaces the form with a saved setup.
func (s *Session) Load(p setup.ProductSetup) error {
	s.Clear()
	s.name = p.Name
	s.form.Shipping = p.Shipping
	s.form.SalesTaxPercent = p.Tax
	s.form.OffsiteAd = OffsiteAd{Mode: p.AdFactor, Percent: p.AdRate}
	s.form.IncomeTax = IncomeTax{Mode: p.TaxFactor, Percent: p.TaxRate}
	s.appendItems(p)
	s.form = normalize(s.form)
	return s.Recalculate()
}

// Append adds the line items of a saved setup after the current ones, leaving
// every other input as is.
func (s *Session) Append(p setup.ProductSetup) error {
	s.appendItems(p)
	return s.Recalculate()
}

func (s *Session) appendItems(p setup.ProductSetup) {
	for _, e := range p.Expenses {
		s.form.Expenses = append(s.form.Expenses, lineitem.Item{Name: e.Name, Quantity: e.Qty, Rate: e.Cost})
	}
	for _, l := range p.Labor {
		s.form.Labor = append(s.form.Labor, lineitem.Item{Name: l.Name, Quantity: l.Hours, Rate: l.Rate})
	}
}

// Snapshot returns the form as a setup to be saved under name.
func (s *Session) Snapshot(name string) setup.ProductSetup {
	p := setup.ProductSetup{
		Name:      name,
		Expenses:  make(setup.Indexed[setup.Expense], 0, len(s.form.Expenses)),
		Labor:     make(setup.Indexed[setup.Labor], 0, len(s.form.Labor)),
		Shipping:  s.form.Shipping,
		Tax:       s.form.SalesTaxPercent,
		AdFactor:  s.form.OffsiteAd.Mode,
		AdRate:    s.form.OffsiteAd.Percent,
		TaxFactor: s.form.IncomeTax.Mode,
		TaxRate:   s.form.IncomeTax.Percent,
	}
	for _, it := range s.form.Expenses {
		p.Expenses = append(p.Expenses, setup.Expense{Name: it.Name, Qty: it.Quantity, Cost: it.Rate})
	}
	for _, it := range s.form.Labor {
		p.Labor = append(p.Labor, setup.Labor{Name: it.Name, Hours: it.Quantity, Rate: it.Rate})
	}
	return p
}

// SetName records the name the form is currently saved under.
func (s *Session) SetName(name string) { s.name = name }

// Name returns the name of the loaded or last saved setup.
func (s *Session) Name() string { return s.name }

// Status returns the outcome of the last recompute.
func (s *Session) Status() Status { return s.status }

// Err returns the error of the last recompute, if any.
func (s *Session) Err() error { return s.err }

// Infeasible reports whether the last recompute failed on the fee
// configuration.
func (s *Session) Infeasible() bool {
	return errors.Is(s.err, pricing.ErrInfeasibleFeeConfiguration)
}

// Totals returns a copy of the current totals.
func (s *Session) Totals() *pricing.Totals { return s.totals.Clone() }

// Form returns a copy of the current inputs.
func (s *Session) Form() Form {
	f := s.form
	f.Expenses = append([]lineitem.Item{}, s.form.Expenses...)
	f.Labor = append([]lineitem.Item{}, s.form.Labor...)
	return f
}

// View returns everything the UI needs to render the form.
func (s *Session) View() View {
	v := View{
		Name:   s.name,
		Form:   s.Form(),
		Totals: s.totals.Formatted(),
		Status: s.status,
		Subtotals: Subtotals{
			Expenses: formatSubtotals(lineitem.Aggregate(s.form.Expenses).Subtotals),
			Labor:    formatSubtotals(lineitem.Aggregate(s.form.Labor).Subtotals),
		},
	}
	if s.err != nil {
		v.Error = s.err.Error()
	}
	return v
}

func formatSubtotals(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(pricing.Round2(v), 'f', 2, 64)
	}
	return out
}

// normalize maps unknown fee modes to ignore and nil lists to empty ones.
func normalize(f Form) Form {
	if f.Expenses == nil {
		f.Expenses = []lineitem.Item{}
	}
	if f.Labor == nil {
		f.Labor = []lineitem.Item{}
	}
	if m, err := fees.ParseOffsiteAdMode(string(f.OffsiteAd.Mode)); err == nil {
		f.OffsiteAd.Mode = m
	} else {
		f.OffsiteAd.Mode = fees.OffsiteAdIgnore
	}
	if m, err := fees.ParseIncomeTaxMode(string(f.IncomeTax.Mode)); err == nil {
		f.IncomeTax.Mode = m
	} else {
		f.IncomeTax.Mode = fees.IncomeTaxIgnore
	}
	return f
}
