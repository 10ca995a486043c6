package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/listprice/internal/fees"
)

// ErrInfeasibleFeeConfiguration is returned when the percentage fees add up to
// 100% or more of the listing price, so no price can recover the costs.
var ErrInfeasibleFeeConfiguration = errors.New("infeasible fee configuration")

// Input represents the cost basis and fee selections used to solve for a price.
// Rates are fractions (0.0752), not percentages.
type Input struct {
	ValueTotal     float64
	ExpensesTotal  float64
	LaborTotal     float64
	Shipping       float64
	SalesTaxRate   float64
	IncomeTaxMode  fees.IncomeTaxMode
	IncomeTaxRate  float64
	OffsiteAdMode  fees.OffsiteAdMode
	OffsiteAdRate  float64
	ListingFeeFlat float64
}

// Breakdown contains the listing price and every amount derived from it.
type Breakdown struct {
	ListingPrice          float64
	ListingFeeTotal       float64
	ProcessingFeeTotal    float64
	TransactionFeeTotal   float64
	ShippingLabelFeeTotal float64
	OffsiteAdFeeTotal     float64
	FeesTotal             float64
	TaxTotal              float64
	CustomerTotal         float64
	IncomeTaxTotal        float64
	ReturnTotal           float64
	CompoundRate          float64
}

// Resolve solves for the listing price that recovers the cost basis plus all
// fees, including the percentage fees charged on the price itself.
func Resolve(in Input) (Breakdown, error) {
	if in.ValueTotal <= 0 {
		return zeroBreakdown(in.ListingFeeFlat), nil
	}

	incomeTaxRate := fees.GuardRate(in.IncomeTaxRate)

	net := in.ValueTotal
	if in.IncomeTaxMode == fees.IncomeTaxFactor {
		net = in.LaborTotal/(1-incomeTaxRate) + in.ExpensesTotal
	}

	offsiteAdRate := 0.0
	if in.OffsiteAdMode == fees.OffsiteAdFactor {
		offsiteAdRate = in.OffsiteAdRate
	}

	compoundRate := fees.TransactionRate + fees.ProcessingRate*(1+in.SalesTaxRate) + offsiteAdRate
	denominator := 1 - compoundRate
	if denominator <= 0 {
		return Breakdown{}, fmt.Errorf("%w: compound fee rate %.4f", ErrInfeasibleFeeConfiguration, compoundRate)
	}

	raw := (net + in.Shipping*compoundRate + in.ListingFeeFlat + fees.ProcessingFeeFlat) / denominator
	price := ceilCents(raw)

	subtotal := price.Add(money(in.Shipping))
	tax := round2(subtotal.InexactFloat64() * in.SalesTaxRate)
	transaction := round2(price.InexactFloat64() * fees.TransactionRate)
	processing := round2(subtotal.Add(tax).InexactFloat64() * fees.ProcessingRate).Add(money(fees.ProcessingFeeFlat))
	offsiteAd := round2(subtotal.InexactFloat64() * offsiteAdRate)
	shippingLabel := money(fees.ShippingFee(in.Shipping))
	listingFee := money(in.ListingFeeFlat)

	feesTotal := listingFee.Add(processing).Add(transaction).Add(shippingLabel).Add(offsiteAd)
	incomeTax := round2(fees.IncomeTaxSetAside(in.LaborTotal, incomeTaxRate, in.IncomeTaxMode))

	return Breakdown{
		ListingPrice:          price.InexactFloat64(),
		ListingFeeTotal:       listingFee.InexactFloat64(),
		ProcessingFeeTotal:    processing.InexactFloat64(),
		TransactionFeeTotal:   transaction.InexactFloat64(),
		ShippingLabelFeeTotal: shippingLabel.InexactFloat64(),
		OffsiteAdFeeTotal:     offsiteAd.InexactFloat64(),
		FeesTotal:             feesTotal.InexactFloat64(),
		TaxTotal:              tax.InexactFloat64(),
		CustomerTotal:         subtotal.Add(tax).InexactFloat64(),
		IncomeTaxTotal:        incomeTax.InexactFloat64(),
		ReturnTotal:           price.Sub(feesTotal).Sub(incomeTax).InexactFloat64(),
		CompoundRate:          compoundRate,
	}, nil
}

// zeroBreakdown is the empty form state: nothing to price, only the constant
// listing fee remains.
func zeroBreakdown(listingFeeFlat float64) Breakdown {
	return Breakdown{
		ListingFeeTotal: listingFeeFlat,
		FeesTotal:       listingFeeFlat,
	}
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// round2 rounds half away from zero to cents.
func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// ceilCents rounds up to the next cent so the seller is never undercharged.
func ceilCents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundCeil(2)
}

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	return round2(v).InexactFloat64()
}
