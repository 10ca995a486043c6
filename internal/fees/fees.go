// Package fees holds the marketplace fee rules used to price a listing.
package fees

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// ListingFeeFlat is charged once per listing and never recalculated.
	ListingFeeFlat = 0.20
	// ProcessingFeeFlat is added to every payment processing charge.
	ProcessingFeeFlat = 0.25
	// ProcessingRate applies to the order total including sales tax.
	ProcessingRate = 0.03
	// TransactionRate applies to the listing price.
	TransactionRate = 0.065
	// ShippingFeeRate is the transaction fee charged on the shipping label.
	ShippingFeeRate = 0.065
)

// Defaults used by a fresh form.
const (
	DefaultSalesTaxPercent  = 7.52
	DefaultOffsiteAdPercent = 15
	DefaultIncomeTaxPercent = 30
)

// OffsiteAdMode selects whether the offsite ad fee is folded into the price.
type OffsiteAdMode string

const (
	OffsiteAdIgnore OffsiteAdMode = "ignore"
	OffsiteAdFactor OffsiteAdMode = "factor"
)

// ParseOffsiteAdMode validates a mode coming from a form or a saved setup.
func ParseOffsiteAdMode(raw string) (OffsiteAdMode, error) {
	switch m := OffsiteAdMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case OffsiteAdIgnore, OffsiteAdFactor:
		return m, nil
	case "":
		return OffsiteAdIgnore, nil
	default:
		return OffsiteAdIgnore, fmt.Errorf("unknown offsite ad mode %q", raw)
	}
}

// IncomeTaxMode selects how the income tax set-aside is handled.
type IncomeTaxMode string

const (
	IncomeTaxIgnore IncomeTaxMode = "ignore"
	// IncomeTaxView shows the amount to set aside without changing the price.
	IncomeTaxView IncomeTaxMode = "view"
	// IncomeTaxFactor grosses up labor so the post-tax labor return is kept.
	IncomeTaxFactor IncomeTaxMode = "factor"
)

// ParseIncomeTaxMode validates a mode coming from a form or a saved setup.
func ParseIncomeTaxMode(raw string) (IncomeTaxMode, error) {
	switch m := IncomeTaxMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case IncomeTaxIgnore, IncomeTaxView, IncomeTaxFactor:
		return m, nil
	case "":
		return IncomeTaxIgnore, nil
	default:
		return IncomeTaxIgnore, fmt.Errorf("unknown income tax mode %q", raw)
	}
}

// PercentToRate converts a percentage input (7.52) to a rate (0.0752),
// keeping four decimal places.
func PercentToRate(percent float64) float64 {
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)).Round(4).InexactFloat64()
}

// ShippingFee is the transaction fee charged on the shipping label cost.
func ShippingFee(shippingCost float64) float64 {
	return decimal.NewFromFloat(shippingCost * ShippingFeeRate).Round(2).InexactFloat64()
}

// IncomeTaxSetAside returns the income tax amount tied to laborTotal.
// Rates outside [0, 1) are treated as 0.
func IncomeTaxSetAside(laborTotal, rate float64, mode IncomeTaxMode) float64 {
	rate = GuardRate(rate)
	switch mode {
	case IncomeTaxView:
		return laborTotal * rate
	case IncomeTaxFactor:
		return laborTotal/(1-rate) - laborTotal
	default:
		return 0
	}
}

// GuardRate maps a rate that would divide by zero or a negative number to 0.
func GuardRate(rate float64) float64 {
	if rate < 0 || rate >= 1 {
		return 0
	}
	return rate
}

// OffsiteAdRate returns the ad fee rate applied to the order subtotal.
func OffsiteAdRate(mode OffsiteAdMode, selectedPercent float64) float64 {
	if mode != OffsiteAdFactor {
		return 0
	}
	return PercentToRate(selectedPercent)
}
