package pricing

import (
	"math"

	"github.com/Simplici0/listprice/internal/fees"
)

// QuickTaxMultiplier is an average sales tax used by the quick estimate in
// place of the seller's own rate.
const QuickTaxMultiplier = 1.0752

// QuickResult is the fee split and return for a known listing price.
type QuickResult struct {
	ProcessingFee  float64
	TransactionFee float64
	Fees           float64
	Return         float64
}

// QuickEstimate returns what the seller keeps from listingPrice. An empty or
// zero price gives a zero result rather than a negative return.
func QuickEstimate(listingPrice float64) QuickResult {
	if listingPrice <= 0 || math.IsNaN(listingPrice) || math.IsInf(listingPrice, 0) {
		return QuickResult{}
	}

	processing := round2(listingPrice * QuickTaxMultiplier * fees.ProcessingRate).Add(money(fees.ProcessingFeeFlat))
	transaction := round2(listingPrice * fees.TransactionRate)
	total := processing.Add(transaction).Add(money(fees.ListingFeeFlat)).Round(2)

	return QuickResult{
		ProcessingFee:  processing.InexactFloat64(),
		TransactionFee: transaction.InexactFloat64(),
		Fees:           total.InexactFloat64(),
		Return:         money(listingPrice).Sub(total).InexactFloat64(),
	}
}
