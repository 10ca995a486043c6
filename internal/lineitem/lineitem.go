package lineitem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is the raw text of a numeric form input. It is kept as typed so saved
// setups reload exactly, and is only coerced to a number when computing.
type Amount string

// decimalNumber is the text a browser number input can hold: optional sign,
// digits with an optional fraction, optional exponent. Hex floats, underscores,
// Inf and NaN, which strconv would otherwise accept, are not numbers here.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Float returns the numeric value of the input. Blank, malformed (including
// partially numeric text such as "12abc"), non-finite and negative inputs
// count as 0.
func (a Amount) Float() float64 {
	s := strings.TrimSpace(string(a))
	if !decimalNumber.MatchString(s) {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Blank reports whether the input was left empty.
func (a Amount) Blank() bool {
	return strings.TrimSpace(string(a)) == ""
}

// FromFloat formats v the way a number input holds it after blur (2 decimals).
func FromFloat(v float64) Amount {
	return Amount(strconv.FormatFloat(v, 'f', 2, 64))
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		*a = Amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		*a = Amount(n.String())
		return nil
	}
}

// Item is one expense (qty × cost) or labor (hours × rate) row.
type Item struct {
	Name     string `json:"name"`
	Quantity Amount `json:"quantity"`
	Rate     Amount `json:"rate"`
}

// Subtotal returns Quantity × Rate with invalid inputs counted as 0.
func (it Item) Subtotal() float64 {
	return it.Quantity.Float() * it.Rate.Float()
}

// Result holds per-item subtotals and their sum.
type Result struct {
	Subtotals []float64
	Total     float64
}

// Aggregate sums the subtotals of items.
func Aggregate(items []Item) Result {
	res := Result{Subtotals: make([]float64, 0, len(items))}
	for _, it := range items {
		sub := it.Subtotal()
		res.Subtotals = append(res.Subtotals, sub)
		res.Total += sub
	}
	return res
}

// TotalHours sums the quantity column of labor items, each rounded to cents.
// It is a display figure only.
func TotalHours(items []Item) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity.Float()).Round(2))
	}
	return total.InexactFloat64()
}
