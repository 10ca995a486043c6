// Package seed stores a few example product setups so a fresh install has
// something to load.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/listprice/internal/fees"
	"github.com/Simplici0/listprice/internal/setup"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Examples returns the setups written by Run.
func Examples() []setup.ProductSetup {
	return []setup.ProductSetup{
		{
			Name: "Ceramic Mug",
			Expenses: setup.Indexed[setup.Expense]{
				{Name: "Stoneware clay", Qty: "2", Cost: "3.50"},
				{Name: "Glaze", Qty: "1", Cost: "3.00"},
			},
			Labor: setup.Indexed[setup.Labor]{
				{Name: "Throwing and trimming", Hours: "0.50", Rate: "20.00"},
			},
			Shipping:  "5.00",
			Tax:       "7.52",
			AdFactor:  fees.OffsiteAdIgnore,
			AdRate:    "15",
			TaxFactor: fees.IncomeTaxView,
			TaxRate:   "30",
		},
		{
			Name: "Walnut Spoon",
			Expenses: setup.Indexed[setup.Expense]{
				{Name: "Walnut blank", Qty: "1", Cost: "4.25"},
				{Name: "Board butter", Qty: "0.25", Cost: "8.00"},
			},
			Labor: setup.Indexed[setup.Labor]{
				{Name: "Carving", Hours: "1.50", Rate: "18.00"},
				{Name: "Finishing", Hours: "0.25", Rate: "18.00"},
			},
			Shipping:  "4.50",
			Tax:       "7.52",
			AdFactor:  fees.OffsiteAdFactor,
			AdRate:    "15",
			TaxFactor: fees.IncomeTaxFactor,
			TaxRate:   "30",
		},
	}
}

// Run saves every example setup that is not stored yet. Existing setups with
// the same key are left untouched, so it is safe to call on every startup.
func Run(ctx context.Context, store *setup.Store) (Stats, error) {
	stats := Stats{}

	for _, example := range Examples() {
		key := setup.KeyFor(example.Name)

		_, err := store.Load(ctx, key)
		switch {
		case err == nil:
			stats.Skipped++
			continue
		case !errors.Is(err, setup.ErrNotFound):
			return stats, fmt.Errorf("check example setup %s: %w", key, err)
		}

		if _, err := store.Save(ctx, example); err != nil {
			return stats, fmt.Errorf("save example setup %s: %w", key, err)
		}
		stats.Inserts++
	}

	return stats, nil
}
