// Package pricing computes the cost of a forecast query from the catalog's
// pricing configuration. Pricing anomalies (unknown currency, missing
// config) degrade to documented fallbacks and are logged; they never fail
// the query.
package pricing

import (
	"log"
	"math"
	"strconv"

	"github.com/skyroute-io/skyroute/internal/catalog"
)

// TierFree is the tier assumed when a caller presents none.
const TierFree = "free"

// Result holds a fully computed price. Amounts keep full float precision;
// use the Format helpers for the two-decimal display form.
type Result struct {
	Subtotal    float64
	Currency    string
	TaxRate     float64
	TaxEnabled  bool
	TaxAmount   float64
	FinalAmount float64
}

// Compute prices a query: per-variable unit price resolution (caller's tier
// override, then base price, then the system default for variables with no
// pricing entry), multiplied by the location count, converted to the
// requested currency, then taxed.
func Compute(snap *catalog.Snapshot, variables []string, locationCount int, tier, currency string) Result {
	if tier == "" {
		tier = TierFree
	}

	var subtotal float64
	var taxRate float64
	taxEnabled := true
	taxConfigured := false

	for _, name := range variables {
		entry, ok := snap.PricingFor(name)
		if !ok {
			subtotal += snap.DefaultPrice() * float64(locationCount)
			log.Printf("pricing: no config for %s, using default price %v", name, snap.DefaultPrice())
			continue
		}
		subtotal += unitPrice(entry, tier) * float64(locationCount)

		// Tax settings come from the first configured variable; the admin
		// surface keeps them uniform across the catalog.
		if !taxConfigured {
			taxRate = entry.TaxRate
			taxEnabled = entry.TaxEnabled
			taxConfigured = true
		}
	}
	if !taxConfigured {
		taxRate = 18.0
	}

	out := Result{Currency: snap.BaseCurrency(), TaxRate: taxRate, TaxEnabled: taxEnabled}

	out.Subtotal = subtotal
	if currency != "" && currency != snap.BaseCurrency() {
		if rate, ok := snap.Rate(currency); ok {
			out.Subtotal = subtotal * rate
			out.Currency = currency
		} else {
			log.Printf("pricing: unknown currency %q, keeping %s", currency, snap.BaseCurrency())
		}
	}

	if out.TaxEnabled {
		out.TaxAmount = out.Subtotal * out.TaxRate / 100
	}
	out.FinalAmount = out.Subtotal + out.TaxAmount
	return out
}

// unitPrice resolves one variable's price for the caller's tier: the tier
// override when configured, otherwise the base price.
func unitPrice(entry catalog.PricingEntry, tier string) float64 {
	if override, ok := entry.TierPrices[tier]; ok {
		return override
	}
	return entry.BasePrice
}

// Round2 rounds to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Format renders an amount as a two-decimal display string.
func Format(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}
