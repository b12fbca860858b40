// Package pricing derives resale prices from supplier prices. The rule is
// pure: no I/O, no state.
package pricing

import (
	"github.com/shopspring/decimal"

	"dbcstock/internal"
)

const (
	// InvalidPriceReason flags entries whose supplier price is absent,
	// non-numeric or zero. Those entries never receive a margin.
	InvalidPriceReason = "invalid price"

	marginNoteMarginal    = "1% (marginal)"
	marginNoteNonMarginal = "11% (non marginal)"
)

var (
	factorMarginal    = decimal.RequireFromString("1.01")
	factorNonMarginal = decimal.RequireFromString("1.11")
)

// Resale computes the resale price for a supplier price and tax
// classification. The second return value is empty for a priced entry and
// InvalidPriceReason when the raw price is zero (the raw value is passed
// through unchanged in that case).
//
// Rounding is two decimal places, half away from zero. The mode matters:
// resale prices feed audited totals.
func Resale(rawPrice decimal.Decimal, tax internal.TaxClass) (decimal.Decimal, string) {
	if rawPrice.IsZero() {
		return rawPrice, InvalidPriceReason
	}
	if tax == internal.TaxMarginal {
		return rawPrice.Mul(factorMarginal).Round(2), ""
	}
	return rawPrice.Mul(factorNonMarginal).Round(2), ""
}

// MarginNote renders the margin annotation for transformed catalog
// exports. A positive campaign price is deliberately ignored for pricing
// but recorded in the note.
func MarginNote(rawPrice decimal.Decimal, tax internal.TaxClass, campaignPrice *decimal.Decimal) string {
	if rawPrice.IsZero() {
		return InvalidPriceReason
	}
	note := marginNoteNonMarginal
	if tax == internal.TaxMarginal {
		note = marginNoteMarginal
	}
	if campaignPrice != nil && campaignPrice.IsPositive() {
		note += " - campaign price ignored: " + campaignPrice.String()
	}
	return note
}
