package pipeline

import (
	"github.com/shopspring/decimal"

	"dbcstock/internal"
	"dbcstock/internal/catalog"
)

const (
	StatusMatched  = "matched"
	StatusNotFound = "not found"
)

var oneHundred = decimal.NewFromInt(100)

// TransformOrder prices every line of an order document against a
// catalog. The document's detected variant must match the expected one;
// a mismatch fails before any row is touched so a serialized file can
// never be half-priced by the grouped path.
//
// A matched row takes the catalog resale price; an unmatched row keeps
// the supplier price so the exported file stays complete either way.
func TransformOrder(doc *internal.OrderDocument, file string, expected internal.OrderVariant, resolver *catalog.Resolver) ([]internal.PricedRow, internal.OrderSummary, error) {
	if doc.Variant != expected {
		return nil, internal.OrderSummary{}, &internal.FormatMismatchError{
			File:     file,
			Expected: expected,
			Got:      doc.Variant,
		}
	}

	rows := make([]internal.PricedRow, 0, len(doc.Rows))
	summary := internal.OrderSummary{}

	for _, line := range doc.Rows {
		entry, method := resolver.Resolve(line.Identifier, line.Key(), line.TaxHint)

		row := internal.PricedRow{
			Line:          line,
			SupplierPrice: line.SupplierPrice,
			Method:        method,
		}

		if method == internal.MatchNotFound {
			row.Price = line.SupplierPrice
			row.Status = StatusNotFound
			summary.NotFound++
		} else {
			row.Matched = true
			row.Price = entry.ResalePrice
			row.CatalogPrice = entry.RawPrice
			row.ResalePrice = entry.ResalePrice
			row.TaxClass = entry.TaxClass
			row.Status = StatusMatched
			row.DiscountPercent = discountPercent(entry.RawPrice, line.SupplierPrice)

			switch method {
			case internal.MatchExactIdentifier:
				summary.ByExact++
			case internal.MatchDescriptiveWithTax:
				summary.ByDescriptiveTax++
			case internal.MatchDescriptive:
				summary.ByDescriptive++
			}
		}

		// Totals sum the price column as exported, one value per row,
		// not weighted by quantity.
		summary.TotalSupplier = summary.TotalSupplier.Add(line.SupplierPrice)
		summary.TotalResale = summary.TotalResale.Add(row.Price)
		summary.Rows++

		rows = append(rows, row)
	}

	summary.Delta = summary.TotalResale.Sub(summary.TotalSupplier)
	return rows, summary, nil
}

// discountPercent is how far below the catalog price the supplier
// offered the line, as a percentage of the catalog price.
func discountPercent(catalogPrice, supplierPrice decimal.Decimal) *decimal.Decimal {
	if !catalogPrice.IsPositive() || !supplierPrice.IsPositive() {
		return nil
	}
	d := catalogPrice.Sub(supplierPrice).Div(catalogPrice).Mul(oneHundred).Round(2)
	return &d
}
