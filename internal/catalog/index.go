package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"dbcstock/internal"
)

// LookupEntry is what a catalog lookup hands back to order pricing:
// enough to substitute the price and explain the substitution.
type LookupEntry struct {
	Identifier  string
	RawPrice    decimal.Decimal
	ResalePrice decimal.Decimal
	TaxClass    internal.TaxClass
}

// Index holds the two lookup structures built from one catalog snapshot:
// exact identifier and descriptive compound key. The descriptive map has
// two tiers per entry: a tax-qualified key always, and a tax-free key only
// for non-marginal entries, so that a generic lookup can never silently
// return a marginal item's price.
type Index struct {
	ByIdentifier     map[string]LookupEntry
	ByDescriptiveKey map[string]LookupEntry
}

func BuildIndex(entries []internal.CatalogEntry) *Index {
	idx := &Index{
		ByIdentifier:     make(map[string]LookupEntry, len(entries)),
		ByDescriptiveKey: map[string]LookupEntry{},
	}

	for _, e := range entries {
		entry := LookupEntry{
			Identifier:  e.Identifier,
			RawPrice:    e.RawPrice,
			ResalePrice: e.ResalePrice,
			TaxClass:    e.TaxClass,
		}

		// Duplicate identifiers within a snapshot: last row in input
		// order wins.
		idx.ByIdentifier[e.Identifier] = entry

		idx.ByDescriptiveKey[descriptiveKeyWithTax(e.Key(), e.TaxClass)] = entry
		if e.TaxClass != internal.TaxMarginal {
			idx.ByDescriptiveKey[descriptiveKey(e.Key())] = entry
		}
	}

	return idx
}

// EntriesFromProducts adapts stored products to the snapshot shape so an
// order can be priced against the store when no catalog file is supplied.
func EntriesFromProducts(products []internal.PersistedProduct) []internal.CatalogEntry {
	out := make([]internal.CatalogEntry, len(products))
	for i, p := range products {
		out[i] = internal.CatalogEntry{
			Identifier:     p.Identifier,
			ItemGroup:      p.ItemGroup,
			ProductName:    p.ProductName,
			Appearance:     p.Appearance,
			Functionality:  p.Functionality,
			Boxed:          p.Boxed,
			Color:          p.Color,
			CloudLock:      p.CloudLock,
			AdditionalInfo: p.AdditionalInfo,
			Quantity:       p.Quantity,
			RawPrice:       p.RawPrice,
			CampaignPrice:  p.CampaignPrice,
			TaxClass:       p.TaxClass,
			ResalePrice:    p.ResalePrice,
			InvalidPrice:   p.InvalidPrice,
			IsActive:       p.IsActive,
		}
	}
	return out
}

func descriptiveKey(k internal.DescriptiveKey) string {
	return strings.Join([]string{
		strings.TrimSpace(k.ProductName),
		strings.TrimSpace(k.Appearance),
		strings.TrimSpace(k.Functionality),
	}, "|")
}

func descriptiveKeyWithTax(k internal.DescriptiveKey, tax internal.TaxClass) string {
	return descriptiveKey(k) + "|" + string(tax)
}
