package catalog

import "dbcstock/internal"

// Resolver matches order line items against a catalog index using a
// deterministic trust hierarchy: the identifier is authoritative, the
// descriptive key is a fallback for supplier files that rename or reissue
// identifiers between catalog revisions. When the order row hints at a
// marginal item, the tax-qualified descriptive key is tried before the
// tax-free one so marginal and standard goods that otherwise look
// identical are never conflated.
type Resolver struct {
	index *Index
}

func NewResolver(index *Index) *Resolver {
	return &Resolver{index: index}
}

// Resolve returns the first hit in the fallback order, or method
// MatchNotFound when nothing matches.
func (r *Resolver) Resolve(identifier string, key internal.DescriptiveKey, taxHint string) (LookupEntry, internal.MatchMethod) {
	if entry, ok := r.index.ByIdentifier[identifier]; ok {
		return entry, internal.MatchExactIdentifier
	}

	if internal.ParseTaxClass(taxHint) == internal.TaxMarginal {
		if entry, ok := r.index.ByDescriptiveKey[descriptiveKeyWithTax(key, internal.TaxMarginal)]; ok {
			return entry, internal.MatchDescriptiveWithTax
		}
	}

	if entry, ok := r.index.ByDescriptiveKey[descriptiveKey(key)]; ok {
		return entry, internal.MatchDescriptive
	}

	return LookupEntry{}, internal.MatchNotFound
}
