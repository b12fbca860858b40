package catalog

import (
	"testing"

	"dbcstock/internal"
)

func TestResolveExactIdentifierWins(t *testing.T) {
	idx := BuildIndex([]internal.CatalogEntry{
		entry("SKU-1", "iPhone 12", "Grade A", "Working", internal.TaxNonMarginal, "100"),
		entry("SKU-2", "iPhone 12", "Grade A", "Working", internal.TaxNonMarginal, "999"),
	})
	r := NewResolver(idx)

	// Both an identifier match and a descriptive match exist for this
	// row; the identifier must win.
	got, method := r.Resolve("SKU-1", internal.DescriptiveKey{ProductName: "iPhone 12", Appearance: "Grade A", Functionality: "Working"}, "")
	if method != internal.MatchExactIdentifier {
		t.Fatalf("method=%s", method)
	}
	if got.Identifier != "SKU-1" {
		t.Fatalf("identifier=%s", got.Identifier)
	}
}

func TestResolveMarginalHintPrefersTaxQualifiedKey(t *testing.T) {
	idx := BuildIndex([]internal.CatalogEntry{
		entry("STD", "X", "A", "B", internal.TaxNonMarginal, "111"),
		entry("MRG", "X", "A", "B", internal.TaxMarginal, "101"),
	})
	r := NewResolver(idx)
	key := internal.DescriptiveKey{ProductName: "X", Appearance: "A", Functionality: "B"}

	got, method := r.Resolve("unknown", key, "Marginal")
	if method != internal.MatchDescriptiveWithTax || got.Identifier != "MRG" {
		t.Fatalf("got %s via %s, want MRG via DESCRIPTIVE_WITH_TAX", got.Identifier, method)
	}

	got, method = r.Resolve("unknown", key, "")
	if method != internal.MatchDescriptive || got.Identifier != "STD" {
		t.Fatalf("got %s via %s, want STD via DESCRIPTIVE", got.Identifier, method)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver(BuildIndex(nil))
	_, method := r.Resolve("nope", internal.DescriptiveKey{}, "")
	if method != internal.MatchNotFound {
		t.Fatalf("method=%s", method)
	}
}

func TestResolveMarginalHintFallsThroughToTaxFree(t *testing.T) {
	idx := BuildIndex([]internal.CatalogEntry{
		entry("STD", "Y", "A", "B", internal.TaxNonMarginal, "111"),
	})
	r := NewResolver(idx)

	got, method := r.Resolve("unknown", internal.DescriptiveKey{ProductName: "Y", Appearance: "A", Functionality: "B"}, "Marginal")
	if method != internal.MatchDescriptive || got.Identifier != "STD" {
		t.Fatalf("got %s via %s", got.Identifier, method)
	}
}
