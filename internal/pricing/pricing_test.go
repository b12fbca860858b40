package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"dbcstock/internal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResale(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		tax    internal.TaxClass
		want   string
		reason string
	}{
		{name: "non marginal", raw: "100", tax: internal.TaxNonMarginal, want: "111"},
		{name: "marginal", raw: "100", tax: internal.TaxMarginal, want: "101"},
		{name: "rounding up", raw: "19.99", tax: internal.TaxNonMarginal, want: "22.19"},
		{name: "marginal rounding", raw: "19.99", tax: internal.TaxMarginal, want: "20.19"},
		{name: "half away from zero", raw: "4.95", tax: internal.TaxMarginal, want: "5"},
		{name: "zero passthrough", raw: "0", tax: internal.TaxNonMarginal, want: "0", reason: InvalidPriceReason},
		{name: "zero marginal", raw: "0", tax: internal.TaxMarginal, want: "0", reason: InvalidPriceReason},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := Resale(dec(tc.raw), tc.tax)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("price=%s want %s", got, tc.want)
			}
			if reason != tc.reason {
				t.Fatalf("reason=%q want %q", reason, tc.reason)
			}
		})
	}
}

func TestMarginNoteIgnoresCampaignPrice(t *testing.T) {
	campaign := dec("15.00")

	note := MarginNote(dec("19.99"), internal.TaxNonMarginal, &campaign)
	if note != "11% (non marginal) - campaign price ignored: 15" {
		t.Fatalf("note=%q", note)
	}

	// The campaign price must never influence the resale price itself.
	price, _ := Resale(dec("19.99"), internal.TaxNonMarginal)
	if !price.Equal(dec("22.19")) {
		t.Fatalf("price=%s", price)
	}
}

func TestMarginNoteInvalid(t *testing.T) {
	if note := MarginNote(decimal.Zero, internal.TaxMarginal, nil); note != InvalidPriceReason {
		t.Fatalf("note=%q", note)
	}
}
