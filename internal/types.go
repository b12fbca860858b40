package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaxClass string

const (
	TaxMarginal    TaxClass = "Marginal"
	TaxNonMarginal TaxClass = "Non marginal"
)

// ParseTaxClass maps a raw cell value to a tax classification. Anything
// other than the literal "Marginal" is non-marginal, including blanks.
func ParseTaxClass(raw string) TaxClass {
	if raw == string(TaxMarginal) {
		return TaxMarginal
	}
	return TaxNonMarginal
}

type MatchMethod string

const (
	MatchExactIdentifier    MatchMethod = "EXACT_IDENTIFIER"
	MatchDescriptiveWithTax MatchMethod = "DESCRIPTIVE_WITH_TAX"
	MatchDescriptive        MatchMethod = "DESCRIPTIVE"
	MatchNotFound           MatchMethod = "NOT_FOUND"
)

type VisibilityMode string

const (
	ModeInternal VisibilityMode = "internal"
	ModeExternal VisibilityMode = "external"
)

type OrderVariant string

const (
	VariantGrouped    OrderVariant = "grouped"
	VariantSerialized OrderVariant = "serialized"
)

// DescriptiveKey is the fallback match key: product name plus condition
// grades, each trimmed, empty when absent.
type DescriptiveKey struct {
	ProductName   string
	Appearance    string
	Functionality string
}

// CatalogEntry is one row of a parsed catalog snapshot. Immutable after
// parsing; resale price and activity are derived at construction.
type CatalogEntry struct {
	Identifier     string
	ItemGroup      string
	ProductName    string
	Appearance     string
	Functionality  string
	Boxed          string
	Color          *string
	CloudLock      *string
	AdditionalInfo *string
	Quantity       int
	RawPrice       decimal.Decimal
	CampaignPrice  *decimal.Decimal
	TaxClass       TaxClass
	ResalePrice    decimal.Decimal
	InvalidPrice   bool
	IsActive       bool
}

func (e CatalogEntry) Key() DescriptiveKey {
	return DescriptiveKey{ProductName: e.ProductName, Appearance: e.Appearance, Functionality: e.Functionality}
}

// PersistedProduct is the durable record per identifier. Quantity and
// IsActive are current truth and change only through reconciliation.
// Invariant after every write: IsActive == (Quantity > 0).
type PersistedProduct struct {
	Identifier     string
	ItemGroup      string
	ProductName    string
	Appearance     string
	Functionality  string
	Boxed          string
	Color          *string
	CloudLock      *string
	AdditionalInfo *string
	Quantity       int
	RawPrice       decimal.Decimal
	CampaignPrice  *decimal.Decimal
	TaxClass       TaxClass
	ResalePrice    decimal.Decimal
	InvalidPrice   bool
	IsActive       bool
}

// SnapshotStats are the aggregate counters of one parsed catalog file.
type SnapshotStats struct {
	Total        int `json:"total"`
	Marginal     int `json:"marginal"`
	NonMarginal  int `json:"nonMarginal"`
	InvalidPrice int `json:"invalidPrice"`
	Active       int `json:"active"`
	OutOfStock   int `json:"outOfStock"`
	SkippedRows  int `json:"skippedRows"`
}

// OrderLineItem is one row of an incoming purchase order. Raw preserves
// the original cells so exports can reproduce the supplier's columns.
type OrderLineItem struct {
	LineNo           int
	Raw              []string
	Identifier       string
	SerialIdentifier string
	ProductName      string
	Appearance       string
	Functionality    string
	TaxHint          string
	SupplierPrice    decimal.Decimal
	Quantity         int
}

func (li OrderLineItem) Key() DescriptiveKey {
	return DescriptiveKey{ProductName: li.ProductName, Appearance: li.Appearance, Functionality: li.Functionality}
}

// OrderDocument is a parsed order file together with its structural
// variant (grouped vs serialized). SkipErrors holds one entry per row
// dropped for an unparseable numeric field, for reporting.
type OrderDocument struct {
	Headers     []string
	Variant     OrderVariant
	Rows        []OrderLineItem
	PriceColumn int
	SkippedRows int
	SkipErrors  []*RowConversionError
}

// PricedRow is one transformed order row.
type PricedRow struct {
	Line            OrderLineItem
	Price           decimal.Decimal
	SupplierPrice   decimal.Decimal
	CatalogPrice    decimal.Decimal
	ResalePrice     decimal.Decimal
	TaxClass        TaxClass
	Method          MatchMethod
	Status          string
	DiscountPercent *decimal.Decimal
	Matched         bool
}

// OrderSummary aggregates one transform run.
type OrderSummary struct {
	Rows             int
	TotalSupplier    decimal.Decimal
	TotalResale      decimal.Decimal
	Delta            decimal.Decimal
	ByExact          int
	ByDescriptiveTax int
	ByDescriptive    int
	NotFound         int
}

// ReconciliationRecord is the append-only audit artifact of one
// reconciliation run.
type ReconciliationRecord struct {
	RunID              string        `json:"runId"`
	Timestamp          time.Time     `json:"timestamp"`
	New                []string      `json:"new"`
	Restocked          []string      `json:"restocked"`
	RemovedFromCatalog []string      `json:"removedFromCatalog"`
	MissingFromCatalog []string      `json:"missingFromCatalog"`
	HighNewRatio       bool          `json:"highNewRatio"`
	Stats              SnapshotStats `json:"stats"`
}

// OutOfStockCount is the combined removed + missing tally reported after
// an import.
func (r ReconciliationRecord) OutOfStockCount() int {
	return len(r.RemovedFromCatalog) + len(r.MissingFromCatalog)
}
