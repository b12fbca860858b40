package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dbcstock/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "inventory.db"), PageSize: 2, BatchSize: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func product(id string, qty int, resale string) internal.PersistedProduct {
	return internal.PersistedProduct{
		Identifier:  id,
		ProductName: "Model " + id,
		Quantity:    qty,
		RawPrice:    decimal.RequireFromString(resale),
		TaxClass:    internal.TaxNonMarginal,
		ResalePrice: decimal.RequireFromString(resale),
		IsActive:    qty > 0,
	}
}

func TestUpsertAndListRoundTrip(t *testing.T) {
	db := openTestDB(t)

	campaign := decimal.RequireFromString("99.99")
	p := product("001", 5, "22.19")
	p.CampaignPrice = &campaign
	color := "Black"
	p.Color = &color

	if err := db.UpsertProducts([]internal.PersistedProduct{p}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.ListProducts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len=%d, want 1", len(got))
	}
	if !got[0].ResalePrice.Equal(decimal.RequireFromString("22.19")) {
		t.Fatalf("resale=%s", got[0].ResalePrice)
	}
	if got[0].CampaignPrice == nil || !got[0].CampaignPrice.Equal(campaign) {
		t.Fatalf("campaign=%v", got[0].CampaignPrice)
	}
	if got[0].Color == nil || *got[0].Color != "Black" {
		t.Fatalf("color=%v", got[0].Color)
	}
}

func TestUpsertOverwritesByIdentifier(t *testing.T) {
	db := openTestDB(t)

	if err := db.UpsertProducts([]internal.PersistedProduct{product("001", 5, "100")}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertProducts([]internal.PersistedProduct{product("001", 0, "200")}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListProducts()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len=%d, want 1", len(got))
	}
	if got[0].Quantity != 0 || got[0].IsActive {
		t.Fatalf("quantity=%d isActive=%v, want sold out", got[0].Quantity, got[0].IsActive)
	}
	if !got[0].ResalePrice.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("resale=%s, want 200", got[0].ResalePrice)
	}
}

func TestListPaginatesPastPageSize(t *testing.T) {
	db := openTestDB(t) // PageSize 2

	batch := []internal.PersistedProduct{
		product("001", 1, "10"),
		product("002", 2, "20"),
		product("003", 3, "30"),
		product("004", 0, "40"),
		product("005", 5, "50"),
	}
	if err := db.UpsertProducts(batch); err != nil {
		t.Fatal(err)
	}

	quantities, err := db.ListProductQuantities()
	if err != nil {
		t.Fatal(err)
	}
	if len(quantities) != 5 {
		t.Fatalf("len=%d, want 5", len(quantities))
	}
	if quantities["004"] != 0 || quantities["005"] != 5 {
		t.Fatalf("quantities=%v", quantities)
	}

	active, err := db.ActiveProducts()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 4 {
		t.Fatalf("active=%d, want 4", len(active))
	}
}

func TestMarkOutOfStockTargetedUpdate(t *testing.T) {
	db := openTestDB(t)

	if err := db.UpsertProducts([]internal.PersistedProduct{
		product("001", 5, "100"),
		product("002", 3, "200"),
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.MarkOutOfStock([]string{"001"}); err != nil {
		t.Fatal(err)
	}

	quantities, err := db.ListProductQuantities()
	if err != nil {
		t.Fatal(err)
	}
	if quantities["001"] != 0 {
		t.Fatalf("001 quantity=%d, want 0", quantities["001"])
	}
	if quantities["002"] != 3 {
		t.Fatalf("002 quantity=%d, must be untouched", quantities["002"])
	}

	// Other fields survive the stock-out.
	all, err := db.ListProducts()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range all {
		if p.Identifier == "001" && !p.ResalePrice.Equal(decimal.RequireFromString("100")) {
			t.Fatalf("resale=%s, must be untouched", p.ResalePrice)
		}
	}
}

func TestMarkOutOfStockSpansBatches(t *testing.T) {
	db := openTestDB(t) // BatchSize 2

	var all []internal.PersistedProduct
	var ids []string
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%03d", i)
		all = append(all, product(id, i, "10"))
		ids = append(ids, id)
	}
	if err := db.UpsertProducts(all); err != nil {
		t.Fatal(err)
	}

	if err := db.MarkOutOfStock(ids); err != nil {
		t.Fatal(err)
	}

	quantities, err := db.ListProductQuantities()
	if err != nil {
		t.Fatal(err)
	}
	for id, qty := range quantities {
		if qty != 0 {
			t.Fatalf("%s quantity=%d, want 0", id, qty)
		}
	}
}

func TestCatalogImportAudit(t *testing.T) {
	db := openTestDB(t)

	rec := internal.ReconciliationRecord{
		RunID:              "run-abc",
		Timestamp:          time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		New:                []string{"C"},
		Restocked:          []string{},
		RemovedFromCatalog: []string{"B"},
		MissingFromCatalog: []string{"X", "Y"},
		HighNewRatio:       true,
		Stats:              internal.SnapshotStats{Total: 10, Active: 8},
	}
	if err := db.InsertCatalogImport(rec); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertCatalogImport(internal.ReconciliationRecord{RunID: "run-def", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	last, err := db.LastCatalogImport()
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.RunID != "run-def" {
		t.Fatalf("last=%v, want run-def", last)
	}

	recs, err := db.ListCatalogImports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("len=%d, want 2", len(recs))
	}
	first := recs[1]
	if first.RunID != "run-abc" || !first.HighNewRatio {
		t.Fatalf("record=%+v", first)
	}
	if first.OutOfStockCount() != 3 {
		t.Fatalf("outOfStock=%d, want 3", first.OutOfStockCount())
	}
	if first.Stats.Total != 10 {
		t.Fatalf("stats=%+v", first.Stats)
	}
}
