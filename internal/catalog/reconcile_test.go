package catalog

import (
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"dbcstock/internal"
)

func stockEntry(id string, qty int) internal.CatalogEntry {
	e := entry(id, "Model "+id, "Grade A", "Working", internal.TaxNonMarginal, "111")
	e.Quantity = qty
	e.IsActive = qty > 0
	return e
}

func reconcile(t *testing.T, snapshot []internal.CatalogEntry, existing map[string]int) Plan {
	t.Helper()
	plan, err := Reconcile(snapshot, existing, internal.SnapshotStats{Total: len(snapshot)}, "run-1", time.Now())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	return plan
}

func TestReconcileClassification(t *testing.T) {
	existing := map[string]int{"A": 5, "B": 0}
	snapshot := []internal.CatalogEntry{
		stockEntry("A", 3),
		stockEntry("C", 10),
	}

	plan := reconcile(t, snapshot, existing)
	rec := plan.Record

	if fmt.Sprint(rec.New) != "[C]" {
		t.Fatalf("new=%v, want [C]", rec.New)
	}
	if len(rec.Restocked) != 0 || len(rec.RemovedFromCatalog) != 0 {
		t.Fatalf("restocked=%v removed=%v, want none", rec.Restocked, rec.RemovedFromCatalog)
	}
	// B was already out of stock, so its absence is not a loss.
	if len(rec.MissingFromCatalog) != 0 {
		t.Fatalf("missing=%v, want none", rec.MissingFromCatalog)
	}
	if rec.OutOfStockCount() != 0 {
		t.Fatalf("outOfStock=%d, want 0", rec.OutOfStockCount())
	}

	if len(plan.Updates) != 2 {
		t.Fatalf("updates=%d, want 2", len(plan.Updates))
	}
	for _, u := range plan.Updates {
		if u.IsActive != (u.Quantity > 0) {
			t.Fatalf("%s: isActive=%v for quantity=%d", u.Identifier, u.IsActive, u.Quantity)
		}
	}
}

func TestReconcileRestockedAndRemoved(t *testing.T) {
	existing := map[string]int{"A": 0, "B": 7, "C": 2}
	snapshot := []internal.CatalogEntry{
		stockEntry("A", 4), // was out of stock, back
		stockEntry("B", 0), // still listed, sold out
		stockEntry("C", 2),
	}

	rec := reconcile(t, snapshot, existing).Record

	if fmt.Sprint(rec.Restocked) != "[A]" {
		t.Fatalf("restocked=%v, want [A]", rec.Restocked)
	}
	if fmt.Sprint(rec.RemovedFromCatalog) != "[B]" {
		t.Fatalf("removed=%v, want [B]", rec.RemovedFromCatalog)
	}
	if rec.OutOfStockCount() != 1 {
		t.Fatalf("outOfStock=%d, want 1", rec.OutOfStockCount())
	}
}

func TestReconcileMissingFromCatalog(t *testing.T) {
	existing := map[string]int{"A": 5, "GONE1": 3, "GONE2": 1, "DEAD": 0}
	snapshot := []internal.CatalogEntry{stockEntry("A", 5)}

	plan := reconcile(t, snapshot, existing)

	missing := append([]string(nil), plan.Record.MissingFromCatalog...)
	sort.Strings(missing)
	if fmt.Sprint(missing) != "[GONE1 GONE2]" {
		t.Fatalf("missing=%v, want [GONE1 GONE2]", missing)
	}
	// Missing identifiers are zeroed through a targeted update, never
	// through an upsert that could clobber their descriptive fields.
	for _, u := range plan.Updates {
		if u.Identifier == "GONE1" || u.Identifier == "GONE2" {
			t.Fatalf("missing identifier %s must not appear in the upsert set", u.Identifier)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	snapshot := []internal.CatalogEntry{
		stockEntry("A", 3),
		stockEntry("B", 0),
	}

	first := reconcile(t, snapshot, map[string]int{})

	existing := make(map[string]int, len(first.Updates))
	for _, u := range first.Updates {
		existing[u.Identifier] = u.Quantity
	}

	second := reconcile(t, snapshot, existing).Record
	if len(second.New)+len(second.Restocked)+len(second.RemovedFromCatalog)+len(second.MissingFromCatalog) != 0 {
		t.Fatalf("second run should classify everything unchanged, got %+v", second)
	}
}

func TestReconcileLastDuplicateWins(t *testing.T) {
	a := stockEntry("A", 1)
	a2 := stockEntry("A", 9)

	plan := reconcile(t, []internal.CatalogEntry{a, a2}, map[string]int{"A": 1})
	if len(plan.Updates) != 1 {
		t.Fatalf("updates=%d, want 1", len(plan.Updates))
	}
	if plan.Updates[0].Quantity != 9 {
		t.Fatalf("quantity=%d, last duplicate should win", plan.Updates[0].Quantity)
	}
}

func TestReconcileIntegrityGuard(t *testing.T) {
	existing := make(map[string]int, 100)
	for i := 0; i < 100; i++ {
		existing[fmt.Sprintf("OLD%03d", i)] = 1
	}
	snapshot := []internal.CatalogEntry{
		stockEntry("NEW1", 1),
		stockEntry("NEW2", 1),
	}

	_, err := Reconcile(snapshot, existing, internal.SnapshotStats{}, "run-guard", time.Now())
	var iv *internal.IntegrityViolationError
	if !errors.As(err, &iv) {
		t.Fatalf("err=%v, want IntegrityViolationError", err)
	}
	if iv.NewCount != 2 || iv.SnapshotSize != 2 {
		t.Fatalf("violation=%+v", iv)
	}
}

func TestReconcileGuardSkippedOnEmptyStore(t *testing.T) {
	snapshot := []internal.CatalogEntry{stockEntry("A", 1), stockEntry("B", 2)}

	plan := reconcile(t, snapshot, map[string]int{})
	if len(plan.Record.New) != 2 {
		t.Fatalf("new=%v, want both identifiers", plan.Record.New)
	}
	if plan.Record.HighNewRatio {
		t.Fatal("bootstrap import should not carry the high-new-ratio flag")
	}
}

func TestReconcileHighNewRatioWarning(t *testing.T) {
	existing := map[string]int{"A": 1, "B": 1}
	// 2 of 4 identifiers are new: warn, do not reject.
	snapshot := []internal.CatalogEntry{
		stockEntry("A", 1),
		stockEntry("B", 1),
		stockEntry("C", 1),
		stockEntry("D", 1),
	}

	plan := reconcile(t, snapshot, existing)
	if !plan.Record.HighNewRatio {
		t.Fatal("expected high-new-ratio warning at 50% new")
	}
}
