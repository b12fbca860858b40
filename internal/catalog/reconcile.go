package catalog

import (
	"time"

	"dbcstock/internal"
)

// Guard thresholds for the share of snapshot identifiers unknown to the
// store. Above the fail threshold the run is rejected outright; above the
// warn threshold it proceeds with a flag on the audit record. Inferred
// from observed behavior, not a documented business rule.
const (
	NewRatioFailThreshold = 0.90
	NewRatioWarnThreshold = 0.50
)

// Plan is the outcome of one reconciliation: the rows to upsert, the
// identifiers to force out of stock, and the audit record.
type Plan struct {
	Updates []internal.PersistedProduct
	Missing []string
	Record  internal.ReconciliationRecord
}

// Reconcile classifies every snapshot identifier against the existing
// store (identifier -> current quantity) and produces the update set.
// It is pure: reading and committing belong to the caller.
//
// Classification:
//   - absent from the store: new (active iff quantity > 0)
//   - present with zero quantity, snapshot positive: restocked
//   - present with positive quantity, snapshot zero: removed from catalog
//   - present with positive quantity, snapshot positive: unchanged
//     (the snapshot quantity still replaces the stored one)
//
// Store identifiers with positive quantity that the snapshot no longer
// mentions are missing-from-catalog: their quantity is forced to zero via
// a targeted update, not an upsert, so their other fields stay intact.
func Reconcile(snapshot []internal.CatalogEntry, existing map[string]int, stats internal.SnapshotStats, runID string, now time.Time) (Plan, error) {
	entries := dedupeByIdentifier(snapshot)

	record := internal.ReconciliationRecord{
		RunID:              runID,
		Timestamp:          now,
		New:                []string{},
		Restocked:          []string{},
		RemovedFromCatalog: []string{},
		MissingFromCatalog: []string{},
		Stats:              stats,
	}

	updates := make([]internal.PersistedProduct, 0, len(entries))
	inSnapshot := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		inSnapshot[e.Identifier] = struct{}{}

		oldQty, known := existing[e.Identifier]
		switch {
		case !known:
			record.New = append(record.New, e.Identifier)
		case oldQty == 0 && e.Quantity > 0:
			record.Restocked = append(record.Restocked, e.Identifier)
		case oldQty > 0 && e.Quantity == 0:
			record.RemovedFromCatalog = append(record.RemovedFromCatalog, e.Identifier)
		default:
			// Unchanged; the quantity is refreshed either way.
		}

		updates = append(updates, toPersisted(e))
	}

	// Safety valve: a snapshot that barely overlaps a populated store is
	// more likely a mismatched file than a genuine catalog turnover.
	// Skipped for an empty store, where everything is new by construction.
	if len(existing) > 0 && len(entries) > 0 {
		ratio := float64(len(record.New)) / float64(len(entries))
		if ratio > NewRatioFailThreshold {
			return Plan{}, &internal.IntegrityViolationError{
				NewCount:     len(record.New),
				SnapshotSize: len(entries),
				Ratio:        ratio,
			}
		}
		record.HighNewRatio = ratio >= NewRatioWarnThreshold
	}

	for identifier, oldQty := range existing {
		if _, ok := inSnapshot[identifier]; ok {
			continue
		}
		if oldQty > 0 {
			record.MissingFromCatalog = append(record.MissingFromCatalog, identifier)
		}
	}

	return Plan{Updates: updates, Missing: record.MissingFromCatalog, Record: record}, nil
}

// dedupeByIdentifier keeps one entry per identifier, last row in input
// order winning, so classification and upserts are deterministic.
func dedupeByIdentifier(snapshot []internal.CatalogEntry) []internal.CatalogEntry {
	byID := make(map[string]int, len(snapshot))
	out := make([]internal.CatalogEntry, 0, len(snapshot))
	for _, e := range snapshot {
		if pos, seen := byID[e.Identifier]; seen {
			out[pos] = e
			continue
		}
		byID[e.Identifier] = len(out)
		out = append(out, e)
	}
	return out
}

func toPersisted(e internal.CatalogEntry) internal.PersistedProduct {
	return internal.PersistedProduct{
		Identifier:     e.Identifier,
		ItemGroup:      e.ItemGroup,
		ProductName:    e.ProductName,
		Appearance:     e.Appearance,
		Functionality:  e.Functionality,
		Boxed:          e.Boxed,
		Color:          e.Color,
		CloudLock:      e.CloudLock,
		AdditionalInfo: e.AdditionalInfo,
		Quantity:       e.Quantity,
		RawPrice:       e.RawPrice,
		CampaignPrice:  e.CampaignPrice,
		TaxClass:       e.TaxClass,
		ResalePrice:    e.ResalePrice,
		InvalidPrice:   e.InvalidPrice,
		IsActive:       e.Quantity > 0,
	}
}
