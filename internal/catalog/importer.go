package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dbcstock/internal"
	"dbcstock/internal/config"
)

// Store is the persistence surface the import run needs.
type Store interface {
	ListProductQuantities() (map[string]int, error)
	UpsertProducts(products []internal.PersistedProduct) error
	MarkOutOfStock(identifiers []string) error
	InsertCatalogImport(rec internal.ReconciliationRecord) error
	BatchSize() int
}

type ImportService struct {
	store  Store
	logger *logrus.Logger
}

func NewImportService(store Store, logger *logrus.Logger) *ImportService {
	return &ImportService{store: store, logger: logger}
}

// Import reconciles a parsed snapshot against the store and commits the
// result: upserts in batches, targeted stock-outs for identifiers the
// snapshot dropped, and one audit row.
//
// A failed batch is reported and skipped; the remaining batches are
// still attempted, so one bad row cannot sink the rest of the import.
// The returned errors are per-batch *internal.StorageError values.
func (s *ImportService) Import(snapshot []internal.CatalogEntry, stats internal.SnapshotStats) (internal.ReconciliationRecord, []error, error) {
	// A header-only file parses to zero entries. Importing it would mark
	// every active product missing; a sold-out catalog still lists its
	// rows with zero quantities.
	if len(snapshot) == 0 {
		return internal.ReconciliationRecord{}, nil, errors.New(
			"catalog snapshot has no product rows - verify the file before re-running")
	}

	existing, err := s.store.ListProductQuantities()
	if err != nil {
		return internal.ReconciliationRecord{}, nil, err
	}

	runID := uuid.NewString()
	plan, err := Reconcile(snapshot, existing, stats, runID, time.Now())
	if err != nil {
		config.LogError(s.logger, "catalog", "Import", logrus.Fields{"runId": runID}, err)
		return internal.ReconciliationRecord{}, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"runId":     runID,
		"snapshot":  len(plan.Updates),
		"existing":  len(existing),
		"new":       len(plan.Record.New),
		"restocked": len(plan.Record.Restocked),
		"removed":   len(plan.Record.RemovedFromCatalog),
		"missing":   len(plan.Record.MissingFromCatalog),
	}).Info("reconciliation complete, writing")

	if plan.Record.HighNewRatio {
		s.logger.WithFields(logrus.Fields{
			"runId": runID,
			"new":   len(plan.Record.New),
			"total": len(plan.Updates),
		}).Warn("unusually high share of new identifiers, verify the catalog source")
	}

	var failures []error
	for _, batch := range chunk(plan.Updates, s.store.BatchSize()) {
		if err := s.store.UpsertProducts(batch); err != nil {
			serr := &internal.StorageError{Op: "upsert", Identifiers: identifiers(batch), Err: err}
			config.LogError(s.logger, "catalog", "Import", logrus.Fields{"runId": runID, "batch": len(batch)}, serr)
			failures = append(failures, serr)
		}
	}

	if err := s.store.MarkOutOfStock(plan.Missing); err != nil {
		serr := &internal.StorageError{Op: "mark-out-of-stock", Identifiers: plan.Missing, Err: err}
		config.LogError(s.logger, "catalog", "Import", logrus.Fields{"runId": runID}, serr)
		failures = append(failures, serr)
	}

	if err := s.store.InsertCatalogImport(plan.Record); err != nil {
		config.LogError(s.logger, "catalog", "Import", logrus.Fields{"runId": runID}, err)
		failures = append(failures, &internal.StorageError{Op: "audit", Err: err})
	}

	return plan.Record, failures, nil
}

func chunk(products []internal.PersistedProduct, size int) [][]internal.PersistedProduct {
	if size <= 0 {
		size = len(products)
	}
	var out [][]internal.PersistedProduct
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		out = append(out, products[start:end])
	}
	return out
}

func identifiers(products []internal.PersistedProduct) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Identifier
	}
	return out
}
