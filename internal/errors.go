package internal

import (
	"fmt"
	"strings"
)

// ParseError means the input file itself is unusable: unreadable bytes or
// missing required columns. Fatal, raised before any state mutation.
type ParseError struct {
	File           string
	MissingColumns []string
	Err            error
}

func (e *ParseError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("parse %s: missing required columns: %s - re-run with a corrected file",
			e.File, strings.Join(e.MissingColumns, ", "))
	}
	return fmt.Sprintf("parse %s: %v - re-run with a corrected file", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FormatMismatchError means an order file of one structural variant was
// routed to the other variant's path. Raised before any row processing.
type FormatMismatchError struct {
	File     string
	Expected OrderVariant
	Got      OrderVariant
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("order file %s is a %s order, expected %s - route it through the %s order command",
		e.File, e.Got, e.Expected, e.Got)
}

// RowConversionError marks a single row with an unparseable numeric field.
// The row is skipped and the run continues.
type RowConversionError struct {
	Row    int
	Column string
	Value  string
}

func (e *RowConversionError) Error() string {
	return fmt.Sprintf("row %d: column %q has unparseable value %q", e.Row, e.Column, e.Value)
}

// IntegrityViolationError is the new-ratio safety valve: the snapshot
// shares too little with the existing store to be trusted. Fatal, nothing
// is written.
type IntegrityViolationError struct {
	NewCount     int
	SnapshotSize int
	Ratio        float64
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation: %d of %d snapshot identifiers (%.0f%%) are unknown to the store - "+
		"verify the catalog file matches this inventory before re-running",
		e.NewCount, e.SnapshotSize, e.Ratio*100)
}

// StorageError wraps a failed batch write. The batch's identifiers are
// reported so the caller can retry only the failed subset.
type StorageError struct {
	Op          string
	Identifiers []string
	Err         error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %d identifier(s) [%s]: %v",
		e.Op, len(e.Identifiers), previewList(e.Identifiers, 5), e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func previewList(ids []string, max int) string {
	if len(ids) <= max {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:max], ", ") + ", ..."
}
