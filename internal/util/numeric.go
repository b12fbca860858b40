package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reThousandDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParsePrice reads a spreadsheet money cell. Supplier files carry plain
// decimals as well as "1 234,56" style values. ok is false for blank or
// non-numeric cells.
func ParsePrice(cell string) (decimal.Decimal, bool) {
	token := normalizeNumericToken(cell)
	if token == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantity reads a stock quantity cell. Fractional values are not
// quantities here; ok is false for blank, non-numeric or fractional cells.
func ParseQuantity(cell string) (int, bool) {
	token := normalizeNumericToken(cell)
	if token == "" {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeNumericToken(cell string) string {
	compact := strings.ReplaceAll(cell, " ", " ")
	compact = strings.TrimSpace(compact)
	compact = strings.ReplaceAll(compact, " ", "")
	if compact == "" {
		return ""
	}
	if reThousandDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

func TrimCell(cell string) string {
	return strings.TrimSpace(cell)
}

// OptionalString trims a cell and returns nil for empties, the way the
// nullable descriptive columns are stored.
func OptionalString(cell string) *string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
