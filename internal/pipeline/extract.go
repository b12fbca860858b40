package pipeline

import (
	"bytes"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"dbcstock/internal"
	"dbcstock/internal/pricing"
	"dbcstock/internal/util"
)

// Supplier spreadsheet column headers. The files come from one upstream
// system; the names are fixed, not configurable.
const (
	colSKU            = "SKU"
	colItemGroup      = "Item Group"
	colProductName    = "Product Name"
	colAppearance     = "Appearance"
	colFunctionality  = "Functionality"
	colBoxed          = "Boxed"
	colColor          = "Color"
	colCloudLock      = "Cloud Lock"
	colAdditionalInfo = "Additional Info"
	colQuantity       = "Quantity"
	colPrice          = "Price"
	colCampaignPrice  = "Campaign Price"
	colVATType        = "VAT Type"

	colSerialID      = "Id"
	colSerialIMEI    = "Item Identifier"
	colOfferedPrice  = "Offered Price"
	colRequiredCount = "Required Count"
)

// CatalogSnapshot is a fully parsed catalog file: priced entries, the
// aggregate counters, and one record per row dropped for an unparseable
// numeric field.
type CatalogSnapshot struct {
	Entries    []internal.CatalogEntry
	Stats      internal.SnapshotStats
	SkipErrors []*internal.RowConversionError
}

func ParseCatalogFile(path string) (*CatalogSnapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &internal.ParseError{File: path, Err: err}
	}
	return ParseCatalog(content, path)
}

// ParseCatalog reads a catalog snapshot from xlsx bytes. Rows without an
// identifier or with an unusable quantity are skipped and counted; a
// missing required column fails the whole file.
func ParseCatalog(content []byte, name string) (*CatalogSnapshot, error) {
	rows, err := sheetRows(content)
	if err != nil {
		return nil, &internal.ParseError{File: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &internal.ParseError{File: name, MissingColumns: []string{colSKU, colProductName, colPrice, colQuantity}}
	}

	cols := headerIndex(rows[0])
	if missing := missingColumns(cols, colSKU, colProductName, colPrice, colQuantity); len(missing) > 0 {
		return nil, &internal.ParseError{File: name, MissingColumns: missing}
	}

	snapshot := &CatalogSnapshot{}
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowNo := i + 2

		identifier := util.TrimCell(cell(row, colAt(cols, colSKU)))
		if identifier == "" {
			snapshot.Stats.SkippedRows++
			continue
		}

		qtyCell := cell(row, colAt(cols, colQuantity))
		quantity, ok := util.ParseQuantity(qtyCell)
		if !ok || quantity < 0 {
			snapshot.Stats.SkippedRows++
			snapshot.SkipErrors = append(snapshot.SkipErrors,
				&internal.RowConversionError{Row: rowNo, Column: colQuantity, Value: qtyCell})
			continue
		}

		entry := internal.CatalogEntry{
			Identifier:     identifier,
			ItemGroup:      util.TrimCell(cell(row, colAt(cols, colItemGroup))),
			ProductName:    util.TrimCell(cell(row, colAt(cols, colProductName))),
			Appearance:     util.TrimCell(cell(row, colAt(cols, colAppearance))),
			Functionality:  util.TrimCell(cell(row, colAt(cols, colFunctionality))),
			Boxed:          util.TrimCell(cell(row, colAt(cols, colBoxed))),
			Color:          util.OptionalString(cell(row, colAt(cols, colColor))),
			CloudLock:      util.OptionalString(cell(row, colAt(cols, colCloudLock))),
			AdditionalInfo: util.OptionalString(cell(row, colAt(cols, colAdditionalInfo))),
			Quantity:       quantity,
			TaxClass:       internal.ParseTaxClass(util.TrimCell(cell(row, colAt(cols, colVATType)))),
			IsActive:       quantity > 0,
		}

		if campaign, ok := util.ParsePrice(cell(row, colAt(cols, colCampaignPrice))); ok && campaign.IsPositive() {
			entry.CampaignPrice = &campaign
		}

		raw, ok := util.ParsePrice(cell(row, colAt(cols, colPrice)))
		if !ok || !raw.IsPositive() {
			// Unusable price: keep the row on the books, never margin it.
			entry.RawPrice = raw
			entry.ResalePrice = raw
			entry.InvalidPrice = true
		} else {
			entry.RawPrice = raw
			entry.ResalePrice, _ = pricing.Resale(raw, entry.TaxClass)
		}

		snapshot.Entries = append(snapshot.Entries, entry)

		snapshot.Stats.Total++
		if entry.TaxClass == internal.TaxMarginal {
			snapshot.Stats.Marginal++
		} else {
			snapshot.Stats.NonMarginal++
		}
		if entry.InvalidPrice {
			snapshot.Stats.InvalidPrice++
		}
		if entry.IsActive {
			snapshot.Stats.Active++
		} else {
			snapshot.Stats.OutOfStock++
		}
	}

	return snapshot, nil
}

func ParseOrderFile(path string) (*internal.OrderDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &internal.ParseError{File: path, Err: err}
	}
	return ParseOrder(content, path)
}

// ParseOrder reads an order file and detects its structural variant. A
// file with both serial columns and none of the grouped-only columns is
// serialized; everything else is grouped.
func ParseOrder(content []byte, name string) (*internal.OrderDocument, error) {
	rows, err := sheetRows(content)
	if err != nil {
		return nil, &internal.ParseError{File: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &internal.ParseError{File: name, MissingColumns: []string{colSKU, colProductName, colPrice}}
	}

	cols := headerIndex(rows[0])
	if missing := missingColumns(cols, colSKU, colProductName, colPrice); len(missing) > 0 {
		return nil, &internal.ParseError{File: name, MissingColumns: missing}
	}

	doc := &internal.OrderDocument{
		Headers:     rows[0],
		Variant:     detectVariant(cols),
		PriceColumn: cols[colPrice],
	}
	if doc.Variant == internal.VariantGrouped {
		if missing := missingColumns(cols, colQuantity); len(missing) > 0 {
			return nil, &internal.ParseError{File: name, MissingColumns: missing}
		}
	}

	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		item := internal.OrderLineItem{
			LineNo:        i + 2,
			Raw:           padRow(row, len(rows[0])),
			Identifier:    util.TrimCell(cell(row, colAt(cols, colSKU))),
			ProductName:   util.TrimCell(cell(row, colAt(cols, colProductName))),
			Appearance:    util.TrimCell(cell(row, colAt(cols, colAppearance))),
			Functionality: util.TrimCell(cell(row, colAt(cols, colFunctionality))),
			TaxHint:       util.TrimCell(cell(row, colAt(cols, colVATType))),
		}

		if item.Identifier == "" && item.ProductName == "" {
			doc.SkippedRows++
			continue
		}

		if doc.Variant == internal.VariantSerialized {
			item.SerialIdentifier = util.TrimCell(cell(row, colAt(cols, colSerialIMEI)))
			item.Quantity = 1
		} else {
			qtyCell := cell(row, colAt(cols, colQuantity))
			qty, ok := util.ParseQuantity(qtyCell)
			if !ok || qty < 0 {
				doc.SkippedRows++
				doc.SkipErrors = append(doc.SkipErrors,
					&internal.RowConversionError{Row: item.LineNo, Column: colQuantity, Value: qtyCell})
				continue
			}
			item.Quantity = qty
		}

		// An unreadable supplier price is not fatal for the row; the
		// line stays priceable from the catalog side.
		item.SupplierPrice, _ = util.ParsePrice(cell(row, colAt(cols, colPrice)))

		doc.Rows = append(doc.Rows, item)
	}

	return doc, nil
}

func detectVariant(cols map[string]int) internal.OrderVariant {
	_, hasSerialID := cols[colSerialID]
	_, hasIMEI := cols[colSerialIMEI]
	_, hasOffered := cols[colOfferedPrice]
	_, hasRequired := cols[colRequiredCount]

	if hasSerialID && hasIMEI && !hasOffered && !hasRequired {
		return internal.VariantSerialized
	}
	return internal.VariantGrouped
}

func sheetRows(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := util.TrimCell(h)
		if name == "" {
			continue
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	return cols
}

func missingColumns(cols map[string]int, required ...string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// colAt distinguishes an absent optional column from column zero.
func colAt(cols map[string]int, name string) int {
	if idx, ok := cols[name]; ok {
		return idx
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// padRow widens a short row to the header width so exports can address
// every column.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
