package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"dbcstock/internal"
	"dbcstock/internal/pricing"
)

var catalogExportHeaders = []string{
	colSKU, colItemGroup, colProductName, colAppearance, colFunctionality,
	colBoxed, colColor, colCloudLock, colAdditionalInfo, colQuantity,
	colVATType, "Original Price", colCampaignPrice, "Resale Price", "Margin Applied",
}

// Internal-audience columns appended to a priced order. External exports
// must never carry them.
var auditHeaders = []string{
	"Supplier Price", "Catalog Price", "Resale Price",
	"Catalog VAT Type", "Supplier Discount %", "Match Method", "Status",
}

// ExportCatalogXLSX writes the priced snapshot with both the original
// and the resale price, plus the margin annotation per row.
func ExportCatalogXLSX(snapshot *CatalogSnapshot, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range catalogExportHeaders {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cellName, h)
	}

	for i, e := range snapshot.Entries {
		r := i + 2
		set := func(col int, value any) {
			cellName, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cellName, value)
		}

		set(1, e.Identifier)
		set(2, e.ItemGroup)
		set(3, e.ProductName)
		set(4, e.Appearance)
		set(5, e.Functionality)
		set(6, e.Boxed)
		set(7, derefString(e.Color))
		set(8, derefString(e.CloudLock))
		set(9, derefString(e.AdditionalInfo))
		set(10, e.Quantity)
		set(11, string(e.TaxClass))
		set(12, decimalCell(e.RawPrice))
		if e.CampaignPrice != nil {
			set(13, decimalCell(*e.CampaignPrice))
		}
		set(14, decimalCell(e.ResalePrice))
		set(15, marginNote(e))
	}

	return saveXLSX(f, outputPath)
}

func marginNote(e internal.CatalogEntry) string {
	if e.InvalidPrice {
		return pricing.InvalidPriceReason
	}
	return pricing.MarginNote(e.RawPrice, e.TaxClass, e.CampaignPrice)
}

// ExportOrderXLSX writes a priced order. The original columns are kept
// as received, with the price column substituted per row. Internal mode
// appends the audit columns; external mode appends nothing.
func ExportOrderXLSX(doc *internal.OrderDocument, rows []internal.PricedRow, mode internal.VisibilityMode, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers, dropCol := orderLayout(doc, mode)
	for i, h := range headers {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cellName, h)
	}

	for i, row := range rows {
		r := i + 2
		for c, value := range orderCells(doc, row, mode, dropCol) {
			cellName, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(sheet, cellName, value)
		}
	}

	return saveXLSX(f, outputPath)
}

// ExportSerializedCSV writes a priced serialized order as UTF-8 CSV,
// one row per unit, same visibility rules as the xlsx export.
func ExportSerializedCSV(doc *internal.OrderDocument, rows []internal.PricedRow, mode internal.VisibilityMode, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)

	headers, dropCol := orderLayout(doc, mode)
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(headers))
		for _, value := range orderCells(doc, row, mode, dropCol) {
			record = append(record, stringCell(value))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// orderLayout returns the output headers and, for external exports, the
// index of the input's tax column. External output must carry no tax
// classification, so that column is removed even when the supplier's file
// brought it along.
func orderLayout(doc *internal.OrderDocument, mode internal.VisibilityMode) ([]string, int) {
	headers := append([]string(nil), doc.Headers...)
	if mode == internal.ModeInternal {
		return append(headers, auditHeaders...), -1
	}

	dropCol := colAt(headerIndex(doc.Headers), colVATType)
	if dropCol >= 0 {
		headers = append(headers[:dropCol], headers[dropCol+1:]...)
	}
	return headers, dropCol
}

func orderCells(doc *internal.OrderDocument, row internal.PricedRow, mode internal.VisibilityMode, dropCol int) []any {
	cells := make([]any, 0, len(doc.Headers)+len(auditHeaders))
	for c, raw := range row.Line.Raw {
		if c == dropCol {
			continue
		}
		if c == doc.PriceColumn {
			cells = append(cells, decimalCell(row.Price))
			continue
		}
		cells = append(cells, raw)
	}

	if mode != internal.ModeInternal {
		return cells
	}

	cells = append(cells, decimalCell(row.SupplierPrice))
	if row.Matched {
		cells = append(cells,
			decimalCell(row.CatalogPrice),
			decimalCell(row.ResalePrice),
			string(row.TaxClass),
			discountCell(row.DiscountPercent),
		)
	} else {
		cells = append(cells, "", "", "", "")
	}
	cells = append(cells, string(row.Method), row.Status)
	return cells
}

func saveXLSX(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func decimalCell(d decimal.Decimal) any {
	v, _ := d.Float64()
	return v
}

func discountCell(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return decimalCell(*d)
}

func stringCell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	case int:
		return decimal.NewFromInt(int64(v)).String()
	default:
		return ""
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
