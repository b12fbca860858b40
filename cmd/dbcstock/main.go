package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dbcstock/internal"
	"dbcstock/internal/catalog"
	"dbcstock/internal/config"
	"dbcstock/internal/integration"
	"dbcstock/internal/pipeline"
	"dbcstock/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger := config.NewLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(storage.Options{
		Path:      cfg.StorePath,
		PageSize:  cfg.PageSize,
		BatchSize: cfg.BatchSize,
	})
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:transform":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		in := fs.String("in", "", "catalog xlsx path")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*in) == "" {
			must(fmt.Errorf("--in is required"))
		}
		snapshot, err := pipeline.ParseCatalogFile(*in)
		must(err)
		printSkips(snapshot.SkipErrors)
		target := *out
		if target == "" {
			target = defaultOut(cfg.OutputDir, *in, "_priced.xlsx")
		}
		must(pipeline.ExportCatalogXLSX(snapshot, target))
		printStats(snapshot.Stats)
		fmt.Printf("priced catalog written to %s\n", target)
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		in := fs.String("in", "", "catalog xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*in) == "" {
			must(fmt.Errorf("--in is required"))
		}
		snapshot, err := pipeline.ParseCatalogFile(*in)
		must(err)
		printSkips(snapshot.SkipErrors)
		svc := catalog.NewImportService(db, logger)
		record, failures, err := svc.Import(snapshot.Entries, snapshot.Stats)
		must(err)
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "warning: %v\n", f)
		}
		printRecord(record)
	case "order:price":
		runOrder(db, cfg, internal.VariantGrouped, os.Args[2:])
	case "order:imei":
		runOrder(db, cfg, internal.VariantSerialized, os.Args[2:])
	case "imports:info":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 5, "number of recent imports")
		_ = fs.Parse(os.Args[2:])
		records, err := db.ListCatalogImports(*limit)
		must(err)
		if len(records) == 0 {
			fmt.Println("no imports recorded")
			return
		}
		for _, record := range records {
			printRecord(record)
		}
	case "supplier:stock":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sku := fs.String("sku", "", "product identifier")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*sku) == "" {
			must(fmt.Errorf("--sku is required"))
		}
		client := integration.NewClient(cfg)
		info, err := client.CheckStock(context.Background(), *sku)
		must(err)
		fmt.Printf("sku=%s quantity=%d warehouse=%s\n", info.SKU, info.Quantity, info.Warehouse)
	case "supplier:order-status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		orderID := fs.String("orderId", "", "supplier order id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*orderID) == "" {
			must(fmt.Errorf("--orderId is required"))
		}
		client := integration.NewClient(cfg)
		status, err := client.GetOrderStatus(context.Background(), *orderID)
		must(err)
		fmt.Printf("order=%s status=%s mock=%v\n", status.OrderID, status.Status, status.Mock)
	default:
		usage()
		os.Exit(1)
	}
}

// runOrder handles both order commands; only the expected variant and
// the serialized CSV sidecar differ.
func runOrder(db *storage.DB, cfg config.Config, variant internal.OrderVariant, args []string) {
	name := "order:price"
	if variant == internal.VariantSerialized {
		name = "order:imei"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	in := fs.String("in", "", "order xlsx path")
	catalogPath := fs.String("catalog", "", "catalog xlsx to price against (default: product store)")
	mode := fs.String("mode", "", "internal|external")
	out := fs.String("out", "", "output xlsx path")
	csvOut := fs.String("csv", "", "also write a csv copy (serialized orders)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*in) == "" {
		must(fmt.Errorf("--in is required"))
	}
	visibility, err := parseMode(*mode)
	must(err)

	entries, err := catalogEntries(db, *catalogPath)
	must(err)
	resolver := catalog.NewResolver(catalog.BuildIndex(entries))

	doc, err := pipeline.ParseOrderFile(*in)
	must(err)
	printSkips(doc.SkipErrors)
	rows, summary, err := pipeline.TransformOrder(doc, *in, variant, resolver)
	must(err)

	target := *out
	if target == "" {
		target = defaultOut(cfg.OutputDir, *in, "_"+string(visibility)+".xlsx")
	}
	must(pipeline.ExportOrderXLSX(doc, rows, visibility, target))

	if variant == internal.VariantSerialized && strings.TrimSpace(*csvOut) != "" {
		must(pipeline.ExportSerializedCSV(doc, rows, visibility, *csvOut))
	}

	fmt.Printf("priced %d rows (exact=%d descriptive+vat=%d descriptive=%d not-found=%d skipped=%d)\n",
		summary.Rows, summary.ByExact, summary.ByDescriptiveTax, summary.ByDescriptive, summary.NotFound, doc.SkippedRows)
	fmt.Printf("supplier total=%s priced total=%s delta=%s\n",
		summary.TotalSupplier.StringFixed(2), summary.TotalResale.StringFixed(2), summary.Delta.StringFixed(2))
	fmt.Printf("output written to %s\n", target)
}

// catalogEntries prices against an explicit catalog file when given,
// otherwise against the active rows of the product store.
func catalogEntries(db *storage.DB, catalogPath string) ([]internal.CatalogEntry, error) {
	if strings.TrimSpace(catalogPath) != "" {
		snapshot, err := pipeline.ParseCatalogFile(catalogPath)
		if err != nil {
			return nil, err
		}
		return snapshot.Entries, nil
	}

	products, err := db.ActiveProducts()
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product store is empty: run catalog:import first or pass --catalog")
	}
	return catalog.EntriesFromProducts(products), nil
}

func parseMode(mode string) (internal.VisibilityMode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(internal.ModeInternal):
		return internal.ModeInternal, nil
	case string(internal.ModeExternal):
		return internal.ModeExternal, nil
	case "":
		return "", fmt.Errorf("--mode is required (internal|external)")
	default:
		return "", fmt.Errorf("unsupported mode: %s", mode)
	}
}

func defaultOut(outputDir, inputPath, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(outputDir, base+suffix)
}

func printSkips(skips []*internal.RowConversionError) {
	for _, skip := range skips {
		fmt.Fprintf(os.Stderr, "warning: %v\n", skip)
	}
}

func printStats(stats internal.SnapshotStats) {
	fmt.Printf("catalog: total=%d marginal=%d non-marginal=%d invalid-price=%d active=%d out-of-stock=%d skipped=%d\n",
		stats.Total, stats.Marginal, stats.NonMarginal, stats.InvalidPrice, stats.Active, stats.OutOfStock, stats.SkippedRows)
}

func printRecord(record internal.ReconciliationRecord) {
	fmt.Printf("import %s at %s: new=%d restocked=%d removed=%d missing=%d out-of-stock=%d",
		record.RunID, record.Timestamp.Format("2006-01-02 15:04:05"),
		len(record.New), len(record.Restocked), len(record.RemovedFromCatalog),
		len(record.MissingFromCatalog), record.OutOfStockCount())
	if record.HighNewRatio {
		fmt.Print(" [high new ratio]")
	}
	fmt.Println()
}

func usage() {
	fmt.Println("usage: dbcstock <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:transform --in=catalog.xlsx [--out=priced.xlsx]")
	fmt.Println("  catalog:import --in=catalog.xlsx")
	fmt.Println("  order:price --in=order.xlsx --mode=internal|external [--catalog=catalog.xlsx] [--out=...]")
	fmt.Println("  order:imei --in=order.xlsx --mode=internal|external [--catalog=...] [--out=...] [--csv=...]")
	fmt.Println("  imports:info [--limit=5]")
	fmt.Println("  supplier:stock --sku=...")
	fmt.Println("  supplier:order-status --orderId=...")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
