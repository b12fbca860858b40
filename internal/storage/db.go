package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"dbcstock/internal"
)

// Options size the read and write windows. Price fields are stored as
// TEXT so they round-trip through decimal without float drift.
type Options struct {
	Path      string
	PageSize  int
	BatchSize int
}

type DB struct {
	conn *sql.DB
	opts Options
}

func Open(opts Options) (*DB, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, opts: opts}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) BatchSize() int { return d.opts.BatchSize }

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  identifier TEXT PRIMARY KEY,
  itemGroup TEXT NOT NULL DEFAULT '',
  productName TEXT NOT NULL,
  appearance TEXT NOT NULL DEFAULT '',
  functionality TEXT NOT NULL DEFAULT '',
  boxed TEXT NOT NULL DEFAULT '',
  color TEXT,
  cloudLock TEXT,
  additionalInfo TEXT,
  quantity INTEGER NOT NULL DEFAULT 0,
  rawPrice TEXT NOT NULL DEFAULT '0',
  campaignPrice TEXT,
  vatType TEXT NOT NULL,
  resalePrice TEXT NOT NULL DEFAULT '0',
  invalidPrice INTEGER NOT NULL DEFAULT 0,
  isActive INTEGER NOT NULL DEFAULT 0,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(productName);
CREATE INDEX IF NOT EXISTS idx_products_active ON products(isActive);

CREATE TABLE IF NOT EXISTS catalog_imports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL UNIQUE,
  importedAt TEXT NOT NULL,
  newJson TEXT NOT NULL,
  restockedJson TEXT NOT NULL,
  removedJson TEXT NOT NULL,
  missingJson TEXT NOT NULL,
  highNewRatio INTEGER NOT NULL DEFAULT 0,
  statsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ListProductQuantities reads identifier and quantity for every product,
// page by page, keyed by rowid so pagination is stable under writes.
func (d *DB) ListProductQuantities() (map[string]int, error) {
	out := make(map[string]int)
	lastRowID := int64(0)

	for {
		rows, err := d.conn.Query(`
SELECT rowid, identifier, quantity FROM products
WHERE rowid > ? ORDER BY rowid LIMIT ?
`, lastRowID, d.opts.PageSize)
		if err != nil {
			return nil, err
		}

		n := 0
		for rows.Next() {
			var identifier string
			var qty int
			if err := rows.Scan(&lastRowID, &identifier, &qty); err != nil {
				_ = rows.Close()
				return nil, err
			}
			out[identifier] = qty
			n++
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()

		if n < d.opts.PageSize {
			return out, nil
		}
	}
}

const productColumns = `identifier, itemGroup, productName, appearance, functionality,
       boxed, color, cloudLock, additionalInfo, quantity,
       rawPrice, campaignPrice, vatType, resalePrice, invalidPrice, isActive`

// ListProducts returns every product row, paginated by rowid.
func (d *DB) ListProducts() ([]internal.PersistedProduct, error) {
	var out []internal.PersistedProduct
	lastRowID := int64(0)

	for {
		rows, err := d.conn.Query(`
SELECT rowid, `+productColumns+` FROM products
WHERE rowid > ? ORDER BY rowid LIMIT ?
`, lastRowID, d.opts.PageSize)
		if err != nil {
			return nil, err
		}

		n := 0
		for rows.Next() {
			p, rowID, err := scanProduct(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			lastRowID = rowID
			out = append(out, p)
			n++
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()

		if n < d.opts.PageSize {
			return out, nil
		}
	}
}

// ActiveProducts returns the rows with positive quantity, the set an
// order is priced against when no catalog file is supplied.
func (d *DB) ActiveProducts() ([]internal.PersistedProduct, error) {
	all, err := d.ListProducts()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func scanProduct(rows *sql.Rows) (internal.PersistedProduct, int64, error) {
	var p internal.PersistedProduct
	var rowID int64
	var color, cloudLock, additionalInfo, campaign sql.NullString
	var rawPrice, vatType, resalePrice string
	var invalidPrice, isActive int

	if err := rows.Scan(
		&rowID, &p.Identifier, &p.ItemGroup, &p.ProductName, &p.Appearance, &p.Functionality,
		&p.Boxed, &color, &cloudLock, &additionalInfo, &p.Quantity,
		&rawPrice, &campaign, &vatType, &resalePrice, &invalidPrice, &isActive,
	); err != nil {
		return internal.PersistedProduct{}, 0, err
	}

	p.Color = nullableString(color)
	p.CloudLock = nullableString(cloudLock)
	p.AdditionalInfo = nullableString(additionalInfo)
	p.TaxClass = internal.TaxClass(vatType)
	p.InvalidPrice = invalidPrice != 0
	p.IsActive = isActive != 0

	var err error
	if p.RawPrice, err = decimal.NewFromString(rawPrice); err != nil {
		return internal.PersistedProduct{}, 0, fmt.Errorf("product %s: bad rawPrice %q: %w", p.Identifier, rawPrice, err)
	}
	if p.ResalePrice, err = decimal.NewFromString(resalePrice); err != nil {
		return internal.PersistedProduct{}, 0, fmt.Errorf("product %s: bad resalePrice %q: %w", p.Identifier, resalePrice, err)
	}
	if campaign.Valid && campaign.String != "" {
		c, err := decimal.NewFromString(campaign.String)
		if err != nil {
			return internal.PersistedProduct{}, 0, fmt.Errorf("product %s: bad campaignPrice %q: %w", p.Identifier, campaign.String, err)
		}
		p.CampaignPrice = &c
	}

	return p, rowID, nil
}

// UpsertProducts writes one batch in a single transaction. The batch
// either commits whole or leaves the store untouched.
func (d *DB) UpsertProducts(products []internal.PersistedProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (
  identifier, itemGroup, productName, appearance, functionality,
  boxed, color, cloudLock, additionalInfo, quantity,
  rawPrice, campaignPrice, vatType, resalePrice, invalidPrice, isActive, updatedAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(identifier) DO UPDATE SET
  itemGroup=excluded.itemGroup,
  productName=excluded.productName,
  appearance=excluded.appearance,
  functionality=excluded.functionality,
  boxed=excluded.boxed,
  color=excluded.color,
  cloudLock=excluded.cloudLock,
  additionalInfo=excluded.additionalInfo,
  quantity=excluded.quantity,
  rawPrice=excluded.rawPrice,
  campaignPrice=excluded.campaignPrice,
  vatType=excluded.vatType,
  resalePrice=excluded.resalePrice,
  invalidPrice=excluded.invalidPrice,
  isActive=excluded.isActive,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		var campaign interface{}
		if p.CampaignPrice != nil {
			campaign = p.CampaignPrice.String()
		}
		if _, err := stmt.Exec(
			p.Identifier, p.ItemGroup, p.ProductName, p.Appearance, p.Functionality,
			p.Boxed, toNull(p.Color), toNull(p.CloudLock), toNull(p.AdditionalInfo), p.Quantity,
			p.RawPrice.String(), campaign, string(p.TaxClass), p.ResalePrice.String(),
			boolInt(p.InvalidPrice), boolInt(p.IsActive),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkOutOfStock zeroes the quantity of the given identifiers without
// touching any other field. The list is written in batches of BatchSize
// so one statement never carries an unbounded bind-variable count.
func (d *DB) MarkOutOfStock(identifiers []string) error {
	for start := 0; start < len(identifiers); start += d.opts.BatchSize {
		end := start + d.opts.BatchSize
		if end > len(identifiers) {
			end = len(identifiers)
		}
		if err := d.markOutOfStockBatch(identifiers[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) markOutOfStockBatch(identifiers []string) error {
	placeholders := strings.Repeat("?,", len(identifiers))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(identifiers))
	for i, id := range identifiers {
		args[i] = id
	}

	_, err := d.conn.Exec(`
UPDATE products SET quantity = 0, isActive = 0, updatedAt = CURRENT_TIMESTAMP
WHERE identifier IN (`+placeholders+`)
`, args...)
	return err
}

func (d *DB) InsertCatalogImport(rec internal.ReconciliationRecord) error {
	newJSON, _ := json.Marshal(rec.New)
	restockedJSON, _ := json.Marshal(rec.Restocked)
	removedJSON, _ := json.Marshal(rec.RemovedFromCatalog)
	missingJSON, _ := json.Marshal(rec.MissingFromCatalog)
	statsJSON, _ := json.Marshal(rec.Stats)

	_, err := d.conn.Exec(`
INSERT INTO catalog_imports (runId, importedAt, newJson, restockedJson, removedJson, missingJson, highNewRatio, statsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.RunID, rec.Timestamp.UTC().Format(time.RFC3339), string(newJSON), string(restockedJSON),
		string(removedJSON), string(missingJSON), boolInt(rec.HighNewRatio), string(statsJSON))
	return err
}

// ListCatalogImports returns the most recent import records, newest
// first.
func (d *DB) ListCatalogImports(limit int) ([]internal.ReconciliationRecord, error) {
	rows, err := d.conn.Query(`
SELECT runId, importedAt, newJson, restockedJson, removedJson, missingJson, highNewRatio, statsJson
FROM catalog_imports ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReconciliationRecord
	for rows.Next() {
		var rec internal.ReconciliationRecord
		var importedAt, newJSON, restockedJSON, removedJSON, missingJSON, statsJSON string
		var highNewRatio int
		if err := rows.Scan(&rec.RunID, &importedAt, &newJSON, &restockedJSON, &removedJSON, &missingJSON, &highNewRatio, &statsJSON); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, importedAt)
		rec.HighNewRatio = highNewRatio != 0
		_ = json.Unmarshal([]byte(newJSON), &rec.New)
		_ = json.Unmarshal([]byte(restockedJSON), &rec.Restocked)
		_ = json.Unmarshal([]byte(removedJSON), &rec.RemovedFromCatalog)
		_ = json.Unmarshal([]byte(missingJSON), &rec.MissingFromCatalog)
		_ = json.Unmarshal([]byte(statsJSON), &rec.Stats)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) LastCatalogImport() (*internal.ReconciliationRecord, error) {
	recs, err := d.ListCatalogImports(1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNull(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
