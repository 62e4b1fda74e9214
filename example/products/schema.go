package products

import "github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"

// SQLiteSchema creates the product tables in sqlite.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT    NOT NULL DEFAULT '',
	slug     TEXT,
	sku      TEXT,
	brand_id INTEGER,
	enabled  INTEGER NOT NULL DEFAULT 1,
	stock    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS product_prices (
	product_id  INTEGER NOT NULL,
	currency_id INTEGER NOT NULL,
	price       REAL    NOT NULL,
	rrp         REAL
);
CREATE TABLE IF NOT EXISTS product_variants (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	stock      INTEGER NOT NULL DEFAULT 0
);`

// PostgresSchema creates the product tables in postgres.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT    NOT NULL DEFAULT '',
	slug     TEXT,
	sku      TEXT,
	brand_id BIGINT,
	enabled  INTEGER NOT NULL DEFAULT 1,
	stock    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS products_slug_idx ON products (slug);
CREATE TABLE IF NOT EXISTS product_prices (
	product_id  BIGINT NOT NULL,
	currency_id BIGINT NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	rrp         DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS product_variants (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL,
	stock      INTEGER NOT NULL DEFAULT 0
);`

// Schema returns the DDL of the product tables for dialect.
func Schema(dialect sqlengine.Dialect) string {
	if dialect == sqlengine.DialectPostgres {
		return PostgresSchema
	}

	return SQLiteSchema
}
