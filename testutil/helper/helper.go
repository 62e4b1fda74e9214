package helper

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

// NewSQLiteDB opens a private in-memory sqlite database with the product schema.
// The pool is limited to one connection, every connection of an in-memory sqlite database is a separate database.
func NewSQLiteDB(t testing.TB) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "error opening sqlite in test setup")

	db.SetMaxOpenConns(1)

	_, err = db.Exec(products.SQLiteSchema)
	require.NoError(t, err, "error creating the schema in test setup")

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// NewSQLiteConnection returns a Connection on a fresh in-memory sqlite database together with the raw database.
func NewSQLiteConnection(t testing.TB) (*sql.DB, *sqlengine.Connection) {
	db := NewSQLiteDB(t)

	conn, err := sqlengine.NewConnectionFromSQLDB(db, sqlengine.DialectSQLite3)
	require.NoError(t, err, "error creating the connection in test setup")

	return db, conn
}

// GivenProduct stores a product row bypassing the service and returns its id.
func GivenProduct(t testing.TB, db *sql.DB, name string, slug any, brandID int64) int64 {
	result, err := db.ExecContext(
		context.Background(),
		`INSERT INTO products (name, slug, sku, brand_id) VALUES (?, ?, ?, ?)`,
		name, slug, "SKU-"+uuid.NewString()[:8], brandID,
	)
	assert.NoError(t, err, "error in arranging test data")

	id, err := result.LastInsertId()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// GivenProductPrice stores a price row for a product and currency.
func GivenProductPrice(t testing.TB, db *sql.DB, productID, currencyID int64, price float64) {
	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO product_prices (product_id, currency_id, price, rrp) VALUES (?, ?, ?, ?)`,
		productID, currencyID, price, price,
	)
	assert.NoError(t, err, "error in arranging test data")
}

// GivenProductVariant stores a variant row with the given stock for a product.
func GivenProductVariant(t testing.TB, db *sql.DB, productID, stock int64) {
	_, err := db.ExecContext(
		context.Background(),
		`INSERT INTO product_variants (product_id, stock) VALUES (?, ?)`,
		productID, stock,
	)
	assert.NoError(t, err, "error in arranging test data")
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *sql.DB, table string) int64 {
	var count int64
	err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&count)
	assert.NoError(t, err, "error in asserting test data")

	return count
}

// ProductColumn reads a single column of a product row bypassing the service.
func ProductColumn(t testing.TB, db *sql.DB, id int64, column string) any {
	var value any
	err := db.QueryRowContext(context.Background(), "SELECT "+column+" FROM products WHERE id = ?", id).Scan(&value)
	assert.NoError(t, err, "error in asserting test data")

	if b, ok := value.([]byte); ok {
		return string(b)
	}

	return value
}

// RecordIDOf returns the id of a record as int64.
func RecordIDOf(t testing.TB, record tableservice.Record) int64 {
	id, err := tableservice.ToInt64(record["id"])
	assert.NoError(t, err, "error in asserting test data")

	return id
}
