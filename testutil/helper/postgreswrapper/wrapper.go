// Package postgreswrapper runs integration tests against a real PostgreSQL database through each of the
// supported drivers.
//
// The tests are skipped unless TABLESERVICE_TEST_POSTGRES_DSN is set. ADAPTER_TYPE selects the driver:
// pgxpool (default), sqldb or sqlx.
package postgreswrapper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/example/shared/config"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

// Engine type constants
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"

	EnvDSN         = "TABLESERVICE_TEST_POSTGRES_DSN"
	EnvAdapterType = "ADAPTER_TYPE"
)

// Wrapper abstracts over the connections opened with the different drivers.
type Wrapper interface {
	Connection() *sqlengine.Connection
	Close()
}

type wrapper struct {
	conn    *sqlengine.Connection
	closeDB config.Closer
}

func (w *wrapper) Connection() *sqlengine.Connection {
	return w.conn
}

func (w *wrapper) Close() {
	_ = w.closeDB() // ignore error
}

// TestConfig returns the database configuration for the driver selected by ADAPTER_TYPE.
// The test is skipped when no test database is configured.
func TestConfig(t testing.TB) config.Config {
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping postgres integration test", EnvDSN)
	}

	cfg := config.Config{
		DSN:          dsn,
		MaxOpenConns: 4,
		MaxIdleConns: 1,
	}

	engineTypeFromEnv := strings.ToLower(os.Getenv(EnvAdapterType))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		cfg.Driver = config.DriverPGX
	case typeSQLDB:
		cfg.Driver = config.DriverPostgres
	case typeSQLX:
		cfg.Driver = config.DriverSQLX
	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}

	return cfg
}

// CreateWrapperWithTestConfig creates the schema if missing, empties the product tables
// and returns a Wrapper around a fresh Connection. The Wrapper is closed when the test ends.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	cfg := TestConfig(t)
	ctx := context.Background()

	CleanUp(t, cfg)

	conn, closeDB, err := config.Open(ctx, cfg)
	require.NoError(t, err, "error connecting to the database in test setup")

	w := &wrapper{conn: conn, closeDB: closeDB}
	t.Cleanup(w.Close)

	return w
}

// CleanUp creates the product schema if missing and truncates the product tables.
func CleanUp(t testing.TB, cfg config.Config) {
	ctx := context.Background()

	db, _, err := config.OpenSQL(ctx, cfg)
	require.NoError(t, err, "error connecting to the database in test setup")
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, products.PostgresSchema)
	require.NoError(t, err, "error creating the product schema")

	_, err = db.ExecContext(ctx, "TRUNCATE TABLE products, product_prices, product_variants RESTART IDENTITY")
	require.NoError(t, err, "error cleaning up the product tables")
}

// GivenPrice stores a price row bypassing the service.
func GivenPrice(t testing.TB, cfg config.Config, productID, currencyID int64, price float64) {
	ctx := context.Background()

	db, _, err := config.OpenSQL(ctx, cfg)
	require.NoError(t, err, "error connecting to the database in test setup")
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO product_prices (product_id, currency_id, price, rrp) VALUES ($1, $2, $3, $3)`,
		productID, currencyID, price,
	)
	require.NoError(t, err, "error in arranging test data")
}
