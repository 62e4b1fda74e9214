package config

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

const (
	libPQDriverName  = "postgres"
	sqliteDriverName = "sqlite"
)

// Closer releases the database behind a Connection.
type Closer func() error

// Open opens the database configured in cfg, checks that it is reachable and wraps it into a Connection.
func Open(ctx context.Context, cfg Config) (*sqlengine.Connection, Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Driver {
	case DriverPGX:
		return openPGXPool(ctx, cfg)
	case DriverPostgres:
		return openSQLDB(ctx, cfg, libPQDriverName, sqlengine.DialectPostgres)
	case DriverSQLX:
		return openSQLX(ctx, cfg)
	default:
		return openSQLDB(ctx, cfg, sqliteDriverName, sqlengine.DialectSQLite3)
	}
}

// PGXPoolConfig creates a pgxpool.Config from cfg.
func PGXPoolConfig(cfg Config) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	dbConfig.MaxConns = int32(cfg.MaxOpenConns)
	dbConfig.MinConns = int32(cfg.MaxIdleConns)
	dbConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	dbConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	dbConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	return dbConfig, nil
}

func openPGXPool(ctx context.Context, cfg Config) (*sqlengine.Connection, Closer, error) {
	dbConfig, err := PGXPoolConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("open pgx pool: %w", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", pingErr)
	}

	conn, err := sqlengine.NewConnectionFromPGXPool(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return conn, func() error { pool.Close(); return nil }, nil
}

// OpenSQL opens the configured database through database/sql, for statements a Connection does not run
// such as schema changes. The postgres drivers all map to lib/pq here.
func OpenSQL(ctx context.Context, cfg Config) (*sql.DB, sqlengine.Dialect, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	if cfg.Driver == DriverSQLite {
		db, err := openAndPing(ctx, cfg, sqliteDriverName)
		return db, sqlengine.DialectSQLite3, err
	}

	db, err := openAndPing(ctx, cfg, libPQDriverName)

	return db, sqlengine.DialectPostgres, err
}

func openAndPing(ctx context.Context, cfg Config, driverName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	configurePool(db, cfg, driverName)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	return db, nil
}

func openSQLDB(ctx context.Context, cfg Config, driverName string, dialect sqlengine.Dialect) (*sqlengine.Connection, Closer, error) {
	db, err := openAndPing(ctx, cfg, driverName)
	if err != nil {
		return nil, nil, err
	}

	conn, err := sqlengine.NewConnectionFromSQLDB(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return conn, db.Close, nil
}

func openSQLX(ctx context.Context, cfg Config) (*sqlengine.Connection, Closer, error) {
	db, err := sqlx.Open(libPQDriverName, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	configurePool(db.DB, cfg, libPQDriverName)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", pingErr)
	}

	conn, err := sqlengine.NewConnectionFromSQLX(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return conn, db.Close, nil
}

// configurePool applies the pool settings. Every connection to an in-memory sqlite database opens
// its own database, so those are limited to one connection.
func configurePool(db *sql.DB, cfg Config, driverName string) {
	if driverName == sqliteDriverName && isSQLiteMemory(cfg.DSN) {
		db.SetMaxOpenConns(1)
		return
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func isSQLiteMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
