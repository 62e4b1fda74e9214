package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine/internal/adapters"
)

// Dialect selects the goqu SQL dialect statements are rendered in.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite3  Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
)

const savepointPrefix = "sp_"

var savepointNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Connection is the SQL collaborator shared by services: it renders statements for one dialect,
// executes them with bound arguments and keeps the state of the currently open transaction.
//
// While a transaction is open every statement of every service using this Connection runs inside it.
type Connection struct {
	db      adapters.DBAdapter
	dialect Dialect
	builder goqu.DialectWrapper

	mu sync.Mutex
	tx adapters.DBTx
}

// NewConnectionFromPGXPool creates a postgres Connection using a pgx Pool.
func NewConnectionFromPGXPool(db *pgxpool.Pool) (*Connection, error) {
	if db == nil {
		return nil, tableservice.ErrNilConnection
	}

	return newConnection(adapters.NewPGXAdapter(db), DialectPostgres)
}

// NewConnectionFromSQLDB creates a Connection using a sql.DB opened for the given dialect.
func NewConnectionFromSQLDB(db *sql.DB, dialect Dialect) (*Connection, error) {
	if db == nil {
		return nil, tableservice.ErrNilConnection
	}

	return newConnection(adapters.NewSQLAdapter(db), dialect)
}

// NewConnectionFromSQLX creates a Connection using a sqlx.DB.
// The dialect is derived from the driver name the sqlx.DB was opened with.
func NewConnectionFromSQLX(db *sqlx.DB) (*Connection, error) {
	if db == nil {
		return nil, tableservice.ErrNilConnection
	}

	dialect, err := DialectForDriver(db.DriverName())
	if err != nil {
		return nil, err
	}

	return newConnection(adapters.NewSQLXAdapter(db), dialect)
}

// DialectForDriver maps a database/sql driver name to its Dialect.
func DialectForDriver(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "postgres", "pgx", "pgx/v5":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite3, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", errors.Join(tableservice.ErrUnsupportedDialect, errors.New(driverName))
	}
}

func newConnection(db adapters.DBAdapter, dialect Dialect) (*Connection, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite3, DialectMySQL:
	default:
		return nil, errors.Join(tableservice.ErrUnsupportedDialect, errors.New(string(dialect)))
	}

	return &Connection{
		db:      db,
		dialect: dialect,
		builder: goqu.Dialect(string(dialect)),
	}, nil
}

func (c *Connection) Dialect() Dialect {
	return c.dialect
}

// InTransaction reports whether a top-level transaction is open.
func (c *Connection) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tx != nil
}

// Begin opens the top-level transaction when savepoint is empty, otherwise a named savepoint
// inside the open transaction.
func (c *Connection) Begin(ctx context.Context, savepoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if savepoint == "" {
		if c.tx != nil {
			return tableservice.ErrTransactionAlreadyActive
		}

		tx, err := c.db.Begin(ctx)
		if err != nil {
			return errors.Join(tableservice.ErrTransactionFailed, err)
		}

		c.tx = tx

		return nil
	}

	return c.savepointCommand(ctx, "SAVEPOINT ", savepoint)
}

// Commit commits the top-level transaction when savepoint is empty, otherwise it releases the savepoint.
func (c *Connection) Commit(ctx context.Context, savepoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if savepoint == "" {
		if c.tx == nil {
			return tableservice.ErrNoActiveTransaction
		}

		tx := c.tx
		c.tx = nil

		if err := tx.Commit(ctx); err != nil {
			return errors.Join(tableservice.ErrTransactionFailed, err)
		}

		return nil
	}

	return c.savepointCommand(ctx, "RELEASE SAVEPOINT ", savepoint)
}

// Rollback aborts the top-level transaction when savepoint is empty, otherwise it rolls back
// to the savepoint. The savepoint itself stays open.
func (c *Connection) Rollback(ctx context.Context, savepoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if savepoint == "" {
		if c.tx == nil {
			return tableservice.ErrNoActiveTransaction
		}

		tx := c.tx
		c.tx = nil

		if err := tx.Rollback(ctx); err != nil {
			return errors.Join(tableservice.ErrTransactionFailed, err)
		}

		return nil
	}

	return c.savepointCommand(ctx, "ROLLBACK TO SAVEPOINT ", savepoint)
}

// InSavepoint runs fn inside a freshly named savepoint, or inside a new top-level transaction when
// none is open. The work is kept when fn returns nil and undone otherwise; fn's error is returned.
func (c *Connection) InSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	savepoint := ""
	if c.InTransaction() {
		savepoint = NewSavepointName()
	}

	if err := c.Begin(ctx, savepoint); err != nil {
		return err
	}

	if fnErr := fn(ctx); fnErr != nil {
		if rollbackErr := c.Rollback(ctx, savepoint); rollbackErr != nil {
			return errors.Join(fnErr, rollbackErr)
		}

		if savepoint != "" {
			if releaseErr := c.Commit(ctx, savepoint); releaseErr != nil {
				return errors.Join(fnErr, releaseErr)
			}
		}

		return fnErr
	}

	return c.Commit(ctx, savepoint)
}

// NewSavepointName returns a unique savepoint name that is a plain SQL identifier.
func NewSavepointName() string {
	return savepointPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (c *Connection) savepointCommand(ctx context.Context, command, savepoint string) error {
	if !savepointNamePattern.MatchString(savepoint) {
		return tableservice.ErrInvalidSavepointName
	}

	if c.tx == nil {
		return tableservice.ErrNoActiveTransaction
	}

	if _, err := c.tx.Exec(ctx, command+savepoint); err != nil {
		return errors.Join(tableservice.ErrTransactionFailed, err)
	}

	return nil
}

// querier returns the open transaction, or the adapter when none is open.
func (c *Connection) querier() adapters.Querier {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		return c.tx
	}

	return c.db
}

func (c *Connection) query(ctx context.Context, query string, args []any) (adapters.DBRows, error) {
	return c.querier().Query(ctx, query, args...)
}

func (c *Connection) exec(ctx context.Context, query string, args []any) (adapters.DBResult, error) {
	return c.querier().Exec(ctx, query, args...)
}

func (c *Connection) supportsReturning() bool {
	return c.dialect == DialectPostgres
}
