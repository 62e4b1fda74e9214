package tableservice

import (
	"errors"
	"fmt"
)

// ErrConfiguration groups errors raised while constructing a service or connection.
// Construction never completes when one of them is returned.
var ErrConfiguration = errors.New("configuration error")

// ErrValidation groups errors caused by caller input. The caller must correct the input and retry.
var ErrValidation = errors.New("validation error")

var ErrEmptyTableName = fmt.Errorf("%w: unknown table to select from, empty table name supplied", ErrConfiguration)
var ErrNilConnection = fmt.Errorf("%w: nil database connection supplied", ErrConfiguration)
var ErrEmptyColumnName = fmt.Errorf("%w: empty column name supplied", ErrConfiguration)
var ErrUnsupportedDialect = fmt.Errorf("%w: unsupported sql dialect", ErrConfiguration)

var ErrIDInInsertData = fmt.Errorf("%w: data contains database record id value", ErrValidation)
var ErrEmptyUpdateData = fmt.Errorf("%w: no columns left to update", ErrValidation)
var ErrInvalidSlugIdentifier = fmt.Errorf("%w: slug carries a non numeric identifier", ErrValidation)
var ErrInvalidSavepointName = fmt.Errorf("%w: savepoint name must be a plain sql identifier", ErrValidation)

var ErrNoActiveTransaction = errors.New("no active transaction")
var ErrTransactionAlreadyActive = errors.New("a transaction is already active on this connection")

var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrQueryingFailed = errors.New("querying the database failed")
var ErrExecutingFailed = errors.New("executing the statement failed")
var ErrScanningRowFailed = errors.New("scanning the database row failed")
var ErrGettingInsertIDFailed = errors.New("retrieving the generated identifier failed")
var ErrTransactionFailed = errors.New("transaction command failed")
