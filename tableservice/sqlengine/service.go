package sqlengine

import (
	"context"
	"errors"
	"strconv"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

const (
	logMsgBuildQueryFailed     = "failed to build sql statement"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgInsertIDFailed       = "failed to retrieve generated identifier"
	logMsgSlugCacheFailed      = "slug cache access failed"
	logMsgOperationRejected    = "tableservice operation rejected: "
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "tableservice operation: "
	logMsgCompleted            = " completed"
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrArgs                = "args"
	logAttrTable               = "table"
	logAttrDurationMS          = "duration_ms"
	logAttrSavepoint           = "savepoint"
	operationGetAll            = "get_all"
	operationGetCount          = "get_count"
	operationGetByID           = "get_by_id"
	operationInsert            = "insert"
	operationUpdate            = "update"
	operationDelete            = "delete"
	operationSimpleSearch      = "simple_search"
	operationSimpleSearchCount = "simple_search_count"
	operationSlugIn            = "slug_in"
	operationSlugOut           = "slug_out"
	operationFetch             = "fetch"
	operationBegin             = "begin"
	operationCommit            = "commit"
	operationRollback          = "rollback"
	bufferKeyCount             = "count"
	bufferKeyByIDPrefix        = "by_id:"
)

// Service is the generic data-access service of one table: reads built from a base query, filter
// driven search, inserts/updates/deletes with lifecycle callbacks, slug resolution and pass-through
// transactions. Per-entity services embed it and customize it through options.
//
// A Service serves one logical request at a time; its default buffer and slug cache are not synchronized.
type Service struct {
	conn       *Connection
	tableName  string
	idColumn   string
	slugColumn string
	nameColumn string

	baseQuery       BaseQueryFunc
	storeDataMapper StoreDataMapper
	buffer          tableservice.Buffer
	slugCache       tableservice.SlugCache

	logger           tableservice.Logger
	contextualLogger tableservice.ContextualLogger
	metricsCollector tableservice.MetricsCollector
	tracingCollector tableservice.TracingCollector

	onBeforeInsert []tableservice.BeforeInsertFunc
	onInserted     []tableservice.AfterInsertFunc
	onBeforeUpdate []tableservice.UpdateFunc
	onUpdated      []tableservice.UpdateFunc
	onBeforeDelete []tableservice.DeleteFunc
	onDeleted      []tableservice.DeleteFunc
	onSave         []tableservice.SaveFunc
}

// NewService creates a Service for tableName on the given Connection with optional configuration.
// Clearing the result buffer is always the first on-save callback.
func NewService(conn *Connection, tableName string, options ...Option) (*Service, error) {
	if conn == nil {
		return nil, tableservice.ErrNilConnection
	}

	if tableName == "" {
		return nil, tableservice.ErrEmptyTableName
	}

	s := &Service{
		conn:       conn,
		tableName:  tableName,
		idColumn:   tableservice.DefaultIDColumn,
		slugColumn: tableservice.DefaultSlugColumn,
		nameColumn: tableservice.DefaultNameColumn,
		buffer:     tableservice.NewMapBuffer(),
		slugCache:  tableservice.NewMapSlugCache(),
	}

	s.onSave = []tableservice.SaveFunc{s.cleanBufferOnSave}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) TableName() string {
	return s.tableName
}

func (s *Service) IDColumn() string {
	return s.idColumn
}

func (s *Service) SlugColumn() string {
	return s.slugColumn
}

func (s *Service) NameColumn() string {
	return s.nameColumn
}

func (s *Service) Dialect() Dialect {
	return s.conn.dialect
}

// Connection returns the Connection this service executes on.
func (s *Service) Connection() *Connection {
	return s.conn
}

// Builder returns the goqu dialect statements of this service are built with.
func (s *Service) Builder() goqu.DialectWrapper {
	return s.conn.builder
}

// CreateFilter returns an empty SimpleFilter.
func (s *Service) CreateFilter() *tableservice.SimpleFilter {
	return tableservice.NewSimpleFilter()
}

// CleanBuffer drops all buffered results.
func (s *Service) CleanBuffer() {
	s.buffer.Clear()
}

func (s *Service) cleanBufferOnSave(context.Context, tableservice.Table, tableservice.SaveEvent) error {
	s.CleanBuffer()
	return nil
}

/***** query construction *****/

// BaseQuery returns SELECT "<table>".* FROM "<table>", decorated by the base query option if set.
// It carries no implicit order.
func (s *Service) BaseQuery() *goqu.SelectDataset {
	query := s.conn.builder.
		From(s.tableName).
		Select(goqu.T(s.tableName).All()).
		Prepared(true)

	if s.baseQuery != nil {
		query = s.baseQuery(query)
	}

	return query
}

// FilterQuery narrows the base query with one predicate per definition entry, combined with AND.
// A nil filter leaves the base query unconstrained.
func (s *Service) FilterQuery(filter tableservice.Filter) *goqu.SelectDataset {
	query := s.BaseQuery()

	if filter == nil {
		return query
	}

	for _, constraint := range filter.Definition() {
		query = query.Where(s.constraintExpression(constraint))
	}

	return query
}

// Column returns the table-qualified identifier of a column.
func (s *Service) Column(column string) exp.IdentifierExpression {
	return goqu.T(s.tableName).Col(column)
}

func (s *Service) constraintExpression(constraint tableservice.Constraint) exp.Expression {
	column := s.Column(tableservice.ToStorageName(constraint.Field()))

	if !constraint.IsMembership() {
		return column.Eq(constraint.Value())
	}

	values := constraint.Values()
	if len(values) == 0 {
		return goqu.L("1 = 0")
	}

	return column.In(values...)
}

// countQuery replaces the projection of query with COUNT(*) and drops ordering and paging.
func countQuery(query *goqu.SelectDataset) *goqu.SelectDataset {
	return query.
		ClearSelect().
		ClearOrder().
		ClearLimit().
		ClearOffset().
		Select(goqu.COUNT(goqu.Star()))
}

func applyPaging(query *goqu.SelectDataset, paging *tableservice.Paging) *goqu.SelectDataset {
	if paging == nil {
		return query
	}

	return query.
		Limit(uint(paging.ItemsPerPage())).
		Offset(uint(paging.Offset()))
}

/***** reads *****/

// GetAll returns all rows of the base query.
func (s *Service) GetAll(ctx context.Context) (records []tableservice.Record, err error) {
	observer, ctx := s.observe(ctx, operationGetAll)
	defer func() { observer.finishWithRows(err, len(records)) }()

	return s.fetchAll(ctx, s.BaseQuery(), operationGetAll)
}

// GetCount returns the number of rows of the base query. The result is buffered until the next mutation.
func (s *Service) GetCount(ctx context.Context) (count int64, err error) {
	observer, ctx := s.observe(ctx, operationGetCount)
	defer func() { observer.finish(err, nil) }()

	if buffered, ok := s.bufferGet(ctx, operationGetCount, bufferKeyCount); ok {
		return buffered.(int64), nil
	}

	count, err = s.fetchCount(ctx, countQuery(s.BaseQuery()), operationGetCount)
	if err != nil {
		return 0, err
	}

	s.buffer.Set(bufferKeyCount, count)

	return count, nil
}

// GetByID returns the row with the given identifier, false when there is none.
// Found rows are buffered until the next mutation; every call returns its own copy.
func (s *Service) GetByID(ctx context.Context, id int64) (record tableservice.Record, found bool, err error) {
	observer, ctx := s.observe(ctx, operationGetByID)
	defer func() { observer.finish(err, map[string]string{spanAttrRecordID: strconv.FormatInt(id, 10)}) }()

	key := bufferKeyByIDPrefix + strconv.FormatInt(id, 10)
	if buffered, ok := s.bufferGet(ctx, operationGetByID, key); ok {
		return buffered.(tableservice.Record).Clone(), true, nil
	}

	query := s.BaseQuery().Where(s.Column(s.idColumn).Eq(id))

	record, found, err = s.fetch(ctx, query, operationGetByID)
	if err != nil || !found {
		return nil, false, err
	}

	s.buffer.Set(key, record.Clone())

	return record, true, nil
}

// SimpleSearch returns the rows matching all constraints of filter, windowed by paging when it is not nil.
func (s *Service) SimpleSearch(
	ctx context.Context,
	filter tableservice.Filter,
	paging *tableservice.Paging,
) (records []tableservice.Record, err error) {

	observer, ctx := s.observe(ctx, operationSimpleSearch)
	defer func() { observer.finishWithRows(err, len(records)) }()

	return s.fetchAll(ctx, applyPaging(s.FilterQuery(filter), paging), operationSimpleSearch)
}

// SimpleSearchCount returns the number of rows matching all constraints of filter.
func (s *Service) SimpleSearchCount(ctx context.Context, filter tableservice.Filter) (count int64, err error) {
	observer, ctx := s.observe(ctx, operationSimpleSearchCount)
	defer func() { observer.finish(err, nil) }()

	return s.fetchCount(ctx, countQuery(s.FilterQuery(filter)), operationSimpleSearchCount)
}

// FetchAll executes a query built from BaseQuery or Builder and returns all rows.
func (s *Service) FetchAll(ctx context.Context, query *goqu.SelectDataset) (records []tableservice.Record, err error) {
	observer, ctx := s.observe(ctx, operationFetch)
	defer func() { observer.finishWithRows(err, len(records)) }()

	return s.fetchAll(ctx, query, operationFetch)
}

// Fetch executes a query and returns its first row, false when there is none.
func (s *Service) Fetch(ctx context.Context, query *goqu.SelectDataset) (record tableservice.Record, found bool, err error) {
	observer, ctx := s.observe(ctx, operationFetch)
	defer func() { observer.finish(err, nil) }()

	return s.fetch(ctx, query, operationFetch)
}

// FetchSingle executes a query and returns the first column of its first row, false when there is no row.
func (s *Service) FetchSingle(ctx context.Context, query *goqu.SelectDataset) (value any, found bool, err error) {
	observer, ctx := s.observe(ctx, operationFetch)
	defer func() { observer.finish(err, nil) }()

	return s.fetchSingle(ctx, query, operationFetch)
}

func (s *Service) bufferGet(ctx context.Context, operation, key string) (any, bool) {
	value, ok := s.buffer.Get(key)
	if ok {
		s.incrementCounter(ctx, metricBufferHits, s.labels(operation))
	} else {
		s.incrementCounter(ctx, metricBufferMisses, s.labels(operation))
	}

	return value, ok
}

/***** mutations *****/

// Insert stores data as a new row and returns its generated identifier.
//
// data must not carry a value for the identifier column. The store data mapper runs first, then the
// before-insert callbacks, the statement, the after-insert callbacks and finally the on-save callbacks.
// A callback error aborts at that point and is returned unchanged.
func (s *Service) Insert(ctx context.Context, data tableservice.Record) (id int64, err error) {
	observer, ctx := s.observe(ctx, operationInsert)
	defer func() { observer.finish(err, map[string]string{spanAttrRecordID: strconv.FormatInt(id, 10)}) }()

	if data.Has(s.idColumn) {
		return 0, tableservice.ErrIDInInsertData
	}

	payload, err := s.mapStoreData(data)
	if err != nil {
		return 0, err
	}

	if err = s.dispatchBeforeInsert(ctx, payload); err != nil {
		return 0, err
	}

	id, err = s.executeInsert(ctx, payload)
	if err != nil {
		return 0, err
	}

	if err = s.dispatchInserted(ctx, id, payload); err != nil {
		return id, err
	}

	if err = s.dispatchSave(ctx, tableservice.SaveEvent{Operation: tableservice.OperationInsert, ID: id, Data: payload}); err != nil {
		return id, err
	}

	return id, nil
}

// Update stores data into the row with the given identifier. A value for the identifier column in data
// is ignored. It reports true once the statement ran, even when no row matched.
func (s *Service) Update(ctx context.Context, id int64, data tableservice.Record) (updated bool, err error) {
	observer, ctx := s.observe(ctx, operationUpdate)
	defer func() { observer.finish(err, map[string]string{spanAttrRecordID: strconv.FormatInt(id, 10)}) }()

	payload, err := s.mapStoreData(data)
	if err != nil {
		return false, err
	}

	delete(payload, s.idColumn)

	if len(payload) == 0 {
		return false, tableservice.ErrEmptyUpdateData
	}

	if err = s.dispatchBeforeUpdate(ctx, id, payload); err != nil {
		return false, err
	}

	statement := s.conn.builder.
		Update(s.tableName).
		Set(goqu.Record(payload)).
		Where(goqu.C(s.idColumn).Eq(id)).
		Prepared(true)

	if _, err = s.executeStatement(ctx, statement, operationUpdate); err != nil {
		return false, err
	}

	if err = s.dispatchUpdated(ctx, id, payload); err != nil {
		return true, err
	}

	if err = s.dispatchSave(ctx, tableservice.SaveEvent{Operation: tableservice.OperationUpdate, ID: id, Data: payload}); err != nil {
		return true, err
	}

	return true, nil
}

// DeleteByID deletes the row with the given identifier and returns the raw statement result.
func (s *Service) DeleteByID(ctx context.Context, id int64) (result tableservice.Result, err error) {
	observer, ctx := s.observe(ctx, operationDelete)
	defer func() { observer.finish(err, map[string]string{spanAttrRecordID: strconv.FormatInt(id, 10)}) }()

	if err = s.dispatchBeforeDelete(ctx, id); err != nil {
		return nil, err
	}

	statement := s.conn.builder.
		Delete(s.tableName).
		Where(goqu.C(s.idColumn).Eq(id)).
		Prepared(true)

	dbResult, err := s.executeStatement(ctx, statement, operationDelete)
	if err != nil {
		return nil, err
	}

	if err = s.dispatchDeleted(ctx, id); err != nil {
		return dbResult, err
	}

	if err = s.dispatchSave(ctx, tableservice.SaveEvent{Operation: tableservice.OperationDelete, ID: id}); err != nil {
		return dbResult, err
	}

	return dbResult, nil
}

// mapStoreData hands a copy of data to the store data mapper.
func (s *Service) mapStoreData(data tableservice.Record) (tableservice.Record, error) {
	payload := data.Clone()
	if payload == nil {
		payload = tableservice.Record{}
	}

	if s.storeDataMapper == nil {
		return payload, nil
	}

	mapped, err := s.storeDataMapper(payload)
	if err != nil {
		return nil, err
	}

	if mapped == nil {
		mapped = tableservice.Record{}
	}

	return mapped, nil
}

func (s *Service) executeInsert(ctx context.Context, payload tableservice.Record) (int64, error) {
	statement := s.conn.builder.
		Insert(s.tableName).
		Rows(goqu.Record(payload)).
		Prepared(true)

	if !s.conn.supportsReturning() {
		result, err := s.executeStatement(ctx, statement, operationInsert)
		if err != nil {
			return 0, err
		}

		id, idErr := result.LastInsertId()
		if idErr != nil {
			s.logError(ctx, logMsgInsertIDFailed, idErr, logAttrTable, s.tableName)
			return 0, errors.Join(tableservice.ErrGettingInsertIDFailed, idErr)
		}

		return id, nil
	}

	sqlQuery, args, err := s.toSQL(ctx, statement.Returning(goqu.C(s.idColumn)))
	if err != nil {
		return 0, err
	}

	rows, err := s.executeQuery(ctx, sqlQuery, args, operationInsert)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(ctx, rows)

	value, found, err := s.scanSingle(ctx, rows)
	if err != nil {
		return 0, err
	}

	if !found {
		s.logError(ctx, logMsgInsertIDFailed, errNoRowReturned, logAttrTable, s.tableName)
		return 0, errors.Join(tableservice.ErrGettingInsertIDFailed, errNoRowReturned)
	}

	id, convErr := tableservice.ToInt64(value)
	if convErr != nil {
		s.logError(ctx, logMsgInsertIDFailed, convErr, logAttrTable, s.tableName)
		return 0, errors.Join(tableservice.ErrGettingInsertIDFailed, convErr)
	}

	return id, nil
}

/***** transactions *****/

// Begin opens the top-level transaction of the connection when savepoint is empty, otherwise a savepoint.
func (s *Service) Begin(ctx context.Context, savepoint string) error {
	return s.transactionCommand(ctx, operationBegin, savepoint, s.conn.Begin)
}

// Commit commits the top-level transaction when savepoint is empty, otherwise it releases the savepoint.
func (s *Service) Commit(ctx context.Context, savepoint string) error {
	return s.transactionCommand(ctx, operationCommit, savepoint, s.conn.Commit)
}

// Rollback aborts the top-level transaction when savepoint is empty, otherwise it rolls back to the savepoint.
func (s *Service) Rollback(ctx context.Context, savepoint string) error {
	return s.transactionCommand(ctx, operationRollback, savepoint, s.conn.Rollback)
}

// InSavepoint runs fn in a savepoint of the open transaction, or in a new transaction when none is open.
func (s *Service) InSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.conn.InSavepoint(ctx, fn)
}

func (s *Service) transactionCommand(
	ctx context.Context,
	operation string,
	savepoint string,
	command func(ctx context.Context, savepoint string) error,
) (err error) {

	observer, ctx := s.observe(ctx, operation)
	defer func() { observer.finish(err, map[string]string{logAttrSavepoint: savepoint}) }()

	if err = command(ctx, savepoint); err != nil {
		if errorTypeOf(err) == errorTypeTx {
			s.logError(ctx, logMsgOperation+operation, err, logAttrSavepoint, savepoint)
		}

		return err
	}

	return nil
}
