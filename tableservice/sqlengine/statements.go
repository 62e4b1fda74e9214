package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine/internal/adapters"
)

var errNoRowReturned = errors.New("statement returned no row")

// sqlBuilder is implemented by all goqu datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (s *Service) toSQL(ctx context.Context, builder sqlBuilder) (string, []any, error) {
	sqlQuery, args, err := builder.ToSQL()
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, s.tableName)
		return "", nil, errors.Join(tableservice.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, args, nil
}

// executeQuery executes the SQL query and returns the rows, logging the statement with its timing.
func (s *Service) executeQuery(ctx context.Context, sqlQuery string, args []any, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.conn.query(ctx, sqlQuery, args)
	s.logQueryWithDuration(ctx, sqlQuery, args, action, time.Since(start))

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(tableservice.ErrQueryingFailed, queryErr)
	}

	return rows, nil
}

// executeStatement builds and executes a data modifying statement.
func (s *Service) executeStatement(ctx context.Context, statement sqlBuilder, action string) (adapters.DBResult, error) {
	sqlQuery, args, err := s.toSQL(ctx, statement)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, execErr := s.conn.exec(ctx, sqlQuery, args)
	s.logQueryWithDuration(ctx, sqlQuery, args, action, time.Since(start))

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(tableservice.ErrExecutingFailed, execErr)
	}

	return result, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Service) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

func (s *Service) query(ctx context.Context, query *goqu.SelectDataset, action string) (adapters.DBRows, error) {
	sqlQuery, args, err := s.toSQL(ctx, query.Prepared(true))
	if err != nil {
		return nil, err
	}

	return s.executeQuery(ctx, sqlQuery, args, action)
}

func (s *Service) fetchAll(ctx context.Context, query *goqu.SelectDataset, action string) ([]tableservice.Record, error) {
	rows, err := s.query(ctx, query, action)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	return s.scanRecords(ctx, rows, 0)
}

func (s *Service) fetch(ctx context.Context, query *goqu.SelectDataset, action string) (tableservice.Record, bool, error) {
	rows, err := s.query(ctx, query.Limit(1), action)
	if err != nil {
		return nil, false, err
	}
	defer s.closeRows(ctx, rows)

	records, err := s.scanRecords(ctx, rows, 1)
	if err != nil || len(records) == 0 {
		return nil, false, err
	}

	return records[0], true, nil
}

func (s *Service) fetchSingle(ctx context.Context, query *goqu.SelectDataset, action string) (any, bool, error) {
	rows, err := s.query(ctx, query.Limit(1), action)
	if err != nil {
		return nil, false, err
	}
	defer s.closeRows(ctx, rows)

	return s.scanSingle(ctx, rows)
}

func (s *Service) fetchCount(ctx context.Context, query *goqu.SelectDataset, action string) (int64, error) {
	value, found, err := s.fetchSingle(ctx, query, action)
	if err != nil || !found {
		return 0, err
	}

	count, convErr := tableservice.ToInt64(value)
	if convErr != nil {
		s.logError(ctx, logMsgScanRowFailed, convErr, logAttrTable, s.tableName)
		return 0, errors.Join(tableservice.ErrScanningRowFailed, convErr)
	}

	return count, nil
}

// scanRecords reads up to limit rows (all rows when limit is 0) into Records keyed by column name.
func (s *Service) scanRecords(ctx context.Context, rows adapters.DBRows, limit int) ([]tableservice.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		s.logError(ctx, logMsgScanRowFailed, err)
		return nil, errors.Join(tableservice.ErrScanningRowFailed, err)
	}

	records := make([]tableservice.Record, 0)
	values := make([]any, len(columns))
	destinations := make([]any, len(columns))
	for i := range values {
		destinations[i] = &values[i]
	}

	for rows.Next() {
		if scanErr := rows.Scan(destinations...); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(tableservice.ErrScanningRowFailed, scanErr)
		}

		record := make(tableservice.Record, len(columns))
		for i, column := range columns {
			record[column] = normalizeValue(values[i])
		}

		records = append(records, record)

		if limit > 0 && len(records) == limit {
			break
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logError(ctx, logMsgScanRowFailed, rowsErr)
		return nil, errors.Join(tableservice.ErrScanningRowFailed, rowsErr)
	}

	return records, nil
}

// scanSingle reads the first column of the first row.
func (s *Service) scanSingle(ctx context.Context, rows adapters.DBRows) (any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		s.logError(ctx, logMsgScanRowFailed, err)
		return nil, false, errors.Join(tableservice.ErrScanningRowFailed, err)
	}

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			s.logError(ctx, logMsgScanRowFailed, rowsErr)
			return nil, false, errors.Join(tableservice.ErrScanningRowFailed, rowsErr)
		}

		return nil, false, nil
	}

	values := make([]any, len(columns))
	destinations := make([]any, len(columns))
	for i := range values {
		destinations[i] = &values[i]
	}

	if scanErr := rows.Scan(destinations...); scanErr != nil {
		s.logError(ctx, logMsgScanRowFailed, scanErr)
		return nil, false, errors.Join(tableservice.ErrScanningRowFailed, scanErr)
	}

	if len(values) == 0 {
		return nil, false, nil
	}

	return normalizeValue(values[0]), true, nil
}

// normalizeValue turns driver specific text representations into strings.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}

	return value
}
