package sqlengine_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	. "github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

func newMockedService(t *testing.T, dialect Dialect, options ...Option) (sqlmock.Sqlmock, *Service) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "error creating sqlmock in test setup")
	t.Cleanup(func() { _ = db.Close() })

	conn, err := NewConnectionFromSQLDB(db, dialect)
	require.NoError(t, err, "error creating the connection in test setup")

	service, err := NewService(conn, productsTable, options...)
	require.NoError(t, err, "error creating the service in test setup")

	return mock, service
}

func Test_FilterQuery_ShouldRenderBoundPredicates(t *testing.T) {
	// arrange
	_, service := newMockedService(t, DialectPostgres)
	filter := service.CreateFilter().
		Set("brandId", 3).
		SetMemberOf("id", 1, 2)

	// act
	sqlQuery, args, err := service.FilterQuery(filter).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `SELECT "products".* FROM "products"`)
	assert.Contains(t, sqlQuery, `"products"."brand_id" = $1`)
	assert.Contains(t, sqlQuery, `"products"."id" IN ($2, $3)`)
	assert.Contains(t, sqlQuery, " AND ")
	assert.Equal(t, []any{int64(3), int64(1), int64(2)}, args)
}

func Test_FilterQuery_ShouldRenderAnEmptyMembershipAsNeverTrue(t *testing.T) {
	// arrange
	_, service := newMockedService(t, DialectPostgres)

	// act
	sqlQuery, args, err := service.FilterQuery(service.CreateFilter().SetMemberOf("id")).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, "1 = 0")
	assert.Empty(t, args)
}

func Test_FilterQuery_ShouldNotInterpolateValues(t *testing.T) {
	// arrange
	_, service := newMockedService(t, DialectSQLite3)
	hostile := "x' OR '1'='1"

	// act
	sqlQuery, args, err := service.FilterQuery(service.CreateFilter().Set("name", hostile)).ToSQL()

	// assert
	require.NoError(t, err)
	assert.NotContains(t, sqlQuery, hostile)
	assert.Equal(t, []any{hostile}, args)
}

func Test_SlugIn_ShouldNotQueryForEmbeddedIDs(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectSQLite3)

	// act
	id, found, err := service.SlugIn(context.Background(), "5~red-shoe")

	// assert
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SlugIn_ShouldQueryExactlyOnceForPlainSlugs(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectQuery("SELECT `id` FROM `products` WHERE \\(`slug` = \\?\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	// act
	id, found, err := service.SlugIn(context.Background(), "red-shoe")

	// assert
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(9), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SlugOut_ShouldQueryOnlyOncePerID(t *testing.T) {
	// arrange
	ctx := context.Background()
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectQuery("SELECT `name`, `slug` FROM `products` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"name", "slug"}).AddRow("Red Shoe", nil))

	// act
	first, _, err1 := service.SlugOut(ctx, tableservice.SlugOfID(9))
	second, _, err2 := service.SlugOut(ctx, tableservice.SlugOfID(9))

	// assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "9~red-shoe", first)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetCount_ShouldQueryOnlyOnceUntilTheNextMutation(t *testing.T) {
	// arrange
	ctx := context.Background()
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `products`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectExec("DELETE FROM `products`").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `products`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	// act
	first, err1 := service.GetCount(ctx)
	buffered, err2 := service.GetCount(ctx)
	_, err3 := service.DeleteByID(ctx, 1)
	afterDelete, err4 := service.GetCount(ctx)

	// assert
	assert.NoError(t, errors.Join(err1, err2, err3, err4))
	assert.Equal(t, int64(2), first)
	assert.Equal(t, int64(2), buffered)
	assert.Equal(t, int64(1), afterDelete)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetByID_ShouldNotBufferMisses(t *testing.T) {
	// arrange
	ctx := context.Background()
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectQuery("SELECT `products`.\\* FROM `products` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("SELECT `products`.\\* FROM `products` WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(4), "Red Shoe"))

	// act
	_, foundFirst, err1 := service.GetByID(ctx, 4)
	record, foundSecond, err2 := service.GetByID(ctx, 4)
	_, foundThird, err3 := service.GetByID(ctx, 4)

	// assert
	assert.NoError(t, errors.Join(err1, err2, err3))
	assert.False(t, foundFirst)
	assert.True(t, foundSecond)
	assert.True(t, foundThird)
	assert.Equal(t, "Red Shoe", record.String("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Insert_ShouldUseReturningForPostgres(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectPostgres)
	mock.ExpectQuery(`INSERT INTO "products" .* RETURNING "id"`).
		WithArgs("Red Shoe").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	// act
	id, err := service.Insert(context.Background(), tableservice.Record{"name": "Red Shoe"})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Insert_ShouldUseTheLastInsertIDForOtherDialects(t *testing.T) {
	for _, dialect := range []Dialect{DialectSQLite3, DialectMySQL} {
		t.Run(string(dialect), func(t *testing.T) {
			// arrange
			mock, service := newMockedService(t, dialect)
			mock.ExpectExec("INSERT INTO `products`").
				WithArgs("Red Shoe").
				WillReturnResult(sqlmock.NewResult(12, 1))

			// act
			id, err := service.Insert(context.Background(), tableservice.Record{"name": "Red Shoe"})

			// assert
			assert.NoError(t, err)
			assert.Equal(t, int64(12), id)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func Test_Insert_ShouldFailWhenTheDriverReportsNoInsertID(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))

	// act
	_, err := service.Insert(context.Background(), tableservice.Record{"name": "Red Shoe"})

	// assert
	assert.ErrorIs(t, err, tableservice.ErrGettingInsertIDFailed)
}

func Test_Update_ShouldStripTheIDAndBindTheValues(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectPostgres)
	mock.ExpectExec(`UPDATE "products" SET "name"=\$1 WHERE \("id" = \$2\)`).
		WithArgs("Dark Red Shoe", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// act
	updated, err := service.Update(context.Background(), 5, tableservice.Record{"id": 99, "name": "Dark Red Shoe"})

	// assert
	assert.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Reads_ShouldWrapDatabaseErrors(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	// act
	_, err := service.GetAll(context.Background())

	// assert
	assert.ErrorIs(t, err, tableservice.ErrQueryingFailed)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func Test_Mutations_ShouldWrapDatabaseErrors(t *testing.T) {
	// arrange
	mock, service := newMockedService(t, DialectSQLite3)
	mock.ExpectExec("DELETE").WillReturnError(sql.ErrConnDone)
	saveFired := false
	service.OnSave(func(context.Context, tableservice.Table, tableservice.SaveEvent) error {
		saveFired = true
		return nil
	})

	// act
	_, err := service.DeleteByID(context.Background(), 1)

	// assert
	assert.ErrorIs(t, err, tableservice.ErrExecutingFailed)
	assert.False(t, saveFired)
}

func Test_Transaction_ShouldIssueSavepointCommands(t *testing.T) {
	// arrange
	ctx := context.Background()
	mock, service := newMockedService(t, DialectPostgres)
	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT sp_a$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT sp_a$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^RELEASE SAVEPOINT sp_a$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// act
	err := errors.Join(
		service.Begin(ctx, ""),
		service.Begin(ctx, "sp_a"),
		service.Rollback(ctx, "sp_a"),
		service.Commit(ctx, "sp_a"),
		service.Commit(ctx, ""),
	)

	// assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_ShouldForgetTheTransactionWhenItFails(t *testing.T) {
	// arrange
	ctx := context.Background()
	mock, service := newMockedService(t, DialectPostgres)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrTxDone)

	// act
	require.NoError(t, service.Begin(ctx, ""))
	err := service.Commit(ctx, "")

	// assert
	assert.ErrorIs(t, err, tableservice.ErrTransactionFailed)
	assert.False(t, service.Connection().InTransaction())
}
