// Package sqlengine provides the SQL implementation of the table service.
//
// A Connection wraps one of pgxpool.Pool, sql.DB or sqlx.DB together with a goqu dialect
// (postgres, sqlite3 or mysql) and owns the transaction state. Services for different tables share
// a Connection, so they all take part in the same transaction.
//
// A Service covers one table:
//   - reads built from an overridable base query (GetAll, GetCount, GetByID, FetchAll, ...)
//   - filter driven search with optional paging (SimpleSearch, SimpleSearchCount)
//   - Insert, Update and DeleteByID with before/after/on-save callbacks
//   - slug resolution in both directions (SlugIn, SlugOut)
//   - pass-through transactions and named savepoints
//
// All statements are rendered by goqu in prepared mode, values always travel as bound arguments.
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	conn, _ := sqlengine.NewConnectionFromPGXPool(db)
//	products, _ := sqlengine.NewService(conn, "products", sqlengine.WithLogger(slog.Default()))
//
//	filter := products.CreateFilter().Set("brandId", 7)
//	rows, _ := products.SimpleSearch(ctx, filter, tableservice.NewPaging(1, 20))
//
//	err := products.InSavepoint(ctx, func(ctx context.Context) error {
//		_, err := products.Insert(ctx, tableservice.Record{"name": "Red Shoe"})
//		return err
//	})
package sqlengine
