package products_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/tableservice"
	. "github.com/AntonStoeckl/tableservice-go/testutil/helper"
)

func newProductService(t *testing.T, currency *products.Currency, setup products.Setup) (*sql.DB, *products.ProductService) {
	db, conn := NewSQLiteConnection(t)

	service, err := products.NewProductService(conn, currency, setup)
	require.NoError(t, err, "error creating the product service in test setup")

	return db, service
}

func givenDisabledProduct(t *testing.T, db *sql.DB, id int64) {
	_, err := db.Exec(`UPDATE products SET enabled = 0 WHERE id = ?`, id)
	assert.NoError(t, err, "error in arranging test data")
}

func Test_ProductService_Insert_Should_DeriveSlugFromName(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})

	// act
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "red-shoe", ProductColumn(t, db, id, "slug"))
}

func Test_ProductService_Insert_Should_KeepAGivenFreeSlug(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})

	// act
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe", "slug": "crimson"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "crimson", ProductColumn(t, db, id, "slug"))
}

func Test_ProductService_Insert_Should_AppendTheFirstFreeSuffix_When_SlugIsTaken(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	GivenProduct(t, db, "Red Shoe", "red-shoe", 1)
	GivenProduct(t, db, "Red Shoe", "red-shoe-1", 1)
	GivenProduct(t, db, "Red Shoe", "red-shoe-3", 1)

	// act
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "red-shoe-2", ProductColumn(t, db, id, "slug"))
}

func Test_ProductService_Insert_Should_KeepTheCollidingSlug_When_AllSuffixesAreTaken(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	GivenProduct(t, db, "Red Shoe", "red-shoe", 1)
	for i := 1; i <= 99; i++ {
		GivenProduct(t, db, "Red Shoe", fmt.Sprintf("red-shoe-%d", i), 1)
	}

	// act
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "red-shoe", ProductColumn(t, db, id, "slug"))
}

func Test_ProductService_Insert_Should_Reject_When_PayloadContainsTheID(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})

	// act
	_, err := service.Insert(ctx, tableservice.Record{"id": int64(5), "name": "Red Shoe"})

	// assert
	assert.ErrorIs(t, err, tableservice.ErrIDInInsertData)
	assert.ErrorIs(t, err, tableservice.ErrValidation)
	assert.Equal(t, int64(0), CountRows(t, db, "products"))
}

func Test_ProductService_Update_Should_RollUpVariantStock_When_StockIsNotSupplied(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	id := GivenProduct(t, db, "Red Shoe", "red-shoe", 1)
	GivenProductVariant(t, db, id, 2)
	GivenProductVariant(t, db, id, 3)

	testCases := []struct {
		description string
		data        tableservice.Record
	}{
		{description: "missing", data: tableservice.Record{"name": "Red Shoe"}},
		{description: "nil", data: tableservice.Record{"name": "Red Shoe", "stock": nil}},
		{description: "zero", data: tableservice.Record{"name": "Red Shoe", "stock": 0}},
		{description: "empty string", data: tableservice.Record{"name": "Red Shoe", "stock": ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			updated, err := service.Update(ctx, id, tc.data)

			// assert
			require.NoError(t, err)
			assert.True(t, updated)
			assert.Equal(t, int64(5), ProductColumn(t, db, id, "stock"))
		})
	}
}

func Test_ProductService_Update_Should_KeepASuppliedStock(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	id := GivenProduct(t, db, "Red Shoe", "red-shoe", 1)
	GivenProductVariant(t, db, id, 2)

	// act
	_, err := service.Update(ctx, id, tableservice.Record{"stock": 7})

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(7), ProductColumn(t, db, id, "stock"))
}

func Test_ProductService_Update_Should_LeaveStockAlone_When_ProductHasNoVariants(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	id := GivenProduct(t, db, "Red Shoe", "red-shoe", 1)
	_, err := db.Exec(`UPDATE products SET stock = 4 WHERE id = ?`, id)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = service.Update(ctx, id, tableservice.Record{"name": "Blue Shoe"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(4), ProductColumn(t, db, id, "stock"))
	assert.Equal(t, "Blue Shoe", ProductColumn(t, db, id, "name"))
}

func Test_ProductService_GetAll_Should_OrderNewestFirst(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	first := GivenProduct(t, db, "First", nil, 1)
	second := GivenProduct(t, db, "Second", nil, 1)

	// act
	records, err := service.GetAll(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second, RecordIDOf(t, records[0]))
	assert.Equal(t, first, RecordIDOf(t, records[1]))
}

func Test_ProductService_GetByID_Should_JoinThePriceOfTheCurrency(t *testing.T) {
	testCases := []struct {
		description string
		currency    *products.Currency
		expected    float64
	}{
		{description: "with VAT", currency: &products.Currency{ID: 1, HasVAT: true}, expected: 121},
		{description: "without VAT", currency: &products.Currency{ID: 1, HasVAT: false}, expected: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			ctx := context.Background()
			db, service := newProductService(t, tc.currency, products.Setup{})
			id := GivenProduct(t, db, "Red Shoe", nil, 1)
			GivenProductPrice(t, db, id, 1, 121)
			GivenProductPrice(t, db, id, 2, 999)

			// act
			record, found, err := service.GetByID(ctx, id)

			// assert
			require.NoError(t, err)
			require.True(t, found)
			price, ok := record["price"].(float64)
			require.True(t, ok, "price should be a float, got %T", record["price"])
			assert.InDelta(t, tc.expected, price, 0.001)
		})
	}
}

func Test_ProductService_Should_ListActiveProductsOnly_When_SetUpSo(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, &products.Currency{ID: 1, HasVAT: true}, products.Setup{OnlyActive: true})
	active := GivenProduct(t, db, "Active", nil, 1)
	GivenProductPrice(t, db, active, 1, 10)
	disabled := GivenProduct(t, db, "Disabled", nil, 1)
	GivenProductPrice(t, db, disabled, 1, 10)
	givenDisabledProduct(t, db, disabled)
	free := GivenProduct(t, db, "Free", nil, 1)
	GivenProductPrice(t, db, free, 1, 0)
	GivenProduct(t, db, "Unpriced", nil, 1)

	// act
	records, err := service.GetAll(ctx)
	require.NoError(t, err)
	count, err := service.GetCount(ctx)
	require.NoError(t, err)

	// assert
	require.Len(t, records, 1)
	assert.Equal(t, active, RecordIDOf(t, records[0]))
	assert.Equal(t, int64(1), count)
}

func Test_ProductService_Setup_Should_SwitchTheListing(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{OnlyActive: true})
	GivenProduct(t, db, "Active", nil, 1)
	givenDisabledProduct(t, db, GivenProduct(t, db, "Disabled", nil, 1))

	activeCount, err := service.GetCount(ctx)
	require.NoError(t, err)

	// act
	service.Setup(products.Setup{OnlyActive: false})
	allCount, err := service.GetCount(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), activeCount)
	assert.Equal(t, int64(2), allCount)
}

func Test_ProductService_Search_Should_MatchNameAsSubstring(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	GivenProduct(t, db, "Red Shoe", nil, 1)
	GivenProduct(t, db, "Dark Red Hat", nil, 2)
	GivenProduct(t, db, "Blue Shoe", nil, 1)

	filter := service.CreateFilter()
	filter.Name = "Red"

	// act
	records, err := service.Search(ctx, filter, nil)
	require.NoError(t, err)
	count, err := service.SearchCount(ctx, filter)
	require.NoError(t, err)

	// assert
	assert.Len(t, records, 2)
	assert.Equal(t, int64(2), count)
}

func Test_ProductService_Search_Should_CombineCriteria(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	GivenProduct(t, db, "Red Shoe", nil, 1)
	wanted := GivenProduct(t, db, "Red Hat", nil, 2)
	GivenProduct(t, db, "Blue Hat", nil, 2)

	// act
	records, err := service.Search(ctx, &products.ProductFilter{Name: "Red", BrandID: 2}, nil)

	// assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, wanted, RecordIDOf(t, records[0]))
}

func Test_ProductService_Search_Should_LimitToTen_When_NoPagingIsGiven(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	for i := 0; i < 12; i++ {
		GivenProduct(t, db, fmt.Sprintf("Shoe %d", i), nil, 1)
	}

	// act
	unpaged, err := service.Search(ctx, nil, nil)
	require.NoError(t, err)
	secondPage, err := service.Search(ctx, nil, tableservice.NewPaging(2, 5))
	require.NoError(t, err)
	count, err := service.SearchCount(ctx, nil)
	require.NoError(t, err)

	// assert
	assert.Len(t, unpaged, products.DefaultSearchLimit)
	assert.Len(t, secondPage, 5)
	assert.Equal(t, int64(12), count)
}

func Test_ProductService_SimpleSearch_Should_UseTheProductFilter(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, service := newProductService(t, nil, products.Setup{})
	first := GivenProduct(t, db, "Red Shoe", nil, 1)
	second := GivenProduct(t, db, "Red Hat", nil, 2)
	GivenProduct(t, db, "Blue Hat", nil, 3)

	// act
	records, err := service.SimpleSearch(ctx, &products.ProductFilter{BrandIDs: []int64{1, 2}}, nil)
	require.NoError(t, err)
	none, err := service.SimpleSearchCount(ctx, &products.ProductFilter{BrandIDs: []int64{}})
	require.NoError(t, err)

	// assert
	require.Len(t, records, 2)
	assert.Equal(t, second, RecordIDOf(t, records[0]))
	assert.Equal(t, first, RecordIDOf(t, records[1]))
	assert.Equal(t, int64(0), none)
}

func Test_ProductService_SlugIn_Should_ResolveSlugsOfInsertedProducts(t *testing.T) {
	// arrange
	ctx := context.Background()
	_, service := newProductService(t, nil, products.Setup{})
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})
	require.NoError(t, err)

	// act
	resolved, found, err := service.SlugIn(ctx, "red-shoe")

	// assert
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, resolved)
}
