package products

import (
	"context"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
)

const (
	TableName         = "products"
	PricesTableName   = "product_prices"
	VariantsTableName = "product_variants"

	DefaultSearchLimit = 10

	maxSlugSuffix = 99
	likeEscape    = "!"
)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Currency selects the price row joined to every product.
// Prices are stored including 21% VAT; without VAT they are rounded to multiples of 5.
type Currency struct {
	ID     int64
	HasVAT bool
}

// Setup switches the product listing between all products and active ones only.
// Active products are enabled and, when a currency is set, have a positive price in it.
type Setup struct {
	OnlyActive bool
}

// ProductService is the table service of products.
type ProductService struct {
	*sqlengine.Service

	currency *Currency
	setup    Setup
}

// NewProductService creates a ProductService. currency may be nil, products are listed without prices then.
func NewProductService(
	conn *sqlengine.Connection,
	currency *Currency,
	setup Setup,
	options ...sqlengine.Option,
) (*ProductService, error) {

	p := &ProductService{currency: currency, setup: setup}

	options = append([]sqlengine.Option{sqlengine.WithBaseQuery(p.decorateBaseQuery)}, options...)

	service, err := sqlengine.NewService(conn, TableName, options...)
	if err != nil {
		return nil, err
	}

	p.Service = service

	return p, nil
}

// Setup replaces the listing setup. Buffered results are dropped.
func (p *ProductService) Setup(setup Setup) {
	p.setup = setup
	p.CleanBuffer()
}

// CreateFilter returns an empty ProductFilter.
func (p *ProductService) CreateFilter() *ProductFilter {
	return &ProductFilter{}
}

func (p *ProductService) decorateBaseQuery(query *goqu.SelectDataset) *goqu.SelectDataset {
	products := goqu.T(TableName)
	prices := goqu.T(PricesTableName)

	if p.currency != nil && p.currency.ID > 0 {
		joinOn := []exp.Expression{
			prices.Col("product_id").Eq(products.Col("id")),
			prices.Col("currency_id").Eq(p.currency.ID),
		}

		if p.setup.OnlyActive {
			joinOn = append(joinOn, prices.Col("price").Gt(0))
			query = query.InnerJoin(prices, goqu.On(joinOn...))
		} else {
			query = query.LeftJoin(prices, goqu.On(joinOn...))
		}

		if p.currency.HasVAT {
			query = query.SelectAppend(prices.Col("price"), prices.Col("rrp"))
		} else {
			query = query.SelectAppend(withoutVAT(prices.Col("price")).As("price"), withoutVAT(prices.Col("rrp")).As("rrp"))
		}
	}

	if p.setup.OnlyActive {
		query = query.Where(products.Col("enabled").Eq(1))
	}

	return query.Order(products.Col("id").Desc())
}

func withoutVAT(column exp.IdentifierExpression) exp.LiteralExpression {
	return goqu.L("ROUND(ROUND(? / 121 * 100) / 5) * 5", column)
}

/***** search *****/

// Search returns the products matching filter with Name as a substring match.
// Without paging at most DefaultSearchLimit products are returned.
func (p *ProductService) Search(
	ctx context.Context,
	filter *ProductFilter,
	paging *tableservice.Paging,
) ([]tableservice.Record, error) {

	query := p.searchQuery(filter)

	if paging != nil {
		query = query.Limit(uint(paging.ItemsPerPage())).Offset(uint(paging.Offset()))
	} else {
		query = query.Limit(DefaultSearchLimit)
	}

	return p.FetchAll(ctx, query)
}

// SearchCount returns the number of products Search would find without a limit.
func (p *ProductService) SearchCount(ctx context.Context, filter *ProductFilter) (int64, error) {
	query := p.searchQuery(filter).
		ClearSelect().
		ClearOrder().
		Select(goqu.COUNT(goqu.Star()))

	value, found, err := p.FetchSingle(ctx, query)
	if err != nil || !found {
		return 0, err
	}

	return tableservice.ToInt64(value)
}

func (p *ProductService) searchQuery(filter *ProductFilter) *goqu.SelectDataset {
	query := p.BaseQuery()

	if filter == nil {
		return query
	}

	if filter.SKU != "" {
		query = query.Where(p.Column("sku").Eq(filter.SKU))
	}

	if filter.BrandID != 0 {
		query = query.Where(p.Column("brand_id").Eq(filter.BrandID))
	}

	if len(filter.BrandIDs) > 0 {
		query = query.Where(p.Column("brand_id").In(filter.BrandIDs))
	}

	if filter.ProductID != 0 {
		query = query.Where(p.Column("id").Eq(filter.ProductID))
	}

	if filter.Name != "" {
		query = query.Where(like(p.Column("name"), "%"+escapeLike(filter.Name)+"%"))
	}

	return query
}

/***** mutations *****/

// Insert stores a product. A missing slug is derived from the name; a slug that is already taken gets
// the first free numeric suffix from 1 to 99. When all of them are taken the colliding slug is kept.
func (p *ProductService) Insert(ctx context.Context, data tableservice.Record) (int64, error) {
	if data.Has(p.IDColumn()) {
		return 0, tableservice.ErrIDInInsertData
	}

	payload := data.Clone()
	if payload == nil {
		payload = tableservice.Record{}
	}

	slug, err := p.freeSlug(ctx, payload)
	if err != nil {
		return 0, err
	}

	payload[p.SlugColumn()] = slug

	return p.Service.Insert(ctx, payload)
}

// Update stores data into a product. Without a stock value the stock of a product that has variants
// is set to the sum of its variant stocks.
func (p *ProductService) Update(ctx context.Context, id int64, data tableservice.Record) (bool, error) {
	payload := data.Clone()
	if payload == nil {
		payload = tableservice.Record{}
	}

	if isEmptyStock(payload["stock"]) {
		stock, hasVariants, err := p.variantStock(ctx, id)
		if err != nil {
			return false, err
		}

		if hasVariants {
			payload["stock"] = stock
		}
	}

	return p.Service.Update(ctx, id, payload)
}

func (p *ProductService) freeSlug(ctx context.Context, payload tableservice.Record) (string, error) {
	slug := payload.String(p.SlugColumn())
	if slug == "" {
		slug = tableservice.Webalize(payload.String(p.NameColumn()))
	}

	query := p.Builder().
		From(TableName).
		Select(goqu.C(p.IDColumn()), goqu.C(p.SlugColumn())).
		Where(like(goqu.C(p.SlugColumn()), escapeLike(slug)+"%"))

	rows, err := p.FetchAll(ctx, query)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		taken[row.String(p.SlugColumn())] = struct{}{}
	}

	if _, ok := taken[slug]; !ok {
		return slug, nil
	}

	for i := 1; i <= maxSlugSuffix; i++ {
		candidate := tableservice.Webalize(slug + " " + strconv.Itoa(i))
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}

	return slug, nil
}

func (p *ProductService) variantStock(ctx context.Context, productID int64) (int64, bool, error) {
	query := p.Builder().
		From(VariantsTableName).
		Select(
			goqu.COUNT(goqu.Star()).As("variant_count"),
			goqu.COALESCE(goqu.SUM("stock"), 0).As("variant_stock"),
		).
		Where(goqu.C("product_id").Eq(productID))

	row, found, err := p.Fetch(ctx, query)
	if err != nil || !found {
		return 0, false, err
	}

	count, err := row.Int64("variant_count")
	if err != nil {
		return 0, false, err
	}

	stock, err := row.Int64("variant_stock")
	if err != nil {
		return 0, false, err
	}

	return stock, count > 0, nil
}

// isEmptyStock treats a missing, nil, zero or empty stock as not supplied.
func isEmptyStock(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "0"
	default:
		stock, err := tableservice.ToInt64(v)
		return err == nil && stock == 0
	}
}

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func like(column exp.IdentifierExpression, pattern string) exp.LiteralExpression {
	return goqu.L("? LIKE ? ESCAPE '"+likeEscape+"'", column, pattern)
}
