// Package products is an example collaborator of the table service: a service over the products table
// with currency dependent prices, slugs that avoid collisions and a typed search filter.
//
// Expected schema (sqlite flavor):
//
//	products(id INTEGER PRIMARY KEY, name TEXT, slug TEXT, sku TEXT, brand_id INTEGER, enabled INTEGER, stock INTEGER)
//	product_prices(product_id INTEGER, currency_id INTEGER, price REAL, rrp REAL)
//	product_variants(id INTEGER PRIMARY KEY, product_id INTEGER, stock INTEGER)
package products
