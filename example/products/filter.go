package products

import (
	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

// ProductFilter is the typed search filter of products. Zero values are not constrained.
type ProductFilter struct {
	ProductID int64
	SKU       string
	Name      string
	BrandID   int64
	BrandIDs  []int64
}

// Definition implements tableservice.Filter. Name is matched exactly here, Search matches it as a substring.
// A non-nil but empty BrandIDs matches nothing.
func (f *ProductFilter) Definition() tableservice.Definition {
	if f == nil {
		return nil
	}

	definition := tableservice.Definition{}

	if f.ProductID != 0 {
		definition = append(definition, tableservice.Equals("id", f.ProductID))
	}

	if f.SKU != "" {
		definition = append(definition, tableservice.Equals("sku", f.SKU))
	}

	if f.Name != "" {
		definition = append(definition, tableservice.Equals("name", f.Name))
	}

	if f.BrandID != 0 {
		definition = append(definition, tableservice.Equals("brandId", f.BrandID))
	}

	if f.BrandIDs != nil {
		definition = append(definition, tableservice.In("brandId", f.BrandIDs...))
	}

	return definition
}

var _ tableservice.Filter = (*ProductFilter)(nil)
