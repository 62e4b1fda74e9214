package tableservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

func Test_ToStorageName(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{field: "brandId", want: "brand_id"},
		{field: "SKUCode", want: "sku_code"},
		{field: "productID", want: "product_id"},
		{field: "id", want: "id"},
		{field: "name", want: "name"},
		{field: "HTMLParser", want: "html_parser"},
		{field: "createdAt", want: "created_at"},
		{field: "address2Line", want: "address2_line"},
		{field: "sku", want: "sku"},
		{field: "SKU", want: "sku"},
		{field: "already_snake", want: "already_snake"},
		{field: "isX", want: "is_x"},
		{field: "ABc", want: "a_bc"},
		{field: "x", want: "x"},
		{field: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			assert.Equal(t, tc.want, tableservice.ToStorageName(tc.field))
		})
	}
}

func Test_ToStorageName_IsDeterministic(t *testing.T) {
	assert.Equal(t, tableservice.ToStorageName("currencyISOCode"), tableservice.ToStorageName("currencyISOCode"))
	assert.Equal(t, "currency_iso_code", tableservice.ToStorageName("currencyISOCode"))
}
