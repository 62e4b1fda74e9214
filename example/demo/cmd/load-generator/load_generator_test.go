package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/tableservice/cacheadapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
	. "github.com/AntonStoeckl/tableservice-go/testutil/helper"
)

func Test_ParseScenarioWeights(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expected    []int
		expectErr   bool
	}{
		{description: "valid", input: "80, 20", expected: []int{80, 20}},
		{description: "wrong count", input: "100", expectErr: true},
		{description: "not a number", input: "a,b", expectErr: true},
		{description: "out of range", input: "120,-20", expectErr: true},
		{description: "wrong sum", input: "50,20", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			weights, err := parseScenarioWeights(tc.input)

			if tc.expectErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, weights)
		})
	}
}

func Test_LoadGenerator_Should_SeedAndRunScenarios(t *testing.T) {
	// arrange
	ctx := context.Background()
	db, conn := NewSQLiteConnection(t)

	service, err := products.NewProductService(conn, nil, products.Setup{},
		sqlengine.WithBuffer(cacheadapters.NewSyncBuffer()),
		sqlengine.WithSlugCache(cacheadapters.NewSyncSlugCache()),
	)
	require.NoError(t, err)

	metrics := NewMetricsCollectorSpy()
	loadGen := NewLoadGenerator(service, Config{Rate: 1, InitialProducts: 5, ScenarioWeights: []int{50, 50}}, metrics)

	// act
	seedErr := loadGen.Seed(ctx)
	seededID := loadGen.maxProductID.Load()
	browseErr := loadGen.runBrowsingScenario(ctx)
	catalogErr := loadGen.runCatalogScenario(ctx)

	// assert
	require.NoError(t, seedErr)
	assert.Equal(t, int64(5), seededID)
	assert.NoError(t, browseErr)
	assert.NoError(t, catalogErr)
	assert.GreaterOrEqual(t, CountRows(t, db, "products"), int64(5))
}
