package tableservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

func Test_SimpleFilter_Definition_KeepsInsertionOrder(t *testing.T) {
	// arrange
	filter := tableservice.NewSimpleFilter().
		Set("name", "Red Shoe").
		SetMemberOf("brandId", 1, 2, 3).
		Set("sku", "RS-1")

	// act
	definition := filter.Definition()

	// assert
	assert.Equal(t, []string{"name", "brandId", "sku"}, definition.Fields())
	assert.False(t, definition[0].IsMembership())
	assert.Equal(t, "Red Shoe", definition[0].Value())
	assert.True(t, definition[1].IsMembership())
	assert.Equal(t, []any{1, 2, 3}, definition[1].Values())
}

func Test_SimpleFilter_Set_ReplacesExistingEntry_InPlace(t *testing.T) {
	// arrange
	filter := tableservice.NewSimpleFilter().
		Set("name", "first").
		Set("sku", "RS-1")

	// act
	filter.SetMemberOf("name", "a", "b")

	// assert
	definition := filter.Definition()
	assert.Equal(t, []string{"name", "sku"}, definition.Fields())
	assert.True(t, definition[0].IsMembership())
	assert.Equal(t, 2, filter.Len())
}

func Test_SimpleFilter_Get(t *testing.T) {
	tests := []struct {
		name      string
		filter    *tableservice.SimpleFilter
		key       string
		wantValue any
		wantOK    bool
	}{
		{
			name:      "unset_key_returns_absent_marker",
			filter:    tableservice.NewSimpleFilter(),
			key:       "brandId",
			wantValue: nil,
			wantOK:    false,
		},
		{
			name:      "scalar_value",
			filter:    tableservice.NewSimpleFilter().Set("brandId", 7),
			key:       "brandId",
			wantValue: 7,
			wantOK:    true,
		},
		{
			name:      "membership_value",
			filter:    tableservice.NewSimpleFilter().SetMemberOf("state", "a", "b"),
			key:       "state",
			wantValue: []any{"a", "b"},
			wantOK:    true,
		},
		{
			name:      "explicit_nil_is_present",
			filter:    tableservice.NewSimpleFilter().Set("deletedAt", nil),
			key:       "deletedAt",
			wantValue: nil,
			wantOK:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, ok := tc.filter.Get(tc.key)

			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantValue, value)
		})
	}
}

func Test_SimpleFilter_Unset(t *testing.T) {
	// arrange
	filter := tableservice.NewSimpleFilter().Set("a", 1).Set("b", 2).Set("c", 3)

	// act
	filter.Unset("b")
	filter.Unset("unknown")

	// assert
	assert.Equal(t, []string{"a", "c"}, filter.Definition().Fields())
	_, ok := filter.Get("b")
	assert.False(t, ok)
}

func Test_SimpleFilter_Definition_IsStable_AndDetachedFromTheFilter(t *testing.T) {
	// arrange
	filter := tableservice.NewSimpleFilter().Set("a", 1)

	// act
	first := filter.Definition()
	second := filter.Definition()
	first[0] = tableservice.Equals("mutated", 0)

	// assert
	assert.Equal(t, []string{"a"}, second.Fields())
	assert.Equal(t, []string{"a"}, filter.Definition().Fields())
}

func Test_ZeroValue_SimpleFilter_IsUsable(t *testing.T) {
	var filter tableservice.SimpleFilter

	filter.Set("a", 1)

	assert.Equal(t, []string{"a"}, filter.Definition().Fields())
}

func Test_In_BuildsMembership_FromTypedSlice(t *testing.T) {
	constraint := tableservice.In("brandId", int64(1), int64(2))

	assert.True(t, constraint.IsMembership())
	assert.Equal(t, "brandId", constraint.Field())
	assert.Equal(t, []any{int64(1), int64(2)}, constraint.Values())
	assert.Nil(t, constraint.Value())
}

func Test_MemberOf_CopiesTheInputSet(t *testing.T) {
	values := []any{1, 2}
	constraint := tableservice.MemberOf("brandId", values...)

	values[0] = 99

	assert.Equal(t, []any{1, 2}, constraint.Values())
}
