package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemUpdateApplyOnlyTouchesSetFields(t *testing.T) {
	catID := int64(7)
	item := &Item{
		ID:            1,
		Name:          "Mug",
		Description:   "Ceramic",
		Price:         decimal.RequireFromString("9.50"),
		StockQuantity: 4,
		CategoryID:    &catID,
	}

	name := "Large mug"
	stock := 10
	ItemUpdate{Name: &name, StockQuantity: &stock}.Apply(item)

	assert.Equal(t, "Large mug", item.Name)
	assert.Equal(t, "Ceramic", item.Description)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("9.5")))
	assert.Equal(t, 10, item.StockQuantity)
	require.NotNil(t, item.CategoryID)
	assert.Equal(t, int64(7), *item.CategoryID)
}

func TestCategoryInputApplyReplacesDescription(t *testing.T) {
	desc := "old"
	c := &Category{Name: "Kitchen", Description: &desc}

	CategoryInput{Name: "Home"}.Apply(c)

	assert.Equal(t, "Home", c.Name)
	assert.Nil(t, c.Description)
}

func TestOrderJSONUsesNumericMoney(t *testing.T) {
	itemID := int64(3)
	o := Order{
		ID:          1,
		ItemID:      &itemID,
		Quantity:    3,
		UnitPrice:   decimal.NewFromInt(10),
		TotalAmount: decimal.NewFromInt(30),
		Status:      OrderStatusUnshipped,
	}

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, float64(10), out["unit_price"])
	assert.Equal(t, float64(30), out["total_amount"])
	assert.Equal(t, "unshipped", out["status"])
}

func TestItemUpdateCategoryPresence(t *testing.T) {
	catID := int64(3)

	tests := []struct {
		name string
		body string
		want *int64
	}{
		{name: "absent keeps category", body: `{"name":"Pan"}`, want: &catID},
		{name: "null clears category", body: `{"category_id":null}`, want: nil},
		{name: "value moves category", body: `{"category_id":9}`, want: func() *int64 { v := int64(9); return &v }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u ItemUpdate
			require.NoError(t, json.Unmarshal([]byte(tt.body), &u))

			current := catID
			item := &Item{ID: 1, CategoryID: &current}
			u.Apply(item)

			if tt.want == nil {
				assert.Nil(t, item.CategoryID)
				return
			}
			require.NotNil(t, item.CategoryID)
			assert.Equal(t, *tt.want, *item.CategoryID)
		})
	}
}

func TestOptionalInt64RejectsNonNumbers(t *testing.T) {
	var u ItemUpdate
	assert.Error(t, json.Unmarshal([]byte(`{"category_id":"seven"}`), &u))
}
