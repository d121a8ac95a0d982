package memstore

import (
	"context"
	"errors"
	"testing"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedUnitOfWorkLeavesNoTrace(t *testing.T) {
	s := New()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(r store.Repository) error {
		require.NoError(t, r.CreateCategory(ctx, &models.Category{Name: "Garden"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.WithTx(ctx, func(r store.Repository) error {
		categories, err := r.ListCategories(ctx)
		require.NoError(t, err)
		assert.Empty(t, categories)
		return nil
	}))
}

func TestCategoryNamesAreUnique(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(r store.Repository) error {
		require.NoError(t, r.CreateCategory(ctx, &models.Category{Name: "Toys"}))
		return r.CreateCategory(ctx, &models.Category{Name: "Toys"})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestItemsEmbedCategoryAndPage(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(r store.Repository) error {
		cat := &models.Category{Name: "Kitchen"}
		require.NoError(t, r.CreateCategory(ctx, cat))
		for _, name := range []string{"Mug", "Plate", "Bowl"} {
			item := &models.Item{Name: name, Price: decimal.NewFromInt(3), StockQuantity: 1, CategoryID: &cat.ID}
			require.NoError(t, r.CreateItem(ctx, item))
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(r store.Repository) error {
		items, err := r.ListItems(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Plate", items[0].Name)
		require.NotNil(t, items[0].Category)
		assert.Equal(t, "Kitchen", items[0].Category.Name)
		return nil
	}))
}

func TestDeletesNullReferences(t *testing.T) {
	s := New()
	ctx := context.Background()

	var catID, itemID, orderID int64
	require.NoError(t, s.WithTx(ctx, func(r store.Repository) error {
		cat := &models.Category{Name: "Lighting"}
		require.NoError(t, r.CreateCategory(ctx, cat))
		item := &models.Item{Name: "Lamp", Price: decimal.NewFromInt(20), StockQuantity: 2, CategoryID: &cat.ID}
		require.NoError(t, r.CreateItem(ctx, item))
		order := &models.Order{ItemID: &item.ID, Quantity: 1, UnitPrice: item.Price, TotalAmount: item.Price}
		require.NoError(t, r.CreateOrder(ctx, order))
		catID, itemID, orderID = cat.ID, item.ID, order.ID
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(r store.Repository) error {
		require.NoError(t, r.DeleteCategory(ctx, catID))
		item, err := r.GetItem(ctx, itemID)
		require.NoError(t, err)
		assert.Nil(t, item.CategoryID)
		assert.Nil(t, item.Category)

		require.NoError(t, r.DeleteItem(ctx, itemID))
		order, err := r.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Nil(t, order.ItemID)
		return nil
	}))
}

func TestNegativeStockIsRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(r store.Repository) error {
		item := &models.Item{Name: "Pen", Price: decimal.NewFromInt(1), StockQuantity: 1}
		require.NoError(t, r.CreateItem(ctx, item))
		return r.UpdateItemStock(ctx, item.ID, -1)
	})
	assert.Error(t, err)
}
