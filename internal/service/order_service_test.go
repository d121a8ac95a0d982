package service

import (
	"context"
	"os"
	"testing"
	"time"

	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/inventory"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/store/memstore"
	"ecommerce-service/internal/util"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServices struct {
	categories *CategoryService
	items      *ItemService
	orders     *OrderService
}

func newTestServices(t *testing.T, cache *redisclient.Client) *testServices {
	t.Helper()
	util.SetLogger(zap.NewNop())

	uow := memstore.New()
	publisher := broker.NewEventPublisher(nil)
	return &testServices{
		categories: NewCategoryService(uow, cache),
		items:      NewItemService(uow, cache, publisher, ItemPaging{DefaultLimit: 100, MaxLimit: 1000}),
		orders:     NewOrderService(uow, cache, publisher),
	}
}

func (ts *testServices) createItem(t *testing.T, price string, stock int) *models.Item {
	t.Helper()
	p := decimal.RequireFromString(price)
	item, err := ts.items.Create(context.Background(), models.ItemCreate{
		Name:          "Widget",
		Description:   "A widget",
		Price:         &p,
		StockQuantity: &stock,
	})
	require.NoError(t, err)
	return item
}

func (ts *testServices) stockOf(t *testing.T, id int64) int {
	t.Helper()
	item, err := ts.items.Get(context.Background(), id)
	require.NoError(t, err)
	return item.StockQuantity
}

func placeOrder(itemID int64, quantity int) *CreateOrderRequest {
	return &CreateOrderRequest{OrderCreate: models.OrderCreate{ItemID: itemID, Quantity: quantity}}
}

func TestCreateOrderReservesStock(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, replayed, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, item.ID, *order.ItemID)
	assert.Equal(t, 3, order.Quantity)
	assert.True(t, order.UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(30)), order.TotalAmount.String())
	assert.Equal(t, models.OrderStatusUnshipped, order.Status)
	assert.Equal(t, 2, ts.stockOf(t, item.ID))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 2)

	_, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 5))
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	assert.Equal(t, 2, ts.stockOf(t, item.ID))
	orders, err := ts.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderUnknownItem(t *testing.T) {
	ts := newTestServices(t, nil)

	_, _, err := ts.orders.Create(context.Background(), placeOrder(999, 1))
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Item not found")
}

func TestUpdateOrderQuantity(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)

	qty := 5
	updated, err := ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(50)), updated.TotalAmount.String())
	assert.True(t, updated.UnitPrice.Equal(order.UnitPrice))
	assert.Equal(t, 0, ts.stockOf(t, item.ID))

	qty = 1
	updated, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 4, ts.stockOf(t, item.ID))
}

func TestUpdateOrderQuantityBeyondStock(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)

	qty := 6
	_, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	got, err := ts.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 2, ts.stockOf(t, item.ID))
}

func TestUpdateOrderKeepsUnitPriceAfterRepricing(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 10)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 2))
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("99.99")
	_, err = ts.items.Update(ctx, item.ID, models.ItemUpdate{Price: &newPrice})
	require.NoError(t, err)

	qty := 4
	updated, err := ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestUpdateOrderStatusOnly(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "3.50", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 2))
	require.NoError(t, err)

	status := "shipped"
	updated, err := ts.orders.Update(ctx, order.ID, models.OrderUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "shipped", updated.Status)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 3, ts.stockOf(t, item.ID))
}

func TestUpdateOrderWithDeletedItem(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)
	require.NoError(t, ts.items.Delete(ctx, item.ID))

	qty := 4
	status := "cancelled"
	updated, err := ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty, Status: &status})
	require.NoError(t, err)
	assert.Nil(t, updated.ItemID)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "cancelled", updated.Status)
}

func TestUpdateOrderCountsOutcome(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "2.00", 10)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 2))
	require.NoError(t, err)

	outcomes := []string{"stock_moved", "no_stock_change", "quantity_skipped"}
	before := map[string]float64{}
	for _, o := range outcomes {
		before[o] = testutil.ToFloat64(util.OrdersRevisedTotal.WithLabelValues(o))
	}
	delta := func(o string) float64 {
		return testutil.ToFloat64(util.OrdersRevisedTotal.WithLabelValues(o)) - before[o]
	}

	qty := 4
	_, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)

	status := "shipped"
	_, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Status: &status})
	require.NoError(t, err)
	_, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)

	require.NoError(t, ts.items.Delete(ctx, item.ID))
	qty = 1
	_, err = ts.orders.Update(ctx, order.ID, models.OrderUpdate{Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, 1.0, delta("stock_moved"))
	assert.Equal(t, 2.0, delta("no_stock_change"))
	assert.Equal(t, 1.0, delta("quantity_skipped"))
}

func TestUpdateMissingOrder(t *testing.T) {
	ts := newTestServices(t, nil)

	status := "shipped"
	_, err := ts.orders.Update(context.Background(), 42, models.OrderUpdate{Status: &status})
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Order not found")
}

func TestDeleteOrderReleasesStock(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, ts.stockOf(t, item.ID))

	require.NoError(t, ts.orders.Delete(ctx, order.ID))
	assert.Equal(t, 5, ts.stockOf(t, item.ID))

	_, err = ts.orders.Get(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = ts.orders.Delete(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOrderWithDeletedItem(t *testing.T) {
	ts := newTestServices(t, nil)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 3))
	require.NoError(t, err)
	require.NoError(t, ts.items.Delete(ctx, item.ID))

	require.NoError(t, ts.orders.Delete(ctx, order.ID))
	orders, err := ts.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cache, err := redisclient.NewClient(addr, "", 15, time.Minute)
	if err != nil {
		t.Skipf("Integration test - redis not reachable: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	ts := newTestServices(t, cache)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)

	req := placeOrder(item.ID, 2)
	req.IdempotencyKey = uuid.New().String()
	t.Cleanup(func() { cache.ReleaseIdempotencyKey(ctx, req.IdempotencyKey) })

	first, replayed, err := ts.orders.Create(ctx, req)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := ts.orders.Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, ts.stockOf(t, item.ID))
}

func TestFailedOrderFreesIdempotencyKey(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cache, err := redisclient.NewClient(addr, "", 15, time.Minute)
	if err != nil {
		t.Skipf("Integration test - redis not reachable: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	ts := newTestServices(t, cache)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 1)

	req := placeOrder(item.ID, 2)
	req.IdempotencyKey = uuid.New().String()
	t.Cleanup(func() { cache.ReleaseIdempotencyKey(ctx, req.IdempotencyKey) })

	_, _, err = ts.orders.Create(ctx, req)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	req.Quantity = 1
	order, replayed, err := ts.orders.Create(ctx, req)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, order.Quantity)
}

func TestItemCacheFollowsOrders(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cache, err := redisclient.NewClient(addr, "", 15, time.Minute)
	if err != nil {
		t.Skipf("Integration test - redis not reachable: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	ts := newTestServices(t, cache)
	ctx := context.Background()
	item := ts.createItem(t, "10.0", 5)
	// ids restart per memstore, so clear whatever an earlier run cached
	require.NoError(t, cache.InvalidateItem(ctx, item.ID))
	t.Cleanup(func() { cache.InvalidateItem(ctx, item.ID) })

	assert.Equal(t, 5, ts.stockOf(t, item.ID))
	cached, err := cache.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 5, cached.StockQuantity)

	// a slow reader holds stock 5 while an order commits underneath it
	version, err := cache.ItemVersion(ctx, item.ID)
	require.NoError(t, err)
	stale := *cached

	order, _, err := ts.orders.Create(ctx, placeOrder(item.ID, 2))
	require.NoError(t, err)

	stored, err := cache.SetItem(ctx, &stale, version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, 3, ts.stockOf(t, item.ID))

	require.NoError(t, ts.orders.Delete(ctx, order.ID))
	assert.Equal(t, 5, ts.stockOf(t, item.ID))
}
