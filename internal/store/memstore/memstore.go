// Package memstore is an in-memory store.UnitOfWork. A unit of work holds the
// store lock for its whole duration and works on a copy of the tables, which
// replaces the live tables only when the work succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
)

type tables struct {
	categories map[int64]models.Category
	items      map[int64]models.Item
	orders     map[int64]models.Order

	nextCategoryID int64
	nextItemID     int64
	nextOrderID    int64
}

func newTables() *tables {
	return &tables{
		categories: make(map[int64]models.Category),
		items:      make(map[int64]models.Item),
		orders:     make(map[int64]models.Order),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		categories:     make(map[int64]models.Category, len(t.categories)),
		items:          make(map[int64]models.Item, len(t.items)),
		orders:         make(map[int64]models.Order, len(t.orders)),
		nextCategoryID: t.nextCategoryID,
		nextItemID:     t.nextItemID,
		nextOrderID:    t.nextOrderID,
	}
	for id, v := range t.categories {
		c.categories[id] = v
	}
	for id, v := range t.items {
		c.items[id] = v
	}
	for id, v := range t.orders {
		c.orders[id] = v
	}
	return c
}

// Store keeps categories, items and orders in process memory
type Store struct {
	mu   sync.Mutex
	data *tables
	now  func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{data: newTables(), now: time.Now}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx implements store.UnitOfWork
func (s *Store) WithTx(ctx context.Context, fn func(store.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&repo{t: work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type repo struct {
	t   *tables
	now func() time.Time
}

func (r *repo) nameTaken(name string, exceptID int64) bool {
	for id, c := range r.t.categories {
		if id != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (r *repo) CreateCategory(ctx context.Context, c *models.Category) error {
	if r.nameTaken(c.Name, 0) {
		return fmt.Errorf("create category: %w: name %q", store.ErrConflict, c.Name)
	}
	r.t.nextCategoryID++
	c.ID = r.t.nextCategoryID
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt
	r.t.categories[c.ID] = *c
	return nil
}

func (r *repo) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(r.t.categories))
	for _, c := range r.t.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (r *repo) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, ok := r.t.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *repo) UpdateCategory(ctx context.Context, c *models.Category) error {
	existing, ok := r.t.categories[c.ID]
	if !ok {
		return fmt.Errorf("update category: %w", store.ErrNotFound)
	}
	if r.nameTaken(c.Name, c.ID) {
		return fmt.Errorf("update category: %w: name %q", store.ErrConflict, c.Name)
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.now()
	r.t.categories[c.ID] = *c
	return nil
}

func (r *repo) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := r.t.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.categories, id)

	// ON DELETE SET NULL
	for itemID, item := range r.t.items {
		if item.CategoryID != nil && *item.CategoryID == id {
			item.CategoryID = nil
			r.t.items[itemID] = item
		}
	}
	return nil
}

func (r *repo) withCategory(item models.Item) models.Item {
	item.Category = nil
	if item.CategoryID != nil {
		if c, ok := r.t.categories[*item.CategoryID]; ok {
			item.Category = &c
		}
	}
	return item
}

func (r *repo) CreateItem(ctx context.Context, item *models.Item) error {
	if item.CategoryID != nil {
		if _, ok := r.t.categories[*item.CategoryID]; !ok {
			return fmt.Errorf("create item: category %d does not exist", *item.CategoryID)
		}
	}
	r.t.nextItemID++
	item.ID = r.t.nextItemID
	item.CreatedAt = r.now()
	item.UpdatedAt = item.CreatedAt

	stored := *item
	stored.Category = nil
	r.t.items[item.ID] = stored
	return nil
}

func (r *repo) ListItems(ctx context.Context, skip, limit int) ([]models.Item, error) {
	ids := make([]int64, 0, len(r.t.items))
	for id := range r.t.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := []models.Item{}
	for i, id := range ids {
		if i < skip {
			continue
		}
		if len(items) >= limit {
			break
		}
		items = append(items, r.withCategory(r.t.items[id]))
	}
	return items, nil
}

func (r *repo) ListItemIDsByCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	ids := []int64{}
	for id, item := range r.t.items {
		if item.CategoryID != nil && *item.CategoryID == categoryID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *repo) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := r.t.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item = r.withCategory(item)
	return &item, nil
}

// GetItemForUpdate needs no extra locking, the unit of work already holds the store
func (r *repo) GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := r.t.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (r *repo) UpdateItem(ctx context.Context, item *models.Item) error {
	existing, ok := r.t.items[item.ID]
	if !ok {
		return fmt.Errorf("update item: %w", store.ErrNotFound)
	}
	if item.CategoryID != nil {
		if _, ok := r.t.categories[*item.CategoryID]; !ok {
			return fmt.Errorf("update item: category %d does not exist", *item.CategoryID)
		}
	}
	if item.StockQuantity < 0 {
		return fmt.Errorf("update item: stock_quantity %d violates check constraint", item.StockQuantity)
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = r.now()

	stored := *item
	stored.Category = nil
	r.t.items[item.ID] = stored
	return nil
}

func (r *repo) UpdateItemStock(ctx context.Context, id int64, stock int) error {
	item, ok := r.t.items[id]
	if !ok {
		return store.ErrNotFound
	}
	if stock < 0 {
		return fmt.Errorf("update item stock: stock_quantity %d violates check constraint", stock)
	}
	item.StockQuantity = stock
	item.UpdatedAt = r.now()
	r.t.items[id] = item
	return nil
}

func (r *repo) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := r.t.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.items, id)

	// ON DELETE SET NULL
	for orderID, order := range r.t.orders {
		if order.ItemID != nil && *order.ItemID == id {
			order.ItemID = nil
			r.t.orders[orderID] = order
		}
	}
	return nil
}

func (r *repo) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ItemID != nil {
		if _, ok := r.t.items[*order.ItemID]; !ok {
			return fmt.Errorf("create order: item %d does not exist", *order.ItemID)
		}
	}
	r.t.nextOrderID++
	order.ID = r.t.nextOrderID
	order.CreatedAt = r.now()
	order.UpdatedAt = order.CreatedAt
	r.t.orders[order.ID] = *order
	return nil
}

func (r *repo) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(r.t.orders))
	for _, o := range r.t.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (r *repo) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := r.t.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (r *repo) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return r.GetOrder(ctx, id)
}

func (r *repo) UpdateOrder(ctx context.Context, order *models.Order) error {
	existing, ok := r.t.orders[order.ID]
	if !ok {
		return fmt.Errorf("update order: %w", store.ErrNotFound)
	}
	existing.Quantity = order.Quantity
	existing.TotalAmount = order.TotalAmount
	existing.Status = order.Status
	existing.UpdatedAt = r.now()
	r.t.orders[order.ID] = existing

	order.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *repo) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := r.t.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.orders, id)
	return nil
}
