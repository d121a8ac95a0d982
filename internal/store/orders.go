package store

import (
	"context"
	"fmt"

	"ecommerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, item_id, quantity, unit_price, total_amount, status, created_at, updated_at`

// CreateOrder creates a new order
func (r *repo) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (item_id, quantity, unit_price, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, r.q, order, query,
		order.ItemID, order.Quantity, order.UnitPrice, order.TotalAmount, order.Status)
	if err != nil {
		return fmt.Errorf("create order: %w", mapError(err))
	}
	return nil
}

// ListOrders returns every order ordered by id
func (r *repo) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := sqlx.SelectContext(ctx, r.q, &orders, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder retrieves an order by ID
func (r *repo) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, r.q, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &order, nil
}

// GetOrderForUpdate retrieves an order and locks its row until the unit of work ends
func (r *repo) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, r.q, &order,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &order, nil
}

// UpdateOrder writes quantity, total and status back. unit_price is never rewritten.
func (r *repo) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders SET quantity = $1, total_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, r.q, &order.UpdatedAt, query,
		order.Quantity, order.TotalAmount, order.Status, order.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", mapError(err))
	}
	return nil
}

// DeleteOrder removes an order
func (r *repo) DeleteOrder(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectOne(res)
}
