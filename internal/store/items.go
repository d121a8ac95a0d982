package store

import (
	"context"
	"database/sql"
	"fmt"

	"ecommerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, name, description, price, stock_quantity, category_id, created_at, updated_at`

// itemWithCategory selects an item and its category in one LEFT JOIN
const itemWithCategory = `
	SELECT i.id, i.name, i.description, i.price, i.stock_quantity, i.category_id,
	       i.created_at, i.updated_at,
	       c.id AS cat_id, c.name AS cat_name, c.description AS cat_description,
	       c.created_at AS cat_created_at, c.updated_at AS cat_updated_at
	FROM items i
	LEFT JOIN categories c ON c.id = i.category_id`

// itemRow is the flat shape of itemWithCategory
type itemRow struct {
	models.Item
	CatID          sql.NullInt64  `db:"cat_id"`
	CatName        sql.NullString `db:"cat_name"`
	CatDescription sql.NullString `db:"cat_description"`
	CatCreatedAt   sql.NullTime   `db:"cat_created_at"`
	CatUpdatedAt   sql.NullTime   `db:"cat_updated_at"`
}

func (row itemRow) toItem() models.Item {
	item := row.Item
	if row.CatID.Valid {
		c := &models.Category{
			ID:        row.CatID.Int64,
			Name:      row.CatName.String,
			CreatedAt: row.CatCreatedAt.Time,
			UpdatedAt: row.CatUpdatedAt.Time,
		}
		if row.CatDescription.Valid {
			desc := row.CatDescription.String
			c.Description = &desc
		}
		item.Category = c
	}
	return item
}

// CreateItem inserts an item and fills in its generated fields
func (r *repo) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (name, description, price, stock_quantity, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, r.q, item, query,
		item.Name, item.Description, item.Price, item.StockQuantity, item.CategoryID)
	if err != nil {
		return fmt.Errorf("create item: %w", mapError(err))
	}
	return nil
}

// ListItems returns a page of items with their categories
func (r *repo) ListItems(ctx context.Context, skip, limit int) ([]models.Item, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		itemWithCategory+` ORDER BY i.id LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items, nil
}

// ListItemIDsByCategory returns the ids of the items filed under a category
func (r *repo) ListItemIDsByCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	ids := []int64{}
	err := sqlx.SelectContext(ctx, r.q, &ids,
		`SELECT id FROM items WHERE category_id = $1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list item ids by category: %w", err)
	}
	return ids, nil
}

// GetItem retrieves an item by ID with its category
func (r *repo) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var row itemRow
	if err := sqlx.GetContext(ctx, r.q, &row, itemWithCategory+` WHERE i.id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	item := row.toItem()
	return &item, nil
}

// GetItemForUpdate retrieves an item and locks its row until the unit of work ends
func (r *repo) GetItemForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := sqlx.GetContext(ctx, r.q, &item,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

// UpdateItem writes every column of item back
func (r *repo) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items SET
			name = $1, description = $2, price = $3, stock_quantity = $4,
			category_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, r.q, &item.UpdatedAt, query,
		item.Name, item.Description, item.Price, item.StockQuantity, item.CategoryID, item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", mapError(err))
	}
	return nil
}

// UpdateItemStock sets an item's stock quantity
func (r *repo) UpdateItemStock(ctx context.Context, id int64, stock int) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE items SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		stock, id)
	if err != nil {
		return fmt.Errorf("update item stock: %w", mapError(err))
	}
	return expectOne(res)
}

// DeleteItem removes an item. Orders referencing it keep a null item_id.
func (r *repo) DeleteItem(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOne(res)
}
