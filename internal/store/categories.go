package store

import (
	"context"
	"fmt"

	"ecommerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const categoryColumns = `id, name, description, created_at, updated_at`

// CreateCategory inserts a category and fills in its generated fields
func (r *repo) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	if err := sqlx.GetContext(ctx, r.q, c, query, c.Name, c.Description); err != nil {
		return fmt.Errorf("create category: %w", mapError(err))
	}
	return nil
}

// ListCategories returns every category ordered by id
func (r *repo) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := sqlx.SelectContext(ctx, r.q, &categories,
		`SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by ID
func (r *repo) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := sqlx.GetContext(ctx, r.q, &c,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// UpdateCategory writes name and description back
func (r *repo) UpdateCategory(ctx context.Context, c *models.Category) error {
	query := `
		UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	if err := sqlx.GetContext(ctx, r.q, &c.UpdatedAt, query, c.Name, c.Description, c.ID); err != nil {
		return fmt.Errorf("update category: %w", mapError(err))
	}
	return nil
}

// DeleteCategory removes a category. Its items keep existing with a null category.
func (r *repo) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res)
}
