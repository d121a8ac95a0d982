package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices and totals travel as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is a named grouping of items
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Item is a sellable product with a price and on-hand stock count
type Item struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	CategoryID    *int64          `db:"category_id" json:"category_id"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	// Category is joined in by the store, never persisted from here
	Category *Category `db:"-" json:"category"`
}

// Order is a single purchase of a quantity of one item.
// ItemID becomes nil once the referenced item is deleted.
type Order struct {
	ID          int64           `db:"id" json:"id"`
	ItemID      *int64          `db:"item_id" json:"item_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Order statuses. Status is free-form; only the initial value is fixed.
const (
	OrderStatusUnshipped = "unshipped"
)
