package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CategoryInput is the body of category create and full-replace update
type CategoryInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// Apply replaces every writable field of c
func (in CategoryInput) Apply(c *Category) {
	c.Name = in.Name
	c.Description = in.Description
}

// ItemCreate is the body of item creation
type ItemCreate struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" binding:"required,gte=0"`
	StockQuantity *int             `json:"stock_quantity" binding:"required,min=0"`
	CategoryID    *int64           `json:"category_id"`
}

// ToItem builds the row to insert
func (in ItemCreate) ToItem() *Item {
	item := &Item{
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.StockQuantity != nil {
		item.StockQuantity = *in.StockQuantity
	}
	return item
}

// OptionalInt64 is a nullable field that remembers whether it was present in the body.
// An explicit null decodes to Set with a nil Value.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

// SetInt64 returns a present OptionalInt64 holding v, which may be nil
func SetInt64(v *int64) OptionalInt64 {
	return OptionalInt64{Set: true, Value: v}
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ItemUpdate is a partial item update; absent fields are left untouched.
// category_id may be sent as null to uncategorise the item.
type ItemUpdate struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
	StockQuantity *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	CategoryID    OptionalInt64    `json:"category_id"`
}

// Apply merges the set fields into item
func (u ItemUpdate) Apply(item *Item) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.StockQuantity != nil {
		item.StockQuantity = *u.StockQuantity
	}
	if u.CategoryID.Set {
		item.CategoryID = u.CategoryID.Value
	}
}

// OrderCreate is the body of order placement
type OrderCreate struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

// OrderUpdate revises an order's quantity and/or status
type OrderUpdate struct {
	Quantity *int    `json:"quantity" binding:"omitempty,gt=0"`
	Status   *string `json:"status"`
}
