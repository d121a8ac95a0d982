package models

import "time"

// Event types
const (
	EventTypeOrderPlaced      = "ORDER_PLACED"
	EventTypeOrderRevised     = "ORDER_REVISED"
	EventTypeOrderReleased    = "ORDER_RELEASED"
	EventTypeItemStockChanged = "ITEM_STOCK_CHANGED"
	EventTypeItemDeleted      = "ITEM_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockEvent is published whenever an item's stock level moves or the item goes away.
// OrderID is zero for direct item edits.
type StockEvent struct {
	BaseEvent
	ItemID        int64 `json:"item_id"`
	OrderID       int64 `json:"order_id,omitempty"`
	QuantityDelta int   `json:"quantity_delta"`
	StockQuantity int   `json:"stock_quantity"`
}
