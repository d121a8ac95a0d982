package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes inventory events. A publisher without a producer
// drops every event, which is how the service runs with Kafka disabled.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher; producer may be nil
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer, logger: util.GetLogger()}
}

func (ep *EventPublisher) publish(ctx context.Context, eventType string, itemID, orderID int64, delta, stock int) error {
	if ep == nil || ep.producer == nil {
		return nil
	}

	event := &models.StockEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		ItemID:        itemID,
		OrderID:       orderID,
		QuantityDelta: delta,
		StockQuantity: stock,
	}

	if err := ep.producer.PublishEvent(ctx, fmt.Sprintf("item-%d", itemID), event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(eventType).Inc()
	return nil
}

// PublishOrderPlaced publishes ORDER_PLACED; stock is the item's level after the reservation
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order, itemID int64, stock int) error {
	return ep.publish(ctx, models.EventTypeOrderPlaced, itemID, order.ID, -order.Quantity, stock)
}

// PublishOrderRevised publishes ORDER_REVISED with the quantity change taken from stock
func (ep *EventPublisher) PublishOrderRevised(ctx context.Context, order *models.Order, itemID int64, delta, stock int) error {
	return ep.publish(ctx, models.EventTypeOrderRevised, itemID, order.ID, -delta, stock)
}

// PublishOrderReleased publishes ORDER_RELEASED after a deleted order's stock went back
func (ep *EventPublisher) PublishOrderReleased(ctx context.Context, order *models.Order, itemID int64, stock int) error {
	return ep.publish(ctx, models.EventTypeOrderReleased, itemID, order.ID, order.Quantity, stock)
}

// PublishItemStockChanged publishes ITEM_STOCK_CHANGED for direct item edits
func (ep *EventPublisher) PublishItemStockChanged(ctx context.Context, item *models.Item, delta int) error {
	return ep.publish(ctx, models.EventTypeItemStockChanged, item.ID, 0, delta, item.StockQuantity)
}

// PublishItemDeleted publishes ITEM_DELETED
func (ep *EventPublisher) PublishItemDeleted(ctx context.Context, itemID int64) error {
	return ep.publish(ctx, models.EventTypeItemDeleted, itemID, 0, 0, 0)
}

// EventHandler handles incoming events
type EventHandler struct {
	onStockEvent func(context.Context, *models.StockEvent) error
	logger       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockEvent registers a handler for every stock-affecting event
func (eh *EventHandler) OnStockEvent(handler func(context.Context, *models.StockEvent) error) {
	eh.onStockEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced,
		models.EventTypeOrderRevised,
		models.EventTypeOrderReleased,
		models.EventTypeItemStockChanged,
		models.EventTypeItemDeleted:
		if eh.onStockEvent != nil {
			var event models.StockEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			util.EventsConsumedTotal.WithLabelValues(baseEvent.EventType).Inc()
			return eh.onStockEvent(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
