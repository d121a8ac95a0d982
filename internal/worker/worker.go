package worker

import (
	"context"
	"strconv"

	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// InventoryWorker follows the inventory event stream to keep caches and stock gauges current
type InventoryWorker struct {
	consumer          *broker.Consumer
	eventHandler      *broker.EventHandler
	cache             *redisclient.Client
	lowStockThreshold int
	logger            *zap.Logger
}

// NewInventoryWorker creates a new inventory worker; cache may be nil
func NewInventoryWorker(
	consumer *broker.Consumer,
	cache *redisclient.Client,
	lowStockThreshold int,
) *InventoryWorker {
	w := &InventoryWorker{
		consumer:          consumer,
		eventHandler:      broker.NewEventHandler(),
		cache:             cache,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
	w.eventHandler.OnStockEvent(w.HandleStockEvent)
	return w
}

// Start starts the worker
func (w *InventoryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting inventory worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryWorker) Stop() error {
	w.logger.Info("Stopping inventory worker")
	return w.consumer.Close()
}

// HandleStockEvent applies one inventory event
func (w *InventoryWorker) HandleStockEvent(ctx context.Context, event *models.StockEvent) error {
	if w.cache != nil {
		if err := w.cache.InvalidateItem(ctx, event.ItemID); err != nil {
			w.logger.Warn("Failed to invalidate cached item",
				zap.Int64("item_id", event.ItemID),
				zap.Error(err))
		}
	}

	label := strconv.FormatInt(event.ItemID, 10)
	if event.EventType == models.EventTypeItemDeleted {
		util.InventoryStockLevel.DeleteLabelValues(label)
		return nil
	}
	util.InventoryStockLevel.WithLabelValues(label).Set(float64(event.StockQuantity))

	if event.StockQuantity < w.lowStockThreshold {
		w.logger.Warn("Item stock is low",
			zap.Int64("item_id", event.ItemID),
			zap.Int("stock_quantity", event.StockQuantity),
			zap.Int("threshold", w.lowStockThreshold),
			zap.String("event_type", event.EventType))
	}
	return nil
}
