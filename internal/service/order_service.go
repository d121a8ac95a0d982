package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/inventory"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// OrderService handles order business logic
type OrderService struct {
	uow            store.UnitOfWork
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service; redis may be nil
func NewOrderService(
	uow store.UnitOfWork,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *OrderService {
	return &OrderService{
		uow:            uow,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	models.OrderCreate
	IdempotencyKey string `json:"-"`
}

// stockChange is what an order operation did to its item, for after-commit bookkeeping
type stockChange struct {
	itemID int64
	delta  int
	stock  int
}

// Create places an order, reserving its quantity out of the item's stock.
// replayed is true when the idempotency key matched an earlier order, which is returned unchanged.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (order *models.Order, replayed bool, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	if req.IdempotencyKey != "" && s.redis != nil {
		claimed, existingID, claimErr := s.redis.ClaimIdempotencyKey(ctx, req.IdempotencyKey, idempotencyTTL)
		switch {
		case claimErr != nil:
			s.logger.Warn("Idempotency check unavailable, placing order anyway",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(claimErr))
		case !claimed && existingID == 0:
			return nil, false, ErrRequestInFlight
		case !claimed:
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("order_id", existingID))
			existing, getErr := s.Get(ctx, existingID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, true, nil
		default:
			defer func() {
				s.finishIdempotencyKey(ctx, req.IdempotencyKey, order, err)
			}()
		}
	}

	var change stockChange
	err = s.uow.WithTx(ctx, func(r store.Repository) error {
		item, err := r.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return notFound("Item", err)
		}

		admission, err := inventory.Admit(item.StockQuantity, item.Price, req.Quantity)
		if err != nil {
			return err
		}

		if err := r.UpdateItemStock(ctx, item.ID, admission.NewStock); err != nil {
			return err
		}

		order = &models.Order{
			ItemID:      &item.ID,
			Quantity:    req.Quantity,
			UnitPrice:   admission.UnitPrice,
			TotalAmount: admission.TotalAmount,
			Status:      admission.Status,
		}
		if err := r.CreateOrder(ctx, order); err != nil {
			return err
		}

		change = stockChange{itemID: item.ID, delta: -req.Quantity, stock: admission.NewStock}
		return nil
	})
	if err != nil {
		s.recordFailure("admit", err)
		return nil, false, err
	}

	util.OrdersPlacedTotal.Inc()
	s.afterStockChange(ctx, change)
	if err := s.eventPublisher.PublishOrderPlaced(ctx, order, change.itemID, change.stock); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("item_id", change.itemID),
		zap.Int("quantity", order.Quantity),
		zap.Int("stock_left", change.stock))
	return order, false, nil
}

// finishIdempotencyKey records the placed order under key, or frees the key when placement failed
func (s *OrderService) finishIdempotencyKey(ctx context.Context, key string, order *models.Order, err error) {
	if err != nil || order == nil {
		if rerr := s.redis.ReleaseIdempotencyKey(ctx, key); rerr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(rerr))
		}
		return
	}
	if cerr := s.redis.CompleteIdempotencyKey(ctx, key, order.ID, idempotencyTTL); cerr != nil {
		s.logger.Warn("Failed to store idempotency key", zap.String("idempotency_key", key), zap.Error(cerr))
	}
}

// List returns every order
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.List")
	defer span.End()

	var orders []models.Order
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		orders, err = r.ListOrders(ctx)
		return err
	})
	return orders, err
}

// Get retrieves an order by ID
func (s *OrderService) Get(ctx context.Context, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get")
	defer span.End()

	var order *models.Order
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrder(ctx, id)
		return notFound("Order", err)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Update revises an order's quantity against its item's stock and/or sets its status.
// A quantity change on an order whose item is gone is skipped.
func (s *OrderService) Update(ctx context.Context, id int64, u models.OrderUpdate) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Update")
	defer span.End()

	var order *models.Order
	var change *stockChange
	var skipped bool
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFound("Order", err)
		}

		if u.Quantity != nil {
			change, skipped, err = s.revise(ctx, r, order, *u.Quantity)
			if err != nil {
				return err
			}
		}

		if u.Status != nil {
			order.Status = *u.Status
		}

		return r.UpdateOrder(ctx, order)
	})
	if err != nil {
		s.recordFailure("revise", err)
		return nil, err
	}

	switch {
	case change != nil:
		util.OrdersRevisedTotal.WithLabelValues("stock_moved").Inc()
	case skipped:
		util.OrdersRevisedTotal.WithLabelValues("quantity_skipped").Inc()
	default:
		util.OrdersRevisedTotal.WithLabelValues("no_stock_change").Inc()
	}
	if change != nil {
		s.afterStockChange(ctx, *change)
		if err := s.eventPublisher.PublishOrderRevised(ctx, order, change.itemID, -change.delta, change.stock); err != nil {
			s.logger.Error("Failed to publish OrderRevised event", zap.Error(err))
		}
	}

	s.logger.Info("Order updated",
		zap.Int64("order_id", order.ID),
		zap.Int("quantity", order.Quantity),
		zap.String("status", order.Status))
	return order, nil
}

// revise applies a quantity change to order and its item inside the unit of work.
// skipped reports that the item is gone and the quantity was left alone.
func (s *OrderService) revise(ctx context.Context, r store.Repository, order *models.Order, quantity int) (change *stockChange, skipped bool, err error) {
	if order.ItemID == nil {
		s.logger.Warn("Order item no longer exists, quantity left unchanged", zap.Int64("order_id", order.ID))
		return nil, true, nil
	}

	item, err := r.GetItemForUpdate(ctx, *order.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Order item no longer exists, quantity left unchanged",
			zap.Int64("order_id", order.ID),
			zap.Int64("item_id", *order.ItemID))
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	revision, err := inventory.Revise(item.StockQuantity, order.UnitPrice, order.Quantity, quantity)
	if err != nil {
		return nil, false, err
	}

	if revision.Delta != 0 {
		if err := r.UpdateItemStock(ctx, item.ID, revision.NewStock); err != nil {
			return nil, false, err
		}
	}

	order.Quantity = quantity
	order.TotalAmount = revision.TotalAmount

	if revision.Delta == 0 {
		return nil, false, nil
	}
	return &stockChange{itemID: item.ID, delta: -revision.Delta, stock: revision.NewStock}, false, nil
}

// Delete removes an order and releases its quantity back to the item, if the item still exists
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Delete")
	defer span.End()

	var order *models.Order
	var change *stockChange
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFound("Order", err)
		}

		if order.ItemID != nil {
			item, err := r.GetItemForUpdate(ctx, *order.ItemID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				// nothing to release into
			case err != nil:
				return err
			default:
				newStock := inventory.Release(item.StockQuantity, order.Quantity)
				if err := r.UpdateItemStock(ctx, item.ID, newStock); err != nil {
					return err
				}
				change = &stockChange{itemID: item.ID, delta: order.Quantity, stock: newStock}
			}
		}

		return r.DeleteOrder(ctx, id)
	})
	if err != nil {
		s.recordFailure("release", err)
		return err
	}

	util.OrdersReleasedTotal.Inc()
	if change != nil {
		s.afterStockChange(ctx, *change)
		if err := s.eventPublisher.PublishOrderReleased(ctx, order, change.itemID, change.stock); err != nil {
			s.logger.Error("Failed to publish OrderReleased event", zap.Error(err))
		}
	}

	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// afterStockChange keeps cache and gauges in line with a committed stock change
func (s *OrderService) afterStockChange(ctx context.Context, change stockChange) {
	invalidateItem(ctx, s.redis, s.logger, change.itemID)
	util.InventoryStockLevel.WithLabelValues(strconv.FormatInt(change.itemID, 10)).Set(float64(change.stock))
}

func (s *OrderService) recordFailure(operation string, err error) {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		util.InventoryRejectionsTotal.WithLabelValues(operation).Inc()
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		s.logger.Info("Order rejected",
			zap.String("operation", operation),
			zap.Int("available", stockErr.Available),
			zap.Int("requested", stockErr.Requested))
	case errors.Is(err, ErrNotFound):
		util.OrdersFailedTotal.WithLabelValues("not_found").Inc()
	default:
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		s.logger.Error("Order operation failed", zap.String("operation", operation), zap.Error(err))
	}
}
