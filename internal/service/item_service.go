package service

import (
	"context"
	"strconv"

	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// ItemPaging bounds item listing
type ItemPaging struct {
	DefaultLimit int
	MaxLimit     int
}

// ItemService handles item CRUD and keeps the item cache honest
type ItemService struct {
	uow            store.UnitOfWork
	cache          *redisclient.Client
	eventPublisher *broker.EventPublisher
	paging         ItemPaging
	logger         *zap.Logger
}

// NewItemService creates a new item service; cache may be nil
func NewItemService(
	uow store.UnitOfWork,
	cache *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	paging ItemPaging,
) *ItemService {
	if paging.DefaultLimit <= 0 {
		paging.DefaultLimit = 100
	}
	if paging.MaxLimit < paging.DefaultLimit {
		paging.MaxLimit = paging.DefaultLimit
	}
	return &ItemService{
		uow:            uow,
		cache:          cache,
		eventPublisher: eventPublisher,
		paging:         paging,
		logger:         util.GetLogger(),
	}
}

// DefaultLimit is the page size used when a caller does not ask for one
func (s *ItemService) DefaultLimit() int {
	return s.paging.DefaultLimit
}

// Create inserts a new item, checking its category exists
func (s *ItemService) Create(ctx context.Context, in models.ItemCreate) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Create")
	defer span.End()

	var item *models.Item
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		if in.CategoryID != nil {
			if _, err := r.GetCategory(ctx, *in.CategoryID); err != nil {
				return notFound("Category", err)
			}
		}

		created := in.ToItem()
		if err := r.CreateItem(ctx, created); err != nil {
			return err
		}

		var err error
		item, err = r.GetItem(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observeStock(item.ID, item.StockQuantity)
	if err := s.eventPublisher.PublishItemStockChanged(ctx, item, item.StockQuantity); err != nil {
		s.logger.Error("Failed to publish ItemStockChanged event", zap.Error(err))
	}

	s.logger.Info("Item created", zap.Int64("item_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// List returns a page of items. A zero limit is an empty page; callers without
// a limit of their own pass DefaultLimit.
func (s *ItemService) List(ctx context.Context, skip, limit int) ([]models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.List")
	defer span.End()

	if skip < 0 || limit < 0 {
		return nil, ErrInvalidPaging
	}
	if limit == 0 {
		return []models.Item{}, nil
	}
	if limit > s.paging.MaxLimit {
		limit = s.paging.MaxLimit
	}

	var items []models.Item
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		items, err = r.ListItems(ctx, skip, limit)
		return err
	})
	return items, err
}

// Get returns one item with its category, from cache when possible
func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Get")
	defer span.End()

	cacheable := false
	var version int64
	if s.cache != nil {
		cached, err := s.cache.GetItem(ctx, id)
		if err != nil {
			util.ItemCacheRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Item cache lookup failed", zap.Int64("item_id", id), zap.Error(err))
		} else if cached != nil {
			util.ItemCacheRequestsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		} else {
			util.ItemCacheRequestsTotal.WithLabelValues("miss").Inc()
		}

		// the version is read before the store so a concurrent write wins
		if version, err = s.cache.ItemVersion(ctx, id); err != nil {
			s.logger.Warn("Item cache version lookup failed", zap.Int64("item_id", id), zap.Error(err))
		} else {
			cacheable = true
		}
	}

	var item *models.Item
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		item, err = r.GetItem(ctx, id)
		return notFound("Item", err)
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.SetItem(ctx, item, version)
		if err != nil {
			s.logger.Warn("Failed to cache item", zap.Int64("item_id", id), zap.Error(err))
		} else if !stored {
			s.logger.Debug("Skipped caching superseded item", zap.Int64("item_id", id))
		}
	}
	return item, nil
}

// Update merges the set fields of u into the item
func (s *ItemService) Update(ctx context.Context, id int64, u models.ItemUpdate) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Update")
	defer span.End()

	var item *models.Item
	var stockDelta int
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		current, err := r.GetItemForUpdate(ctx, id)
		if err != nil {
			return notFound("Item", err)
		}

		if u.CategoryID.Value != nil {
			if _, err := r.GetCategory(ctx, *u.CategoryID.Value); err != nil {
				return notFound("Category", err)
			}
		}

		before := current.StockQuantity
		u.Apply(current)
		stockDelta = current.StockQuantity - before

		if err := r.UpdateItem(ctx, current); err != nil {
			return err
		}

		item, err = r.GetItem(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	if stockDelta != 0 {
		s.observeStock(id, item.StockQuantity)
		if err := s.eventPublisher.PublishItemStockChanged(ctx, item, stockDelta); err != nil {
			s.logger.Error("Failed to publish ItemStockChanged event", zap.Error(err))
		}
	}

	s.logger.Info("Item updated", zap.Int64("item_id", id))
	return item, nil
}

// Delete removes an item. Orders placed against it are kept.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ItemService.Delete")
	defer span.End()

	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		return notFound("Item", r.DeleteItem(ctx, id))
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	util.InventoryStockLevel.DeleteLabelValues(strconv.FormatInt(id, 10))
	if err := s.eventPublisher.PublishItemDeleted(ctx, id); err != nil {
		s.logger.Error("Failed to publish ItemDeleted event", zap.Error(err))
	}

	s.logger.Info("Item deleted", zap.Int64("item_id", id))
	return nil
}

func (s *ItemService) invalidate(ctx context.Context, id int64) {
	invalidateItem(ctx, s.cache, s.logger, id)
}

func (s *ItemService) observeStock(id int64, stock int) {
	util.InventoryStockLevel.WithLabelValues(strconv.FormatInt(id, 10)).Set(float64(stock))
}

// invalidateItem drops an item from cache, logging rather than failing
func invalidateItem(ctx context.Context, cache *redisclient.Client, logger *zap.Logger, id int64) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateItem(ctx, id); err != nil {
		logger.Warn("Failed to invalidate cached item", zap.Int64("item_id", id), zap.Error(err))
	}
}
