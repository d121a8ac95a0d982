package service

import (
	"context"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// CategoryService handles category CRUD
type CategoryService struct {
	uow    store.UnitOfWork
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCategoryService creates a new category service; cache may be nil
func NewCategoryService(uow store.UnitOfWork, cache *redisclient.Client) *CategoryService {
	return &CategoryService{
		uow:    uow,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Create inserts a new category
func (s *CategoryService) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryService.Create")
	defer span.End()

	category := &models.Category{}
	in.Apply(category)

	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		return r.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID), zap.String("name", category.Name))
	return category, nil
}

// List returns every category
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryService.List")
	defer span.End()

	var categories []models.Category
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		categories, err = r.ListCategories(ctx)
		return err
	})
	return categories, err
}

// Get returns one category
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryService.Get")
	defer span.End()

	var category *models.Category
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		category, err = r.GetCategory(ctx, id)
		return notFound("Category", err)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// Update replaces a category's name and description
func (s *CategoryService) Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CategoryService.Update")
	defer span.End()

	var category *models.Category
	var itemIDs []int64
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		category, err = r.GetCategory(ctx, id)
		if err != nil {
			return notFound("Category", err)
		}

		in.Apply(category)
		if err := r.UpdateCategory(ctx, category); err != nil {
			return err
		}

		itemIDs, err = r.ListItemIDsByCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateItems(ctx, itemIDs)
	s.logger.Info("Category updated", zap.Int64("category_id", id))
	return category, nil
}

// Delete removes a category; its items stay, uncategorised
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CategoryService.Delete")
	defer span.End()

	var itemIDs []int64
	err := s.uow.WithTx(ctx, func(r store.Repository) error {
		var err error
		itemIDs, err = r.ListItemIDsByCategory(ctx, id)
		if err != nil {
			return err
		}
		return notFound("Category", r.DeleteCategory(ctx, id))
	})
	if err != nil {
		return err
	}

	s.invalidateItems(ctx, itemIDs)
	s.logger.Info("Category deleted", zap.Int64("category_id", id), zap.Int("items_uncategorised", len(itemIDs)))
	return nil
}

// invalidateItems drops cached items that embed a category that just changed
func (s *CategoryService) invalidateItems(ctx context.Context, itemIDs []int64) {
	for _, id := range itemIDs {
		invalidateItem(ctx, s.cache, s.logger, id)
	}
}
