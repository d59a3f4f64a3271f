package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// ReasonCategoryInUse rejects deleting a category that still lists products.
const ReasonCategoryInUse = "CATEGORY_IN_USE"

// CategoryService implements category operations for one backend.
type CategoryService struct {
	backend    domain.Backend
	categories repository.CategoryRepository
	events     EventPublisher
	logger     *slog.Logger
}

// NewCategoryService creates a category service over store.
func NewCategoryService(store *repository.Store, events EventPublisher, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		backend:    store.Backend,
		categories: store.Categories,
		events:     events,
		logger:     logger.With(slog.String("backend", store.Backend.String())),
	}
}

// CreateCategory creates an empty category.
func (s *CategoryService) CreateCategory(ctx context.Context, input *domain.CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	category := &domain.Category{Name: name, CreatedAt: time.Now().UTC()}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("name", category.Name),
	)
	return category, nil
}

// GetCategory returns a category with its back-reference list.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// ListCategories returns every category.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// RenameCategory changes a category's name and announces it so embedded
// product snapshots can follow.
func (s *CategoryService) RenameCategory(ctx context.Context, id string, input *domain.RenameCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.Name == name {
		return category, nil
	}

	if err := s.categories.Rename(ctx, id, name); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("rename category: %w", err)
	}

	oldName := category.Name
	category.Name = name

	if err := s.events.PublishCategoryRenamed(ctx, s.backend, category, oldName); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish category.renamed event",
			slog.String("category_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "category renamed",
		slog.String("category_id", id),
		slog.String("old_name", oldName),
		slog.String("name", name),
	)
	return category, nil
}

// DeleteCategory removes a category that no product references. The check
// and the delete are not atomic; a product created in between keeps a
// dangling category reference.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}

	if category.InUse() {
		return apperrors.Conflict(ReasonCategoryInUse,
			fmt.Sprintf("category %s still lists %d products", id, len(category.ProductsOfCategory)))
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("category", id)
		}
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}
