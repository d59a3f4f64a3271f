package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// Rejection reason codes.
const (
	ReasonCategoryNotFound = "CATEGORY_NOT_FOUND"
	ReasonCategoryRequired = "CATEGORY_REQUIRED"
	ReasonSellerNotFound   = "SELLER_NOT_FOUND"
	ReasonInvalidInput     = "INVALID_INPUT"
)

// ProductService validates product writes against one backend and keeps the
// category back-references in step with them.
type ProductService struct {
	backend    domain.Backend
	products   repository.ProductRepository
	categories repository.CategoryRepository
	sellers    repository.SellerRepository
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time

	// resyncBackRefs makes Update move the product id between the
	// back-reference lists of dropped and added categories.
	resyncBackRefs bool
}

// NewProductService creates a product service over store.
func NewProductService(store *repository.Store, events EventPublisher, resyncBackRefs bool, logger *slog.Logger) *ProductService {
	return &ProductService{
		backend:        store.Backend,
		products:       store.Products,
		categories:     store.Categories,
		sellers:        store.Sellers,
		events:         events,
		logger:         logger.With(slog.String("backend", store.Backend.String())),
		now:            func() time.Time { return time.Now().UTC() },
		resyncBackRefs: resyncBackRefs,
	}
}

// CreateProduct validates input, persists the product, then appends its id
// to every referenced category. A short back-reference count is logged and
// counted but does not fail the create.
func (s *ProductService) CreateProduct(ctx context.Context, input *domain.CreateProductInput) (*domain.Product, error) {
	if err := s.validateFields(input.Name, input.Price, input.ImageURLs); err != nil {
		return nil, err
	}

	refs, err := s.resolveCategories(ctx, input.CategoryIDs)
	if err != nil {
		return nil, err
	}

	if err := s.checkSeller(ctx, input.SellerID); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		ImageURLs:   nonNil(input.ImageURLs),
		SellerID:    input.SellerID,
		Categories:  refs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	modified, err := s.addBackRefs(ctx, product.ID, product.CategoryIDs())
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishProductCreated(ctx, s.backend, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.Int64("modified_categories", modified),
	)

	return product, nil
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, input *domain.UpdateProductInput) (*domain.Product, error) {
	existing, err := s.products.GetByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", input.ID)
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if err := s.validateFields(input.Name, input.Price, input.ImageURLs); err != nil {
		return nil, err
	}

	refs, err := s.resolveCategories(ctx, input.CategoryIDs)
	if err != nil {
		return nil, err
	}

	sellerID := existing.SellerID
	if input.SellerID != nil {
		if err := s.checkSeller(ctx, *input.SellerID); err != nil {
			return nil, err
		}
		sellerID = *input.SellerID
	}

	updated := *existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Description = input.Description
	updated.Price = input.Price
	updated.ImageURLs = nonNil(input.ImageURLs)
	updated.SellerID = sellerID
	updated.Categories = refs
	updated.UpdatedAt = s.now()

	matched, err := s.products.Update(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if matched == 0 {
		lostUpdates.WithLabelValues(s.backend.String()).Inc()
		s.logger.ErrorContext(ctx, "product update matched no record",
			slog.String("product_id", input.ID),
		)
		return nil, apperrors.LostUpdate("product", input.ID)
	}

	if s.resyncBackRefs {
		added, removed := domain.DiffIDs(existing.CategoryIDs(), updated.CategoryIDs())
		if err := s.removeBackRefs(ctx, updated.ID, removed); err != nil {
			return nil, err
		}
		if _, err := s.addBackRefs(ctx, updated.ID, added); err != nil {
			return nil, err
		}
	}

	if err := s.events.PublishProductUpdated(ctx, s.backend, &updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", updated.ID))

	return &updated, nil
}

// DeleteProduct removes a product and its id from its categories'
// back-reference lists.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("product", id)
		}
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("product", id)
		}
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.removeBackRefs(ctx, id, existing.CategoryIDs()); err != nil {
		return err
	}

	if err := s.events.PublishProductDeleted(ctx, s.backend, existing); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	return nil
}

// GetProductByName returns the product with the given name.
func (s *ProductService) GetProductByName(ctx context.Context, name string) (*domain.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}

	product, err := s.products.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", name)
		}
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	return product, nil
}

// ListProducts returns every product.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// RefreshCategorySnapshot rewrites the embedded name of a renamed category
// on every product that carries it.
func (s *ProductService) RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	n, err := s.products.RefreshCategorySnapshot(ctx, categoryID, name)
	if err != nil {
		return 0, fmt.Errorf("refresh category snapshot: %w", err)
	}
	s.logger.InfoContext(ctx, "category snapshots refreshed",
		slog.String("category_id", categoryID),
		slog.Int64("modified_products", n),
	)
	return n, nil
}

func (s *ProductService) validateFields(name string, price decimal.Decimal, imageURLs []string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return s.reject(apperrors.InvalidInput("product name is required"))
	case price.IsNegative():
		return s.reject(apperrors.InvalidInput("price must not be negative"))
	case !price.Equal(price.Round(domain.PriceScale)):
		return s.reject(apperrors.InvalidInput("price must have at most two decimal places"))
	case price.GreaterThanOrEqual(domain.MaxPrice):
		return s.reject(apperrors.InvalidInput("price is too large"))
	case s.backend.RequiresImages() && len(imageURLs) == 0:
		return s.reject(apperrors.InvalidInput("at least one image url is required"))
	}
	return nil
}

// resolveCategories looks up every distinct category id and returns their
// snapshots in request order. Spellings that resolve to the same stored
// category collapse into one snapshot.
func (s *ProductService) resolveCategories(ctx context.Context, ids []string) ([]domain.CategoryRef, error) {
	unique := domain.UniqueIDs(ids)
	refs := make([]domain.CategoryRef, 0, len(unique))
	seen := make(map[string]struct{}, len(unique))
	for _, id := range unique {
		category, err := s.categories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, s.reject(apperrors.MissingReference(ReasonCategoryNotFound,
					"one of the categories which the product falls into doesn't exist"))
			}
			return nil, fmt.Errorf("get category %s: %w", id, err)
		}
		if _, dup := seen[category.ID]; dup {
			continue
		}
		seen[category.ID] = struct{}{}
		refs = append(refs, category.Ref())
	}

	if len(refs) == 0 {
		return nil, s.reject(apperrors.InvalidInputCode(ReasonCategoryRequired,
			"the product must belong to at least one category"))
	}
	return refs, nil
}

func (s *ProductService) checkSeller(ctx context.Context, id string) error {
	if id == "" {
		return s.reject(apperrors.MissingReference(ReasonSellerNotFound, "a seller id is required"))
	}
	if _, err := s.sellers.GetByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.reject(apperrors.MissingReference(ReasonSellerNotFound,
				fmt.Sprintf("seller %s doesn't exist", id)))
		}
		return fmt.Errorf("get seller %s: %w", id, err)
	}
	return nil
}

func (s *ProductService) reject(err *apperrors.AppError) error {
	productRejections.WithLabelValues(s.backend.String(), err.Code).Inc()
	return err
}

// addBackRefs appends productID to categoryIDs. A store error is returned;
// a short modified count is only logged and counted.
func (s *ProductService) addBackRefs(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}

	modified, err := s.categories.AddProductToCategories(ctx, productID, categoryIDs)
	if err != nil {
		return 0, fmt.Errorf("add product to categories: %w", err)
	}

	if modified < int64(len(categoryIDs)) {
		backRefMismatches.WithLabelValues(s.backend.String()).Inc()
		s.logger.WarnContext(ctx, "category back-reference count mismatch",
			slog.String("product_id", productID),
			slog.Int("expected", len(categoryIDs)),
			slog.Int64("modified", modified),
		)
	}
	return modified, nil
}

func (s *ProductService) removeBackRefs(ctx context.Context, productID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	modified, err := s.categories.RemoveProductFromCategories(ctx, productID, categoryIDs)
	if err != nil {
		return fmt.Errorf("remove product from categories: %w", err)
	}
	s.logger.DebugContext(ctx, "product removed from categories",
		slog.String("product_id", productID),
		slog.Int64("modified_categories", modified),
	)
	return nil
}

func nonNil(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
