package repository

import (
	"context"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// SellerRepository defines persistence operations for sellers.
type SellerRepository interface {
	// Create stores a seller and assigns its ID.
	Create(ctx context.Context, seller *domain.Seller) error

	// GetByID returns apperrors.ErrNotFound when no seller has the id.
	GetByID(ctx context.Context, id string) (*domain.Seller, error)

	// FindByFirstName returns every seller whose profile first name matches.
	FindByFirstName(ctx context.Context, firstName string) ([]domain.Seller, error)

	List(ctx context.Context) ([]domain.Seller, error)
}

// CategoryRepository defines persistence operations for categories and
// their product back-references.
type CategoryRepository interface {
	// Create stores a category and assigns its ID.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID returns apperrors.ErrNotFound when no category has the id.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	List(ctx context.Context) ([]domain.Category, error)

	// Rename changes the category name. It returns apperrors.ErrNotFound when
	// no category has the id.
	Rename(ctx context.Context, id, name string) error

	// Delete removes the category. It returns apperrors.ErrNotFound when no
	// category has the id.
	Delete(ctx context.Context, id string) error

	// AddProductToCategories appends productID to the back-reference list of
	// every category in categoryIDs, skipping lists that already hold it. It
	// returns the number of categories actually modified.
	AddProductToCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error)

	// RemoveProductFromCategories removes productID from the back-reference
	// list of every category in categoryIDs and returns the number modified.
	RemoveProductFromCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error)
}

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	// Create stores a product and assigns its ID.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID returns apperrors.ErrNotFound when no product has the id.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByName returns the first product with the given name, or
	// apperrors.ErrNotFound.
	GetByName(ctx context.Context, name string) (*domain.Product, error)

	List(ctx context.Context) ([]domain.Product, error)

	// Update overwrites the product's mutable fields, addressed by ID. It
	// returns the number of records matched; zero means the product vanished
	// after it was read.
	Update(ctx context.Context, product *domain.Product) (int64, error)

	// Delete removes the product. It returns apperrors.ErrNotFound when no
	// product has the id.
	Delete(ctx context.Context, id string) error

	// RefreshCategorySnapshot rewrites the embedded name of categoryID on
	// every product that carries it and returns the number of products
	// modified. Stores that join names at read time return zero.
	RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Backend    domain.Backend
	Sellers    SellerRepository
	Categories CategoryRepository
	Products   ProductRepository
}
