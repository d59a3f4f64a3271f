package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// anyCtx matches the request-scoped context handed to the repositories.
const anyCtx = mock.Anything

// =============================================================================
// Mock repositories
// =============================================================================

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) (int64, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepo) RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	args := m.Called(ctx, categoryID, name)
	return args.Get(0).(int64), args.Error(1)
}

type mockCategoryRepo struct {
	mock.Mock
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) Rename(ctx context.Context, id, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategoryRepo) AddProductToCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCategoryRepo) RemoveProductFromCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Get(0).(int64), args.Error(1)
}

type mockSellerRepo struct {
	mock.Mock
}

func (m *mockSellerRepo) Create(ctx context.Context, seller *domain.Seller) error {
	return m.Called(ctx, seller).Error(0)
}

func (m *mockSellerRepo) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seller), args.Error(1)
}

func (m *mockSellerRepo) FindByFirstName(ctx context.Context, firstName string) ([]domain.Seller, error) {
	args := m.Called(ctx, firstName)
	return args.Get(0).([]domain.Seller), args.Error(1)
}

func (m *mockSellerRepo) List(ctx context.Context) ([]domain.Seller, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Seller), args.Error(1)
}
