package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) (int64, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error) {
	args := m.Called(ctx, categoryID, name)
	return args.Get(0).(int64), args.Error(1)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Rename(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCategoryRepository) AddProductToCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCategoryRepository) RemoveProductFromCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Get(0).(int64), args.Error(1)
}

type mockSellerRepository struct {
	mock.Mock
}

func (m *mockSellerRepository) Create(ctx context.Context, seller *domain.Seller) error {
	args := m.Called(ctx, seller)
	return args.Error(0)
}

func (m *mockSellerRepository) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seller), args.Error(1)
}

func (m *mockSellerRepository) FindByFirstName(ctx context.Context, firstName string) ([]domain.Seller, error) {
	args := m.Called(ctx, firstName)
	return args.Get(0).([]domain.Seller), args.Error(1)
}

func (m *mockSellerRepository) List(ctx context.Context) ([]domain.Seller, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Seller), args.Error(1)
}

// --- Mock Event Publisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishProductCreated(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	return m.Called(ctx, backend, product).Error(0)
}

func (m *mockEvents) PublishProductUpdated(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	return m.Called(ctx, backend, product).Error(0)
}

func (m *mockEvents) PublishProductDeleted(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	return m.Called(ctx, backend, product).Error(0)
}

func (m *mockEvents) PublishCategoryRenamed(ctx context.Context, backend domain.Backend, category *domain.Category, oldName string) error {
	return m.Called(ctx, backend, category, oldName).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mocks struct {
	products   *mockProductRepository
	categories *mockCategoryRepository
	sellers    *mockSellerRepository
	events     *mockEvents
}

func newMocks(backend domain.Backend) (*repository.Store, *mocks) {
	m := &mocks{
		products:   new(mockProductRepository),
		categories: new(mockCategoryRepository),
		sellers:    new(mockSellerRepository),
		events:     new(mockEvents),
	}
	store := &repository.Store{
		Backend:    backend,
		Sellers:    m.sellers,
		Categories: m.categories,
		Products:   m.products,
	}
	return store, m
}

func (m *mocks) assertExpectations(t mock.TestingT) {
	m.products.AssertExpectations(t)
	m.categories.AssertExpectations(t)
	m.sellers.AssertExpectations(t)
	m.events.AssertExpectations(t)
}
