package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CatalogGo/internal/domain"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

var (
	toys = &domain.Category{ID: "cat-toys", Name: "Toys", ProductsOfCategory: []string{}}
	baby = &domain.Category{ID: "cat-baby", Name: "Baby", ProductsOfCategory: []string{}}
	judy = &domain.Seller{ID: "seller-judy", AccountID: "acct-judy", Profile: domain.Profile{FirstName: "Judy", LastName: "Foster"}}
)

func teddyInput() *domain.CreateProductInput {
	return &domain.CreateProductInput{
		Name:        "Teddy Bear",
		Description: "Soft and cuddly",
		Price:       decimal.RequireFromString("24.25"),
		ImageURLs:   []string{"https://img.example.com/teddy.jpg"},
		SellerID:    judy.ID,
		CategoryIDs: []string{toys.ID, baby.ID},
	}
}

func newTestProductService(backend domain.Backend) (*ProductService, *mocks) {
	store, m := newMocks(backend)
	return NewProductService(store, m.events, true, newTestLogger()), m
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

// ============================================================================
// CreateProduct
// ============================================================================

func TestCreateProduct_Success(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, baby.ID).Return(baby, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = "prod-1" }).
		Return(nil)
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{toys.ID, baby.ID}).Return(int64(2), nil)
	m.events.On("PublishProductCreated", ctx, domain.BackendRelational, mock.AnythingOfType("*domain.Product")).Return(nil)

	before := testutil.ToFloat64(backRefMismatches.WithLabelValues("relational"))

	product, err := svc.CreateProduct(ctx, teddyInput())
	require.NoError(t, err)
	assert.Equal(t, "prod-1", product.ID)
	assert.Equal(t, judy.ID, product.SellerID)
	assert.Equal(t, []domain.CategoryRef{{ID: toys.ID, Name: "Toys"}, {ID: baby.ID, Name: "Baby"}}, product.Categories)
	assert.False(t, product.CreatedAt.IsZero())
	assert.Equal(t, before, testutil.ToFloat64(backRefMismatches.WithLabelValues("relational")))
	m.assertExpectations(t)
}

func TestCreateProduct_DeduplicatesCategories(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil).Once()
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = "prod-1" }).
		Return(nil)
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{toys.ID}).Return(int64(1), nil)
	m.events.On("PublishProductCreated", ctx, domain.BackendDocument, mock.Anything).Return(nil)

	input := teddyInput()
	input.CategoryIDs = []string{toys.ID, toys.ID}

	product, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)
	assert.Len(t, product.Categories, 1)
	m.assertExpectations(t)
}

func TestCreateProduct_UnknownCategoryRejectsWithoutPersisting(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, "cat-missing").Return(nil, apperrors.ErrNotFound)

	before := testutil.ToFloat64(productRejections.WithLabelValues("relational", ReasonCategoryNotFound))

	input := teddyInput()
	input.CategoryIDs = []string{toys.ID, "cat-missing"}

	product, err := svc.CreateProduct(ctx, input)
	require.Error(t, err)
	assert.Nil(t, product)
	assert.Equal(t, ReasonCategoryNotFound, appCode(t, err))
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
	assert.Equal(t, before+1, testutil.ToFloat64(productRejections.WithLabelValues("relational", ReasonCategoryNotFound)))

	m.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.categories.AssertNotCalled(t, "AddProductToCategories", mock.Anything, mock.Anything, mock.Anything)
	m.sellers.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateProduct_EmptyCategorySetIsCategoryRequired(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"blank ids", []string{"", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestProductService(domain.BackendRelational)

			input := teddyInput()
			input.CategoryIDs = tt.ids

			_, err := svc.CreateProduct(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, ReasonCategoryRequired, appCode(t, err))
			assert.NotEqual(t, ReasonCategoryNotFound, appCode(t, err))
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			m.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateProduct_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		backend domain.Backend
		mutate  func(*domain.CreateProductInput)
		message string
	}{
		{
			name:    "empty name",
			backend: domain.BackendDocument,
			mutate:  func(in *domain.CreateProductInput) { in.Name = "  " },
			message: "product name is required",
		},
		{
			name:    "negative price",
			backend: domain.BackendDocument,
			mutate:  func(in *domain.CreateProductInput) { in.Price = decimal.RequireFromString("-0.01") },
			message: "price must not be negative",
		},
		{
			name:    "more than two decimal places",
			backend: domain.BackendRelational,
			mutate:  func(in *domain.CreateProductInput) { in.Price = decimal.RequireFromString("24.255") },
			message: "price must have at most two decimal places",
		},
		{
			name:    "price beyond storable range",
			backend: domain.BackendRelational,
			mutate:  func(in *domain.CreateProductInput) { in.Price = decimal.RequireFromString("10000000000") },
			message: "price is too large",
		},
		{
			name:    "no images on relational",
			backend: domain.BackendRelational,
			mutate:  func(in *domain.CreateProductInput) { in.ImageURLs = nil },
			message: "at least one image url is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestProductService(tt.backend)
			input := teddyInput()
			tt.mutate(input)

			_, err := svc.CreateProduct(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, ReasonInvalidInput, appCode(t, err))
			assert.Contains(t, err.Error(), tt.message)
			m.categories.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			m.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateProduct_DocumentBackendAllowsNoImages(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, mock.Anything).Return(toys, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).Return(nil)
	m.categories.On("AddProductToCategories", ctx, mock.Anything, mock.Anything).Return(int64(2), nil)
	m.events.On("PublishProductCreated", ctx, mock.Anything, mock.Anything).Return(nil)

	input := teddyInput()
	input.ImageURLs = nil

	product, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)
	assert.NotNil(t, product.ImageURLs)
	assert.Empty(t, product.ImageURLs)
}

func TestCreateProduct_SellerNotFound(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, mock.Anything).Return(toys, nil)
	m.sellers.On("GetByID", ctx, "seller-ghost").Return(nil, apperrors.ErrNotFound)

	input := teddyInput()
	input.SellerID = "seller-ghost"

	_, err := svc.CreateProduct(ctx, input)
	require.Error(t, err)
	assert.Equal(t, ReasonSellerNotFound, appCode(t, err))
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
	m.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_MissingSellerID(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, mock.Anything).Return(toys, nil)

	input := teddyInput()
	input.SellerID = ""

	_, err := svc.CreateProduct(ctx, input)
	assert.Equal(t, ReasonSellerNotFound, appCode(t, err))
	m.sellers.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateProduct_BackRefShortfallIsReportedNotFatal(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, baby.ID).Return(baby, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = "prod-1" }).
		Return(nil)
	// Baby was deleted between validation and the append.
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{toys.ID, baby.ID}).Return(int64(1), nil)
	m.events.On("PublishProductCreated", ctx, mock.Anything, mock.Anything).Return(nil)

	before := testutil.ToFloat64(backRefMismatches.WithLabelValues("document"))

	product, err := svc.CreateProduct(ctx, teddyInput())
	require.NoError(t, err)
	assert.Equal(t, "prod-1", product.ID)
	assert.Equal(t, before+1, testutil.ToFloat64(backRefMismatches.WithLabelValues("document")))
}

func TestCreateProduct_BackRefStoreErrorIsReturned(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, baby.ID).Return(baby, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = "prod-1" }).
		Return(nil)
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{toys.ID, baby.ID}).
		Return(int64(0), errors.New("connection reset"))

	product, err := svc.CreateProduct(ctx, teddyInput())
	require.Error(t, err)
	assert.Nil(t, product)
	assert.Contains(t, err.Error(), "add product to categories")
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
	m.events.AssertNotCalled(t, "PublishProductCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateProduct_CollapsesSpellingsOfOneCategory(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	toysDoc := &domain.Category{ID: "6ad46c0f1e2d3c4b5a697887", Name: "Toys"}
	upper := strings.ToUpper(toysDoc.ID)

	m.categories.On("GetByID", ctx, toysDoc.ID).Return(toysDoc, nil)
	m.categories.On("GetByID", ctx, upper).Return(toysDoc, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Product).ID = "prod-1" }).
		Return(nil)
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{toysDoc.ID}).Return(int64(1), nil)
	m.events.On("PublishProductCreated", ctx, mock.Anything, mock.Anything).Return(nil)

	before := testutil.ToFloat64(backRefMismatches.WithLabelValues("document"))

	input := teddyInput()
	input.CategoryIDs = []string{toysDoc.ID, upper}

	product, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryRef{{ID: toysDoc.ID, Name: "Toys"}}, product.Categories)
	assert.Equal(t, before, testutil.ToFloat64(backRefMismatches.WithLabelValues("document")))
	m.assertExpectations(t)
}

func TestCreateProduct_PublishFailureDoesNotFail(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, mock.Anything).Return(toys, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).Return(nil)
	m.categories.On("AddProductToCategories", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)
	m.events.On("PublishProductCreated", ctx, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := svc.CreateProduct(ctx, teddyInput())
	assert.NoError(t, err)
}

func TestCreateProduct_RepositoryError(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.categories.On("GetByID", ctx, mock.Anything).Return(toys, nil)
	m.sellers.On("GetByID", ctx, judy.ID).Return(judy, nil)
	m.products.On("Create", ctx, mock.Anything).Return(errors.New("connection refused"))

	_, err := svc.CreateProduct(ctx, teddyInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create product")
	m.categories.AssertNotCalled(t, "AddProductToCategories", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// UpdateProduct
// ============================================================================

func existingTeddy() *domain.Product {
	return &domain.Product{
		ID:         "prod-1",
		Name:       "Teddy Bear",
		Price:      decimal.RequireFromString("24.25"),
		ImageURLs:  []string{"https://img.example.com/teddy.jpg"},
		SellerID:   judy.ID,
		Categories: []domain.CategoryRef{toys.Ref(), baby.Ref()},
	}
}

func updateInput() *domain.UpdateProductInput {
	return &domain.UpdateProductInput{
		ID:          "prod-1",
		Name:        "Teddy Bear XL",
		Price:       decimal.RequireFromString("29.99"),
		ImageURLs:   []string{"https://img.example.com/teddy-xl.jpg"},
		CategoryIDs: []string{toys.ID},
	}
}

func TestUpdateProduct_NotFoundMutatesNothing(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(nil, apperrors.ErrNotFound)

	_, err := svc.UpdateProduct(ctx, updateInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	m.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	m.categories.AssertNotCalled(t, "AddProductToCategories", mock.Anything, mock.Anything, mock.Anything)
	m.categories.AssertNotCalled(t, "RemoveProductFromCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProduct_RelationalEmptyImagesRejected(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)

	input := updateInput()
	input.ImageURLs = []string{}

	_, err := svc.UpdateProduct(ctx, input)
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidInput, appCode(t, err))
	m.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_ResyncsBackReferences(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	wood := &domain.Category{ID: "cat-wood", Name: "Wood"}
	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, wood.ID).Return(wood, nil)
	m.products.On("Update", ctx, mock.MatchedBy(func(p *domain.Product) bool {
		return p.Name == "Teddy Bear XL" && p.SellerID == judy.ID && len(p.Categories) == 2
	})).Return(int64(1), nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{baby.ID}).Return(int64(1), nil)
	m.categories.On("AddProductToCategories", ctx, "prod-1", []string{wood.ID}).Return(int64(1), nil)
	m.events.On("PublishProductUpdated", ctx, domain.BackendRelational, mock.Anything).Return(nil)

	input := updateInput()
	input.CategoryIDs = []string{toys.ID, wood.ID}

	product, err := svc.UpdateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, []string{toys.ID, wood.ID}, product.CategoryIDs())
	assert.True(t, product.Price.Equal(decimal.RequireFromString("29.99")))
	m.assertExpectations(t)
}

func TestUpdateProduct_ResyncDisabledLeavesBackReferences(t *testing.T) {
	store, m := newMocks(domain.BackendDocument)
	svc := NewProductService(store, m.events, false, newTestLogger())
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.products.On("Update", ctx, mock.Anything).Return(int64(1), nil)
	m.events.On("PublishProductUpdated", ctx, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.UpdateProduct(ctx, updateInput())
	require.NoError(t, err)
	m.categories.AssertNotCalled(t, "RemoveProductFromCategories", mock.Anything, mock.Anything, mock.Anything)
	m.categories.AssertNotCalled(t, "AddProductToCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProduct_ReplacesSellerWhenGiven(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()
	peter := &domain.Seller{ID: "seller-peter"}

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.sellers.On("GetByID", ctx, peter.ID).Return(peter, nil)
	m.products.On("Update", ctx, mock.MatchedBy(func(p *domain.Product) bool { return p.SellerID == peter.ID })).
		Return(int64(1), nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{baby.ID}).Return(int64(1), nil)
	m.events.On("PublishProductUpdated", ctx, mock.Anything, mock.Anything).Return(nil)

	input := updateInput()
	input.SellerID = &peter.ID

	product, err := svc.UpdateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, peter.ID, product.SellerID)
	m.assertExpectations(t)
}

func TestUpdateProduct_CollapsesSpellingsOfOneCategory(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	upper := strings.ToUpper(toys.ID)
	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.categories.On("GetByID", ctx, upper).Return(toys, nil)
	m.products.On("Update", ctx, mock.MatchedBy(func(p *domain.Product) bool { return len(p.Categories) == 1 })).
		Return(int64(1), nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{baby.ID}).Return(int64(1), nil)
	m.events.On("PublishProductUpdated", ctx, mock.Anything, mock.Anything).Return(nil)

	input := updateInput()
	input.CategoryIDs = []string{toys.ID, upper}

	product, err := svc.UpdateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryRef{toys.Ref()}, product.Categories)
	m.assertExpectations(t)
}

func TestUpdateProduct_BackRefStoreErrorIsReturned(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.products.On("Update", ctx, mock.Anything).Return(int64(1), nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{baby.ID}).
		Return(int64(0), errors.New("connection reset"))

	_, err := svc.UpdateProduct(ctx, updateInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove product from categories")
	m.events.AssertNotCalled(t, "PublishProductUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProduct_UnknownSellerRejected(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()
	ghost := "seller-ghost"

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.sellers.On("GetByID", ctx, ghost).Return(nil, apperrors.ErrNotFound)

	input := updateInput()
	input.SellerID = &ghost

	_, err := svc.UpdateProduct(ctx, input)
	assert.Equal(t, ReasonSellerNotFound, appCode(t, err))
	m.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_ZeroMatchIsLostUpdate(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, toys.ID).Return(toys, nil)
	m.products.On("Update", ctx, mock.Anything).Return(int64(0), nil)

	before := testutil.ToFloat64(lostUpdates.WithLabelValues("document"))

	_, err := svc.UpdateProduct(ctx, updateInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyAnomaly)
	assert.Equal(t, "CONCURRENT_MODIFICATION", appCode(t, err))
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
	assert.Equal(t, before+1, testutil.ToFloat64(lostUpdates.WithLabelValues("document")))
	m.categories.AssertNotCalled(t, "RemoveProductFromCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProduct_UnknownCategoryRejected(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.categories.On("GetByID", ctx, "cat-missing").Return(nil, apperrors.ErrNotFound)

	input := updateInput()
	input.CategoryIDs = []string{"cat-missing"}

	_, err := svc.UpdateProduct(ctx, input)
	assert.Equal(t, ReasonCategoryNotFound, appCode(t, err))
	m.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// ============================================================================
// DeleteProduct, reads, snapshot refresh
// ============================================================================

func TestDeleteProduct_RemovesBackReferences(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.products.On("Delete", ctx, "prod-1").Return(nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{toys.ID, baby.ID}).Return(int64(2), nil)
	m.events.On("PublishProductDeleted", ctx, domain.BackendRelational, mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteProduct(ctx, "prod-1"))
	m.assertExpectations(t)
}

func TestDeleteProduct_BackRefStoreErrorIsReturned(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-1").Return(existingTeddy(), nil)
	m.products.On("Delete", ctx, "prod-1").Return(nil)
	m.categories.On("RemoveProductFromCategories", ctx, "prod-1", []string{toys.ID, baby.ID}).
		Return(int64(0), errors.New("connection reset"))

	err := svc.DeleteProduct(ctx, "prod-1")
	require.Error(t, err)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
	m.events.AssertNotCalled(t, "PublishProductDeleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	svc, m := newTestProductService(domain.BackendRelational)
	ctx := context.Background()

	m.products.On("GetByID", ctx, "prod-404").Return(nil, apperrors.ErrNotFound)

	err := svc.DeleteProduct(ctx, "prod-404")
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	m.products.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetProductByName(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("GetByName", ctx, "Teddy Bear").Return(existingTeddy(), nil)
	m.products.On("GetByName", ctx, "Unicorn").Return(nil, apperrors.ErrNotFound)

	p, err := svc.GetProductByName(ctx, "Teddy Bear")
	require.NoError(t, err)
	assert.Equal(t, "prod-1", p.ID)

	_, err = svc.GetProductByName(ctx, "Unicorn")
	assert.Equal(t, 404, apperrors.HTTPStatus(err))

	_, err = svc.GetProductByName(ctx, "")
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
}

func TestListProducts(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("List", ctx).Return([]domain.Product{*existingTeddy()}, nil)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestRefreshCategorySnapshot(t *testing.T) {
	svc, m := newTestProductService(domain.BackendDocument)
	ctx := context.Background()

	m.products.On("RefreshCategorySnapshot", ctx, toys.ID, "Games").Return(int64(4), nil)

	n, err := svc.RefreshCategorySnapshot(ctx, toys.ID, "Games")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

// ============================================================================
// End-to-end over an in-memory store
// ============================================================================

func TestProductLifecycle_EndToEnd(t *testing.T) {
	for _, backend := range []domain.Backend{domain.BackendRelational, domain.BackendDocument} {
		t.Run(backend.String(), func(t *testing.T) {
			ctx := context.Background()
			store, _ := newMemStore(backend)
			logger := newTestLogger()
			products := NewProductService(store, noopEvents{}, true, logger)
			categories := NewCategoryService(store, noopEvents{}, logger)
			sellers := NewSellerService(store, logger)

			seller, err := sellers.CreateSeller(ctx, &domain.CreateSellerInput{
				AccountID: "acct-judy",
				Profile:   domain.Profile{FirstName: "Judy", LastName: "Foster", Gender: domain.GenderFemale},
			})
			require.NoError(t, err)
			a, err := categories.CreateCategory(ctx, &domain.CreateCategoryInput{Name: "Toys"})
			require.NoError(t, err)
			b, err := categories.CreateCategory(ctx, &domain.CreateCategoryInput{Name: "Baby"})
			require.NoError(t, err)

			created, err := products.CreateProduct(ctx, &domain.CreateProductInput{
				Name:        "Teddy Bear",
				Price:       decimal.RequireFromString("24.25"),
				ImageURLs:   []string{"https://img.example.com/teddy.jpg"},
				SellerID:    seller.ID,
				CategoryIDs: []string{a.ID, b.ID},
			})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)

			fetched, err := products.GetProductByName(ctx, "Teddy Bear")
			require.NoError(t, err)
			assert.Equal(t, created.ID, fetched.ID)
			assert.Equal(t, []string{a.ID, b.ID}, fetched.CategoryIDs())

			gotA, err := categories.GetCategory(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{created.ID}, gotA.ProductsOfCategory)

			// A category holding products cannot be deleted.
			err = categories.DeleteCategory(ctx, a.ID)
			assert.ErrorIs(t, err, apperrors.ErrConflict)

			// Moving the product out of A frees it.
			_, err = products.UpdateProduct(ctx, &domain.UpdateProductInput{
				ID:          created.ID,
				Name:        "Teddy Bear",
				Price:       decimal.RequireFromString("24.25"),
				ImageURLs:   []string{"https://img.example.com/teddy.jpg"},
				CategoryIDs: []string{b.ID},
			})
			require.NoError(t, err)

			gotA, err = categories.GetCategory(ctx, a.ID)
			require.NoError(t, err)
			assert.Empty(t, gotA.ProductsOfCategory)
			require.NoError(t, categories.DeleteCategory(ctx, a.ID))

			require.NoError(t, products.DeleteProduct(ctx, created.ID))
			gotB, err := categories.GetCategory(ctx, b.ID)
			require.NoError(t, err)
			assert.Empty(t, gotB.ProductsOfCategory)
		})
	}
}

func TestCreateProduct_ConcurrentCreatesListEachProductOnce(t *testing.T) {
	ctx := context.Background()
	store, mem := newMemStore(domain.BackendDocument)
	logger := newTestLogger()
	products := NewProductService(store, noopEvents{}, true, logger)

	seller := &domain.Seller{AccountID: "acct"}
	require.NoError(t, store.Sellers.Create(ctx, seller))
	a := &domain.Category{Name: "Toys"}
	b := &domain.Category{Name: "Baby"}
	require.NoError(t, store.Categories.Create(ctx, a))
	require.NoError(t, store.Categories.Create(ctx, b))

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := products.CreateProduct(ctx, &domain.CreateProductInput{
				Name:        fmt.Sprintf("Toy %d", i),
				Price:       decimal.NewFromInt(1),
				SellerID:    seller.ID,
				CategoryIDs: []string{a.ID, b.ID, a.ID},
			})
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	// Re-appending an id that is already present changes nothing.
	modified, err := store.Categories.AddProductToCategories(ctx, ids[0], []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Zero(t, modified)

	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, c := range []string{a.ID, b.ID} {
		assert.ElementsMatch(t, ids, mem.categories[c].ProductsOfCategory)
	}
}
