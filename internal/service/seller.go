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

// SellerService implements seller operations for one backend.
type SellerService struct {
	sellers repository.SellerRepository
	logger  *slog.Logger
}

// NewSellerService creates a seller service over store.
func NewSellerService(store *repository.Store, logger *slog.Logger) *SellerService {
	return &SellerService{
		sellers: store.Sellers,
		logger:  logger.With(slog.String("backend", store.Backend.String())),
	}
}

// CreateSeller registers a seller with its profile.
func (s *SellerService) CreateSeller(ctx context.Context, input *domain.CreateSellerInput) (*domain.Seller, error) {
	if strings.TrimSpace(input.AccountID) == "" {
		return nil, apperrors.InvalidInput("account id is required")
	}
	if strings.TrimSpace(input.Profile.FirstName) == "" || strings.TrimSpace(input.Profile.LastName) == "" {
		return nil, apperrors.InvalidInput("first and last name are required")
	}

	seller := &domain.Seller{
		AccountID: input.AccountID,
		Profile:   input.Profile,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sellers.Create(ctx, seller); err != nil {
		return nil, fmt.Errorf("create seller: %w", err)
	}

	s.logger.InfoContext(ctx, "seller created", slog.String("seller_id", seller.ID))
	return seller, nil
}

// GetSeller returns a seller by id.
func (s *SellerService) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	seller, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("seller", id)
		}
		return nil, fmt.Errorf("get seller: %w", err)
	}
	return seller, nil
}

// ListSellers returns every seller, or only those with the given first name
// when firstName is not empty.
func (s *SellerService) ListSellers(ctx context.Context, firstName string) ([]domain.Seller, error) {
	var (
		sellers []domain.Seller
		err     error
	)
	if firstName != "" {
		sellers, err = s.sellers.FindByFirstName(ctx, firstName)
	} else {
		sellers, err = s.sellers.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}
	return sellers, nil
}
