package service

import (
	"context"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// EventPublisher publishes catalog domain events. Publishing failures are
// logged by the services and never fail the write.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, backend domain.Backend, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, backend domain.Backend, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, backend domain.Backend, product *domain.Product) error
	PublishCategoryRenamed(ctx context.Context, backend domain.Backend, category *domain.Category, oldName string) error
}
