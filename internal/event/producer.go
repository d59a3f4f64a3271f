package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
	"github.com/utafrali/CatalogGo/pkg/logger"
)

// Kafka topics for catalog domain events.
const (
	TopicProductCreated  = "ecommerce.catalog.product.created"
	TopicProductUpdated  = "ecommerce.catalog.product.updated"
	TopicProductDeleted  = "ecommerce.catalog.product.deleted"
	TopicCategoryRenamed = "ecommerce.catalog.category.renamed"
)

// Aggregate types.
const (
	AggregateTypeProduct  = "product"
	AggregateTypeCategory = "category"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID          string          `json:"id"`
	Backend     string          `json:"backend"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	SellerID    string          `json:"seller_id"`
	CategoryIDs []string        `json:"category_ids"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID          string   `json:"id"`
	Backend     string   `json:"backend"`
	CategoryIDs []string `json:"category_ids"`
}

// CategoryRenamedData is the payload of category.renamed.
type CategoryRenamedData struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
	Name    string `json:"name"`
	OldName string `json:"old_name"`
}

// Publisher is the part of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events. A Producer with a nil Publisher
// drops every event, which is how the service runs without Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new catalog event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, productData(backend, product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateTypeProduct, productData(backend, product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, backend domain.Backend, product *domain.Product) error {
	data := ProductDeletedData{ID: product.ID, Backend: backend.String(), CategoryIDs: product.CategoryIDs()}
	return p.publish(ctx, TopicProductDeleted, product.ID, AggregateTypeProduct, data)
}

// PublishCategoryRenamed publishes a category.renamed event.
func (p *Producer) PublishCategoryRenamed(ctx context.Context, backend domain.Backend, category *domain.Category, oldName string) error {
	data := CategoryRenamedData{ID: category.ID, Backend: backend.String(), Name: category.Name, OldName: oldName}
	return p.publish(ctx, TopicCategoryRenamed, category.ID, AggregateTypeCategory, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p.kafka == nil {
		p.logger.DebugContext(ctx, "kafka disabled, event dropped", slog.String("topic", topic))
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	return p.kafka.Publish(ctx, topic, evt)
}

func productData(backend domain.Backend, product *domain.Product) ProductData {
	return ProductData{
		ID:          product.ID,
		Backend:     backend.String(),
		Name:        product.Name,
		Price:       product.Price,
		SellerID:    product.SellerID,
		CategoryIDs: product.CategoryIDs(),
	}
}
