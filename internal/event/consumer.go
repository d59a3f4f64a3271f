package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/CatalogGo/internal/domain"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
)

// SnapshotRefresher rewrites the category name embedded on products.
type SnapshotRefresher interface {
	RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (int64, error)
}

// Consumer keeps product category snapshots in step with category renames.
type Consumer struct {
	refreshers map[domain.Backend]SnapshotRefresher
	logger     *slog.Logger
}

// NewConsumer creates a consumer that dispatches to the refresher of the
// backend named in each event.
func NewConsumer(refreshers map[domain.Backend]SnapshotRefresher, logger *slog.Logger) *Consumer {
	return &Consumer{refreshers: refreshers, logger: logger}
}

// HandleCategoryRenamed processes category.renamed events.
func (c *Consumer) HandleCategoryRenamed(ctx context.Context, event *pkgkafka.Event) error {
	var data CategoryRenamedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal category.renamed data: %w", err)
	}

	backend, ok := domain.ParseBackend(data.Backend)
	if !ok {
		c.logger.WarnContext(ctx, "category.renamed for unknown backend, skipping",
			slog.String("event_id", event.EventID),
			slog.String("backend", data.Backend),
		)
		return nil
	}
	refresher, ok := c.refreshers[backend]
	if !ok {
		c.logger.WarnContext(ctx, "category.renamed for unconfigured backend, skipping",
			slog.String("event_id", event.EventID),
			slog.String("backend", backend.String()),
		)
		return nil
	}

	n, err := refresher.RefreshCategorySnapshot(ctx, data.ID, data.Name)
	if err != nil {
		return fmt.Errorf("refresh snapshots of category %s: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "category snapshots refreshed",
		slog.String("category_id", data.ID),
		slog.String("backend", backend.String()),
		slog.String("old_name", data.OldName),
		slog.String("name", data.Name),
		slog.Int64("modified_products", n),
	)
	return nil
}
