// Package postgres implements the catalog repositories on PostgreSQL.
package postgres

import (
	"github.com/google/uuid"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/database"
)

// NewStore returns the relational repository bundle backed by db.
func NewStore(db database.DBTX) *repository.Store {
	return &repository.Store{
		Backend:    domain.BackendRelational,
		Sellers:    NewSellerRepository(db),
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
	}
}

// newID returns a fresh identity for an inserted row.
func newID() string {
	return uuid.New().String()
}

// isUUID reports whether id can address a UUID column. Anything else cannot
// match a row, so lookups short-circuit to not found.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// uuids keeps the well-formed ids of ids.
func uuids(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
