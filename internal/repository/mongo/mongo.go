// Package mongo implements the catalog repositories on MongoDB. Products
// embed (id, name) snapshots of their categories; categories keep the
// productsOfCategory back-reference array.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
)

// Collection names.
const (
	SellersCollection    = "sellers"
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
)

// NewStore returns the document repository bundle backed by db.
func NewStore(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Backend:    domain.BackendDocument,
		Sellers:    NewSellerRepository(db),
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
	}
}

// EnsureIndexes creates the secondary indexes used by the lookups.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		SellersCollection: {
			{Keys: bson.D{{Key: "profile.firstName", Value: 1}}},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "categories.id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models, options.CreateIndexes()); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// objectIDs parses the well-formed hex ids of ids.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
