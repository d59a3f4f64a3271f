package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

type categoryDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	ProductsOfCategory []string           `bson:"productsOfCategory"`
	CreatedAt          time.Time          `bson:"createdAt"`
}

func (d *categoryDoc) toDomain() domain.Category {
	products := d.ProductsOfCategory
	if products == nil {
		products = []string{}
	}
	return domain.Category{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		ProductsOfCategory: products,
		CreatedAt:          d.CreatedAt,
	}
}

// CategoryRepository implements repository.CategoryRepository using MongoDB.
type CategoryRepository struct {
	coll *mongo.Collection
}

// NewCategoryRepository creates a new MongoDB-backed category repository.
func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{coll: db.Collection(CategoriesCollection)}
}

// Create inserts a category with an empty productsOfCategory array.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "categories.Create", "insertOne categories")
	defer func() { end(err) }()

	doc := categoryDoc{
		ID:                 primitive.NewObjectID(),
		Name:               c.Name,
		ProductsOfCategory: []string{},
		CreatedAt:          c.CreatedAt,
	}
	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	c.ID = doc.ID.Hex()
	c.ProductsOfCategory = []string{}
	return nil
}

// GetByID retrieves a category by its hex ObjectID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (c *domain.Category, err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "categories.GetByID", "findOne categories by _id")
	defer func() { end(err) }()

	var doc categoryDoc
	if err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}

	category := doc.toDomain()
	return &category, nil
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) (categories []domain.Category, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "categories.List", "find categories")
	defer func() { end(err) }()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	var docs []categoryDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	categories = make([]domain.Category, 0, len(docs))
	for i := range docs {
		categories = append(categories, docs[i].toDomain())
	}
	return categories, nil
}

// Rename sets the category name.
func (r *CategoryRepository) Rename(ctx context.Context, id, name string) (err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "categories.Rename", "updateOne categories $set name")
	defer func() { end(err) }()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a category by its hex ObjectID.
func (r *CategoryRepository) Delete(ctx context.Context, id string) (err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "categories.Delete", "deleteOne categories")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddProductToCategories adds productID to productsOfCategory on every
// listed category with $addToSet, which is atomic per document.
func (r *CategoryRepository) AddProductToCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	return r.updateBackRefs(ctx, "categories.AddProductToCategories", categoryIDs,
		bson.M{"$addToSet": bson.M{"productsOfCategory": productID}})
}

// RemoveProductFromCategories pulls productID from productsOfCategory on
// every listed category.
func (r *CategoryRepository) RemoveProductFromCategories(ctx context.Context, productID string, categoryIDs []string) (int64, error) {
	return r.updateBackRefs(ctx, "categories.RemoveProductFromCategories", categoryIDs,
		bson.M{"$pull": bson.M{"productsOfCategory": productID}})
}

func (r *CategoryRepository) updateBackRefs(ctx context.Context, op string, categoryIDs []string, update bson.M) (n int64, err error) {
	oids := objectIDs(categoryIDs)
	if len(oids) == 0 {
		return 0, nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, op, "updateMany categories by _id $in")
	defer func() { end(err) }()

	res, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, update)
	if err != nil {
		return 0, fmt.Errorf("update category back-references: %w", err)
	}
	return res.ModifiedCount, nil
}
