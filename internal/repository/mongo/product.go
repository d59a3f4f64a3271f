package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	ImageURLs   []string             `bson:"imageUrls"`
	SellerID    string               `bson:"sellerId"`
	Categories  []domain.CategoryRef `bson:"categories"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *productDoc) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price %q: %w", d.Price.String(), err)
	}
	p := domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		ImageURLs:   d.ImageURLs,
		SellerID:    d.SellerID,
		Categories:  d.Categories,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	if p.Categories == nil {
		p.Categories = []domain.CategoryRef{}
	}
	return p, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert price %s: %w", d.String(), err)
	}
	return dec, nil
}

// ProductRepository implements repository.ProductRepository using MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a new MongoDB-backed product repository.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

// Create inserts a product document with its category snapshots.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.Create", "insertOne products")
	defer func() { end(err) }()

	doc := productDoc{
		ID:          primitive.NewObjectID(),
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		ImageURLs:   p.ImageURLs,
		SellerID:    p.SellerID,
		Categories:  p.Categories,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	p.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves a product by its hex ObjectID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, "products.GetByID", bson.M{"_id": oid})
}

// GetByName retrieves the oldest product with the given name.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	return r.findOne(ctx, "products.GetByName", bson.M{"name": name})
}

func (r *ProductRepository) findOne(ctx context.Context, op string, filter bson.M) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, op, "findOne products")
	defer func() { end(err) }()

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var doc productDoc
	if err = r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	product, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns every product, oldest first.
func (r *ProductRepository) List(ctx context.Context) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.List", "find products")
	defer func() { end(err) }()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var docs []productDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products = make([]domain.Product, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Update sets the mutable fields of the product addressed by ID and returns
// the matched count.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (matched int64, err error) {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return 0, nil
	}
	price, err := toDecimal128(p.Price)
	if err != nil {
		return 0, err
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.Update", "updateOne products $set")
	defer func() { end(err) }()

	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"price":       price,
		"imageUrls":   p.ImageURLs,
		"sellerId":    p.SellerID,
		"categories":  p.Categories,
		"updatedAt":   p.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return 0, fmt.Errorf("update product: %w", err)
	}
	return res.MatchedCount, nil
}

// Delete removes a product by its hex ObjectID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.Delete", "deleteOne products")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RefreshCategorySnapshot rewrites the embedded name of categoryID on every
// product carrying it.
func (r *ProductRepository) RefreshCategorySnapshot(ctx context.Context, categoryID, name string) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "products.RefreshCategorySnapshot", "updateMany products categories.$[c].name")
	defer func() { end(err) }()

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"c.id": categoryID}},
	})
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"categories.id": categoryID},
		bson.M{"$set": bson.M{"categories.$[c].name": name}},
		opts,
	)
	if err != nil {
		return 0, fmt.Errorf("refresh category snapshot: %w", err)
	}
	return res.ModifiedCount, nil
}
