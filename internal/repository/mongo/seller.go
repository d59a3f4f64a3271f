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

type sellerDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"accountId"`
	Profile   profileDoc         `bson:"profile"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type profileDoc struct {
	FirstName    string `bson:"firstName"`
	LastName     string `bson:"lastName"`
	Gender       string `bson:"gender"`
	Birthday     string `bson:"birthday,omitempty"`
	Address      string `bson:"address,omitempty"`
	EmailAddress string `bson:"emailAddress,omitempty"`
	Website      string `bson:"website,omitempty"`
}

func (d *sellerDoc) toDomain() domain.Seller {
	return domain.Seller{
		ID:        d.ID.Hex(),
		AccountID: d.AccountID,
		Profile:   domain.Profile(d.Profile),
		CreatedAt: d.CreatedAt,
	}
}

// SellerRepository implements repository.SellerRepository using MongoDB.
type SellerRepository struct {
	coll *mongo.Collection
}

// NewSellerRepository creates a new MongoDB-backed seller repository.
func NewSellerRepository(db *mongo.Database) *SellerRepository {
	return &SellerRepository{coll: db.Collection(SellersCollection)}
}

// Create inserts a seller document with its embedded profile.
func (r *SellerRepository) Create(ctx context.Context, s *domain.Seller) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "sellers.Create", "insertOne sellers")
	defer func() { end(err) }()

	doc := sellerDoc{
		ID:        primitive.NewObjectID(),
		AccountID: s.AccountID,
		Profile:   profileDoc(s.Profile),
		CreatedAt: s.CreatedAt,
	}
	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}

	s.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves a seller by its hex ObjectID.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (s *domain.Seller, err error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, "sellers.GetByID", "findOne sellers by _id")
	defer func() { end(err) }()

	var doc sellerDoc
	if err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get seller by id: %w", err)
	}

	seller := doc.toDomain()
	return &seller, nil
}

// FindByFirstName returns the sellers whose profile first name equals firstName.
func (r *SellerRepository) FindByFirstName(ctx context.Context, firstName string) ([]domain.Seller, error) {
	return r.find(ctx, "sellers.FindByFirstName", bson.M{"profile.firstName": firstName})
}

// List returns every seller.
func (r *SellerRepository) List(ctx context.Context) ([]domain.Seller, error) {
	return r.find(ctx, "sellers.List", bson.M{})
}

func (r *SellerRepository) find(ctx context.Context, op string, filter bson.M) (sellers []domain.Seller, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongoDB, op, "find sellers")
	defer func() { end(err) }()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sellers: %w", err)
	}

	var docs []sellerDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sellers: %w", err)
	}

	sellers = make([]domain.Seller, 0, len(docs))
	for i := range docs {
		sellers = append(sellers, docs[i].toDomain())
	}
	return sellers, nil
}
