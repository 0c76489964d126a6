package repository

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

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

const cartsCollection = "carts"

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ProfileID string             `bson:"profile_id"`
	Items     []itemDocument     `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type itemDocument struct {
	ID       string               `bson:"id"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Size     string               `bson:"size,omitempty"`
	Color    string               `bson:"color,omitempty"`
	Quantity int                  `bson:"quantity"`
	Currency string               `bson:"currency"`
	Source   string               `bson:"source"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{collection: db.Collection(cartsCollection)}
}

func (m *mongoRepository) GetCart(ctx context.Context, profileID string) (*Cart, error) {
	var doc cartDocument

	filter := bson.M{"profile_id": profileID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		price, err := decimal.NewFromString(it.Price.String())
		if err != nil {
			return nil, fmt.Errorf("invalid stored price for item %s: %w", it.ID, err)
		}
		source := domain.Source(it.Source)
		if source == "" {
			source = domain.SourceInternal
		}
		items = append(items, domain.CartItem{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Currency:  it.Currency,
			Source:    source,
		})
	}

	return &Cart{
		ProfileID: doc.ProfileID,
		Items:     items,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (m *mongoRepository) SaveCart(ctx context.Context, profileID string, items []domain.CartItem) error {
	docs := make([]itemDocument, 0, len(items))
	for _, it := range items {
		price, err := primitive.ParseDecimal128(it.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("invalid price for item %s: %w", it.ID, err)
		}
		docs = append(docs, itemDocument{
			ID:       it.ID,
			Name:     it.Name,
			Price:    price,
			Size:     it.Size,
			Color:    it.Color,
			Quantity: it.Quantity,
			Currency: it.Currency,
			Source:   string(it.Source),
		})
	}

	now := time.Now()
	filter := bson.M{"profile_id": profileID}
	update := bson.M{
		"$set": bson.M{
			"items":      docs,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, profileID string) error {
	filter := bson.M{"profile_id": profileID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "profile_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the cart indexes when repo is Mongo-backed.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	m, ok := repo.(*mongoRepository)
	if !ok {
		return nil
	}
	return m.CreateIndexes(ctx)
}
