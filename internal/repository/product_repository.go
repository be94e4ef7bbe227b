package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductRepository is the catalog-management side of the inventory
// collection. Stock decrements during a commit never go through here,
// only through the StockLedger.
type ProductRepository interface {
	Insert(ctx context.Context, product *domain.Product) error
	InsertMany(ctx context.Context, products []*domain.Product) error
	// UpdateField sets one of name, price or quantity directly. This is the
	// seller-management path; it does not respect in-flight reservations.
	UpdateField(ctx context.Context, productID, field string, value interface{}) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (*domain.Product, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindBySeller(ctx context.Context, sellerEmail string) ([]*domain.Product, error)
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(InventoryCollection)}
}

func (m *mongoProductRepository) Insert(ctx context.Context, product *domain.Product) error {
	product.ID = primitive.NewObjectID().Hex()
	product.CreatedAt = time.Now()

	_, err := m.collection.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) InsertMany(ctx context.Context, products []*domain.Product) error {
	now := time.Now()
	docs := make([]interface{}, len(products))
	for i, p := range products {
		p.ID = primitive.NewObjectID().Hex()
		p.CreatedAt = now
		docs[i] = p
	}

	_, err := m.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) UpdateField(ctx context.Context, productID, field string, value interface{}) error {
	filter := bson.M{"_id": productID}
	update := bson.M{"$set": bson.M{field: value}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) Delete(ctx context.Context, productID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (m *mongoProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{})
}

func (m *mongoProductRepository) FindBySeller(ctx context.Context, sellerEmail string) ([]*domain.Product, error) {
	return m.find(ctx, bson.M{"seller_email": sellerEmail})
}

func (m *mongoProductRepository) find(ctx context.Context, filter bson.M) ([]*domain.Product, error) {
	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
