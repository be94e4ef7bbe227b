package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockLedger owns per-product available quantity. Both operations are
// single conditional updates against the stored document, never a read
// followed by a write, so quantity cannot go negative under any
// interleaving of concurrent reservations.
type StockLedger interface {
	// TryReserve decrements quantity by qty only if the current quantity
	// covers it. Returns the remaining quantity on success,
	// ErrInsufficientStock or ErrProductNotFound with no mutation otherwise.
	TryReserve(ctx context.Context, productID string, qty int32) (int32, error)

	// Release increments quantity back, used for compensation.
	Release(ctx context.Context, productID string, qty int32) error
}

type mongoStockLedger struct {
	collection *mongo.Collection
}

func NewMongoStockLedger(db *mongo.Database) StockLedger {
	return &mongoStockLedger{collection: db.Collection(InventoryCollection)}
}

func (m *mongoStockLedger) TryReserve(ctx context.Context, productID string, qty int32) (int32, error) {
	filter := bson.M{
		"_id":      productID,
		"quantity": bson.M{"$gte": qty},
	}
	update := bson.M{"$inc": bson.M{"quantity": -qty}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated struct {
		Quantity int32 `bson:"quantity"`
	}
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.Quantity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to reserve stock for %s: %w", productID, err)
	}

	// No match: either the product is gone or the quantity condition failed.
	count, countErr := m.collection.CountDocuments(ctx, bson.M{"_id": productID})
	if countErr != nil {
		return 0, fmt.Errorf("failed to check product %s: %w", productID, countErr)
	}
	if count == 0 {
		return 0, ErrProductNotFound
	}
	return 0, ErrInsufficientStock
}

func (m *mongoStockLedger) Release(ctx context.Context, productID string, qty int32) error {
	filter := bson.M{"_id": productID}
	update := bson.M{"$inc": bson.M{"quantity": qty}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release stock for %s: %w", productID, err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
