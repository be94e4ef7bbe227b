package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrLineNotFound = errors.New("line not found in cart")

// CartRepository operates on the cart array embedded in the profile
// document. Exclusive use during a commit is enforced above this layer by
// the checkout service's per-account section.
type CartRepository interface {
	// AddLines appends already-validated lines, price snapshot included.
	AddLines(ctx context.Context, email string, lines []domain.CartLine) error
	// RemoveLine removes the first line for the given product; later
	// duplicate lines for the same product stay in the cart.
	RemoveLine(ctx context.Context, email string, productID string) error
	// Snapshot returns the current cart contents.
	Snapshot(ctx context.Context, email string) ([]domain.CartLine, error)
	// Clear empties the cart; called only after a fully successful commit.
	Clear(ctx context.Context, email string) error
}

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection(ProfilesCollection)}
}

func (m *mongoCartRepository) AddLines(ctx context.Context, email string, lines []domain.CartLine) error {
	filter := bson.M{"email": email}
	update := bson.M{
		"$push": bson.M{"cart": bson.M{"$each": lines}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add cart lines: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (m *mongoCartRepository) RemoveLine(ctx context.Context, email string, productID string) error {
	// $pull would drop every line for the product; null out only the first
	// match via the positional operator, then pull the null.
	filter := bson.M{"email": email, "cart.product_id": productID}
	unset := bson.M{
		"$unset": bson.M{"cart.$": 1},
		"$set":   bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, unset)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	if result.MatchedCount == 0 {
		count, countErr := m.collection.CountDocuments(ctx, bson.M{"email": email})
		if countErr != nil {
			return fmt.Errorf("failed to check account %s: %w", email, countErr)
		}
		if count == 0 {
			return ErrAccountNotFound
		}
		return ErrLineNotFound
	}

	pull := bson.M{"$pull": bson.M{"cart": nil}}
	if _, err := m.collection.UpdateOne(ctx, bson.M{"email": email}, pull); err != nil {
		return fmt.Errorf("failed to compact cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) Snapshot(ctx context.Context, email string) ([]domain.CartLine, error) {
	var account domain.Account
	err := m.collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}
	return account.Cart, nil
}

func (m *mongoCartRepository) Clear(ctx context.Context, email string) error {
	filter := bson.M{"email": email}
	update := bson.M{
		"$set": bson.M{"cart": []domain.CartLine{}, "updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
