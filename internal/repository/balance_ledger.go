package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceLedger owns per-account monetary balance. Same contract as the
// stock ledger: conditional single-document updates only, balance never
// goes negative under concurrent debits.
type BalanceLedger interface {
	// TryDebit subtracts amount only if the current balance covers it.
	// Returns the remaining balance on success, ErrInsufficientBalance or
	// ErrAccountNotFound with no mutation otherwise.
	TryDebit(ctx context.Context, email string, amount float64) (float64, error)

	// Credit adds amount, used for deposits and compensation.
	Credit(ctx context.Context, email string, amount float64) (float64, error)
}

type mongoBalanceLedger struct {
	collection *mongo.Collection
}

func NewMongoBalanceLedger(db *mongo.Database) BalanceLedger {
	return &mongoBalanceLedger{collection: db.Collection(ProfilesCollection)}
}

func (m *mongoBalanceLedger) TryDebit(ctx context.Context, email string, amount float64) (float64, error) {
	filter := bson.M{
		"email":   email,
		"balance": bson.M{"$gte": amount},
	}
	update := bson.M{"$inc": bson.M{"balance": -amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated struct {
		Balance float64 `bson:"balance"`
	}
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.Balance, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to debit %s: %w", email, err)
	}

	count, countErr := m.collection.CountDocuments(ctx, bson.M{"email": email})
	if countErr != nil {
		return 0, fmt.Errorf("failed to check account %s: %w", email, countErr)
	}
	if count == 0 {
		return 0, ErrAccountNotFound
	}
	return 0, ErrInsufficientBalance
}

func (m *mongoBalanceLedger) Credit(ctx context.Context, email string, amount float64) (float64, error) {
	filter := bson.M{"email": email}
	update := bson.M{"$inc": bson.M{"balance": amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated struct {
		Balance float64 `bson:"balance"`
	}
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to credit %s: %w", email, err)
	}
	return updated.Balance, nil
}
