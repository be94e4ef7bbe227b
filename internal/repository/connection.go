package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by all repositories. Accounts embed the cart,
// so profiles is both the account directory and the cart store.
const (
	ProfilesCollection    = "profiles"
	InventoryCollection   = "inventory"
	OrdersCollection      = "orders"
	PaymentsCollection    = "payments"
	CommitmentsCollection = "commitments"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// CreateIndexes sets up the indexes every repository relies on. The unique
// (commit_id, line) indexes on orders and payments are what makes journal
// appends idempotent under retry.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	profileIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
	}
	if _, err := db.Collection(ProfilesCollection).Indexes().CreateMany(ctx, profileIndexes); err != nil {
		return fmt.Errorf("failed to create profile indexes: %w", err)
	}

	sellerIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "seller_email", Value: 1}},
	}
	if _, err := db.Collection(InventoryCollection).Indexes().CreateOne(ctx, sellerIndex); err != nil {
		return fmt.Errorf("failed to create inventory indexes: %w", err)
	}

	journalIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "commit_id", Value: 1}, {Key: "line", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, name := range []string{OrdersCollection, PaymentsCollection} {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, journalIndex); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	commitmentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "published", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}
	if _, err := db.Collection(CommitmentsCollection).Indexes().CreateMany(ctx, commitmentIndexes); err != nil {
		return fmt.Errorf("failed to create commitment indexes: %w", err)
	}

	return nil
}
