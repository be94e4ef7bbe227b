package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCommitmentNotFound = errors.New("commitment not found")

// CommitmentRepository persists the state of each order-placement attempt.
// The checkout service writes a status row before and after every
// side-effecting phase, and records each granted reservation, so a
// recovery sweep can complete or roll back anything left non-terminal.
type CommitmentRepository interface {
	Create(ctx context.Context, c *domain.Commitment) error
	UpdateStatus(ctx context.Context, id string, status domain.CommitmentStatus) error
	AddGranted(ctx context.Context, id string, granted domain.GrantedReservation) error
	Get(ctx context.Context, id string) (*domain.Commitment, error)
	// GetUnpublished returns committed commitments not yet announced on the
	// order-placed topic, oldest first.
	GetUnpublished(ctx context.Context, limit int64) ([]*domain.Commitment, error)
	MarkPublished(ctx context.Context, id string) error
	// ListStuck returns non-terminal commitments not updated since the
	// cutoff; these are candidates for external recovery.
	ListStuck(ctx context.Context, cutoff time.Time) ([]*domain.Commitment, error)
}

type mongoCommitmentRepository struct {
	collection *mongo.Collection
}

func NewMongoCommitmentRepository(db *mongo.Database) CommitmentRepository {
	return &mongoCommitmentRepository{collection: db.Collection(CommitmentsCollection)}
}

func (m *mongoCommitmentRepository) Create(ctx context.Context, c *domain.Commitment) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Granted == nil {
		c.Granted = []domain.GrantedReservation{}
	}

	_, err := m.collection.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to create commitment: %w", err)
	}
	return nil
}

func (m *mongoCommitmentRepository) UpdateStatus(ctx context.Context, id string, status domain.CommitmentStatus) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update commitment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCommitmentNotFound
	}
	return nil
}

func (m *mongoCommitmentRepository) AddGranted(ctx context.Context, id string, granted domain.GrantedReservation) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$push": bson.M{"granted": granted},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record granted reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCommitmentNotFound
	}
	return nil
}

func (m *mongoCommitmentRepository) Get(ctx context.Context, id string) (*domain.Commitment, error) {
	var c domain.Commitment
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCommitmentNotFound
		}
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}
	return &c, nil
}

func (m *mongoCommitmentRepository) GetUnpublished(ctx context.Context, limit int64) ([]*domain.Commitment, error) {
	filter := bson.M{"status": domain.CommitmentStatusCommitted, "published": false}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}).SetLimit(limit)
	return m.find(ctx, filter, opts)
}

func (m *mongoCommitmentRepository) MarkPublished(ctx context.Context, id string) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"published": true, "updated_at": time.Now()}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark commitment published: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCommitmentNotFound
	}
	return nil
}

func (m *mongoCommitmentRepository) ListStuck(ctx context.Context, cutoff time.Time) ([]*domain.Commitment, error) {
	filter := bson.M{
		"status": bson.M{"$nin": bson.A{
			domain.CommitmentStatusCommitted,
			domain.CommitmentStatusAborted,
		}},
		"updated_at": bson.M{"$lt": cutoff},
	}
	return m.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}))
}

func (m *mongoCommitmentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Commitment, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer cursor.Close(ctx)

	var commitments []*domain.Commitment
	if err := cursor.All(ctx, &commitments); err != nil {
		return nil, fmt.Errorf("failed to decode commitments: %w", err)
	}
	return commitments, nil
}
