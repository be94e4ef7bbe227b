package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// JournalRepository is the append-only order/payment record. Appends are
// idempotent: the unique (commit_id, line) index turns a retried append
// into a duplicate-key error, which is swallowed and the existing
// record's id returned instead.
type JournalRepository interface {
	AppendOrder(ctx context.Context, order *domain.Order) (string, error)
	AppendPayment(ctx context.Context, payment *domain.Payment) (string, error)
	OrdersByBuyer(ctx context.Context, buyerEmail string) ([]*domain.Order, error)
	OrdersByCommit(ctx context.Context, commitID string) ([]*domain.Order, error)
	PaymentsByCommit(ctx context.Context, commitID string) ([]*domain.Payment, error)
}

type mongoJournalRepository struct {
	orders   *mongo.Collection
	payments *mongo.Collection
}

func NewMongoJournalRepository(db *mongo.Database) JournalRepository {
	return &mongoJournalRepository{
		orders:   db.Collection(OrdersCollection),
		payments: db.Collection(PaymentsCollection),
	}
}

func (m *mongoJournalRepository) AppendOrder(ctx context.Context, order *domain.Order) (string, error) {
	order.ID = primitive.NewObjectID().Hex()
	order.CreatedAt = time.Now()

	_, err := m.orders.InsertOne(ctx, order)
	if err == nil {
		return order.ID, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("failed to append order: %w", err)
	}
	return m.existingID(ctx, m.orders, order.CommitID, order.Line)
}

func (m *mongoJournalRepository) AppendPayment(ctx context.Context, payment *domain.Payment) (string, error) {
	payment.ID = primitive.NewObjectID().Hex()
	payment.CreatedAt = time.Now()

	_, err := m.payments.InsertOne(ctx, payment)
	if err == nil {
		return payment.ID, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("failed to append payment: %w", err)
	}
	return m.existingID(ctx, m.payments, payment.CommitID, payment.Line)
}

// existingID resolves the record a retried append collided with.
func (m *mongoJournalRepository) existingID(ctx context.Context, c *mongo.Collection, commitID string, line int32) (string, error) {
	var existing struct {
		ID string `bson:"_id"`
	}
	filter := bson.M{"commit_id": commitID, "line": line}
	if err := c.FindOne(ctx, filter).Decode(&existing); err != nil {
		return "", fmt.Errorf("failed to resolve duplicate journal append: %w", err)
	}
	return existing.ID, nil
}

func (m *mongoJournalRepository) OrdersByBuyer(ctx context.Context, buyerEmail string) ([]*domain.Order, error) {
	var orders []*domain.Order
	if err := m.findAll(ctx, m.orders, bson.M{"buyer_email": buyerEmail}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *mongoJournalRepository) OrdersByCommit(ctx context.Context, commitID string) ([]*domain.Order, error) {
	var orders []*domain.Order
	if err := m.findAll(ctx, m.orders, bson.M{"commit_id": commitID}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *mongoJournalRepository) PaymentsByCommit(ctx context.Context, commitID string) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	if err := m.findAll(ctx, m.payments, bson.M{"commit_id": commitID}, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (m *mongoJournalRepository) findAll(ctx context.Context, c *mongo.Collection, filter bson.M, out interface{}) error {
	cursor, err := c.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query journal: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode journal records: %w", err)
	}
	return nil
}
