package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// AccountRepository is the account directory: registration, credential
// checks and name resolution. Balance is read here but only ever mutated
// through the BalanceLedger.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByCredentials(ctx context.Context, email, password string) (*domain.Account, error)
	// FindByName resolves an account by display name, case-insensitively,
	// optionally restricted to a role. Returns ErrAccountNotFound if absent.
	FindByName(ctx context.Context, name string, role domain.Role) (*domain.Account, error)
	CountByName(ctx context.Context, name string) (int64, error)
	// UpdateDetails sets the non-empty personal fields on the account.
	UpdateDetails(ctx context.Context, email, name, phone, address string) error
}

type mongoAccountRepository struct {
	collection *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) AccountRepository {
	return &mongoAccountRepository{collection: db.Collection(ProfilesCollection)}
}

func (m *mongoAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now()
	account.ID = primitive.NewObjectID().Hex()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Cart == nil {
		account.Cart = []domain.CartLine{}
	}

	_, err := m.collection.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (m *mongoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *mongoAccountRepository) FindByCredentials(ctx context.Context, email, password string) (*domain.Account, error) {
	return m.findOne(ctx, bson.M{"email": email, "pwd": password})
}

func (m *mongoAccountRepository) FindByName(ctx context.Context, name string, role domain.Role) (*domain.Account, error) {
	filter := bson.M{"name": nameRegex(name)}
	if role != "" {
		filter["role"] = bson.M{"$regex": fmt.Sprintf("^%s$", role), "$options": "i"}
	}
	return m.findOne(ctx, filter)
}

func (m *mongoAccountRepository) CountByName(ctx context.Context, name string) (int64, error) {
	count, err := m.collection.CountDocuments(ctx, bson.M{"name": nameRegex(name)})
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

func (m *mongoAccountRepository) UpdateDetails(ctx context.Context, email, name, phone, address string) error {
	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["name"] = name
	}
	if phone != "" {
		set["phno"] = phone
	}
	if address != "" {
		set["addr"] = address
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update account details: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (m *mongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	err := m.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func nameRegex(name string) bson.M {
	return bson.M{"$regex": fmt.Sprintf("^%s$", regexp.QuoteMeta(name)), "$options": "i"}
}
