package service

import (
	"context"
	"strings"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
)

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Phone    string
	Address  string
}

// AccountService is the account directory plus the registration/login
// path. It never touches balances directly except through the ledger.
type AccountService struct {
	repo    repository.AccountRepository
	balance repository.BalanceLedger
}

func NewAccountService(repo repository.AccountRepository, balance repository.BalanceLedger) *AccountService {
	return &AccountService{repo: repo, balance: balance}
}

func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	account := &domain.Account{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: req.Password,
		Role:     role,
		Phone:    req.Phone,
		Address:  req.Address,
		Balance:  0,
		Cart:     []domain.CartLine{},
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Role, error) {
	account, err := s.repo.FindByCredentials(ctx, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

func (s *AccountService) CheckUser(ctx context.Context, name string) (int64, error) {
	return s.repo.CountByName(ctx, strings.TrimSpace(name))
}

// Resolve looks an account up by display name, optionally restricted to
// a role; pass an empty role to match any account.
func (s *AccountService) Resolve(ctx context.Context, name string, role domain.Role) (*domain.Account, error) {
	return s.repo.FindByName(ctx, strings.TrimSpace(name), role)
}

// UpdateDetails changes the personal fields of an account after
// re-checking the password; empty fields are left as they are.
func (s *AccountService) UpdateDetails(ctx context.Context, email, password, name, phone, address string) error {
	account, err := s.repo.FindByCredentials(ctx, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return err
	}
	return s.repo.UpdateDetails(ctx, account.Email, strings.TrimSpace(name), phone, address)
}

func (s *AccountService) GetBalance(ctx context.Context, email string) (float64, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *AccountService) GetRole(ctx context.Context, email string) (domain.Role, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

// AddBalance deposits into the buyer's balance through the ledger.
func (s *AccountService) AddBalance(ctx context.Context, email string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.balance.Credit(ctx, email, amount)
}
