package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore implements every repository interface with in-memory
// storage, honoring the same conditional-update contracts as the mongo
// implementations. Used for tests and local development without a
// running MongoDB.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account // email -> account
	products map[string]*domain.Product
	orders   []*domain.Order
	payments []*domain.Payment
	commits  map[string]*domain.Commitment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*domain.Account),
		products: make(map[string]*domain.Product),
		commits:  make(map[string]*domain.Commitment),
	}
}

func (s *MemoryStore) Accounts() AccountRepository       { return (*memoryAccounts)(s) }
func (s *MemoryStore) Products() ProductRepository       { return (*memoryProducts)(s) }
func (s *MemoryStore) Carts() CartRepository             { return (*memoryCarts)(s) }
func (s *MemoryStore) Stock() StockLedger                { return (*memoryStock)(s) }
func (s *MemoryStore) Balances() BalanceLedger           { return (*memoryBalances)(s) }
func (s *MemoryStore) Journal() JournalRepository        { return (*memoryJournal)(s) }
func (s *MemoryStore) Commitments() CommitmentRepository { return (*memoryCommitments)(s) }

type memoryAccounts MemoryStore

func (m *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[account.Email]; exists {
		return ErrEmailTaken
	}
	now := time.Now()
	account.ID = uuid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Cart == nil {
		account.Cart = []domain.CartLine{}
	}
	copied := *account
	m.accounts[account.Email] = &copied
	return nil
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyAccount(m.accounts[email])
}

func (m *memoryAccounts) FindByCredentials(_ context.Context, email, password string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account := m.accounts[email]
	if account == nil || account.Password != password {
		return nil, ErrAccountNotFound
	}
	return copyAccount(account)
}

func (m *memoryAccounts) FindByName(_ context.Context, name string, role domain.Role) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if !strings.EqualFold(account.Name, name) {
			continue
		}
		if role != "" && !strings.EqualFold(string(account.Role), string(role)) {
			continue
		}
		return copyAccount(account)
	}
	return nil, ErrAccountNotFound
}

func (m *memoryAccounts) CountByName(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, account := range m.accounts {
		if strings.EqualFold(account.Name, name) {
			count++
		}
	}
	return count, nil
}

func (m *memoryAccounts) UpdateDetails(_ context.Context, email, name, phone, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return ErrAccountNotFound
	}
	if name != "" {
		account.Name = name
	}
	if phone != "" {
		account.Phone = phone
	}
	if address != "" {
		account.Address = address
	}
	account.UpdatedAt = time.Now()
	return nil
}

func copyAccount(account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	copied := *account
	copied.Cart = append([]domain.CartLine(nil), account.Cart...)
	return &copied, nil
}

type memoryProducts MemoryStore

func (m *memoryProducts) Insert(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = uuid.New().String()
	product.CreatedAt = time.Now()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *memoryProducts) InsertMany(ctx context.Context, products []*domain.Product) error {
	for _, p := range products {
		if err := m.Insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryProducts) UpdateField(_ context.Context, productID, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[productID]
	if !exists {
		return ErrProductNotFound
	}
	switch field {
	case "name":
		product.Name = value.(string)
	case "price":
		product.Price = value.(float64)
	case "quantity":
		product.Quantity = value.(int32)
	}
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[productID]; !exists {
		return ErrProductNotFound
	}
	delete(m.products, productID)
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, productID string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	product, exists := m.products[productID]
	if !exists {
		return nil, ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *memoryProducts) FindAll(_ context.Context) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(*domain.Product) bool { return true }), nil
}

func (m *memoryProducts) FindBySeller(_ context.Context, sellerEmail string) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p *domain.Product) bool { return p.SellerEmail == sellerEmail }), nil
}

func (m *memoryProducts) collect(match func(*domain.Product) bool) []*domain.Product {
	products := make([]*domain.Product, 0)
	for _, p := range m.products {
		if match(p) {
			copied := *p
			products = append(products, &copied)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

type memoryCarts MemoryStore

func (m *memoryCarts) AddLines(_ context.Context, email string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return ErrAccountNotFound
	}
	account.Cart = append(account.Cart, lines...)
	account.UpdatedAt = time.Now()
	return nil
}

func (m *memoryCarts) RemoveLine(_ context.Context, email string, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return ErrAccountNotFound
	}
	// Only the first line for the product goes; duplicates stay.
	for i, line := range account.Cart {
		if line.ProductID == productID {
			account.Cart = append(account.Cart[:i], account.Cart[i+1:]...)
			account.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memoryCarts) Snapshot(_ context.Context, email string) ([]domain.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, exists := m.accounts[email]
	if !exists {
		return nil, ErrAccountNotFound
	}
	return append([]domain.CartLine(nil), account.Cart...), nil
}

func (m *memoryCarts) Clear(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return ErrAccountNotFound
	}
	account.Cart = []domain.CartLine{}
	account.UpdatedAt = time.Now()
	return nil
}

type memoryStock MemoryStore

func (m *memoryStock) TryReserve(_ context.Context, productID string, qty int32) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[productID]
	if !exists {
		return 0, ErrProductNotFound
	}
	if product.Quantity < qty {
		return 0, ErrInsufficientStock
	}
	product.Quantity -= qty
	return product.Quantity, nil
}

func (m *memoryStock) Release(_ context.Context, productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[productID]
	if !exists {
		return ErrProductNotFound
	}
	product.Quantity += qty
	return nil
}

type memoryBalances MemoryStore

func (m *memoryBalances) TryDebit(_ context.Context, email string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return 0, ErrAccountNotFound
	}
	if account.Balance < amount {
		return 0, ErrInsufficientBalance
	}
	account.Balance -= amount
	return account.Balance, nil
}

func (m *memoryBalances) Credit(_ context.Context, email string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[email]
	if !exists {
		return 0, ErrAccountNotFound
	}
	account.Balance += amount
	return account.Balance, nil
}

type memoryJournal MemoryStore

func (m *memoryJournal) AppendOrder(_ context.Context, order *domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.CommitID == order.CommitID && existing.Line == order.Line {
			return existing.ID, nil
		}
	}
	order.ID = uuid.New().String()
	order.CreatedAt = time.Now()
	copied := *order
	m.orders = append(m.orders, &copied)
	return order.ID, nil
}

func (m *memoryJournal) AppendPayment(_ context.Context, payment *domain.Payment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.CommitID == payment.CommitID && existing.Line == payment.Line {
			return existing.ID, nil
		}
	}
	payment.ID = uuid.New().String()
	payment.CreatedAt = time.Now()
	copied := *payment
	m.payments = append(m.payments, &copied)
	return payment.ID, nil
}

func (m *memoryJournal) OrdersByBuyer(_ context.Context, buyerEmail string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.BuyerEmail == buyerEmail {
			copied := *o
			orders = append(orders, &copied)
		}
	}
	return orders, nil
}

func (m *memoryJournal) OrdersByCommit(_ context.Context, commitID string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.CommitID == commitID {
			copied := *o
			orders = append(orders, &copied)
		}
	}
	return orders, nil
}

func (m *memoryJournal) PaymentsByCommit(_ context.Context, commitID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payments := make([]*domain.Payment, 0)
	for _, p := range m.payments {
		if p.CommitID == commitID {
			copied := *p
			payments = append(payments, &copied)
		}
	}
	return payments, nil
}

type memoryCommitments MemoryStore

func (m *memoryCommitments) Create(_ context.Context, c *domain.Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Granted == nil {
		c.Granted = []domain.GrantedReservation{}
	}
	m.commits[c.ID] = copyCommitment(c)
	return nil
}

func (m *memoryCommitments) UpdateStatus(_ context.Context, id string, status domain.CommitmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commit, exists := m.commits[id]
	if !exists {
		return ErrCommitmentNotFound
	}
	commit.Status = status
	commit.UpdatedAt = time.Now()
	return nil
}

func (m *memoryCommitments) AddGranted(_ context.Context, id string, granted domain.GrantedReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commit, exists := m.commits[id]
	if !exists {
		return ErrCommitmentNotFound
	}
	commit.Granted = append(commit.Granted, granted)
	commit.UpdatedAt = time.Now()
	return nil
}

func (m *memoryCommitments) Get(_ context.Context, id string) (*domain.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	commit, exists := m.commits[id]
	if !exists {
		return nil, ErrCommitmentNotFound
	}
	return copyCommitment(commit), nil
}

func (m *memoryCommitments) GetUnpublished(_ context.Context, limit int64) ([]*domain.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	commits := make([]*domain.Commitment, 0)
	for _, c := range m.commits {
		if c.Status == domain.CommitmentStatusCommitted && !c.Published {
			commits = append(commits, copyCommitment(c))
		}
	}
	sortCommitments(commits)
	if int64(len(commits)) > limit {
		commits = commits[:limit]
	}
	return commits, nil
}

func (m *memoryCommitments) MarkPublished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commit, exists := m.commits[id]
	if !exists {
		return ErrCommitmentNotFound
	}
	commit.Published = true
	commit.UpdatedAt = time.Now()
	return nil
}

func (m *memoryCommitments) ListStuck(_ context.Context, cutoff time.Time) ([]*domain.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	commits := make([]*domain.Commitment, 0)
	for _, c := range m.commits {
		if !c.Status.IsTerminal() && c.UpdatedAt.Before(cutoff) {
			commits = append(commits, copyCommitment(c))
		}
	}
	sortCommitments(commits)
	return commits, nil
}

func copyCommitment(c *domain.Commitment) *domain.Commitment {
	copied := *c
	copied.Lines = append([]domain.CartLine(nil), c.Lines...)
	copied.Granted = append([]domain.GrantedReservation(nil), c.Granted...)
	return &copied
}

func sortCommitments(commits []*domain.Commitment) {
	sort.Slice(commits, func(i, j int) bool {
		return commits[i].UpdatedAt.Before(commits[j].UpdatedAt)
	})
}
