package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	store    *repository.MemoryStore
	cache    *mockCache
	checkout *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	mc := newMockCache()
	checkout := NewCheckoutService(
		store.Carts(),
		store.Products(),
		store.Stock(),
		store.Balances(),
		store.Journal(),
		store.Commitments(),
		mc,
	)
	return &checkoutFixture{store: store, cache: mc, checkout: checkout}
}

func (f *checkoutFixture) addBuyer(t *testing.T, name, email string, balance float64) {
	t.Helper()
	err := f.store.Accounts().Create(context.Background(), &domain.Account{
		Name:     name,
		Email:    email,
		Password: "secret",
		Role:     domain.RoleBuyer,
		Balance:  balance,
	})
	require.NoError(t, err)
}

func (f *checkoutFixture) addProduct(t *testing.T, name string, price float64, qty int32) *domain.Product {
	t.Helper()
	product := &domain.Product{Name: name, Price: price, Quantity: qty, SellerEmail: "seller@shop.test"}
	require.NoError(t, f.store.Products().Insert(context.Background(), product))
	return product
}

func (f *checkoutFixture) addLine(t *testing.T, email string, product *domain.Product, qty int32) {
	t.Helper()
	line := domain.CartLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    qty,
		UnitPrice:   product.Price,
		SellerEmail: product.SellerEmail,
		AddedAt:     time.Now(),
	}
	require.NoError(t, f.store.Carts().AddLines(context.Background(), email, []domain.CartLine{line}))
}

func (f *checkoutFixture) balance(t *testing.T, email string) float64 {
	t.Helper()
	account, err := f.store.Accounts().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return account.Balance
}

func (f *checkoutFixture) stock(t *testing.T, productID string) int32 {
	t.Helper()
	product, err := f.store.Products().FindByID(context.Background(), productID)
	require.NoError(t, err)
	return product.Quantity
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	p2 := f.addProduct(t, "mouse", 50, 3)
	f.addLine(t, "alice@shop.test", p1, 2)
	f.addLine(t, "alice@shop.test", p2, 1)

	result, err := f.checkout.PlaceOrder(ctx, "alice@shop.test")
	require.NoError(t, err)

	assert.Equal(t, 250.0, result.TotalCharged)
	assert.Equal(t, 2, result.LineCount)
	assert.Len(t, result.OrderIDs, 2)

	assert.Equal(t, 250.0, f.balance(t, "alice@shop.test"))
	assert.Equal(t, int32(3), f.stock(t, p1.ID))
	assert.Equal(t, int32(2), f.stock(t, p2.ID))

	lines, err := f.store.Carts().Snapshot(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Empty(t, lines)

	orders, err := f.store.Journal().OrdersByCommit(ctx, result.CommitID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	payments, err := f.store.Journal().PaymentsByCommit(ctx, result.CommitID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	for _, payment := range payments {
		assert.Equal(t, "seller@shop.test", payment.SellerEmail)
	}

	commit, err := f.store.Commitments().Get(ctx, result.CommitID)
	require.NoError(t, err)
	assert.Equal(t, domain.CommitmentStatusCommitted, commit.Status)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	f.addBuyer(t, "Alice", "alice@shop.test", 500)

	result, err := f.checkout.PlaceOrder(context.Background(), "alice@shop.test")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, result)
}

func TestPlaceOrder_InsufficientBalance(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 100)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	p2 := f.addProduct(t, "mouse", 50, 3)
	f.addLine(t, "alice@shop.test", p1, 2)
	f.addLine(t, "alice@shop.test", p2, 1)

	result, err := f.checkout.PlaceOrder(ctx, "alice@shop.test")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Nil(t, result)

	// Nothing changed.
	assert.Equal(t, 100.0, f.balance(t, "alice@shop.test"))
	assert.Equal(t, int32(5), f.stock(t, p1.ID))
	assert.Equal(t, int32(3), f.stock(t, p2.ID))

	lines, err := f.store.Carts().Snapshot(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPlaceOrder_ProductVanished(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	f.addLine(t, "alice@shop.test", p1, 1)
	require.NoError(t, f.store.Products().Delete(ctx, p1.ID))

	result, err := f.checkout.PlaceOrder(ctx, "alice@shop.test")
	require.Error(t, err)
	assert.Nil(t, result)

	var vanished *ProductVanishedError
	require.ErrorAs(t, err, &vanished)
	assert.Equal(t, p1.ID, vanished.ProductID)

	assert.Equal(t, 500.0, f.balance(t, "alice@shop.test"))
}

func TestPlaceOrder_InsufficientStock_Compensates(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	p2 := f.addProduct(t, "mouse", 50, 0) // nothing left
	f.addLine(t, "alice@shop.test", p1, 2)
	f.addLine(t, "alice@shop.test", p2, 1)

	result, err := f.checkout.PlaceOrder(ctx, "alice@shop.test")
	require.Error(t, err)
	assert.Nil(t, result)

	var noStock *InsufficientStockError
	require.ErrorAs(t, err, &noStock)
	assert.Equal(t, p2.ID, noStock.ProductID)

	// Exactly as before step 4: debit credited back, any granted
	// reservation released, cart intact, journal empty.
	assert.Equal(t, 500.0, f.balance(t, "alice@shop.test"))
	assert.Equal(t, int32(5), f.stock(t, p1.ID))
	assert.Equal(t, int32(0), f.stock(t, p2.ID))

	lines, err := f.store.Carts().Snapshot(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	orders, err := f.store.Journal().OrdersByBuyer(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_PriceSnapshotIntegrity(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	f.addLine(t, "alice@shop.test", p1, 2)

	// Seller raises the price after the line was added.
	require.NoError(t, f.store.Products().UpdateField(ctx, p1.ID, "price", 999.0))

	result, err := f.checkout.PlaceOrder(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Equal(t, 200.0, result.TotalCharged)
	assert.Equal(t, 300.0, f.balance(t, "alice@shop.test"))
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	f.addBuyer(t, "Bob", "bob@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 1) // one unit for two buyers
	f.addLine(t, "alice@shop.test", p1, 1)
	f.addLine(t, "bob@shop.test", p1, 1)

	var wg sync.WaitGroup
	results := make(map[string]error, 2)
	var mu sync.Mutex
	for _, email := range []string{"alice@shop.test", "bob@shop.test"} {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := f.checkout.PlaceOrder(ctx, email)
			mu.Lock()
			results[email] = err
			mu.Unlock()
		}(email)
	}
	wg.Wait()

	var succeeded, failed int
	for email, err := range results {
		if err == nil {
			succeeded++
			assert.Equal(t, 400.0, f.balance(t, email))
			continue
		}
		failed++
		var noStock *InsufficientStockError
		require.ErrorAs(t, err, &noStock)
		assert.Equal(t, 500.0, f.balance(t, email))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int32(0), f.stock(t, p1.ID))
}

func TestPlaceOrder_BusyWhenCommitInProgress(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	f.addLine(t, "alice@shop.test", p1, 1)

	blocking := &blockingCart{
		CartRepository: f.store.Carts(),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	checkout := NewCheckoutService(
		blocking,
		f.store.Products(),
		f.store.Stock(),
		f.store.Balances(),
		f.store.Journal(),
		f.store.Commitments(),
		f.cache,
	)

	done := make(chan error, 1)
	go func() {
		_, err := checkout.PlaceOrder(ctx, "alice@shop.test")
		done <- err
	}()

	<-blocking.entered // first call is inside the exclusive section

	_, err := checkout.PlaceOrder(ctx, "alice@shop.test")
	assert.ErrorIs(t, err, ErrBusy)

	close(blocking.release)
	require.NoError(t, <-done)
}

func TestPlaceOrder_CompensatesWhenGrantRecordingFails(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 500)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	f.addLine(t, "alice@shop.test", p1, 2)

	failing := &failingCommitments{
		CommitmentRepository: f.store.Commitments(),
		addGrantedErr:        errors.New("storage unavailable"),
	}
	checkout := NewCheckoutService(
		f.store.Carts(),
		f.store.Products(),
		f.store.Stock(),
		f.store.Balances(),
		f.store.Journal(),
		failing,
		f.cache,
	)

	_, err := checkout.PlaceOrder(ctx, "alice@shop.test")
	require.Error(t, err)

	// The reservation that could not be recorded was rolled back along
	// with the debit.
	assert.Equal(t, 500.0, f.balance(t, "alice@shop.test"))
	assert.Equal(t, int32(5), f.stock(t, p1.ID))
}

func TestPlaceOrder_InsufficientBalanceWhenAbortWriteFails(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.addBuyer(t, "Alice", "alice@shop.test", 50)
	p1 := f.addProduct(t, "keyboard", 100, 5)
	f.addLine(t, "alice@shop.test", p1, 1)

	failing := &failingCommitments{
		CommitmentRepository: f.store.Commitments(),
		updateStatusErr:      errors.New("storage unavailable"),
	}
	checkout := NewCheckoutService(
		f.store.Carts(),
		f.store.Products(),
		f.store.Stock(),
		f.store.Balances(),
		f.store.Journal(),
		failing,
		f.cache,
	)

	// The buyer still gets the business outcome even when the abort
	// status cannot be written.
	_, err := checkout.PlaceOrder(ctx, "alice@shop.test")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)

	assert.Equal(t, 50.0, f.balance(t, "alice@shop.test"))
	assert.Equal(t, int32(5), f.stock(t, p1.ID))
}

func TestAppendJournal_IdempotentRetry(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	commit := &domain.Commitment{
		ID:         "commit-1",
		BuyerEmail: "alice@shop.test",
		Lines: []domain.CartLine{
			{ProductID: "p1", ProductName: "keyboard", Quantity: 2, UnitPrice: 100, SellerEmail: "seller@shop.test"},
			{ProductID: "p2", ProductName: "mouse", Quantity: 1, UnitPrice: 50, SellerEmail: "seller@shop.test"},
		},
		Total: 250,
	}

	first, err := f.checkout.appendJournal(ctx, commit)
	require.NoError(t, err)

	// Retrying after a crash mid-step must not duplicate entries.
	second, err := f.checkout.appendJournal(ctx, commit)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	orders, err := f.store.Journal().OrdersByCommit(ctx, "commit-1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	payments, err := f.store.Journal().PaymentsByCommit(ctx, "commit-1")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestAccountLocker_AcquireTimesOut(t *testing.T) {
	locker := newAccountLocker()

	require.True(t, locker.acquire("alice@shop.test", time.Millisecond))
	assert.False(t, locker.acquire("alice@shop.test", 10*time.Millisecond))

	// A different account is unaffected.
	assert.True(t, locker.acquire("bob@shop.test", time.Millisecond))

	locker.release("alice@shop.test")
	assert.True(t, locker.acquire("alice@shop.test", time.Millisecond))
}
