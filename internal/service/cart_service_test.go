package service

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	store *repository.MemoryStore
	cache *mockCache
	cart  *CartService
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	mc := newMockCache()
	err := store.Accounts().Create(context.Background(), &domain.Account{
		Name:     "Alice",
		Email:    "alice@shop.test",
		Password: "secret",
		Role:     domain.RoleBuyer,
	})
	require.NoError(t, err)
	return &cartFixture{
		store: store,
		cache: mc,
		cart:  NewCartService(store.Carts(), store.Products(), mc),
	}
}

func (f *cartFixture) addProduct(t *testing.T, name string, price float64, qty int32) *domain.Product {
	t.Helper()
	product := &domain.Product{Name: name, Price: price, Quantity: qty, SellerEmail: "seller@shop.test"}
	require.NoError(t, f.store.Products().Insert(context.Background(), product))
	return product
}

func TestAddToCart_SnapshotsCatalogPrice(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p1 := f.addProduct(t, "keyboard", 100, 5)

	added, err := f.cart.AddToCart(ctx, "alice@shop.test", []AddRequest{{ProductID: p1.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.NoError(t, f.store.Products().UpdateField(ctx, p1.ID, "price", 999.0))

	lines, err := f.store.Carts().Snapshot(ctx, "alice@shop.test")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 100.0, lines[0].UnitPrice)
	assert.Equal(t, "keyboard", lines[0].ProductName)
	assert.Equal(t, "seller@shop.test", lines[0].SellerEmail)
	assert.Equal(t, int32(2), lines[0].Quantity)
}

func TestAddToCart_SkipsInvalidRequests(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p1 := f.addProduct(t, "keyboard", 100, 5)

	added, err := f.cart.AddToCart(ctx, "alice@shop.test", []AddRequest{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: p1.ID, Quantity: 0},
		{ProductID: "missing", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestAddToCart_AllInvalid(t *testing.T) {
	f := newCartFixture(t)

	_, err := f.cart.AddToCart(context.Background(), "alice@shop.test", []AddRequest{
		{ProductID: "missing", Quantity: 1},
	})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = f.cart.AddToCart(context.Background(), "alice@shop.test", nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGetCart_CacheAside(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p1 := f.addProduct(t, "keyboard", 100, 5)

	_, err := f.cart.AddToCart(ctx, "alice@shop.test", []AddRequest{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)

	lines, err := f.cart.GetCart(ctx, "alice@shop.test")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// The async cache fill runs in a goroutine; wait for it and then
	// confirm the next read is served from the cache.
	assert.Eventually(t, func() bool {
		cached, cacheErr := f.cache.Get(ctx, "alice@shop.test")
		return cacheErr == nil && len(cached) == 1
	}, time.Second, 10*time.Millisecond)

	again, err := f.cart.GetCart(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Equal(t, lines, again)
}

func TestRemoveFromCart_InvalidatesCache(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	p1 := f.addProduct(t, "keyboard", 100, 5)

	_, err := f.cart.AddToCart(ctx, "alice@shop.test", []AddRequest{{ProductID: p1.ID, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, f.cache.Set(ctx, "alice@shop.test", []domain.CartLine{{ProductID: p1.ID}}))

	require.NoError(t, f.cart.RemoveFromCart(ctx, "alice@shop.test", p1.ID))

	_, err = f.cache.Get(ctx, "alice@shop.test")
	assert.Error(t, err)

	lines, err := f.store.Carts().Snapshot(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRemoveFromCart_LineNotFound(t *testing.T) {
	f := newCartFixture(t)

	err := f.cart.RemoveFromCart(context.Background(), "alice@shop.test", "missing")
	assert.ErrorIs(t, err, repository.ErrLineNotFound)
}
