package service

import (
	"context"
	"testing"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService() (*AccountService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return NewAccountService(store.Accounts(), store.Balances()), store
}

func TestRegister_NormalizesAndDefaults(t *testing.T) {
	svc, _ := newAccountService()

	account, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "  Alice  ",
		Email:    "  Alice@Shop.Test ",
		Password: "secret",
		Role:     "Buyer",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", account.Name)
	assert.Equal(t, "alice@shop.test", account.Email)
	assert.Equal(t, domain.RoleBuyer, account.Role)
	assert.Equal(t, 0.0, account.Balance)
	assert.NotNil(t, account.Cart)
	assert.Empty(t, account.Cart)
	assert.NotEmpty(t, account.ID)
}

func TestRegister_InvalidRole(t *testing.T) {
	svc, _ := newAccountService()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:  "Alice",
		Email: "alice@shop.test",
		Role:  "admin",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegister_EmailTaken(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@shop.test", Role: domain.RoleBuyer})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Alice Two", Email: "ALICE@shop.test", Role: domain.RoleSeller})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@shop.test", Password: "secret", Role: domain.RoleSeller,
	})
	require.NoError(t, err)

	role, err := svc.Login(ctx, "alice@shop.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, role)

	_, err = svc.Login(ctx, "alice@shop.test", "wrong")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestCheckUserAndResolve(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@shop.test", Role: domain.RoleBuyer})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Name: "alice", Email: "alice.s@shop.test", Role: domain.RoleSeller})
	require.NoError(t, err)

	// Name matching is case-insensitive.
	count, err := svc.CheckUser(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	buyer, err := svc.Resolve(ctx, "alice", domain.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, "alice@shop.test", buyer.Email)

	seller, err := svc.Resolve(ctx, "alice", domain.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, "alice.s@shop.test", seller.Email)

	_, err = svc.Resolve(ctx, "bob", domain.RoleBuyer)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestUpdateDetails(t *testing.T) {
	svc, store := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@shop.test", Password: "secret",
		Role: domain.RoleBuyer, Phone: "111", Address: "Old street 1",
	})
	require.NoError(t, err)

	// Wrong password is rejected before anything changes.
	err = svc.UpdateDetails(ctx, "alice@shop.test", "wrong", "Mallory", "", "")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	require.NoError(t, svc.UpdateDetails(ctx, "Alice@Shop.Test", "secret", "Alice Smith", "222", ""))

	account, err := store.Accounts().FindByEmail(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", account.Name)
	assert.Equal(t, "222", account.Phone)
	// Empty fields keep their previous value.
	assert.Equal(t, "Old street 1", account.Address)
}

func TestAddBalance(t *testing.T) {
	svc, _ := newAccountService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@shop.test", Role: domain.RoleBuyer})
	require.NoError(t, err)

	balance, err := svc.AddBalance(ctx, "alice@shop.test", 150)
	require.NoError(t, err)
	assert.Equal(t, 150.0, balance)

	balance, err = svc.GetBalance(ctx, "alice@shop.test")
	require.NoError(t, err)
	assert.Equal(t, 150.0, balance)

	_, err = svc.AddBalance(ctx, "alice@shop.test", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCatalogService(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewCatalogService(store.Products())
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, "Seller@Shop.Test", NewProduct{Name: " keyboard ", Price: 100, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "keyboard", product.Name)
	assert.Equal(t, "seller@shop.test", product.SellerEmail)
	assert.NotEmpty(t, product.ID)

	_, err = svc.AddProduct(ctx, "seller@shop.test", NewProduct{Name: "bad", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	bulk, err := svc.AddProducts(ctx, "seller@shop.test", []NewProduct{
		{Name: "mouse", Price: 50, Quantity: 3},
		{Name: "monitor", Price: 300, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Len(t, bulk, 2)

	all, err := svc.AllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.SellerProducts(ctx, "seller@shop.test")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	require.NoError(t, svc.UpdateProductField(ctx, product.ID, "Price", "120.5"))
	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.5, got.Price)

	assert.ErrorIs(t, svc.UpdateProductField(ctx, product.ID, "price", "-3"), ErrInvalidAmount)
	assert.ErrorIs(t, svc.UpdateProductField(ctx, product.ID, "quantity", "oops"), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.UpdateProductField(ctx, product.ID, "seller_email", "x"), ErrInvalidField)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = svc.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}
