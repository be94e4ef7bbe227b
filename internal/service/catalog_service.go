package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
)

type NewProduct struct {
	Name     string
	Price    float64
	Quantity int32
}

// CatalogService is the seller-management surface over the inventory
// collection. Commit-time stock mutation goes through the StockLedger,
// never through here.
type CatalogService struct {
	repo repository.ProductRepository
}

func NewCatalogService(repo repository.ProductRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) AddProduct(ctx context.Context, sellerEmail string, p NewProduct) (*domain.Product, error) {
	if p.Quantity < 0 || p.Price < 0 {
		return nil, ErrInvalidAmount
	}
	product := &domain.Product{
		Name:        strings.TrimSpace(p.Name),
		Price:       p.Price,
		Quantity:    p.Quantity,
		SellerEmail: strings.ToLower(strings.TrimSpace(sellerEmail)),
	}
	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) AddProducts(ctx context.Context, sellerEmail string, items []NewProduct) ([]*domain.Product, error) {
	if len(items) == 0 {
		return nil, ErrInvalidAmount
	}
	seller := strings.ToLower(strings.TrimSpace(sellerEmail))
	products := make([]*domain.Product, len(items))
	for i, p := range items {
		if p.Quantity < 0 || p.Price < 0 {
			return nil, ErrInvalidAmount
		}
		products[i] = &domain.Product{
			Name:        strings.TrimSpace(p.Name),
			Price:       p.Price,
			Quantity:    p.Quantity,
			SellerEmail: seller,
		}
	}
	if err := s.repo.InsertMany(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProductField sets one whitelisted field from its string form, the
// way the seller API takes it.
func (s *CatalogService) UpdateProductField(ctx context.Context, productID, field, value string) error {
	field = strings.ToLower(strings.TrimSpace(field))
	var parsed interface{}
	switch field {
	case "name":
		parsed = strings.TrimSpace(value)
	case "price":
		price, err := strconv.ParseFloat(value, 64)
		if err != nil || price < 0 {
			return ErrInvalidAmount
		}
		parsed = price
	case "quantity":
		qty, err := strconv.ParseInt(value, 10, 32)
		if err != nil || qty < 0 {
			return ErrInvalidQuantity
		}
		parsed = int32(qty)
	default:
		return ErrInvalidField
	}

	return s.repo.UpdateField(ctx, productID, field, parsed)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	return s.repo.Delete(ctx, productID)
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, productID)
}

func (s *CatalogService) AllProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.FindAll(ctx)
}

func (s *CatalogService) SellerProducts(ctx context.Context, sellerEmail string) ([]*domain.Product, error) {
	return s.repo.FindBySeller(ctx, strings.ToLower(strings.TrimSpace(sellerEmail)))
}
