package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"golang.org/x/sync/singleflight"
)

// AddRequest is one product/quantity pair a buyer wants in the cart.
type AddRequest struct {
	ProductID string
	Quantity  int32
}

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cartCache cache.CartCache) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cartCache,
	}
}

func (s *CartService) GetCart(ctx context.Context, email string) ([]domain.CartLine, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(email, func() (interface{}, error) {

		lines, err := s.cache.Get(ctx, email)
		if err == nil {
			return lines, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		lines, errGet := s.repo.Snapshot(ctx, email)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), email, lines)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return lines, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.CartLine), nil
}

// AddToCart validates each request against the live catalog and appends
// the valid ones with the unit price snapshotted now. Lines that
// reference a missing product or a non-positive quantity are skipped;
// the number of lines actually added is returned.
func (s *CartService) AddToCart(ctx context.Context, email string, requests []AddRequest) (int, error) {
	if len(requests) == 0 {
		return 0, ErrInvalidQuantity
	}

	now := time.Now()
	lines := make([]domain.CartLine, 0, len(requests))
	for _, req := range requests {
		if req.Quantity <= 0 {
			continue
		}
		product, err := s.products.FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return 0, err
		}
		lines = append(lines, domain.CartLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    req.Quantity,
			UnitPrice:   product.Price,
			SellerEmail: product.SellerEmail,
			AddedAt:     now,
		})
	}

	if len(lines) == 0 {
		return 0, repository.ErrProductNotFound
	}

	if err := s.repo.AddLines(ctx, email, lines); err != nil {
		log.Printf("repo add lines error: %v", err)
		return 0, err
	}

	s.invalidateCache(email)
	return len(lines), nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, email string, productID string) error {
	if err := s.repo.RemoveLine(ctx, email, productID); err != nil {
		if !errors.Is(err, repository.ErrLineNotFound) {
			log.Printf("repo remove line error: %v", err)
		}
		return err
	}

	s.invalidateCache(email)
	return nil
}

func (s *CartService) invalidateCache(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, email); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
