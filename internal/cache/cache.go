package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_store/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, email string) ([]domain.CartLine, error)
	Set(ctx context.Context, email string, lines []domain.CartLine) error
	Delete(ctx context.Context, email string) error
}

var ErrCacheMiss = errors.New("cache miss")
