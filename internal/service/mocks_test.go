package service

import (
	"context"
	"sync"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
)

// mockCache implements cache.CartCache in memory.
type mockCache struct {
	m     sync.RWMutex
	carts map[string][]domain.CartLine
	err   error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string][]domain.CartLine)}
}

func (m *mockCache) Get(_ context.Context, email string) ([]domain.CartLine, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	lines, ok := m.carts[email]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (m *mockCache) Set(_ context.Context, email string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[email] = lines
	return nil
}

func (m *mockCache) Delete(_ context.Context, email string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, email)
	return nil
}

// blockingCart wraps a CartRepository so a test can hold PlaceOrder
// inside the per-account section while another call races it.
type blockingCart struct {
	repository.CartRepository
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCart) Snapshot(ctx context.Context, email string) ([]domain.CartLine, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.CartRepository.Snapshot(ctx, email)
}

// failingCommitments injects storage errors into commitment writes.
type failingCommitments struct {
	repository.CommitmentRepository
	addGrantedErr   error
	updateStatusErr error
}

func (f *failingCommitments) AddGranted(ctx context.Context, id string, granted domain.GrantedReservation) error {
	if f.addGrantedErr != nil {
		return f.addGrantedErr
	}
	return f.CommitmentRepository.AddGranted(ctx, id, granted)
}

func (f *failingCommitments) UpdateStatus(ctx context.Context, id string, status domain.CommitmentStatus) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	return f.CommitmentRepository.UpdateStatus(ctx, id, status)
}
