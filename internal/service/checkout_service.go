package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"github.com/google/uuid"
)

// DefaultAcquireWait bounds how long a PlaceOrder call waits for the
// per-account section before failing with ErrBusy.
const DefaultAcquireWait = 250 * time.Millisecond

type PlaceOrderResult struct {
	CommitID     string
	TotalCharged float64
	LineCount    int
	OrderIDs     []string
}

// CheckoutService is the commitment orchestrator. It owns no persistent
// state itself; it drives the cart, ledgers, journal and commitment log
// through their atomic primitives and compensates on partial failure.
type CheckoutService struct {
	cart        repository.CartRepository
	products    repository.ProductRepository
	stock       repository.StockLedger
	balance     repository.BalanceLedger
	journal     repository.JournalRepository
	commitments repository.CommitmentRepository
	cache       cache.CartCache
	locker      *accountLocker
	acquireWait time.Duration
}

func NewCheckoutService(
	cart repository.CartRepository,
	products repository.ProductRepository,
	stock repository.StockLedger,
	balance repository.BalanceLedger,
	journal repository.JournalRepository,
	commitments repository.CommitmentRepository,
	cartCache cache.CartCache,
) *CheckoutService {
	return &CheckoutService{
		cart:        cart,
		products:    products,
		stock:       stock,
		balance:     balance,
		journal:     journal,
		commitments: commitments,
		cache:       cartCache,
		locker:      newAccountLocker(),
		acquireWait: DefaultAcquireWait,
	}
}

// PlaceOrder converts the buyer's cart into orders, payments and ledger
// mutations, exactly once. On any business failure every mutation already
// applied is compensated before the error is returned.
func (s *CheckoutService) PlaceOrder(ctx context.Context, buyerEmail string) (*PlaceOrderResult, error) {
	if !s.locker.acquire(buyerEmail, s.acquireWait) {
		return nil, ErrBusy
	}
	defer s.locker.release(buyerEmail)

	lines, err := s.cart.Snapshot(ctx, buyerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Total uses the add-time price snapshot, not a live re-lookup.
	var total float64
	for _, line := range lines {
		total += line.Subtotal()
	}

	// All referenced products must still exist before anything mutates.
	for _, line := range lines {
		if _, findErr := s.products.FindByID(ctx, line.ProductID); findErr != nil {
			if errors.Is(findErr, repository.ErrProductNotFound) {
				return nil, &ProductVanishedError{ProductID: line.ProductID}
			}
			return nil, fmt.Errorf("failed to verify product %s: %w", line.ProductID, findErr)
		}
	}

	commit := &domain.Commitment{
		ID:         uuid.New().String(),
		BuyerEmail: buyerEmail,
		Status:     domain.CommitmentStatusStarted,
		Lines:      lines,
		Total:      total,
	}
	if err := s.commitments.Create(ctx, commit); err != nil {
		return nil, err
	}

	if _, debitErr := s.balance.TryDebit(ctx, buyerEmail, total); debitErr != nil {
		if errors.Is(debitErr, repository.ErrInsufficientBalance) {
			// Nothing was mutated; the record just needs its terminal status.
			// If even that write fails the sweep picks the record up later.
			if trErr := s.transition(ctx, commit, domain.CommitmentStatusAborted); trErr != nil {
				log.Printf("commitment %s: failed to abort: %v", commit.ID, trErr)
			}
			return nil, repository.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to debit balance: %w", debitErr)
	}
	if err := s.transition(ctx, commit, domain.CommitmentStatusBalanceDebited); err != nil {
		return nil, err
	}

	if err := s.reserveStock(ctx, commit); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, commit, domain.CommitmentStatusAllReserved); err != nil {
		return nil, err
	}

	orderIDs, err := s.appendJournal(ctx, commit)
	if err != nil {
		// Journal appends are idempotent on the commit id; the recovery
		// sweep retries them, it never rolls them back.
		return nil, err
	}
	if err := s.transition(ctx, commit, domain.CommitmentStatusJournalAppended); err != nil {
		return nil, err
	}

	if err := s.cart.Clear(ctx, buyerEmail); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	if err := s.transition(ctx, commit, domain.CommitmentStatusCommitted); err != nil {
		return nil, err
	}

	s.invalidateCartCache(buyerEmail)
	log.Printf("commitment %s committed for %s: total = %.2f, lines = %d", commit.ID, buyerEmail, total, len(lines))

	return &PlaceOrderResult{
		CommitID:     commit.ID,
		TotalCharged: total,
		LineCount:    len(lines),
		OrderIDs:     orderIDs,
	}, nil
}

func (s *CheckoutService) transition(ctx context.Context, commit *domain.Commitment, to domain.CommitmentStatus) error {
	if !domain.CanTransitionTo(commit.Status, to) {
		return ErrIllegalTransition
	}
	if err := s.commitments.UpdateStatus(ctx, commit.ID, to); err != nil {
		return err
	}
	commit.Status = to
	return nil
}

func (s *CheckoutService) invalidateCartCache(email string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, email); err != nil {
		log.Printf("cart cache invalidate error: %v", err)
	}
}
