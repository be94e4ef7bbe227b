package service

import (
	"context"
	"fmt"
	"log"

	"github.com/fjod/go_store/internal/domain"
)

// compensate reverses everything a partially-failed commitment has
// applied: every granted reservation is released, in reverse grant order,
// and the debited total is credited back. The commitment stays in
// COMPENSATING if any step here fails, so the recovery sweep can finish
// the cleanup from the recorded grants.
func (s *CheckoutService) compensate(ctx context.Context, commit *domain.Commitment) error {
	if err := s.transition(ctx, commit, domain.CommitmentStatusCompensating); err != nil {
		return err
	}

	for i := len(commit.Granted) - 1; i >= 0; i-- {
		granted := commit.Granted[i]
		if err := s.stock.Release(ctx, granted.ProductID, granted.Quantity); err != nil {
			log.Printf("commitment %s: failed to release %d of %s: %v", commit.ID, granted.Quantity, granted.ProductID, err)
			return fmt.Errorf("compensation failed releasing %s: %w", granted.ProductID, err)
		}
	}

	if _, err := s.balance.Credit(ctx, commit.BuyerEmail, commit.Total); err != nil {
		log.Printf("commitment %s: failed to credit back %.2f to %s: %v", commit.ID, commit.Total, commit.BuyerEmail, err)
		return fmt.Errorf("compensation failed crediting %s: %w", commit.BuyerEmail, err)
	}

	return s.transition(ctx, commit, domain.CommitmentStatusAborted)
}
