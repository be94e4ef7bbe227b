package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
)

// reserveStock attempts the conditional stock decrement for every cart
// line, in ascending product id order so commitments contending for the
// same set of products cannot starve each other. Every grant is recorded
// on the commitment before the next attempt. On the first failure, all
// prior grants are released and the debited total credited back.
func (s *CheckoutService) reserveStock(ctx context.Context, commit *domain.Commitment) error {
	sorted := make([]domain.CartLine, len(commit.Lines))
	copy(sorted, commit.Lines)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})

	for _, line := range sorted {
		if _, err := s.stock.TryReserve(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrProductNotFound) {
				if compErr := s.compensate(ctx, commit); compErr != nil {
					return compErr
				}
				return &InsufficientStockError{ProductID: line.ProductID}
			}
			return fmt.Errorf("failed to reserve %s: %w", line.ProductID, err)
		}

		granted := domain.GrantedReservation{ProductID: line.ProductID, Quantity: line.Quantity}
		commit.Granted = append(commit.Granted, granted)
		if err := s.commitments.AddGranted(ctx, commit.ID, granted); err != nil {
			// The grant is applied but not durably recorded; undo everything
			// now while this process still knows about it.
			if compErr := s.compensate(ctx, commit); compErr != nil {
				return compErr
			}
			return fmt.Errorf("failed to record reservation for %s: %w", line.ProductID, err)
		}
	}
	return nil
}
