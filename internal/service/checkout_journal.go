package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_store/internal/domain"
)

// appendJournal writes one order and one payment record per cart line,
// all tagged with the commitment id. Appends are idempotent on that tag,
// so a retry after a crash mid-loop cannot duplicate entries.
func (s *CheckoutService) appendJournal(ctx context.Context, commit *domain.Commitment) ([]string, error) {
	orderIDs := make([]string, 0, len(commit.Lines))
	for i, line := range commit.Lines {
		order := &domain.Order{
			CommitID:    commit.ID,
			Line:        int32(i),
			BuyerEmail:  commit.BuyerEmail,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			TotalPrice:  line.Subtotal(),
		}
		orderID, err := s.journal.AppendOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("failed to append order for %s: %w", line.ProductID, err)
		}
		orderIDs = append(orderIDs, orderID)

		payment := &domain.Payment{
			CommitID:    commit.ID,
			Line:        int32(i),
			ProductID:   line.ProductID,
			BuyerEmail:  commit.BuyerEmail,
			SellerEmail: line.SellerEmail,
			Amount:      line.Subtotal(),
		}
		if _, err := s.journal.AppendPayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to append payment for %s: %w", line.ProductID, err)
		}
	}
	return orderIDs, nil
}
