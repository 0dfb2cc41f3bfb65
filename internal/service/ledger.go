package service

import (
	"context"
	"fmt"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/database"
)

// LedgerService owns credit accounting outside the intake transaction:
// balance queries, purchases, refunds, and billing history.
type LedgerService struct {
	store database.Store
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store database.Store) *LedgerService {
	return &LedgerService{store: store}
}

// Reserve checks that the firm can cover cost without mutating anything.
// The authoritative re-check happens inside the intake transaction under the
// firm row lock; this front check exists to fail fast before a signed URL or
// blob round trip is wasted.
func (s *LedgerService) Reserve(ctx context.Context, f *firm.Firm, cost int64) error {
	if f.Unlimited() {
		return nil
	}
	if f.Credits < cost {
		return fmt.Errorf("balance %d below cost %d: %w", f.Credits, cost, domain.ErrInsufficientCredits)
	}
	return nil
}

// Adjust applies a manual credit movement (purchase, refund, subscription
// fee) to the caller's firm. Exactly one billing record and one audit entry
// are written with the movement.
func (s *LedgerService) Adjust(ctx context.Context, delta int64, billingType firm.BillingType, description string) (*firm.BillingRecord, error) {
	if delta == 0 {
		return nil, fmt.Errorf("credit delta must be non-zero: %w", domain.ErrValidation)
	}
	if !firm.ValidBillingType(billingType) || billingType == firm.BillingDocumentProcessing {
		return nil, fmt.Errorf("billing type %q not allowed for manual adjustment: %w", billingType, domain.ErrValidation)
	}

	return s.store.SettleCredits(ctx, database.SettleRequest{
		FirmID:      middleware.FirmIDFromContext(ctx),
		UserID:      middleware.UserIDFromContext(ctx),
		Delta:       delta,
		Type:        billingType,
		Description: description,
	})
}

// History returns the firm's billing records, newest first.
func (s *LedgerService) History(ctx context.Context, limit int) ([]firm.BillingRecord, error) {
	return s.store.ListBillingRecords(ctx, limit)
}
