package firm

import "time"

// BillingType classifies a billing record.
type BillingType string

const (
	BillingDocumentProcessing BillingType = "document_processing"
	BillingCreditPurchase     BillingType = "credit_purchase"
	BillingSubscriptionFee    BillingType = "subscription_fee"
	BillingRefund             BillingType = "refund"
)

// ValidBillingType reports whether t is a known billing type.
func ValidBillingType(t BillingType) bool {
	switch t {
	case BillingDocumentProcessing, BillingCreditPurchase, BillingSubscriptionFee, BillingRefund:
		return true
	}
	return false
}

// BillingRecord is the immutable record of a single credit movement.
// Exactly one record is written per ledger settle; the before/after balances
// make the ledger reconstructible without replaying every settle.
type BillingRecord struct {
	ID            string      `json:"id"`
	FirmID        string      `json:"firm_id"`
	UserID        string      `json:"user_id"`
	DocumentID    string      `json:"document_id,omitempty"`
	Type          BillingType `json:"type"`
	CreditsDelta  int64       `json:"credits_delta"`
	BalanceBefore int64       `json:"balance_before"`
	BalanceAfter  int64       `json:"balance_after"`
	Description   string      `json:"description"`
	CreatedAt     time.Time   `json:"created_at"`
}
