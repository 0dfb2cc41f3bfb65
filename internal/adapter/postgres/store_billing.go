package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/port/database"
)

// SettleCredits applies one credit movement under a firm row lock and writes
// the billing and audit records in the same transaction. Master firms are
// never mutated: the movement is recorded against the pinned sentinel
// balance. A debit larger than the balance clamps the result at zero; the
// billing record carries the requested delta alongside the clamped
// before/after balances.
func (s *Store) SettleCredits(ctx context.Context, req database.SettleRequest) (*firm.BillingRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT credits FROM firms WHERE id = $1 FOR UPDATE`, req.FirmID).Scan(&balance)
	if err != nil {
		return nil, notFoundWrap(err, "lock firm %s", req.FirmID)
	}

	after := balance
	if balance != firm.UnlimitedCredits {
		after = balance + req.Delta
		if after < 0 {
			after = 0
		}
		tag, err := tx.Exec(ctx,
			`UPDATE firms SET credits = $2, updated_at = now() WHERE id = $1`, req.FirmID, after)
		if err := execExpectOne(tag, err, "settle firm %s", req.FirmID); err != nil {
			return nil, err
		}
	}

	rec := firm.BillingRecord{
		FirmID:        req.FirmID,
		UserID:        req.UserID,
		DocumentID:    req.DocumentID,
		Type:          req.Type,
		CreditsDelta:  req.Delta,
		BalanceBefore: balance,
		BalanceAfter:  after,
		Description:   req.Description,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO billing_records (firm_id, user_id, document_id, type, credits_delta, balance_before, balance_after, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		req.FirmID, nullIfEmpty(req.UserID), nullIfEmpty(req.DocumentID), string(req.Type),
		req.Delta, balance, after, req.Description,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert billing record: %w", err)
	}

	details, err := json.Marshal(map[string]any{
		"type":           string(req.Type),
		"credits_delta":  req.Delta,
		"balance_before": balance,
		"balance_after":  after,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO audit_log (firm_id, user_id, action, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.FirmID, nullIfEmpty(req.UserID), event.ActionCreditsUpdated, "firm", req.FirmID, details,
	); err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settle: %w", err)
	}
	return &rec, nil
}

// ListBillingRecords returns the caller firm's billing history, newest first.
func (s *Store) ListBillingRecords(ctx context.Context, limit int) ([]firm.BillingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, firm_id, COALESCE(user_id::text, ''), COALESCE(document_id::text, ''), type,
		   credits_delta, balance_before, balance_after, description, created_at
		 FROM billing_records WHERE firm_id = $1 ORDER BY created_at DESC LIMIT $2`,
		firmFromCtx(ctx), limit)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	var records []firm.BillingRecord
	for rows.Next() {
		var r firm.BillingRecord
		if err := rows.Scan(&r.ID, &r.FirmID, &r.UserID, &r.DocumentID, &r.Type, &r.CreditsDelta,
			&r.BalanceBefore, &r.BalanceAfter, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
