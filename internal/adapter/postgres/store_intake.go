package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/port/database"
)

// CompleteUpload commits one upload as a single transaction: it locks the
// firm row, re-checks the credit balance under the lock, registers the
// document as queued, enqueues the first processing stage, debits the firm,
// and writes the billing and audit records. Either all of it happens or none
// of it does.
func (s *Store) CompleteUpload(ctx context.Context, req database.IntakeRequest) (*database.IntakeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// Lock the firm row so concurrent uploads serialize on the balance.
	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT credits FROM firms WHERE id = $1 FOR UPDATE`, req.FirmID).Scan(&balance)
	if err != nil {
		return nil, notFoundWrap(err, "lock firm %s", req.FirmID)
	}

	unlimited := balance == firm.UnlimitedCredits
	if !unlimited && balance < req.Cost {
		return nil, fmt.Errorf("firm %s balance %d below cost %d: %w",
			req.FirmID, balance, req.Cost, domain.ErrInsufficientCredits)
	}

	var metadataJSON []byte
	if req.Doc.Metadata != nil {
		metadataJSON, err = json.Marshal(req.Doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO documents (firm_id, user_id, file_name, original_name, file_size, mime_type, storage_id, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING %s`, documentColumns),
		req.FirmID, req.UserID, req.Doc.FileName, req.Doc.OriginalName, req.Doc.FileSize,
		req.Doc.MimeType, req.Doc.StorageID, string(document.StatusQueued), metadataJSON)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	row = tx.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO jobs (document_id, firm_id, user_id, type, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING %s`, jobColumns),
		doc.ID, req.FirmID, req.UserID, string(job.TypeExtractText), string(job.StatusPending))

	j, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	// Master firms are never debited; their balance stays at the sentinel.
	after := balance
	if !unlimited {
		after = balance - req.Cost
		tag, err := tx.Exec(ctx,
			`UPDATE firms SET credits = $2, updated_at = now() WHERE id = $1`, req.FirmID, after)
		if err := execExpectOne(tag, err, "debit firm %s", req.FirmID); err != nil {
			return nil, err
		}
	}

	var rec firm.BillingRecord
	err = tx.QueryRow(ctx,
		`INSERT INTO billing_records (firm_id, user_id, document_id, type, credits_delta, balance_before, balance_after, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		req.FirmID, req.UserID, doc.ID, string(firm.BillingDocumentProcessing),
		-req.Cost, balance, after, req.Description,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert billing record: %w", err)
	}
	rec.FirmID = req.FirmID
	rec.UserID = req.UserID
	rec.DocumentID = doc.ID
	rec.Type = firm.BillingDocumentProcessing
	rec.CreditsDelta = -req.Cost
	rec.BalanceBefore = balance
	rec.BalanceAfter = after
	rec.Description = req.Description

	details, err := json.Marshal(map[string]any{
		"file_name": doc.OriginalName,
		"file_size": doc.FileSize,
		"mime_type": doc.MimeType,
		"cost":      req.Cost,
		"job_id":    j.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO audit_log (firm_id, user_id, action, resource_type, resource_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.FirmID, nullIfEmpty(req.UserID), event.ActionDocumentUploaded, "document", doc.ID, details,
	); err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upload: %w", err)
	}
	return &database.IntakeResult{Document: &doc, Job: &j, Billing: &rec}, nil
}
