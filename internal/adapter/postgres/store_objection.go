package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexweave/depoflow/internal/domain/objection"
)

const objectionColumns = `id, document_id, firm_id, job_id, category, sub_type, page_start, line_start,
	page_end, line_end, attorney, sequence_pattern, context_before, objection_text, context_after,
	response, ruling, confidence, created_at`

// CreateObjections bulk-inserts the objections detected by one job run,
// copying the firm from the document row. All rows land in one transaction;
// a partial detection result is never visible.
func (s *Store) CreateObjections(ctx context.Context, reqs []objection.CreateRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for i, r := range reqs {
		_, err := tx.Exec(ctx,
			`INSERT INTO objections (document_id, firm_id, job_id, category, sub_type, page_start, line_start,
			   page_end, line_end, attorney, sequence_pattern, context_before, objection_text, context_after,
			   response, ruling, confidence)
			 SELECT id, firm_id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
			 FROM documents WHERE id = $1`,
			r.DocumentID, r.JobID, r.Category, r.SubType, r.PageStart, r.LineStart,
			r.PageEnd, r.LineEnd, r.Attorney, string(r.SequencePattern), r.ContextBefore,
			r.ObjectionText, r.ContextAfter, r.Response, string(r.Ruling), r.Confidence)
		if err != nil {
			return 0, fmt.Errorf("insert objection %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit objections: %w", err)
	}
	return len(reqs), nil
}

// ListObjections returns the caller firm's objections, filtered and ordered
// by transcript position.
func (s *Store) ListObjections(ctx context.Context, f objection.Filter, limit int) ([]objection.Objection, error) {
	if limit <= 0 {
		limit = 200
	}

	args := []any{firmFromCtx(ctx)}
	conditions := []string{"firm_id = $1"}
	argIdx := 2

	if f.DocumentID != "" {
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", argIdx))
		args = append(args, f.DocumentID)
		argIdx++
	}
	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, f.Category)
		argIdx++
	}
	if f.SequencePattern != "" {
		conditions = append(conditions, fmt.Sprintf("sequence_pattern = $%d", argIdx))
		args = append(args, string(f.SequencePattern))
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM objections WHERE %s ORDER BY page_start ASC, line_start ASC LIMIT $%d`,
		objectionColumns, strings.Join(conditions, " AND "), argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objections: %w", err)
	}
	defer rows.Close()

	var objections []objection.Objection
	for rows.Next() {
		var o objection.Objection
		if err := rows.Scan(&o.ID, &o.DocumentID, &o.FirmID, &o.JobID, &o.Category, &o.SubType,
			&o.PageStart, &o.LineStart, &o.PageEnd, &o.LineEnd, &o.Attorney, &o.SequencePattern,
			&o.ContextBefore, &o.ObjectionText, &o.ContextAfter, &o.Response, &o.Ruling,
			&o.Confidence, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan objection: %w", err)
		}
		objections = append(objections, o)
	}
	return objections, rows.Err()
}
