package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
)

const documentColumns = `id, firm_id, user_id, file_name, original_name, file_size, mime_type, storage_id, status,
	processing_started, processing_completed, page_count, word_count, error_message, metadata, uploaded_at, updated_at`

// ListDocuments returns the caller firm's documents, newest first. A non-empty
// status narrows the list; soft-deleted documents only appear when asked for
// explicitly.
func (s *Store) ListDocuments(ctx context.Context, status document.Status, limit int) ([]document.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM documents WHERE firm_id = $1 AND status <> 'deleted' ORDER BY uploaded_at DESC LIMIT $2`, documentColumns)
	args := []any{firmFromCtx(ctx), limit}
	if status != "" {
		query = fmt.Sprintf(`SELECT %s FROM documents WHERE firm_id = $1 AND status = $3 ORDER BY uploaded_at DESC LIMIT $2`, documentColumns)
		args = append(args, string(status))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument returns one of the caller firm's documents by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 AND firm_id = $2`, documentColumns),
		id, firmFromCtx(ctx))

	d, err := scanDocument(row)
	if err != nil {
		return nil, notFoundWrap(err, "get document %s", id)
	}
	return &d, nil
}

// TransitionDocument moves a document through its state machine, enforcing
// the transition table under a row lock. It is keyed by ID alone because the
// result subscriber transitions documents on behalf of workers; callers on
// the user path authorize through GetDocument first.
func (s *Store) TransitionDocument(ctx context.Context, id string, to document.Status, fields document.TransitionFields) (*document.Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var from document.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(&from)
	if err != nil {
		return nil, notFoundWrap(err, "lock document %s", id)
	}
	if !document.CanTransition(from, to) {
		return nil, fmt.Errorf("document %s: %s -> %s: %w", id, from, to, domain.ErrInvalidTransition)
	}

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE documents SET status = $2,
		   processing_started = COALESCE($3, processing_started),
		   processing_completed = COALESCE($4, processing_completed),
		   page_count = COALESCE($5, page_count),
		   word_count = COALESCE($6, word_count),
		   error_message = COALESCE($7, error_message),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING %s`, documentColumns),
		id, string(to), fields.ProcessingStarted, fields.ProcessingCompleted,
		fields.PageCount, fields.WordCount, fields.ErrorMessage)

	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("transition document %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return &d, nil
}

// DocumentStats aggregates the caller firm's dashboard numbers. Soft-deleted
// documents are excluded from every total.
func (s *Store) DocumentStats(ctx context.Context) (*document.Stats, error) {
	fid := firmFromCtx(ctx)

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(file_size), 0), COALESCE(SUM(page_count), 0)
		 FROM documents WHERE firm_id = $1 AND status <> 'deleted' GROUP BY status`, fid)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()

	stats := &document.Stats{ByStatus: make(map[document.Status]int)}
	for rows.Next() {
		var status document.Status
		var count int
		var size, pages int64
		if err := rows.Scan(&status, &count, &size, &pages); err != nil {
			return nil, fmt.Errorf("scan document stat: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
		stats.TotalSize += size
		stats.TotalPages += pages
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM objections WHERE firm_id = $1`, fid).Scan(&stats.TotalObjections)
	if err != nil {
		return nil, fmt.Errorf("objection count: %w", err)
	}
	return stats, nil
}

func scanDocument(row scannable) (document.Document, error) {
	var d document.Document
	var metadataJSON []byte
	err := row.Scan(&d.ID, &d.FirmID, &d.UserID, &d.FileName, &d.OriginalName, &d.FileSize,
		&d.MimeType, &d.StorageID, &d.Status, &d.ProcessingStarted, &d.ProcessingCompleted,
		&d.PageCount, &d.WordCount, &d.ErrorMessage, &metadataJSON, &d.UploadedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	if metadataJSON != nil {
		var m document.Metadata
		if err := json.Unmarshal(metadataJSON, &m); err != nil {
			return d, fmt.Errorf("unmarshal metadata: %w", err)
		}
		d.Metadata = &m
	}
	return d, nil
}
