package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/job"
)

const jobColumns = `id, document_id, firm_id, user_id, type, status, progress, retry_count,
	next_retry_at, started_at, completed_at, error_message, result, created_at, updated_at`

// EnqueueJob creates a pending job for a document, copying the firm and user
// from the document row so worker queries never need a join.
func (s *Store) EnqueueJob(ctx context.Context, documentID, userID string, t job.Type) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO jobs (document_id, firm_id, user_id, type, status)
		 SELECT id, firm_id, $2, $3, $4 FROM documents WHERE id = $1
		 RETURNING %s`, jobColumns),
		documentID, userID, string(t), string(job.StatusPending))

	j, err := scanJob(row)
	if err != nil {
		return nil, notFoundWrap(err, "enqueue %s job for document %s", t, documentID)
	}
	return &j, nil
}

// GetJob returns a job by ID. Jobs are keyed by ID alone: workers are system
// principals that act across firms.
func (s *Store) GetJob(ctx context.Context, id string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns), id)

	j, err := scanJob(row)
	if err != nil {
		return nil, notFoundWrap(err, "get job %s", id)
	}
	return &j, nil
}

// ListJobsByDocument returns the jobs for one of the caller firm's documents,
// oldest first so the stage chain reads in order.
func (s *Store) ListJobsByDocument(ctx context.Context, documentID string) ([]job.Job, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM jobs WHERE document_id = $1 AND firm_id = $2 ORDER BY created_at ASC`, jobColumns),
		documentID, firmFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list jobs for document %s: %w", documentID, err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListPendingJobs returns claimable jobs: pending, with no retry hold or a
// hold that has expired. Oldest first so no job starves.
func (s *Store) ListPendingJobs(ctx context.Context, now time.Time, limit int) ([]job.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM jobs
		 WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
		 ORDER BY created_at ASC LIMIT $3`, jobColumns),
		string(job.StatusPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob atomically moves a pending job to running. The status guard in the
// UPDATE is what makes concurrent claims safe: exactly one worker's statement
// matches the row, every other claimer gets ErrAlreadyClaimed.
func (s *Store) ClaimJob(ctx context.Context, id string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET status = $2, started_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING %s`, jobColumns),
		id, string(job.StatusRunning), string(job.StatusPending))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.claimConflict(ctx, id)
		}
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}
	return &j, nil
}

// claimConflict distinguishes a lost claim race from a missing job.
func (s *Store) claimConflict(ctx context.Context, id string) error {
	var status job.Status
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return notFoundWrap(err, "claim job %s", id)
	}
	return fmt.Errorf("claim job %s in status %s: %w", id, status, domain.ErrAlreadyClaimed)
}

// UpdateJobProgress records worker progress on a running job.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET progress = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING %s`, jobColumns),
		id, progress, string(job.StatusRunning))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, id, job.StatusRunning)
		}
		return nil, fmt.Errorf("update job progress %s: %w", id, err)
	}
	return &j, nil
}

// CompleteJob finishes a running job with the worker's result. Page and word
// counts reported by a stage land on the document row in the same
// transaction; document status transitions and stage chaining stay with the
// job service.
func (s *Store) CompleteJob(ctx context.Context, id string, res job.CompleteResult) (*job.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET status = $2, progress = 100, result = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $4
		 RETURNING %s`, jobColumns),
		id, string(job.StatusCompleted), res.Result, string(job.StatusRunning))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, id, job.StatusRunning)
		}
		return nil, fmt.Errorf("complete job %s: %w", id, err)
	}

	if res.PageCount > 0 || res.WordCount > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET page_count = GREATEST(page_count, $2), word_count = GREATEST(word_count, $3), updated_at = now()
			 WHERE id = $1`,
			j.DocumentID, res.PageCount, res.WordCount); err != nil {
			return nil, fmt.Errorf("record document counts %s: %w", j.DocumentID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return &j, nil
}

// RetryJob returns a failed attempt to the pending pool with a backoff hold.
func (s *Store) RetryJob(ctx context.Context, id, errMsg string, nextRetryAt time.Time) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET status = $2, retry_count = retry_count + 1, next_retry_at = $3,
		   error_message = $4, progress = 0, started_at = NULL, updated_at = now()
		 WHERE id = $1 AND status = $5
		 RETURNING %s`, jobColumns),
		id, string(job.StatusPending), nextRetryAt, errMsg, string(job.StatusRunning))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, id, job.StatusRunning)
		}
		return nil, fmt.Errorf("retry job %s: %w", id, err)
	}
	return &j, nil
}

// FailJobTerminal marks a job failed for good and cascades the failure to its
// document in the same transaction, so the two rows can never disagree.
func (s *Store) FailJobTerminal(ctx context.Context, id, errMsg string) (*job.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET status = $2, error_message = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $4
		 RETURNING %s`, jobColumns),
		id, string(job.StatusFailed), errMsg, string(job.StatusRunning))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, id, job.StatusRunning)
		}
		return nil, fmt.Errorf("fail job %s: %w", id, err)
	}

	// The document is normally in processing here, but stays queued when the
	// transition at claim failed transiently. Zero rows means it already
	// reached a terminal state; that must not block the job update.
	_, err = tx.Exec(ctx,
		`UPDATE documents SET status = $2, error_message = $3, processing_completed = now(), updated_at = now()
		 WHERE id = $1 AND status IN ($4, $5)`,
		j.DocumentID, string(document.StatusFailed), errMsg,
		string(document.StatusQueued), string(document.StatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("fail document %s: %w", j.DocumentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit terminal failure: %w", err)
	}
	return &j, nil
}

// CancelJob cancels a pending or running job and fails its document in the
// same transaction. Stages run one at a time, so cancelling the active one
// halts the chain; failing the document gives it a terminal state it can be
// deleted from.
func (s *Store) CancelJob(ctx context.Context, id string) (*job.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE jobs SET status = $2, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status IN ($3, $4)
		 RETURNING %s`, jobColumns),
		id, string(job.StatusCancelled), string(job.StatusPending), string(job.StatusRunning))

	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionConflict(ctx, id, job.StatusPending)
		}
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE documents SET status = $2, error_message = $3, processing_completed = now(), updated_at = now()
		 WHERE id = $1 AND status IN ($4, $5)`,
		j.DocumentID, string(document.StatusFailed), "processing cancelled",
		string(document.StatusQueued), string(document.StatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("fail document %s on cancel: %w", j.DocumentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return &j, nil
}

// transitionConflict distinguishes an illegal transition from a missing job.
func (s *Store) transitionConflict(ctx context.Context, id string, want job.Status) error {
	var status job.Status
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return notFoundWrap(err, "job %s", id)
	}
	return fmt.Errorf("job %s in status %s, want %s: %w", id, status, want, domain.ErrInvalidTransition)
}

func scanJob(row scannable) (job.Job, error) {
	var j job.Job
	err := row.Scan(&j.ID, &j.DocumentID, &j.FirmID, &j.UserID, &j.Type, &j.Status, &j.Progress,
		&j.RetryCount, &j.NextRetryAt, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.Result,
		&j.CreatedAt, &j.UpdatedAt)
	return j, err
}
