package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexweave/depoflow/internal/adapter/otel"
	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/database"
	"github.com/lexweave/depoflow/internal/port/messagequeue"
)

// RetryPolicy caps retries and shapes the backoff between attempts.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// JobService handles the worker-facing job lifecycle: claim, progress,
// completion with stage chaining, failure with retry budget, and
// cancellation. Workers are system principals keyed by job ID; audit entries
// on this path carry the firm copied from the job row.
type JobService struct {
	store   database.Store
	queue   messagequeue.Queue
	metrics *otel.Metrics
	policy  RetryPolicy
}

// NewJobService creates a new JobService. metrics may be nil when telemetry
// is disabled.
func NewJobService(store database.Store, queue messagequeue.Queue, metrics *otel.Metrics, policy RetryPolicy) *JobService {
	return &JobService{store: store, queue: queue, metrics: metrics, policy: policy}
}

// Get returns a job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*job.Job, error) {
	return s.store.GetJob(ctx, id)
}

// Pending returns claimable jobs for polling workers.
func (s *JobService) Pending(ctx context.Context, limit int) ([]job.Job, error) {
	return s.store.ListPendingJobs(ctx, time.Now(), limit)
}

// Claim atomically moves a pending job to running for the calling worker.
// On the first stage it also moves the document into processing.
func (s *JobService) Claim(ctx context.Context, id string) (*job.Job, error) {
	j, err := s.store.ClaimJob(ctx, id)
	if err != nil {
		return nil, err
	}

	// The document enters processing on the first claimed stage; later
	// stages find it there already and the transition is skipped.
	now := time.Now()
	_, err = s.store.TransitionDocument(ctx, j.DocumentID, document.StatusProcessing,
		document.TransitionFields{ProcessingStarted: &now})
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		slog.Error("document transition on claim failed", "document_id", j.DocumentID, "error", err)
	}

	s.audit(ctx, j, event.ActionJobClaimed, nil)
	return j, nil
}

// Progress records a running worker's progress percentage.
func (s *JobService) Progress(ctx context.Context, id string, progress int) (*job.Job, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("progress %d out of range: %w", progress, domain.ErrValidation)
	}
	return s.store.UpdateJobProgress(ctx, id, progress)
}

// Complete finishes a running job and advances the pipeline: intermediate
// stages chain the next job; the final stage moves the document to
// completed.
func (s *JobService) Complete(ctx context.Context, id string, res job.CompleteResult) (*job.Job, error) {
	j, err := s.store.CompleteJob(ctx, id, res)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.JobsCompleted.Add(ctx, 1)
		if j.StartedAt != nil && j.CompletedAt != nil {
			s.metrics.JobDuration.Record(ctx, j.CompletedAt.Sub(*j.StartedAt).Seconds())
		}
	}
	s.audit(ctx, j, event.ActionJobCompleted, map[string]any{"type": string(j.Type)})

	if next := j.Type.Next(); next != "" {
		return j, s.chainNext(ctx, j, next)
	}

	now := time.Now()
	if _, err := s.store.TransitionDocument(ctx, j.DocumentID, document.StatusCompleted,
		document.TransitionFields{ProcessingCompleted: &now}); err != nil {
		return j, fmt.Errorf("complete document %s: %w", j.DocumentID, err)
	}
	return j, nil
}

// chainNext enqueues and announces the stage after a completed one.
func (s *JobService) chainNext(ctx context.Context, done *job.Job, next job.Type) error {
	nj, err := s.store.EnqueueJob(ctx, done.DocumentID, done.UserID, next)
	if err != nil {
		return fmt.Errorf("chain %s after %s: %w", next, done.Type, err)
	}
	s.audit(ctx, nj, event.ActionJobEnqueued, map[string]any{"after": string(done.Type)})

	payload, err := json.Marshal(messagequeue.JobCreatedPayload{
		JobID:      nj.ID,
		DocumentID: nj.DocumentID,
		FirmID:     nj.FirmID,
		Type:       string(nj.Type),
	})
	if err != nil {
		return fmt.Errorf("marshal chained job payload: %w", err)
	}
	subject := messagequeue.SubjectJobDispatch + "." + string(next)
	if err := s.queue.Publish(ctx, subject, payload); err != nil {
		slog.Error("failed to publish chained job", "subject", subject, "job_id", nj.ID, "error", err)
	}
	return nil
}

// Fail records a worker failure. While the retry budget lasts the job goes
// back to pending with an exponential backoff hold; once exhausted it fails
// terminally and the document fails with it. The budget counts failures, so
// with MaxRetries n the nth failure is the terminal one.
func (s *JobService) Fail(ctx context.Context, id, errMsg string) (*job.Job, error) {
	current, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.RetryCount+1 < s.policy.MaxRetries {
		delay := job.RetryDelay(s.policy.Base, s.policy.Max, current.RetryCount)
		j, err := s.store.RetryJob(ctx, id, errMsg, time.Now().Add(delay))
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.JobsRetried.Add(ctx, 1)
		}
		s.audit(ctx, j, event.ActionJobFailed, map[string]any{
			"error":       errMsg,
			"terminal":    false,
			"retry_count": j.RetryCount,
		})
		return j, nil
	}

	j, err := s.store.FailJobTerminal(ctx, id, errMsg)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.JobsFailed.Add(ctx, 1)
	}
	s.audit(ctx, j, event.ActionJobFailed, map[string]any{
		"error":       errMsg,
		"terminal":    true,
		"retry_count": j.RetryCount,
	})
	return j, nil
}

// Cancel cancels one of the caller firm's pending or running jobs, which
// halts the stage chain and fails the document so it stays deletable.
// Running workers get an advisory broadcast; cancellation does not refund
// credits.
func (s *JobService) Cancel(ctx context.Context, id string) (*job.Job, error) {
	current, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if fid := middleware.FirmIDFromContext(ctx); fid != "" && current.FirmID != fid {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}

	j, err := s.store.CancelJob(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, j, event.ActionJobCancelled, nil)

	payload, err := json.Marshal(messagequeue.JobCancelPayload{JobID: j.ID})
	if err == nil {
		if pubErr := s.queue.Publish(ctx, messagequeue.SubjectJobCancel, payload); pubErr != nil {
			slog.Error("failed to publish cancel", "job_id", j.ID, "error", pubErr)
		}
	}
	return j, nil
}

// SubscribeResults wires the NATS result and progress subjects into the job
// lifecycle, for workers that report over the queue instead of the HTTP
// callback. The returned function cancels both subscriptions.
func (s *JobService) SubscribeResults(ctx context.Context) (func(), error) {
	cancelResult, err := s.queue.Subscribe(ctx, messagequeue.SubjectJobResult, s.handleResult)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectJobResult, err)
	}
	cancelProgress, err := s.queue.Subscribe(ctx, messagequeue.SubjectJobProgress, s.handleProgress)
	if err != nil {
		cancelResult()
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectJobProgress, err)
	}
	return func() {
		cancelResult()
		cancelProgress()
	}, nil
}

func (s *JobService) handleResult(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	var p messagequeue.JobResultPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal result payload: %w", err)
	}

	switch job.Status(p.Status) {
	case job.StatusCompleted:
		_, err := s.Complete(ctx, p.JobID, job.CompleteResult{
			PageCount: p.PageCount,
			WordCount: p.WordCount,
			Result:    p.Result,
		})
		return err
	case job.StatusFailed:
		_, err := s.Fail(ctx, p.JobID, p.Error)
		return err
	default:
		return fmt.Errorf("unexpected result status %q for job %s", p.Status, p.JobID)
	}
}

func (s *JobService) handleProgress(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	var p messagequeue.JobProgressPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal progress payload: %w", err)
	}
	_, err := s.Progress(ctx, p.JobID, p.Progress)
	return err
}

// audit appends a job lifecycle entry, logging rather than failing the
// operation when the append itself errors.
func (s *JobService) audit(ctx context.Context, j *job.Job, action string, extra map[string]any) {
	var details []byte
	if extra != nil {
		details, _ = json.Marshal(extra)
	}
	if err := s.store.AppendAudit(ctx, &event.AuditEntry{
		FirmID:       j.FirmID,
		UserID:       middleware.UserIDFromContext(ctx),
		Action:       action,
		ResourceType: "job",
		ResourceID:   j.ID,
		Details:      details,
	}); err != nil {
		slog.Error("audit append failed", "action", action, "job_id", j.ID, "error", err)
	}
}
