package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/domain/objection"
	"github.com/lexweave/depoflow/internal/port/database"
)

// ObjectionService records and serves detected objections. Records are
// write-once: a re-run of detection creates new rows under a new job.
type ObjectionService struct {
	store database.Store
}

// NewObjectionService creates a new ObjectionService.
func NewObjectionService(store database.Store) *ObjectionService {
	return &ObjectionService{store: store}
}

// Record bulk-inserts the objections reported by one detection run. All
// requests must target the same document and job.
func (s *ObjectionService) Record(ctx context.Context, reqs []objection.CreateRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}

	docID, jobID := reqs[0].DocumentID, reqs[0].JobID
	for i, r := range reqs {
		if r.DocumentID != docID || r.JobID != jobID {
			return 0, fmt.Errorf("objection %d targets a different document or job: %w", i, domain.ErrValidation)
		}
		if r.Category == "" || r.ObjectionText == "" {
			return 0, fmt.Errorf("objection %d missing category or text: %w", i, domain.ErrValidation)
		}
		if !r.SequencePattern.Valid() {
			return 0, fmt.Errorf("objection %d has unknown sequence pattern %q: %w", i, r.SequencePattern, domain.ErrValidation)
		}
		if r.PageStart <= 0 || r.LineStart <= 0 {
			return 0, fmt.Errorf("objection %d needs positive page and line: %w", i, domain.ErrValidation)
		}
	}

	// The job row anchors the insert to a firm and guards against writes
	// for jobs that never ran detection.
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if j.DocumentID != docID {
		return 0, fmt.Errorf("job %s does not belong to document %s: %w", jobID, docID, domain.ErrValidation)
	}
	if j.Type != job.TypeDetectObjections {
		return 0, fmt.Errorf("job %s is %s, not a detection job: %w", jobID, j.Type, domain.ErrValidation)
	}

	n, err := s.store.CreateObjections(ctx, reqs)
	if err != nil {
		return 0, err
	}

	details, _ := json.Marshal(map[string]any{"count": n, "job_id": jobID})
	if err := s.store.AppendAudit(ctx, &event.AuditEntry{
		FirmID:       j.FirmID,
		UserID:       j.UserID,
		Action:       event.ActionObjectionsRecorded,
		ResourceType: "document",
		ResourceID:   docID,
		Details:      details,
	}); err != nil {
		slog.Error("audit append failed", "action", event.ActionObjectionsRecorded, "document_id", docID, "error", err)
	}
	return n, nil
}

// List returns the firm's objections matching the filter.
func (s *ObjectionService) List(ctx context.Context, f objection.Filter, limit int) ([]objection.Objection, error) {
	if f.SequencePattern != "" && !f.SequencePattern.Valid() {
		return nil, fmt.Errorf("unknown sequence pattern %q: %w", f.SequencePattern, domain.ErrValidation)
	}
	return s.store.ListObjections(ctx, f, limit)
}
