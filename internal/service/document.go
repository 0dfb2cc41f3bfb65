package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/blobstore"
	"github.com/lexweave/depoflow/internal/port/database"
	"github.com/lexweave/depoflow/internal/resilience"
)

// DocumentService handles the user-facing document surface.
type DocumentService struct {
	store   database.Store
	blob    blobstore.Provider
	breaker *resilience.Breaker
	urlTTL  time.Duration
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(store database.Store, blob blobstore.Provider, breaker *resilience.Breaker, urlTTL time.Duration) *DocumentService {
	return &DocumentService{store: store, blob: blob, breaker: breaker, urlTTL: urlTTL}
}

// List returns the firm's documents, newest first.
func (s *DocumentService) List(ctx context.Context, status document.Status, limit int) ([]document.Document, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrValidation)
	}
	return s.store.ListDocuments(ctx, status, limit)
}

// Get returns one of the firm's documents.
func (s *DocumentService) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// DownloadURL returns a signed read URL for the document's blob.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.StorageID == "" {
		return "", fmt.Errorf("document %s has no stored blob: %w", id, domain.ErrNotFound)
	}

	var url string
	err = s.breaker.Execute(ctx, func() error {
		var signErr error
		url, signErr = s.blob.SignedDownloadURL(ctx, doc.StorageID, s.urlTTL)
		return signErr
	})
	if err != nil {
		return "", fmt.Errorf("issue download url: %w", err)
	}
	return url, nil
}

// Delete soft-deletes a terminal document. The blob stays in place until the
// retention sweep; only the record is tombstoned.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.store.TransitionDocument(ctx, doc.ID, document.StatusDeleted, document.TransitionFields{}); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]any{"file_name": doc.OriginalName})
	if err := s.store.AppendAudit(ctx, &event.AuditEntry{
		FirmID:       doc.FirmID,
		UserID:       middleware.UserIDFromContext(ctx),
		Action:       event.ActionDocumentDeleted,
		ResourceType: "document",
		ResourceID:   doc.ID,
		Details:      details,
	}); err != nil {
		slog.Error("audit append failed", "action", event.ActionDocumentDeleted, "document_id", doc.ID, "error", err)
	}
	return nil
}

// Jobs returns the stage history for one of the firm's documents.
func (s *DocumentService) Jobs(ctx context.Context, documentID string) ([]job.Job, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.ListJobsByDocument(ctx, documentID)
}
