package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexweave/depoflow/internal/adapter/otel"
	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/blobstore"
	"github.com/lexweave/depoflow/internal/port/database"
	"github.com/lexweave/depoflow/internal/port/messagequeue"
	"github.com/lexweave/depoflow/internal/resilience"
)

// UploadGrant is the response to an upload URL request.
type UploadGrant struct {
	UploadURL string `json:"upload_url"`
	StorageID string `json:"storage_id"`
	ExpiresAt string `json:"expires_at"`
}

// IntakeService coordinates the upload flow: signed URL issuance, upload
// validation, and the atomic completion transaction followed by job dispatch.
type IntakeService struct {
	store   database.Store
	queue   messagequeue.Queue
	blob    blobstore.Provider
	breaker *resilience.Breaker
	metrics *otel.Metrics

	allowedMime map[string]bool
	urlTTL      time.Duration
}

// NewIntakeService creates a new IntakeService. metrics may be nil when
// telemetry is disabled.
func NewIntakeService(store database.Store, queue messagequeue.Queue, blob blobstore.Provider,
	breaker *resilience.Breaker, metrics *otel.Metrics, allowedMimeTypes []string, urlTTL time.Duration) *IntakeService {
	allowed := make(map[string]bool, len(allowedMimeTypes))
	for _, m := range allowedMimeTypes {
		allowed[strings.ToLower(m)] = true
	}
	return &IntakeService{
		store:       store,
		queue:       queue,
		blob:        blob,
		breaker:     breaker,
		metrics:     metrics,
		allowedMime: allowed,
		urlTTL:      urlTTL,
	}
}

// RequestUpload validates the announced file and issues a signed upload URL.
// The storage ID is minted here and is the only name the blob is ever known
// by; clients cannot choose object names.
func (s *IntakeService) RequestUpload(ctx context.Context, fileName, mimeType string, fileSize int64) (*UploadGrant, error) {
	f, err := s.store.GetFirm(ctx, middleware.FirmIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.validateFile(mimeType, fileSize, f.Settings.MaxUploadSize); err != nil {
		return nil, err
	}

	storageID := fmt.Sprintf("%s/%s%s", f.ID, uuid.NewString(), strings.ToLower(path.Ext(fileName)))

	var url string
	err = s.breaker.Execute(ctx, func() error {
		var signErr error
		url, signErr = s.blob.SignedUploadURL(ctx, storageID, mimeType, s.urlTTL)
		return signErr
	})
	if err != nil {
		return nil, fmt.Errorf("issue upload url: %w", err)
	}

	return &UploadGrant{
		UploadURL: url,
		StorageID: storageID,
		ExpiresAt: time.Now().Add(s.urlTTL).UTC().Format(time.RFC3339),
	}, nil
}

// CompleteUpload finalizes an upload: it re-validates the file against the
// firm's limits, computes the processing cost, and runs the single intake
// transaction (document, first job, debit, billing, audit). On commit the
// job is announced on NATS; a publish failure is logged and swallowed
// because workers also poll the pending endpoint.
func (s *IntakeService) CompleteUpload(ctx context.Context, req document.CreateRequest) (*database.IntakeResult, error) {
	if req.StorageID == "" || req.FileName == "" {
		return nil, fmt.Errorf("storage_id and file_name are required: %w", domain.ErrValidation)
	}

	firmID := middleware.FirmIDFromContext(ctx)
	f, err := s.store.GetFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFile(req.MimeType, req.FileSize, f.Settings.MaxUploadSize); err != nil {
		return nil, err
	}

	cost := firm.ProcessingCost(req.FileSize)
	res, err := s.store.CompleteUpload(ctx, database.IntakeRequest{
		FirmID:      firmID,
		UserID:      middleware.UserIDFromContext(ctx),
		Doc:         req,
		Cost:        cost,
		Description: fmt.Sprintf("Processing %s", req.OriginalName),
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsUploaded.Add(ctx, 1)
		if !f.Unlimited() {
			s.metrics.CreditsDebited.Add(ctx, cost)
		}
	}

	s.announceJob(ctx, res)
	return res, nil
}

func (s *IntakeService) validateFile(mimeType string, fileSize, maxUploadSize int64) error {
	if !s.allowedMime[strings.ToLower(mimeType)] {
		return fmt.Errorf("mime type %q: %w", mimeType, domain.ErrUnsupportedType)
	}
	if fileSize <= 0 {
		return fmt.Errorf("file size must be positive: %w", domain.ErrValidation)
	}
	if fileSize > maxUploadSize {
		return fmt.Errorf("file size %d exceeds limit %d: %w", fileSize, maxUploadSize, domain.ErrQuotaExceeded)
	}
	return nil
}

// announceJob publishes the committed job to the created and dispatch
// subjects.
func (s *IntakeService) announceJob(ctx context.Context, res *database.IntakeResult) {
	payload, err := json.Marshal(messagequeue.JobCreatedPayload{
		JobID:      res.Job.ID,
		DocumentID: res.Document.ID,
		FirmID:     res.Document.FirmID,
		Type:       string(res.Job.Type),
		StorageID:  res.Document.StorageID,
	})
	if err != nil {
		slog.Error("marshal job payload", "job_id", res.Job.ID, "error", err)
		return
	}

	for _, subject := range []string{
		messagequeue.SubjectJobCreated,
		messagequeue.SubjectJobDispatch + "." + string(res.Job.Type),
	} {
		if err := s.queue.Publish(ctx, subject, payload); err != nil {
			slog.Error("failed to publish job", "subject", subject, "job_id", res.Job.ID, "error", err)
		}
	}
}
