// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/domain/objection"
	"github.com/lexweave/depoflow/internal/domain/user"
)

// IntakeRequest is the input to the transactional upload-complete operation.
// Validation (mime type, size ceiling, cost) happens in the service before
// the store is touched.
type IntakeRequest struct {
	FirmID      string
	UserID      string
	Doc         document.CreateRequest
	Cost        int64
	Description string
}

// IntakeResult is the state created by one committed upload.
type IntakeResult struct {
	Document *document.Document
	Job      *job.Job
	Billing  *firm.BillingRecord
}

// SettleRequest is the input to a ledger settle: a single credit movement
// with its billing and audit side effects.
type SettleRequest struct {
	FirmID      string
	UserID      string
	DocumentID  string
	Delta       int64
	Type        firm.BillingType
	Description string
}

// Store is the port interface for database operations. Tenant-scoped reads
// take the firm ID from the request context; job mutations are keyed by job
// ID because workers act as system principals across firms.
type Store interface {
	// Users
	UpsertUser(ctx context.Context, subject, email, name string) (*user.User, error)
	AttachUserToFirm(ctx context.Context, userID, firmID string, role user.Role) error
	ListFirmMembers(ctx context.Context) ([]user.Member, error)

	// Firms
	CreateFirm(ctx context.Context, name, ownerID string, credits int64, maxMembers int, settings firm.Settings) (*firm.Firm, error)
	GetFirm(ctx context.Context, id string) (*firm.Firm, error)
	UpdateFirmSettings(ctx context.Context, id string, settings firm.Settings) error

	// Ledger
	SettleCredits(ctx context.Context, req SettleRequest) (*firm.BillingRecord, error)
	ListBillingRecords(ctx context.Context, limit int) ([]firm.BillingRecord, error)

	// Intake (single transaction: quota re-check, document, job, debit,
	// billing record, audit entry)
	CompleteUpload(ctx context.Context, req IntakeRequest) (*IntakeResult, error)

	// Documents
	ListDocuments(ctx context.Context, status document.Status, limit int) ([]document.Document, error)
	GetDocument(ctx context.Context, id string) (*document.Document, error)
	TransitionDocument(ctx context.Context, id string, to document.Status, fields document.TransitionFields) (*document.Document, error)
	DocumentStats(ctx context.Context) (*document.Stats, error)

	// Jobs
	EnqueueJob(ctx context.Context, documentID, userID string, t job.Type) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobsByDocument(ctx context.Context, documentID string) ([]job.Job, error)
	ListPendingJobs(ctx context.Context, now time.Time, limit int) ([]job.Job, error)
	ClaimJob(ctx context.Context, id string) (*job.Job, error)
	UpdateJobProgress(ctx context.Context, id string, progress int) (*job.Job, error)
	CompleteJob(ctx context.Context, id string, res job.CompleteResult) (*job.Job, error)
	RetryJob(ctx context.Context, id, errMsg string, nextRetryAt time.Time) (*job.Job, error)
	FailJobTerminal(ctx context.Context, id, errMsg string) (*job.Job, error)
	CancelJob(ctx context.Context, id string) (*job.Job, error)

	// Objections
	CreateObjections(ctx context.Context, reqs []objection.CreateRequest) (int, error)
	ListObjections(ctx context.Context, f objection.Filter, limit int) ([]objection.Objection, error)

	// Audit
	AppendAudit(ctx context.Context, entry *event.AuditEntry) error
	LoadAudit(ctx context.Context, filter *event.AuditFilter, cursor string, limit int) (*event.AuditPage, error)
}
