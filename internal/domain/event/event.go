// Package event defines the append-only audit trail types.
package event

import "time"

// Actions recorded in the audit trail. Every state-changing operation in the
// pipeline appends exactly one entry.
const (
	ActionFirmCreated         = "firm_created"
	ActionFirmSettingsUpdated = "firm_settings_updated"
	ActionCreditsUpdated      = "credits_updated"
	ActionDocumentUploaded    = "document_uploaded"
	ActionDocumentTransition  = "document_status_changed"
	ActionDocumentDeleted     = "document_deleted"
	ActionJobEnqueued         = "job_enqueued"
	ActionJobClaimed          = "job_claimed"
	ActionJobCompleted        = "job_completed"
	ActionJobFailed           = "job_failed"
	ActionJobCancelled        = "job_cancelled"
	ActionObjectionsRecorded  = "objections_recorded"
)

// AuditEntry is an immutable fact about a state-changing operation.
// Entries are never updated or deleted once written.
type AuditEntry struct {
	ID           string    `json:"id"`
	FirmID       string    `json:"firm_id"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Details      []byte    `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditFilter narrows audit queries for compliance export.
type AuditFilter struct {
	Action       string
	ResourceType string
	ResourceID   string
	After        *time.Time
	Before       *time.Time
}

// AuditPage is a cursor-paginated slice of audit entries.
type AuditPage struct {
	Entries []AuditEntry `json:"entries"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more"`
	Total   int          `json:"total"`
}
