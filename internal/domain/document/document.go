// Package document defines the Document entity and its status state machine.
package document

import "time"

// Status represents the lifecycle state of an uploaded document.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

// Valid reports whether s is a known document status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploading, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusDeleted:
		return true
	}
	return false
}

// legalTransitions is the closed transition table. A document moves strictly
// forward; only terminal completed/failed documents may be soft-deleted.
var legalTransitions = map[Status][]Status{
	StatusUploading:  {StatusQueued},
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusDeleted},
	StatusFailed:     {StatusDeleted},
	StatusDeleted:    {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further processing transitions are possible.
// Deleted is excluded: it is a retention state, not a processing outcome.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDeleted
}

// Metadata carries free-form case context attached at upload time.
type Metadata struct {
	CaseTitle      string   `json:"case_title,omitempty"`
	DeponentName   string   `json:"deponent_name,omitempty"`
	DepositionDate string   `json:"deposition_date,omitempty"`
	Court          string   `json:"court,omitempty"`
	Attorneys      []string `json:"attorneys,omitempty"`
}

// Document represents one uploaded deposition transcript.
type Document struct {
	ID                  string     `json:"id"`
	FirmID              string     `json:"firm_id"`
	UserID              string     `json:"user_id"`
	FileName            string     `json:"file_name"`
	OriginalName        string     `json:"original_name"`
	FileSize            int64      `json:"file_size"`
	MimeType            string     `json:"mime_type"`
	StorageID           string     `json:"storage_id,omitempty"`
	Status              Status     `json:"status"`
	ProcessingStarted   *time.Time `json:"processing_started,omitempty"`
	ProcessingCompleted *time.Time `json:"processing_completed,omitempty"`
	PageCount           int        `json:"page_count,omitempty"`
	WordCount           int        `json:"word_count,omitempty"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	Metadata            *Metadata  `json:"metadata,omitempty"`
	UploadedAt          time.Time  `json:"uploaded_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to register an uploaded file.
type CreateRequest struct {
	FileName     string    `json:"file_name"`
	OriginalName string    `json:"original_name"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type"`
	StorageID    string    `json:"storage_id"`
	Metadata     *Metadata `json:"metadata,omitempty"`
}

// TransitionFields carries the optional fields a status transition may set.
type TransitionFields struct {
	ProcessingStarted   *time.Time
	ProcessingCompleted *time.Time
	PageCount           *int
	WordCount           *int
	ErrorMessage        *string
}

// Stats is the per-firm dashboard aggregate produced by the projector.
type Stats struct {
	Total           int            `json:"total"`
	ByStatus        map[Status]int `json:"by_status"`
	TotalSize       int64          `json:"total_size"`
	TotalPages      int64          `json:"total_pages"`
	TotalObjections int64          `json:"total_objections"`
}
