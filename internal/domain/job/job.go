// Package job defines the Job entity: one asynchronous unit of processing
// work tied to a document, with a retry-aware status state machine.
package job

import "time"

// Type identifies the processing stage a job performs.
type Type string

const (
	TypeExtractText      Type = "extract_text"
	TypeDetectObjections Type = "detect_objections"
	TypeGenerateReports  Type = "generate_reports"
)

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	switch t {
	case TypeExtractText, TypeDetectObjections, TypeGenerateReports:
		return true
	}
	return false
}

// Next returns the stage chained after t, or "" when t is the last stage.
func (t Type) Next() Type {
	switch t {
	case TypeExtractText:
		return TypeDetectObjections
	case TypeDetectObjections:
		return TypeGenerateReports
	}
	return ""
}

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known job status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the job can never be worked again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// legalTransitions is the closed transition table. fail-with-retry
// (running back to pending) and cancellation are the only non-forward edges.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusPending, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
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

// RetryDelay returns the backoff before the retryCount-th retry:
// base doubled per prior attempt, capped at max.
func RetryDelay(base, max time.Duration, retryCount int) time.Duration {
	d := base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Job represents one processing stage for a document. The firm ID is carried
// redundantly so every worker query stays on a single firm-scoped index.
type Job struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	FirmID       string     `json:"firm_id"`
	UserID       string     `json:"user_id"`
	Type         Type       `json:"type"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	RetryCount   int        `json:"retry_count"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Result       []byte     `json:"result,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CompleteResult carries the stage output reported by a worker on completion.
type CompleteResult struct {
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Result    []byte `json:"result,omitempty"`
}
