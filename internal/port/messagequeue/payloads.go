package messagequeue

// JobCreatedPayload is the schema for jobs.created and jobs.dispatch.{type}
// messages.
type JobCreatedPayload struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	FirmID     string `json:"firm_id"`
	Type       string `json:"type"`
	StorageID  string `json:"storage_id,omitempty"`
}

// JobProgressPayload is the schema for jobs.progress messages.
type JobProgressPayload struct {
	JobID    string `json:"job_id"`
	Progress int    `json:"progress"`
}

// JobResultPayload is the schema for jobs.result messages.
type JobResultPayload struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"` // "completed" or "failed"
	Error     string `json:"error,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Result    []byte `json:"result,omitempty"`
}

// JobCancelPayload is the schema for jobs.cancel messages.
type JobCancelPayload struct {
	JobID string `json:"job_id"`
}
