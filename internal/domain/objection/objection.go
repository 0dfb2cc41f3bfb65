// Package objection defines the Objection entity: one detected objection
// inside a deposition transcript. Records are write-once; a re-run of
// detection creates new records tied to a new job.
package objection

import "time"

// SequencePattern classifies the question/objection/answer shape around a
// detected objection.
type SequencePattern string

const (
	PatternQOA      SequencePattern = "Q-O-A"
	PatternQOQA     SequencePattern = "Q-O-Q-A"
	PatternNoAnswer SequencePattern = "Q-O-No Answer"
	PatternOther    SequencePattern = "Other"
)

// Valid reports whether p is a known sequence pattern.
func (p SequencePattern) Valid() bool {
	switch p {
	case PatternQOA, PatternQOQA, PatternNoAnswer, PatternOther:
		return true
	}
	return false
}

// Ruling is the court's disposition of an objection, when present in the
// transcript.
type Ruling string

const (
	RulingSustained Ruling = "sustained"
	RulingOverruled Ruling = "overruled"
)

// Objection represents one detected objection span.
type Objection struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"document_id"`
	FirmID          string          `json:"firm_id"`
	JobID           string          `json:"job_id"`
	Category        string          `json:"category"`
	SubType         string          `json:"sub_type,omitempty"`
	PageStart       int             `json:"page_start"`
	LineStart       int             `json:"line_start"`
	PageEnd         int             `json:"page_end,omitempty"`
	LineEnd         int             `json:"line_end,omitempty"`
	Attorney        string          `json:"attorney,omitempty"`
	SequencePattern SequencePattern `json:"sequence_pattern"`
	ContextBefore   string          `json:"context_before,omitempty"`
	ObjectionText   string          `json:"objection_text"`
	ContextAfter    string          `json:"context_after,omitempty"`
	Response        string          `json:"response,omitempty"`
	Ruling          Ruling          `json:"ruling,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CreateRequest is one objection as reported by the detection worker.
type CreateRequest struct {
	DocumentID      string          `json:"document_id"`
	JobID           string          `json:"job_id"`
	Category        string          `json:"category"`
	SubType         string          `json:"sub_type,omitempty"`
	PageStart       int             `json:"page_start"`
	LineStart       int             `json:"line_start"`
	PageEnd         int             `json:"page_end,omitempty"`
	LineEnd         int             `json:"line_end,omitempty"`
	Attorney        string          `json:"attorney,omitempty"`
	SequencePattern SequencePattern `json:"sequence_pattern"`
	ContextBefore   string          `json:"context_before,omitempty"`
	ObjectionText   string          `json:"objection_text"`
	ContextAfter    string          `json:"context_after,omitempty"`
	Response        string          `json:"response,omitempty"`
	Ruling          Ruling          `json:"ruling,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
}

// Filter narrows objection list queries.
type Filter struct {
	DocumentID      string
	Category        string
	SequencePattern SequencePattern
}
