// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist or is outside the
// caller's firm. Cross-firm lookups deliberately report not-found rather than
// forbidden so record existence never leaks across tenants.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrUnauthenticated indicates no valid principal was supplied.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnsupportedType indicates a file's MIME type is not on the intake allow-list.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrQuotaExceeded indicates a file exceeds the firm's upload size ceiling.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrInsufficientCredits indicates the firm's credit balance cannot cover the
// processing cost of an upload.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrInvalidTransition indicates an illegal document or job status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyClaimed indicates a job claim lost the race: the job is no longer pending.
var ErrAlreadyClaimed = errors.New("job already claimed")

// ErrRetryExhausted indicates a job has consumed its retry budget and is
// terminally failed.
var ErrRetryExhausted = errors.New("retry budget exhausted")
