// Package blobstore defines the blob storage port (interface).
// The core never inspects blob content; it only hands out signed URLs and
// treats object names as opaque storage references.
package blobstore

import (
	"context"
	"time"
)

// Provider is the port interface for client-direct blob uploads.
type Provider interface {
	// SignedUploadURL returns a URL the client PUTs the file to, valid for ttl.
	SignedUploadURL(ctx context.Context, objectName, mimeType string, ttl time.Duration) (string, error)

	// SignedDownloadURL returns a URL for reading the object, valid for ttl.
	SignedDownloadURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
