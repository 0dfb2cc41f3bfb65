// Package gcs implements the blobstore port using Google Cloud Storage
// V4 signed URLs. Clients upload directly to the bucket; the core never
// proxies file bytes.
package gcs

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// Provider implements blobstore.Provider against one GCS bucket.
type Provider struct {
	client *storage.Client
	bucket string
	opts   signingOptions
}

type signingOptions struct {
	googleAccessID string
	privateKey     []byte
}

// New creates a Provider for the given bucket. googleAccessID and
// privateKeyFile configure URL signing with a service account key; when
// empty, signing falls back to the ambient credentials of the client.
func New(ctx context.Context, bucket, googleAccessID, privateKeyFile string) (*Provider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	p := &Provider{client: client, bucket: bucket}
	if privateKeyFile != "" {
		key, err := os.ReadFile(privateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		p.opts = signingOptions{googleAccessID: googleAccessID, privateKey: key}
	}
	return p, nil
}

// SignedUploadURL returns a V4 signed URL the client PUTs the file to.
// The content type is pinned so the client cannot upload under a different
// mime type than the one intake validated.
func (p *Provider) SignedUploadURL(_ context.Context, objectName, mimeType string, ttl time.Duration) (string, error) {
	url, err := p.client.Bucket(p.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodPut,
		Expires:        time.Now().Add(ttl),
		ContentType:    mimeType,
		GoogleAccessID: p.opts.googleAccessID,
		PrivateKey:     p.opts.privateKey,
	})
	if err != nil {
		return "", fmt.Errorf("sign upload url %s: %w", objectName, err)
	}
	return url, nil
}

// SignedDownloadURL returns a V4 signed URL for reading the object.
func (p *Provider) SignedDownloadURL(_ context.Context, objectName string, ttl time.Duration) (string, error) {
	url, err := p.client.Bucket(p.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: p.opts.googleAccessID,
		PrivateKey:     p.opts.privateKey,
	})
	if err != nil {
		return "", fmt.Errorf("sign download url %s: %w", objectName, err)
	}
	return url, nil
}

// Close releases the underlying storage client.
func (p *Provider) Close() error {
	return p.client.Close()
}
