package repository

import "context"

// ArtifactRepository persists screenshots and HTML snapshots.
type ArtifactRepository interface {
	// Store writes data under key and returns a reference to it.
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
