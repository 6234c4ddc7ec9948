package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ArtifactRepository writes artifacts as files below a root directory.
type ArtifactRepository struct {
	fs   afero.Fs
	root string
}

func NewArtifactRepository(fs afero.Fs, root string) *ArtifactRepository {
	return &ArtifactRepository{fs: fs, root: root}
}

// Store writes data to root/key and returns a file:// URL. The content type
// is implied by the key extension.
func (r *ArtifactRepository) Store(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Join(r.root, filepath.Base(key))
	if err := r.fs.MkdirAll(r.root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory %s: %w", r.root, err)
	}
	if err := afero.WriteFile(r.fs, name, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return "file://" + filepath.ToSlash(name), nil
}
