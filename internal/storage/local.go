package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local stores uploads on disk under a base directory and serves them from a
// public base URL. Handles are folder-relative paths.
type Local struct {
	basePath  string
	publicURL string
}

func NewLocal(basePath, publicURL string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{
		basePath:  basePath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (l *Local) Upload(ctx context.Context, data []byte, folder, kind string) (*Upload, error) {
	ext := ".jpg"
	if kind == "video" {
		ext = ".mp4"
	}

	if err := os.MkdirAll(filepath.Join(l.basePath, folder), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}

	handle := path.Join(folder, uuid.New().String()+ext)
	if err := os.WriteFile(filepath.Join(l.basePath, filepath.FromSlash(handle)), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &Upload{
		URL:    l.publicURL + "/" + handle,
		Handle: handle,
	}, nil
}

func (l *Local) Delete(ctx context.Context, handle, kind string) error {
	clean := filepath.Clean(filepath.FromSlash(handle))
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid handle")
	}

	if err := os.Remove(filepath.Join(l.basePath, clean)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
