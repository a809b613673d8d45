package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFileStorage implements the Storage interface for the local filesystem.
type LocalFileStorage struct {
	dataDir string
}

// NewLocalFileStorage creates a new local file storage rooted at dataDir
func NewLocalFileStorage(dataDir string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}

	return &LocalFileStorage{dataDir: dataDir}, nil
}

// Path returns the filesystem path of a named object
func (s *LocalFileStorage) Path(name string) string {
	return filepath.Join(s.dataDir, filepath.Base(name))
}

// GetReader returns a reader for the specified file
func (s *LocalFileStorage) GetReader(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path(name))
}

// Replace writes to a temporary file in the same directory and renames it
// over the destination.
func (s *LocalFileStorage) Replace(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := s.Path(name)
	tmp, err := os.CreateTemp(s.dataDir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	committed = true
	return nil
}

// Close is a no-op for local storage
func (s *LocalFileStorage) Close() error {
	return nil
}
