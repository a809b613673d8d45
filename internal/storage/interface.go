package storage

import (
	"context"
	"io"
)

// Storage holds named text objects such as the record cache file.
// Missing objects are reported with an error wrapping fs.ErrNotExist.
type Storage interface {
	// GetReader opens an object for reading. Callers must close it.
	GetReader(ctx context.Context, name string) (io.ReadCloser, error)

	// Replace writes the full contents of r as the object, replacing any
	// previous version. Readers never observe a partially written object.
	Replace(ctx context.Context, name string, r io.Reader) error

	Close() error
}
