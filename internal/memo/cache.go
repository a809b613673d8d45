// Package memo persists the record corpus between runs as a single text file
// that is valid for the day it was written.
package memo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/storage"
)

// DefaultName is the object name of the cache file.
const DefaultName = "record_memo.txt"

var (
	// ErrCachePersist wraps any failure to write the cache.
	ErrCachePersist = errors.New("failed to persist record cache")
	// ErrCacheFormat means the cache contents could not be parsed.
	ErrCacheFormat = errors.New("malformed record cache")
)

// Cache stores the corpus in one object of a storage backend.
type Cache struct {
	store storage.Storage
	name  string
}

// New creates a cache stored as name in store.
func New(store storage.Storage, name string) *Cache {
	if name == "" {
		name = DefaultName
	}
	return &Cache{store: store, name: name}
}

// IsCurrent reports whether the cache was written on today. It only reads the
// header line, and any failure to read or parse it counts as not current.
func (c *Cache) IsCurrent(ctx context.Context, today civil.Date) bool {
	r, err := c.store.GetReader(ctx, c.name)
	if err != nil {
		slog.Debug("Record cache unavailable", "name", c.name, "error", err)
		return false
	}
	defer r.Close()

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		slog.Debug("Record cache header unreadable", "name", c.name, "error", err)
		return false
	}

	updated, err := ParseHeader(line)
	if err != nil {
		slog.Debug("Record cache header invalid", "name", c.name, "error", err)
		return false
	}

	return updated == today
}

// Load reads the whole corpus from the cache.
func (c *Cache) Load(ctx context.Context) (*domain.Corpus, error) {
	r, err := c.store.GetReader(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open record cache: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read record cache: %w", err)
	}

	corpus, updated, err := Decode(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded record cache", "name", c.name, "updated", updated.String(), "tracks", len(corpus.Tracks))
	return corpus, nil
}

// Save overwrites the cache with the full corpus, stamped with today.
func (c *Cache) Save(ctx context.Context, corpus *domain.Corpus, today civil.Date) error {
	data, err := Encode(corpus, today)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCachePersist, err)
	}

	if err := c.store.Replace(ctx, c.name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrCachePersist, err)
	}

	slog.Info("Saved record cache", "name", c.name, "tracks", len(corpus.Tracks), "bytes", len(data))
	return nil
}
