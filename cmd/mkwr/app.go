package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaki95/mkw-records/config"
	"github.com/jaki95/mkw-records/internal/corpus"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/memo"
	"github.com/jaki95/mkw-records/internal/metrics"
	"github.com/jaki95/mkw-records/internal/progress"
	"github.com/jaki95/mkw-records/internal/scraper"
	"github.com/jaki95/mkw-records/internal/storage"
)

// app is the wired dependency graph for one run.
type app struct {
	cfg     *config.Config
	store   storage.Storage
	tracker *progress.Tracker
	metrics *metrics.Manager
	corpus  *corpus.Manager

	// persistErr is set when the corpus loaded but the cache write failed.
	persistErr error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStorage(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker()
	mm := metrics.NewManager(metrics.WithHistogramBuckets(cfg.Metrics.RebuildBuckets))
	source := scraper.New(scraper.Options{
		BaseURL:    cfg.Scraper.BaseURL,
		Timeout:    cfg.Scraper.Timeout,
		MaxRetries: cfg.Scraper.MaxRetries,
		BaseDelay:  cfg.Scraper.RetryDelay,
	})

	manager := corpus.NewManager(source, memo.New(store, cfg.Cache.Name),
		corpus.WithWorkers(cfg.Scraper.Workers),
		corpus.WithTracker(tracker),
		corpus.WithMetrics(mm),
	)

	return &app{
		cfg:     cfg,
		store:   store,
		tracker: tracker,
		metrics: mm,
		corpus:  manager,
	}, nil
}

func openStorage(ctx context.Context, cfg config.CacheConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "gcs":
		store, err := storage.NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local":
		store, err := storage.NewLocalFileStorage(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// load returns the corpus; a cache write failure is logged, not fatal.
func (a *app) load(ctx context.Context, force bool) (*domain.Corpus, error) {
	var (
		c   *domain.Corpus
		err error
	)
	if force {
		c, err = a.corpus.Refresh(ctx)
	} else {
		c, err = a.corpus.EnsureLoaded(ctx)
	}
	if err != nil && c != nil && errors.Is(err, memo.ErrCachePersist) {
		slog.Warn("Record cache was not updated", "error", err)
		a.persistErr = err
		return c, nil
	}
	return c, err
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}
