// Package corpus loads the record corpus once per run, from the daily cache
// when it is current and by scraping every track otherwise.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/history"
	"github.com/jaki95/mkw-records/internal/memo"
	"github.com/jaki95/mkw-records/internal/metrics"
	"github.com/jaki95/mkw-records/internal/progress"
	"github.com/jaki95/mkw-records/internal/scraper"
	"github.com/jaki95/mkw-records/internal/tracklist"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Option configures a Manager.
type Option func(*Manager)

// WithWorkers bounds the number of concurrent track fetches.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithClock overrides how the current day is determined.
func WithClock(today func() civil.Date) Option {
	return func(m *Manager) {
		if today != nil {
			m.today = today
		}
	}
}

func WithTracker(tracker *progress.Tracker) Option {
	return func(m *Manager) {
		if tracker != nil {
			m.tracker = tracker
		}
	}
}

func WithMetrics(mm *metrics.Manager) Option {
	return func(m *Manager) {
		m.metrics = mm
	}
}

// Manager owns the corpus for the lifetime of the process.
type Manager struct {
	source  scraper.PageSource
	cache   *memo.Cache
	workers int
	today   func() civil.Date
	tracker *progress.Tracker
	metrics *metrics.Manager

	mu     sync.Mutex
	corpus *domain.Corpus

	// refreshMu serializes forced rebuilds, which run without holding mu.
	refreshMu sync.Mutex
}

func NewManager(source scraper.PageSource, cache *memo.Cache, opts ...Option) *Manager {
	m := &Manager{
		source:  source,
		cache:   cache,
		workers: defaultWorkers,
		today:   func() civil.Date { return civil.DateOf(time.Now()) },
		tracker: progress.NewTracker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Today is the day the corpus is stamped with and aggregated up to.
func (m *Manager) Today() civil.Date {
	return m.today()
}

func (m *Manager) Tracker() *progress.Tracker {
	return m.tracker
}

// EnsureLoaded returns the corpus, loading it on the first call. Later calls
// return the same corpus without touching the cache or the network. A failed
// load leaves nothing behind, so the next call tries again.
//
// When the corpus was rebuilt but could not be written to the cache, the
// corpus is returned together with an error wrapping memo.ErrCachePersist.
func (m *Manager) EnsureLoaded(ctx context.Context) (*domain.Corpus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.corpus != nil {
		return m.corpus, nil
	}

	today := m.today()
	m.tracker.UpdateProgress(progress.StageCheckingCache, 0, "Checking record cache")
	if m.cache.IsCurrent(ctx, today) {
		m.tracker.UpdateProgress(progress.StageLoadingCache, 50, "Loading record cache")
		corpus, err := m.cache.Load(ctx)
		if err == nil {
			m.metrics.RecordCacheLookup(metrics.CacheHit)
			m.setLocked(corpus)
			return corpus, nil
		}
		m.metrics.RecordCacheLookup(metrics.CacheUnreadable)
		slog.Warn("Record cache is current but unreadable, rebuilding", "error", err)
	} else {
		m.metrics.RecordCacheLookup(metrics.CacheMiss)
	}

	corpus, err := m.rebuildAndSave(ctx, today)
	if corpus != nil {
		m.setLocked(corpus)
	}
	return corpus, err
}

// Refresh rebuilds the corpus from the network even when the cache is
// current and swaps it in on success. Readers keep the previous corpus while
// the rebuild runs.
func (m *Manager) Refresh(ctx context.Context) (*domain.Corpus, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	corpus, err := m.rebuildAndSave(ctx, m.today())
	if corpus != nil {
		m.mu.Lock()
		m.setLocked(corpus)
		m.mu.Unlock()
	}
	return corpus, err
}

// rebuildAndSave returns a nil corpus when the rebuild failed, and the corpus
// with an ErrCachePersist error when only the save failed.
func (m *Manager) rebuildAndSave(ctx context.Context, today civil.Date) (*domain.Corpus, error) {
	start := time.Now()
	corpus, err := m.rebuild(ctx)
	m.metrics.RecordRebuild(time.Since(start), err)
	if err != nil {
		m.tracker.SetError(err)
		return nil, err
	}
	slog.Info("Rebuilt record corpus", "tracks", len(corpus.Tracks), "duration", time.Since(start).String())

	m.tracker.UpdateProgress(progress.StageSaving, 100, "Saving record cache")
	if err := m.cache.Save(ctx, corpus, today); err != nil {
		m.metrics.RecordCachePersistFailure()
		slog.Error("Failed to save record cache", "error", err)
		return corpus, err
	}
	return corpus, nil
}

func (m *Manager) setLocked(corpus *domain.Corpus) {
	m.corpus = corpus
	m.metrics.SetCorpusTracks(len(corpus.Tracks))
	m.tracker.UpdateProgress(progress.StageComplete, 100, fmt.Sprintf("Loaded %d tracks", len(corpus.Tracks)))
}

// rebuild fetches the index and every track page. Tracks keep index order;
// any fetch or decode failure cancels the remaining fetches.
func (m *Manager) rebuild(ctx context.Context) (*domain.Corpus, error) {
	m.tracker.UpdateProgress(progress.StageFetchingIndex, 0, "Fetching track index")
	index, err := m.source.FetchIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track index: %w", err)
	}

	names, err := tracklist.ParseNames(index)
	if err != nil {
		m.metrics.RecordDecodeFailure()
		return nil, fmt.Errorf("failed to read track index: %w", err)
	}

	m.tracker.UpdateProgress(progress.StageFetching, 0, fmt.Sprintf("Fetching %d tracks", len(names)))
	tracks := make([]*domain.Track, len(names))
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, name := range names {
		g.Go(func() error {
			page, err := m.source.FetchTrack(gctx, name)
			if err != nil {
				return fmt.Errorf("failed to fetch track %q: %w", name, err)
			}

			track, err := history.ParseTrack(name, page)
			if err != nil {
				m.metrics.RecordDecodeFailure()
				return err
			}

			tracks[i] = track
			m.metrics.RecordTrackFetched()
			m.tracker.UpdateTrackProgress(int(processed.Add(1)), len(names), name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, history.ErrMarkupShape) || errors.Is(err, history.ErrFieldFormat) {
			slog.Error("Track page could not be decoded", "error", err)
		}
		return nil, err
	}

	return &domain.Corpus{Tracks: tracks}, nil
}
