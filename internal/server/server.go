package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaki95/mkw-records/config"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/job"
	"github.com/jaki95/mkw-records/internal/metrics"
	"github.com/jaki95/mkw-records/internal/progress"
	"golang.org/x/sync/singleflight"
)

const requestIDHeader = "X-Request-ID"

// CorpusLoader provides the loaded corpus and the day views are computed up to.
type CorpusLoader interface {
	EnsureLoaded(ctx context.Context) (*domain.Corpus, error)
	Refresh(ctx context.Context) (*domain.Corpus, error)
	Today() civil.Date
}

// Server handles HTTP requests for the record API
type Server struct {
	cfg     *config.Config
	corpus  CorpusLoader
	tracker *progress.Tracker
	metrics *metrics.Manager
	release civil.Date
	jobs    *job.Manager
	router  *gin.Engine

	// loads run under ctx, which lives until Start returns, so a request
	// that goes away does not abort a load other requests wait on.
	ctx    context.Context
	cancel context.CancelFunc
	loads  singleflight.Group
}

// New creates a new HTTP server instance
func New(cfg *config.Config, corpus CorpusLoader, tracker *progress.Tracker, mm *metrics.Manager) (*Server, error) {
	release, err := cfg.Release()
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = progress.NewTracker()
	}

	if cfg.LogLevel < int(slog.LevelInfo) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		corpus:  corpus,
		tracker: tracker,
		metrics: mm,
		release: release,
		jobs:    job.NewManager(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.router = gin.New()
	s.setupRoutes(s.router)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery(), s.requestID(), s.observe())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/status", s.status)
		api.GET("/tracks", s.listTracks)
		api.GET("/tracks/:name", s.getTrack)
		api.GET("/tracks/:name/series", s.trackSeries)
		api.GET("/combined", s.combined)
		api.GET("/days-held", s.daysHeld)

		api.POST("/refresh", s.startRefresh)
		api.GET("/refresh", s.listRefreshJobs)
		api.GET("/refresh/:id", s.getRefreshJob)
		api.POST("/refresh/:id/cancel", s.cancelRefreshJob)
	}
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), duration)
		slog.Debug("Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration.String(),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}

type loadResult struct {
	corpus *domain.Corpus
	err    error
}

// loadCorpus writes a 503 and returns nil when the corpus cannot be loaded.
// A corpus that loaded but could not be cached is still served.
func (s *Server) loadCorpus(c *gin.Context) *domain.Corpus {
	ch := s.loads.DoChan("corpus", func() (any, error) {
		corpus, err := s.corpus.EnsureLoaded(s.ctx)
		return loadResult{corpus: corpus, err: err}, nil
	})

	var result loadResult
	select {
	case r := <-ch:
		result = r.Val.(loadResult)
	case <-c.Request.Context().Done():
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: fmt.Sprintf("%v: %v", ErrCorpusNotReady, c.Request.Context().Err())})
		return nil
	}

	corpus, err := result.corpus, result.err
	if corpus != nil {
		if err != nil {
			slog.Warn("Serving corpus that could not be cached", "error", err)
		}
		return corpus
	}

	slog.Error("Failed to load record corpus", "error", err, "request_id", c.GetString(requestIDHeader))
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: fmt.Sprintf("%v: %v", ErrCorpusNotReady, err)})
	return nil
}

func (s *Server) lookupTrack(c *gin.Context, corpus *domain.Corpus) *domain.Track {
	name := c.Param("name")
	track, ok := corpus.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", ErrTrackNotFound, name)})
		return nil
	}
	return track
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", s.cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.cancel()
		s.jobs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
