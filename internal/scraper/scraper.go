// Package scraper fetches the raw record pages over HTTP.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly"
)

const (
	DefaultBaseURL = "https://mkwrs.com/mkworld/"
	trackPath      = "display.php?track="
)

// PageSource returns the raw markup of the index page and of track pages.
type PageSource interface {
	FetchIndex(ctx context.Context) (string, error)
	FetchTrack(ctx context.Context, name string) (string, error)
}

// Options configures a Collector.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// Collector is a PageSource backed by colly.
type Collector struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	userAgents []string
}

// New creates a Collector. Zero options fall back to defaults.
func New(opts Options) *Collector {
	c := &Collector{
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.baseDelay <= 0 {
		c.baseDelay = time.Second
	}
	return c
}

// IndexURL is the page listing every track.
func (c *Collector) IndexURL() string {
	return c.baseURL
}

// TrackURL is the history page of one track, with the name form-encoded.
func (c *Collector) TrackURL(name string) string {
	return c.baseURL + trackPath + url.QueryEscape(name)
}

func (c *Collector) FetchIndex(ctx context.Context) (string, error) {
	return c.fetch(ctx, c.IndexURL())
}

func (c *Collector) FetchTrack(ctx context.Context, name string) (string, error) {
	return c.fetch(ctx, c.TrackURL(name))
}

// fetch uses a fresh collector per page so concurrent fetches never share
// response callbacks.
func (c *Collector) fetch(ctx context.Context, pageURL string) (string, error) {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
		colly.UserAgent(c.userAgents[rand.Intn(len(c.userAgents))]),
	)
	collector.SetRequestTimeout(c.timeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("Cache-Control", "max-age=0")
	})

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	collector.OnError(func(r *colly.Response, err error) {
		slog.Debug("Request failed", "url", pageURL, "status", r.StatusCode, "error", err)
	})

	if err := c.visitWithRetries(ctx, collector, pageURL); err != nil {
		return "", err
	}

	slog.Debug("Fetched page", "url", pageURL, "bytes", len(body))
	return string(body), nil
}

func (c *Collector) visitWithRetries(ctx context.Context, collector *colly.Collector, pageURL string) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			slog.Info("Retrying request", "attempt", attempt+1, "delay", delay.String(), "url", pageURL)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = collector.Visit(pageURL)
		if lastErr == nil {
			return nil
		}
		slog.Warn("Request failed", "attempt", attempt+1, "url", pageURL, "error", lastErr)
	}
	return fmt.Errorf("failed to fetch %s after %d attempts: %w", pageURL, c.maxRetries+1, lastErr)
}
