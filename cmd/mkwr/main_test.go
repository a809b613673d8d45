package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/memo"
	"github.com/jaki95/mkw-records/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCache writes a cache stamped today into a temp dir and points the
// config at it, so commands never touch the network.
func seedCache(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	today := civil.DateOf(time.Now())

	corpus := &domain.Corpus{Tracks: []*domain.Track{
		{
			Name: "Mario Bros. Circuit",
			Records: []domain.Record{
				{TimeSeconds: 95, DateSet: today.AddDays(-7), Player: "Alice", Country: "Japan"},
				{TimeSeconds: 90, DateSet: today.AddDays(-4), Player: "Bob+Smith", Country: "France"},
			},
		},
		{
			Name: "Crown City",
			Records: []domain.Record{
				{TimeSeconds: 120.5, DateSet: today.AddDays(-7), Player: "Alice", Country: "Japan"},
			},
		},
	}}
	data, err := memo.Encode(corpus, today)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, memo.DefaultName), data, 0644))

	t.Setenv("MKWR_CACHE_DIR", dir)
	t.Setenv("MKWR_SCRAPER_BASE_URL", "http://127.0.0.1:1/")
	t.Setenv("MKWR_LOG_LEVEL", "8")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func runCommandDefaultConfig(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormatTime(t *testing.T) {
	tests := map[float64]string{
		83.456:   "1:23.456",
		59.9:     "0:59.900",
		2110.5:   "35:10.500",
		125.0069: "2:05.007",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatTime(in), "%v", in)
	}
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := runCommand(t, "config")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("MKWR_SCRAPER_WORKERS", "7")

	out, err := runCommandDefaultConfig(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 7")
	assert.Contains(t, out, "backend: local")
}

func TestRefreshFromCache(t *testing.T) {
	seedCache(t)

	out, err := runCommandDefaultConfig(t, "refresh", "--quiet")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2 tracks, 3 records"), out)
}

func TestDaysHeldCommand(t *testing.T) {
	seedCache(t)

	out, err := runCommandDefaultConfig(t, "days-held", "--by", "player", "--quiet")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^1\s+Alice\s+10$`, lines[1])
	assert.Regexp(t, `^2\s+Bob Smith\s+4$`, lines[2])

	_, err = runCommandDefaultConfig(t, "days-held", "--by", "team", "--quiet")
	assert.Error(t, err)
}

func TestCombinedCommand(t *testing.T) {
	seedCache(t)
	today := civil.DateOf(time.Now())

	out, err := runCommandDefaultConfig(t, "combined", "--quiet",
		"--from", today.AddDays(-7).String(), "--to", today.AddDays(-4).String())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "215.500")
	assert.Contains(t, lines[1], "3:35.500")
	assert.Contains(t, lines[4], "210.500")

	_, err = runCommandDefaultConfig(t, "combined", "--quiet", "--from", "last week")
	assert.Error(t, err)

	_, err = runCommandDefaultConfig(t, "combined", "--quiet", "--to", today.AddDays(1).String())
	assert.ErrorIs(t, err, timeline.ErrOutOfRange)

	_, err = runCommandDefaultConfig(t, "combined", "--quiet", "--from", "2025-06-04")
	assert.ErrorIs(t, err, timeline.ErrOutOfRange)
}

func TestSeriesCommand(t *testing.T) {
	seedCache(t)

	out, err := runCommandDefaultConfig(t, "series", "Mario Bros. Circuit", "--quiet")
	require.NoError(t, err)

	var series timeline.Series
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	require.Len(t, series.Points, 3)
	assert.True(t, series.Points[2].Trailing)
	assert.Equal(t, "Bob Smith (France)", series.Points[2].Label)

	_, err = runCommandDefaultConfig(t, "series", "Rainbow Road", "--quiet")
	assert.Error(t, err)

	_, err = runCommandDefaultConfig(t, "series", "--combined", "Crown City")
	assert.Error(t, err)
}
