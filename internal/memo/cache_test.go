package memo

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCorpus() *domain.Corpus {
	return &domain.Corpus{Tracks: []*domain.Track{
		{
			Name: "Mario Bros. Circuit",
			Records: []domain.Record{
				{TimeSeconds: 110.5, DateSet: day("2025-06-05"), Player: "Alice", Country: "Japan"},
				{TimeSeconds: 90, DateSet: day("2025-06-10"), Player: "Bob+Smith", Country: "France"},
			},
		},
		{
			Name: "Crown City",
			Records: []domain.Record{
				{TimeSeconds: 83.456, DateSet: day("2025-06-07"), Player: "Zo%C3%AB", Country: "United Kingdom"},
			},
		},
	}}
}

const testCacheFile = "2025-06-12 last updated\n" +
	"\n" +
	"Mario Bros. Circuit\n" +
	"110.5,2025-06-05,Alice,Japan\n" +
	"90.0,2025-06-10,Bob+Smith,France\n" +
	"\n" +
	"Crown City\n" +
	"83.456,2025-06-07,Zo%C3%AB,United Kingdom"

func newTestCache(t *testing.T) (*Cache, *storage.LocalFileStorage) {
	t.Helper()
	store, err := storage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	return New(store, ""), store
}

func TestEncode(t *testing.T) {
	data, err := Encode(testCorpus(), day("2025-06-12"))
	require.NoError(t, err)
	assert.Equal(t, testCacheFile, string(data))
}

func TestEncodeEmptyCorpus(t *testing.T) {
	data, err := Encode(&domain.Corpus{}, day("2025-06-12"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12 last updated\n\n", string(data))

	corpus, _, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, corpus.Tracks)
}

func TestEncodeRejectsSeparators(t *testing.T) {
	corpus := &domain.Corpus{Tracks: []*domain.Track{{
		Name:    "Crown City",
		Records: []domain.Record{{TimeSeconds: 1, DateSet: day("2025-06-07"), Player: "a,b", Country: "Japan"}},
	}}}

	_, err := Encode(corpus, day("2025-06-12"))
	assert.Error(t, err)
}

func TestEncodeRejectsEmptyTrack(t *testing.T) {
	corpus := testCorpus()
	corpus.Tracks = append(corpus.Tracks, &domain.Track{Name: "Rainbow Road"})

	_, err := Encode(corpus, day("2025-06-12"))
	assert.ErrorIs(t, err, ErrCacheFormat)
	assert.Contains(t, err.Error(), "Rainbow Road")

	cache, store := newTestCache(t)
	err = cache.Save(context.Background(), corpus, day("2025-06-12"))
	assert.ErrorIs(t, err, ErrCachePersist)

	_, statErr := os.Stat(store.Path(DefaultName))
	assert.True(t, os.IsNotExist(statErr), "nothing is written")
}

func TestDecode(t *testing.T) {
	corpus, updated, err := Decode([]byte(testCacheFile))
	require.NoError(t, err)
	assert.Equal(t, day("2025-06-12"), updated)
	if diff := cmp.Diff(testCorpus(), corpus); diff != "" {
		t.Errorf("decoded corpus mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad header", "yesterday last updated\n\nCrown City\n1.0,2025-06-07,a,b"},
		{"missing field", "2025-06-12 last updated\n\nCrown City\n1.0,2025-06-07,a"},
		{"extra field", "2025-06-12 last updated\n\nCrown City\n1.0,2025-06-07,a,b,c"},
		{"bad time", "2025-06-12 last updated\n\nCrown City\nfast,2025-06-07,a,b"},
		{"bad date", "2025-06-12 last updated\n\nCrown City\n1.0,07/06/2025,a,b"},
		{"track without records", "2025-06-12 last updated\n\nCrown City"},
		{"duplicate track", "2025-06-12 last updated\n\nCrown City\n1.0,2025-06-07,a,b\n\nCrown City\n1.0,2025-06-07,a,b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, ErrCacheFormat)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "90.0", formatSeconds(90))
	assert.Equal(t, "0.0", formatSeconds(0))
	assert.Equal(t, "83.456", formatSeconds(83.456))
	assert.Equal(t, "210.5", formatSeconds(210.5))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, store := newTestCache(t)
	today := day("2025-06-12")

	require.NoError(t, cache.Save(ctx, testCorpus(), today))

	data, err := os.ReadFile(store.Path(DefaultName))
	require.NoError(t, err)
	assert.Equal(t, testCacheFile, string(data))

	assert.True(t, cache.IsCurrent(ctx, today))

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(testCorpus(), loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Saving what was loaded reproduces the file byte for byte.
	require.NoError(t, cache.Save(ctx, loaded, today))
	again, err := os.ReadFile(store.Path(DefaultName))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestIsCurrent(t *testing.T) {
	ctx := context.Background()
	today := day("2025-06-12")

	tests := []struct {
		name     string
		contents *string
		expected bool
	}{
		{name: "missing file", contents: nil, expected: false},
		{name: "empty file", contents: ptr(""), expected: false},
		{name: "written today", contents: ptr("2025-06-12 last updated\n\nCrown City\n1.0,2025-06-07,a,b"), expected: true},
		{name: "header only without newline", contents: ptr("2025-06-12 last updated"), expected: true},
		{name: "written yesterday", contents: ptr("2025-06-11 last updated\n\nCrown City\n1.0,2025-06-07,a,b"), expected: false},
		{name: "written in the future", contents: ptr("2025-06-13 last updated\n\n"), expected: false},
		{name: "unparseable header", contents: ptr("last updated today\n\n"), expected: false},
		{name: "garbage body is not read", contents: ptr("2025-06-12 last updated\n\n\x00\x01garbage"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, store := newTestCache(t)
			if tt.contents != nil {
				require.NoError(t, os.WriteFile(store.Path(DefaultName), []byte(*tt.contents), 0644))
			}
			assert.Equal(t, tt.expected, cache.IsCurrent(ctx, today))
		})
	}
}

func TestLoadMissingCache(t *testing.T) {
	cache, _ := newTestCache(t)
	_, err := cache.Load(context.Background())
	assert.Error(t, err)
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) Replace(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

func TestSaveFailure(t *testing.T) {
	cache := New(failingStorage{}, "")
	err := cache.Save(context.Background(), testCorpus(), day("2025-06-12"))
	assert.ErrorIs(t, err, ErrCachePersist)
	assert.Contains(t, err.Error(), "disk full")
}

func ptr(s string) *string { return &s }
