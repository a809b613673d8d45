package domain

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m int, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func testTrack() *Track {
	return &Track{
		Name: "Mario Bros. Circuit",
		Records: []Record{
			{TimeSeconds: 95.123, DateSet: date(2025, 6, 10), Player: "Alice", Country: "Japan"},
			{TimeSeconds: 94.001, DateSet: date(2025, 6, 15), Player: "Bob", Country: "France"},
			{TimeSeconds: 93.5, DateSet: date(2025, 7, 1), Player: "Alice", Country: "Japan"},
		},
	}
}

func TestRecordAt(t *testing.T) {
	track := testTrack()

	tests := []struct {
		name     string
		day      civil.Date
		expected int
	}{
		{name: "before first record clamps to first", day: date(2025, 6, 5), expected: 0},
		{name: "on first record date", day: date(2025, 6, 10), expected: 0},
		{name: "between records", day: date(2025, 6, 12), expected: 0},
		{name: "on second record date", day: date(2025, 6, 15), expected: 1},
		{name: "day before third record", day: date(2025, 6, 30), expected: 1},
		{name: "on last record date", day: date(2025, 7, 1), expected: 2},
		{name: "after last record clamps to last", day: date(2026, 1, 1), expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := track.RecordAt(tt.day)
			assert.True(t, ok)
			assert.Equal(t, track.Records[tt.expected], record)
		})
	}
}

func TestRecordAtEmptyTrack(t *testing.T) {
	track := &Track{Name: "Empty"}
	_, ok := track.RecordAt(date(2025, 6, 10))
	assert.False(t, ok)

	_, ok = track.Latest()
	assert.False(t, ok)
}

func TestPlayerName(t *testing.T) {
	assert.Equal(t, "Mr Big", Record{Player: "Mr+Big"}.PlayerName())
	assert.Equal(t, "Zoë", Record{Player: "Zo%C3%AB"}.PlayerName())
	// Malformed escapes fall back to the raw value.
	assert.Equal(t, "50%", Record{Player: "50%"}.PlayerName())
}

func TestCorpusLookup(t *testing.T) {
	corpus := &Corpus{Tracks: []*Track{testTrack(), {Name: "DK Spaceport"}}}

	track, ok := corpus.Lookup("DK Spaceport")
	require.True(t, ok)
	assert.Equal(t, "DK Spaceport", track.Name)

	_, ok = corpus.Lookup("Rainbow Road")
	assert.False(t, ok)

	assert.Equal(t, []string{"Mario Bros. Circuit", "DK Spaceport"}, corpus.Names())
}

func TestTrackJSONSerialization(t *testing.T) {
	track := &Track{
		Name:    "Mario Bros. Circuit",
		Records: []Record{{TimeSeconds: 83.456, DateSet: date(2025, 6, 10), Player: "Alice", Country: "Japan"}},
	}

	data, err := json.Marshal(track)
	assert.NoError(t, err)

	expected := `{"name":"Mario Bros. Circuit","records":[{"time_seconds":83.456,"date_set":"2025-06-10","player":"Alice","country":"Japan"}]}`
	assert.JSONEq(t, expected, string(data))
}
