package timeline

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
)

// KeySelector picks the histogram key a record is counted under.
type KeySelector func(domain.Record) string

// KeyByPlayer counts days per (URL-encoded) player.
func KeyByPlayer(r domain.Record) string { return r.Player }

// KeyByCountry counts days per country.
func KeyByCountry(r domain.Record) string { return r.Country }

// KeySelectorFor maps "player" or "country" to its selector.
func KeySelectorFor(name string) (KeySelector, error) {
	switch name {
	case "player":
		return KeyByPlayer, nil
	case "country":
		return KeyByCountry, nil
	default:
		return nil, fmt.Errorf("unknown key %q, expected player or country", name)
	}
}

// Histogram maps a key to the number of days its records stood.
type Histogram map[string]int

// Add accumulates other into h.
func (h Histogram) Add(other Histogram) {
	for key, days := range other {
		h[key] += days
	}
}

// Total is the sum of all counts.
func (h Histogram) Total() int {
	total := 0
	for _, days := range h {
		total += days
	}
	return total
}

// Entry is one row of a ranked histogram.
type Entry struct {
	Key  string `json:"key"`
	Days int    `json:"days"`
}

// Ranked returns entries by days descending, ties broken by key.
func (h Histogram) Ranked() []Entry {
	entries := make([]Entry, 0, len(h))
	for key, days := range h {
		entries = append(entries, Entry{Key: key, Days: days})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Days != entries[j].Days {
			return entries[i].Days > entries[j].Days
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// DaysHeld counts how many days each key held the record on a track. Each
// record stands until the next one is set; the current record stands until
// the until day.
func DaysHeld(track *domain.Track, key KeySelector, until civil.Date) Histogram {
	h := make(Histogram)
	for i, record := range track.Records {
		end := until
		if i+1 < len(track.Records) {
			end = track.Records[i+1].DateSet
		}
		h[key(record)] += end.DaysSince(record.DateSet)
	}
	return h
}

// DaysHeldAll sums DaysHeld across every track of the corpus.
func DaysHeldAll(corpus *domain.Corpus, key KeySelector, until civil.Date) Histogram {
	total := make(Histogram)
	for _, track := range corpus.Tracks {
		total.Add(DaysHeld(track, key, until))
	}
	return total
}
