package domain

import (
	"net/url"
	"sort"

	"cloud.google.com/go/civil"
)

// Record is a single world record event on a track.
type Record struct {
	TimeSeconds float64    `json:"time_seconds"`
	DateSet     civil.Date `json:"date_set"`
	// Player is kept URL-encoded, exactly as the source publishes it.
	Player  string `json:"player"`
	Country string `json:"country"`
}

// PlayerName returns the decoded player name for display.
func (r Record) PlayerName() string {
	name, err := url.QueryUnescape(r.Player)
	if err != nil {
		return r.Player
	}
	return name
}

// Track represents the record history of a single race track.
// Records are ordered by DateSet ascending with at most one record per date.
type Track struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
}

// RecordAt returns the record in effect on day d. Days before the first record
// clamp to the first record, days after the last clamp to the last.
// The boolean is false only when the track has no records.
func (t *Track) RecordAt(d civil.Date) (Record, bool) {
	if len(t.Records) == 0 {
		return Record{}, false
	}

	// First record set strictly after d; its predecessor is in effect.
	i := sort.Search(len(t.Records), func(i int) bool {
		return t.Records[i].DateSet.After(d)
	})
	if i == 0 {
		return t.Records[0], true
	}
	return t.Records[i-1], true
}

// Latest returns the current record of the track.
func (t *Track) Latest() (Record, bool) {
	if len(t.Records) == 0 {
		return Record{}, false
	}
	return t.Records[len(t.Records)-1], true
}

// Corpus is the full set of tracks known for a run, in index page order.
type Corpus struct {
	Tracks []*Track `json:"tracks"`
}

// Lookup finds a track by its display name.
func (c *Corpus) Lookup(name string) (*Track, bool) {
	for _, t := range c.Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns the track names in corpus order.
func (c *Corpus) Names() []string {
	names := make([]string, 0, len(c.Tracks))
	for _, t := range c.Tracks {
		names = append(names, t.Name)
	}
	return names
}
