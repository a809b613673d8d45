// Package timeline derives views over record histories: the combined
// all-tracks series, days-held histograms and chart series.
package timeline

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
)

const (
	CombinedName    = "All Tracks Combined"
	CombinedPlayer  = "Community"
	CombinedCountry = "World"
)

// ErrOutOfRange means a requested day range reaches outside the tracked period.
var ErrOutOfRange = errors.New("date range outside the tracked period")

// CheckRange returns an error wrapping ErrOutOfRange unless from and to both
// fall within [first, last].
func CheckRange(from, to, first, last civil.Date) error {
	for _, d := range []civil.Date{from, to} {
		if d.Before(first) || d.After(last) {
			return fmt.Errorf("%w: %s is not between %s and %s", ErrOutOfRange, d, first, last)
		}
	}
	return nil
}

// CombinedTrack is a dense daily series, one record per calendar day. Unlike
// a domain.Track it is not an event list: consecutive days may repeat values.
type CombinedTrack struct {
	Name    string          `json:"name"`
	Records []domain.Record `json:"records"`
}

// Combined sums, for every day from from to to inclusive, the record time in
// effect on each track of the corpus. Empty tracks contribute nothing.
func Combined(corpus *domain.Corpus, from, to civil.Date) *CombinedTrack {
	combined := &CombinedTrack{Name: CombinedName}
	if to.Before(from) {
		return combined
	}

	combined.Records = make([]domain.Record, 0, to.DaysSince(from)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		total := 0.0
		for _, track := range corpus.Tracks {
			if record, ok := track.RecordAt(d); ok {
				total += record.TimeSeconds
			}
		}

		combined.Records = append(combined.Records, domain.Record{
			TimeSeconds: total,
			DateSet:     d,
			Player:      CombinedPlayer,
			Country:     CombinedCountry,
		})
	}
	return combined
}

// At returns the combined record for day d.
func (c *CombinedTrack) At(d civil.Date) (domain.Record, bool) {
	if len(c.Records) == 0 {
		return domain.Record{}, false
	}
	i := d.DaysSince(c.Records[0].DateSet)
	if i < 0 || i >= len(c.Records) {
		return domain.Record{}, false
	}
	return c.Records[i], true
}
