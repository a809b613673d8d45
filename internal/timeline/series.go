package timeline

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
)

// Point is one step of a record progression chart.
type Point struct {
	Date  civil.Date `json:"date"`
	Value float64    `json:"value"`
	Label string     `json:"label"`
	// ColorKey groups points that should share a color.
	ColorKey string `json:"color_key"`
	// Trailing marks the point that extends the last step to the end of the
	// chart; it is not a record.
	Trailing bool `json:"trailing,omitempty"`
}

// Series is a labelled progression ready for a chart renderer.
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// TrackSeries renders a track's progression as a step series, extended with a
// trailing point on the until day holding the current time.
func TrackSeries(track *domain.Track, until civil.Date) Series {
	series := Series{
		Label:  fmt.Sprintf("%s World Record Progression", track.Name),
		Points: make([]Point, 0, len(track.Records)+1),
	}
	for _, record := range track.Records {
		series.Points = append(series.Points, recordPoint(record))
	}

	if latest, ok := track.Latest(); ok {
		trailing := recordPoint(latest)
		trailing.Date = until
		trailing.Trailing = true
		series.Points = append(series.Points, trailing)
	}
	return series
}

// CombinedSeries renders the combined track, one point per day.
func CombinedSeries(combined *CombinedTrack) Series {
	series := Series{
		Label:  fmt.Sprintf("%s World Record Progression", combined.Name),
		Points: make([]Point, 0, len(combined.Records)),
	}
	for _, record := range combined.Records {
		series.Points = append(series.Points, recordPoint(record))
	}
	return series
}

func recordPoint(r domain.Record) Point {
	return Point{
		Date:     r.DateSet,
		Value:    r.TimeSeconds,
		Label:    fmt.Sprintf("%s (%s)", r.PlayerName(), r.Country),
		ColorKey: r.Player,
	}
}
