package history

import (
	"fmt"
	"log/slog"

	"github.com/jaki95/mkw-records/internal/domain"
)

// ParseTrack extracts, decodes and deduplicates the records on one track page.
func ParseTrack(name, page string) (*domain.Track, error) {
	fragments, err := ExtractFragments(page)
	if err != nil {
		return nil, fmt.Errorf("track %q: %w", name, err)
	}

	records, err := BuildRecords(fragments)
	if err != nil {
		return nil, fmt.Errorf("track %q: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("track %q: %w: no record rows found", name, ErrMarkupShape)
	}

	deduped := Dedupe(records)
	slog.Debug("Parsed track history", "track", name, "rows", len(records), "records", len(deduped))

	return &domain.Track{Name: name, Records: deduped}, nil
}

// BuildRecords decodes fragments in order. Rows must be oldest first; a row
// dated before its predecessor is rejected as a markup change.
func BuildRecords(fragments []string) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(fragments))
	for i, fragment := range fragments {
		record, err := DecodeFragment(fragment)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		if n := len(records); n > 0 && record.DateSet.Before(records[n-1].DateSet) {
			return nil, fmt.Errorf("%w: row %d dated %s precedes %s", ErrMarkupShape, i, record.DateSet, records[n-1].DateSet)
		}
		records = append(records, record)
	}
	return records, nil
}

// Dedupe keeps one record per date. When consecutive records share a date the
// last one wins.
func Dedupe(records []domain.Record) []domain.Record {
	deduped := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if n := len(deduped); n > 0 && deduped[n-1].DateSet == record.DateSet {
			deduped[n-1] = record
			continue
		}
		deduped = append(deduped, record)
	}
	return deduped
}
