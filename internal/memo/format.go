package memo

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
)

const (
	headerSuffix   = " last updated"
	blockSeparator = "\n\n"
	fieldSeparator = ","
	recordFields   = 4
)

// Encode renders the corpus in the cache file format:
//
//	<today> last updated
//
//	<track name>
//	<time>,<date>,<player>,<country>
//	...
//
// Tracks are separated by one blank line and the file has no trailing newline.
// A track without records has no valid block, so it is rejected.
func Encode(corpus *domain.Corpus, today civil.Date) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(today.String() + headerSuffix + blockSeparator)

	for i, track := range corpus.Tracks {
		if err := checkField("track name", track.Name); err != nil {
			return nil, err
		}
		if len(track.Records) == 0 {
			return nil, fmt.Errorf("%w: track %q has no records", ErrCacheFormat, track.Name)
		}
		buf.WriteString(track.Name + "\n")

		for j, record := range track.Records {
			if err := checkField("player", record.Player); err != nil {
				return nil, fmt.Errorf("track %q: %w", track.Name, err)
			}
			if err := checkField("country", record.Country); err != nil {
				return nil, fmt.Errorf("track %q: %w", track.Name, err)
			}

			buf.WriteString(strings.Join([]string{
				formatSeconds(record.TimeSeconds),
				record.DateSet.String(),
				record.Player,
				record.Country,
			}, fieldSeparator))

			if j < len(track.Records)-1 {
				buf.WriteString("\n")
			}
		}

		if i < len(corpus.Tracks)-1 {
			buf.WriteString(blockSeparator)
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a cache file produced by Encode and returns the corpus along
// with the date in its header.
func Decode(data []byte) (*domain.Corpus, civil.Date, error) {
	blocks := strings.Split(string(data), blockSeparator)

	updated, err := ParseHeader(blocks[0])
	if err != nil {
		return nil, civil.Date{}, err
	}

	corpus := &domain.Corpus{}
	for _, block := range blocks[1:] {
		if strings.TrimSpace(block) == "" {
			continue
		}
		track, err := decodeTrack(block)
		if err != nil {
			return nil, civil.Date{}, err
		}
		if _, dup := corpus.Lookup(track.Name); dup {
			return nil, civil.Date{}, fmt.Errorf("%w: track %q appears twice", ErrCacheFormat, track.Name)
		}
		corpus.Tracks = append(corpus.Tracks, track)
	}

	return corpus, updated, nil
}

// ParseHeader reads the update date from the first line of a cache file.
func ParseHeader(line string) (civil.Date, error) {
	line = strings.TrimRight(line, "\r\n")
	token, _, _ := strings.Cut(line, " ")

	d, err := civil.ParseDate(token)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: header %q: %v", ErrCacheFormat, line, err)
	}
	return d, nil
}

func decodeTrack(block string) (*domain.Track, error) {
	lines := strings.Split(block, "\n")
	track := &domain.Track{Name: lines[0]}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		record, err := decodeRecord(line)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", track.Name, err)
		}
		track.Records = append(track.Records, record)
	}

	if len(track.Records) == 0 {
		return nil, fmt.Errorf("%w: track %q has no records", ErrCacheFormat, track.Name)
	}
	return track, nil
}

func decodeRecord(line string) (domain.Record, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != recordFields {
		return domain.Record{}, fmt.Errorf("%w: record %q has %d fields, want %d", ErrCacheFormat, line, len(fields), recordFields)
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: time in %q: %v", ErrCacheFormat, line, err)
	}
	dateSet, err := civil.ParseDate(fields[1])
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: date in %q: %v", ErrCacheFormat, line, err)
	}

	return domain.Record{
		TimeSeconds: seconds,
		DateSet:     dateSet,
		Player:      fields[2],
		Country:     fields[3],
	}, nil
}

// formatSeconds writes times the way the cache has always stored them:
// shortest form, always with a decimal point ("83.456", "90.0").
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func checkField(name, value string) error {
	if strings.ContainsAny(value, ",\n") {
		return fmt.Errorf("%s %q contains a comma or newline", name, value)
	}
	return nil
}
