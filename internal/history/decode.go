package history

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/internal/domain"
)

// Line positions inside a record fragment.
const (
	dateLine    = 2
	timeLine    = 3
	playerLine  = 4
	countryLine = 5
)

// DecodeFragment decodes one record row fragment produced by ExtractFragments.
func DecodeFragment(fragment string) (domain.Record, error) {
	lines := strings.Split(fragment, "\n")
	if len(lines) < minRecordLines {
		return domain.Record{}, fmt.Errorf("%w: record row has %d lines, need at least %d", ErrMarkupShape, len(lines), minRecordLines)
	}

	dateSet, err := parseDate(lines[dateLine])
	if err != nil {
		return domain.Record{}, err
	}

	seconds, err := parseTime(lines[timeLine])
	if err != nil {
		return domain.Record{}, err
	}

	player, err := layoutOf(lines[playerLine]).player.extract(lines[playerLine])
	if err != nil {
		return domain.Record{}, fmt.Errorf("player: %w", err)
	}

	country, err := layoutOf(lines[countryLine]).country.extract(lines[countryLine])
	if err != nil {
		return domain.Record{}, fmt.Errorf("country: %w", err)
	}

	return domain.Record{
		TimeSeconds: seconds,
		DateSet:     dateSet,
		Player:      player,
		Country:     country,
	}, nil
}

func parseDate(line string) (civil.Date, error) {
	text, err := layoutOf(line).date.extract(line)
	if err != nil {
		return civil.Date{}, fmt.Errorf("date: %w", err)
	}

	d, err := civil.ParseDate(text)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: date %q: %v", ErrFieldFormat, text, err)
	}
	return d, nil
}

// parseTime reads a time written as M'SS"mmm, e.g. 1'23"456.
func parseTime(line string) (float64, error) {
	quote := strings.IndexByte(line, '\'')
	if quote < 1 || quote+7 > len(line) {
		return 0, fmt.Errorf("%w: no time found in %q", ErrFieldFormat, line)
	}
	text := line[quote-1 : quote+7]

	minutes, ok := atoiDigits(text[0:1])
	if !ok {
		return 0, fmt.Errorf("%w: minutes in %q", ErrFieldFormat, text)
	}
	seconds, ok := atoiDigits(text[2:4])
	if !ok {
		return 0, fmt.Errorf("%w: seconds in %q", ErrFieldFormat, text)
	}
	millis, ok := atoiDigits(text[5:8])
	if !ok {
		return 0, fmt.Errorf("%w: milliseconds in %q", ErrFieldFormat, text)
	}

	return float64(minutes*60+seconds) + float64(millis)/1000, nil
}

// atoiDigits parses s when it is made only of ASCII digits.
func atoiDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
