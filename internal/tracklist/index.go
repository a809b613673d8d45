package tracklist

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaki95/mkw-records/internal/history"
)

const (
	historySectionMarker = "<u>WR History</u>"
	otherSectionMarker   = "<u>Other</u>"
)

// ParseNames returns the track names listed in the world record history
// section of the site index, in page order. Duplicate names are dropped.
func ParseNames(indexPage string) ([]string, error) {
	start := strings.Index(indexPage, historySectionMarker)
	if start == -1 {
		return nil, fmt.Errorf("%w: %s section not found", history.ErrMarkupShape, historySectionMarker)
	}
	end := strings.Index(indexPage[start:], otherSectionMarker)
	if end == -1 {
		return nil, fmt.Errorf("%w: %s section not found after %s", history.ErrMarkupShape, otherSectionMarker, historySectionMarker)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexPage[start : start+end]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index section: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no tracks listed in %s section", history.ErrMarkupShape, historySectionMarker)
	}

	slog.Debug("Parsed track index", "tracks", len(names))
	return names, nil
}
