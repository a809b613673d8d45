// Package history turns a track's world record history page into records.
//
// The page is not parsed as HTML. Rows are sliced out between row-closing
// tags and decoded from fixed character offsets, so any change to the site's
// markup shows up here first as ErrMarkupShape or ErrFieldFormat.
package history

import (
	"fmt"
	"strings"
)

const (
	historyMarker = "<h2>History</h2>"
	rowEndMarker  = "</tr>"

	// Record rows carry date, time, player and country sub-lines; header and
	// spacer rows are shorter.
	minRecordLines = 7

	// The table header and the pre-release placeholder row.
	skippedRows = 2
)

// ExtractFragments returns the raw record rows of a track page in document
// order. The site lists records oldest first and callers rely on that order.
func ExtractFragments(page string) ([]string, error) {
	start := strings.Index(page, historyMarker)
	if start == -1 {
		return nil, fmt.Errorf("%w: %s section not found", ErrMarkupShape, historyMarker)
	}

	var fragments []string
	for {
		next := strings.Index(page[start+1:], rowEndMarker)
		if next == -1 {
			break
		}
		end := start + 1 + next

		fragment := page[start:end]
		if strings.Count(fragment, "\n")+1 >= minRecordLines {
			fragments = append(fragments, fragment)
		}
		start = end
	}

	if len(fragments) <= skippedRows {
		return nil, nil
	}
	return fragments[skippedRows:], nil
}
