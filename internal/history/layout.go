package history

import (
	"fmt"
	"strings"
)

// rowLayout selects the field offsets used to decode a record row.
type rowLayout int

const (
	plainRow rowLayout = iota
	// spanningRow is a row merged with the one above it because the same
	// player keeps the record, which shifts every cell right.
	spanningRow
)

const spanningMarker = "rowspan=2"

func (l rowLayout) String() string {
	if l == spanningRow {
		return "spanning"
	}
	return "plain"
}

// fieldRule locates a field inside a single line. A rule either has a fixed
// width or runs up to (not including) its terminator.
type fieldRule struct {
	offset     int
	width      int
	terminator byte
}

type fieldLayout struct {
	date    fieldRule
	player  fieldRule
	country fieldRule
}

var layouts = map[rowLayout]fieldLayout{
	plainRow: {
		date:    fieldRule{offset: 16, width: 10},
		player:  fieldRule{offset: 46, terminator: '"'},
		country: fieldRule{offset: 36, terminator: '"'},
	},
	spanningRow: {
		date:    fieldRule{offset: 26, width: 10},
		player:  fieldRule{offset: 56, terminator: '"'},
		country: fieldRule{offset: 46, terminator: '"'},
	},
}

// layoutOf picks the layout for one line. Each cell line carries its own
// marker, so the choice is made per line rather than per row.
func layoutOf(line string) fieldLayout {
	if strings.Contains(line, spanningMarker) {
		return layouts[spanningRow]
	}
	return layouts[plainRow]
}

func (r fieldRule) extract(line string) (string, error) {
	if r.offset > len(line) {
		return "", fmt.Errorf("%w: line too short for offset %d: %q", ErrFieldFormat, r.offset, line)
	}

	if r.width > 0 {
		end := r.offset + r.width
		if end > len(line) {
			return "", fmt.Errorf("%w: line too short for %d characters at offset %d: %q", ErrFieldFormat, r.width, r.offset, line)
		}
		return line[r.offset:end], nil
	}

	end := strings.IndexByte(line[r.offset:], r.terminator)
	if end == -1 {
		return "", fmt.Errorf("%w: no %q after offset %d: %q", ErrFieldFormat, r.terminator, r.offset, line)
	}
	return line[r.offset : r.offset+end], nil
}
