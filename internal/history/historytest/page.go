// Package historytest builds track history pages shaped like the ones the
// record site serves, for use in tests.
package historytest

import (
	"fmt"
	"strings"
)

// Row is one record row of a history table.
type Row struct {
	Date    string // YYYY-MM-DD
	Time    string // M'SS"mmm
	Player  string
	Country string
	// Spanning renders the row as merged with the row above it.
	Spanning bool
}

// DateLine renders the date cell line.
func DateLine(date string, spanning bool) string {
	if spanning {
		return "<tr><td rowspan=2 class=x>" + date + "</td>"
	}
	return "<tr><td class=x>" + date + "</td>"
}

// TimeLine renders the time cell line.
func TimeLine(t string) string {
	return `<td class="time">` + t + `</td>`
}

// PlayerLine renders the player cell line.
func PlayerLine(player string, spanning bool) string {
	cell := "<td>"
	if spanning {
		cell = "<td rowspan=2>"
	}
	return fmt.Sprintf(`%s<a href="profile.php?pid=1&amp;n=" title="%s">%s</a></td>`, cell, player, player)
}

// CountryLine renders the country cell line.
func CountryLine(country string, spanning bool) string {
	cell := "<td>"
	if spanning {
		cell = "<td rowspan=2>"
	}
	return fmt.Sprintf(`%s<img src="flags/jpn.png" title="%s"></td>`, cell, country)
}

// Fragment renders a row the way ExtractFragments slices it out of a page:
// starting at the previous row's closing tag.
func Fragment(r Row) string {
	return "</tr>" + rowBody(r)
}

func rowBody(r Row) string {
	return strings.Join([]string{
		"",
		"<!-- record -->",
		DateLine(r.Date, r.Spanning),
		TimeLine(r.Time),
		PlayerLine(r.Player, r.Spanning),
		CountryLine(r.Country, r.Spanning),
		"<td>video</td>",
		"",
	}, "\n")
}

// Page renders a full history page holding rows oldest first, preceded by the
// table header, a pre-release placeholder row and a spacer row.
func Page(title string, rows ...Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>\n", title)
	b.WriteString("<h2>Records</h2>\n<table><tr><td>1'10\"000</td></tr></table>\n")
	b.WriteString("<h2>History</h2>\n<table>\n<tr>\n<th>Date</th>\n<th>Time</th>\n<th>Player</th>\n<th>Nation</th>\n</tr>")
	b.WriteString(rowBody(Row{Date: "2025-05-01", Time: "9'59\"999", Player: "Prerelease", Country: "Unknown"}))
	b.WriteString("</tr>\n<tr><td colspan=4></td>\n")
	for _, r := range rows {
		b.WriteString("</tr>")
		b.WriteString(rowBody(r))
	}
	b.WriteString("</tr>\n</table>\n</body></html>\n")
	return b.String()
}

// IndexPage renders a site index listing the given track names in its
// world record history section.
func IndexPage(names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>\n<p><u>Records</u> <a href=\"records.php\">Current</a></p>\n")
	b.WriteString("<p><u>WR History</u><br>\n")
	for _, name := range names {
		fmt.Fprintf(&b, "<a href=\"display.php?track=%s\">%s</a><br>\n", strings.ReplaceAll(name, " ", "+"), name)
	}
	b.WriteString("</p>\n<p><u>Other</u> <a href=\"faq.php\">FAQ</a></p>\n</body></html>\n")
	return b.String()
}
