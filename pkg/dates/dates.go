// Package dates extracts calendar dates from free text. External sources
// write dates every way imaginable ("3 Jan 2018", "13-Feb-2019",
// "PAR Approval Date: 05-Dec-2016", "jan 18"), so extraction is lenient:
// Parse never fails with an error, it reports absence instead, and callers
// treat an absent date as "no fact available".
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/partrack/partrack/pkg/types"
)

// shortForm matches a bare "<month-abbrev><2-digit-year>" value such as
// "jan 18" or "sep'19", which the status spreadsheet uses for quarter-ish
// deadlines. The whole (trimmed) input must be the short form; otherwise
// "3 Jan 2018" would lose its day.
var shortForm = regexp.MustCompile(`^(?i)(jan|feb|mar|apr|may|june?|july?|aug|sep|oct|nov|dec)\s*'?(\d\d)$`)

var shortMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"june": time.June, "jul": time.July, "july": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// extractor pairs a substring pattern with the layouts that parse it.
// The patterns are tried in order against text that did not parse whole,
// pulling an embedded date out of label/value prose such as
// "BALLOT OPENS: 12-Jan-2018".
type extractor struct {
	pattern *regexp.Regexp
	layouts []string
}

var extractors = []extractor{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), []string{"2006-01-02"}},
	{regexp.MustCompile(`\d{1,2}-[A-Za-z]{3,9}-\d{4}`), []string{"2-Jan-2006", "2-January-2006"}},
	{regexp.MustCompile(`\d{1,2}\s+[A-Za-z]{3,9},?\s+\d{4}`), []string{"2 Jan 2006", "2 January 2006", "2 Jan, 2006", "2 January, 2006"}},
	{regexp.MustCompile(`[A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4}`), []string{"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "January 2 2006"}},
	{regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`), []string{"1/2/2006", "01/02/2006"}},
}

// Parse reads a calendar date out of text. It accepts ISO and natural
// forms, the spreadsheet's short "<mon><yy>" form, and dates embedded in
// surrounding prose. The second result is false when no date could be
// found; Parse never returns an error and never panics on any input.
func Parse(text string) (types.Date, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return types.Date{}, false
	}

	if m := shortForm.FindStringSubmatch(s); m != nil {
		month := shortMonths[strings.ToLower(m[1])]
		year := 2000 + atoi2(m[2])
		return types.NewDate(year, month, 1), true
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return types.DateOf(t), true
	}

	for _, ex := range extractors {
		match := ex.pattern.FindString(s)
		if match == "" {
			continue
		}
		for _, layout := range ex.layouts {
			if t, err := time.Parse(layout, match); err == nil {
				return types.DateOf(t), true
			}
		}
	}

	return types.Date{}, false
}

// atoi2 converts a two-digit string; inputs are pre-validated by regexp.
func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
