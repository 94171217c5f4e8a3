// Package announce parses ballot announcements from the mailing-list
// archive: the message title carried by the archive index, and the
// semi-structured plain-text body of the announcement itself.
//
// Bodies are segmented by a line-classification state machine. The
// wording of the section boundaries is stable across years of
// announcements even though everything between them is free text.
package announce

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/types"
)

// Announcement holds the fields extracted from a ballot announcement.
type Announcement struct {
	Name    string      // the TO: addressee line
	Date    types.Date  // posting date from the message header list
	Voters  string      // the voting-members section, verbatim
	Closing *types.Date // closing date, when the closing section parses
	Body    string      // the unclassified body text
}

// section is the state of the line classifier.
type section int

const (
	sectionBody section = iota
	sectionVoters
	sectionClosing
)

// transition switches the classifier to a new section when its predicate
// matches the current line. The matched line itself belongs to neither
// the old nor the new section.
type transition struct {
	match func(line string) bool
	to    section
}

var transitions = []transition{
	{prefixFold("The 802.1 voting members that are entitled"), sectionVoters},
	{prefixFold("The closing date of this"), sectionClosing},
	{containsFold("can be found at"), sectionBody},
}

// halt stops processing: a ruler line of = characters ends the useful
// part of every announcement.
var halt = regexp.MustCompile(`={10}`)

// Format-validity gate: both markers must start a line somewhere in the
// body before any field extraction is attempted.
var (
	gateResponses = regexp.MustCompile(`(?m)^NOTE.*ALL.*RESPONSES`)
	gateComments  = regexp.MustCompile(`(?m)^INCLUDE COMMENTS ONLY`)
)

var toLine = regexp.MustCompile(`(?m)^TO:[ \t]*(.+)`)

func prefixFold(prefix string) func(string) bool {
	lower := strings.ToLower(prefix)
	return func(line string) bool {
		return strings.HasPrefix(strings.ToLower(line), lower)
	}
}

func containsFold(sub string) func(string) bool {
	lower := strings.ToLower(sub)
	return func(line string) bool {
		return strings.Contains(strings.ToLower(line), lower)
	}
}

// Parse extracts the announcement fields from an archived message page.
// It returns a ParseError (and no partial data) when the body fails the
// format-validity gate, when the required TO: field is absent, or when
// the message header carries no usable posting date.
func Parse(doc *html.Node, url string) (*Announcement, error) {
	body := htmlquery.Find(doc, "body", "")
	if body == nil {
		return nil, errors.NewParseError("announcement", url, "no body element")
	}
	text := htmlquery.Text(body)

	if !gateResponses.MatchString(text) || !gateComments.MatchString(text) {
		return nil, errors.NewParseError("announcement", url, "not a ballot announcement form")
	}

	ann := &Announcement{}

	// The header list's Date item is the date the message was really
	// posted, which the Subject line routinely disagrees with.
	date, ok := headerDate(doc)
	if !ok {
		return nil, errors.NewParseError("announcement", url, "no posting date in message header")
	}
	ann.Date = date

	m := toLine.FindStringSubmatch(text)
	if m == nil {
		return nil, errors.NewParseError("announcement", url, "missing TO: field")
	}
	ann.Name = strings.TrimSpace(m[1])

	sections := segment(text)
	ann.Body = sections[sectionBody]
	ann.Voters = sections[sectionVoters]
	if closingText := sections[sectionClosing]; closingText != "" {
		if closing, ok := dates.Parse(closingText); ok {
			ann.Closing = &closing
		}
	}

	return ann, nil
}

// segment runs the line classifier over the body text. Each transition
// commits the text accumulated so far to the section being left, then
// accumulation restarts for the new section; a halt line commits the
// buffer to the current section and stops.
func segment(text string) map[section]string {
	sections := make(map[section]string)
	current := sectionBody
	var buf strings.Builder

	commit := func(to section) {
		sections[current] = strings.TrimSpace(buf.String())
		buf.Reset()
		current = to
	}

lines:
	for _, line := range strings.SplitAfter(text, "\n") {
		for _, t := range transitions {
			if t.match(line) {
				commit(t.to)
				continue lines
			}
		}
		if halt.MatchString(line) {
			break
		}
		buf.WriteString(line)
	}
	commit(current)
	return sections
}

// headerDate walks the message header list for the item whose emphasized
// label mentions Date, and parses the text that follows it.
func headerDate(doc *html.Node) (types.Date, bool) {
	list := htmlquery.Find(doc, "ul", "")
	if list == nil {
		return types.Date{}, false
	}
	for _, li := range htmlquery.FindAll(list, "li", "") {
		em := htmlquery.Find(li, "em", "")
		if em == nil || !strings.Contains(htmlquery.Text(em), "Date") {
			continue
		}
		var rest strings.Builder
		for sib := em.NextSibling; sib != nil; sib = sib.NextSibling {
			rest.WriteString(htmlquery.Text(sib))
		}
		value := strings.TrimLeft(rest.String(), ": ")
		return dates.Parse(value)
	}
	return types.Date{}, false
}
