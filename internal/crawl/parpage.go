package crawl

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/types"
)

// PARDetails are the facts extracted from a project's PAR detail page.
type PARDetails struct {
	Title  string
	ParURL string
	Events []types.Event
}

// fetchPARPage follows a row's detail link and extracts the PAR fields.
func fetchPARPage(ctx context.Context, fetch Fetcher, run *runctx.Run, link string) (PARDetails, error) {
	doc, err := fetch.GetDocument(ctx, link)
	if err != nil {
		return PARDetails{}, err
	}
	return parsePARPage(doc, link, run)
}

// parsePARPage scans the PAR content box, a flat sequence of label and
// value fragments, testing each fragment against the recognized
// headings in order. Dates that fail to parse yield no event.
func parsePARPage(doc *html.Node, pageURL string, run *runctx.Run) (PARDetails, error) {
	box := htmlquery.Find(doc, "div", "tab-content-box")
	if box == nil {
		return PARDetails{}, &errors.PageError{URL: pageURL, Element: "div.tab-content-box"}
	}

	details := PARDetails{}

	// The task menu's first link is the downloadable PAR itself.
	if menu := htmlquery.Find(box, "div", "task_menu"); menu != nil {
		if a := htmlquery.Find(menu, "a", ""); a != nil {
			if resolved, err := resolveURL(pageURL, htmlquery.Attr(a, "href")); err == nil {
				details.ParURL = resolved
			}
		}
	}

	dateEvent := func(text, name string) {
		if date, ok := dates.Parse(text); ok {
			details.Events = append(details.Events, types.Event{
				Date:        date,
				Name:        name,
				Description: name + ": " + date.String(),
			})
		}
	}

	// ptype distinguishes a fresh PAR from a PAR modification, which
	// reuses the request/approval headings with different meaning.
	ptype := ""
	kids := htmlquery.FlatChildren(box)
	for i, kid := range kids {
		label := htmlquery.NodeText(kid)
		next := ""
		if i+1 < len(kids) {
			next = htmlquery.NodeText(kids[i+1])
		}

		switch {
		case strings.Contains(label, "Type of Project"):
			switch {
			case strings.Contains(next, "Modify Existing"):
				ptype = "Modification"
			case strings.Contains(next, "Revision to"):
				ptype = "Revision"
			case strings.Contains(next, "Amendment to"):
				ptype = "Amendment"
			case strings.Contains(next, "New IEEE"):
				ptype = "New"
			}
		case strings.Contains(label, "PAR Request Date"):
			name := "PAR Requested"
			if ptype == "Modification" {
				name = "PAR Modification Requested"
			}
			dateEvent(next, name)
		case strings.Contains(label, "PAR Approval Date"):
			name := "PAR Approval"
			if ptype == "Modification" {
				name = "PAR Modification Approval"
			}
			dateEvent(next, name)
		case strings.Contains(label, "PAR Expiration Date"):
			dateEvent(next, "PAR Expiry")
		case strings.Contains(label, "Approved on"):
			// PAR modifications quote the root PAR's approval inline.
			dateEvent(label, "PAR Approval")
		case strings.Contains(label, "2.1 Title"):
			details.Title = parTitle(kid, next)
		case strings.Contains(label, "4.2") && strings.Contains(label, "Initial Sponsor Ballot"):
			dateEvent(next, "Expected Initial Sponsor Ballot")
		case strings.Contains(label, "4.3") && strings.Contains(label, "RevCom"):
			dateEvent(next, "Expected RevCom")
		}
	}

	run.Logger.Debug().
		Str("page", pageURL).
		Int("events", len(details.Events)).
		Msg("Parsed PAR page")
	return details, nil
}

// parTitle extracts the full title. Some page layouts put label and
// value in one table row; then the value lives in the row's own
// b_align_nw cell rather than the following fragment.
func parTitle(labelNode *html.Node, next string) string {
	if cell := htmlquery.Find(labelNode, "td", "b_align_nw"); cell != nil {
		kids := htmlquery.FlatChildren(cell)
		if len(kids) > 1 {
			return htmlquery.NodeText(kids[1])
		}
		return htmlquery.TrimmedText(cell)
	}
	return strings.TrimSpace(next)
}
