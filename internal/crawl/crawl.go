// Package crawl walks the paginated external listings — the development
// server's Active PARs, PAR report and ballot notification pages, and
// the mailing-list archive index — extracting per-row facts and handing
// them to the reconciler. Rows that fail to parse are skipped and
// logged; a page whose next-page control cannot be read stops the crawl
// with an error, because continuing without a reliable pager would
// silently drop the tail of the listing.
package crawl

import (
	"context"
	"net/url"
	"regexp"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/errors"
)

// Fetcher provides authenticated HTML documents. The development server
// client and the archive client both satisfy it.
type Fetcher interface {
	GetDocument(ctx context.Context, url string) (*html.Node, error)
}

// State is the pagination state of a crawl: either the link to the next
// page, or terminal.
type State struct {
	link string
}

// Next returns the state pointing at the given page.
func Next(link string) State { return State{link: link} }

// Terminal is the finished state.
var Terminal = State{}

// Done reports whether the crawl has run out of pages.
func (s State) Done() bool { return s.link == "" }

// Link returns the next page URL; empty when terminal.
func (s State) Link() string { return s.link }

// parPattern retains rows whose designation belongs to the working
// group: dotted amendments, single-letter standards, or the base
// standard itself.
var parPattern = regexp.MustCompile(`802.1[a-zA-Z]+|802[a-zA-Z]|802$`)

// walk drives a crawl loop: fetch the current page, let visit process
// its rows and name the next page, stop on the terminal state or the
// configured page bound. Reaching the bound is clean termination.
func walk(ctx context.Context, fetch Fetcher, run *runctx.Run, start string, visit func(doc *html.Node, pageURL string) (State, error)) error {
	state := Next(start)
	for pages := 0; !state.Done(); pages++ {
		if run.PageLimit > 0 && pages >= run.PageLimit {
			run.Logger.Info().Int("pages", pages).Msg("Page limit reached; stopping crawl")
			return nil
		}
		run.Logger.Debug().Str("page", state.Link()).Msg("Fetching listing page")
		doc, err := fetch.GetDocument(ctx, state.Link())
		if err != nil {
			return err
		}
		state, err = visit(doc, state.Link())
		if err != nil {
			return err
		}
	}
	return nil
}

// nextFromPager reads the trailing pager control of a development
// server listing. The pager's last cell is blank on the final page;
// otherwise its last anchor is the next-page link. A listing page
// without a pager is malformed.
func nextFromPager(doc *html.Node, pageURL string) (State, error) {
	pager := htmlquery.Find(doc, "div", "pager")
	if pager == nil {
		return Terminal, &errors.PageError{URL: pageURL, Element: "div.pager"}
	}
	cells := htmlquery.FlatChildren(pager)
	if len(cells) == 0 {
		return Terminal, &errors.PageError{URL: pageURL, Element: "div.pager cells"}
	}
	if htmlquery.TrimmedText(cells[len(cells)-1]) == "" {
		return Terminal, nil
	}
	anchors := htmlquery.FindAll(pager, "a", "")
	if len(anchors) == 0 {
		return Terminal, &errors.PageError{URL: pageURL, Element: "div.pager links"}
	}
	href := htmlquery.Attr(anchors[len(anchors)-1], "href")
	next, err := resolveURL(pageURL, href)
	if err != nil {
		return Terminal, &errors.PageError{URL: pageURL, Element: "div.pager link", Err: err}
	}
	return Next(next), nil
}

// nextFromIndex reads the navigation row of a mail-archive index page.
// The second table row's fifth cell-level child is the next-period
// link; on the newest page it degrades to plain text.
func nextFromIndex(doc *html.Node, baseURL, pageURL string) (State, error) {
	rows := htmlquery.FindAll(doc, "tr", "")
	if len(rows) < 2 {
		return Terminal, &errors.PageError{URL: pageURL, Element: "navigation table"}
	}
	var cellKids []*html.Node
	for _, td := range htmlquery.FindAll(rows[1], "td", "") {
		cellKids = append(cellKids, htmlquery.FlatChildren(td)...)
	}
	if len(cellKids) < 5 {
		return Terminal, &errors.PageError{URL: pageURL, Element: "navigation cells"}
	}
	nav := cellKids[4]
	if !htmlquery.IsElement(nav, "a") {
		return Terminal, nil
	}
	href := htmlquery.Attr(nav, "href")
	if href == "" {
		return Terminal, nil
	}
	return Next(baseURL + "/" + href), nil
}

// resolveURL resolves a possibly-relative href against the page it
// appeared on.
func resolveURL(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
