package crawl

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/types"
)

// ActivePARs walks the development server's Active PARs listing. Each
// data row is an authorized project; the row and its PAR detail page
// yield timeline events and refreshed title/PAR-URL fields for a
// project that must already exist in the tracker.
type ActivePARs struct {
	rec   *reconcile.Reconciler
	fetch Fetcher
	run   *runctx.Run
}

// NewActivePARs builds the Active PARs crawler.
func NewActivePARs(rec *reconcile.Reconciler, fetch Fetcher, run *runctx.Run) *ActivePARs {
	return &ActivePARs{rec: rec, fetch: fetch, run: run}
}

// Run crawls the listing starting from the working group's filter view.
func (c *ActivePARs) Run(ctx context.Context, devHost string) error {
	c.run.Logger.Info().Msg("Updating projects from Active PARs page on development server")
	start := "http://" + devHost + "/pub/active-pars?s=802.1"
	return walk(ctx, c.fetch, c.run, start, func(doc *html.Node, pageURL string) (State, error) {
		for _, row := range htmlquery.FindAll(doc, "tr", "b_data_row") {
			if err := c.row(ctx, row, pageURL); err != nil {
				return Terminal, err
			}
		}
		return nextFromPager(doc, pageURL)
	})
}

// row processes one Active PARs data row. Rows that fail to resolve are
// skipped; only reconciler write failures abort the crawl.
func (c *ActivePARs) row(ctx context.Context, row *html.Node, pageURL string) error {
	tds := htmlquery.FindAll(row, "td", "")
	if len(tds) < 5 {
		c.run.Logger.Warn().Str("page", pageURL).Msg("Skipping short data row")
		return nil
	}

	link := htmlquery.Find(tds[1], "a", "")
	if link == nil {
		c.run.Logger.Warn().Str("page", pageURL).Msg("Skipping row without designation link")
		return nil
	}
	desig := htmlquery.TrimmedText(link)
	if !parPattern.MatchString(desig) {
		return nil
	}
	c.run.Logger.Debug().Str("designation", desig).Msg("Considering project")

	var events []types.Event
	parURL := ""
	if a := htmlquery.Find(tds[3], "a", ""); a != nil {
		parURL = htmlquery.TrimmedText(a)
	} else {
		parURL = htmlquery.TrimmedText(tds[3])
	}
	if noscript := htmlquery.Find(tds[4], "noscript", ""); noscript != nil {
		if approval, ok := dates.Parse(htmlquery.TrimmedText(noscript)); ok {
			events = append(events, types.Event{
				Date:        approval,
				Name:        "PAR Approval",
				Description: "PAR Approval: " + approval.String(),
			})
		}
	}

	detailLink, err := resolveURL(pageURL, htmlquery.Attr(link, "href"))
	if err != nil {
		c.run.Logger.Warn().Err(err).Str("designation", desig).Msg("Skipping row with bad detail link")
		return nil
	}
	details, err := fetchPARPage(ctx, c.fetch, c.run, detailLink)
	if err != nil {
		c.run.Logger.Warn().Err(err).Str("designation", desig).Msg("Skipping row with unreadable PAR page")
		return nil
	}
	events = append(events, details.Events...)

	desig = strings.TrimLeft(desig, "P")
	proj, err := c.rec.FindProject(ctx, nil, desig, reconcile.MatchAllowRev)
	if err != nil {
		return err
	}
	if proj == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Expected project from Active PARs not found in database")
		return nil
	}
	c.run.Logger.Debug().
		Str("designation", desig).
		Str("project", proj.Designation).
		Msg("Matching PAR to project")

	if len(events) > 0 {
		if _, err := c.rec.UpsertEvents(ctx, proj, events); err != nil {
			return err
		}
	}
	if details.Title != "" || parURL != "" {
		patch := map[string]any{"title": details.Title, "par_url": parURL}
		if err := c.rec.UpdateProject(ctx, proj, patch); err != nil {
			return err
		}
	}
	return nil
}
