package crawl

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/types"
)

// SponsorBallots walks the development server's Messages page, looking
// for sponsor ballot opening and recirculation notifications and
// recording them as timeline events on the affected projects.
type SponsorBallots struct {
	rec   *reconcile.Reconciler
	fetch Fetcher
	run   *runctx.Run
}

// NewSponsorBallots builds the sponsor ballot notifications crawler.
func NewSponsorBallots(rec *reconcile.Reconciler, fetch Fetcher, run *runctx.Run) *SponsorBallots {
	return &SponsorBallots{rec: rec, fetch: fetch, run: run}
}

// subjectDesig pulls the designation out of a notification subject.
var subjectDesig = regexp.MustCompile(`P?(802.1[a-zA-Z]+|802[a-zA-Z])`)

// Run locates the Messages listing from the server's landing page and
// crawls it.
func (c *SponsorBallots) Run(ctx context.Context, devHost string) error {
	c.run.Logger.Info().Msg("Adding sponsor ballot info from development server")

	home := "http://" + devHost
	doc, err := c.fetch.GetDocument(ctx, home)
	if err != nil {
		return err
	}
	start := ""
	for _, a := range htmlquery.FindAll(doc, "a", "") {
		if htmlquery.TrimmedText(a) == "Messages" {
			start, err = resolveURL(home, htmlquery.Attr(a, "href"))
			if err != nil {
				return err
			}
			break
		}
	}
	if start == "" {
		return &errors.PageError{URL: home, Element: "Messages link"}
	}

	return walk(ctx, c.fetch, c.run, start, func(doc *html.Node, pageURL string) (State, error) {
		for _, row := range htmlquery.FindAll(doc, "tr", "b_data_row") {
			if err := c.row(ctx, row, pageURL); err != nil {
				return Terminal, err
			}
		}
		return nextFromPager(doc, pageURL)
	})
}

func (c *SponsorBallots) row(ctx context.Context, row *html.Node, pageURL string) error {
	tds := htmlquery.FindAll(row, "td", "")
	if len(tds) < 5 {
		c.run.Logger.Warn().Str("page", pageURL).Msg("Skipping short data row")
		return nil
	}

	subjLink := htmlquery.Find(tds[4], "a", "")
	if subjLink == nil {
		return nil
	}
	subject := htmlquery.TrimmedText(subjLink)
	c.run.Logger.Debug().Str("subject", subject).Msg("Examining announcement")

	m := subjectDesig.FindStringSubmatch(subject)
	if m == nil {
		return nil
	}
	desig := strings.TrimLeft(m[1], "P")
	if !c.run.Allows(desig) {
		c.run.Logger.Debug().
			Str("designation", desig).
			Str("subject", subject).
			Msg("Ignoring announcement")
		return nil
	}
	c.run.Logger.Debug().
		Str("designation", desig).
		Str("subject", subject).
		Msg("Considering announcement")

	notifURL, err := resolveURL(pageURL, htmlquery.Attr(subjLink, "href"))
	if err != nil {
		c.run.Logger.Warn().Err(err).Str("subject", subject).Msg("Skipping notification with bad link")
		return nil
	}

	var events []types.Event
	switch {
	case strings.HasPrefix(subject, "Sponsor Ballot Opening"):
		events, err = c.notification(ctx, notifURL, "Sponsor Ballot")
	case strings.HasPrefix(subject, "Ballot Recirculation"):
		events, err = c.notification(ctx, notifURL, "Sponsor Ballot recirc")
	default:
		return nil
	}
	if err != nil {
		c.run.Logger.Warn().Err(err).Str("subject", subject).Msg("Skipping unreadable notification")
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	proj, err := c.rec.FindProject(ctx, nil, desig, reconcile.MatchAllowRev)
	if err != nil {
		return err
	}
	if proj == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Expected project from SB notification not found in database")
		return nil
	}
	c.run.Logger.Debug().
		Str("designation", desig).
		Str("project", proj.Designation).
		Msg("Matching sponsor ballot to project")

	ok, err := c.withinPARWindow(ctx, proj, desig, events[0].Date)
	if err != nil || !ok {
		return err
	}
	_, err = c.rec.UpsertEvents(ctx, proj, events)
	return err
}

// withinPARWindow checks that a ballot date falls between a project's
// PAR Approval and PAR Expiry events. A project missing either bound,
// or a ballot outside the window, belongs to a different authorization
// of the same designation and is skipped.
func (c *SponsorBallots) withinPARWindow(ctx context.Context, proj *types.Project, desig string, date types.Date) (bool, error) {
	approval, err := c.rec.FindEvent(ctx, proj, "PAR Approval")
	if err != nil {
		return false, err
	}
	if approval == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Project has no PAR Approval date")
		return false, nil
	}
	if date.Before(approval.Date) {
		c.run.Logger.Debug().
			Str("designation", desig).
			Str("approval", approval.Date.String()).
			Msg("Not adding sponsor ballot as it starts before PAR approval")
		return false, nil
	}

	expiry, err := c.rec.FindEvent(ctx, proj, "PAR Expiry")
	if err != nil {
		return false, err
	}
	if expiry == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Project has no PAR Expiry date")
		return false, nil
	}
	if date.After(expiry.Date) {
		c.run.Logger.Info().
			Str("designation", desig).
			Str("expiry", expiry.Date.String()).
			Msg("Not adding sponsor ballot as it starts after PAR expiry")
		return false, nil
	}
	return true, nil
}

// notification follows a ballot notification link and reads the opening
// and closing dates from its prose block.
func (c *SponsorBallots) notification(ctx context.Context, link, name string) ([]types.Event, error) {
	doc, err := c.fetch.GetDocument(ctx, link)
	if err != nil {
		return nil, err
	}
	prose := htmlquery.Find(doc, "p", "prose")
	if prose == nil {
		return nil, &errors.PageError{URL: link, Element: "p.prose"}
	}

	var events []types.Event
	var opening types.Date
	haveOpening := false
	for _, kid := range htmlquery.FlatChildren(prose) {
		text := htmlquery.NodeText(kid)
		switch {
		case strings.Contains(text, "BALLOT OPENS:"):
			opening, haveOpening = dates.Parse(text)
		case strings.Contains(text, "BALLOT CLOSES:"):
			if !haveOpening {
				continue
			}
			if closing, ok := dates.Parse(text); ok {
				events = append(events, types.Event{
					Date:        opening,
					EndDate:     &closing,
					Name:        name,
					Description: name,
					URL:         link,
				})
			}
		}
	}
	return events, nil
}
