package crawl

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/announce"
	"github.com/partrack/partrack/pkg/types"
)

// Tally counts what a mail-archive crawl did, for the end-of-run
// summary.
type Tally struct {
	Messages       int // list items examined
	Responses      int // replies to earlier threads, skipped
	MalformedTitle int // titles not matching the announcement pattern
	Ballots        int // titles that did match
	Unparseable    int // announcement bodies that failed to parse
	EventsAdded    int // events actually created
}

// MailArchive walks the mailing-list archive index pages, reverse
// chronologically, turning ballot announcements into timeline events.
type MailArchive struct {
	rec   *reconcile.Reconciler
	fetch Fetcher
	run   *runctx.Run
	tally Tally
}

// NewMailArchive builds the mail archive crawler.
func NewMailArchive(rec *reconcile.Reconciler, fetch Fetcher, run *runctx.Run) *MailArchive {
	return &MailArchive{rec: rec, fetch: fetch, run: run}
}

// Run crawls the archive from the configured starting index page.
// archURL is the archive root; start is the first index page beneath
// it. The tally is returned even when the crawl ends in an error.
func (c *MailArchive) Run(ctx context.Context, archURL, start string) (Tally, error) {
	c.run.Logger.Info().Msg("Updating projects from mail archive")
	c.tally = Tally{}
	err := walk(ctx, c.fetch, c.run, archURL+"/"+start, func(doc *html.Node, pageURL string) (State, error) {
		ul := htmlquery.Find(doc, "ul", "")
		if ul == nil {
			return Terminal, nil
		}
		for _, li := range htmlquery.FindAll(ul, "li", "") {
			if err := c.message(ctx, li, archURL); err != nil {
				return Terminal, err
			}
		}
		return nextFromIndex(doc, archURL, pageURL)
	})
	return c.tally, err
}

func (c *MailArchive) message(ctx context.Context, li *html.Node, archURL string) error {
	strong := htmlquery.FirstElementChild(li)
	if strong == nil || !htmlquery.IsElement(strong, "strong") {
		return nil
	}
	c.tally.Messages++

	a := htmlquery.Find(strong, "a", "")
	if a == nil {
		return nil
	}
	title := htmlquery.TrimmedText(a)
	msgURL := archURL + "/" + htmlquery.Attr(a, "href")

	if announce.IsResponse(title) {
		c.tally.Responses++
		return nil
	}
	t, ok := announce.ParseTitle(title)
	if !ok {
		c.tally.MalformedTitle++
		return nil
	}
	c.tally.Ballots++

	number := strconv.Itoa(t.Number)
	c.run.Logger.Debug().
		Str("number", number).
		Str("title", title).
		Str("url", msgURL).
		Msg("Examining ballot announcement")
	if c.run.Blacklisted(number) {
		c.run.Logger.Info().Str("number", number).Msg("Ignoring blacklisted item")
		return nil
	}

	msgDoc, err := c.fetch.GetDocument(ctx, msgURL)
	if err != nil {
		c.run.Logger.Error().Err(err).Str("url", msgURL).Msg("Could not fetch ballot announcement")
		c.tally.Unparseable++
		return nil
	}
	ann, err := announce.Parse(msgDoc, msgURL)
	if err != nil {
		c.run.Logger.Error().Err(err).Str("url", msgURL).Msg("Could not parse ballot announcement")
		c.tally.Unparseable++
		return nil
	}

	desig, draftNo := announce.SplitDraft(t.Draft)
	if !c.run.Allows(desig) {
		c.run.Logger.Debug().
			Str("number", number).
			Str("designation", desig).
			Msg("Ignoring ballot announcement")
		return nil
	}

	proj, err := c.rec.FindProject(ctx, nil, desig, reconcile.MatchExact)
	if err != nil {
		return err
	}
	if proj == nil {
		c.run.Logger.Error().
			Str("designation", desig).
			Str("url", msgURL).
			Msg("Expected project from mail archive not found in database")
		return nil
	}

	approval, err := c.rec.FindEvent(ctx, proj, "PAR Approval")
	if err != nil {
		return err
	}
	if approval == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Project has no PAR Approval date")
		return nil
	}
	if ann.Date.Before(approval.Date) {
		c.run.Logger.Info().
			Str("draft", t.Draft).
			Str("approval", approval.Date.String()).
			Msg("Not adding ballot as it starts before PAR approval")
		return nil
	}

	ev := types.Event{
		Date:        ann.Date,
		EndDate:     ann.Closing,
		Name:        t.EventName(draftNo),
		Description: t.EventDescription(),
		URL:         msgURL,
	}
	added, err := c.rec.UpsertEvents(ctx, proj, []types.Event{ev})
	if err != nil {
		return err
	}
	c.tally.EventsAdded += added
	return nil
}

// Summary renders the tally for the end of the run.
func (t Tally) Summary() string {
	var sb strings.Builder
	sb.WriteString("messages: " + strconv.Itoa(t.Messages) + "\n")
	sb.WriteString("responses: " + strconv.Itoa(t.Responses) + "\n")
	sb.WriteString("malformed titles: " + strconv.Itoa(t.MalformedTitle) + "\n")
	sb.WriteString("ballots: " + strconv.Itoa(t.Ballots) + "\n")
	sb.WriteString("unparseable announcements: " + strconv.Itoa(t.Unparseable) + "\n")
	sb.WriteString("events added: " + strconv.Itoa(t.EventsAdded) + "\n")
	return sb.String()
}
