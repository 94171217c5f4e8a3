package crawl

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/designation"
	"github.com/partrack/partrack/pkg/status"
	"github.com/partrack/partrack/pkg/types"
)

// ApprovedList maps a designation to the abbreviation of the task group
// that owns it. The PAR report lists every project the committee ever
// authorized, and revision projects reuse their base designation, so
// only designations on this explicit list are created.
type ApprovedList map[string]string

// LoadApprovedList reads the approved-projects YAML file.
func LoadApprovedList(path string) (ApprovedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list ApprovedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing approved list %s: %w", path, err)
	}
	return list, nil
}

// PARReport walks the development server's PAR report and creates
// tracker projects for approved designations that are missing.
type PARReport struct {
	rec      *reconcile.Reconciler
	fetch    Fetcher
	run      *runctx.Run
	approved ApprovedList
	groups   []types.TaskGroup
}

// NewPARReport builds the PAR report crawler. groups is the tracker's
// current task group list, used to place newly created projects.
func NewPARReport(rec *reconcile.Reconciler, fetch Fetcher, run *runctx.Run, approved ApprovedList, groups []types.TaskGroup) *PARReport {
	return &PARReport{rec: rec, fetch: fetch, run: run, approved: approved, groups: groups}
}

// Run crawls the report starting from the working group's filter view.
func (c *PARReport) Run(ctx context.Context, devHost string) error {
	c.run.Logger.Info().Msg("Updating projects from PAR report on development server")
	start := "http://" + devHost + "/pub/par-report?par_report=1&committee_id=&s=802.1"
	return walk(ctx, c.fetch, c.run, start, func(doc *html.Node, pageURL string) (State, error) {
		for _, row := range htmlquery.FindAll(doc, "tr", "b_data_row") {
			if err := c.row(ctx, row, pageURL); err != nil {
				return Terminal, err
			}
		}
		return nextFromPager(doc, pageURL)
	})
}

// comAgenda matches a NesCom/RevCom agenda status carrying its date.
var comAgenda = regexp.MustCompile(`Com Agenda (\d\d-\w+-\d\d\d\d)`)

func (c *PARReport) row(ctx context.Context, row *html.Node, pageURL string) error {
	tds := htmlquery.FindAll(row, "td", "")
	if len(tds) < 11 {
		c.run.Logger.Warn().Str("page", pageURL).Msg("Skipping short data row")
		return nil
	}

	link := htmlquery.Find(tds[0], "a", "")
	if link == nil {
		c.run.Logger.Warn().Str("page", pageURL).Msg("Skipping row without designation link")
		return nil
	}
	desig := htmlquery.TrimmedText(link)
	if !parPattern.MatchString(desig) {
		return nil
	}
	partype := htmlquery.TrimmedText(tds[1])
	c.run.Logger.Debug().Str("designation", desig).Str("type", partype).Msg("Considering project")

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
	events := details.Events

	desig = strings.TrimLeft(desig, "P")
	if partype == "Revision" {
		desig += "-REV"
	}
	tgAbbrev, ok := c.approved[desig]
	if !ok {
		c.run.Logger.Info().
			Str("designation", desig).
			Str("type", partype).
			Msg("Not adding project from PAR report: not in the approved list")
		return nil
	}

	proj, err := c.rec.FindProject(ctx, nil, desig, reconcile.MatchExact)
	if err != nil {
		return err
	}
	if proj == nil {
		c.run.Logger.Error().Str("designation", desig).Msg("Expected project from PAR report not found in database: adding it")
		rawStatus := htmlquery.TrimmedText(tds[10])
		proj, err = c.create(ctx, desig, tgAbbrev, rawStatus, &events)
		if err != nil {
			return err
		}
		if proj == nil {
			return nil
		}
	} else {
		c.run.Logger.Debug().
			Str("designation", desig).
			Str("project", proj.Designation).
			Msg("Matching PAR to project")
	}

	c.run.Logger.Warn().
		Str("designation", proj.Designation).
		Int("events", len(events)).
		Msg("Updating project and adding events")
	if len(events) > 0 {
		if _, err := c.rec.UpsertEvents(ctx, proj, events); err != nil {
			return err
		}
	}
	if details.Title != "" || details.ParURL != "" {
		patch := map[string]any{"title": details.Title, "par_url": details.ParURL}
		if err := c.rec.UpdateProject(ctx, proj, patch); err != nil {
			return err
		}
	}
	return nil
}

// create builds a new project from a PAR report row. The report's
// status vocabulary differs from the tracker's; a Com Agenda status
// additionally contributes its agenda date as an event. A nil project
// with nil error means the row's task group is unknown and the row is
// skipped.
func (c *PARReport) create(ctx context.Context, desig, tgAbbrev, rawStatus string, events *[]types.Event) (*types.Project, error) {
	var tg *types.TaskGroup
	for i := range c.groups {
		if c.groups[i].Abbrev == tgAbbrev {
			tg = &c.groups[i]
			break
		}
	}
	if tg == nil {
		c.run.Logger.Error().Str("abbrev", tgAbbrev).Msg("Task group from approved list not found")
		return nil, nil
	}

	st := rawStatus
	switch {
	case st == "Complete":
		st = "Approved"
	case st == "WG Draft Development":
		st = status.ParApproved
	case st == "Sponsor Ballot: Invitation":
		// The tracker has no invitation stage; the recirc that follows
		// the invitation is the closest fit.
		st = status.WgBallotRecirc
	case strings.Contains(st, "Sponsor Ballot"):
		st = status.SponsorBallot
	case comAgenda.MatchString(st):
		if agd, ok := dates.Parse(st); ok {
			// Keep only the first word: NesCom or RevCom.
			st = strings.Fields(st)[0]
			*events = append(*events, types.Event{
				Date:        agd,
				Name:        st,
				Description: st + ": " + agd.String(),
			})
		} else {
			st = strings.Fields(st)[0]
		}
	}

	ptype, base, _ := designation.Parse(desig)
	newproj := types.Project{
		Designation: desig,
		ProjectType: ptype,
		Base:        base,
		ShortTitle:  "unset",
		Title:       "unset",
		Status:      st,
		NextAction:  status.EditorsDraft,
	}
	return c.rec.CreateProject(ctx, tg, newproj)
}
