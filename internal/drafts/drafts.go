// Package drafts scans each project's file archive directory for draft
// PDFs and records the latest draft number and its timeline event.
package drafts

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/logging"
	"github.com/partrack/partrack/pkg/types"
)

// Fetcher provides authenticated HTML documents; the archive client
// satisfies it.
type Fetcher interface {
	GetDocument(ctx context.Context, url string) (*html.Node, error)
}

// draftFile matches a draft PDF name and captures its draft number.
var draftFile = regexp.MustCompile(`([dD]\d+(-\d+)?)\.pdf$`)

// Scanner walks every project's archive directory.
type Scanner struct {
	rec   *reconcile.Reconciler
	fetch Fetcher
	run   *runctx.Run
}

// New builds a draft scanner.
func New(rec *reconcile.Reconciler, fetch Fetcher, run *runctx.Run) *Scanner {
	return &Scanner{rec: rec, fetch: fetch, run: run}
}

// entry is one file in a directory index.
type entry struct {
	name string
	href string
	date types.Date
	ok   bool // a modification date was found next to the link
}

// Run scans every project the run's filters allow. A project with an
// unset or unreadable files directory is logged and skipped; only
// tracker write failures abort the scan.
func (s *Scanner) Run(ctx context.Context) error {
	s.run.Logger.Info().Msg("Scanning the file archive for project drafts")
	projects, err := s.rec.ListProjects(ctx)
	if err != nil {
		return err
	}
	for i := range projects {
		if err := s.project(ctx, &projects[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) project(ctx context.Context, proj *types.Project) error {
	desig := proj.Designation
	if !s.run.Allows(desig) {
		return nil
	}
	logger := logging.WithDesignation(s.run.Logger, desig)
	dir := proj.FilesURL
	if dir == "" {
		logger.Error().Msg("Project has no files URL")
		return nil
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	doc, err := s.fetch.GetDocument(ctx, dir)
	if err != nil {
		logger.Error().Err(err).Str("url", dir).Msg("Could not read files directory")
		return nil
	}

	// The web server sorts the index alphabetically, so the last draft
	// entry names the latest draft. That breaks when drafts of one
	// project mix upper- and lower-case file names.
	// TODO: sort by the listing's modification dates instead.
	var latest *entry
	for _, e := range parseIndex(doc, dir) {
		if !draftFile.MatchString(e.name) {
			continue
		}
		latest = &e
	}
	if latest == nil {
		logger.Debug().Msg("No drafts in files directory")
		return nil
	}

	m := draftFile.FindStringSubmatch(latest.name)
	draftNo := strings.ToUpper(strings.ReplaceAll(m[1], "-", "."))
	logger.Warn().
		Str("draft", draftNo).
		Str("url", latest.href).
		Msg("Updating project draft number")

	if latest.ok {
		ev := types.Event{
			Date:        latest.date,
			Name:        "Draft: " + draftNo,
			Description: "Draft " + draftNo + ": " + latest.date.String(),
			URL:         latest.href,
		}
		if _, err := s.rec.UpsertEvents(ctx, proj, []types.Event{ev}); err != nil {
			return err
		}
	} else {
		logger.Warn().
			Str("file", latest.name).
			Msg("No modification date in directory listing")
	}

	patch := map[string]any{"draft_no": draftNo, "draft_url": latest.href}
	return s.rec.UpdateProject(ctx, proj, patch)
}

// parseIndex reads a server-generated directory index, either the
// table or the preformatted flavor. Each file anchor yields an entry;
// the modification date is taken from the text that follows the link.
func parseIndex(doc *html.Node, baseURL string) []entry {
	var entries []entry
	for _, a := range htmlquery.FindAll(doc, "a", "") {
		href := htmlquery.Attr(a, "href")
		if href == "" || strings.HasPrefix(href, "?") ||
			strings.HasPrefix(href, "/") || strings.HasPrefix(href, "..") {
			continue // sort controls and the parent-directory link
		}
		e := entry{name: href, href: baseURL + href}
		e.date, e.ok = followingDate(a)
		entries = append(entries, e)
	}
	return entries
}

// followingDate finds the first parseable date in the text after a
// file link: the trailing text node in a preformatted index, or the
// next table cell. The search climbs at most to the link's row.
func followingDate(a *html.Node) (types.Date, bool) {
	for n, depth := a, 0; n != nil && depth < 3; n, depth = n.Parent, depth+1 {
		for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
			if date, ok := dates.Parse(htmlquery.Text(sib)); ok {
				return date, true
			}
		}
	}
	return types.Date{}, false
}
