// Package sheet syncs the tracker from the committee's status
// spreadsheet: the People and TaskGroups tabs feed the organizational
// records, and Projects rows become projects with derived timeline
// events.
package sheet

import (
	"context"
	"regexp"
	"strings"

	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/designation"
	"github.com/partrack/partrack/pkg/status"
	"github.com/partrack/partrack/pkg/types"
)

// Workbook supplies sheet rows as strings. The excelize-backed
// implementation lives in workbook.go; tests use an in-memory fake.
type Workbook interface {
	Rows(sheet string) ([][]string, error)
}

// Projects sheet column layout. The tabs between these columns hold
// derived charts and notes the sync ignores.
const (
	colDesignation = 0
	colShortTitle  = 1
	colLastMotion  = 2
	colStatus      = 3
	colDraftNo     = 4
	colNextAction  = 5
	colPAREnd      = 6
	colTaskGroup   = 9
	colPoolStart   = 11
	colMECStart    = 12
	colAward       = 14
)

// Sponsor ballot pool formation runs 213 days; mandatory editorial
// coordination runs 30.
const (
	poolDays = 213
	mecDays  = 30
)

// Options select which parts of the spreadsheet are synced.
type Options struct {
	People         bool // sync the People tab
	TaskGroups     bool // sync the TaskGroups tab
	Update         bool // patch projects that already exist
	DeleteExisting bool // delete an existing project before recreating it
}

// Sync drives a spreadsheet sync run.
type Sync struct {
	rec *reconcile.Reconciler
	run *runctx.Run
}

// New builds a spreadsheet sync.
func New(rec *reconcile.Reconciler, run *runctx.Run) *Sync {
	return &Sync{rec: rec, run: run}
}

// taskGroupRow is one TaskGroups tab entry keyed by abbreviation.
type taskGroupRow struct {
	name       string
	chairFirst string
	chairLast  string
}

// Run syncs the workbook into the tracker.
func (s *Sync) Run(ctx context.Context, wb Workbook, opts Options) error {
	if opts.People {
		if err := s.people(ctx, wb); err != nil {
			return err
		}
	}

	// The TaskGroups tab is always read: project rows name their task
	// group by abbreviation and the mapping to full names lives here.
	groups, err := s.taskGroups(ctx, wb, opts.TaskGroups)
	if err != nil {
		return err
	}

	return s.projects(ctx, wb, groups, opts)
}

func (s *Sync) people(ctx context.Context, wb Workbook) error {
	rows, err := wb.Rows("People")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		person := types.Person{
			Role:        cell(row, 0),
			FirstName:   cell(row, 1),
			LastName:    cell(row, 2),
			Email:       cell(row, 3),
			Affiliation: cell(row, 4),
		}
		if person.FirstName == "" || person.LastName == "" {
			continue
		}
		if _, err := s.rec.UpsertPerson(ctx, person); err != nil {
			return err
		}
	}
	return nil
}

// mergedAbbrev marks TaskGroups rows recording a historical merge
// ("X -> Y") rather than a live group.
var mergedAbbrev = regexp.MustCompile(`->`)

func (s *Sync) taskGroups(ctx context.Context, wb Workbook, sync bool) (map[string]taskGroupRow, error) {
	rows, err := wb.Rows("TaskGroups")
	if err != nil {
		return nil, err
	}
	groups := make(map[string]taskGroupRow)
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		abbrev := cell(row, 0)
		if abbrev == "" {
			continue
		}
		tg := taskGroupRow{
			name:       cell(row, 1),
			chairFirst: cell(row, 2),
			chairLast:  cell(row, 3),
		}
		groups[abbrev] = tg

		if !sync || mergedAbbrev.MatchString(abbrev) {
			continue
		}
		chair, err := s.rec.FindPerson(ctx, "Chair", tg.chairFirst, tg.chairLast)
		if err != nil {
			return nil, err
		}
		if chair == nil {
			s.run.Logger.Error().
				Str("first", tg.chairFirst).
				Str("last", tg.chairLast).
				Str("taskgroup", tg.name).
				Msg("Chair not found for task group")
			continue
		}
		if _, err := s.rec.UpsertTaskGroup(ctx, abbrev, tg.name, chair); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Sync) projects(ctx context.Context, wb Workbook, groups map[string]taskGroupRow, opts Options) error {
	rows, err := wb.Rows("Projects")
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		if err := s.projectRow(ctx, row, i, groups, opts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sync) projectRow(ctx context.Context, row []string, rowNo int, groups map[string]taskGroupRow, opts Options) error {
	desig := cell(row, colDesignation)
	if desig == "" {
		s.run.Logger.Info().Int("row", rowNo).Msg("Skipping undesignated project row")
		return nil
	}

	tgName := groups[cell(row, colTaskGroup)].name
	tg, err := s.rec.FindTaskGroup(ctx, tgName)
	if err != nil {
		return err
	}
	if tg == nil {
		s.run.Logger.Error().Str("taskgroup", tgName).Msg("Task group not found")
		return nil
	}

	proj, err := s.rec.FindProject(ctx, tg, desig, reconcile.MatchExact)
	if err != nil {
		return err
	}
	if proj != nil && !opts.Update {
		s.run.Logger.Debug().
			Str("designation", desig).
			Str("short_title", proj.ShortTitle).
			Msg("Project exists")
		return nil
	}
	if proj == nil {
		s.run.Logger.Info().
			Str("designation", desig).
			Str("taskgroup", tgName).
			Msg("Project not found for task group")
	} else if opts.Update {
		s.run.Logger.Info().Str("designation", desig).Msg("Project will be updated")
	}

	st, events := status.ParseStatus(cell(row, colStatus))
	ptype, base, _ := designation.Parse(desig)
	newproj := types.Project{
		Designation: desig,
		ProjectType: ptype,
		Base:        base,
		ShortTitle:  cell(row, colShortTitle),
		Title:       "unset",
		DraftNo:     cell(row, colDraftNo),
		Status:      st,
		LastMotion:  status.ParseMotion(cell(row, colLastMotion)),
		NextAction:  status.ParseMotion(cell(row, colNextAction)),
		Award:       cell(row, colAward),
	}

	if opts.DeleteExisting && proj != nil {
		s.run.Logger.Warn().Str("designation", desig).Msg("Deleting existing project")
		if err := s.rec.DeleteProject(ctx, proj); err != nil {
			return err
		}
		proj = nil
	}
	proj, err = s.rec.UpsertProject(ctx, tg, proj, newproj)
	if err != nil {
		return err
	}

	events = append(events, s.derivedEvents(row)...)
	if len(events) > 0 {
		if _, err := s.rec.UpsertEvents(ctx, proj, events); err != nil {
			return err
		}
	}
	return nil
}

// derivedEvents reads the date columns that imply fixed-length periods.
func (s *Sync) derivedEvents(row []string) []types.Event {
	var events []types.Event

	if raw := cell(row, colPAREnd); raw != "" {
		if date, ok := dates.Parse(raw); ok {
			events = append(events, types.Event{
				Date:        date,
				Name:        "PAR ends",
				Description: "PAR ends: " + date.String(),
			})
		} else {
			s.run.Logger.Warn().Str("value", raw).Msg("Unparseable PAR end date")
		}
	}
	if raw := cell(row, colPoolStart); raw != "" {
		if date, ok := dates.Parse(raw); ok {
			end := date.AddDays(poolDays)
			events = append(events, types.Event{
				Date:        date,
				EndDate:     &end,
				Name:        "Pool",
				Description: "Sponsor ballot pool: " + date.String(),
			})
		} else {
			s.run.Logger.Warn().Str("value", raw).Msg("Unparseable pool start date")
		}
	}
	if raw := cell(row, colMECStart); raw != "" {
		if date, ok := dates.Parse(raw); ok {
			end := date.AddDays(mecDays)
			events = append(events, types.Event{
				Date:        date,
				EndDate:     &end,
				Name:        "MEC",
				Description: "Manadatory Editorial Co-ordination: " + date.String(),
			})
		} else {
			s.run.Logger.Warn().Str("value", raw).Msg("Unparseable MEC start date")
		}
	}
	return events
}

// cell reads a column, tolerating the short rows the reader produces
// when trailing cells are empty.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
