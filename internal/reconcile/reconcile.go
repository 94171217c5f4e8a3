// Package reconcile matches extracted facts against the tracker's
// canonical records and issues the create/update operations needed to
// bring the two in line. Re-running against unchanged sources is a
// no-op: every write is preceded by a lookup.
package reconcile

import (
	"context"
	"strings"

	"github.com/partrack/partrack/internal/notify"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/internal/trackerapi"
	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/types"
)

// MatchStyle controls how a designation query is compared against
// stored designations.
type MatchStyle int

const (
	// MatchExact accepts only a case-insensitive equality match.
	MatchExact MatchStyle = iota
	// MatchAllowRev additionally accepts the stored designation being
	// the query with a "-REV" suffix, so a revision project absorbs
	// facts filed under its base designation.
	MatchAllowRev
)

// Events posted more than this many days after their date are stale
// history, not news; no notification is sent for them.
const notifyWindowDays = 4

// Reconciler issues idempotent upserts against the tracker.
type Reconciler struct {
	api      *trackerapi.Client
	run      *runctx.Run
	notifier notify.Notifier
}

// New builds a Reconciler. A nil notifier disables notifications.
func New(api *trackerapi.Client, run *runctx.Run, notifier notify.Notifier) *Reconciler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Reconciler{api: api, run: run, notifier: notifier}
}

// FindProject resolves a designation to its project record, scoped to a
// task group when one is given and searched globally otherwise. A nil
// result with nil error means no project matched. When the server-side
// search returns several case-insensitive matches the last one wins;
// that situation indicates duplicate records upstream, so it is logged.
func (r *Reconciler) FindProject(ctx context.Context, tg *types.TaskGroup, designation string, style MatchStyle) (*types.Project, error) {
	candidates, err := r.api.SearchProjects(ctx, tg, designation)
	if err != nil {
		return nil, err
	}

	revdesig := designation + "-REV"
	matchID := 0
	matched := 0
	for _, cand := range candidates {
		if strings.EqualFold(designation, cand.Designation) ||
			(style == MatchAllowRev && strings.EqualFold(revdesig, cand.Designation)) {
			matchID = cand.ID
			matched++
		}
	}
	if matched == 0 {
		return nil, nil
	}
	if matched > 1 {
		r.run.Logger.Warn().
			Str("designation", designation).
			Int("matches", matched).
			Msg("Multiple projects match designation; keeping the last")
	}
	return r.api.GetProject(ctx, matchID)
}

// FindEvent returns the first of a project's events carrying the given
// name, or nil when the name is unused.
func (r *Reconciler) FindEvent(ctx context.Context, proj *types.Project, name string) (*types.Event, error) {
	events, err := r.api.ListEvents(ctx, proj, name)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// UpsertEvents brings a project's timeline up to date with the given
// candidate events and returns how many were actually created.
//
// Policy for an already-used event name: a candidate whose name and
// date both match an existing event is already present and is skipped;
// a candidate reusing a name with a different date is created as an
// extra event. Existing events are never patched in place, so repeated
// runs over unchanged sources add nothing.
func (r *Reconciler) UpsertEvents(ctx context.Context, proj *types.Project, events []types.Event) (int, error) {
	added := 0
	for _, ev := range events {
		existing, err := r.api.ListEvents(ctx, proj, ev.Name)
		if err != nil {
			return added, err
		}

		if len(existing) == 0 {
			r.run.Logger.Warn().
				Str("event", ev.Name).
				Str("designation", proj.Designation).
				Msg("Adding event to project")
			if err := r.api.CreateEvent(ctx, proj, ev); err != nil {
				return added, r.fatalFields(err)
			}
			added++
			r.notifyIfRecent(ctx, proj, ev, false)
			continue
		}

		found := false
		for _, e := range existing {
			if e.Name == ev.Name && e.Date.Equal(ev.Date) {
				found = true
				r.run.Logger.Info().
					Str("event", ev.Name).
					Str("designation", proj.Designation).
					Msg("Found matching event for project")
			}
		}
		if !found {
			r.run.Logger.Warn().
				Str("event", ev.Name).
				Str("designation", proj.Designation).
				Msg("Adding extra event to project")
			if err := r.api.CreateEvent(ctx, proj, ev); err != nil {
				return added, r.fatalFields(err)
			}
			added++
			r.notifyIfRecent(ctx, proj, ev, true)
		}
	}
	return added, nil
}

// CreateProject creates a project inside a task group. A structured
// validation failure is fatal: without the project, no event from this
// source can be attributed, so the run must stop rather than skip.
func (r *Reconciler) CreateProject(ctx context.Context, tg *types.TaskGroup, proj types.Project) (*types.Project, error) {
	created, err := r.api.CreateProject(ctx, tg.ID, proj)
	if err != nil {
		return nil, r.fatalFields(err)
	}
	return created, nil
}

// UpsertProject creates proj inside tg, or, when existing is non-nil,
// patches the existing record with proj's freshly extracted fields.
// The title is left alone on a patch: the spreadsheet only knows
// "unset", the real title comes from the PAR detail page. The returned
// record reflects the patched state.
func (r *Reconciler) UpsertProject(ctx context.Context, tg *types.TaskGroup, existing *types.Project, proj types.Project) (*types.Project, error) {
	if existing == nil {
		r.run.Logger.Warn().
			Str("designation", proj.Designation).
			Str("taskgroup", tg.Name).
			Msg("Adding project to task group")
		return r.CreateProject(ctx, tg, proj)
	}

	r.run.Logger.Warn().
		Str("designation", proj.Designation).
		Msg("Patching existing project")
	patch := map[string]any{
		"project_type": proj.ProjectType,
		"base":         proj.Base,
		"short_title":  proj.ShortTitle,
		"draft_no":     proj.DraftNo,
		"status":       proj.Status,
		"last_motion":  proj.LastMotion,
		"next_action":  proj.NextAction,
		"award":        proj.Award,
	}
	if err := r.UpdateProject(ctx, existing, patch); err != nil {
		return nil, err
	}
	updated := *existing
	updated.ProjectType = proj.ProjectType
	updated.Base = proj.Base
	updated.ShortTitle = proj.ShortTitle
	updated.DraftNo = proj.DraftNo
	updated.Status = proj.Status
	updated.LastMotion = proj.LastMotion
	updated.NextAction = proj.NextAction
	updated.Award = proj.Award
	return &updated, nil
}

// ListProjects fetches every project in the tracker.
func (r *Reconciler) ListProjects(ctx context.Context) ([]types.Project, error) {
	return r.api.ListProjects(ctx)
}

// UpdateProject patches fields of an existing project.
func (r *Reconciler) UpdateProject(ctx context.Context, proj *types.Project, patch map[string]any) error {
	if err := r.api.UpdateProject(ctx, proj, patch); err != nil {
		return r.fatalFields(err)
	}
	return nil
}

// DeleteProject removes a project and all of its events. Events go
// first; the tracker rejects deleting a project that still owns them.
func (r *Reconciler) DeleteProject(ctx context.Context, proj *types.Project) error {
	events, err := r.api.ListEvents(ctx, proj, "")
	if err != nil {
		return err
	}
	if len(events) > 0 {
		r.run.Logger.Info().
			Str("designation", proj.Designation).
			Int("events", len(events)).
			Msg("Deleting project events")
		for _, ev := range events {
			if err := r.api.DeleteEvent(ctx, proj, ev.ID); err != nil {
				return err
			}
		}
	}
	return r.api.DeleteProject(ctx, proj.TaskGroupID, proj.ID)
}

// notifyIfRecent announces an event when its date is close enough to
// today to still be news. Notification failures are logged, not fatal.
func (r *Reconciler) notifyIfRecent(ctx context.Context, proj *types.Project, ev types.Event, extra bool) {
	if types.Today().Sub(ev.Date) >= notifyWindowDays {
		return
	}
	if err := r.notifier.PostEvent(ctx, proj, ev, extra); err != nil {
		r.run.Logger.Error().Err(err).
			Str("event", ev.Name).
			Msg("Failed to post event notification")
	}
}

// fatalFields logs each field/message pair of a structured validation
// error before handing the error back for the run to halt on.
func (r *Reconciler) fatalFields(err error) error {
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) && apiErr.Fatal() {
		for field, messages := range apiErr.Fields {
			for _, msg := range messages {
				r.run.Logger.Error().Str("field", field).Msg(msg)
			}
		}
	}
	return err
}
