package reconcile

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partrack/partrack/internal/notify"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/internal/trackerapi"
	"github.com/partrack/partrack/internal/trackertest"
	perrors "github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/logging"
	"github.com/partrack/partrack/pkg/types"
)

func newTestReconciler(t *testing.T, store *trackertest.Store, notifier notify.Notifier) *Reconciler {
	t.Helper()
	srv := httptest.NewServer(store.Handler())
	t.Cleanup(srv.Close)
	api, err := trackerapi.New(srv.URL)
	require.NoError(t, err)
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return New(api, runctx.New(*logging.NewNopLogger()), notifier)
}

func TestFindProjectMatchStyles(t *testing.T) {
	store := trackertest.New()
	store.AddProject(types.Project{Designation: "802.1Q-REV", TaskGroupID: 1})
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	proj, err := rec.FindProject(ctx, nil, "802.1Q", MatchExact)
	require.NoError(t, err)
	assert.Nil(t, proj, "exact match must not accept the -REV variant")

	proj, err = rec.FindProject(ctx, nil, "802.1Q", MatchAllowRev)
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Equal(t, "802.1Q-REV", proj.Designation)
}

func TestFindProjectCaseInsensitive(t *testing.T) {
	store := trackertest.New()
	store.AddProject(types.Project{Designation: "802.1AS", TaskGroupID: 1})
	rec := newTestReconciler(t, store, nil)

	proj, err := rec.FindProject(context.Background(), nil, "802.1as", MatchExact)
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Equal(t, "802.1AS", proj.Designation)
}

func TestFindProjectAmbiguityKeepsLast(t *testing.T) {
	store := trackertest.New()
	store.AddProject(types.Project{Designation: "802.1CB", TaskGroupID: 1})
	last := store.AddProject(types.Project{Designation: "802.1cb", TaskGroupID: 1})
	rec := newTestReconciler(t, store, nil)

	proj, err := rec.FindProject(context.Background(), nil, "802.1CB", MatchExact)
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Equal(t, last.ID, proj.ID)
}

func TestFindProjectScopedToTaskGroup(t *testing.T) {
	store := trackertest.New()
	store.AddProject(types.Project{Designation: "802.1DG", TaskGroupID: 1})
	inTG := store.AddProject(types.Project{Designation: "802.1DG", TaskGroupID: 2})
	rec := newTestReconciler(t, store, nil)

	tg := &types.TaskGroup{ID: 2}
	proj, err := rec.FindProject(context.Background(), tg, "802.1DG", MatchExact)
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Equal(t, inTG.ID, proj.ID)
}

func TestUpsertEventsIdempotent(t *testing.T) {
	store := trackertest.New()
	proj := store.AddProject(types.Project{Designation: "802.1Qcc", TaskGroupID: 2})
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	events := []types.Event{
		{Name: "WG ballot: D1.2", Date: types.NewDate(2018, 1, 12), Description: "WG ballot of D1.2"},
		{Name: "PAR Approval", Date: types.NewDate(2017, 5, 5), Description: "PAR Approval: 2017-05-05"},
	}

	added, err := rec.UpsertEvents(ctx, &proj, events)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, store.Events, 2)

	added, err = rec.UpsertEvents(ctx, &proj, events)
	require.NoError(t, err)
	assert.Zero(t, added, "second run over unchanged data must add nothing")
	assert.Len(t, store.Events, 2)
}

func TestUpsertEventsAddsExtraOnNewDate(t *testing.T) {
	store := trackertest.New()
	proj := store.AddProject(types.Project{Designation: "802.1Qcc", TaskGroupID: 2})
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	first := types.Event{Name: "WG recirc: D1.3", Date: types.NewDate(2018, 2, 1)}
	_, err := rec.UpsertEvents(ctx, &proj, []types.Event{first})
	require.NoError(t, err)

	recirc := types.Event{Name: "WG recirc: D1.3", Date: types.NewDate(2018, 3, 15)}
	added, err := rec.UpsertEvents(ctx, &proj, []types.Event{recirc})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "same name with a new date is a separate occurrence")
	assert.Len(t, store.Events, 2)
}

func TestCreateProjectValidationFatal(t *testing.T) {
	store := trackertest.New()
	rec := newTestReconciler(t, store, nil)
	tg := &types.TaskGroup{ID: 3}

	// The store rejects a project without a title with a structured
	// errors body, which must halt the run.
	_, err := rec.CreateProject(context.Background(), tg, types.Project{Designation: "802.1Qdd"})
	require.Error(t, err)
	assert.True(t, perrors.IsFatal(err))
}

func TestUpsertProjectCreatesThenPatches(t *testing.T) {
	store := trackertest.New()
	tg := store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	created, err := rec.UpsertProject(ctx, &tg, nil, types.Project{
		Designation: "802.1Qdd",
		ShortTitle:  "Resource allocation",
		Status:      "Editor's draft",
	})
	require.NoError(t, err)
	require.Len(t, store.Projects, 1)

	patched, err := rec.UpsertProject(ctx, &tg, created, types.Project{
		Designation: "802.1Qdd",
		ShortTitle:  "Resource Allocation Protocol",
		DraftNo:     "D0.3",
		Status:      "WG ballot",
	})
	require.NoError(t, err)
	require.Len(t, store.Projects, 1, "patching must not create a second project")
	assert.Equal(t, created.ID, patched.ID)
	assert.Equal(t, "D0.3", patched.DraftNo)
	assert.Equal(t, "Resource Allocation Protocol", store.Projects[0].ShortTitle)
	assert.Equal(t, "D0.3", store.Projects[0].DraftNo)
	assert.Equal(t, "WG ballot", store.Projects[0].Status)
}

func TestDeleteProjectCascades(t *testing.T) {
	store := trackertest.New()
	proj := store.AddProject(types.Project{Designation: "802.1Qold", TaskGroupID: 4})
	store.AddEvent(proj.ID, types.Event{Name: "PAR Approval", Date: types.NewDate(2015, 6, 1)})
	store.AddEvent(proj.ID, types.Event{Name: "WG ballot: D1.0", Date: types.NewDate(2016, 2, 1)})
	rec := newTestReconciler(t, store, nil)

	require.NoError(t, rec.DeleteProject(context.Background(), &proj))
	assert.Empty(t, store.Projects)
	assert.Empty(t, store.Events)
}

func TestNotifierCalledForRecentEvents(t *testing.T) {
	store := trackertest.New()
	proj := store.AddProject(types.Project{Designation: "802.1DG", TaskGroupID: 5})
	spy := &spyNotifier{}
	rec := newTestReconciler(t, store, spy)

	_, err := rec.UpsertEvents(context.Background(), &proj, []types.Event{
		{Name: "WG ballot: D2.0", Date: types.Today()},
		{Name: "PAR Approval", Date: types.NewDate(2019, 1, 1)},
	})
	require.NoError(t, err)
	require.Len(t, spy.posted, 1, "only the recent event is news")
	assert.Equal(t, "WG ballot: D2.0", spy.posted[0].Name)
}

func TestUpsertPerson(t *testing.T) {
	store := trackertest.New()
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	person := types.Person{Role: "Chair", FirstName: "Alice", LastName: "Example", Email: "alice@example.org"}
	created, err := rec.UpsertPerson(ctx, person)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Len(t, store.People, 1)

	// Same data again: no second record, no update.
	writes := store.Writes
	again, err := rec.UpsertPerson(ctx, person)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Len(t, store.People, 1)
	assert.Equal(t, writes, store.Writes)

	// Changed affiliation patches in place.
	person.Affiliation = "Example Corp"
	_, err = rec.UpsertPerson(ctx, person)
	require.NoError(t, err)
	require.Len(t, store.People, 1)
	assert.Equal(t, "Example Corp", store.People[0].Affiliation)
}

func TestUpsertTaskGroup(t *testing.T) {
	store := trackertest.New()
	chair := store.AddPerson(types.Person{Role: "Chair", FirstName: "Alice", LastName: "Example"})
	rec := newTestReconciler(t, store, nil)
	ctx := context.Background()

	tg, err := rec.UpsertTaskGroup(ctx, "TSN", "Time-Sensitive Networking", &chair)
	require.NoError(t, err)
	assert.Equal(t, chair.ID, tg.ChairID)
	require.Len(t, store.TaskGroups, 1)

	newChair := store.AddPerson(types.Person{Role: "Chair", FirstName: "Bob", LastName: "Sample"})
	tg, err = rec.UpsertTaskGroup(ctx, "TSN", "Time-Sensitive Networking", &newChair)
	require.NoError(t, err)
	assert.Equal(t, newChair.ID, tg.ChairID)
	assert.Len(t, store.TaskGroups, 1, "existing task group is patched, not duplicated")
}

type spyNotifier struct {
	posted []types.Event
}

func (s *spyNotifier) PostEvent(_ context.Context, _ *types.Project, ev types.Event, _ bool) error {
	s.posted = append(s.posted, ev)
	return nil
}
