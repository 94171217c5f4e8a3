package sheet

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partrack/partrack/internal/notify"
	"github.com/partrack/partrack/internal/reconcile"
	"github.com/partrack/partrack/internal/runctx"
	"github.com/partrack/partrack/internal/trackerapi"
	"github.com/partrack/partrack/internal/trackertest"
	"github.com/partrack/partrack/pkg/logging"
	"github.com/partrack/partrack/pkg/status"
	"github.com/partrack/partrack/pkg/types"
)

// fakeWorkbook serves canned tabs.
type fakeWorkbook map[string][][]string

func (wb fakeWorkbook) Rows(sheet string) ([][]string, error) {
	rows, ok := wb[sheet]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", sheet)
	}
	return rows, nil
}

func newTestSync(t *testing.T, store *trackertest.Store) *Sync {
	t.Helper()
	srv := httptest.NewServer(store.Handler())
	t.Cleanup(srv.Close)
	api, err := trackerapi.New(srv.URL)
	require.NoError(t, err)
	run := runctx.New(*logging.NewNopLogger())
	return New(reconcile.New(api, run, notify.Nop{}), run)
}

func testWorkbook() fakeWorkbook {
	return fakeWorkbook{
		"People": {
			{"Role", "First", "Last", "Email", "Affiliation"},
			{"Chair", "Jane", "Doe", "jane@example.com", "Example Corp"},
		},
		"TaskGroups": {
			{"Abbrev", "Name", "ChairFirst", "ChairLast"},
			{"TSN", "Time-Sensitive Networking", "Jane", "Doe"},
			{"AVB -> TSN", "Audio/Video Bridging", "", ""},
		},
		"Projects": {
			{"Designation", "Short title", "Last motion", "Status", "Draft"},
			{
				"802.1Qcc", "SRP enhancements", "WG ballot", "Editor's draft", "D1.2",
				"", "31-Dec-2021", "", "", "TSN", "", "1 Jan 2020", "", "", "",
			},
		},
	}
}

func TestRunCreatesProjectWithDerivedEvents(t *testing.T) {
	store := trackertest.New()
	tg := store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	sync := newTestSync(t, store)

	require.NoError(t, sync.Run(context.Background(), testWorkbook(), Options{}))

	require.Len(t, store.Projects, 1)
	proj := store.Projects[0]
	assert.Equal(t, "802.1Qcc", proj.Designation)
	assert.Equal(t, tg.ID, proj.TaskGroupID)
	assert.Equal(t, types.Amendment, proj.ProjectType)
	assert.Equal(t, "802.1Q", proj.Base)
	assert.Equal(t, "SRP enhancements", proj.ShortTitle)
	assert.Equal(t, "unset", proj.Title)
	assert.Equal(t, "D1.2", proj.DraftNo)
	assert.Equal(t, status.EditorsDraft, proj.Status)
	assert.Equal(t, status.WgBallot, proj.LastMotion)
	// An empty next-action column means the project has nothing left
	// to do.
	assert.Equal(t, status.Done, proj.NextAction)

	byName := map[string]types.Event{}
	for _, ev := range store.Events {
		byName[ev.Name] = ev
	}

	parEnd, ok := byName["PAR ends"]
	require.True(t, ok, "PAR ends event was created")
	assert.True(t, parEnd.Date.Equal(types.NewDate(2021, 12, 31)))

	pool, ok := byName["Pool"]
	require.True(t, ok, "Pool event was created")
	assert.True(t, pool.Date.Equal(types.NewDate(2020, 1, 1)))
	require.NotNil(t, pool.EndDate)
	assert.True(t, pool.EndDate.Equal(types.NewDate(2020, 8, 1)), "pool end = %s", pool.EndDate)
	assert.Equal(t, "Sponsor ballot pool: 2020-01-01", pool.Description)
}

func TestRunSkipsExistingProject(t *testing.T) {
	store := trackertest.New()
	store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	store.AddProject(types.Project{Designation: "802.1Qcc", Title: "kept", TaskGroupID: 1})
	sync := newTestSync(t, store)

	require.NoError(t, sync.Run(context.Background(), testWorkbook(), Options{}))

	require.Len(t, store.Projects, 1)
	assert.Equal(t, "kept", store.Projects[0].Title)
	assert.Empty(t, store.Events)
}

func TestRunUpdatePatchesExistingProject(t *testing.T) {
	store := trackertest.New()
	store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	old := store.AddProject(types.Project{
		Designation: "802.1Qcc",
		Title:       "Bridges and Bridged Networks Amendment: SRP",
		ShortTitle:  "stale",
		DraftNo:     "D0.5",
		TaskGroupID: 1,
	})
	sync := newTestSync(t, store)

	require.NoError(t, sync.Run(context.Background(), testWorkbook(), Options{Update: true}))
	require.NoError(t, sync.Run(context.Background(), testWorkbook(), Options{Update: true}))

	require.Len(t, store.Projects, 1, "updating must not duplicate the project")
	proj := store.Projects[0]
	assert.Equal(t, old.ID, proj.ID)
	assert.Equal(t, "SRP enhancements", proj.ShortTitle)
	assert.Equal(t, "D1.2", proj.DraftNo)
	assert.Equal(t, status.EditorsDraft, proj.Status)
	assert.Equal(t, types.Amendment, proj.ProjectType)
	// The detail-page title survives a spreadsheet update.
	assert.Equal(t, "Bridges and Bridged Networks Amendment: SRP", proj.Title)

	counts := map[string]int{}
	for _, ev := range store.Events {
		counts[ev.Name]++
	}
	for name, n := range counts {
		assert.Equal(t, 1, n, "event %s duplicated", name)
	}
}

func TestRunDeleteExistingRecreates(t *testing.T) {
	store := trackertest.New()
	store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	old := store.AddProject(types.Project{Designation: "802.1Qcc", Title: "stale", TaskGroupID: 1})
	store.AddEvent(old.ID, types.Event{Name: "PAR Approval", Date: types.NewDate(2015, 6, 11)})
	sync := newTestSync(t, store)

	opts := Options{Update: true, DeleteExisting: true}
	require.NoError(t, sync.Run(context.Background(), testWorkbook(), opts))

	require.Len(t, store.Projects, 1)
	proj := store.Projects[0]
	assert.NotEqual(t, old.ID, proj.ID)
	assert.Equal(t, "unset", proj.Title)
	// The cascade removed the stale project's events before the
	// replacement's derived events were added.
	for _, ev := range store.Events {
		assert.Equal(t, proj.ID, ev.ProjectID)
	}
}

func TestRunSyncsPeopleAndTaskGroups(t *testing.T) {
	store := trackertest.New()
	sync := newTestSync(t, store)

	opts := Options{People: true, TaskGroups: true}
	require.NoError(t, sync.Run(context.Background(), testWorkbook(), opts))

	require.Len(t, store.People, 1, "header row was not synced as a person")
	chair := store.People[0]
	assert.Equal(t, "Chair", chair.Role)
	assert.Equal(t, "Jane", chair.FirstName)
	assert.Equal(t, "jane@example.com", chair.Email)

	// The merged "AVB -> TSN" row records history, not a live group.
	require.Len(t, store.TaskGroups, 1)
	tg := store.TaskGroups[0]
	assert.Equal(t, "TSN", tg.Abbrev)
	assert.Equal(t, chair.ID, tg.ChairID)
}

func TestRunSkipsRowsWithoutTaskGroup(t *testing.T) {
	store := trackertest.New()
	sync := newTestSync(t, store)

	wb := testWorkbook()
	wb["Projects"] = append(wb["Projects"], []string{"802.1DC"})

	require.NoError(t, sync.Run(context.Background(), wb, Options{}))
	assert.Empty(t, store.Projects)
}

func TestStatusDateSuffixYieldsEvent(t *testing.T) {
	store := trackertest.New()
	store.AddTaskGroup(types.TaskGroup{Abbrev: "TSN", Name: "Time-Sensitive Networking"})
	sync := newTestSync(t, store)

	wb := testWorkbook()
	wb["Projects"][1][colStatus] = "Sponsor ballot - 5 Jan 2020"

	require.NoError(t, sync.Run(context.Background(), wb, Options{}))

	require.Len(t, store.Projects, 1)
	assert.Equal(t, status.SponsorBallot, store.Projects[0].Status)

	var ev *types.Event
	for i := range store.Events {
		if store.Events[i].Name == status.SponsorBallot {
			ev = &store.Events[i]
		}
	}
	require.NotNil(t, ev, "status date suffix produced an event")
	assert.True(t, ev.Date.Equal(types.NewDate(2020, 1, 5)))
}
