package trackerapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/partrack/partrack/pkg/types"
)

// eventsPath builds the nested events path for a project.
func eventsPath(proj *types.Project) string {
	return fmt.Sprintf("task_groups/%d/projects/%d/events", proj.TaskGroupID, proj.ID)
}

// ListEvents fetches a project's events, server-side filtered by name
// when search is non-empty.
func (c *Client) ListEvents(ctx context.Context, proj *types.Project, search string) ([]types.Event, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	var events []types.Event
	if err := c.get(ctx, eventsPath(proj), query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent appends an event to a project's timeline.
func (c *Client) CreateEvent(ctx context.Context, proj *types.Project, ev types.Event) error {
	_, err := c.write(ctx, "create event", "POST", eventsPath(proj), ev, nil)
	return err
}

// DeleteEvent removes one event, as part of a project deletion cascade.
func (c *Client) DeleteEvent(ctx context.Context, proj *types.Project, eventID int) error {
	path := fmt.Sprintf("%s/%d", eventsPath(proj), eventID)
	_, err := c.write(ctx, "delete event", "DELETE", path, nil, nil)
	return err
}
