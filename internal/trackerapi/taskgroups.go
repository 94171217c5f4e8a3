package trackerapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/partrack/partrack/pkg/types"
)

// ListTaskGroups fetches every task group.
func (c *Client) ListTaskGroups(ctx context.Context) ([]types.TaskGroup, error) {
	var tgs []types.TaskGroup
	if err := c.get(ctx, "task_groups", nil, &tgs); err != nil {
		return nil, err
	}
	return tgs, nil
}

// FindTaskGroup searches for a task group by name and returns its full
// record. A nil result with nil error means no task group matched.
func (c *Client) FindTaskGroup(ctx context.Context, name string) (*types.TaskGroup, error) {
	var tgs []types.TaskGroup
	if err := c.get(ctx, "task_groups", url.Values{"search": {name}}, &tgs); err != nil {
		return nil, err
	}
	if len(tgs) == 0 {
		return nil, nil
	}
	var tg types.TaskGroup
	if err := c.get(ctx, fmt.Sprintf("task_groups/%d", tgs[0].ID), nil, &tg); err != nil {
		return nil, err
	}
	return &tg, nil
}

// CreateTaskGroup creates a task group. In dry-run mode the input is
// returned unsaved so callers can keep going.
func (c *Client) CreateTaskGroup(ctx context.Context, tg types.TaskGroup) (*types.TaskGroup, error) {
	var created types.TaskGroup
	wrote, err := c.write(ctx, "create task group", "POST", "task_groups", tg, &created)
	if err != nil {
		return nil, err
	}
	if !wrote {
		return &tg, nil
	}
	return &created, nil
}

// UpdateTaskGroup patches an existing task group.
func (c *Client) UpdateTaskGroup(ctx context.Context, tg types.TaskGroup) error {
	_, err := c.write(ctx, "update task group", "PATCH", fmt.Sprintf("task_groups/%d", tg.ID), tg, nil)
	return err
}
