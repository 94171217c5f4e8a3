package trackerapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/partrack/partrack/pkg/types"
)

// ListProjects fetches every project across all task groups.
func (c *Client) ListProjects(ctx context.Context) ([]types.Project, error) {
	var projects []types.Project
	if err := c.get(ctx, "projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SearchProjects runs a server-side designation search, scoped to a task
// group when one is given and global otherwise.
func (c *Client) SearchProjects(ctx context.Context, tg *types.TaskGroup, search string) ([]types.Project, error) {
	path := "projects"
	if tg != nil {
		path = fmt.Sprintf("task_groups/%d/projects", tg.ID)
	}
	var projects []types.Project
	if err := c.get(ctx, path, url.Values{"search": {search}}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches a project's full record by id.
func (c *Client) GetProject(ctx context.Context, id int) (*types.Project, error) {
	var proj types.Project
	if err := c.get(ctx, fmt.Sprintf("projects/%d", id), nil, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// CreateProject creates a project inside a task group. In dry-run mode
// the input is returned with the task group set but no id, so event
// attribution for the row can still be logged.
func (c *Client) CreateProject(ctx context.Context, tgID int, proj types.Project) (*types.Project, error) {
	var created types.Project
	wrote, err := c.write(ctx, "create project", "POST", fmt.Sprintf("task_groups/%d/projects", tgID), proj, &created)
	if err != nil {
		return nil, err
	}
	if !wrote {
		proj.TaskGroupID = tgID
		return &proj, nil
	}
	return &created, nil
}

// UpdateProject patches fields of an existing project. The patch is any
// JSON-marshalable value; map[string]any keeps partial updates partial.
func (c *Client) UpdateProject(ctx context.Context, proj *types.Project, patch any) error {
	path := fmt.Sprintf("task_groups/%d/projects/%d", proj.TaskGroupID, proj.ID)
	_, err := c.write(ctx, "update project", "PATCH", path, patch, nil)
	return err
}

// DeleteProject removes a project record. Its events must be deleted
// first; the reconciler's cascade owns that ordering.
func (c *Client) DeleteProject(ctx context.Context, tgID, projID int) error {
	path := fmt.Sprintf("task_groups/%d/projects/%d", tgID, projID)
	_, err := c.write(ctx, "delete project", "DELETE", path, nil, nil)
	return err
}
