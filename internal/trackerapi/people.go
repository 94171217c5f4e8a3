package trackerapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/partrack/partrack/pkg/types"
)

// SearchPeople looks up people by last name.
func (c *Client) SearchPeople(ctx context.Context, lastName string) ([]types.Person, error) {
	query := url.Values{}
	if lastName != "" {
		query.Set("search", lastName)
	}
	var people []types.Person
	if err := c.get(ctx, "people", query, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// CreatePerson registers a new person record.
func (c *Client) CreatePerson(ctx context.Context, person types.Person) (*types.Person, error) {
	var created types.Person
	wrote, err := c.write(ctx, "create person", "POST", "people", person, &created)
	if err != nil {
		return nil, err
	}
	if !wrote {
		return &person, nil
	}
	return &created, nil
}

// UpdatePerson patches an existing person record.
func (c *Client) UpdatePerson(ctx context.Context, person types.Person) error {
	path := fmt.Sprintf("people/%d", person.ID)
	_, err := c.write(ctx, "update person", "PATCH", path, person, nil)
	return err
}
