package reconcile

import (
	"context"
	"strings"

	"github.com/partrack/partrack/pkg/errors"
	"github.com/partrack/partrack/pkg/types"
)

// FindPerson resolves a person by role and name. Identity is
// (role, first_name, last_name) with names compared case-insensitively.
// A nil result with nil error means no person matched.
func (r *Reconciler) FindPerson(ctx context.Context, role, first, last string) (*types.Person, error) {
	if first == "" || last == "" {
		return nil, nil
	}
	people, err := r.api.SearchPeople(ctx, last)
	if err != nil {
		return nil, err
	}
	for i, pers := range people {
		if pers.Role == role &&
			strings.EqualFold(pers.FirstName, first) &&
			strings.EqualFold(pers.LastName, last) {
			return &people[i], nil
		}
	}
	return nil, nil
}

// UpsertPerson creates the person when absent and patches the existing
// record when the email or affiliation changed.
func (r *Reconciler) UpsertPerson(ctx context.Context, person types.Person) (*types.Person, error) {
	existing, err := r.FindPerson(ctx, person.Role, person.FirstName, person.LastName)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		r.run.Logger.Info().
			Str("first", person.FirstName).
			Str("last", person.LastName).
			Str("role", person.Role).
			Msg("Adding person")
		created, err := r.api.CreatePerson(ctx, person)
		if err != nil {
			return nil, r.fatalFields(err)
		}
		return created, nil
	}
	if !strings.EqualFold(existing.Email, person.Email) || !strings.EqualFold(existing.Affiliation, person.Affiliation) {
		person.ID = existing.ID
		r.run.Logger.Info().
			Str("first", person.FirstName).
			Str("last", person.LastName).
			Msg("Updating person")
		if err := r.api.UpdatePerson(ctx, person); err != nil {
			return nil, r.fatalFields(err)
		}
		return &person, nil
	}
	return existing, nil
}

// FindTaskGroup resolves a task group by name.
func (r *Reconciler) FindTaskGroup(ctx context.Context, name string) (*types.TaskGroup, error) {
	return r.api.FindTaskGroup(ctx, name)
}

// ListTaskGroups fetches every task group.
func (r *Reconciler) ListTaskGroups(ctx context.Context) ([]types.TaskGroup, error) {
	return r.api.ListTaskGroups(ctx)
}

// UpsertTaskGroup ensures a task group exists with the given chair. The
// chair must already be a known person.
func (r *Reconciler) UpsertTaskGroup(ctx context.Context, abbrev, name string, chair *types.Person) (*types.TaskGroup, error) {
	if chair == nil {
		return nil, errors.NewLookupError("person", abbrev+" chair", "task group sync")
	}
	existing, err := r.api.FindTaskGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		r.run.Logger.Info().Str("abbrev", abbrev).Str("name", name).Msg("Adding task group")
		created, err := r.api.CreateTaskGroup(ctx, types.TaskGroup{
			Abbrev:  abbrev,
			Name:    name,
			ChairID: chair.ID,
		})
		if err != nil {
			return nil, r.fatalFields(err)
		}
		return created, nil
	}
	if existing.ChairID != chair.ID {
		existing.ChairID = chair.ID
		r.run.Logger.Info().Str("abbrev", abbrev).Msg("Updating task group chair")
		if err := r.api.UpdateTaskGroup(ctx, *existing); err != nil {
			return nil, r.fatalFields(err)
		}
	}
	return existing, nil
}
