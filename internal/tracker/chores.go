package tracker

import (
	"context"
	"database/sql"
	"time"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/chore"
	"github.com/dukerupert/choreboss/internal/model"
	"github.com/dukerupert/choreboss/internal/rotation"
	"github.com/dukerupert/choreboss/internal/store"
)

func (s *Service) Chore(ctx context.Context, id int64) (*model.ChoreDetail, error) {
	c, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("chore", id)
	}
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, err
	}
	d := detail(*c, rotation.NewRoster(people), s.clock.Now())
	return &d, nil
}

// Chores returns every chore with its assignee and last completer loaded.
func (s *Service) Chores(ctx context.Context) ([]model.ChoreDetail, error) {
	chores, err := s.chores.List(ctx)
	if err != nil {
		return nil, err
	}
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, err
	}
	roster := rotation.NewRoster(people)
	now := s.clock.Now()

	out := make([]model.ChoreDetail, 0, len(chores))
	for _, c := range chores {
		out = append(out, detail(c, roster, now))
	}
	return out, nil
}

func detail(c model.Chore, roster rotation.Roster, now time.Time) model.ChoreDetail {
	d := model.ChoreDetail{Chore: c}
	if c.AssignedTo != nil {
		if p, ok := roster.Find(*c.AssignedTo); ok {
			d.Assignee = &p
		}
	}
	if c.LastCompletedBy != nil {
		if p, ok := roster.Find(*c.LastCompletedBy); ok {
			d.LastCompleter = &p
		}
	}
	chore.Annotate(&d, now)
	return d
}

// Completions returns a chore's completion history, newest first.
func (s *Service) Completions(ctx context.Context, choreID int64) ([]model.ChoreCompletion, error) {
	c, err := s.chores.GetByID(ctx, choreID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("chore", choreID)
	}
	completions, err := s.chores.ListCompletionsByChore(ctx, choreID)
	if err != nil {
		return nil, err
	}
	if completions == nil {
		completions = []model.ChoreCompletion{}
	}
	return completions, nil
}

// AddChore creates an unassigned chore.
func (s *Service) AddChore(ctx context.Context, in ChoreInput) (*model.Chore, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.chores.NameExists(ctx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid("name", "a chore named %q already exists", in.Name)
	}

	c, err := s.chores.Create(ctx, store.ChoreFields{Name: in.Name, Description: in.Description})
	if err != nil {
		return nil, err
	}

	s.publish("chore", "created", c.ID, nil)
	return c, nil
}

// UpdateChore edits a chore, including manual assignment changes. Only an
// admin may do this.
func (s *Service) UpdateChore(ctx context.Context, pin string, id int64, in ChoreUpdate) (*model.Chore, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("chore", id)
	}
	if err := s.Authorize(ctx, authz.Request{Action: authz.EditChore, PIN: pin, ChoreID: id}); err != nil {
		return nil, err
	}

	taken, err := s.chores.NameExists(ctx, in.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid("name", "a chore named %q already exists", in.Name)
	}

	if in.AssignedTo != nil {
		p, err := s.people.GetByID(ctx, *in.AssignedTo)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, invalid("assigned_to", "person %d does not exist", *in.AssignedTo)
		}
	}

	updated, err := s.chores.Update(ctx, id, store.ChoreFields{
		Name:        in.Name,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
	})
	if err != nil {
		return nil, err
	}

	s.publish("chore", "updated", id, nil)
	return updated, nil
}

func (s *Service) DeleteChore(ctx context.Context, pin string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.chores.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound("chore", id)
	}
	if err := s.Authorize(ctx, authz.Request{Action: authz.DeleteChore, PIN: pin, ChoreID: id}); err != nil {
		return err
	}
	if err := s.chores.Delete(ctx, id); err != nil {
		return err
	}

	s.publish("chore", "deleted", id, nil)
	return nil
}

// CompleteChore records that the current assignee finished the chore and
// hands it to the next person in the rotation. The completion stamp, the
// history row and the reassignment commit together. pin must belong to the
// assignee or an admin at the moment the completion is recorded.
func (s *Service) CompleteChore(ctx context.Context, pin string, choreID int64) (*model.Chore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.chores.GetByID(ctx, choreID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("chore", choreID)
	}
	if existing.AssignedTo == nil {
		return nil, invalid("assigned_to", "chore %d has no assignee to complete it", choreID)
	}
	if err := s.Authorize(ctx, authz.Request{Action: authz.CompleteChore, PIN: pin, ChoreID: choreID}); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var completed *model.Chore
	var completedBy int64
	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cs := store.NewChoreStore(tx)
		ps := store.NewPersonStore(tx)

		c, err := cs.GetByID(ctx, choreID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFound("chore", choreID)
		}
		if c.AssignedTo == nil {
			return invalid("assigned_to", "chore %d has no assignee to complete it", choreID)
		}
		completedBy = *c.AssignedTo

		people, err := ps.List(ctx)
		if err != nil {
			return err
		}
		var nextID *int64
		if next := rotation.NextPerson(&completedBy, rotation.NewRoster(people)); next != nil {
			nextID = &next.ID
		}

		if _, err := cs.CreateCompletion(ctx, choreID, &completedBy, now); err != nil {
			return err
		}
		completed, err = cs.RecordCompletion(ctx, choreID, completedBy, now, nextID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var assignedTo any
	if completed.AssignedTo != nil {
		assignedTo = *completed.AssignedTo
	}
	s.logger.Info("chore completed", "chore_id", choreID, "completed_by", completedBy, "assigned_to", assignedTo)
	s.metrics.ChoreCompleted()
	s.publish("chore", "completed", choreID, map[string]any{
		"completed_by": completedBy,
		"assigned_to":  assignedTo,
	})
	return completed, nil
}
