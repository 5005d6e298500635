package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/credential"
	"github.com/dukerupert/choreboss/internal/model"
	"github.com/dukerupert/choreboss/internal/rotation"
	"github.com/dukerupert/choreboss/internal/store"
)

// People returns the roster in rotation order. Reads never change state.
func (s *Service) People(ctx context.Context) ([]model.Person, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, err
	}
	if people == nil {
		people = []model.Person{}
	}
	return people, nil
}

func (s *Service) Person(ctx context.Context, id int64) (*model.Person, error) {
	p, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("person", id)
	}
	return p, nil
}

// NextPerson returns who follows currentID in the rotation. It returns nil
// with no error for an empty roster.
func (s *Service) NextPerson(ctx context.Context, currentID *int64) (*model.Person, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, err
	}
	return rotation.NextPerson(currentID, rotation.NewRoster(people)), nil
}

// AddPerson puts a new person at the end of the rotation. pin must belong
// to an admin unless the roster has none yet.
func (s *Service) AddPerson(ctx context.Context, pin string, in PersonInput) (*model.Person, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(in.PIN)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Authorize(ctx, authz.Request{Action: authz.AddPerson, PIN: pin}); err != nil {
		return nil, err
	}

	var created *model.Person
	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ps := store.NewPersonStore(tx)
		people, err := ps.List(ctx)
		if err != nil {
			return err
		}
		seq := rotation.NextSequence(rotation.NewRoster(people))
		created, err = ps.Create(ctx, store.PersonFields{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Birthday:  in.Birthday,
			IsAdmin:   in.IsAdmin,
		}, digest, seq)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("person added", "person_id", created.ID, "sequence", created.Sequence)
	s.metrics.RosterChanged("add")
	s.publish("person", "created", created.ID, nil)
	return created, nil
}

// UpdatePerson edits a person's details. Changing is_admin needs an admin
// PIN even when the person is editing themselves.
func (s *Service) UpdatePerson(ctx context.Context, pin string, id int64, in PersonUpdate) (*model.Person, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound("person", id)
	}
	req := authz.Request{Action: authz.EditPerson, PIN: pin, PersonID: id}
	if err := s.Authorize(ctx, req); err != nil {
		return nil, err
	}
	if in.IsAdmin != existing.IsAdmin {
		req.Action = authz.SetAdmin
		if err := s.Authorize(ctx, req); err != nil {
			return nil, err
		}
	}

	updated, err := s.people.Update(ctx, id, store.PersonFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Birthday:  in.Birthday,
		IsAdmin:   in.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.publish("person", "updated", id, nil)
	return updated, nil
}

// ChangePIN replaces a person's PIN after checking the current one.
func (s *Service) ChangePIN(ctx context.Context, id int64, current, newPIN, confirm string) error {
	if newPIN != confirm {
		return invalid("confirm_pin", "does not match new PIN")
	}
	if err := credential.ValidatePIN(newPIN); err != nil {
		return invalid("new_pin", "%s", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.people.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return notFound("person", id)
	}

	digest, err := s.people.GetPINHash(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, digest) {
		return fmt.Errorf("current PIN: %w", ErrUnauthorized)
	}

	newDigest, err := s.hasher.Hash(newPIN)
	if err != nil {
		return err
	}
	if err := s.people.SetPIN(ctx, id, newDigest); err != nil {
		return err
	}

	s.logger.Info("pin changed", "person_id", id)
	return nil
}

// DeletePerson removes a person, hands their chores to whoever follows them
// in the rotation and closes the gap in sequence positions, all in one
// transaction.
func (s *Service) DeletePerson(ctx context.Context, pin string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizePerson(ctx, authz.DeletePerson, pin, id); err != nil {
		return err
	}

	var handedTo *int64
	var handedOver int64
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ps := store.NewPersonStore(tx)
		cs := store.NewChoreStore(tx)

		people, err := ps.List(ctx)
		if err != nil {
			return err
		}
		roster := rotation.NewRoster(people)
		target, ok := roster.Find(id)
		if !ok {
			return notFound("person", id)
		}

		if next := rotation.NextPerson(&id, roster); next != nil && next.ID != id {
			handedTo = &next.ID
		}
		if handedOver, err = cs.Reassign(ctx, id, handedTo); err != nil {
			return err
		}
		if err := cs.ClearLastCompletedBy(ctx, id); err != nil {
			return err
		}
		if err := ps.Delete(ctx, id); err != nil {
			return err
		}

		remaining := make(rotation.Roster, 0, len(roster)-1)
		for _, p := range roster {
			if p.ID != id {
				remaining = append(remaining, p)
			}
		}

		changes := rotation.RenumberAfterDelete(target.Sequence, remaining)
		if err := rotation.CheckDense(rotation.ApplyReorder(changes, remaining)); err != nil {
			s.logger.Warn("roster was not dense, compacting", "error", err)
			changes = rotation.Compact(remaining)
		}
		return applyAssignments(ctx, ps, changes)
	})
	if err != nil {
		return err
	}

	s.logger.Info("person deleted", "person_id", id, "chores_reassigned", handedOver)
	s.metrics.RosterChanged("delete")
	extra := map[string]any{"chores_reassigned": handedOver}
	if handedTo != nil {
		extra["reassigned_to"] = *handedTo
	}
	s.publish("person", "deleted", id, extra)
	return nil
}

// UpdateSequence moves one person to newPos, shifting the people in between.
func (s *Service) UpdateSequence(ctx context.Context, pin string, personID int64, newPos int) ([]model.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizePerson(ctx, authz.ChangeSequence, pin, personID); err != nil {
		return nil, err
	}

	var after rotation.Roster
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ps := store.NewPersonStore(tx)
		people, err := ps.List(ctx)
		if err != nil {
			return err
		}
		roster := rotation.NewRoster(people)
		if _, ok := roster.Find(personID); !ok {
			return notFound("person", personID)
		}

		changes, err := rotation.Move(personID, newPos, roster)
		if err != nil {
			return sequenceInvalid(err)
		}
		if err := applyAssignments(ctx, ps, changes); err != nil {
			return err
		}
		after = rotation.ApplyReorder(changes, roster)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RosterChanged("move")
	s.publish("roster", "reordered", personID, map[string]any{"sequence": newPos})
	return after, nil
}

// Reorder assigns every person a new position at once. The assignments
// must be a permutation of 1..N covering the whole roster; anything else is
// rejected before a single row changes.
func (s *Service) Reorder(ctx context.Context, pin string, assignments []rotation.Assignment) ([]model.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Authorize(ctx, authz.Request{Action: authz.ChangeSequence, PIN: pin}); err != nil {
		return nil, err
	}

	var after rotation.Roster
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ps := store.NewPersonStore(tx)
		people, err := ps.List(ctx)
		if err != nil {
			return err
		}
		roster := rotation.NewRoster(people)
		if err := rotation.ValidatePermutation(assignments, roster); err != nil {
			return sequenceInvalid(err)
		}
		if err := applyAssignments(ctx, ps, assignments); err != nil {
			return err
		}
		after = rotation.ApplyReorder(assignments, roster)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RosterChanged("reorder")
	s.publish("roster", "reordered", 0, nil)
	return after, nil
}

// authorizePerson reports a missing person as not found before asking the
// policy, so a denial never hides a typo in the id.
func (s *Service) authorizePerson(ctx context.Context, action authz.Action, pin string, id int64) error {
	p, err := s.people.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return notFound("person", id)
	}
	return s.Authorize(ctx, authz.Request{Action: action, PIN: pin, PersonID: id})
}

func applyAssignments(ctx context.Context, ps *store.PersonStore, changes []rotation.Assignment) error {
	for _, a := range changes {
		if err := ps.SetSequence(ctx, a.PersonID, a.Position); err != nil {
			return err
		}
	}
	return nil
}

func sequenceInvalid(err error) error {
	var seqErr *rotation.SequenceError
	if errors.As(err, &seqErr) {
		return invalid("sequence", "%s", seqErr.Reason)
	}
	return err
}
