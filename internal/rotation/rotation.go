// Package rotation decides who is up next for a chore and keeps the
// household's sequence positions dense.
//
// Every function here is pure: it reads a Roster and returns a result or a
// set of position changes. Persisting those changes is the caller's job, and
// must happen in the same transaction as the mutation that caused them.
package rotation

import (
	"fmt"
	"slices"
	"sort"

	"github.com/dukerupert/choreboss/internal/model"
)

// Roster is the household ordered ascending by sequence position.
type Roster []model.Person

// Assignment sets one person's sequence position.
type Assignment struct {
	PersonID int64 `json:"id"`
	Position int   `json:"sequence"`
}

// NewRoster returns a copy of people sorted by sequence position. Equal
// positions, which only exist in a corrupted roster, fall back to ID order so
// the result is still deterministic.
func NewRoster(people []model.Person) Roster {
	r := make(Roster, len(people))
	copy(r, people)
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Sequence != r[j].Sequence {
			return r[i].Sequence < r[j].Sequence
		}
		return r[i].ID < r[j].ID
	})
	return r
}

// IDs returns the person IDs in rotation order.
func (r Roster) IDs() []int64 {
	ids := make([]int64, len(r))
	for i, p := range r {
		ids[i] = p.ID
	}
	return ids
}

// Find returns the person with the given ID.
func (r Roster) Find(id int64) (model.Person, bool) {
	for _, p := range r {
		if p.ID == id {
			return p, true
		}
	}
	return model.Person{}, false
}

// NextPerson returns the first person whose position is strictly greater than
// the current person's. Past the end of the rotation it wraps to the first
// person. A nil or unknown current ID also yields the first person. An empty
// roster yields nil.
func NextPerson(currentID *int64, roster Roster) *model.Person {
	if len(roster) == 0 {
		return nil
	}
	first := roster[0]

	if currentID == nil {
		return &first
	}
	current, ok := roster.Find(*currentID)
	if !ok {
		return &first
	}

	for _, p := range roster {
		if p.Sequence > current.Sequence {
			next := p
			return &next
		}
	}
	return &first
}

// NextSequence returns the position a newly added person takes: one past the
// current maximum, or 1 for an empty roster. Freed positions are never
// reused; deletions compact the roster instead.
func NextSequence(roster Roster) int {
	highest := 0
	for _, p := range roster {
		if p.Sequence > highest {
			highest = p.Sequence
		}
	}
	return highest + 1
}

// RenumberAfterDelete returns the position changes that close the gap left by
// removing the person at deletedPos: everyone above it moves down by exactly
// one. The deleted person may or may not still be in roster; they are never
// part of the result.
func RenumberAfterDelete(deletedPos int, roster Roster) []Assignment {
	var changes []Assignment
	for _, p := range roster {
		if p.Sequence > deletedPos {
			changes = append(changes, Assignment{PersonID: p.ID, Position: p.Sequence - 1})
		}
	}
	return changes
}

// ApplyReorder overwrites the position of each named person and returns the
// resulting roster. IDs not in the roster are ignored. No validation happens
// here; see ValidatePermutation.
func ApplyReorder(assignments []Assignment, roster Roster) Roster {
	pos := make(map[int64]int, len(assignments))
	for _, a := range assignments {
		pos[a.PersonID] = a.Position
	}

	out := make([]model.Person, len(roster))
	for i, p := range roster {
		if n, ok := pos[p.ID]; ok {
			p.Sequence = n
		}
		out[i] = p
	}
	return NewRoster(out)
}

// Move relocates one person to newPos and shifts everyone between the old and
// new position by one, keeping the roster dense. It returns only the changed
// positions.
func Move(personID int64, newPos int, roster Roster) ([]Assignment, error) {
	if newPos < 1 || newPos > len(roster) {
		return nil, &SequenceError{Reason: fmt.Sprintf("position %d out of range 1..%d", newPos, len(roster))}
	}
	from := slices.IndexFunc(roster, func(p model.Person) bool { return p.ID == personID })
	if from < 0 {
		return nil, &SequenceError{Reason: fmt.Sprintf("person %d not in roster", personID)}
	}

	order := roster.IDs()
	order = slices.Delete(order, from, from+1)
	order = slices.Insert(order, newPos-1, personID)

	var changes []Assignment
	for i, id := range order {
		p, _ := roster.Find(id)
		if p.Sequence != i+1 {
			changes = append(changes, Assignment{PersonID: id, Position: i + 1})
		}
	}
	return changes, nil
}

// Compact returns the changes that renumber roster to 1..N in its current
// order. A dense roster yields no changes.
func Compact(roster Roster) []Assignment {
	var changes []Assignment
	for i, p := range NewRoster(roster) {
		if p.Sequence != i+1 {
			changes = append(changes, Assignment{PersonID: p.ID, Position: i + 1})
		}
	}
	return changes
}
