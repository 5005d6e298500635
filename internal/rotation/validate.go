package rotation

import "fmt"

// SequenceError reports a roster or reorder request that would break the
// 1..N density of sequence positions.
type SequenceError struct {
	Reason string
}

func (e *SequenceError) Error() string {
	return "invalid sequence: " + e.Reason
}

// ValidatePermutation checks that assignments name every person in roster
// exactly once and use every position 1..N exactly once.
func ValidatePermutation(assignments []Assignment, roster Roster) error {
	n := len(roster)
	if len(assignments) != n {
		return &SequenceError{Reason: fmt.Sprintf("got %d assignments for %d people", len(assignments), n)}
	}

	seenPerson := make(map[int64]bool, n)
	seenPos := make(map[int]bool, n)
	for _, a := range assignments {
		if _, ok := roster.Find(a.PersonID); !ok {
			return &SequenceError{Reason: fmt.Sprintf("person %d not in roster", a.PersonID)}
		}
		if seenPerson[a.PersonID] {
			return &SequenceError{Reason: fmt.Sprintf("person %d listed twice", a.PersonID)}
		}
		if a.Position < 1 || a.Position > n {
			return &SequenceError{Reason: fmt.Sprintf("position %d out of range 1..%d", a.Position, n)}
		}
		if seenPos[a.Position] {
			return &SequenceError{Reason: fmt.Sprintf("position %d used twice", a.Position)}
		}
		seenPerson[a.PersonID] = true
		seenPos[a.Position] = true
	}
	return nil
}

// CheckDense reports whether roster positions are exactly 1..N.
func CheckDense(roster Roster) error {
	sorted := NewRoster(roster)
	for i, p := range sorted {
		if p.Sequence != i+1 {
			return &SequenceError{Reason: fmt.Sprintf("person %d has position %d, want %d", p.ID, p.Sequence, i+1)}
		}
	}
	return nil
}
