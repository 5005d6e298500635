// Package chore derives a chore's display state from its stored fields.
package chore

import (
	"time"

	"github.com/dukerupert/choreboss/internal/model"
)

type State string

const (
	StateUnassigned State = "unassigned"
	StateAssigned   State = "assigned"
)

// ComputeState reports whether anyone currently holds the chore. An
// assigned chore only moves to the next person through completion; it falls
// back to unassigned when an edit clears it or its last holder leaves an
// otherwise empty roster.
func ComputeState(c model.Chore) State {
	if c.AssignedTo == nil {
		return StateUnassigned
	}
	return StateAssigned
}

// CompletedOn reports whether the chore's last completion fell on the same
// calendar day as day, in day's location.
func CompletedOn(c model.Chore, day time.Time) bool {
	if c.LastCompletedAt == nil {
		return false
	}
	done := startOfDay(c.LastCompletedAt.In(day.Location()))
	return done.Equal(startOfDay(day))
}

// Annotate fills in the derived fields of d.
func Annotate(d *model.ChoreDetail, now time.Time) {
	d.State = string(ComputeState(d.Chore))
	d.CompletedToday = CompletedOn(d.Chore, now)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
