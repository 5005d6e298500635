package model

import "time"

type Chore struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	AssignedTo      *int64     `json:"assigned_to"`
	LastCompletedBy *int64     `json:"last_completed_by"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type ChoreCompletion struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	CompletedBy *int64    `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}

// ChoreDetail is a chore with its person references loaded.
type ChoreDetail struct {
	Chore
	Assignee       *Person `json:"assignee"`
	LastCompleter  *Person `json:"last_completer"`
	State          string  `json:"state"`
	CompletedToday bool    `json:"completed_today"`
}
