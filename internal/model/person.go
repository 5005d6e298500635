package model

import "time"

// Person is a member of the household rotation. Sequence is the person's
// 1-based position in the rotation order.
type Person struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Birthday  time.Time `json:"birthday"`
	IsAdmin   bool      `json:"is_admin"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "First Last".
func (p Person) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Credential pairs a person with their PIN digest. It is only read by the
// authorization policy and never serialized.
type Credential struct {
	PersonID int64
	IsAdmin  bool
	Digest   string
}
