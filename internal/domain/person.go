package domain

import "time"

// Credit roles linking a person to a movie.
const (
	RoleDirector = "director"
	RoleWriter   = "writer"
	RoleActor    = "actor"
)

// ValidRole reports whether role is a known credit role.
func ValidRole(role string) bool {
	switch role {
	case RoleDirector, RoleWriter, RoleActor:
		return true
	}
	return false
}

// Person is anyone credited on a movie.
type Person struct {
	ID        int64
	FirstName string
	LastName  string
	Born      time.Time
	Died      *time.Time
	CreatedAt time.Time
}

// FullName joins first and last name the way pages display it.
func (p Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Credit ties a person to a movie under a role. Character is only set for actors.
type Credit struct {
	MovieID    int64
	MovieTitle string
	MovieYear  int
	Person     Person
	Role       string
	Character  *string
}

// PersonDetail is a person with every movie they are credited on.
type PersonDetail struct {
	Person
	Directed []Credit
	Wrote    []Credit
	Acted    []Credit
}
