package domain

import "time"

// Accepted range for a vote value, inclusive.
const (
	MinVoteValue = 1
	MaxVoteValue = 10
)

// Vote is one user's rating of one movie. A zero ID marks a vote that has not
// been persisted yet.
type Vote struct {
	ID      int64
	MovieID int64
	UserID  int64
	Value   int
	VotedOn time.Time
}

// Saved reports whether the vote has a persisted identity.
func (v Vote) Saved() bool {
	return v.ID != 0
}

// User is an account that can log in and vote.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
