package domain

import "time"

// MPAA ratings accepted for a movie.
const (
	RatingNotRated = "NR"
	RatingG        = "G"
	RatingPG       = "PG"
	RatingR        = "R"
)

// ValidMpaaRating reports whether code is one of the known MPAA ratings.
func ValidMpaaRating(code string) bool {
	switch code {
	case RatingNotRated, RatingG, RatingPG, RatingR:
		return true
	}
	return false
}

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID        int64
	Title     string
	Plot      string
	Year      int
	Rating    string
	Runtime   int
	Website   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Score summarises the votes cast on a movie.
type Score struct {
	Average float32
	Count   int64
}

// MovieDetail is a movie with its credited people and vote score preloaded.
type MovieDetail struct {
	Movie
	Directors []Credit
	Writers   []Credit
	Actors    []Credit
	Score     Score
}
