// Package voting holds the vote lifecycle: resolving a user's vote on a
// movie, validating submissions, and guarding updates so only the owner can
// change a vote.
package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/repository"
)

const duplicateVoteMsg = "Vote with this Movie and User already exists."

// VoteStore persists votes. Lookups report absence with repository.ErrNotFound
// and Save reports a (movie, user) collision with repository.ErrConflict.
type VoteStore interface {
	FindByMovieAndUser(ctx context.Context, movieID, userID int64) (domain.Vote, error)
	GetByID(ctx context.Context, id int64) (domain.Vote, error)
	Save(ctx context.Context, vote domain.Vote) (domain.Vote, error)
}

// Lookup answers whether a referenced record exists.
type Lookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// VoteForm is a submitted vote. UserID and MovieID are never taken from the
// client: callers fill them from the requester and the route (create) or the
// stored vote (update).
type VoteForm struct {
	UserID  int64
	MovieID int64
	Value   string
}

// Service wires the resolver, validator and guard to storage.
type Service struct {
	votes  VoteStore
	movies Lookup
	users  Lookup
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(votes VoteStore, movies, users Lookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{votes: votes, movies: movies, users: users, logger: logger}
}

// Resolve returns the user's persisted vote on the movie, or an unsaved vote
// referencing both when none exists. Absence is not an error.
func (s *Service) Resolve(ctx context.Context, movieID, userID int64) (domain.Vote, error) {
	vote, err := s.votes.FindByMovieAndUser(ctx, movieID, userID)
	if err == nil {
		return vote, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Vote{MovieID: movieID, UserID: userID}, nil
	}
	return domain.Vote{}, fmt.Errorf("resolve vote: %w", err)
}

// Validate checks a submission against instance, the vote it will create or
// modify. On success it returns the vote ready for Save; on failure it returns
// *ValidationErrors and storage is untouched.
func (s *Service) Validate(ctx context.Context, form VoteForm, instance domain.Vote) (domain.Vote, error) {
	verr := &ValidationErrors{}

	value, msg := parseValue(form.Value)
	if msg != "" {
		verr.add(FieldValue, msg)
	}

	movieOK, err := s.movies.Exists(ctx, form.MovieID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("validate movie: %w", err)
	}
	if !movieOK {
		verr.add(FieldMovie, "Select a valid choice. That movie does not exist.")
	}

	userOK, err := s.users.Exists(ctx, form.UserID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("validate user: %w", err)
	}
	if !userOK {
		verr.add(FieldUser, "Select a valid choice. That user does not exist.")
	}

	if !instance.Saved() && movieOK && userOK {
		_, err := s.votes.FindByMovieAndUser(ctx, form.MovieID, form.UserID)
		switch {
		case err == nil:
			verr.addNonField(duplicateVoteMsg)
		case !errors.Is(err, repository.ErrNotFound):
			return domain.Vote{}, fmt.Errorf("validate uniqueness: %w", err)
		}
	}

	if !verr.empty() {
		return domain.Vote{}, verr
	}

	vote := instance
	vote.MovieID = form.MovieID
	vote.UserID = form.UserID
	vote.Value = value
	return vote, nil
}

// Authorize lets the owner of vote through and rejects everyone else,
// including anonymous requesters (id 0).
func Authorize(vote domain.Vote, requesterID int64) (domain.Vote, error) {
	if requesterID == 0 || vote.UserID != requesterID {
		return domain.Vote{}, ErrPermissionDenied
	}
	return vote, nil
}

// Create validates and inserts the requester's first vote on a movie.
func (s *Service) Create(ctx context.Context, requesterID, movieID int64, value string) (domain.Vote, error) {
	form := VoteForm{UserID: requesterID, MovieID: movieID, Value: value}
	vote, err := s.Validate(ctx, form, domain.Vote{MovieID: movieID, UserID: requesterID})
	if err != nil {
		return domain.Vote{}, err
	}
	return s.save(ctx, vote)
}

// Load fetches a vote for editing and applies the ownership guard.
func (s *Service) Load(ctx context.Context, voteID, requesterID int64) (domain.Vote, error) {
	vote, err := s.votes.GetByID(ctx, voteID)
	if err != nil {
		return domain.Vote{}, err
	}
	owned, err := Authorize(vote, requesterID)
	if err != nil {
		s.logger.Warn("vote update denied", "vote_id", voteID, "owner_id", vote.UserID, "requester_id", requesterID)
		return domain.Vote{}, err
	}
	return owned, nil
}

// Update changes the value of a vote owned by the requester. The vote keeps
// its movie and user.
func (s *Service) Update(ctx context.Context, voteID, requesterID int64, value string) (domain.Vote, error) {
	current, err := s.Load(ctx, voteID, requesterID)
	if err != nil {
		return domain.Vote{}, err
	}
	form := VoteForm{UserID: current.UserID, MovieID: current.MovieID, Value: value}
	vote, err := s.Validate(ctx, form, current)
	if err != nil {
		return domain.Vote{}, err
	}
	return s.save(ctx, vote)
}

func (s *Service) save(ctx context.Context, vote domain.Vote) (domain.Vote, error) {
	saved, err := s.votes.Save(ctx, vote)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent create for the same pair.
			return domain.Vote{}, &ValidationErrors{NonField: []string{duplicateVoteMsg}}
		}
		return domain.Vote{}, fmt.Errorf("save vote: %w", err)
	}
	s.logger.Info("vote saved", "vote_id", saved.ID, "movie_id", saved.MovieID, "user_id", saved.UserID, "value", saved.Value)
	return saved, nil
}

func parseValue(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "This field is required."
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "Enter a whole number."
	}
	if value < domain.MinVoteValue || value > domain.MaxVoteValue {
		return 0, fmt.Sprintf("Select a value between %d and %d.", domain.MinVoteValue, domain.MaxVoteValue)
	}
	return value, ""
}
