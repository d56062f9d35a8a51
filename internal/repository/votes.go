package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-votes/internal/domain"
)

// VotesRepository provides helpers for movie votes.
type VotesRepository struct {
	pool *pgxpool.Pool
}

const voteColumns = `id, movie_id, user_id, value, voted_on`

// FindByMovieAndUser returns the vote a user cast on a movie.
func (r *VotesRepository) FindByMovieAndUser(ctx context.Context, movieID, userID int64) (domain.Vote, error) {
	query := fmt.Sprintf(`SELECT %s FROM votes WHERE movie_id = $1 AND user_id = $2`, voteColumns)
	vote, err := scanVote(r.pool.QueryRow(ctx, query, movieID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vote{}, ErrNotFound
		}
		return domain.Vote{}, err
	}
	return vote, nil
}

// GetByID fetches a vote by its identifier.
func (r *VotesRepository) GetByID(ctx context.Context, id int64) (domain.Vote, error) {
	query := fmt.Sprintf(`SELECT %s FROM votes WHERE id = $1`, voteColumns)
	vote, err := scanVote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vote{}, ErrNotFound
		}
		return domain.Vote{}, err
	}
	return vote, nil
}

// Save upserts by identity: a vote without an id is inserted, otherwise the
// stored row with that id is updated. Inserting a second vote for the same
// (movie, user) returns ErrConflict.
func (r *VotesRepository) Save(ctx context.Context, vote domain.Vote) (domain.Vote, error) {
	if vote.Saved() {
		return r.update(ctx, vote)
	}
	return r.insert(ctx, vote)
}

func (r *VotesRepository) insert(ctx context.Context, vote domain.Vote) (domain.Vote, error) {
	query := fmt.Sprintf(`
        INSERT INTO votes (movie_id, user_id, value)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, voteColumns)
	saved, err := scanVote(r.pool.QueryRow(ctx, query, vote.MovieID, vote.UserID, vote.Value))
	if err != nil {
		return domain.Vote{}, mapWriteError(err)
	}
	return saved, nil
}

func (r *VotesRepository) update(ctx context.Context, vote domain.Vote) (domain.Vote, error) {
	query := fmt.Sprintf(`
        UPDATE votes
        SET value = $2, voted_on = now()
        WHERE id = $1
        RETURNING %s
    `, voteColumns)
	saved, err := scanVote(r.pool.QueryRow(ctx, query, vote.ID, vote.Value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vote{}, ErrNotFound
		}
		return domain.Vote{}, mapWriteError(err)
	}
	return saved, nil
}

// Score returns the vote average and count for a movie.
func (r *VotesRepository) Score(ctx context.Context, movieID int64) (domain.Score, error) {
	return scoreForMovie(ctx, r.pool, movieID)
}

func scoreForMovie(ctx context.Context, pool *pgxpool.Pool, movieID int64) (domain.Score, error) {
	const query = `
        SELECT COALESCE(ROUND(AVG(value)::numeric, 1), 0)::float4 AS average,
               COUNT(*)::int8 AS count
        FROM votes
        WHERE movie_id = $1
    `
	var score domain.Score
	if err := pool.QueryRow(ctx, query, movieID).Scan(&score.Average, &score.Count); err != nil {
		return domain.Score{}, fmt.Errorf("score votes: %w", err)
	}
	return score, nil
}

func scanVote(row pgx.Row) (domain.Vote, error) {
	var vote domain.Vote
	err := row.Scan(&vote.ID, &vote.MovieID, &vote.UserID, &vote.Value, &vote.VotedOn)
	return vote, err
}
