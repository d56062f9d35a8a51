package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-votes/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    title,
    plot,
    year,
    rating,
    runtime,
    website,
    created_at,
    updated_at
`

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title   string
	Plot    string
	Year    int
	Rating  string
	Runtime int
	Website *string
}

// Create inserts a new movie row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	rating := params.Rating
	if rating == "" {
		rating = domain.RatingNotRated
	}

	query := fmt.Sprintf(`
        INSERT INTO movies (title, plot, year, rating, runtime, website)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, params.Title, params.Plot, params.Year, rating, params.Runtime, params.Website)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, mapWriteError(err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Exists reports whether a movie with the given id is stored.
func (r *MoviesRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("movie exists: %w", err)
	}
	return exists, nil
}

// Count returns the number of stored movies.
func (r *MoviesRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return count, nil
}

// List returns a window of movies ordered newest year first, then by title.
func (r *MoviesRepository) List(ctx context.Context, limit, offset int) ([]domain.Movie, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT %s FROM movies
        ORDER BY year DESC, title ASC, id ASC
        LIMIT $1 OFFSET $2
    `, movieColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0, limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetDetail fetches a movie together with its credited people and vote score.
func (r *MoviesRepository) GetDetail(ctx context.Context, id int64) (domain.MovieDetail, error) {
	movie, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.MovieDetail{}, err
	}

	detail := domain.MovieDetail{Movie: movie}

	const creditsQuery = `
        SELECT c.role, c.character_name,
               p.id, p.first_name, p.last_name, p.born, p.died, p.created_at
        FROM credits c
        JOIN people p ON p.id = c.person_id
        WHERE c.movie_id = $1
        ORDER BY p.last_name, p.first_name, p.id
    `
	rows, err := r.pool.Query(ctx, creditsQuery, id)
	if err != nil {
		return domain.MovieDetail{}, fmt.Errorf("load movie credits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		credit := domain.Credit{MovieID: movie.ID, MovieTitle: movie.Title, MovieYear: movie.Year}
		err := rows.Scan(
			&credit.Role,
			&credit.Character,
			&credit.Person.ID,
			&credit.Person.FirstName,
			&credit.Person.LastName,
			&credit.Person.Born,
			&credit.Person.Died,
			&credit.Person.CreatedAt,
		)
		if err != nil {
			return domain.MovieDetail{}, err
		}
		switch credit.Role {
		case domain.RoleDirector:
			detail.Directors = append(detail.Directors, credit)
		case domain.RoleWriter:
			detail.Writers = append(detail.Writers, credit)
		case domain.RoleActor:
			detail.Actors = append(detail.Actors, credit)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.MovieDetail{}, err
	}

	score, err := scoreForMovie(ctx, r.pool, id)
	if err != nil {
		return domain.MovieDetail{}, err
	}
	detail.Score = score
	return detail, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Plot,
		&movie.Year,
		&movie.Rating,
		&movie.Runtime,
		&movie.Website,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
