package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-votes/internal/domain"
)

// PeopleRepository stores people and their movie credits.
type PeopleRepository struct {
	pool *pgxpool.Pool
}

// PersonCreateParams bundles the fields required to create a person.
type PersonCreateParams struct {
	FirstName string
	LastName  string
	Born      time.Time
	Died      *time.Time
}

// CreditParams links a person to a movie.
type CreditParams struct {
	MovieID   int64
	PersonID  int64
	Role      string
	Character *string
}

// Create inserts a person.
func (r *PeopleRepository) Create(ctx context.Context, params PersonCreateParams) (domain.Person, error) {
	const query = `
        INSERT INTO people (first_name, last_name, born, died)
        VALUES ($1,$2,$3,$4)
        RETURNING id, first_name, last_name, born, died, created_at
    `
	person, err := scanPerson(r.pool.QueryRow(ctx, query, params.FirstName, params.LastName, params.Born, params.Died))
	if err != nil {
		return domain.Person{}, mapWriteError(err)
	}
	return person, nil
}

// GetByID fetches a single person.
func (r *PeopleRepository) GetByID(ctx context.Context, id int64) (domain.Person, error) {
	const query = `SELECT id, first_name, last_name, born, died, created_at FROM people WHERE id = $1`
	person, err := scanPerson(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Person{}, ErrNotFound
		}
		return domain.Person{}, err
	}
	return person, nil
}

// AddCredit records a person's role on a movie. Unknown movie or person ids
// yield ErrNotFound; a duplicate (movie, person, role) yields ErrConflict.
func (r *PeopleRepository) AddCredit(ctx context.Context, params CreditParams) error {
	const query = `
        INSERT INTO credits (movie_id, person_id, role, character_name)
        VALUES ($1,$2,$3,$4)
    `
	if _, err := r.pool.Exec(ctx, query, params.MovieID, params.PersonID, params.Role, params.Character); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetDetail fetches a person with every credited movie preloaded.
func (r *PeopleRepository) GetDetail(ctx context.Context, id int64) (domain.PersonDetail, error) {
	person, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.PersonDetail{}, err
	}
	detail := domain.PersonDetail{Person: person}

	const query = `
        SELECT c.role, c.character_name, m.id, m.title, m.year
        FROM credits c
        JOIN movies m ON m.id = c.movie_id
        WHERE c.person_id = $1
        ORDER BY m.year DESC, m.title ASC
    `
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return domain.PersonDetail{}, fmt.Errorf("load person credits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		credit := domain.Credit{Person: person}
		if err := rows.Scan(&credit.Role, &credit.Character, &credit.MovieID, &credit.MovieTitle, &credit.MovieYear); err != nil {
			return domain.PersonDetail{}, err
		}
		switch credit.Role {
		case domain.RoleDirector:
			detail.Directed = append(detail.Directed, credit)
		case domain.RoleWriter:
			detail.Wrote = append(detail.Wrote, credit)
		case domain.RoleActor:
			detail.Acted = append(detail.Acted, credit)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.PersonDetail{}, err
	}
	return detail, nil
}

func scanPerson(row pgx.Row) (domain.Person, error) {
	var person domain.Person
	err := row.Scan(
		&person.ID,
		&person.FirstName,
		&person.LastName,
		&person.Born,
		&person.Died,
		&person.CreatedAt,
	)
	return person, err
}
