package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-votes/internal/domain"
)

// UsersRepository stores login accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, password_hash, created_at`

// Create inserts a user. A taken username yields ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (username, password_hash)
        VALUES ($1,$2)
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, username, passwordHash))
	if err != nil {
		return domain.User{}, mapWriteError(err)
	}
	return user, nil
}

// GetByID fetches a user by id.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, id)
}

// GetByUsername fetches a user by login name.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.getOne(ctx, query, username)
}

// Exists reports whether a user with the given id is stored.
func (r *UsersRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *UsersRepository) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	return user, err
}
