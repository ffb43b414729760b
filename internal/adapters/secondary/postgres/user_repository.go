package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

const userColumns = `id, username, password_hash, created_at`

// UserRepository persists users in the users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts the user. A taken username yields ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
INSERT INTO users (username, password_hash)
VALUES ($1, $2)
RETURNING ` + userColumns

	created, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, user.Username, user.HashedPassword))
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// GetByID returns the user or ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
}

// GetByUsername matches case-insensitively and returns ErrUserNotFound when
// nobody has the name.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, username))
}
