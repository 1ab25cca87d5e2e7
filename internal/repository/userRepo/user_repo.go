package userRepo

import (
	"context"
	"errors"
	"fmt"

	"records-service/internal/model/user"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (uint32, error) {
	query := `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`
	var userID uint32
	err := r.pool.QueryRow(ctx, query, username, email, passwordHash).Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user and retrieve id: %w", err)
	}
	return userID, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint32) (*user.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)

	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email=$1`
	row := r.pool.QueryRow(ctx, query, email)

	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE username=$1`
	row := r.pool.QueryRow(ctx, query, username)

	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint32, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`,
		passwordHash, id)
	return err
}
