package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/move-league/move-league-backend/internal/models"
)

// UserRepository reads user profiles and studios. Both are owned by other
// services; this one only ever changes users.rating, through the ledger.
type UserRepository struct {
	q querier
}

func NewUserRepository(q querier) *UserRepository {
	return &UserRepository{q: q}
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, role, active, rating, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.Active,
		&user.Rating,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsersByRole returns users with the role, ordered by id.
func (r *UserRepository) ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `
		SELECT id, username, role, active, rating, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Role,
			&user.Active,
			&user.Rating,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// addRating moves a user's rating by delta in place.
func (r *UserRepository) addRating(ctx context.Context, userID string, delta int) error {
	query := `
		UPDATE users
		SET rating = rating + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetStudio(ctx context.Context, id string) (*models.Studio, error) {
	query := `SELECT id, name, owner_id FROM studios WHERE id = $1`

	studio := &models.Studio{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(&studio.ID, &studio.Name, &studio.OwnerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find studio: %w", err)
	}
	return studio, nil
}
