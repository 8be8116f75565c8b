package repository

import (
	"context"
	"fmt"

	"github.com/move-league/move-league-backend/internal/models"
)

// RatingRepository stores the append-only rating ledger.
type RatingRepository struct {
	q     querier
	users *UserRepository
}

func NewRatingRepository(q querier) *RatingRepository {
	return &RatingRepository{q: q, users: NewUserRepository(q)}
}

const ratingEntryColumns = `id, user_id, battle_id, season_label, delta, reason, revision, reverses_id, created_at`

// AppendRatingEntries must run inside a transaction so the entry rows and the
// rating increments commit together.
func (r *RatingRepository) AppendRatingEntries(ctx context.Context, entries []models.RatingEntry) error {
	query := `
		INSERT INTO rating_entries (` + ratingEntryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, e := range entries {
		_, err := r.q.ExecContext(ctx, query,
			e.ID, e.UserID, e.BattleID, e.SeasonLabel, e.Delta, e.Reason, e.Revision, e.ReversesID, e.CreatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("rating entry for user %s: %w", e.UserID, ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("failed to insert rating entry: %w", err)
		}
		if err := r.users.addRating(ctx, e.UserID, e.Delta); err != nil {
			return fmt.Errorf("rating entry for user %s: %w", e.UserID, err)
		}
	}
	return nil
}

// ListRatingEntries returns a battle's entries in insertion order.
func (r *RatingRepository) ListRatingEntries(ctx context.Context, battleID string) ([]models.RatingEntry, error) {
	query := `
		SELECT ` + ratingEntryColumns + `
		FROM rating_entries
		WHERE battle_id = $1
		ORDER BY seq
	`
	return r.list(ctx, query, battleID)
}

// ListRatingEntriesForUser returns the user's most recent entries first.
func (r *RatingRepository) ListRatingEntriesForUser(ctx context.Context, userID string, limit int) ([]models.RatingEntry, error) {
	query := `
		SELECT ` + ratingEntryColumns + `
		FROM rating_entries
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *RatingRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.RatingEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating entries: %w", err)
	}
	defer rows.Close()

	entries := []models.RatingEntry{}
	for rows.Next() {
		var e models.RatingEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.BattleID,
			&e.SeasonLabel,
			&e.Delta,
			&e.Reason,
			&e.Revision,
			&e.ReversesID,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating entries: %w", err)
	}
	return entries, nil
}
