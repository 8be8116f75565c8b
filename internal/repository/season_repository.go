package repository

import (
	"context"
	"fmt"

	"github.com/move-league/move-league-backend/internal/models"
)

type SeasonRepository struct {
	q querier
}

func NewSeasonRepository(q querier) *SeasonRepository {
	return &SeasonRepository{q: q}
}

// CreateSeason returns ErrDuplicate when the label was already applied.
func (r *SeasonRepository) CreateSeason(ctx context.Context, season *models.Season) error {
	query := `
		INSERT INTO seasons (label, mode, applied_by, applied_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, season.Label, season.Mode, season.AppliedBy, season.AppliedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}
	return nil
}
