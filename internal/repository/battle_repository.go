package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/move-league/move-league-backend/internal/models"
)

type BattleRepository struct {
	q querier
}

func NewBattleRepository(q querier) *BattleRepository {
	return &BattleRepository{q: q}
}

const battleColumns = `
	id, initiator_id, challenged_id, status, referee_id,
	initiator_preferences, challenged_preferences, selected_studio_id,
	scheduled_date, scheduled_time, location, scores, winner_id, outcome,
	absent_ids, result_revision, cancel_reason, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBattle(row rowScanner) (*models.Battle, error) {
	b := &models.Battle{}
	var (
		initiatorPrefs, challengedPrefs, scores []byte
		outcome                                 sql.NullString
		absent                                  pq.StringArray
	)

	err := row.Scan(
		&b.ID,
		&b.InitiatorID,
		&b.ChallengedID,
		&b.Status,
		&b.RefereeID,
		&initiatorPrefs,
		&challengedPrefs,
		&b.SelectedStudioID,
		&b.ScheduledDate,
		&b.ScheduledTime,
		&b.Location,
		&scores,
		&b.WinnerID,
		&outcome,
		&absent,
		&b.ResultRevision,
		&b.CancelReason,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalNullable(initiatorPrefs, &b.InitiatorPreferences); err != nil {
		return nil, fmt.Errorf("failed to decode initiator preferences: %w", err)
	}
	if err := unmarshalNullable(challengedPrefs, &b.ChallengedPreferences); err != nil {
		return nil, fmt.Errorf("failed to decode challenged preferences: %w", err)
	}
	if len(scores) > 0 {
		b.Scores = &models.ScoreSheet{}
		if err := json.Unmarshal(scores, b.Scores); err != nil {
			return nil, fmt.Errorf("failed to decode scores: %w", err)
		}
	}
	if outcome.Valid {
		o := models.BattleOutcome(outcome.String)
		b.Outcome = &o
	}
	if len(absent) > 0 {
		b.AbsentIDs = []string(absent)
	}
	return b, nil
}

func unmarshalNullable(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// marshalNullable maps empty values to SQL NULL.
func marshalNullable(v interface{}, empty bool) (interface{}, error) {
	if empty {
		return nil, nil
	}
	return json.Marshal(v)
}

type battleArgs struct {
	initiatorPrefs, challengedPrefs, scores, outcome interface{}
}

func encodeBattle(b *models.Battle) (*battleArgs, error) {
	var (
		a   battleArgs
		err error
	)
	if a.initiatorPrefs, err = marshalNullable(b.InitiatorPreferences, len(b.InitiatorPreferences) == 0); err != nil {
		return nil, fmt.Errorf("failed to encode initiator preferences: %w", err)
	}
	if a.challengedPrefs, err = marshalNullable(b.ChallengedPreferences, len(b.ChallengedPreferences) == 0); err != nil {
		return nil, fmt.Errorf("failed to encode challenged preferences: %w", err)
	}
	if a.scores, err = marshalNullable(b.Scores, b.Scores == nil); err != nil {
		return nil, fmt.Errorf("failed to encode scores: %w", err)
	}
	if b.Outcome != nil {
		a.outcome = string(*b.Outcome)
	}
	return &a, nil
}

// GetBattle returns ErrNotFound when no battle has the id.
func (r *BattleRepository) GetBattle(ctx context.Context, id string) (*models.Battle, error) {
	query := `SELECT` + battleColumns + ` FROM battles WHERE id = $1`

	b, err := scanBattle(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get battle: %w", err)
	}
	return b, nil
}

func (r *BattleRepository) CreateBattle(ctx context.Context, b *models.Battle) error {
	args, err := encodeBattle(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO battles (
			id, initiator_id, challenged_id, status, referee_id,
			initiator_preferences, challenged_preferences, selected_studio_id,
			scheduled_date, scheduled_time, location, scores, winner_id, outcome,
			absent_ids, result_revision, cancel_reason, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.q.ExecContext(ctx, query,
		b.ID, b.InitiatorID, b.ChallengedID, b.Status, b.RefereeID,
		args.initiatorPrefs, args.challengedPrefs, b.SelectedStudioID,
		b.ScheduledDate, b.ScheduledTime, b.Location, args.scores, b.WinnerID, args.outcome,
		pq.Array(b.AbsentIDs), b.ResultRevision, b.CancelReason, b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create battle: %w", err)
	}
	return nil
}

func (r *BattleRepository) UpdateBattle(ctx context.Context, b *models.Battle, expectedVersion int) error {
	args, err := encodeBattle(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE battles SET
			status = $1, referee_id = $2,
			initiator_preferences = $3, challenged_preferences = $4, selected_studio_id = $5,
			scheduled_date = $6, scheduled_time = $7, location = $8,
			scores = $9, winner_id = $10, outcome = $11, absent_ids = $12,
			result_revision = $13, cancel_reason = $14,
			version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17
	`
	result, err := r.q.ExecContext(ctx, query,
		b.Status, b.RefereeID,
		args.initiatorPrefs, args.challengedPrefs, b.SelectedStudioID,
		b.ScheduledDate, b.ScheduledTime, b.Location,
		args.scores, b.WinnerID, args.outcome, pq.Array(b.AbsentIDs),
		b.ResultRevision, b.CancelReason,
		b.UpdatedAt,
		b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update battle: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetBattle(ctx, b.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	b.Version = expectedVersion + 1
	return nil
}

// ListBattlesForUser returns battles the user takes part in or referees, newest first.
func (r *BattleRepository) ListBattlesForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Battle, error) {
	query := `SELECT` + battleColumns + `
		FROM battles
		WHERE initiator_id = $1 OR challenged_id = $1 OR referee_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list battles: %w", err)
	}
	defer rows.Close()

	battles := []*models.Battle{}
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate battles: %w", err)
	}
	return battles, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
