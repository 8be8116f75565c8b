package models

import "time"

type RatingReason string

const (
	RatingReasonWin         RatingReason = "win"
	RatingReasonLoss        RatingReason = "loss"
	RatingReasonNoShow      RatingReason = "no_show"
	RatingReasonReversal    RatingReason = "reversal"
	RatingReasonSeasonReset RatingReason = "season_reset"
)

// RatingEntry is an immutable ledger row. A user's rating is the baseline plus the
// sum of their entries; corrections are new entries with Reason reversal.
type RatingEntry struct {
	ID          string       `json:"id" db:"id"`
	UserID      string       `json:"userId" db:"user_id"`
	BattleID    *string      `json:"battleId,omitempty" db:"battle_id"`
	SeasonLabel *string      `json:"seasonLabel,omitempty" db:"season_label"`
	Delta       int          `json:"delta" db:"delta"`
	Reason      RatingReason `json:"reason" db:"reason"`
	Revision    int          `json:"revision" db:"revision"`
	ReversesID  *string      `json:"reversesId,omitempty" db:"reverses_id"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

type SeasonResetMode string

const (
	SeasonResetFull    SeasonResetMode = "full"
	SeasonResetCarry20 SeasonResetMode = "carry20"
)

type Season struct {
	Label     string          `json:"label" db:"label"`
	Mode      SeasonResetMode `json:"mode" db:"mode"`
	AppliedBy string          `json:"appliedBy" db:"applied_by"`
	AppliedAt time.Time       `json:"appliedAt" db:"applied_at"`
}

type SeasonResetRequest struct {
	Label string          `json:"label" binding:"required"`
	Mode  SeasonResetMode `json:"mode" binding:"required"`
}
