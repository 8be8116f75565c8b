package service

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/move-league/move-league-backend/internal/models"
)

// Fixed rating deltas. These are deliberately not probability based.
const (
	WinDelta       = 20
	LossDelta      = -10
	NoShowDelta    = -50
	CarryOverShare = 0.20
)

// RatingLedger computes ledger entries for resolved battles. It performs no I/O;
// callers persist the entries and their rating increments in one transaction.
type RatingLedger struct {
	newID func() string
	now   func() time.Time
}

// NewRatingLedger creates a ledger that stamps entries with random UUIDs.
func NewRatingLedger() *RatingLedger {
	return &RatingLedger{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (l *RatingLedger) entry(userID string, battleID *string, delta int, reason models.RatingReason, revision int) models.RatingEntry {
	return models.RatingEntry{
		ID:        l.newID(),
		UserID:    userID,
		BattleID:  battleID,
		Delta:     delta,
		Reason:    reason,
		Revision:  revision,
		CreatedAt: l.now().UTC(),
	}
}

// ApplyWin winner +20, loser -10.
func (l *RatingLedger) ApplyWin(battleID, winnerID, loserID string, revision int) []models.RatingEntry {
	return []models.RatingEntry{
		l.entry(winnerID, &battleID, WinDelta, models.RatingReasonWin, revision),
		l.entry(loserID, &battleID, LossDelta, models.RatingReasonLoss, revision),
	}
}

// ApplyDraw leaves both ratings unchanged.
func (l *RatingLedger) ApplyDraw() []models.RatingEntry {
	return nil
}

// ApplyNoShowPenalty charges the absent participant. Ratings have no floor.
func (l *RatingLedger) ApplyNoShowPenalty(battleID, absentID string, revision int) []models.RatingEntry {
	return []models.RatingEntry{
		l.entry(absentID, &battleID, NoShowDelta, models.RatingReasonNoShow, revision),
	}
}

// Outstanding returns the entries that have not yet been reversed, in input order.
func Outstanding(entries []models.RatingEntry) []models.RatingEntry {
	reversed := make(map[string]bool)
	for _, e := range entries {
		if e.Reason == models.RatingReasonReversal && e.ReversesID != nil {
			reversed[*e.ReversesID] = true
		}
	}

	var out []models.RatingEntry
	for _, e := range entries {
		if e.Reason == models.RatingReasonReversal || reversed[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Reverse produces the additive inverse of each given entry. It refuses to
// reverse reversals or empty input; the original delta is never re-derived.
func (l *RatingLedger) Reverse(entries []models.RatingEntry) ([]models.RatingEntry, error) {
	if len(entries) == 0 {
		return nil, ledgerError("no applied rating delta to reverse")
	}

	reversals := make([]models.RatingEntry, 0, len(entries))
	for _, e := range entries {
		if e.Reason == models.RatingReasonReversal {
			return nil, ledgerError("entry %s is already a reversal", e.ID)
		}
		id := e.ID
		r := l.entry(e.UserID, e.BattleID, -e.Delta, models.RatingReasonReversal, e.Revision)
		r.ReversesID = &id
		reversals = append(reversals, r)
	}
	return reversals, nil
}

// ExpectedEntries is how many outstanding entries a resolved battle must have.
func ExpectedEntries(outcome models.BattleOutcome) int {
	switch outcome {
	case models.OutcomeWin:
		return 2
	case models.OutcomeSingleNoShow:
		return 1
	case models.OutcomeBothNoShow:
		return 2
	}
	return 0
}

// SeasonTarget computes a participant's post-reset rating.
// carry20 rounds to the nearest integer, halves away from zero.
func SeasonTarget(mode models.SeasonResetMode, current int) (int, error) {
	switch mode {
	case models.SeasonResetFull:
		return models.BaselineRating, nil
	case models.SeasonResetCarry20:
		return models.BaselineRating + int(math.Round(float64(current)*CarryOverShare)), nil
	}
	return 0, validationError("unknown season reset mode %q", mode)
}

// SeasonReset returns one entry per participant whose rating changes, moving it to
// its season target. Participants already at target get no entry.
func (l *RatingLedger) SeasonReset(mode models.SeasonResetMode, label string, users []*models.User) ([]models.RatingEntry, error) {
	var entries []models.RatingEntry
	for _, u := range users {
		target, err := SeasonTarget(mode, u.Rating)
		if err != nil {
			return nil, err
		}
		delta := target - u.Rating
		if delta == 0 {
			continue
		}
		season := label
		e := l.entry(u.ID, nil, delta, models.RatingReasonSeasonReset, 0)
		e.SeasonLabel = &season
		entries = append(entries, e)
	}
	return entries, nil
}

// Net sums deltas per user.
func Net(entries []models.RatingEntry) map[string]int {
	net := make(map[string]int)
	for _, e := range entries {
		net[e.UserID] += e.Delta
	}
	return net
}
