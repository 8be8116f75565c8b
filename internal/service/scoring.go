package service

import "github.com/move-league/move-league-backend/internal/models"

const (
	MinCriterionScore = 0
	MaxCriterionScore = 10
	CriteriaCount     = 5
	MaxTotalScore     = MaxCriterionScore * CriteriaCount
)

var criterionNames = [CriteriaCount]string{"technique", "musicality", "creativity", "execution", "performance"}

// ScoreResult is the aggregated outcome of a score sheet.
type ScoreResult struct {
	Sheet    models.ScoreSheet
	WinnerID *string
}

// Draw reports whether both totals are equal.
func (r ScoreResult) Draw() bool {
	return r.WinnerID == nil
}

func validateScorecard(side string, card models.Scorecard) (int, error) {
	total := 0
	for i, score := range card.Criteria() {
		if score < MinCriterionScore || score > MaxCriterionScore {
			return 0, validationError("%s %s score %d is outside %d-%d",
				side, criterionNames[i], score, MinCriterionScore, MaxCriterionScore)
		}
		total += score
	}
	return total, nil
}

// AggregateScores totals both scorecards and decides the winner. Equal totals are a
// draw. Out-of-range criteria are rejected, never clamped.
func AggregateScores(initiatorID, challengedID string, initiator, challenged models.Scorecard) (ScoreResult, error) {
	initiatorTotal, err := validateScorecard("initiator", initiator)
	if err != nil {
		return ScoreResult{}, err
	}
	challengedTotal, err := validateScorecard("challenged", challenged)
	if err != nil {
		return ScoreResult{}, err
	}

	result := ScoreResult{
		Sheet: models.ScoreSheet{
			Initiator:       initiator,
			Challenged:      challenged,
			InitiatorTotal:  initiatorTotal,
			ChallengedTotal: challengedTotal,
		},
	}
	switch {
	case initiatorTotal > challengedTotal:
		winner := initiatorID
		result.WinnerID = &winner
	case challengedTotal > initiatorTotal:
		winner := challengedID
		result.WinnerID = &winner
	}
	return result, nil
}
