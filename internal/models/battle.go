package models

import "time"

type BattleStatus string

const (
	BattleStatusPending        BattleStatus = "PENDING"
	BattleStatusAccepted       BattleStatus = "ACCEPTED"
	BattleStatusStudioPending  BattleStatus = "STUDIO_PENDING"
	BattleStatusConfirmed      BattleStatus = "CONFIRMED"
	BattleStatusScheduled      BattleStatus = "SCHEDULED"
	BattleStatusLive           BattleStatus = "LIVE"
	BattleStatusCompleted      BattleStatus = "COMPLETED"
	BattleStatusRejected       BattleStatus = "REJECTED"
	BattleStatusStudioRejected BattleStatus = "STUDIO_REJECTED"
	BattleStatusCancelled      BattleStatus = "CANCELLED"
)

// AllBattleStatuses lists every status in lifecycle order.
var AllBattleStatuses = []BattleStatus{
	BattleStatusPending,
	BattleStatusAccepted,
	BattleStatusStudioPending,
	BattleStatusConfirmed,
	BattleStatusScheduled,
	BattleStatusLive,
	BattleStatusCompleted,
	BattleStatusRejected,
	BattleStatusStudioRejected,
	BattleStatusCancelled,
}

func (s BattleStatus) Valid() bool {
	for _, status := range AllBattleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether no further participant-driven transition exists.
func (s BattleStatus) Terminal() bool {
	switch s {
	case BattleStatusCompleted, BattleStatusRejected, BattleStatusStudioRejected, BattleStatusCancelled:
		return true
	}
	return false
}

// BattleOutcome records how a battle was resolved.
type BattleOutcome string

const (
	OutcomeWin          BattleOutcome = "win"
	OutcomeDraw         BattleOutcome = "draw"
	OutcomeSingleNoShow BattleOutcome = "single_no_show"
	OutcomeBothNoShow   BattleOutcome = "both_no_show"
)

// StudioPreference is one ranked entry; priority 1 is most preferred.
type StudioPreference struct {
	StudioID string `json:"studioId"`
	Priority int    `json:"priority"`
}

// Scorecard holds the five referee criteria for one participant, each 0-10.
type Scorecard struct {
	Technique   int `json:"technique"`
	Musicality  int `json:"musicality"`
	Creativity  int `json:"creativity"`
	Execution   int `json:"execution"`
	Performance int `json:"performance"`
}

// Criteria returns the scores in a fixed order.
func (c Scorecard) Criteria() [5]int {
	return [5]int{c.Technique, c.Musicality, c.Creativity, c.Execution, c.Performance}
}

// ScoreSheet is the referee's record for both sides of a battle.
type ScoreSheet struct {
	Initiator       Scorecard `json:"initiator"`
	Challenged      Scorecard `json:"challenged"`
	InitiatorTotal  int       `json:"initiatorTotal"`
	ChallengedTotal int       `json:"challengedTotal"`
}

type Battle struct {
	ID                    string             `json:"id" db:"id"`
	InitiatorID           string             `json:"initiatorId" db:"initiator_id"`
	ChallengedID          string             `json:"challengedId" db:"challenged_id"`
	Status                BattleStatus       `json:"status" db:"status"`
	RefereeID             *string            `json:"refereeId,omitempty" db:"referee_id"`
	InitiatorPreferences  []StudioPreference `json:"initiatorPreferences,omitempty" db:"initiator_preferences"`
	ChallengedPreferences []StudioPreference `json:"challengedPreferences,omitempty" db:"challenged_preferences"`
	SelectedStudioID      *string            `json:"selectedStudioId,omitempty" db:"selected_studio_id"`
	ScheduledDate         *time.Time         `json:"scheduledDate,omitempty" db:"scheduled_date"`
	ScheduledTime         *string            `json:"scheduledTime,omitempty" db:"scheduled_time"`
	Location              *string            `json:"location,omitempty" db:"location"`
	Scores                *ScoreSheet        `json:"scores,omitempty" db:"scores"`
	WinnerID              *string            `json:"winnerId,omitempty" db:"winner_id"`
	Outcome               *BattleOutcome     `json:"outcome,omitempty" db:"outcome"`
	AbsentIDs             []string           `json:"absentIds,omitempty" db:"absent_ids"`
	ResultRevision        int                `json:"resultRevision" db:"result_revision"`
	CancelReason          *string            `json:"cancelReason,omitempty" db:"cancel_reason"`
	Version               int                `json:"version" db:"version"`
	CreatedAt             time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time          `json:"updatedAt" db:"updated_at"`
}

// IsParticipant reports whether userID is one of the two sides.
func (b *Battle) IsParticipant(userID string) bool {
	return userID != "" && (userID == b.InitiatorID || userID == b.ChallengedID)
}

// Opponent returns the other participant, or "" if userID is not a participant.
func (b *Battle) Opponent(userID string) string {
	switch userID {
	case b.InitiatorID:
		return b.ChallengedID
	case b.ChallengedID:
		return b.InitiatorID
	}
	return ""
}

// Clone returns a deep copy so the engine never mutates the caller's record.
func (b *Battle) Clone() *Battle {
	if b == nil {
		return nil
	}
	c := *b
	c.RefereeID = cloneString(b.RefereeID)
	c.SelectedStudioID = cloneString(b.SelectedStudioID)
	c.ScheduledTime = cloneString(b.ScheduledTime)
	c.Location = cloneString(b.Location)
	c.WinnerID = cloneString(b.WinnerID)
	c.CancelReason = cloneString(b.CancelReason)
	if b.ScheduledDate != nil {
		d := *b.ScheduledDate
		c.ScheduledDate = &d
	}
	if b.Scores != nil {
		s := *b.Scores
		c.Scores = &s
	}
	if b.Outcome != nil {
		o := *b.Outcome
		c.Outcome = &o
	}
	c.InitiatorPreferences = append([]StudioPreference(nil), b.InitiatorPreferences...)
	c.ChallengedPreferences = append([]StudioPreference(nil), b.ChallengedPreferences...)
	c.AbsentIDs = append([]string(nil), b.AbsentIDs...)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type CreateBattleRequest struct {
	ChallengedID string `json:"challengedId" binding:"required"`
}
