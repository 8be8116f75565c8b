package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
)

// ActorRule names who may perform an action on a given battle.
type ActorRule string

const (
	ActorChallenged     ActorRule = "challenged"
	ActorParticipant    ActorRule = "participant"
	ActorStudioOwner    ActorRule = "studio_owner"
	ActorAdmin          ActorRule = "admin"
	ActorRefereeOrAdmin ActorRule = "referee_or_admin"
)

// Transition is one row of the lifecycle table.
type Transition struct {
	Action ActionKind
	From   []models.BattleStatus
	Actor  ActorRule
	To     []models.BattleStatus
}

var resolvableStatuses = []models.BattleStatus{
	models.BattleStatusLive,
	models.BattleStatusScheduled,
	models.BattleStatusConfirmed,
}

// Transitions is the complete lifecycle table. Any (status, action) pair not
// listed here is rejected with an INVALID_STATE error.
var Transitions = []Transition{
	{ActionAccept, []models.BattleStatus{models.BattleStatusPending}, ActorChallenged, []models.BattleStatus{models.BattleStatusAccepted}},
	{ActionReject, []models.BattleStatus{models.BattleStatusPending}, ActorChallenged, []models.BattleStatus{models.BattleStatusRejected}},
	{ActionSubmitPreferences, []models.BattleStatus{models.BattleStatusAccepted}, ActorParticipant, []models.BattleStatus{models.BattleStatusAccepted, models.BattleStatusStudioPending}},
	{ActionStudioApprove, []models.BattleStatus{models.BattleStatusStudioPending}, ActorStudioOwner, []models.BattleStatus{models.BattleStatusConfirmed}},
	{ActionStudioReject, []models.BattleStatus{models.BattleStatusStudioPending}, ActorStudioOwner, []models.BattleStatus{models.BattleStatusStudioRejected}},
	{ActionAssignReferee, []models.BattleStatus{models.BattleStatusConfirmed}, ActorAdmin, []models.BattleStatus{models.BattleStatusScheduled}},
	{ActionGoLive, []models.BattleStatus{models.BattleStatusScheduled}, ActorRefereeOrAdmin, []models.BattleStatus{models.BattleStatusLive}},
	{ActionSubmitScores, resolvableStatuses, ActorRefereeOrAdmin, []models.BattleStatus{models.BattleStatusCompleted}},
	{ActionSingleNoShow, resolvableStatuses, ActorRefereeOrAdmin, []models.BattleStatus{models.BattleStatusCompleted}},
	{ActionBothNoShow, resolvableStatuses, ActorRefereeOrAdmin, []models.BattleStatus{models.BattleStatusCancelled}},
	{ActionAdminEditResult, []models.BattleStatus{models.BattleStatusCompleted}, ActorAdmin, []models.BattleStatus{models.BattleStatusCompleted}},
	{ActionAdminCancel, []models.BattleStatus{
		models.BattleStatusPending,
		models.BattleStatusAccepted,
		models.BattleStatusStudioPending,
		models.BattleStatusConfirmed,
		models.BattleStatusScheduled,
		models.BattleStatusLive,
		models.BattleStatusCompleted,
	}, ActorAdmin, []models.BattleStatus{models.BattleStatusCancelled}},
	{ActionAdminReschedule, []models.BattleStatus{models.BattleStatusConfirmed, models.BattleStatusScheduled}, ActorAdmin, []models.BattleStatus{models.BattleStatusConfirmed, models.BattleStatusScheduled}},
}

// LookupTransition returns the table row for an action.
func LookupTransition(kind ActionKind) (Transition, bool) {
	for _, t := range Transitions {
		if t.Action == kind {
			return t, true
		}
	}
	return Transition{}, false
}

// Permits reports whether the row allows the action from status.
func (t Transition) Permits(status models.BattleStatus) bool {
	return containsStatus(t.From, status)
}

func containsStatus(statuses []models.BattleStatus, status models.BattleStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Actor is a resolved caller identity.
type Actor struct {
	UserID string
	Role   models.Role
	Active bool
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// TransitionInput is everything the engine needs to decide one transition.
// The caller loads it inside the transaction that will persist the decision.
type TransitionInput struct {
	Battle  *models.Battle
	Actor   Actor
	Studios map[string]*models.Studio
	Referee *models.User
	Entries []models.RatingEntry
	Now     time.Time
}

// Decision is the outcome of a successful transition: the next battle record,
// the ledger entries to persist, and the notifications to send after commit.
type Decision struct {
	Battle        *models.Battle
	From          models.BattleStatus
	Entries       []models.RatingEntry
	Notifications []models.Notification
}

// BattleEngine applies lifecycle actions to battles. It is deterministic apart
// from ledger entry ids and has no I/O.
type BattleEngine struct {
	ledger *RatingLedger
}

func NewBattleEngine(ledger *RatingLedger) *BattleEngine {
	if ledger == nil {
		ledger = NewRatingLedger()
	}
	return &BattleEngine{ledger: ledger}
}

// Decide validates and applies action to in.Battle. Checks run in a fixed order:
// identity, role or ownership, current status, then action input.
func (e *BattleEngine) Decide(in TransitionInput, action Action) (*Decision, error) {
	if in.Battle == nil {
		return nil, notFoundError("battle not found")
	}
	if action == nil {
		return nil, validationError("action is required")
	}
	row, ok := LookupTransition(action.Kind())
	if !ok {
		return nil, validationError("unknown action %q", action.Kind())
	}

	if strings.TrimSpace(in.Actor.UserID) == "" {
		return nil, authenticationError("actor identity is required")
	}
	if !in.Actor.Active {
		return nil, authorizationError("actor %s is not active", in.Actor.UserID)
	}
	if err := e.authorize(row.Actor, in); err != nil {
		return nil, err
	}
	if !in.Battle.Status.Valid() {
		return nil, invalidStateError("battle %s has unknown status %q", in.Battle.ID, in.Battle.Status)
	}
	if !row.Permits(in.Battle.Status) {
		return nil, invalidStateError("cannot %s a battle in status %s", action.Kind(), in.Battle.Status)
	}

	d := &Decision{
		Battle: in.Battle.Clone(),
		From:   in.Battle.Status,
	}

	var err error
	switch a := action.(type) {
	case Accept:
		err = e.accept(d)
	case Reject:
		err = e.reject(d)
	case SubmitPreferences:
		err = e.submitPreferences(d, in, a)
	case StudioApprove:
		err = e.studioApprove(d, in, a)
	case StudioReject:
		err = e.studioReject(d, a)
	case AssignReferee:
		err = e.assignReferee(d, in, a)
	case GoLive:
		err = e.goLive(d)
	case SubmitScores:
		err = e.submitScores(d, a)
	case SingleNoShow:
		err = e.singleNoShow(d, a)
	case BothNoShow:
		err = e.bothNoShow(d)
	case AdminEditResult:
		err = e.adminEditResult(d, in, a)
	case AdminCancel:
		err = e.adminCancel(d, in, a)
	case AdminReschedule:
		err = e.adminReschedule(d, in, a)
	default:
		err = validationError("unsupported action %T", action)
	}
	if err != nil {
		return nil, err
	}

	if !containsStatus(row.To, d.Battle.Status) {
		return nil, internalError(
			fmt.Errorf("%s produced status %s", action.Kind(), d.Battle.Status),
			"transition produced an illegal status",
		)
	}
	d.Battle.UpdatedAt = in.Now.UTC()
	return d, nil
}

func (e *BattleEngine) authorize(rule ActorRule, in TransitionInput) error {
	actor := in.Actor
	b := in.Battle

	switch rule {
	case ActorChallenged:
		if actor.UserID == b.ChallengedID {
			return nil
		}
		return authorizationError("only the challenged participant may do this")
	case ActorParticipant:
		if b.IsParticipant(actor.UserID) {
			return nil
		}
		return authorizationError("only battle participants may do this")
	case ActorStudioOwner:
		if b.SelectedStudioID != nil {
			if studio, ok := in.Studios[*b.SelectedStudioID]; ok && studio != nil && studio.OwnerID == actor.UserID {
				return nil
			}
		}
		return authorizationError("only the owner of the selected studio may do this")
	case ActorAdmin:
		if actor.IsAdmin() {
			return nil
		}
		return authorizationError("admin role required")
	case ActorRefereeOrAdmin:
		if actor.IsAdmin() {
			return nil
		}
		if b.RefereeID != nil && *b.RefereeID == actor.UserID {
			return nil
		}
		return authorizationError("only the assigned referee or an admin may do this")
	}
	return authorizationError("unknown actor rule %q", rule)
}

func (d *Decision) notify(t models.NotificationType, recipients ...string) {
	seen := make(map[string]bool, len(recipients))
	for _, r := range recipients {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		d.Notifications = append(d.Notifications, models.Notification{
			RecipientID: r,
			Type:        t,
			BattleID:    d.Battle.ID,
		})
	}
}

func (d *Decision) participants() []string {
	return []string{d.Battle.InitiatorID, d.Battle.ChallengedID}
}

func (d *Decision) everyone() []string {
	recipients := d.participants()
	if d.Battle.RefereeID != nil {
		recipients = append(recipients, *d.Battle.RefereeID)
	}
	return recipients
}

func (e *BattleEngine) accept(d *Decision) error {
	d.Battle.Status = models.BattleStatusAccepted
	d.notify(models.NotificationBattleAccepted, d.Battle.InitiatorID)
	return nil
}

func (e *BattleEngine) reject(d *Decision) error {
	d.Battle.Status = models.BattleStatusRejected
	d.notify(models.NotificationBattleRejected, d.Battle.InitiatorID)
	return nil
}

func (e *BattleEngine) submitPreferences(d *Decision, in TransitionInput, a SubmitPreferences) error {
	if d.Battle.SelectedStudioID != nil {
		return invalidStateError("studio already selected; preferences can no longer change")
	}
	if err := ValidatePreferences(a.Preferences); err != nil {
		return err
	}

	prefs := make([]models.StudioPreference, len(a.Preferences))
	for i, p := range a.Preferences {
		id := strings.TrimSpace(p.StudioID)
		if studio, ok := in.Studios[id]; !ok || studio == nil {
			return validationError("studio %s does not exist", id)
		}
		prefs[i] = models.StudioPreference{StudioID: id, Priority: p.Priority}
	}

	actorID := in.Actor.UserID
	if actorID == d.Battle.InitiatorID {
		d.Battle.InitiatorPreferences = prefs
	} else {
		d.Battle.ChallengedPreferences = prefs
	}
	d.notify(models.NotificationPreferencesSubmitted, d.Battle.Opponent(actorID))

	if len(d.Battle.InitiatorPreferences) < MinStudioPreferences || len(d.Battle.ChallengedPreferences) < MinStudioPreferences {
		return nil
	}

	studioID, err := ResolveStudio(d.Battle.InitiatorPreferences, d.Battle.ChallengedPreferences)
	if err != nil {
		return err
	}
	d.Battle.SelectedStudioID = &studioID
	d.Battle.Status = models.BattleStatusStudioPending
	d.notify(models.NotificationStudioSelected, d.participants()...)
	if studio := in.Studios[studioID]; studio != nil {
		d.notify(models.NotificationStudioRequest, studio.OwnerID)
	}
	return nil
}

func validateSchedule(date time.Time, clock, location string, now time.Time) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, validationError("date is required")
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	today := now.UTC()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return time.Time{}, validationError("date %s is in the past", day.Format("2006-01-02"))
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return time.Time{}, validationError("time %q must be HH:MM", clock)
	}
	if strings.TrimSpace(location) == "" {
		return time.Time{}, validationError("location is required")
	}
	return day, nil
}

func (e *BattleEngine) studioApprove(d *Decision, in TransitionInput, a StudioApprove) error {
	day, err := validateSchedule(a.Date, a.Time, a.Location, in.Now)
	if err != nil {
		return err
	}
	clock := a.Time
	location := strings.TrimSpace(a.Location)
	d.Battle.ScheduledDate = &day
	d.Battle.ScheduledTime = &clock
	d.Battle.Location = &location
	d.Battle.Status = models.BattleStatusConfirmed
	d.notify(models.NotificationStudioApproved, d.participants()...)
	return nil
}

func (e *BattleEngine) studioReject(d *Decision, a StudioReject) error {
	d.Battle.Status = models.BattleStatusStudioRejected
	if reason := strings.TrimSpace(a.Reason); reason != "" {
		d.Battle.CancelReason = &reason
	}
	d.notify(models.NotificationStudioRejected, d.participants()...)
	return nil
}

func (e *BattleEngine) assignReferee(d *Decision, in TransitionInput, a AssignReferee) error {
	refereeID := strings.TrimSpace(a.RefereeID)
	if refereeID == "" {
		return validationError("refereeId is required")
	}
	ref := in.Referee
	if ref == nil || ref.ID != refereeID {
		return validationError("referee %s does not exist", refereeID)
	}
	if ref.Role != models.RoleReferee {
		return validationError("user %s is not a referee", refereeID)
	}
	if !ref.Active {
		return validationError("referee %s is not active", refereeID)
	}
	if d.Battle.IsParticipant(refereeID) {
		return validationError("a participant cannot referee their own battle")
	}

	d.Battle.RefereeID = &refereeID
	d.Battle.Status = models.BattleStatusScheduled
	d.notify(models.NotificationRefereeAssigned, refereeID)
	d.notify(models.NotificationBattleScheduled, d.participants()...)
	return nil
}

func (e *BattleEngine) goLive(d *Decision) error {
	d.Battle.Status = models.BattleStatusLive
	d.notify(models.NotificationBattleLive, d.participants()...)
	return nil
}

// resolve stamps a first resolution on the battle.
func (d *Decision) resolve(status models.BattleStatus, outcome models.BattleOutcome, winnerID *string) {
	d.Battle.Status = status
	d.Battle.Outcome = &outcome
	d.Battle.WinnerID = winnerID
	d.Battle.ResultRevision++
}

func (e *BattleEngine) submitScores(d *Decision, a SubmitScores) error {
	result, err := AggregateScores(d.Battle.InitiatorID, d.Battle.ChallengedID, a.Initiator, a.Challenged)
	if err != nil {
		return err
	}

	sheet := result.Sheet
	d.Battle.Scores = &sheet
	if result.Draw() {
		d.resolve(models.BattleStatusCompleted, models.OutcomeDraw, nil)
		d.Entries = e.ledger.ApplyDraw()
	} else {
		winner := *result.WinnerID
		d.resolve(models.BattleStatusCompleted, models.OutcomeWin, &winner)
		d.Entries = e.ledger.ApplyWin(d.Battle.ID, winner, d.Battle.Opponent(winner), d.Battle.ResultRevision)
	}
	d.notify(models.NotificationBattleCompleted, d.participants()...)
	return nil
}

func (e *BattleEngine) singleNoShow(d *Decision, a SingleNoShow) error {
	absent := strings.TrimSpace(a.AbsentID)
	if !d.Battle.IsParticipant(absent) {
		return validationError("absent user %q is not a participant", a.AbsentID)
	}
	winner := d.Battle.Opponent(absent)

	d.resolve(models.BattleStatusCompleted, models.OutcomeSingleNoShow, &winner)
	d.Battle.AbsentIDs = []string{absent}
	d.Entries = e.ledger.ApplyNoShowPenalty(d.Battle.ID, absent, d.Battle.ResultRevision)
	d.notify(models.NotificationNoShowPenalty, absent)
	d.notify(models.NotificationBattleCompleted, d.participants()...)
	return nil
}

func (e *BattleEngine) bothNoShow(d *Decision) error {
	d.resolve(models.BattleStatusCancelled, models.OutcomeBothNoShow, nil)
	d.Battle.AbsentIDs = d.participants()
	for _, id := range d.participants() {
		d.Entries = append(d.Entries, e.ledger.ApplyNoShowPenalty(d.Battle.ID, id, d.Battle.ResultRevision)...)
	}
	d.notify(models.NotificationNoShowPenalty, d.participants()...)
	d.notify(models.NotificationBattleCancelled, d.everyone()...)
	return nil
}

// reverseApplied returns reversal entries for everything the battle's current
// outcome applied. The outstanding entries must match what the outcome implies.
func (e *BattleEngine) reverseApplied(b *models.Battle, entries []models.RatingEntry) ([]models.RatingEntry, error) {
	outstanding := Outstanding(entries)
	expected := 0
	if b.Outcome != nil {
		expected = ExpectedEntries(*b.Outcome)
	}
	if len(outstanding) != expected {
		return nil, ledgerError("battle %s has %d outstanding rating entries, expected %d", b.ID, len(outstanding), expected)
	}
	if expected == 0 {
		return nil, nil
	}
	return e.ledger.Reverse(outstanding)
}

func (e *BattleEngine) adminEditResult(d *Decision, in TransitionInput, a AdminEditResult) error {
	var winner string
	if a.WinnerID != nil {
		winner = strings.TrimSpace(*a.WinnerID)
		if !d.Battle.IsParticipant(winner) {
			return validationError("winner %q is not a participant", *a.WinnerID)
		}
	}
	if a.Scores != nil {
		result, err := AggregateScores(d.Battle.InitiatorID, d.Battle.ChallengedID, a.Scores.Initiator, a.Scores.Challenged)
		if err != nil {
			return err
		}
		sheet := result.Sheet
		d.Battle.Scores = &sheet
	}

	reversals, err := e.reverseApplied(in.Battle, in.Entries)
	if err != nil {
		return err
	}
	d.Entries = append(d.Entries, reversals...)
	d.Battle.AbsentIDs = nil

	if winner == "" {
		d.resolve(models.BattleStatusCompleted, models.OutcomeDraw, nil)
	} else {
		d.resolve(models.BattleStatusCompleted, models.OutcomeWin, &winner)
		d.Entries = append(d.Entries, e.ledger.ApplyWin(d.Battle.ID, winner, d.Battle.Opponent(winner), d.Battle.ResultRevision)...)
	}
	d.notify(models.NotificationResultEdited, d.participants()...)
	return nil
}

func (e *BattleEngine) adminCancel(d *Decision, in TransitionInput, a AdminCancel) error {
	reversals, err := e.reverseApplied(in.Battle, in.Entries)
	if err != nil {
		return err
	}
	d.Entries = reversals

	d.Battle.Status = models.BattleStatusCancelled
	d.Battle.WinnerID = nil
	if reason := strings.TrimSpace(a.Reason); reason != "" {
		d.Battle.CancelReason = &reason
	}
	d.notify(models.NotificationBattleCancelled, d.everyone()...)
	return nil
}

func (e *BattleEngine) adminReschedule(d *Decision, in TransitionInput, a AdminReschedule) error {
	day, err := validateSchedule(a.Date, a.Time, a.Location, in.Now)
	if err != nil {
		return err
	}
	clock := a.Time
	location := strings.TrimSpace(a.Location)
	d.Battle.ScheduledDate = &day
	d.Battle.ScheduledTime = &clock
	d.Battle.Location = &location
	d.notify(models.NotificationBattleRescheduled, d.everyone()...)
	return nil
}
