package service

import (
	"time"

	"github.com/move-league/move-league-backend/internal/models"
)

type ActionKind string

const (
	ActionAccept            ActionKind = "accept"
	ActionReject            ActionKind = "reject"
	ActionSubmitPreferences ActionKind = "submit_preferences"
	ActionStudioApprove     ActionKind = "studio_approve"
	ActionStudioReject      ActionKind = "studio_reject"
	ActionAssignReferee     ActionKind = "assign_referee"
	ActionGoLive            ActionKind = "go_live"
	ActionSubmitScores      ActionKind = "submit_scores"
	ActionSingleNoShow      ActionKind = "single_no_show"
	ActionBothNoShow        ActionKind = "both_no_show"
	ActionAdminEditResult   ActionKind = "admin_edit_result"
	ActionAdminCancel       ActionKind = "admin_cancel"
	ActionAdminReschedule   ActionKind = "admin_reschedule"
)

// Action is a closed set of lifecycle commands. Each concrete type carries its
// own payload; the engine dispatches on the concrete type.
type Action interface {
	Kind() ActionKind
	isAction()
}

type Accept struct{}

type Reject struct{}

// SubmitPreferences replaces the caller's ranked studio list.
type SubmitPreferences struct {
	Preferences []models.StudioPreference
}

// StudioApprove confirms the venue. Date is a calendar day; Time is "HH:MM".
type StudioApprove struct {
	Date     time.Time
	Time     string
	Location string
}

type StudioReject struct {
	Reason string
}

type AssignReferee struct {
	RefereeID string
}

type GoLive struct{}

type SubmitScores struct {
	Initiator  models.Scorecard
	Challenged models.Scorecard
}

// SingleNoShow flags one participant as absent; the other wins without gain.
type SingleNoShow struct {
	AbsentID string
}

type BothNoShow struct{}

// AdminEditResult re-designates the winner of a completed battle. A nil
// WinnerID records a draw. Scores, when present, replace the stored sheet.
type AdminEditResult struct {
	WinnerID *string
	Scores   *SubmitScores
}

type AdminCancel struct {
	Reason string
}

// AdminReschedule overrides the confirmed date, time and location.
type AdminReschedule struct {
	Date     time.Time
	Time     string
	Location string
}

func (Accept) Kind() ActionKind            { return ActionAccept }
func (Reject) Kind() ActionKind            { return ActionReject }
func (SubmitPreferences) Kind() ActionKind { return ActionSubmitPreferences }
func (StudioApprove) Kind() ActionKind     { return ActionStudioApprove }
func (StudioReject) Kind() ActionKind      { return ActionStudioReject }
func (AssignReferee) Kind() ActionKind     { return ActionAssignReferee }
func (GoLive) Kind() ActionKind            { return ActionGoLive }
func (SubmitScores) Kind() ActionKind      { return ActionSubmitScores }
func (SingleNoShow) Kind() ActionKind      { return ActionSingleNoShow }
func (BothNoShow) Kind() ActionKind        { return ActionBothNoShow }
func (AdminEditResult) Kind() ActionKind   { return ActionAdminEditResult }
func (AdminCancel) Kind() ActionKind       { return ActionAdminCancel }
func (AdminReschedule) Kind() ActionKind   { return ActionAdminReschedule }

func (Accept) isAction()            {}
func (Reject) isAction()            {}
func (SubmitPreferences) isAction() {}
func (StudioApprove) isAction()     {}
func (StudioReject) isAction()      {}
func (AssignReferee) isAction()     {}
func (GoLive) isAction()            {}
func (SubmitScores) isAction()      {}
func (SingleNoShow) isAction()      {}
func (BothNoShow) isAction()        {}
func (AdminEditResult) isAction()   {}
func (AdminCancel) isAction()       {}
func (AdminReschedule) isAction()   {}
