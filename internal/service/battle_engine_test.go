package service

import (
	"testing"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func testStudios() map[string]*models.Studio {
	studios := make(map[string]*models.Studio)
	for _, id := range []string{"S1", "S2", "S3", "S4", "S5", "S6"} {
		studios[id] = &models.Studio{ID: id, Name: id, OwnerID: "owner"}
	}
	return studios
}

var (
	actorA       = Actor{UserID: "a", Role: models.RoleParticipant, Active: true}
	actorB       = Actor{UserID: "b", Role: models.RoleParticipant, Active: true}
	actorOwner   = Actor{UserID: "owner", Role: models.RoleParticipant, Active: true}
	actorReferee = Actor{UserID: "ref", Role: models.RoleReferee, Active: true}
	actorAdmin   = Actor{UserID: "admin", Role: models.RoleAdmin, Active: true}
	refereeUser  = &models.User{ID: "ref", Role: models.RoleReferee, Active: true}
)

// validAction returns an authorized actor and a well-formed payload for kind.
func validAction(kind ActionKind) (Actor, Action) {
	tomorrow := engineNow.AddDate(0, 0, 1)
	switch kind {
	case ActionAccept:
		return actorB, Accept{}
	case ActionReject:
		return actorB, Reject{}
	case ActionSubmitPreferences:
		return actorA, SubmitPreferences{Preferences: prefs("S1", "S2", "S3")}
	case ActionStudioApprove:
		return actorOwner, StudioApprove{Date: tomorrow, Time: "19:30", Location: "Main Floor"}
	case ActionStudioReject:
		return actorOwner, StudioReject{Reason: "closed"}
	case ActionAssignReferee:
		return actorAdmin, AssignReferee{RefereeID: "ref"}
	case ActionGoLive:
		return actorAdmin, GoLive{}
	case ActionSubmitScores:
		return actorAdmin, SubmitScores{Initiator: card(9, 9, 9, 9, 9), Challenged: card(5, 5, 5, 5, 5)}
	case ActionSingleNoShow:
		return actorAdmin, SingleNoShow{AbsentID: "a"}
	case ActionBothNoShow:
		return actorAdmin, BothNoShow{}
	case ActionAdminEditResult:
		return actorAdmin, AdminEditResult{WinnerID: strPtr("b")}
	case ActionAdminCancel:
		return actorAdmin, AdminCancel{Reason: "venue flooded"}
	case ActionAdminReschedule:
		return actorAdmin, AdminReschedule{Date: tomorrow, Time: "20:00", Location: "Back Room"}
	}
	panic("unhandled action " + string(kind))
}

// inputFor builds a battle in status carrying whatever that status implies.
func inputFor(ledger *RatingLedger, status models.BattleStatus, kind ActionKind, actor Actor) TransitionInput {
	b := &models.Battle{
		ID:           "b1",
		InitiatorID:  "a",
		ChallengedID: "b",
		Status:       status,
		Version:      1,
	}
	if status != models.BattleStatusPending && status != models.BattleStatusAccepted && status != models.BattleStatusRejected ||
		kind == ActionStudioApprove || kind == ActionStudioReject {
		b.SelectedStudioID = strPtr("S1")
	}
	switch status {
	case models.BattleStatusScheduled, models.BattleStatusLive, models.BattleStatusCompleted:
		b.RefereeID = strPtr("ref")
	}

	in := TransitionInput{
		Battle:  b,
		Actor:   actor,
		Studios: testStudios(),
		Referee: refereeUser,
		Now:     engineNow,
	}
	if status == models.BattleStatusCompleted {
		outcome := models.OutcomeWin
		b.Outcome = &outcome
		b.WinnerID = strPtr("a")
		b.ResultRevision = 1
		in.Entries = ledger.ApplyWin("b1", "a", "b", 1)
	}
	return in
}

func TestBattleEngine_TransitionTableIsExhaustive(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())

	for _, row := range Transitions {
		for _, status := range models.AllBattleStatuses {
			row, status := row, status
			t.Run(string(row.Action)+"/"+string(status), func(t *testing.T) {
				actor, action := validAction(row.Action)
				in := inputFor(newTestLedger(), status, row.Action, actor)

				d, err := engine.Decide(in, action)

				if !row.Permits(status) {
					require.Error(t, err)
					assert.Equal(t, KindInvalidState, KindOf(err))
					return
				}
				require.NoError(t, err)
				assert.Contains(t, row.To, d.Battle.Status)
				assert.Equal(t, status, d.From)
				assert.Equal(t, status, in.Battle.Status, "input battle must not be mutated")
			})
		}
	}
}

func TestBattleEngine_EveryActionHasOneRow(t *testing.T) {
	kinds := []ActionKind{
		ActionAccept, ActionReject, ActionSubmitPreferences, ActionStudioApprove, ActionStudioReject,
		ActionAssignReferee, ActionGoLive, ActionSubmitScores, ActionSingleNoShow, ActionBothNoShow,
		ActionAdminEditResult, ActionAdminCancel, ActionAdminReschedule,
	}
	require.Len(t, Transitions, len(kinds))
	for _, k := range kinds {
		_, ok := LookupTransition(k)
		assert.True(t, ok, k)
	}
}

func TestBattleEngine_TerminalStatesOnlyAllowAdminCorrections(t *testing.T) {
	for _, row := range Transitions {
		for _, from := range row.From {
			if from.Terminal() {
				assert.Equal(t, ActorAdmin, row.Actor, "%s from %s", row.Action, from)
			}
		}
	}
}

func TestBattleEngine_ValidationOrder(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())

	tests := []struct {
		name   string
		status models.BattleStatus
		actor  Actor
		action Action
		want   ErrorKind
	}{
		{"missing identity beats wrong state", models.BattleStatusCompleted, Actor{}, Accept{}, KindAuthentication},
		{"inactive actor", models.BattleStatusPending, Actor{UserID: "b", Role: models.RoleParticipant}, Accept{}, KindAuthorization},
		{"wrong role beats wrong state", models.BattleStatusCompleted, actorA, Accept{}, KindAuthorization},
		{"initiator cannot accept", models.BattleStatusPending, actorA, Accept{}, KindAuthorization},
		{"wrong state", models.BattleStatusAccepted, actorB, Accept{}, KindInvalidState},
		{"state beats bad input", models.BattleStatusPending, actorAdmin, SubmitScores{Initiator: card(99, 0, 0, 0, 0)}, KindInvalidState},
		{"bad input", models.BattleStatusLive, actorAdmin, SubmitScores{Initiator: card(99, 0, 0, 0, 0)}, KindValidation},
		{"referee only for their battle", models.BattleStatusLive, Actor{UserID: "ref2", Role: models.RoleReferee, Active: true}, GoLive{}, KindAuthorization},
		{"stranger cannot submit preferences", models.BattleStatusAccepted, actorOwner, SubmitPreferences{Preferences: prefs("S1", "S2", "S3")}, KindAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inputFor(newTestLedger(), tt.status, tt.action.Kind(), tt.actor)
			_, err := engine.Decide(in, tt.action)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestBattleEngine_PreferencesReachConsensus(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusAccepted, ActionSubmitPreferences, actorA)

	d, err := engine.Decide(in, SubmitPreferences{Preferences: prefs("S1", "S2", "S3")})
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusAccepted, d.Battle.Status)
	assert.Nil(t, d.Battle.SelectedStudioID)
	assert.Equal(t, []models.Notification{
		{RecipientID: "b", Type: models.NotificationPreferencesSubmitted, BattleID: "b1"},
	}, d.Notifications)

	in.Battle = d.Battle
	in.Actor = actorB
	d, err = engine.Decide(in, SubmitPreferences{Preferences: prefs("S2", "S1", "S4")})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusStudioPending, d.Battle.Status)
	require.NotNil(t, d.Battle.SelectedStudioID)
	assert.Equal(t, "S1", *d.Battle.SelectedStudioID)
	assert.Contains(t, d.Notifications, models.Notification{RecipientID: "owner", Type: models.NotificationStudioRequest, BattleID: "b1"})
}

func TestBattleEngine_ResubmissionReplacesList(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusAccepted, ActionSubmitPreferences, actorA)

	d, err := engine.Decide(in, SubmitPreferences{Preferences: prefs("S1", "S2", "S3")})
	require.NoError(t, err)
	in.Battle = d.Battle

	d, err = engine.Decide(in, SubmitPreferences{Preferences: prefs("S4", "S5", "S6")})
	require.NoError(t, err)
	assert.Equal(t, prefs("S4", "S5", "S6"), d.Battle.InitiatorPreferences)
}

func TestBattleEngine_NoConsensusRejectsSubmission(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusAccepted, ActionSubmitPreferences, actorB)
	in.Battle.InitiatorPreferences = prefs("S1", "S2", "S3")

	_, err := engine.Decide(in, SubmitPreferences{Preferences: prefs("S4", "S5", "S6")})

	assert.ErrorIs(t, err, ErrConsensus)
	assert.Empty(t, in.Battle.ChallengedPreferences)
}

func TestBattleEngine_PreferencesRejectUnknownStudio(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusAccepted, ActionSubmitPreferences, actorA)

	_, err := engine.Decide(in, SubmitPreferences{Preferences: prefs("S1", "S2", "nowhere")})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestBattleEngine_ScheduleValidation(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		action StudioApprove
		ok     bool
	}{
		{"today is allowed", StudioApprove{Date: today, Time: "08:00", Location: "Hall"}, true},
		{"yesterday", StudioApprove{Date: today.AddDate(0, 0, -1), Time: "08:00", Location: "Hall"}, false},
		{"missing date", StudioApprove{Time: "08:00", Location: "Hall"}, false},
		{"bad time", StudioApprove{Date: today, Time: "8pm", Location: "Hall"}, false},
		{"hour out of range", StudioApprove{Date: today, Time: "25:00", Location: "Hall"}, false},
		{"blank location", StudioApprove{Date: today, Time: "08:00", Location: "  "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inputFor(newTestLedger(), models.BattleStatusStudioPending, ActionStudioApprove, actorOwner)
			d, err := engine.Decide(in, tt.action)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, models.BattleStatusConfirmed, d.Battle.Status)
				assert.Equal(t, "Hall", *d.Battle.Location)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBattleEngine_StudioOwnerOnly(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusStudioPending, ActionStudioReject, actorA)

	_, err := engine.Decide(in, StudioReject{})
	assert.ErrorIs(t, err, ErrAuthorization)

	in.Actor = actorOwner
	d, err := engine.Decide(in, StudioReject{Reason: "double booked"})
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusStudioRejected, d.Battle.Status)
	assert.Equal(t, "double booked", *d.Battle.CancelReason)
}

func TestBattleEngine_AssignRefereeValidation(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())

	tests := []struct {
		name    string
		id      string
		referee *models.User
	}{
		{"unknown user", "ghost", nil},
		{"not a referee", "owner", &models.User{ID: "owner", Role: models.RoleParticipant, Active: true}},
		{"inactive referee", "ref", &models.User{ID: "ref", Role: models.RoleReferee}},
		{"participant", "a", &models.User{ID: "a", Role: models.RoleReferee, Active: true}},
		{"blank id", " ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inputFor(newTestLedger(), models.BattleStatusConfirmed, ActionAssignReferee, actorAdmin)
			in.Referee = tt.referee
			_, err := engine.Decide(in, AssignReferee{RefereeID: tt.id})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBattleEngine_AssignedRefereeScores(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusLive, ActionSubmitScores, actorReferee)

	d, err := engine.Decide(in, SubmitScores{Initiator: card(5, 5, 5, 5, 5), Challenged: card(6, 6, 6, 6, 6)})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusCompleted, d.Battle.Status)
	assert.Equal(t, "b", *d.Battle.WinnerID)
	assert.Equal(t, models.OutcomeWin, *d.Battle.Outcome)
	assert.Equal(t, 1, d.Battle.ResultRevision)
	assert.Equal(t, map[string]int{"a": LossDelta, "b": WinDelta}, Net(d.Entries))
	assert.Equal(t, 25, d.Battle.Scores.InitiatorTotal)
	assert.Equal(t, 30, d.Battle.Scores.ChallengedTotal)
}

func TestBattleEngine_DrawHasNoEntries(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusLive, ActionSubmitScores, actorReferee)

	d, err := engine.Decide(in, SubmitScores{Initiator: card(5, 5, 5, 5, 5), Challenged: card(5, 5, 5, 5, 5)})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDraw, *d.Battle.Outcome)
	assert.Nil(t, d.Battle.WinnerID)
	assert.Empty(t, d.Entries)
}

func TestBattleEngine_SingleNoShow(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusScheduled, ActionSingleNoShow, actorReferee)

	_, err := engine.Decide(in, SingleNoShow{AbsentID: "owner"})
	assert.ErrorIs(t, err, ErrValidation)

	d, err := engine.Decide(in, SingleNoShow{AbsentID: "a"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusCompleted, d.Battle.Status)
	assert.Equal(t, "b", *d.Battle.WinnerID)
	assert.Equal(t, []string{"a"}, d.Battle.AbsentIDs)
	assert.Equal(t, map[string]int{"a": NoShowDelta}, Net(d.Entries))
	assert.Contains(t, d.Notifications, models.Notification{RecipientID: "a", Type: models.NotificationNoShowPenalty, BattleID: "b1"})
}

func TestBattleEngine_BothNoShow(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusLive, ActionBothNoShow, actorReferee)

	d, err := engine.Decide(in, BothNoShow{})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusCancelled, d.Battle.Status)
	assert.Nil(t, d.Battle.WinnerID)
	assert.Equal(t, map[string]int{"a": NoShowDelta, "b": NoShowDelta}, Net(d.Entries))
	assert.Contains(t, d.Notifications, models.Notification{RecipientID: "ref", Type: models.NotificationBattleCancelled, BattleID: "b1"})
}

func TestBattleEngine_AdminEditResult(t *testing.T) {
	ledger := newTestLedger()
	engine := NewBattleEngine(ledger)
	in := inputFor(ledger, models.BattleStatusCompleted, ActionAdminEditResult, actorAdmin)

	d, err := engine.Decide(in, AdminEditResult{WinnerID: strPtr("b")})
	require.NoError(t, err)

	assert.Equal(t, "b", *d.Battle.WinnerID)
	assert.Equal(t, 2, d.Battle.ResultRevision)
	// Reversal of a's win plus b's win: a -20-10, b +10+20.
	assert.Equal(t, map[string]int{"a": -30, "b": 30}, Net(d.Entries))
	assert.Len(t, Outstanding(append(in.Entries, d.Entries...)), 2)
}

func TestBattleEngine_AdminEditToDraw(t *testing.T) {
	ledger := newTestLedger()
	engine := NewBattleEngine(ledger)
	in := inputFor(ledger, models.BattleStatusCompleted, ActionAdminEditResult, actorAdmin)

	d, err := engine.Decide(in, AdminEditResult{})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDraw, *d.Battle.Outcome)
	assert.Nil(t, d.Battle.WinnerID)
	assert.Equal(t, map[string]int{"a": -WinDelta, "b": -LossDelta}, Net(d.Entries))
}

func TestBattleEngine_AdminEditRejectsLedgerMismatch(t *testing.T) {
	ledger := newTestLedger()
	engine := NewBattleEngine(ledger)
	in := inputFor(ledger, models.BattleStatusCompleted, ActionAdminEditResult, actorAdmin)
	in.Entries = in.Entries[:1]

	_, err := engine.Decide(in, AdminEditResult{WinnerID: strPtr("b")})
	assert.ErrorIs(t, err, ErrLedger)
}

func TestBattleEngine_AdminCancelCompletedReverses(t *testing.T) {
	ledger := newTestLedger()
	engine := NewBattleEngine(ledger)
	in := inputFor(ledger, models.BattleStatusCompleted, ActionAdminCancel, actorAdmin)

	d, err := engine.Decide(in, AdminCancel{Reason: "result voided"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusCancelled, d.Battle.Status)
	assert.Nil(t, d.Battle.WinnerID)
	assert.Equal(t, "result voided", *d.Battle.CancelReason)
	net := Net(append(in.Entries, d.Entries...))
	assert.Equal(t, 0, net["a"])
	assert.Equal(t, 0, net["b"])
}

func TestBattleEngine_AdminReschedule(t *testing.T) {
	engine := NewBattleEngine(newTestLedger())
	in := inputFor(newTestLedger(), models.BattleStatusScheduled, ActionAdminReschedule, actorAdmin)

	d, err := engine.Decide(in, AdminReschedule{Date: engineNow.AddDate(0, 0, 7), Time: "21:15", Location: "Back Room"})
	require.NoError(t, err)

	assert.Equal(t, models.BattleStatusScheduled, d.Battle.Status)
	assert.Equal(t, "21:15", *d.Battle.ScheduledTime)
	assert.ElementsMatch(t, []string{"a", "b", "ref"}, recipients(d.Notifications))
}

func recipients(ns []models.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.RecipientID
	}
	return out
}
