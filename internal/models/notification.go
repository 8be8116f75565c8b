package models

type NotificationType string

const (
	NotificationBattleChallenged     NotificationType = "battle.challenged"
	NotificationBattleAccepted       NotificationType = "battle.accepted"
	NotificationBattleRejected       NotificationType = "battle.rejected"
	NotificationPreferencesSubmitted NotificationType = "battle.preferences_submitted"
	NotificationStudioSelected       NotificationType = "battle.studio_selected"
	NotificationStudioRequest        NotificationType = "studio.approval_requested"
	NotificationStudioApproved       NotificationType = "battle.studio_approved"
	NotificationStudioRejected       NotificationType = "battle.studio_rejected"
	NotificationRefereeAssigned      NotificationType = "battle.referee_assigned"
	NotificationBattleScheduled      NotificationType = "battle.scheduled"
	NotificationBattleRescheduled    NotificationType = "battle.rescheduled"
	NotificationBattleLive           NotificationType = "battle.live"
	NotificationBattleCompleted      NotificationType = "battle.completed"
	NotificationNoShowPenalty        NotificationType = "battle.no_show_penalty"
	NotificationResultEdited         NotificationType = "battle.result_edited"
	NotificationBattleCancelled      NotificationType = "battle.cancelled"
	NotificationSeasonReset          NotificationType = "season.reset"
)

// Notification is a side effect emitted by a committed transition.
type Notification struct {
	RecipientID string           `json:"recipientId"`
	Type        NotificationType `json:"type"`
	BattleID    string           `json:"battleId,omitempty"`
}
