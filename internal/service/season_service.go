package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/notify"
	"github.com/move-league/move-league-backend/internal/repository"
	"github.com/move-league/move-league-backend/pkg/logger"
)

// SeasonService applies season rating resets.
type SeasonService struct {
	gateway    repository.Gateway
	ledger     *RatingLedger
	dispatcher notify.Dispatcher
	now        func() time.Time
}

func NewSeasonService(gateway repository.Gateway, ledger *RatingLedger, dispatcher notify.Dispatcher) *SeasonService {
	if ledger == nil {
		ledger = NewRatingLedger()
	}
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	return &SeasonService{
		gateway:    gateway,
		ledger:     ledger,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

type SeasonResetResult struct {
	Season   models.Season        `json:"season"`
	Adjusted int                  `json:"adjusted"`
	Entries  []models.RatingEntry `json:"entries"`
}

// Reset moves every participant to the season target in one transaction.
// A label can be applied once.
func (s *SeasonService) Reset(ctx context.Context, actorID string, mode models.SeasonResetMode, label string) (*SeasonResetResult, error) {
	label = strings.TrimSpace(label)

	var result *SeasonResetResult
	err := s.gateway.WithinTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := requireActive(actor); err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return authorizationError("admin role required")
		}

		if label == "" {
			return validationError("season label is required")
		}
		if mode != models.SeasonResetFull && mode != models.SeasonResetCarry20 {
			return validationError("unknown season reset mode %q", mode)
		}

		season := models.Season{
			Label:     label,
			Mode:      mode,
			AppliedBy: actor.UserID,
			AppliedAt: s.now().UTC(),
		}
		if err := tx.CreateSeason(ctx, &season); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return validationError("season %s was already reset", label)
			}
			return mapRepositoryError(err, "season")
		}

		participants, err := tx.ListUsersByRole(ctx, models.RoleParticipant)
		if err != nil {
			return mapRepositoryError(err, "user")
		}
		entries, err := s.ledger.SeasonReset(mode, label, participants)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			if err := tx.AppendRatingEntries(ctx, entries); err != nil {
				return mapRepositoryError(err, "rating entry")
			}
		}

		result = &SeasonResetResult{Season: season, Adjusted: len(entries), Entries: entries}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	logger.Info("Season reset applied",
		"label", label,
		"mode", mode,
		"actorId", actorID,
		"adjusted", result.Adjusted,
	)

	notifications := make([]models.Notification, 0, len(result.Entries))
	for _, e := range result.Entries {
		notifications = append(notifications, models.Notification{
			RecipientID: e.UserID,
			Type:        models.NotificationSeasonReset,
		})
	}
	if len(notifications) > 0 {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(dctx, notifications); err != nil {
			logger.Warn("Failed to dispatch season notifications", "label", label, "error", err)
		}
	}
	return result, nil
}
