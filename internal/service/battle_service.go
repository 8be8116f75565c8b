package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/notify"
	"github.com/move-league/move-league-backend/internal/repository"
	"github.com/move-league/move-league-backend/pkg/distributed"
	"github.com/move-league/move-league-backend/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dispatchTimeout = 5 * time.Second
)

// BattleService runs lifecycle actions as atomic units of work: load, decide,
// persist, then notify once the write has committed.
type BattleService struct {
	gateway    repository.Gateway
	engine     *BattleEngine
	locker     distributed.Locker
	dispatcher notify.Dispatcher
	now        func() time.Time
	newID      func() string
}

// NewBattleService wires the service. locker may be nil, in which case only
// the optimistic version check serializes writers.
func NewBattleService(
	gateway repository.Gateway,
	engine *BattleEngine,
	locker distributed.Locker,
	dispatcher notify.Dispatcher,
) *BattleService {
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	return &BattleService{
		gateway:    gateway,
		engine:     engine,
		locker:     locker,
		dispatcher: dispatcher,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Create records a new PENDING challenge from the caller to challengedID.
func (s *BattleService) Create(ctx context.Context, actorID, challengedID string) (*models.Battle, error) {
	challengedID = strings.TrimSpace(challengedID)

	var battle *models.Battle
	err := s.gateway.WithinTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := requireActive(actor); err != nil {
			return err
		}
		if actor.Role != models.RoleParticipant {
			return authorizationError("only participants can start battles")
		}

		if challengedID == "" {
			return validationError("challengedId is required")
		}
		if challengedID == actor.UserID {
			return validationError("cannot challenge yourself")
		}
		opponent, err := tx.GetUser(ctx, challengedID)
		if errors.Is(err, repository.ErrNotFound) {
			return validationError("user %s does not exist", challengedID)
		}
		if err != nil {
			return mapRepositoryError(err, "user")
		}
		if opponent.Role != models.RoleParticipant || !opponent.Active {
			return validationError("user %s cannot be challenged", challengedID)
		}

		now := s.now().UTC()
		battle = &models.Battle{
			ID:           s.newID(),
			InitiatorID:  actor.UserID,
			ChallengedID: challengedID,
			Status:       models.BattleStatusPending,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return mapRepositoryError(tx.CreateBattle(ctx, battle), "battle")
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Battle created",
		"battleId", battle.ID,
		"initiatorId", battle.InitiatorID,
		"challengedId", battle.ChallengedID,
	)
	s.dispatch(ctx, []models.Notification{{
		RecipientID: battle.ChallengedID,
		Type:        models.NotificationBattleChallenged,
		BattleID:    battle.ID,
	}})
	return battle, nil
}

// Execute applies one action to a battle and returns the updated record.
func (s *BattleService) Execute(ctx context.Context, actorID, battleID string, action Action) (*models.Battle, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, authenticationError("actor identity is required")
	}
	if action == nil {
		return nil, validationError("action is required")
	}

	if s.locker != nil {
		lock, err := s.locker.Acquire(ctx, battleID)
		if errors.Is(err, distributed.ErrLockNotAcquired) {
			return nil, conflictError("battle %s is being modified, retry", battleID)
		}
		if err != nil {
			return nil, internalError(err, "failed to lock battle")
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release battle lock", "battleId", battleID, "error", err)
			}
		}()
	}

	var decision *Decision
	err := s.gateway.WithinTx(ctx, func(tx repository.Store) error {
		actor, err := resolveActor(ctx, tx, actorID)
		if err != nil {
			return err
		}

		battle, err := tx.GetBattle(ctx, battleID)
		if err != nil {
			return mapRepositoryError(err, "battle")
		}

		in, err := s.loadInput(ctx, tx, battle, actor, action)
		if err != nil {
			return err
		}

		d, err := s.engine.Decide(*in, action)
		if err != nil {
			return err
		}

		if err := tx.UpdateBattle(ctx, d.Battle, battle.Version); err != nil {
			return mapRepositoryError(err, "battle")
		}
		if len(d.Entries) > 0 {
			if err := tx.AppendRatingEntries(ctx, d.Entries); err != nil {
				return mapRepositoryError(err, "rating entry")
			}
		}
		decision = d
		return nil
	})
	if err != nil {
		logger.Debug("Battle action rejected",
			"battleId", battleID,
			"action", action.Kind(),
			"actorId", actorID,
			"kind", KindOf(err),
			"error", err,
		)
		return nil, asServiceError(err)
	}

	logger.Info("Battle transition applied",
		"battleId", decision.Battle.ID,
		"action", action.Kind(),
		"from", decision.From,
		"to", decision.Battle.Status,
		"actorId", actorID,
		"ratingEntries", len(decision.Entries),
	)
	s.dispatch(ctx, decision.Notifications)
	return decision.Battle, nil
}

// loadInput gathers what the engine needs beyond the battle itself.
func (s *BattleService) loadInput(ctx context.Context, tx repository.Store, battle *models.Battle, actor Actor, action Action) (*TransitionInput, error) {
	in := &TransitionInput{
		Battle:  battle,
		Actor:   actor,
		Studios: make(map[string]*models.Studio),
		Now:     s.now().UTC(),
	}

	studioIDs := []string{}
	if battle.SelectedStudioID != nil {
		studioIDs = append(studioIDs, *battle.SelectedStudioID)
	}
	if a, ok := action.(SubmitPreferences); ok {
		for _, p := range a.Preferences {
			studioIDs = append(studioIDs, strings.TrimSpace(p.StudioID))
		}
		studioIDs = append(studioIDs, preferenceIDs(battle.InitiatorPreferences)...)
		studioIDs = append(studioIDs, preferenceIDs(battle.ChallengedPreferences)...)
	}
	for _, id := range studioIDs {
		if id == "" || in.Studios[id] != nil {
			continue
		}
		studio, err := tx.GetStudio(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, mapRepositoryError(err, "studio")
		}
		in.Studios[id] = studio
	}

	if a, ok := action.(AssignReferee); ok && strings.TrimSpace(a.RefereeID) != "" {
		ref, err := tx.GetUser(ctx, strings.TrimSpace(a.RefereeID))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, mapRepositoryError(err, "referee")
		}
		in.Referee = ref
	}

	if battle.Outcome != nil {
		entries, err := tx.ListRatingEntries(ctx, battle.ID)
		if err != nil {
			return nil, mapRepositoryError(err, "rating entry")
		}
		in.Entries = entries
	}
	return in, nil
}

func preferenceIDs(prefs []models.StudioPreference) []string {
	ids := make([]string, len(prefs))
	for i, p := range prefs {
		ids[i] = p.StudioID
	}
	return ids
}

// Get returns a battle visible to the caller: its participants, the assigned
// referee, the selected studio's owner and admins.
func (s *BattleService) Get(ctx context.Context, actorID, battleID string) (*models.Battle, error) {
	actor, err := resolveActor(ctx, s.gateway, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	battle, err := s.gateway.GetBattle(ctx, battleID)
	if err != nil {
		return nil, asServiceError(mapRepositoryError(err, "battle"))
	}

	if actor.IsAdmin() || battle.IsParticipant(actor.UserID) ||
		(battle.RefereeID != nil && *battle.RefereeID == actor.UserID) {
		return battle, nil
	}
	if battle.SelectedStudioID != nil {
		studio, err := s.gateway.GetStudio(ctx, *battle.SelectedStudioID)
		if err == nil && studio.OwnerID == actor.UserID {
			return battle, nil
		}
	}
	return nil, authorizationError("battle %s is not visible to you", battleID)
}

// ListForUser pages through the caller's battles, newest first.
func (s *BattleService) ListForUser(ctx context.Context, actorID string, limit, offset int) ([]*models.Battle, error) {
	actor, err := resolveActor(ctx, s.gateway, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	limit, offset = clampPage(limit, offset)
	battles, err := s.gateway.ListBattlesForUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, asServiceError(mapRepositoryError(err, "battle"))
	}
	return battles, nil
}

// RatingHistory is a user's current rating with their latest ledger entries.
type RatingHistory struct {
	User    *models.User         `json:"user"`
	Entries []models.RatingEntry `json:"entries"`
}

func (s *BattleService) RatingHistory(ctx context.Context, actorID, userID string, limit int) (*RatingHistory, error) {
	actor, err := resolveActor(ctx, s.gateway, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	user, err := s.gateway.GetUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, asServiceError(mapRepositoryError(err, "user"))
	}

	limit, _ = clampPage(limit, 0)
	entries, err := s.gateway.ListRatingEntriesForUser(ctx, user.ID, limit)
	if err != nil {
		return nil, asServiceError(mapRepositoryError(err, "rating entry"))
	}
	return &RatingHistory{User: user, Entries: entries}, nil
}

// dispatch delivers after commit. Failures are logged and never surface.
func (s *BattleService) dispatch(ctx context.Context, notifications []models.Notification) {
	if len(notifications) == 0 {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(dctx, notifications); err != nil {
		logger.Warn("Failed to dispatch notifications",
			"count", len(notifications),
			"battleId", notifications[0].BattleID,
			"error", err,
		)
	}
}

// userReader is the slice of repository.Store actor resolution needs.
type userReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// resolveActor loads the caller. An unknown id is an authentication failure.
func resolveActor(ctx context.Context, users userReader, actorID string) (Actor, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Actor{}, authenticationError("actor identity is required")
	}
	user, err := users.GetUser(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return Actor{}, authenticationError("unknown actor %s", actorID)
	}
	if err != nil {
		return Actor{}, internalError(err, "failed to load actor")
	}
	return Actor{UserID: user.ID, Role: user.Role, Active: user.Active}, nil
}

func requireActive(actor Actor) error {
	if !actor.Active {
		return authorizationError("actor %s is not active", actor.UserID)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// mapRepositoryError converts gateway sentinels into service errors.
func mapRepositoryError(err error, what string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError("%s not found", what)
	case errors.Is(err, repository.ErrVersionConflict):
		return conflictError("%s was modified concurrently, retry", what)
	case errors.Is(err, repository.ErrDuplicate):
		return conflictError("%s already recorded", what)
	}
	return internalError(err, "failed to persist "+what)
}

// asServiceError guarantees callers only ever see *Error.
func asServiceError(err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return internalError(err, "unexpected error")
}
