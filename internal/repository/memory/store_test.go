package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newSeededStore() *Store {
	s := NewStore()
	s.PutUser(models.User{ID: "a", Role: models.RoleParticipant, Active: true, Rating: 1200})
	s.PutUser(models.User{ID: "b", Role: models.RoleParticipant, Active: true, Rating: 1200})
	s.PutUser(models.User{ID: "r", Role: models.RoleReferee, Active: true, Rating: 1200})
	return s
}

func newBattle(id string, created time.Time) *models.Battle {
	return &models.Battle{
		ID:           id,
		InitiatorID:  "a",
		ChallengedID: "b",
		Status:       models.BattleStatusPending,
		Version:      1,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestStore_UpdateBattleChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	require.NoError(t, s.CreateBattle(ctx, newBattle("b1", time.Now())))

	b, err := s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	b.Status = models.BattleStatusAccepted

	require.NoError(t, s.UpdateBattle(ctx, b, 1))
	assert.Equal(t, 2, b.Version)

	stale := b.Clone()
	stale.Status = models.BattleStatusRejected
	assert.ErrorIs(t, s.UpdateBattle(ctx, stale, 1), repository.ErrVersionConflict)

	assert.ErrorIs(t, s.UpdateBattle(ctx, newBattle("missing", time.Now()), 1), repository.ErrNotFound)

	stored, err := s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusAccepted, stored.Status)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	require.NoError(t, s.CreateBattle(ctx, newBattle("b1", time.Now())))

	b, err := s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	b.Status = models.BattleStatusCancelled

	again, err := s.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BattleStatusPending, again.Status)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.CreateBattle(ctx, newBattle("b1", time.Now())))
		require.NoError(t, tx.AppendRatingEntries(ctx, []models.RatingEntry{
			{ID: "e1", UserID: "a", BattleID: strPtr("b1"), Delta: 20, Reason: models.RatingReasonWin, Revision: 1},
		}))

		u, err := tx.GetUser(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1220, u.Rating)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetBattle(ctx, "b1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	u, err := s.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1200, u.Rating)
}

func TestStore_RatingEntrySlotsAreUnique(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	win := models.RatingEntry{ID: "e1", UserID: "a", BattleID: strPtr("b1"), Delta: 20, Reason: models.RatingReasonWin, Revision: 1}

	require.NoError(t, s.AppendRatingEntries(ctx, []models.RatingEntry{win}))

	retry := win
	retry.ID = "e2"
	assert.ErrorIs(t, s.AppendRatingEntries(ctx, []models.RatingEntry{retry}), repository.ErrDuplicate)

	nextRevision := retry
	nextRevision.Revision = 2
	require.NoError(t, s.AppendRatingEntries(ctx, []models.RatingEntry{nextRevision}))

	season := models.RatingEntry{ID: "e3", UserID: "a", SeasonLabel: strPtr("s1"), Delta: -40, Reason: models.RatingReasonSeasonReset}
	require.NoError(t, s.AppendRatingEntries(ctx, []models.RatingEntry{season}))
	season.ID = "e4"
	assert.ErrorIs(t, s.AppendRatingEntries(ctx, []models.RatingEntry{season}), repository.ErrDuplicate)

	u, err := s.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1200+20+20-40, u.Rating)
}

func TestStore_AppendForUnknownUser(t *testing.T) {
	s := newSeededStore()
	err := s.AppendRatingEntries(context.Background(), []models.RatingEntry{{ID: "e1", UserID: "ghost", Delta: 5}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ListBattlesForUser(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.CreateBattle(ctx, newBattle(id, base.Add(time.Duration(i)*time.Hour))))
	}
	refereed := newBattle("ref", base)
	refereed.InitiatorID, refereed.ChallengedID = "x", "y"
	refereed.RefereeID = strPtr("r")
	require.NoError(t, s.CreateBattle(ctx, refereed))

	all, err := s.ListBattlesForUser(ctx, "a", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)

	page, err := s.ListBattlesForUser(ctx, "a", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].ID)

	empty, err := s.ListBattlesForUser(ctx, "a", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	forReferee, err := s.ListBattlesForUser(ctx, "r", 10, 0)
	require.NoError(t, err)
	require.Len(t, forReferee, 1)
}

func TestStore_RatingEntryListings(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore()
	require.NoError(t, s.AppendRatingEntries(ctx, []models.RatingEntry{
		{ID: "e1", UserID: "a", BattleID: strPtr("b1"), Delta: 20, Reason: models.RatingReasonWin, Revision: 1},
		{ID: "e2", UserID: "b", BattleID: strPtr("b1"), Delta: -10, Reason: models.RatingReasonLoss, Revision: 1},
		{ID: "e3", UserID: "a", BattleID: strPtr("b2"), Delta: -50, Reason: models.RatingReasonNoShow, Revision: 1},
	}))

	b1, err := s.ListRatingEntries(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, b1, 2)

	latest, err := s.ListRatingEntriesForUser(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "e3", latest[0].ID)
}

func TestStore_CreateSeasonOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	season := &models.Season{Label: "s1", Mode: models.SeasonResetFull}

	require.NoError(t, s.CreateSeason(ctx, season))
	assert.ErrorIs(t, s.CreateSeason(ctx, season), repository.ErrDuplicate)
}

func TestStore_ListUsersByRole(t *testing.T) {
	users, err := newSeededStore().ListUsersByRole(context.Background(), models.RoleParticipant)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].ID)
}
