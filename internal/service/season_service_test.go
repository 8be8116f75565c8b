package service

import (
	"context"
	"testing"
	"time"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeasonFixture(t *testing.T) (*SeasonService, *notify.Recorder, *fixture) {
	t.Helper()
	store := seedStore()
	store.PutUser(models.User{ID: "high", Username: "high", Role: models.RoleParticipant, Active: true, Rating: 1600})
	store.PutUser(models.User{ID: "low", Username: "low", Role: models.RoleParticipant, Active: true, Rating: 900})

	notes := &notify.Recorder{}
	seasons := NewSeasonService(store, NewRatingLedger(), notes)
	seasons.now = func() time.Time { return engineNow }
	return seasons, notes, newFixtureWith(t, store, store, nil)
}

func TestSeasonService_Carry20(t *testing.T) {
	seasons, notes, f := newSeasonFixture(t)

	result, err := seasons.Reset(context.Background(), "admin", models.SeasonResetCarry20, "2026-spring")
	require.NoError(t, err)

	assert.Equal(t, "2026-spring", result.Season.Label)
	assert.Equal(t, "admin", result.Season.AppliedBy)
	assert.Equal(t, 1520, f.rating(t, "high"))
	assert.Equal(t, 1380, f.rating(t, "low"))
	assert.Equal(t, 1440, f.rating(t, "a"))
	// Referees and admins keep their rating.
	assert.Equal(t, models.BaselineRating, f.rating(t, "ref"))
	assert.Equal(t, models.BaselineRating, f.rating(t, "admin"))

	assert.Len(t, notes.All(), result.Adjusted)
	for _, n := range notes.All() {
		assert.Equal(t, models.NotificationSeasonReset, n.Type)
	}
}

func TestSeasonService_FullIncludesInactiveParticipants(t *testing.T) {
	seasons, _, f := newSeasonFixture(t)
	f.store.PutUser(models.User{ID: "c", Username: "c", Role: models.RoleParticipant, Rating: 1000})

	result, err := seasons.Reset(context.Background(), "admin", models.SeasonResetFull, "2026-summer")
	require.NoError(t, err)

	for _, id := range []string{"high", "low", "c", "a"} {
		assert.Equal(t, models.BaselineRating, f.rating(t, id), id)
	}
	// a, b and owner already sit at baseline.
	assert.Equal(t, 3, result.Adjusted)
}

func TestSeasonService_LabelAppliesOnce(t *testing.T) {
	seasons, _, f := newSeasonFixture(t)

	_, err := seasons.Reset(context.Background(), "admin", models.SeasonResetCarry20, "2026-spring")
	require.NoError(t, err)

	_, err = seasons.Reset(context.Background(), "admin", models.SeasonResetCarry20, "2026-spring")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1520, f.rating(t, "high"))
}

func TestSeasonService_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		mode  models.SeasonResetMode
		label string
		want  ErrorKind
	}{
		{"unknown actor", "nobody", models.SeasonResetFull, "s1", KindAuthentication},
		{"not admin", "a", models.SeasonResetFull, "s1", KindAuthorization},
		{"referee", "ref", models.SeasonResetFull, "s1", KindAuthorization},
		{"blank label", "admin", models.SeasonResetFull, "  ", KindValidation},
		{"unknown mode", "admin", "half", "s1", KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seasons, notes, f := newSeasonFixture(t)
			_, err := seasons.Reset(context.Background(), tt.actor, tt.mode, tt.label)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Empty(t, notes.All())
			assert.Equal(t, 1600, f.rating(t, "high"))
		})
	}
}
