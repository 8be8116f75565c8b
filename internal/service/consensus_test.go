package service

import (
	"testing"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefs(ids ...string) []models.StudioPreference {
	out := make([]models.StudioPreference, len(ids))
	for i, id := range ids {
		out[i] = models.StudioPreference{StudioID: id, Priority: i + 1}
	}
	return out
}

func TestResolveStudio_TieBrokenByStudioID(t *testing.T) {
	a := prefs("S1", "S2", "S3")
	b := prefs("S2", "S1", "S4")

	got, err := ResolveStudio(a, b)
	require.NoError(t, err)
	assert.Equal(t, "S1", got)

	candidates := RankCandidates(a, b)
	require.Len(t, candidates, 2)
	assert.Equal(t, 3, candidates[0].CombinedRank)
	assert.Equal(t, 3, candidates[1].CombinedRank)
}

func TestResolveStudio_Deterministic(t *testing.T) {
	a := prefs("S1", "S2", "S3")
	b := prefs("S2", "S1", "S4")

	reversedA := []models.StudioPreference{a[2], a[0], a[1]}

	first, err := ResolveStudio(a, b)
	require.NoError(t, err)
	swapped, err := ResolveStudio(b, a)
	require.NoError(t, err)
	reordered, err := ResolveStudio(reversedA, b)
	require.NoError(t, err)

	assert.Equal(t, first, swapped)
	assert.Equal(t, first, reordered)
}

func TestResolveStudio_Ranking(t *testing.T) {
	tests := []struct {
		name string
		a, b []models.StudioPreference
		want string
	}{
		{
			name: "lowest combined rank wins",
			a:    prefs("S3", "S1", "S2"),
			b:    prefs("S3", "S2", "S1"),
			want: "S3",
		},
		{
			name: "smaller individual priority breaks combined tie",
			a: []models.StudioPreference{
				{StudioID: "S9", Priority: 1}, {StudioID: "S2", Priority: 2}, {StudioID: "S1", Priority: 4}, {StudioID: "S7", Priority: 5},
			},
			b: []models.StudioPreference{
				{StudioID: "S8", Priority: 1}, {StudioID: "S1", Priority: 2}, {StudioID: "S2", Priority: 4},
			},
			// S2 = 2+4, S1 = 4+2; both best priority 2, so id order decides.
			want: "S1",
		},
		{
			name: "single common studio",
			a:    prefs("S1", "S2", "S3"),
			b:    prefs("S4", "S5", "S3"),
			want: "S3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStudio(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveStudio_NoCommonStudio(t *testing.T) {
	_, err := ResolveStudio(prefs("S1", "S2", "S3"), prefs("S4", "S5", "S6"))
	assert.ErrorIs(t, err, ErrConsensus)
}

func TestValidatePreferences(t *testing.T) {
	tests := []struct {
		name  string
		prefs []models.StudioPreference
	}{
		{"too short", prefs("S1", "S2")},
		{"empty id", prefs("S1", " ", "S3")},
		{"duplicate studio", prefs("S1", "S2", "S1")},
		{"duplicate priority", []models.StudioPreference{{StudioID: "S1", Priority: 1}, {StudioID: "S2", Priority: 1}, {StudioID: "S3", Priority: 2}}},
		{"non-positive priority", []models.StudioPreference{{StudioID: "S1", Priority: 0}, {StudioID: "S2", Priority: 1}, {StudioID: "S3", Priority: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePreferences(tt.prefs), ErrValidation)
		})
	}

	assert.NoError(t, ValidatePreferences(prefs("S1", "S2", "S3", "S4")))
}
