package service

import (
	"sort"
	"strings"

	"github.com/move-league/move-league-backend/internal/models"
)

// MinStudioPreferences is the shortest list a participant may submit.
const MinStudioPreferences = 3

// ConsensusCandidate is a studio present in both lists.
type ConsensusCandidate struct {
	StudioID     string
	PriorityA    int
	PriorityB    int
	CombinedRank int
}

func (c ConsensusCandidate) bestPriority() int {
	if c.PriorityA < c.PriorityB {
		return c.PriorityA
	}
	return c.PriorityB
}

// ValidatePreferences checks one participant's list: at least three entries,
// non-empty unique studio ids, positive unique priorities.
func ValidatePreferences(prefs []models.StudioPreference) error {
	if len(prefs) < MinStudioPreferences {
		return validationError("at least %d studio preferences are required, got %d", MinStudioPreferences, len(prefs))
	}

	studios := make(map[string]bool, len(prefs))
	priorities := make(map[int]bool, len(prefs))
	for _, p := range prefs {
		id := strings.TrimSpace(p.StudioID)
		if id == "" {
			return validationError("studio id must not be empty")
		}
		if p.Priority < 1 {
			return validationError("priority for studio %s must be at least 1", id)
		}
		if studios[id] {
			return validationError("studio %s listed more than once", id)
		}
		if priorities[p.Priority] {
			return validationError("priority %d used more than once", p.Priority)
		}
		studios[id] = true
		priorities[p.Priority] = true
	}
	return nil
}

// RankCandidates returns the common studios ordered best first: lowest combined
// rank, then lowest individual priority, then studio id.
func RankCandidates(a, b []models.StudioPreference) []ConsensusCandidate {
	byStudio := make(map[string]int, len(a))
	for _, p := range a {
		byStudio[strings.TrimSpace(p.StudioID)] = p.Priority
	}

	var candidates []ConsensusCandidate
	for _, p := range b {
		id := strings.TrimSpace(p.StudioID)
		pa, ok := byStudio[id]
		if !ok {
			continue
		}
		candidates = append(candidates, ConsensusCandidate{
			StudioID:     id,
			PriorityA:    pa,
			PriorityB:    p.Priority,
			CombinedRank: pa + p.Priority,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.CombinedRank != cj.CombinedRank {
			return ci.CombinedRank < cj.CombinedRank
		}
		if ci.bestPriority() != cj.bestPriority() {
			return ci.bestPriority() < cj.bestPriority()
		}
		return ci.StudioID < cj.StudioID
	})
	return candidates
}

// ResolveStudio picks the consensus studio for two validated preference lists.
// The result does not depend on list order or on which side is a and which is b.
func ResolveStudio(a, b []models.StudioPreference) (string, error) {
	if err := ValidatePreferences(a); err != nil {
		return "", err
	}
	if err := ValidatePreferences(b); err != nil {
		return "", err
	}

	candidates := RankCandidates(a, b)
	if len(candidates) == 0 {
		return "", consensusError("no studio appears in both preference lists")
	}
	return candidates[0].StudioID, nil
}
